package foundry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodesAreDistinctWithinBand(t *testing.T) {
	codes := []ExitCode{
		ExitSuccess, ExitFailure,
		ExitConfigInvalid, ExitMissingDependency, ExitConfigFileNotFound,
		ExitResourceExhausted,
		ExitInvalidArgument, ExitMissingRequiredArgument, ExitUsage,
		ExitPermissionDenied, ExitFileNotFound, ExitDirectoryNotFound, ExitFileReadError, ExitFileWriteError,
		ExitDataInvalid, ExitParseError, ExitDataCorrupt,
		ExitSecurityViolation,
	}
	seen := make(map[ExitCode]bool, len(codes))
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate exit code %d", c)
		seen[c] = true
	}
}

func TestExitSuccessIsZero(t *testing.T) {
	assert.Equal(t, 0, ExitSuccess)
}
