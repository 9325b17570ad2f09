// Package foundry provides standardized process exit codes for archivum
// commands and libraries, grouped by category in the same numeric bands
// the wider Fulmen tool ecosystem uses.
package foundry

// ExitCode is a standardized process exit code. It is an alias for int so
// callers can pass it directly to os.Exit.
type ExitCode = int

const (
	// Standard Exit Codes (0-1)
	ExitSuccess ExitCode = 0
	ExitFailure ExitCode = 1

	// Configuration & Validation (20-29)
	ExitConfigInvalid      ExitCode = 20
	ExitMissingDependency  ExitCode = 21
	ExitConfigFileNotFound ExitCode = 23

	// Runtime Errors (30-39)
	ExitResourceExhausted ExitCode = 33

	// Command-Line Usage Errors (40-49)
	ExitInvalidArgument         ExitCode = 40
	ExitMissingRequiredArgument ExitCode = 41
	ExitUsage                   ExitCode = 42

	// Permissions & File Access (50-59)
	ExitPermissionDenied  ExitCode = 50
	ExitFileNotFound      ExitCode = 51
	ExitDirectoryNotFound ExitCode = 52
	ExitFileReadError     ExitCode = 53
	ExitFileWriteError    ExitCode = 54

	// Data & Processing Errors (60-69)
	ExitDataInvalid ExitCode = 60
	ExitParseError  ExitCode = 61
	ExitDataCorrupt ExitCode = 63

	// Security & Authentication (70-79)
	ExitSecurityViolation ExitCode = 70
)
