package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapWriterReaderRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("archivum round trip payload "), 256)

	for _, alg := range []Algorithm{None, Gzip, Bzip2, Lz4, Zstd} {
		t.Run(string(alg), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := alg.WrapWriter(&buf, 6)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := alg.WrapReader(&buf)
			require.NoError(t, err)
			defer r.Close()

			got := make([]byte, len(payload))
			n := 0
			for n < len(got) {
				m, err := r.Read(got[n:])
				n += m
				if err != nil {
					break
				}
			}
			assert.Equal(t, payload, got[:n])
		})
	}
}

func TestParseAliases(t *testing.T) {
	cases := map[string]Algorithm{
		"":     None,
		"raw":  None,
		"gz":   Gzip,
		"bz2":  Bzip2,
		"lz4":  Lz4,
		"zst":  Zstd,
		"zstd": Zstd,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := Parse("rot13")
	assert.Error(t, err)
}

func TestClampLevelOnlyAffectsZstd(t *testing.T) {
	assert.Equal(t, 1, Zstd.ClampLevel(0))
	assert.Equal(t, 22, Zstd.ClampLevel(100))
	assert.Equal(t, 9, Gzip.ClampLevel(9))
}
