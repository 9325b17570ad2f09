package logging

// Config holds logger construction options. Archivum runs as a CLI: the
// console sink always writes to stderr so stdout stays free for --json
// output, and a file sink is added only when --log-file is supplied.
type Config struct {
	Service          string
	DefaultLevel     string
	LogFile          string
	FileMaxSizeMB    int
	FileMaxAgeDays   int
	FileMaxBackups   int
	FileCompress     bool
	EnableStacktrace bool
	StaticFields     map[string]any
}

// DefaultConfig returns a stderr-only CLI configuration for the given service name.
func DefaultConfig(service string) *Config {
	return &Config{
		Service:          service,
		DefaultLevel:     "INFO",
		FileMaxSizeMB:    50,
		FileMaxAgeDays:   14,
		FileMaxBackups:   5,
		FileCompress:     true,
		EnableStacktrace: true,
	}
}
