// Package config loads archivum's user-level defaults from
// <config-dir>/archivum/config.toml, the layer beneath command-line flags
// and above the built-in defaults.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the defaults a CLI layer overlays with flags.
type Config struct {
	Compression         string   `mapstructure:"compression"`
	CompressionLevel    int      `mapstructure:"compression_level"`
	SplitBytes          int64    `mapstructure:"split_bytes"`
	SplitFiles          int      `mapstructure:"split_files"`
	Threads             int      `mapstructure:"threads"`
	Excludes            []string `mapstructure:"excludes"`
	Dedup               bool     `mapstructure:"dedup"`
	RestorePermissions  bool     `mapstructure:"restore_permissions"`
	PruneKeepLast       int      `mapstructure:"prune_keep_last"`
	PruneMaxAgeDays     int      `mapstructure:"prune_max_age_days"`
	ContinueOnError     bool     `mapstructure:"continue_on_error"`
}

// Default returns archivum's built-in defaults, the last layer applied
// beneath the user config file and command-line flags.
func Default() *Config {
	return &Config{
		Compression:        "zstd",
		CompressionLevel:   6,
		SplitBytes:         1 << 30, // 1 GiB
		SplitFiles:         0,
		Threads:            4,
		Dedup:              true,
		RestorePermissions: true,
		PruneKeepLast:      5,
		PruneMaxAgeDays:    30,
		ContinueOnError:    false,
	}
}

// Load reads <config-dir>/archivum/config.toml over the built-in defaults.
// A missing file is not an error; its absence just leaves the defaults in
// place. CLI flags override the config file, which overrides built-ins.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(AppConfigDir(), "config.toml"))
}

// LoadFrom reads a specific config.toml path over the built-in defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
