package config

import (
	"os"
	"path/filepath"
)

// xdgBaseDirs holds XDG Base Directory paths.
type xdgBaseDirs struct {
	ConfigHome string
	DataHome   string
	CacheHome  string
}

func getXDGBaseDirs() xdgBaseDirs {
	return xdgBaseDirs{
		ConfigHome: getXDGConfigHome(),
		DataHome:   getXDGDataHome(),
		CacheHome:  getXDGCacheHome(),
	}
}

func getXDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config")
	}
	return ""
}

func getXDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".local", "share")
	}
	return ""
}

func getXDGCacheHome() string {
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return v
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".cache")
	}
	return ""
}

// AppConfigDir returns <config-dir>/archivum, where <config-dir> is
// $XDG_CONFIG_HOME or ~/.config.
func AppConfigDir() string {
	return filepath.Join(getXDGBaseDirs().ConfigHome, "archivum")
}
