// Package paths resolves the filestore configuration, data and schema
// directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "filestore"

// DefaultDataDirName is the CWD-relative data directory used when no
// override is set.
const DefaultDataDirName = ".filestore"

// SpecDirName is the schema directory under the config directory.
const SpecDirName = "specs"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "FILESTORE_CONFIG_DIR"
	EnvDataDir   = "FILESTORE_DATA_DIR"
)

// platformDir holds platform lookups that tests replace.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// xdgDir returns $env/filestore on Linux, falling back to ~/fallback/filestore.
// Other platforms use os.UserConfigDir.
func xdgDir(env string, fallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if v := os.Getenv(env); v != "" {
		return filepath.Join(v, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...), nil
}

// DefaultConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/filestore (fallback ~/.config/filestore)
// macOS:   ~/Library/Application Support/filestore
// Windows: %APPDATA%/filestore
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory.
//
// Linux:   $XDG_DATA_HOME/filestore (fallback ~/.local/share/filestore)
// Other platforms share the config directory.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir applies flag > FILESTORE_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config value > FILESTORE_DATA_DIR >
// $(CWD)/.filestore.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveSpecDir returns configValue made absolute, or the specs directory
// under configDir when configValue is empty.
func ResolveSpecDir(configDir, configValue string) (string, error) {
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	return filepath.Join(configDir, SpecDirName), nil
}
