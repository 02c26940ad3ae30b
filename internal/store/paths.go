package store

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "chesscalc"

// DataDir returns the platform-specific data directory for the
// application.
// - macOS: ~/Library/Application Support/chesscalc/
// - Linux: ~/.local/share/chesscalc/
// - Windows: %APPDATA%/chesscalc/
func DataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, "AppData", "Roaming")
		}

	default:
		// Linux and other Unix-like: ~/.local/share/ unless
		// XDG_DATA_HOME overrides.
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(baseDir, appName)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	return dataDir, nil
}

// BackendDir returns the directory holding the named backend's
// database, creating it if absent.
func BackendDir(backend string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(dataDir, backend)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return dir, nil
}
