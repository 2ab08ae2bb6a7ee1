package config

import (
	"os"
	"path/filepath"
)

// GetAppDir returns the per-user directory holding settings, history and logs.
func GetAppDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = home
	}
	return filepath.Join(base, "ytgrab")
}

// GetLogsDir returns the directory for debug logs.
func GetLogsDir() string {
	return filepath.Join(GetAppDir(), "logs")
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetAppDir(), "settings.json")
}

// GetHistoryPath returns the path to the download history database.
func GetHistoryPath() string {
	return filepath.Join(GetAppDir(), "history.db")
}

// GetLockPath returns the path of the single-instance lock file.
func GetLockPath() string {
	return filepath.Join(GetAppDir(), "ytgrab.lock")
}
