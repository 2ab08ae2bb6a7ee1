package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Settings holds all user-configurable application settings organized by category.
type Settings struct {
	General GeneralSettings `json:"general"`
	Network NetworkSettings `json:"network"`
}

// GeneralSettings contains application behavior settings.
type GeneralSettings struct {
	DownloadDir       string `json:"download_dir"`
	Quality           string `json:"quality"` // best, 1080p, 720p, 480p, worst
	Format            string `json:"format"`  // mp4, mp3, video-only
	Theme             int    `json:"theme"`
	ClipboardPaste    bool   `json:"clipboard_paste"` // prefill add dialog from clipboard
	LogRetentionCount int    `json:"log_retention_count"`
}

const (
	ThemeAdaptive = 0
	ThemeLight    = 1
	ThemeDark     = 2
)

// Quality preference values. Anything of the form "NNNp" is also accepted.
const (
	QualityBest  = "best"
	QualityWorst = "worst"
)

// Download format values.
const (
	FormatMP4       = "mp4"
	FormatMP3       = "mp3"
	FormatVideoOnly = "video-only"
)

// Qualities lists the quality choices offered by the UI, best first.
func Qualities() []string {
	return []string{QualityBest, "1080p", "720p", "480p", QualityWorst}
}

// Formats lists the download format choices offered by the UI.
func Formats() []string {
	return []string{FormatMP4, FormatMP3, FormatVideoOnly}
}

// NetworkSettings contains transfer tuning parameters.
type NetworkSettings struct {
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	defaultDir := filepath.Join(homeDir, "Downloads")

	return &Settings{
		General: GeneralSettings{
			DownloadDir:       defaultDir,
			Quality:           QualityBest,
			Format:            FormatMP4,
			Theme:             ThemeDark,
			ClipboardPaste:    true,
			LogRetentionCount: 5,
		},
		Network: NetworkSettings{
			Timeout:    3 * time.Minute,
			MaxRetries: 3,
			RetryDelay: 500 * time.Millisecond,
		},
	}
}

// LoadSettings loads settings from disk. A missing or corrupt file yields
// defaults, never an error the caller has to handle as fatal.
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

// LoadSettingsFrom is LoadSettings with an explicit path, for tests.
func LoadSettingsFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettings(), nil
	}

	settings := DefaultSettings() // start with defaults to fill any missing fields
	if err := json.Unmarshal(data, settings); err != nil {
		return DefaultSettings(), nil
	}
	return settings, nil
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	return SaveSettingsTo(GetSettingsPath(), s)
}

// SaveSettingsTo is SaveSettings with an explicit path, for tests.
func SaveSettingsTo(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename.
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}
