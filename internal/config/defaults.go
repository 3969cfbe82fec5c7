package config

import (
	"os"
	"path/filepath"
	"strings"

	"pdf-to-word/internal/domain"
	"pdf-to-word/internal/validate"
)

const (
	DefaultServiceURL            = "http://localhost:5000"
	DefaultRequestTimeoutSeconds = 300
	appDirName                   = ".pdf-to-word"
)

// AppDir returns the per-user directory holding settings and history.
func AppDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, appDirName)
}

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		ServiceURL:            DefaultServiceURL,
		OutputDir:             filepath.Join(homeDir, "Documents", "Converted"),
		RequestTimeoutSeconds: DefaultRequestTimeoutSeconds,
		MaxUploadSize:         domain.ByteSize(validate.MaxUploadSize),
		HistoryPath:           filepath.Join(AppDir(), "history.db"),
	}
}

// Normalize trims user input and fills unset fields from DefaultSettings.
func Normalize(settings domain.Settings) domain.Settings {
	defaults := DefaultSettings()

	settings.ServiceURL = strings.TrimRight(strings.TrimSpace(settings.ServiceURL), "/")
	if settings.ServiceURL == "" {
		settings.ServiceURL = defaults.ServiceURL
	}
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	if settings.OutputDir == "" {
		settings.OutputDir = defaults.OutputDir
	}
	if settings.RequestTimeoutSeconds <= 0 {
		settings.RequestTimeoutSeconds = defaults.RequestTimeoutSeconds
	}
	if settings.MaxUploadSize <= 0 {
		settings.MaxUploadSize = defaults.MaxUploadSize
	}
	settings.HistoryPath = strings.TrimSpace(settings.HistoryPath)
	if settings.HistoryPath == "" {
		settings.HistoryPath = defaults.HistoryPath
	}
	return settings
}
