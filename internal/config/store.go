package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pdf-to-word/internal/domain"
)

// Store defines persistence operations for app settings.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// NewStore picks a store implementation from the file extension.
// ".yaml" and ".yml" select YAMLStore; anything else is JSON.
func NewStore(path string) Store {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYAMLStore(path)
	default:
		return NewJSONStore(path)
	}
}

// DefaultPath is the settings file used by the desktop app.
func DefaultPath() string {
	return filepath.Join(AppDir(), "settings.json")
}

// JSONStore persists settings in a single JSON file on disk.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed settings store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads settings from disk or returns defaults when missing.
func (s *JSONStore) Load() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return domain.Settings{}, err
	}

	var cfg domain.Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return Normalize(cfg), nil
}

// Save writes settings as indented JSON and creates parent directories.
func (s *JSONStore) Save(cfg domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// YAMLStore reads hand-edited profiles. ${VAR} references are expanded
// from the environment before parsing.
type YAMLStore struct {
	path string
}

// NewYAMLStore creates a YAML-backed settings store.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// Load reads settings from disk or returns defaults when missing.
func (s *YAMLStore) Load() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return domain.Settings{}, err
	}

	expanded := os.ExpandEnv(string(data))
	var cfg domain.Settings
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return domain.Settings{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return Normalize(cfg), nil
}

// Save writes settings as YAML and creates parent directories.
func (s *YAMLStore) Save(cfg domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
