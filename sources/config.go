// SPDX-FileCopyrightText: Copyright 2026 FastSkill, Inc.
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk sources file: an ordered list of source definitions.
type Config struct {
	Sources []Definition `yaml:"sources"`
}

// ConfigPath returns the sources file path within the given config home
// directory. This is the injectable, testable form. For the standard XDG
// location, use DefaultConfigPath.
func ConfigPath(configHome string) string {
	return filepath.Join(configHome, "fastskill", "sources.yaml")
}

// DefaultConfigPath returns the default sources file path using XDG base
// directory conventions.
func DefaultConfigPath() string {
	return ConfigPath(xdg.ConfigHome)
}

// LoadConfig reads and validates a sources file. A missing file is not an
// error: it yields an empty configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading sources config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing sources config: %w", err)
	}

	seen := make(map[string]struct{}, len(cfg.Sources))
	for i := range cfg.Sources {
		if err := cfg.Sources[i].Validate(); err != nil {
			return nil, fmt.Errorf("sources config: %w", err)
		}
		if _, dup := seen[cfg.Sources[i].Name]; dup {
			return nil, fmt.Errorf("sources config: source %s: %w", cfg.Sources[i].Name, ErrDuplicateSource)
		}
		seen[cfg.Sources[i].Name] = struct{}{}
	}
	return &cfg, nil
}

// SaveConfig writes the configuration, creating parent directories as
// needed. The file is replaced atomically.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding sources config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sources-*")
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing sources config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing sources config: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("setting config file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing sources config: %w", err)
	}
	return nil
}
