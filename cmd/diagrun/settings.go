package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/rendis/diagrun/internal/validation"
	"github.com/rendis/diagrun/pkg/schema"
)

// Settings holds CLI configuration.
// Priority: env vars > settings.yaml > defaults.
type Settings struct {
	Site     schema.SiteConfig `yaml:"site"`
	Selector string            `yaml:"selector"`
	LogDB    string            `yaml:"log_db"`
}

func defaultSettings() Settings {
	return Settings{
		Site:     schema.DefaultSiteConfig(),
		Selector: ".mermaid",
	}
}

func diagrunDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".diagrun"
	}
	return filepath.Join(home, ".diagrun")
}

func settingsPath() string {
	return filepath.Join(diagrunDir(), "settings.yaml")
}

func loadSettings() (Settings, error) {
	s := defaultSettings()

	// Layer 2: settings.yaml. A missing file is fine; a malformed one is
	// an error, not a silent fall-back to defaults.
	if data, err := os.ReadFile(settingsPath()); err == nil {
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse %s: %w", settingsPath(), err)
		}
	}

	// Layer 3: env vars override.
	if v := os.Getenv("DIAGRUN_SELECTOR"); v != "" {
		s.Selector = v
	}
	if v := os.Getenv("DIAGRUN_LOG_DB"); v != "" {
		s.LogDB = v
	}
	if v := os.Getenv("DIAGRUN_LOG_LEVEL"); v != "" {
		s.Site.LogLevel = v
	}
	if v := os.Getenv("DIAGRUN_SECURITY_LEVEL"); v != "" {
		s.Site.SecurityLevel = v
	}
	if v := os.Getenv("DIAGRUN_DETERMINISTIC_IDS"); v != "" {
		s.Site.DeterministicIDs = v == "true" || v == "1"
	}
	if v := os.Getenv("DIAGRUN_ID_SEED"); v != "" {
		s.Site.DeterministicIDSeed = v
	}
	if v := os.Getenv("DIAGRUN_MAX_TEXT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Site.MaxTextSize = n
		}
	}

	if err := validation.ValidateSiteConfig(s.Site); err != nil {
		return s, err
	}
	return s, nil
}
