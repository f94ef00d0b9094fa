package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes a full mlsetup run: workspace layout, accelerator
// probing, logging and reporting.
type Config struct {
	Layout struct {
		Root       string   `yaml:"root"`
		Profile    string   `yaml:"profile"`
		MarkerName string   `yaml:"marker_name"`
		ExtraDirs  []string `yaml:"extra_dirs"`
	} `yaml:"layout"`

	Probe struct {
		Enabled    bool     `yaml:"enabled"`
		Order      []string `yaml:"order"`
		DeviceFile string   `yaml:"device_file"`
		ForceClass string   `yaml:"force_class"`
	} `yaml:"probe"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`

	Reporting struct {
		Enabled   bool   `yaml:"enabled"`
		LocalPath string `yaml:"local_path"`
		Format    string `yaml:"format"`
	} `yaml:"reporting"`
}

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{}

	cfg.Layout.Root = "" // empty means current working directory
	cfg.Layout.Profile = "standard"
	cfg.Layout.MarkerName = ".gitkeep"
	cfg.Layout.ExtraDirs = []string{}

	cfg.Probe.Enabled = true
	cfg.Probe.Order = []string{"cuda", "mps", "cpu"}
	cfg.Probe.DeviceFile = filepath.Join("config", "device_config.txt")
	cfg.Probe.ForceClass = ""

	cfg.Logging.Level = "INFO"
	cfg.Logging.File = ""

	cfg.Reporting.Enabled = true
	cfg.Reporting.LocalPath = "./reports"
	cfg.Reporting.Format = "json"

	return cfg
}

// Load loads a configuration from a YAML file. An empty path or a missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks the configuration for consistency.
func Validate(config *Config) error {
	// Layout section
	if config.Layout.MarkerName == "" {
		return fmt.Errorf("marker name must not be empty")
	}
	if strings.ContainsRune(config.Layout.MarkerName, os.PathSeparator) || strings.ContainsRune(config.Layout.MarkerName, '/') {
		return fmt.Errorf("marker name must be a bare file name, got %s", config.Layout.MarkerName)
	}
	if config.Layout.Profile != "" {
		if !validProfiles[config.Layout.Profile] {
			return fmt.Errorf("unknown layout profile: %s", config.Layout.Profile)
		}
	}
	for _, dir := range config.Layout.ExtraDirs {
		if dir == "" {
			return fmt.Errorf("empty extra directory entry")
		}
		if filepath.IsAbs(dir) {
			return fmt.Errorf("extra directory must be relative to the workspace root, got %s", dir)
		}
		clean := filepath.Clean(dir)
		if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
			return fmt.Errorf("extra directory escapes the workspace root: %s", dir)
		}
	}

	// Probe section
	if config.Probe.Enabled {
		if len(config.Probe.Order) == 0 {
			return fmt.Errorf("probe order must not be empty")
		}
		for _, token := range config.Probe.Order {
			if !validClasses[token] {
				return fmt.Errorf("invalid accelerator class in probe order: %s", token)
			}
		}
		if config.Probe.DeviceFile == "" {
			return fmt.Errorf("device file path must not be empty")
		}
		if filepath.IsAbs(config.Probe.DeviceFile) {
			return fmt.Errorf("device file must be relative to the workspace root, got %s", config.Probe.DeviceFile)
		}
		if config.Probe.ForceClass != "" && !validClasses[config.Probe.ForceClass] {
			return fmt.Errorf("invalid forced accelerator class: %s", config.Probe.ForceClass)
		}
	}

	// Logging section
	validLevels := map[string]bool{
		"DEBUG": true,
		"INFO":  true,
		"WARN":  true,
		"ERROR": true,
	}
	if !validLevels[config.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	// Reporting section
	if config.Reporting.Enabled {
		if config.Reporting.LocalPath == "" {
			return fmt.Errorf("reporting path must not be empty")
		}
		validFormats := map[string]bool{
			"json": true,
			"csv":  true,
		}
		if !validFormats[config.Reporting.Format] {
			return fmt.Errorf("invalid report format: %s", config.Reporting.Format)
		}
	}

	return nil
}

// Save writes the configuration to a YAML file.
func Save(config *Config, path string) error {
	if err := Validate(config); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// WorkspaceRoot resolves the effective workspace root: an explicit override
// wins, then the configured root, then the current working directory.
func (config *Config) WorkspaceRoot(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if config.Layout.Root != "" {
		return config.Layout.Root, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return cwd, nil
}

// validClasses mirrors the accelerator tokens understood by internal/accel.
// Kept here so config validation does not depend on the probing package.
var validClasses = map[string]bool{
	"cuda": true,
	"mps":  true,
	"cpu":  true,
}
