package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.MarkerName != ".gitkeep" {
		t.Errorf("expected defaults, got marker %q", cfg.Layout.MarkerName)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Probe.DeviceFile != filepath.Join("config", "device_config.txt") {
		t.Errorf("unexpected default device file: %s", cfg.Probe.DeviceFile)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mlsetup.yaml")
	content := `
layout:
  profile: research
  marker_name: ".keep"
probe:
  enabled: true
  order: ["cuda", "cpu"]
  device_file: "config/device.txt"
logging:
  level: DEBUG
reporting:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Layout.Profile != "research" {
		t.Errorf("profile = %q", cfg.Layout.Profile)
	}
	if cfg.Layout.MarkerName != ".keep" {
		t.Errorf("marker = %q", cfg.Layout.MarkerName)
	}
	if len(cfg.Probe.Order) != 2 {
		t.Errorf("order = %v", cfg.Probe.Order)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
	if cfg.Reporting.Enabled {
		t.Error("reporting should be disabled")
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("layout: ["), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty marker", func(c *Config) { c.Layout.MarkerName = "" }},
		{"marker with path", func(c *Config) { c.Layout.MarkerName = "a/b" }},
		{"unknown profile", func(c *Config) { c.Layout.Profile = "galactic" }},
		{"absolute extra dir", func(c *Config) { c.Layout.ExtraDirs = []string{"/tmp/evil"} }},
		{"escaping extra dir", func(c *Config) { c.Layout.ExtraDirs = []string{"../outside"} }},
		{"empty probe order", func(c *Config) { c.Probe.Order = nil }},
		{"bad probe token", func(c *Config) { c.Probe.Order = []string{"cuda", "tpu"} }},
		{"empty device file", func(c *Config) { c.Probe.DeviceFile = "" }},
		{"absolute device file", func(c *Config) { c.Probe.DeviceFile = "/etc/device.txt" }},
		{"bad forced class", func(c *Config) { c.Probe.ForceClass = "quantum" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "TRACE" }},
		{"empty report path", func(c *Config) { c.Reporting.LocalPath = "" }},
		{"bad report format", func(c *Config) { c.Reporting.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestValidateAllowsDisabledProbe(t *testing.T) {
	cfg := Default()
	cfg.Probe.Enabled = false
	cfg.Probe.Order = nil
	cfg.Probe.DeviceFile = ""

	if err := Validate(cfg); err != nil {
		t.Errorf("disabled probe must skip probe validation: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "mlsetup.yaml")

	cfg := Default()
	cfg.Layout.Profile = "minimal"
	cfg.Probe.ForceClass = "cpu"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Layout.Profile != "minimal" {
		t.Errorf("profile = %q", loaded.Layout.Profile)
	}
	if loaded.Probe.ForceClass != "cpu" {
		t.Errorf("force class = %q", loaded.Probe.ForceClass)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "SHOUTING"

	if err := Save(cfg, filepath.Join(t.TempDir(), "cfg.yaml")); err == nil {
		t.Error("expected error saving invalid config")
	}
}

func TestApplyProfile(t *testing.T) {
	cfg := Default()

	for _, profile := range []string{"minimal", "standard", "research"} {
		if err := ApplyProfile(cfg, profile); err != nil {
			t.Errorf("ApplyProfile(%s): %v", profile, err)
		}
		if cfg.Layout.Profile != profile {
			t.Errorf("profile not applied: %q", cfg.Layout.Profile)
		}
	}

	if err := ApplyProfile(cfg, "warp-speed"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestWorkspaceRoot(t *testing.T) {
	cfg := Default()

	root, err := cfg.WorkspaceRoot("/data/ws")
	if err != nil {
		t.Fatal(err)
	}
	if root != "/data/ws" {
		t.Errorf("override ignored: %q", root)
	}

	cfg.Layout.Root = "/configured"
	root, err = cfg.WorkspaceRoot("")
	if err != nil {
		t.Fatal(err)
	}
	if root != "/configured" {
		t.Errorf("configured root ignored: %q", root)
	}

	cfg.Layout.Root = ""
	root, err = cfg.WorkspaceRoot("")
	if err != nil {
		t.Fatal(err)
	}
	cwd, _ := os.Getwd()
	if root != cwd {
		t.Errorf("expected cwd fallback, got %q", root)
	}
}
