package config

import (
	"fmt"
)

// validProfiles lists the layout profiles understood by internal/layout.
var validProfiles = map[string]bool{
	"minimal":  true,
	"standard": true,
	"research": true,
}

// ApplyProfile applies a layout profile to the configuration.
func ApplyProfile(cfg *Config, profile string) error {
	switch profile {
	case "minimal":
		// Bare skeleton: data and source trees only.
		cfg.Layout.Profile = "minimal"
	case "standard":
		// Full thirteen-directory layout.
		cfg.Layout.Profile = "standard"
	case "research":
		// Standard layout plus experiment scratch space.
		cfg.Layout.Profile = "research"
	default:
		return fmt.Errorf("unknown profile: %s", profile)
	}
	return nil
}
