package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mlsetup/internal/accel"
	"mlsetup/internal/config"
	"mlsetup/internal/layout"
)

// Report is the JSON record of one bootstrap run.
type Report struct {
	RunID       string                 `json:"run_id"`
	Version     string                 `json:"version"`
	Timestamp   time.Time              `json:"timestamp"`
	Hostname    string                 `json:"hostname,omitempty"`
	Root        string                 `json:"root"`
	Config      map[string]interface{} `json:"config"`
	DryRun      bool                   `json:"dry_run"`
	Directories []DirectoryReport      `json:"directories"`
	Device      accel.Device           `json:"device"`
	Summary     SummaryReport          `json:"summary"`
	ExitCode    int                    `json:"exit_code"`
	Duration    string                 `json:"duration"`
}

// DirectoryReport records the outcome for one workspace directory.
type DirectoryReport struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Created  bool   `json:"created"`
}

// SummaryReport aggregates the run.
type SummaryReport struct {
	TotalDirs        int    `json:"total_dirs"`
	Created          int    `json:"created"`
	Existing         int    `json:"existing"`
	AcceleratorClass string `json:"accelerator_class"`
}

// GenerateRunID returns a unique identifier for one run.
func GenerateRunID() string {
	return fmt.Sprintf("run_%d", time.Now().UnixNano())
}

// GenerateReport builds the run report from the layout results and the
// probed device.
func GenerateReport(version string, results []layout.Result, device accel.Device, cfg *config.Config, root string, dryRun bool, startTime, endTime time.Time, exitCode int) *Report {
	hostname, _ := os.Hostname()

	report := &Report{
		RunID:       fmt.Sprintf("run_%d", startTime.UnixNano()),
		Version:     version,
		Timestamp:   startTime,
		Hostname:    hostname,
		Root:        root,
		Config:      configToMap(cfg),
		DryRun:      dryRun,
		Directories: make([]DirectoryReport, len(results)),
		Device:      device,
		ExitCode:    exitCode,
		Duration:    endTime.Sub(startTime).String(),
	}

	created := 0
	for i, result := range results {
		report.Directories[i] = DirectoryReport{
			Path:     result.Path,
			Category: result.Category,
			Created:  result.Created,
		}
		if result.Created {
			created++
		}
	}

	report.Summary = SummaryReport{
		TotalDirs:        len(results),
		Created:          created,
		Existing:         len(results) - created,
		AcceleratorClass: string(device.Class),
	}

	return report
}

// SaveReport writes the report under the configured reporting directory and
// returns the file path.
func SaveReport(report *Report, cfg *config.Config) (string, error) {
	if !cfg.Reporting.Enabled {
		return "", nil
	}

	if err := os.MkdirAll(cfg.Reporting.LocalPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	filename := fmt.Sprintf("mlsetup_report_%s.json", report.Timestamp.Format("20060102_150405"))
	path := filepath.Join(cfg.Reporting.LocalPath, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

// configToMap flattens the config into the report JSON.
func configToMap(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"layout": map[string]interface{}{
			"root":        cfg.Layout.Root,
			"profile":     cfg.Layout.Profile,
			"marker_name": cfg.Layout.MarkerName,
			"extra_dirs":  cfg.Layout.ExtraDirs,
		},
		"probe": map[string]interface{}{
			"enabled":     cfg.Probe.Enabled,
			"order":       cfg.Probe.Order,
			"device_file": cfg.Probe.DeviceFile,
			"force_class": cfg.Probe.ForceClass,
		},
		"logging": map[string]interface{}{
			"level": cfg.Logging.Level,
			"file":  cfg.Logging.File,
		},
		"reporting": map[string]interface{}{
			"enabled":    cfg.Reporting.Enabled,
			"local_path": cfg.Reporting.LocalPath,
			"format":     cfg.Reporting.Format,
		},
	}
}
