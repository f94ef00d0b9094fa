package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mlsetup/internal/layout"
	"mlsetup/internal/system"
)

// VerificationReport is the persisted result of a workspace verification.
type VerificationReport struct {
	layout.VerificationResult
	DeviceToken      string                 `json:"device_token,omitempty"`
	DeviceTokenValid bool                   `json:"device_token_valid"`
	Passed           bool                   `json:"passed"`
	Metadata         VerificationMetadata   `json:"metadata"`
	System           system.HostEnvironment `json:"system"`
}

// VerificationMetadata identifies one verification run.
type VerificationMetadata struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Operator  string    `json:"operator"`
}

// GenerateVerificationReport builds the persisted report from the structural
// result and the device file check.
func GenerateVerificationReport(result *layout.VerificationResult, deviceToken string, deviceTokenValid bool, metadata VerificationMetadata) *VerificationReport {
	return &VerificationReport{
		VerificationResult: *result,
		DeviceToken:        deviceToken,
		DeviceTokenValid:   deviceTokenValid,
		Passed:             result.OK() && deviceTokenValid,
		Metadata:           metadata,
		System:             system.CollectEnvironmentInfo(),
	}
}

// SaveVerificationReport writes the report in the requested format.
func SaveVerificationReport(report *VerificationReport, format, outputPath string) error {
	switch format {
	case "json":
		return saveVerificationReportJSON(report, outputPath)
	case "csv":
		return saveVerificationReportCSV(report, outputPath)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

func saveVerificationReportJSON(report *VerificationReport, outputPath string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize JSON: %w", err)
	}

	if outputPath == "" {
		timestamp := report.Metadata.Timestamp.Format("20060102_150405")
		outputPath = filepath.Join(os.TempDir(), fmt.Sprintf("mlsetup_verification_%s.json", timestamp))
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

func saveVerificationReportCSV(report *VerificationReport, outputPath string) error {
	if outputPath == "" {
		timestamp := report.Metadata.Timestamp.Format("20060102_150405")
		outputPath = filepath.Join(os.TempDir(), fmt.Sprintf("mlsetup_verification_%s.csv", timestamp))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# mlsetup Verification Report\n")
	fmt.Fprintf(&b, "# Generated: %s\n", report.Metadata.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "# Root: %s\n\n", report.Root)

	fmt.Fprintf(&b, "Metric,Value\n")
	fmt.Fprintf(&b, "Passed,%t\n", report.Passed)
	fmt.Fprintf(&b, "Directories Checked,%d\n", report.Checked)
	fmt.Fprintf(&b, "Missing Directories,%d\n", len(report.MissingDirs))
	fmt.Fprintf(&b, "Missing Markers,%d\n", len(report.MissingMarkers))
	fmt.Fprintf(&b, "Path Collisions,%d\n", len(report.NotDirectories))
	fmt.Fprintf(&b, "Device Token,%s\n", report.DeviceToken)
	fmt.Fprintf(&b, "Device Token Valid,%t\n", report.DeviceTokenValid)
	fmt.Fprintf(&b, "Run ID,%s\n", report.Metadata.RunID)
	fmt.Fprintf(&b, "Operator,%s\n", report.Metadata.Operator)
	fmt.Fprintf(&b, "OS Version,%s\n", report.System.OSVersion)
	fmt.Fprintf(&b, "Architecture,%s\n", report.System.Architecture)
	fmt.Fprintf(&b, "Hostname,%s\n", report.System.Hostname)

	if len(report.MissingDirs) > 0 {
		fmt.Fprintf(&b, "\n# Missing directories:\n")
		for i, dir := range report.MissingDirs {
			fmt.Fprintf(&b, "Missing %d,%s\n", i+1, dir)
		}
	}

	if err := os.WriteFile(outputPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write CSV report: %w", err)
	}

	return nil
}
