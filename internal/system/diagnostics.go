package system

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"mlsetup/internal/accel"
)

// DiagnosticLevel selects how many tests run.
type DiagnosticLevel string

const (
	LevelQuick DiagnosticLevel = "quick"
	LevelFull  DiagnosticLevel = "full"
)

// DiagnosticTest identifies a single host check.
type DiagnosticTest string

const (
	TestPermissions DiagnosticTest = "permissions"
	TestPaths       DiagnosticTest = "paths"
	TestDiskSpace   DiagnosticTest = "diskspace"
	TestCPU         DiagnosticTest = "cpu"
	TestMemory      DiagnosticTest = "memory"
	TestAccelerator DiagnosticTest = "accelerator"
)

// DiagnosticResult holds the outcome of one test.
type DiagnosticResult struct {
	Test      DiagnosticTest `json:"test"`
	Status    string         `json:"status"` // PASS, FAIL, WARN
	Message   string         `json:"message"`
	Details   interface{}    `json:"details,omitempty"`
	Duration  time.Duration  `json:"duration"`
	Timestamp time.Time      `json:"timestamp"`
}

// HostDiagnostics is the full diagnostics run.
type HostDiagnostics struct {
	Level       DiagnosticLevel    `json:"level"`
	StartTime   time.Time          `json:"start_time"`
	EndTime     time.Time          `json:"end_time"`
	Duration    time.Duration      `json:"duration"`
	Overall     string             `json:"overall"` // HEALTHY, WARNING, CRITICAL
	Results     []DiagnosticResult `json:"results"`
	Summary     DiagnosticSummary  `json:"summary"`
	Environment HostEnvironment    `json:"environment"`
}

// DiagnosticSummary aggregates the per-test statuses.
type DiagnosticSummary struct {
	TotalTests int `json:"total_tests"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Warnings   int `json:"warnings"`
}

// HostEnvironment captures the host the diagnostics ran on.
type HostEnvironment struct {
	OSVersion    string            `json:"os_version"`
	Architecture string            `json:"architecture"`
	Username     string            `json:"username"`
	Hostname     string            `json:"hostname"`
	CPUCount     int               `json:"cpu_count"`
	Environment  map[string]string `json:"environment"`
}

// DiagnosticsRunner runs host diagnostics against a workspace root.
type DiagnosticsRunner struct {
	root    string
	level   DiagnosticLevel
	verbose bool
	test    DiagnosticTest
	prober  *accel.Prober
}

// NewDiagnosticsRunner creates a runner. A non-empty test restricts the run
// to that single test.
func NewDiagnosticsRunner(root string, level DiagnosticLevel, verbose bool, test DiagnosticTest) *DiagnosticsRunner {
	return &DiagnosticsRunner{
		root:    root,
		level:   level,
		verbose: verbose,
		test:    test,
		prober:  accel.NewProber(),
	}
}

// SetProber overrides the accelerator prober, for tests.
func (dr *DiagnosticsRunner) SetProber(p *accel.Prober) {
	dr.prober = p
}

// RunDiagnostics runs the selected tests.
func (dr *DiagnosticsRunner) RunDiagnostics(ctx context.Context) (*HostDiagnostics, error) {
	startTime := time.Now()

	diagnostics := &HostDiagnostics{
		Level:       dr.level,
		StartTime:   startTime,
		Results:     make([]DiagnosticResult, 0),
		Environment: CollectEnvironmentInfo(),
	}

	for _, test := range dr.testsForLevel() {
		select {
		case <-ctx.Done():
			return diagnostics, ctx.Err()
		default:
		}

		result := dr.runTest(test)
		diagnostics.Results = append(diagnostics.Results, result)
	}

	diagnostics.EndTime = time.Now()
	diagnostics.Duration = diagnostics.EndTime.Sub(diagnostics.StartTime)
	diagnostics.Summary = calculateSummary(diagnostics.Results)
	diagnostics.Overall = determineOverallStatus(diagnostics.Summary)

	return diagnostics, nil
}

func (dr *DiagnosticsRunner) testsForLevel() []DiagnosticTest {
	if dr.test != "" {
		return []DiagnosticTest{dr.test}
	}

	switch dr.level {
	case LevelFull:
		return []DiagnosticTest{TestPermissions, TestPaths, TestDiskSpace, TestCPU, TestMemory, TestAccelerator}
	default:
		return []DiagnosticTest{TestPermissions, TestDiskSpace, TestAccelerator}
	}
}

func (dr *DiagnosticsRunner) runTest(test DiagnosticTest) DiagnosticResult {
	startTime := time.Now()

	result := DiagnosticResult{
		Test:      test,
		Timestamp: startTime,
	}

	switch test {
	case TestPermissions:
		result.Status, result.Message, result.Details = dr.testPermissions()
	case TestPaths:
		result.Status, result.Message, result.Details = dr.testPaths()
	case TestDiskSpace:
		result.Status, result.Message, result.Details = dr.testDiskSpace()
	case TestCPU:
		result.Status, result.Message, result.Details = dr.testCPU()
	case TestMemory:
		result.Status, result.Message, result.Details = dr.testMemory()
	case TestAccelerator:
		result.Status, result.Message, result.Details = dr.testAccelerator()
	default:
		result.Status, result.Message = "FAIL", fmt.Sprintf("unknown test: %s", test)
	}

	result.Duration = time.Since(startTime)

	if dr.verbose {
		fmt.Printf("[TEST] %s: %s - %s (%v)\n", result.Test, result.Status, result.Message, result.Duration)
	}

	return result
}

func (dr *DiagnosticsRunner) testPermissions() (string, string, interface{}) {
	details := map[string]interface{}{
		"root": dr.root,
	}

	f, err := os.CreateTemp(dr.root, ".mlsetup-diag-*")
	if err != nil {
		details["error"] = err.Error()
		return "FAIL", fmt.Sprintf("Workspace root is not writable: %s", dr.root), details
	}
	name := f.Name()
	f.Close()
	os.Remove(name)

	details["writable"] = true
	return "PASS", "Workspace root is writable", details
}

func (dr *DiagnosticsRunner) testPaths() (string, string, interface{}) {
	paths := []string{
		dr.root,
		filepath.Join(dr.root, "config"),
		filepath.Join(dr.root, "logs"),
		os.TempDir(),
	}

	pathDetails := make([]map[string]interface{}, len(paths))
	allAccessible := true

	for i, path := range paths {
		accessible := true
		if _, err := os.Stat(path); err != nil {
			accessible = false
			allAccessible = false
		}
		pathDetails[i] = map[string]interface{}{
			"path":       path,
			"accessible": accessible,
		}
	}

	if allAccessible {
		return "PASS", "All checked paths are accessible", pathDetails
	}

	// Missing config/ or logs/ simply means the workspace is not
	// initialized yet.
	return "WARN", "Some paths are not accessible (workspace may be uninitialized)", pathDetails
}

func (dr *DiagnosticsRunner) testDiskSpace() (string, string, interface{}) {
	free, err := DiskFree(dr.root)
	details := map[string]interface{}{
		"root": dr.root,
	}

	if err != nil {
		details["error"] = err.Error()
		return "WARN", "Free space check is not supported on this platform", details
	}

	freeGB := float64(free) / (1024 * 1024 * 1024)
	details["free_gb"] = freeGB

	const minFreeGB = 1.0
	if freeGB < minFreeGB {
		return "WARN", fmt.Sprintf("Low free space at workspace root: %.1f GB", freeGB), details
	}

	return "PASS", fmt.Sprintf("Free space at workspace root: %.1f GB", freeGB), details
}

func (dr *DiagnosticsRunner) testCPU() (string, string, interface{}) {
	cpuCount := runtime.NumCPU()

	details := map[string]interface{}{
		"cpu_count": cpuCount,
		"os":        runtime.GOOS,
		"arch":      runtime.GOARCH,
	}

	if cpuCount < 2 {
		return "WARN", fmt.Sprintf("Few CPU cores available: %d", cpuCount), details
	}

	return "PASS", fmt.Sprintf("%d CPU cores available", cpuCount), details
}

func (dr *DiagnosticsRunner) testMemory() (string, string, interface{}) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	details := map[string]interface{}{
		"heap_mb": memStats.HeapAlloc / (1024 * 1024),
		"sys_mb":  memStats.Sys / (1024 * 1024),
	}

	return "PASS", fmt.Sprintf("Process memory in use: %d MB", memStats.Sys/(1024*1024)), details
}

func (dr *DiagnosticsRunner) testAccelerator() (string, string, interface{}) {
	device := dr.prober.Probe()

	details := map[string]interface{}{
		"class": string(device.Class),
	}
	if device.Name != "" {
		details["name"] = device.Name
	}
	if device.MemoryBytes > 0 {
		details["memory_gb"] = float64(device.MemoryBytes) / 1e9
	}

	if device.Class == accel.ClassCPU {
		return "WARN", "No hardware acceleration detected, training will be slow on CPU", details
	}

	return "PASS", fmt.Sprintf("Hardware acceleration available: %s", device), details
}

func calculateSummary(results []DiagnosticResult) DiagnosticSummary {
	summary := DiagnosticSummary{TotalTests: len(results)}

	for _, result := range results {
		switch result.Status {
		case "PASS":
			summary.Passed++
		case "FAIL":
			summary.Failed++
		case "WARN":
			summary.Warnings++
		}
	}

	return summary
}

func determineOverallStatus(summary DiagnosticSummary) string {
	if summary.Failed > 0 {
		return "CRITICAL"
	}
	if summary.Warnings > 0 {
		return "WARNING"
	}
	return "HEALTHY"
}

// SaveDiagnostics writes the diagnostics run as indented JSON.
func SaveDiagnostics(diagnostics *HostDiagnostics, outputPath string) error {
	if outputPath == "" {
		timestamp := diagnostics.StartTime.Format("20060102_150405")
		outputPath = filepath.Join(os.TempDir(), fmt.Sprintf("mlsetup_diagnostics_%s.json", timestamp))
	}

	data, err := json.MarshalIndent(diagnostics, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize diagnostics: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to save diagnostics: %w", err)
	}

	return nil
}
