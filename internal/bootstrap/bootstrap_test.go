package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mlsetup/internal/accel"
	"mlsetup/internal/config"
	"mlsetup/internal/layout"
	"mlsetup/internal/logging"
)

func newTestOrchestrator(t *testing.T, cfg *config.Config, dryRun bool) *Orchestrator {
	t.Helper()

	logCfg := config.Default()
	logCfg.Logging.Level = "ERROR"
	logger, err := logging.NewLogger(logCfg, false)
	if err != nil {
		t.Fatalf("creating test logger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })

	o := NewOrchestrator(cfg, logger, dryRun)
	o.SetProber(accel.NewProberWithChecks(nil, nil, nil)) // cpu-only host
	return o
}

func TestRunBootstrapsEmptyWorkspace(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Reporting.Enabled = false

	o := newTestOrchestrator(t, cfg, false)
	result, err := o.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Status != "COMPLETED" {
		t.Errorf("status = %s", result.Status)
	}
	if len(result.Directories) != 13 {
		t.Errorf("expected all 13 directories, got %d", len(result.Directories))
	}

	// Every directory of the standard tree must exist with its marker.
	for _, dir := range layout.ProjectStructure {
		dirPath := filepath.Join(root, dir.Path)
		info, err := os.Stat(dirPath)
		if err != nil || !info.IsDir() {
			t.Errorf("missing directory %s", dir.Path)
		}
		if _, err := os.Stat(filepath.Join(dirPath, ".gitkeep")); err != nil {
			t.Errorf("missing marker in %s", dir.Path)
		}
	}

	// On a host without acceleration the device file holds the cpu token.
	data, err := os.ReadFile(filepath.Join(root, "config", "device_config.txt"))
	if err != nil {
		t.Fatalf("device file missing: %v", err)
	}
	if string(data) != "cpu" {
		t.Errorf("device file = %q, want %q", string(data), "cpu")
	}

	for _, phase := range result.Phases {
		if phase.Status != "COMPLETED" {
			t.Errorf("phase %s = %s (%s)", phase.Phase, phase.Status, phase.Error)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()

	o := newTestOrchestrator(t, cfg, false)
	if _, err := o.Run(context.Background(), root); err != nil {
		t.Fatalf("first run: %v", err)
	}

	result, err := o.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("second run must not fail: %v", err)
	}
	if result.Status != "COMPLETED" {
		t.Errorf("second run status = %s", result.Status)
	}

	for _, dir := range result.Directories {
		if dir.Created {
			t.Errorf("second run re-created %s", dir.Path)
		}
	}
}

func TestRunSelectsCUDAWhenAvailable(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()

	o := newTestOrchestrator(t, cfg, false)
	o.SetProber(accel.NewProberWithChecks(
		func() bool { return true },
		func() (string, uint64) { return "NVIDIA H100", 80 * 1024 * 1024 * 1024 },
		nil,
	))

	result, err := o.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Device.Class != accel.ClassCUDA {
		t.Errorf("device class = %q", result.Device.Class)
	}
	if result.Device.Name != "NVIDIA H100" {
		t.Errorf("device name = %q", result.Device.Name)
	}

	data, err := os.ReadFile(filepath.Join(root, cfg.Probe.DeviceFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "cuda" {
		t.Errorf("device file = %q", string(data))
	}
}

func TestRunHonorsForcedClass(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Probe.ForceClass = "mps"

	o := newTestOrchestrator(t, cfg, false)
	result, err := o.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Device.Class != accel.ClassMPS {
		t.Errorf("forced class ignored: %q", result.Device.Class)
	}
}

func TestRunSkipsProbeWhenDisabled(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Probe.Enabled = false

	o := newTestOrchestrator(t, cfg, false)
	result, err := o.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "config", "device_config.txt")); !os.IsNotExist(err) {
		t.Error("device file must not be written with probing disabled")
	}

	skipped := 0
	for _, phase := range result.Phases {
		if phase.Status == "SKIPPED" {
			skipped++
		}
	}
	if skipped != 2 {
		t.Errorf("expected probe and device_file phases skipped, got %d", skipped)
	}
}

func TestRunDryRunLeavesFilesystemUntouched(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()

	o := newTestOrchestrator(t, cfg, true)
	result, err := o.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != "COMPLETED" {
		t.Errorf("status = %s", result.Status)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("dry run created %d entries", len(entries))
	}
}

func TestRunFailsOnProtectedRoot(t *testing.T) {
	cfg := config.Default()

	o := newTestOrchestrator(t, cfg, false)
	result, err := o.Run(context.Background(), "/etc")
	if err == nil {
		t.Fatal("expected preflight failure for /etc")
	}
	if result.Status != "FAILED" {
		t.Errorf("status = %s", result.Status)
	}
	if len(result.Phases) != 1 || result.Phases[0].Status != "FAILED" {
		t.Errorf("expected single failed preflight phase, got %+v", result.Phases)
	}
}

func TestRunFailsOnLayoutCollision(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "logs"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	o := newTestOrchestrator(t, cfg, false)

	result, err := o.Run(context.Background(), root)
	if err == nil {
		t.Fatal("expected layout failure")
	}
	if result.Status != "FAILED" {
		t.Errorf("status = %s", result.Status)
	}

	// The failed run must not write the device file.
	if _, err := os.Stat(filepath.Join(root, "config", "device_config.txt")); !os.IsNotExist(err) {
		t.Error("device file written despite layout failure")
	}
}

func TestRunCreatesExtraDirs(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Layout.ExtraDirs = []string{"data/cache"}

	o := newTestOrchestrator(t, cfg, false)
	if _, err := o.Run(context.Background(), root); err != nil {
		t.Fatalf("Run: %v", err)
	}

	info, err := os.Stat(filepath.Join(root, "data", "cache"))
	if err != nil || !info.IsDir() {
		t.Error("extra directory not created")
	}
}
