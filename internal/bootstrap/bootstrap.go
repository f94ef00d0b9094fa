// Package bootstrap orchestrates a full workspace initialization run:
// preflight, directory tree, accelerator probe, device file.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"mlsetup/internal/accel"
	"mlsetup/internal/config"
	"mlsetup/internal/layout"
	"mlsetup/internal/logging"
	"mlsetup/internal/preflight"
)

// Phase names, in execution order.
const (
	PhasePreflight  = "preflight"
	PhaseLayout     = "layout"
	PhaseProbe      = "probe"
	PhaseDeviceFile = "device_file"
)

// PhaseResult records one phase of the run.
type PhaseResult struct {
	Phase    string        `json:"phase"`
	Status   string        `json:"status"` // COMPLETED, FAILED, SKIPPED
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// RunResult is the outcome of a full bootstrap run.
type RunResult struct {
	Root        string          `json:"root"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Phases      []PhaseResult   `json:"phases"`
	Directories []layout.Result `json:"directories"`
	Device      accel.Device    `json:"device"`
	Status      string          `json:"status"` // COMPLETED, FAILED
}

// Orchestrator runs the bootstrap phases in order.
type Orchestrator struct {
	cfg    *config.Config
	logger *logging.Logger
	prober *accel.Prober
	dryRun bool
}

func NewOrchestrator(cfg *config.Config, logger *logging.Logger, dryRun bool) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		logger: logger,
		prober: accel.NewProber(),
		dryRun: dryRun,
	}
}

// SetProber overrides the accelerator prober, for tests.
func (o *Orchestrator) SetProber(p *accel.Prober) {
	o.prober = p
}

// Run executes the bootstrap against the given workspace root. Filesystem
// errors are fatal and end the run; probing cannot fail, it degrades to the
// CPU class.
func (o *Orchestrator) Run(ctx context.Context, root string) (*RunResult, error) {
	result := &RunResult{
		Root:      root,
		StartTime: time.Now(),
		Status:    "COMPLETED",
	}

	o.logger.Log("INFO", "Starting workspace initialization", "root", root, "dry_run", o.dryRun)

	// Phase 1: preflight
	if err := o.runPhase(result, PhasePreflight, func() error {
		return preflight.Checks(root)
	}); err != nil {
		return o.fail(result, err)
	}

	// Phase 2: directory tree
	if err := o.runPhase(result, PhaseLayout, func() error {
		dirs, err := layout.StructureFor(o.cfg.Layout.Profile)
		if err != nil {
			return err
		}
		for _, extra := range o.cfg.Layout.ExtraDirs {
			dirs = append(dirs, layout.Dir{Path: extra, Category: layout.CategoryWorkspace})
		}

		initializer := layout.NewInitializer(root, o.cfg.Layout.MarkerName, o.logger, o.dryRun)
		results, err := initializer.Initialize(ctx, dirs)
		result.Directories = results
		return err
	}); err != nil {
		return o.fail(result, err)
	}

	// Phase 3: accelerator probe
	if !o.cfg.Probe.Enabled {
		o.skipPhase(result, PhaseProbe)
		o.skipPhase(result, PhaseDeviceFile)
		result.EndTime = time.Now()
		return result, nil
	}

	if err := o.runPhase(result, PhaseProbe, func() error {
		device, err := o.probe()
		if err != nil {
			return err
		}
		result.Device = device

		switch device.Class {
		case accel.ClassCUDA:
			o.logger.Log("INFO", "[CUDA] Detected", "name", device.Name, "vram_gb", fmt.Sprintf("%.2f", float64(device.MemoryBytes)/1e9))
		case accel.ClassMPS:
			o.logger.Log("INFO", "[MPS] Apple Metal Performance Shaders detected")
		default:
			o.logger.Log("WARN", "No hardware acceleration detected, training will be slow on CPU")
		}
		return nil
	}); err != nil {
		return o.fail(result, err)
	}

	// Phase 4: persist the accelerator class
	if o.dryRun {
		o.logger.Log("INFO", "[DRY RUN] Would write device file", "class", string(result.Device.Class))
		o.skipPhase(result, PhaseDeviceFile)
		result.EndTime = time.Now()
		return result, nil
	}

	if err := o.runPhase(result, PhaseDeviceFile, func() error {
		path := filepath.Join(root, o.cfg.Probe.DeviceFile)
		if err := accel.WriteDeviceFile(path, result.Device.Class); err != nil {
			return err
		}
		o.logger.Log("INFO", "Device file written", "path", path, "class", string(result.Device.Class))
		return nil
	}); err != nil {
		return o.fail(result, err)
	}

	result.EndTime = time.Now()
	return result, nil
}

// probe resolves the device: a forced class from the config wins, otherwise
// the configured probe order runs.
func (o *Orchestrator) probe() (accel.Device, error) {
	if o.cfg.Probe.ForceClass != "" {
		class, err := accel.ParseClass(o.cfg.Probe.ForceClass)
		if err != nil {
			return accel.Device{}, err
		}
		o.logger.Log("INFO", "Accelerator class forced by configuration", "class", string(class))
		return accel.Device{Class: class}, nil
	}

	order, err := accel.ParseOrder(o.cfg.Probe.Order)
	if err != nil {
		return accel.Device{}, err
	}
	return o.prober.ProbeOrder(order), nil
}

func (o *Orchestrator) runPhase(result *RunResult, phase string, fn func() error) error {
	start := time.Now()
	err := fn()

	pr := PhaseResult{
		Phase:    phase,
		Status:   "COMPLETED",
		Duration: time.Since(start),
	}
	if err != nil {
		pr.Status = "FAILED"
		pr.Error = err.Error()
	}
	result.Phases = append(result.Phases, pr)

	return err
}

func (o *Orchestrator) skipPhase(result *RunResult, phase string) {
	result.Phases = append(result.Phases, PhaseResult{Phase: phase, Status: "SKIPPED"})
}

func (o *Orchestrator) fail(result *RunResult, err error) (*RunResult, error) {
	result.Status = "FAILED"
	result.EndTime = time.Now()
	o.logger.Log("ERROR", "Workspace initialization failed", "error", err.Error())
	return result, err
}
