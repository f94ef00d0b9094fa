package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mlsetup/internal/accel"
	"mlsetup/internal/bootstrap"
	"mlsetup/internal/cli"
	"mlsetup/internal/config"
	"mlsetup/internal/layout"
	"mlsetup/internal/logging"
	"mlsetup/internal/reporting"
	"mlsetup/internal/system"
)

const (
	Version = "1.0.2"
	AppName = "mlsetup"

	// Exit codes
	EXIT_SUCCESS = 0
	EXIT_ERROR   = 1
	EXIT_WARNING = 2
)

var (
	cfg        *config.Config
	dryRun     bool
	verbose    bool
	configPath string
	rootPath   string
	profile    string
)

var rootCmd = &cobra.Command{
	Use:     "mlsetup",
	Short:   "mlsetup - ML workspace bootstrap",
	Long:    "Bootstraps a machine-learning project workspace: directory tree, accelerator probe and device configuration",
	Version: Version,
	// Running with no arguments performs the full bootstrap.
	RunE: runInit,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the workspace (directories + accelerator probe)",
	RunE:  runInit,
}

var dirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "Create the workspace directory tree",
	RunE:  runDirs,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe for hardware acceleration",
	RunE:  runProbe,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show host environment information",
	RunE:  runInfo,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify an initialized workspace",
	RunE:  runVerify,
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run host self-diagnostics",
	RunE:  runDiagnose,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would be done without touching the filesystem")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&rootPath, "root", "r", "", "Workspace root (default: current working directory)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Layout profile (minimal/standard/research)")

	dirsCmd.Flags().Bool("list", false, "List the directory tree without creating it")
	dirsCmd.Flags().String("category", "", "Restrict to one directory category (data/source/models/workspace)")

	probeCmd.Flags().Bool("write", false, "Persist the detected class to the device file")
	probeCmd.Flags().Bool("json", false, "Print device info as JSON")

	verifyCmd.Flags().String("report", "", "Save a verification report to this file")
	verifyCmd.Flags().String("format", "json", "Report format (json/csv)")

	diagnoseCmd.Flags().Bool("quick", false, "Quick diagnostics")
	diagnoseCmd.Flags().Bool("full", false, "Full diagnostics")
	diagnoseCmd.Flags().String("test", "", "Run a single test (permissions/paths/diskspace/cpu/memory/accelerator)")
	diagnoseCmd.Flags().String("output", "", "Save the diagnostics report to this file")

	rootCmd.AddCommand(initCmd, dirsCmd, probeCmd, infoCmd, verifyCmd, diagnoseCmd)
}

// loadConfig loads the configuration and applies the profile flag.
func loadConfig() error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if profile != "" {
		if err := config.ApplyProfile(cfg, profile); err != nil {
			return fmt.Errorf("failed to apply profile %s: %w", profile, err)
		}
	}

	return nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context, logger *logging.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		if logger != nil {
			logger.Log("WARN", "Signal received, shutting down", "signal", sig.String())
		}
		fmt.Printf("\n[INFO] Received %s, cancelling...\n", sig.String())
		cancel()
	}()

	return ctx, cancel
}

func runInit(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	if err := loadConfig(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	root, err := cfg.WorkspaceRoot(rootPath)
	if err != nil {
		return err
	}

	logger.Log("INFO", "Starting project initialization", "version", Version, "root", root, "dry_run", dryRun)

	ctx, cancel := signalContext(context.Background(), logger)
	defer cancel()

	orchestrator := bootstrap.NewOrchestrator(cfg, logger, dryRun)
	result, err := orchestrator.Run(ctx, root)

	// Generate the run report even for failed runs.
	exitCode := EXIT_SUCCESS
	if err != nil {
		exitCode = EXIT_ERROR
	}
	if cfg.Reporting.Enabled && !dryRun {
		report := reporting.GenerateReport(Version, result.Directories, result.Device, cfg, root, dryRun, startTime, time.Now(), exitCode)
		if path, rerr := reporting.SaveReport(report, cfg); rerr != nil {
			logger.Log("WARN", "Failed to save run report", "error", rerr.Error())
		} else if path != "" {
			logger.Log("INFO", "Run report saved", "run_id", report.RunID, "file", path)
		}
	}

	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	fmt.Println("\nInitialization results:")
	fmt.Println("=======================")
	for _, phase := range result.Phases {
		status := "✓"
		if phase.Status == "SKIPPED" {
			status = "-"
		} else if phase.Status != "COMPLETED" {
			status = "✗"
		}
		fmt.Printf("%s %-12s %s (%v)\n", status, phase.Phase, phase.Status, phase.Duration.Round(time.Millisecond))
	}

	if result.Device.Class != "" {
		logger.Log("INFO", "Setup complete", "device", strings.ToUpper(string(result.Device.Class)), "root", root)
	} else {
		logger.Log("INFO", "Setup complete", "root", root)
	}

	return nil
}

func runDirs(cmd *cobra.Command, args []string) error {
	list, _ := cmd.Flags().GetBool("list")
	category, _ := cmd.Flags().GetString("category")

	if err := loadConfig(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	dirsCommand := cli.NewDirsCommand(logger)

	if list {
		return dirsCommand.ListDirectories(cfg.Layout.Profile)
	}

	root, err := cfg.WorkspaceRoot(rootPath)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(context.Background(), logger)
	defer cancel()

	if err := dirsCommand.Initialize(ctx, cfg, root, category, dryRun); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	return nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	write, _ := cmd.Flags().GetBool("write")
	asJSON, _ := cmd.Flags().GetBool("json")

	if err := loadConfig(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	order, err := accel.ParseOrder(cfg.Probe.Order)
	if err != nil {
		return err
	}

	device := accel.NewProber().ProbeOrder(order)

	if asJSON {
		data, err := json.MarshalIndent(device, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize device info: %w", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Printf("Selected device: %s\n", device)
		if device.Class == accel.ClassCPU {
			fmt.Println("No hardware acceleration detected. Training will be slow on CPU.")
		}
	}

	if write && !dryRun {
		root, err := cfg.WorkspaceRoot(rootPath)
		if err != nil {
			return err
		}
		path := filepath.Join(root, cfg.Probe.DeviceFile)
		if err := accel.WriteDeviceFile(path, device.Class); err != nil {
			return err
		}
		logger.Log("INFO", "Device file written", "path", path, "class", string(device.Class))
	}

	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	env := system.CollectEnvironmentInfo()
	device := accel.NewProber().Probe()

	fmt.Println("Host environment:")
	fmt.Println("=================")
	fmt.Printf("OS:          %s\n", env.OSVersion)
	fmt.Printf("Architecture: %s\n", env.Architecture)
	fmt.Printf("Hostname:    %s\n", env.Hostname)
	fmt.Printf("User:        %s\n", env.Username)
	fmt.Printf("CPU cores:   %d\n", env.CPUCount)
	fmt.Printf("Accelerator: %s\n", device)

	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	reportPath, _ := cmd.Flags().GetString("report")
	format, _ := cmd.Flags().GetString("format")

	if err := loadConfig(); err != nil {
		return err
	}

	root, err := cfg.WorkspaceRoot(rootPath)
	if err != nil {
		return err
	}

	dirs, err := layout.StructureFor(cfg.Layout.Profile)
	if err != nil {
		return err
	}
	for _, extra := range cfg.Layout.ExtraDirs {
		dirs = append(dirs, layout.Dir{Path: extra, Category: layout.CategoryWorkspace})
	}

	result, err := layout.Verify(root, cfg.Layout.MarkerName, dirs)
	if err != nil {
		return fmt.Errorf("verification error: %w", err)
	}

	deviceToken := ""
	deviceValid := false
	if cfg.Probe.Enabled {
		class, rerr := accel.ReadDeviceFile(filepath.Join(root, cfg.Probe.DeviceFile))
		if rerr == nil {
			deviceToken = string(class)
			deviceValid = true
		}
	} else {
		deviceValid = true
	}

	fmt.Println("Verification results:")
	fmt.Println("=====================")
	fmt.Printf("Root:               %s\n", root)
	fmt.Printf("Directories checked: %d\n", result.Checked)
	fmt.Printf("Missing directories: %d\n", len(result.MissingDirs))
	fmt.Printf("Missing markers:     %d\n", len(result.MissingMarkers))
	fmt.Printf("Path collisions:     %d\n", len(result.NotDirectories))
	if cfg.Probe.Enabled {
		fmt.Printf("Device token:        %s (valid: %t)\n", deviceToken, deviceValid)
	}

	for _, dir := range result.MissingDirs {
		fmt.Printf("  missing: %s\n", dir)
	}
	for _, dir := range result.MissingMarkers {
		fmt.Printf("  no marker: %s\n", dir)
	}
	for _, dir := range result.NotDirectories {
		fmt.Printf("  not a directory: %s\n", dir)
	}

	if reportPath != "" {
		metadata := reporting.VerificationMetadata{
			RunID:     reporting.GenerateRunID(),
			Timestamp: time.Now(),
			Operator:  os.Getenv("USER"),
		}
		report := reporting.GenerateVerificationReport(result, deviceToken, deviceValid, metadata)
		if err := reporting.SaveVerificationReport(report, format, reportPath); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Printf("\nReport saved: %s\n", reportPath)
	}

	if !result.OK() || !deviceValid {
		return fmt.Errorf("workspace verification failed")
	}

	fmt.Println("\nWorkspace is complete.")
	return nil
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	quick, _ := cmd.Flags().GetBool("quick")
	full, _ := cmd.Flags().GetBool("full")
	testName, _ := cmd.Flags().GetString("test")
	output, _ := cmd.Flags().GetString("output")

	if err := loadConfig(); err != nil {
		return err
	}

	var level system.DiagnosticLevel
	switch {
	case full:
		level = system.LevelFull
	case quick:
		level = system.LevelQuick
	default:
		level = system.LevelQuick
	}

	var test system.DiagnosticTest
	if testName != "" {
		switch testName {
		case "permissions":
			test = system.TestPermissions
		case "paths":
			test = system.TestPaths
		case "diskspace":
			test = system.TestDiskSpace
		case "cpu":
			test = system.TestCPU
		case "memory":
			test = system.TestMemory
		case "accelerator":
			test = system.TestAccelerator
		default:
			return fmt.Errorf("unknown test: %s", testName)
		}
	}

	root, err := cfg.WorkspaceRoot(rootPath)
	if err != nil {
		return err
	}

	fmt.Printf("Running host diagnostics (level: %s)\n", level)

	runner := system.NewDiagnosticsRunner(root, level, verbose, test)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	diagnostics, err := runner.RunDiagnostics(ctx)
	if err != nil {
		return fmt.Errorf("diagnostics failed: %w", err)
	}

	fmt.Println("\nDiagnostics results:")
	fmt.Println("====================")
	fmt.Printf("Level:    %s\n", diagnostics.Level)
	fmt.Printf("Overall:  %s\n", diagnostics.Overall)
	fmt.Printf("Duration: %v\n", diagnostics.Duration.Round(time.Millisecond))
	fmt.Printf("Tests:    %d (passed %d, warnings %d, failed %d)\n",
		diagnostics.Summary.TotalTests, diagnostics.Summary.Passed,
		diagnostics.Summary.Warnings, diagnostics.Summary.Failed)

	fmt.Println("\nEnvironment:")
	fmt.Println("------------")
	fmt.Printf("OS: %s, arch: %s, host: %s, CPU cores: %d\n",
		diagnostics.Environment.OSVersion, diagnostics.Environment.Architecture,
		diagnostics.Environment.Hostname, diagnostics.Environment.CPUCount)

	if len(diagnostics.Results) > 0 {
		fmt.Println("\nDetails:")
		fmt.Println("--------")
		for _, result := range diagnostics.Results {
			status := "✓"
			if result.Status == "FAIL" {
				status = "✗"
			} else if result.Status == "WARN" {
				status = "⚠"
			}
			fmt.Printf("%s %s - %s (%v)\n", status, result.Test, result.Message, result.Duration.Round(time.Millisecond))

			if verbose && result.Details != nil {
				fmt.Printf("   Details: %+v\n", result.Details)
			}
		}
	}

	if output != "" {
		if err := system.SaveDiagnostics(diagnostics, output); err != nil {
			return fmt.Errorf("failed to save diagnostics report: %w", err)
		}
		fmt.Printf("\nReport saved: %s\n", output)
	}

	if diagnostics.Overall == "CRITICAL" {
		return fmt.Errorf("critical problems detected")
	} else if diagnostics.Overall == "WARNING" {
		fmt.Println("\n⚠ Warnings detected. Review the results above.")
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if strings.Contains(err.Error(), "verification failed") {
			os.Exit(EXIT_WARNING)
		}
		os.Exit(EXIT_ERROR)
	}
	os.Exit(EXIT_SUCCESS)
}
