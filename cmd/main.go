// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docket-scan/internal/config"
	"docket-scan/internal/docket"
	"docket-scan/internal/engine"
	"docket-scan/internal/gate"
	"docket-scan/internal/help"
	"docket-scan/internal/ingest"
	"docket-scan/internal/mask"
	"docket-scan/internal/observability"
	"docket-scan/internal/overrides"
	"docket-scan/internal/parallel"
	"docket-scan/internal/paths"
	"docket-scan/internal/store"
	"docket-scan/internal/version"
	"docket-scan/internal/web"

	"docket-scan/internal/formatters"
	_ "docket-scan/internal/formatters/csv"
	_ "docket-scan/internal/formatters/json"
	_ "docket-scan/internal/formatters/markdown"
	_ "docket-scan/internal/formatters/text"
	_ "docket-scan/internal/formatters/yaml"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

// loadConfiguration loads the configuration file or returns default config
func loadConfiguration(configFile string) *config.Config {
	// If config file is not specified, try to find one in standard locations
	configPath := configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	// Load configuration (will use defaults if file not found)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
		cfg, _ = config.LoadConfig("") // Load default config
	}
	return cfg
}

// configFlags holds command line flag values
type configFlags struct {
	outputFormat       string
	outputFile         string
	confidenceLevels   string
	workers            int
	verbose            bool
	debug              bool
	noColor            bool
	recursive          bool
	gateMode           bool
	observabilityLevel string
	maskStrategy       string
	storePath          string
}

// finalConfiguration holds resolved configuration values
type finalConfiguration struct {
	format             string
	output             string
	confidenceLevels   string
	workers            int
	verbose            bool
	debug              bool
	noColor            bool
	recursive          bool
	gateMode           bool
	observability      bool
	observabilityLevel string
	maskStrategy       string
	storePath          string
}

// resolveConfiguration resolves final configuration values from config file, profile, and command line flags
func resolveConfiguration(cfg *config.Config, activeProfile *config.Profile, flags *configFlags) *finalConfiguration {
	final := &finalConfiguration{}

	// Format
	final.format = "text" // default fallback
	if cfg != nil && cfg.Defaults.Format != "" {
		final.format = cfg.Defaults.Format
	}
	if activeProfile != nil && activeProfile.Format != "" {
		final.format = activeProfile.Format
	}
	if isFlagSet("format") && flags.outputFormat != "" {
		final.format = flags.outputFormat
	}

	// Output file
	final.output = "" // default fallback: stdout
	if cfg != nil && cfg.Defaults.Output != "" {
		final.output = cfg.Defaults.Output
	}
	if activeProfile != nil && activeProfile.Output != "" {
		final.output = activeProfile.Output
	}
	if isFlagSet("output") {
		final.output = flags.outputFile
	}

	// Confidence levels
	final.confidenceLevels = "all" // default fallback
	if cfg != nil && cfg.Defaults.ConfidenceLevels != "" {
		final.confidenceLevels = cfg.Defaults.ConfidenceLevels
	}
	if activeProfile != nil && activeProfile.ConfidenceLevels != "" {
		final.confidenceLevels = activeProfile.ConfidenceLevels
	}
	if isFlagSet("confidence") && flags.confidenceLevels != "" {
		final.confidenceLevels = flags.confidenceLevels
	}

	// Workers
	final.workers = 0 // default fallback: one per CPU
	if cfg != nil && cfg.Defaults.Workers > 0 {
		final.workers = cfg.Defaults.Workers
	}
	if activeProfile != nil && activeProfile.Workers > 0 {
		final.workers = activeProfile.Workers
	}
	if isFlagSet("workers") {
		final.workers = flags.workers
	}

	// Verbose
	final.verbose = false // default fallback
	if isFlagSet("verbose") {
		final.verbose = flags.verbose
	}

	// Debug
	final.debug = false // default fallback
	if isFlagSet("debug") {
		final.debug = flags.debug
	}

	// No color
	final.noColor = false // default fallback
	if cfg != nil {
		final.noColor = cfg.Defaults.NoColor
	}
	if activeProfile != nil {
		final.noColor = activeProfile.NoColor
	}
	if isFlagSet("no-color") {
		final.noColor = flags.noColor
	}

	// Recursive
	final.recursive = false // default fallback
	if cfg != nil {
		final.recursive = cfg.Defaults.Recursive
	}
	if activeProfile != nil {
		final.recursive = activeProfile.Recursive
	}
	if isFlagSet("recursive") {
		final.recursive = flags.recursive
	}

	// Gate mode
	final.gateMode = false // default fallback
	if isFlagSet("gate") {
		final.gateMode = flags.gateMode
	}

	// Observability
	final.observability = false // default fallback
	if cfg != nil {
		final.observability = cfg.Defaults.Observability
	}
	if activeProfile != nil {
		final.observability = activeProfile.Observability
	}
	if isFlagSet("observability") {
		final.observability = flags.observabilityLevel != "" && flags.observabilityLevel != "off"
	}

	final.observabilityLevel = "metrics" // default fallback
	if cfg != nil && cfg.Defaults.ObservabilityLevel != "" {
		final.observabilityLevel = cfg.Defaults.ObservabilityLevel
	}
	if activeProfile != nil && activeProfile.ObservabilityLevel != "" {
		final.observabilityLevel = activeProfile.ObservabilityLevel
	}
	if isFlagSet("observability") && flags.observabilityLevel != "" {
		final.observabilityLevel = flags.observabilityLevel
	}

	// Mask strategy
	final.maskStrategy = "" // default fallback: no masking
	if cfg != nil && cfg.Defaults.Mask != "" {
		final.maskStrategy = cfg.Defaults.Mask
	}
	if activeProfile != nil && activeProfile.Mask != "" {
		final.maskStrategy = activeProfile.Mask
	}
	if isFlagSet("mask") {
		final.maskStrategy = flags.maskStrategy
	}

	// Archive store
	final.storePath = "" // default fallback: no archive
	if cfg != nil && cfg.Defaults.Store != "" {
		final.storePath = cfg.Defaults.Store
	}
	if activeProfile != nil && activeProfile.Store != "" {
		final.storePath = activeProfile.Store
	}
	if isFlagSet("store") {
		final.storePath = flags.storePath
	}

	return final
}

// handleProfiles lists profiles or resolves the active one
func handleProfiles(cfg *config.Config, listProfiles bool, profileName, configFile string, gateConfig *gate.GateConfig) *config.Profile {
	// List profiles if requested
	if listProfiles {
		if configFile == "" && config.FindConfigFile() == "" {
			fmt.Println("No configuration file found. Only the built-in 'gate' profile is available.")
			os.Exit(0)
		}

		profiles := cfg.ListProfiles()
		if len(profiles) == 0 {
			fmt.Println("No profiles defined in configuration file.")
		} else {
			fmt.Println("Available profiles:")
			for _, name := range profiles {
				profile := cfg.GetProfile(name)
				if profile != nil && profile.Description != "" {
					fmt.Printf("  - %s: %s\n", name, profile.Description)
				} else {
					fmt.Printf("  - %s\n", name)
				}
			}
		}
		os.Exit(0)
	}

	// Apply profile settings if specified
	var activeProfile *config.Profile
	if profileName != "" {
		if cfg == nil {
			printGateError(gateConfig,
				fmt.Sprintf("Cannot use profile '%s' - no configuration loaded", profileName),
				"Check that config file exists and is readable")
			os.Exit(1)
		}
		activeProfile = cfg.GetProfile(profileName)
		if activeProfile == nil {
			printGateError(gateConfig,
				fmt.Sprintf("Profile '%s' not found in config file", profileName),
				"Check available profiles with -list-profiles or verify config file")
			os.Exit(1)
		}
	}
	return activeProfile
}

// getBoolFlag safely gets the value of a boolean flag pointer, returning false if nil
func getBoolFlag(flag *bool) bool {
	if flag != nil {
		return *flag
	}
	return false
}

// getStringFlag safely gets the value of a string flag pointer, returning empty string if nil
func getStringFlag(flag *string) string {
	if flag != nil {
		return *flag
	}
	return ""
}

// getIntFlag safely gets the value of an int flag pointer, returning zero if nil
func getIntFlag(flag *int) int {
	if flag != nil {
		return *flag
	}
	return 0
}

// setBoolFlag safely sets the value of a boolean flag pointer if it's not nil
func setBoolFlag(flag *bool, value bool) {
	if flag != nil {
		*flag = value
	}
}

// shouldSuppressProgressOutput determines if progress output should be suppressed
func shouldSuppressProgressOutput(finalConfig *finalConfiguration, quiet bool, gateConfig *gate.GateConfig, isInteractive bool) bool {
	suppress := finalConfig.debug || quiet || !isInteractive
	if gateConfig != nil && gateConfig.QuietMode {
		suppress = true
	}
	return suppress
}

// extractedFlags holds safely extracted flag values to avoid repeated nil checks
type extractedFlags struct {
	inputFile          string
	configFile         string
	profileName        string
	listProfiles       bool
	outputFormat       string
	outputFile         string
	confidenceLevels   string
	workers            int
	verbose            bool
	debug              bool
	quiet              bool
	noColor            bool
	recursive          bool
	gateMode           bool
	serveAddr          string
	rulesVersion       string
	observabilityLevel string
	maskStrategy       string
	storePath          string
	overridesFile      string
}

// flagPointers groups all flag pointers for easier management
type flagPointers struct {
	// Boolean flags
	quiet        *bool
	debug        *bool
	noColor      *bool
	verbose      *bool
	recursive    *bool
	gateMode     *bool
	listProfiles *bool

	// String flags
	inputFile          *string
	configFile         *string
	profileName        *string
	outputFormat       *string
	outputFile         *string
	confidenceLevels   *string
	serveAddr          *string
	rulesVersion       *string
	observabilityLevel *string
	maskStrategy       *string
	storePath          *string
	overridesFile      *string

	// Int flags
	workers *int
}

// extractAllFlags safely extracts all flag values once to avoid repeated nil checks
func extractAllFlags(flags flagPointers) extractedFlags {
	return extractedFlags{
		inputFile:          getStringFlag(flags.inputFile),
		configFile:         getStringFlag(flags.configFile),
		profileName:        getStringFlag(flags.profileName),
		listProfiles:       getBoolFlag(flags.listProfiles),
		outputFormat:       getStringFlag(flags.outputFormat),
		outputFile:         getStringFlag(flags.outputFile),
		confidenceLevels:   getStringFlag(flags.confidenceLevels),
		workers:            getIntFlag(flags.workers),
		verbose:            getBoolFlag(flags.verbose),
		debug:              getBoolFlag(flags.debug),
		quiet:              getBoolFlag(flags.quiet),
		noColor:            getBoolFlag(flags.noColor),
		recursive:          getBoolFlag(flags.recursive),
		gateMode:           getBoolFlag(flags.gateMode),
		serveAddr:          getStringFlag(flags.serveAddr),
		rulesVersion:       getStringFlag(flags.rulesVersion),
		observabilityLevel: getStringFlag(flags.observabilityLevel),
		maskStrategy:       getStringFlag(flags.maskStrategy),
		storePath:          getStringFlag(flags.storePath),
		overridesFile:      getStringFlag(flags.overridesFile),
	}
}

func main() {
	// Parse command line flags
	inputFile := flag.String("input", "", "Path to the input file, directory, glob pattern, or s3:// URI")
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	profileName := flag.String("profile", "", "Profile name to use from config file")
	listProfiles := flag.Bool("list-profiles", false, "List available profiles in config file")
	outputFormat := flag.String("format", "", "Output format: text, json, csv, yaml, markdown (default: text)")
	confidenceLevels := flag.String("confidence", "", "Confidence levels to display: high, medium, low, or combinations like 'high,medium'")
	verbose := flag.Bool("verbose", false, "Display per-record detail for each chain")
	debug := flag.Bool("debug", false, "Enable debug logging of ingest routing, grouping, and resolution flow")
	outputFile := flag.String("output", "", "Path to output file (if not specified, output to stdout)")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	showHelp := flag.Bool("help", false, "Show help information")
	helpTopics := flag.Bool("help-topics", false, "List detailed help topics")
	helpTopic := flag.String("help-topic", "", "Show detailed help for a topic (formats, rules, overrides, masking, s3, gate)")
	showVersion := flag.Bool("version", false, "Show version information")
	recursive := flag.Bool("recursive", false, "Recursively expand directory inputs")
	quiet := flag.Bool("quiet", false, "Suppress progress output (useful for scripts and CI/CD)")
	workers := flag.Int("workers", 0, "Worker pool size for ingest and inference (0 = one per CPU, capped at 8)")
	rulesVersion := flag.String("rules-version", "", "Rules version label recorded in the run output")
	observabilityLevel := flag.String("observability", "", "Observability level: off, metrics, debug")
	storePath := flag.String("store", "", "SQLite archive to save the run into")
	maskStrategy := flag.String("mask", "", "Mask case numbers in output: simple, format-preserving, or synthetic")
	overridesFile := flag.String("overrides", "", "Path to linkage overrides file (default: <config-dir>/docket-overrides.yaml)")
	gateMode := flag.Bool("gate", false, "Quality pre-flight only: ingest and validate the batch, exit 2 on a bad batch")
	serveAddr := flag.String("serve", "", "Start the results viewer on this address (e.g. :8440) instead of printing")

	flag.Parse()

	// Extract all flag values once for consistency
	flags := extractAllFlags(flagPointers{
		// Boolean flags
		quiet:        quiet,
		debug:        debug,
		noColor:      noColor,
		verbose:      verbose,
		recursive:    recursive,
		gateMode:     gateMode,
		listProfiles: listProfiles,

		// String flags
		inputFile:          inputFile,
		configFile:         configFile,
		profileName:        profileName,
		outputFormat:       outputFormat,
		outputFile:         outputFile,
		confidenceLevels:   confidenceLevels,
		serveAddr:          serveAddr,
		rulesVersion:       rulesVersion,
		observabilityLevel: observabilityLevel,
		maskStrategy:       maskStrategy,
		storePath:          storePath,
		overridesFile:      overridesFile,

		// Int flags
		workers: workers,
	})

	// Load .env from the working directory when present. S3 credentials
	// for tribunal export buckets often live there instead of the shell
	// environment.
	if err := godotenv.Load(); err != nil && flags.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] no .env file loaded: %v\n", err)
	}

	// Handle viewer mode early - it has its own configuration path
	if isFlagSet("serve") {
		if err := runServeMode(flags); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		// The viewer runs until the process is killed
		return
	}

	// Auto-detect non-interactive environment
	isInteractive := isTerminal(os.Stderr)

	// Create debug observer early for configuration logging
	var mainDebugObs *observability.DebugObserver
	if flags.debug {
		mainDebugObs = observability.NewDebugObserver(os.Stderr)
		mainDebugObs.LogDetail("main", fmt.Sprintf("Command line arguments: %v", os.Args))
		if flags.inputFile != "" {
			mainDebugObs.LogDetail("main", fmt.Sprintf("Parsed -input flag: %s", flags.inputFile))
		}
	}

	// Load configuration
	cfg := loadConfiguration(flags.configFile)

	// Initialize the gate detector early to check for automatic profile selection
	gateDetector := gate.NewDetectorWithFlag(flags.gateMode)
	var gateConfig *gate.GateConfig
	if gateDetector.IsCIEnvironment() {
		gateConfig = gateDetector.GetOptimizedConfig()
	}

	// Use the gate profile automatically in CI when no explicit profile was given
	effectiveProfileName := flags.profileName
	if effectiveProfileName == "" && gateDetector.IsCIEnvironment() && cfg != nil && cfg.GetProfile("gate") != nil {
		effectiveProfileName = "gate"
	}

	// Handle profile operations
	activeProfile := handleProfiles(cfg, flags.listProfiles, effectiveProfileName, flags.configFile, gateConfig)

	// Resolve final configuration values using extracted flags
	finalConfig := resolveConfiguration(cfg, activeProfile, &configFlags{
		outputFormat:       flags.outputFormat,
		outputFile:         flags.outputFile,
		confidenceLevels:   flags.confidenceLevels,
		workers:            flags.workers,
		verbose:            flags.verbose,
		debug:              flags.debug,
		noColor:            flags.noColor,
		recursive:          flags.recursive,
		gateMode:           flags.gateMode,
		observabilityLevel: flags.observabilityLevel,
		maskStrategy:       flags.maskStrategy,
		storePath:          flags.storePath,
	})

	// Apply gate optimizations to the final config
	if gateConfig != nil {
		if gateConfig.QuietMode {
			setBoolFlag(quiet, true)
			flags.quiet = true
		}
		if gateConfig.NoColor {
			finalConfig.noColor = true
		}

		if mainDebugObs != nil {
			mainDebugObs.LogDetail("gate", "CI environment detected, applying gate optimizations")
			mainDebugObs.LogDetail("gate", fmt.Sprintf("Quiet mode: %v, No color: %v, Max malformed ratio: %.3f",
				gateConfig.QuietMode, gateConfig.NoColor, gateConfig.MaxMalformedRatio))
		}
	}

	// Auto-disable color when output is not an interactive terminal
	if !isInteractive || flags.quiet || os.Getenv("CI") != "" {
		finalConfig.noColor = true
	}

	// Check if DOCKET_DEBUG environment variable is set
	if os.Getenv("DOCKET_DEBUG") != "" {
		finalConfig.debug = true
	}

	// Handle version command
	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	// Handle help commands
	if *showHelp || *helpTopics || *helpTopic != "" {
		helpSystem := help.NewSystem(finalConfig.noColor)
		switch {
		case *helpTopic != "":
			if !helpSystem.ShowTopic(*helpTopic) {
				os.Exit(1)
			}
		case *helpTopics:
			helpSystem.ShowTopics()
		default:
			helpSystem.ShowGeneralHelp()
		}
		return
	}

	// Override the rules version label when requested
	if isFlagSet("rules-version") && flags.rulesVersion != "" {
		cfg.Rules.Version = flags.rulesVersion
	}

	// Validate the mask strategy before any work happens
	var caseMask func(string) string
	if finalConfig.maskStrategy != "" {
		strategy, ok := mask.ParseStrategy(finalConfig.maskStrategy)
		if !ok {
			printGateError(gateConfig,
				fmt.Sprintf("Unknown mask strategy '%s'", finalConfig.maskStrategy),
				"Use one of: simple, format-preserving, synthetic")
			os.Exit(1)
		}
		caseMask = mask.New(strategy).Mask
	}

	// Handle input arguments (files, directories, globs, S3 URIs)
	var rawInputs []string
	if flags.inputFile != "" {
		rawInputs = append(rawInputs, flags.inputFile)
	}

	// Add any additional arguments as input paths (for shell-expanded globs)
	args := flag.Args()
	if len(args) > 0 {
		if mainDebugObs != nil {
			mainDebugObs.LogDetail("main", fmt.Sprintf("Found %d additional arguments: %v", len(args), args))
		}
		rawInputs = append(rawInputs, args...)
	}

	if len(rawInputs) == 0 {
		printGateError(gateConfig,
			"Input file, directory, or S3 URI is required",
			"Specify a batch to reconcile with -input")
		os.Exit(1)
	}

	// Validate and sanitize local input paths. S3 URIs pass through
	// untouched; the expansion step resolves them.
	var inputPaths []string
	var skippedInputs int
	for _, inputPath := range rawInputs {
		if ingest.IsS3URI(inputPath) {
			inputPaths = append(inputPaths, inputPath)
			continue
		}
		if strings.Contains(inputPath, "..") {
			skippedInputs++
			// Path traversal attempts are skipped without a warning
			continue
		}
		cleanPath := filepath.Clean(inputPath)
		abs, err := filepath.Abs(cleanPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Invalid input path: %s\n", inputPath)
			continue
		}
		inputPaths = append(inputPaths, abs)
	}

	if len(inputPaths) == 0 {
		printGateError(gateConfig,
			"No usable input paths remain after validation",
			"Use absolute paths or paths without '..' components")
		os.Exit(1)
	}

	// Build the observer shared by ingest and reconciliation
	var observer *observability.StandardObserver
	if mainDebugObs != nil || finalConfig.debug {
		if mainDebugObs == nil {
			mainDebugObs = observability.NewDebugObserver(os.Stderr)
		}
		observer = mainDebugObs.StandardObserver
		observer.DebugObserver = mainDebugObs
	} else if finalConfig.observability {
		observer = observability.NewStandardObserver(parseObservabilityLevel(finalConfig.observabilityLevel), os.Stderr)
	} else {
		observer = observability.NewStandardObserver(observability.ObservabilityMetrics, os.Stderr)
	}

	ctx := context.Background()

	// Set up the reader manager, with an S3 source when any input needs one
	readers, err := setupIngestManager(ctx, cfg, inputPaths, observer)
	if err != nil {
		printGateError(gateConfig,
			fmt.Sprintf("Ingest setup failed: %v", err),
			"Check AWS credentials and the ingest.s3_region config setting")
		os.Exit(2)
	}

	// Expand inputs into the concrete batch: globs expand, directories
	// walk, S3 prefixes list
	batchPaths, err := readers.Expand(ctx, inputPaths, finalConfig.recursive, cfg.Ingest.MaxParallel)
	if err != nil {
		printGateError(gateConfig,
			fmt.Sprintf("Input expansion failed: %v", err),
			"Verify the paths exist and contain supported batch files")
		os.Exit(2)
	}

	if mainDebugObs != nil {
		mainDebugObs.LogDetail("main", fmt.Sprintf("Expanded %d inputs into %d batch files", len(inputPaths), len(batchPaths)))
		for i, p := range batchPaths {
			mainDebugObs.LogDetail("main", fmt.Sprintf("  %d: %s", i+1, p))
		}
	}

	if len(batchPaths) == 0 {
		if skippedInputs > 0 {
			printGateError(gateConfig,
				fmt.Sprintf("No batch files to process - %d inputs were skipped", skippedInputs),
				"Check file types and path spelling")
		} else {
			printGateError(gateConfig,
				"No batch files found to process",
				"Verify the path exists and contains registry exports, CSV, docket HTML, or gazette PDF files")
		}
		os.Exit(2)
	}

	if !shouldSuppressProgressOutput(finalConfig, flags.quiet, gateConfig, isInteractive) {
		fmt.Fprintf(os.Stderr, "Reading %d batch files...\n", len(batchPaths))
		if skippedInputs > 0 {
			fmt.Fprintf(os.Stderr, "Filtered out %d inputs\n", skippedInputs)
		}
	}

	// Progress bar function with ETA
	progressStart := time.Now()
	updateProgress := func(current, total int) {
		if shouldSuppressProgressOutput(finalConfig, flags.quiet, gateConfig, isInteractive) {
			return
		}
		percent := float64(current) / float64(total) * 100
		barWidth := 40
		filledWidth := int(float64(barWidth) * float64(current) / float64(total))
		bar := strings.Repeat("█", filledWidth) + strings.Repeat("░", barWidth-filledWidth)

		// Calculate ETA
		var etaStr string
		if current > 0 {
			elapsed := time.Since(progressStart)
			avgTime := elapsed / time.Duration(current)
			remaining := time.Duration(total-current) * avgTime
			etaStr = fmt.Sprintf(" ETA: %s", remaining.Round(time.Second))
		}

		fmt.Fprintf(os.Stderr, "\r[%s] %d/%d files (%.1f%%)%s", bar, current, total, percent, etaStr)
		if current == total {
			fmt.Fprintf(os.Stderr, "\n")
		}
	}

	// Read all batch files through the worker pool
	processor := newProcessor(finalConfig.workers, readers, observer)

	var progressCallback parallel.ProgressCallback
	if !shouldSuppressProgressOutput(finalConfig, flags.quiet, gateConfig, isInteractive) {
		updateProgress(0, len(batchPaths))
		progressCallback = func(completed, total int, currentPath string) {
			updateProgress(completed, total)
		}
	}

	records, stats, err := processor.ProcessPaths(batchPaths, &parallel.JobConfig{Debug: finalConfig.debug}, progressCallback)
	if err != nil {
		printGateError(gateConfig,
			fmt.Sprintf("Batch ingest failed: %v", err),
			"Check the batch files for corruption and retry")
		os.Exit(2)
	}

	if finalConfig.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Parallel ingest: %d inputs, %d records, %d workers, %dms\n",
			stats.ProcessedInputs, stats.TotalRecords, stats.WorkerCount, stats.TotalDuration.Milliseconds())
	}

	hasIngestErrors := stats.FailedInputs > 0
	if hasIngestErrors && !shouldSuppressProgressOutput(finalConfig, flags.quiet, gateConfig, isInteractive) {
		fmt.Fprintf(os.Stderr, "Warning: %d of %d inputs failed to read\n", stats.FailedInputs, stats.TotalInputs)
	}

	// Gate mode stops after ingest health is known
	if finalConfig.gateMode {
		maxRatio := cfg.Gate.MaxMalformedRatio
		if os.Getenv("DOCKET_GATE_MAX_RATIO") != "" {
			maxRatio = gateDetector.GetOptimizedConfig().MaxMalformedRatio
		}
		report := gate.Evaluate(records, maxRatio)
		fmt.Print(report.Summary())
		os.Exit(gate.GetExitCode(report, hasIngestErrors))
	}

	// Manual override rules applied during grouping
	overridesPath := paths.GetOverridesFile()
	if cfg.Defaults.OverridesFile != "" {
		overridesPath = cfg.Defaults.OverridesFile
	}
	if isFlagSet("overrides") && flags.overridesFile != "" {
		overridesPath = flags.overridesFile
	}
	overrideManager := overrides.NewManager(overridesPath)

	if mainDebugObs != nil {
		mainDebugObs.LogDetail("main", fmt.Sprintf("Override rules loaded from %s: %d active", overridesPath, len(overrideManager.Active())))
	}

	// Reconcile the batch
	run, err := engine.Reconcile(engine.ReconcileConfig{
		Records:   records,
		Debug:     finalConfig.debug,
		Workers:   finalConfig.workers,
		Config:    cfg,
		Overrides: overrideManager,
		Observer:  observer,
	})
	if err != nil {
		printGateError(gateConfig,
			fmt.Sprintf("Reconciliation failed: %v", err),
			"Run with -debug to see the grouping and resolution flow")
		os.Exit(1)
	}

	elapsed := time.Since(progressStart)
	if !shouldSuppressProgressOutput(finalConfig, flags.quiet, gateConfig, isInteractive) {
		fmt.Fprintf(os.Stderr, "Reconciliation complete: %d records into %d chains, %d residuals in %s\n",
			run.Stats.TotalRecords, run.Stats.Chains, run.Stats.Residuals, elapsed.Round(time.Millisecond))
	}

	// Archive the run when a store is configured
	if finalConfig.storePath != "" {
		archive, err := store.Open(finalConfig.storePath)
		if err != nil {
			printGateError(gateConfig,
				fmt.Sprintf("Cannot open archive at %s: %v", finalConfig.storePath, err),
				"Check directory permissions and available disk space")
			os.Exit(1)
		}
		if err := archive.SaveRun(ctx, run); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to archive run %s: %v\n", run.ID, err)
		} else if !flags.quiet {
			fmt.Fprintf(os.Stderr, "Run %s archived to %s\n", run.ID, finalConfig.storePath)
		}
		archive.Close()
	}

	// Get the appropriate formatter with error handling
	formatter, exists := formatters.Get(finalConfig.format)
	if !exists {
		availableFormats := formatters.List()
		printGateError(gateConfig,
			fmt.Sprintf("Unsupported output format '%s'", finalConfig.format),
			fmt.Sprintf("Use one of: %s", strings.Join(availableFormats, ", ")))
		os.Exit(1)
	}

	formatterOptions := formatters.FormatterOptions{
		Confidence: parseConfidenceLevels(finalConfig.confidenceLevels),
		Verbose:    finalConfig.verbose,
		NoColor:    finalConfig.noColor,
		Mask:       caseMask,
	}

	result, err := formatter.Format(run, formatterOptions)
	if err != nil {
		printGateError(gateConfig,
			fmt.Sprintf("Error formatting results: %v", err),
			"Check output format and file permissions")
		os.Exit(1)
	}

	// Output results
	if finalConfig.output != "" {
		// Validate and sanitize output file path
		cleanOutputPath := filepath.Clean(finalConfig.output)
		abs, err := filepath.Abs(cleanOutputPath)
		if err != nil {
			printGateError(gateConfig,
				fmt.Sprintf("Invalid output file path: %s", finalConfig.output),
				"Check that the path is valid and accessible")
			os.Exit(1)
		}
		// Check for path traversal attempts
		if strings.Contains(finalConfig.output, "..") || strings.Contains(cleanOutputPath, "..") {
			printGateError(gateConfig,
				fmt.Sprintf("Path traversal not allowed in output path: %s", finalConfig.output),
				"Use absolute paths or paths without '..' components")
			os.Exit(1)
		}
		cleanOutputPath = abs
		// Ensure output directory exists with secure permissions (owner only)
		outputDir := filepath.Dir(cleanOutputPath)
		if err := os.MkdirAll(outputDir, 0700); err != nil {
			printGateError(gateConfig,
				fmt.Sprintf("Error creating output directory: %v", err),
				"Check directory permissions and available disk space")
			os.Exit(1)
		}
		// Restrictive permissions; runs carry party-identifiable case numbers
		err = os.WriteFile(cleanOutputPath, []byte(result), 0600)
		if err != nil {
			printGateError(gateConfig,
				fmt.Sprintf("Error writing to output file: %v", err),
				"Check file permissions and available disk space")
			os.Exit(1)
		}
	} else {
		fmt.Println(result)
	}

	if hasIngestErrors {
		os.Exit(2)
	}
	os.Exit(0)
}

// runServeMode starts the results viewer. The viewer serves the sqlite
// archive when one is configured; with -input it reconciles that batch
// first and seeds the viewer with the fresh run.
func runServeMode(flags extractedFlags) error {
	if isFlagSet("format") || isFlagSet("output") {
		return fmt.Errorf("-serve cannot be used with -format or -output\n" +
			"The viewer exposes every format through its export links")
	}
	if flags.gateMode {
		return fmt.Errorf("-serve cannot be used with -gate\n" +
			"Gate mode is a batch pre-flight; run it without -serve")
	}
	if isFlagSet("mask") {
		return fmt.Errorf("-serve cannot be used with -mask\n" +
			"The viewer serves unmasked runs; mask on export instead")
	}

	cfg := config.LoadConfigOrDefault(flags.configFile)

	if isFlagSet("rules-version") && flags.rulesVersion != "" {
		cfg.Rules.Version = flags.rulesVersion
	}

	storePath := cfg.Defaults.Store
	if isFlagSet("store") && flags.storePath != "" {
		storePath = flags.storePath
	}
	var archive *store.Store
	if storePath != "" {
		opened, err := store.Open(storePath)
		if err != nil {
			return fmt.Errorf("cannot open archive at %s: %w", storePath, err)
		}
		archive = opened
	}

	overridesPath := paths.GetOverridesFile()
	if cfg.Defaults.OverridesFile != "" {
		overridesPath = cfg.Defaults.OverridesFile
	}
	if isFlagSet("overrides") && flags.overridesFile != "" {
		overridesPath = flags.overridesFile
	}
	overrideManager := overrides.NewManager(overridesPath)

	workerCount := cfg.Defaults.Workers
	if isFlagSet("workers") {
		workerCount = flags.workers
	}

	// Reconcile the named batch before serving, so the viewer opens on it
	var initialRun *docket.Run
	if flags.inputFile != "" {
		run, err := reconcileForViewer(cfg, flags, overrideManager, workerCount)
		if err != nil {
			return err
		}
		if archive != nil {
			if err := archive.SaveRun(context.Background(), run); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to archive run %s: %v\n", run.ID, err)
			}
		}
		initialRun = run
	}

	server := web.NewServer(web.Options{
		Addr:       flags.serveAddr,
		InitialRun: initialRun,
		Archive:    archive,
		Config:     cfg,
		Overrides:  overrideManager,
		Workers:    workerCount,
		Debug:      flags.debug,
	})
	return server.Start()
}

// reconcileForViewer runs the ingest and reconcile pipeline without
// progress output, returning the run the viewer starts on.
func reconcileForViewer(cfg *config.Config, flags extractedFlags, overrideManager *overrides.Manager, workerCount int) (*docket.Run, error) {
	ctx := context.Background()
	observer := observability.NewStandardObserver(observability.ObservabilityMetrics, os.Stderr)

	inputs := []string{flags.inputFile}
	readers, err := setupIngestManager(ctx, cfg, inputs, observer)
	if err != nil {
		return nil, fmt.Errorf("ingest setup failed: %w", err)
	}
	batchPaths, err := readers.Expand(ctx, inputs, flags.recursive, cfg.Ingest.MaxParallel)
	if err != nil {
		return nil, fmt.Errorf("input expansion failed: %w", err)
	}
	processor := newProcessor(workerCount, readers, observer)
	records, _, err := processor.ProcessPaths(batchPaths, &parallel.JobConfig{Debug: flags.debug}, nil)
	if err != nil {
		return nil, fmt.Errorf("batch ingest failed: %w", err)
	}
	run, err := engine.Reconcile(engine.ReconcileConfig{
		Records:   records,
		Debug:     flags.debug,
		Workers:   workerCount,
		Config:    cfg,
		Overrides: overrideManager,
		Observer:  observer,
	})
	if err != nil {
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}
	return run, nil
}

// setupIngestManager builds the reader manager for a set of inputs. An
// S3 source is attached only when an input actually names one, so local
// runs never touch the AWS credential chain.
func setupIngestManager(ctx context.Context, cfg *config.Config, inputs []string, observer *observability.StandardObserver) (*ingest.Manager, error) {
	manager := ingest.NewDefaultManager()
	manager.SetObserver(observer)

	needS3 := false
	for _, input := range inputs {
		if ingest.IsS3URI(input) {
			needS3 = true
			break
		}
	}
	if !needS3 {
		return manager, nil
	}

	region := cfg.Ingest.S3Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	source, err := ingest.NewS3Source(ctx, ingest.S3Config{
		Region:    region,
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		TempDir:   config.GetEffectiveTempDir(cfg),
	})
	if err != nil {
		return nil, err
	}
	source.SetObserver(observer)
	manager.SetS3Source(source)
	return manager, nil
}

// newProcessor builds the batch reader pool. Zero workers means the
// pool's own default of one per CPU, capped at 8.
func newProcessor(workers int, source parallel.RecordSource, observer *observability.StandardObserver) *parallel.ParallelProcessor {
	if workers > 0 {
		return parallel.NewParallelProcessorWithWorkers(workers, source, observer)
	}
	return parallel.NewParallelProcessor(source, observer)
}

// parseConfidenceLevels converts the comma-separated -confidence value
// into the lowercase level set the formatters filter on. "all" or an
// empty value selects every level.
func parseConfidenceLevels(levels string) map[string]bool {
	trimmed := strings.ToLower(strings.TrimSpace(levels))
	if trimmed == "" || trimmed == "all" {
		return nil
	}
	selected := make(map[string]bool)
	for _, level := range strings.Split(trimmed, ",") {
		switch strings.TrimSpace(level) {
		case "high":
			selected["high"] = true
		case "medium":
			selected["medium"] = true
		case "low":
			selected["low"] = true
		}
	}
	if len(selected) == 0 {
		return nil
	}
	return selected
}

// parseObservabilityLevel maps the -observability flag value to a level
func parseObservabilityLevel(name string) observability.ObservabilityLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "off":
		return observability.ObservabilityOff
	case "debug":
		return observability.ObservabilityDebug
	default:
		return observability.ObservabilityMetrics
	}
}

// printGateError prints error messages optimized for pipeline workflows
func printGateError(gateConfig *gate.GateConfig, errorMsg string, resolutionGuidance ...string) {
	if gateConfig != nil && gateConfig.QuietMode {
		// In pipeline mode, provide concise, actionable error messages
		fmt.Fprintf(os.Stderr, "docket-scan: %s\n", errorMsg)

		if len(resolutionGuidance) > 0 {
			fmt.Fprintf(os.Stderr, "Resolution: %s\n", resolutionGuidance[0])
		}

		fmt.Fprintf(os.Stderr, "Pipeline pre-flight failed. Fix the issue above and retry.\n")
	} else {
		// In normal mode, provide detailed error messages
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMsg)

		for _, guidance := range resolutionGuidance {
			fmt.Fprintf(os.Stderr, "%s\n", guidance)
		}
	}
}

// isFlagSet checks whether a flag was explicitly set on the command line
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isTerminal reports whether the file is attached to a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
