// =============================================================================
// Schedule Extractor - Extract Command
// =============================================================================
//
// This file defines the 'extract' command, which runs the extraction
// pipeline over one filing or over every supported file in the input
// directory.
//
// COMMAND USAGE:
//   schedex extract [flags]
//
// FLAGS:
//   --file          : Extract a single filing instead of the input directory
//   --fallback      : Second representation of --file used to fill gaps
//   --profile       : Force a source profile instead of resolving per file
//   --period-end    : Reporting period end (YYYY-MM-DD)
//   --format        : Output format, csv, xlsx or xml
//   --extended      : Append the extension columns
//   --metrics-file  : Write a Prometheus textfile after the run
//   --dry-run       : Extract without writing record files
//
// PROCESSING PIPELINE:
//   1. Load the main configuration and the source profiles
//   2. Discover input files
//   3. Run the extraction batch
//   4. Print the summary
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/schedule-extractor/internal/adapter"
	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/export"
	"github.com/ginjaninja78/schedule-extractor/internal/normalize"
	"github.com/ginjaninja78/schedule-extractor/internal/runner"
	"github.com/ginjaninja78/schedule-extractor/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	filePath     string
	fallbackPath string
	profileName  string
	periodEnd    string
	outputFormat string
	extended     bool
	metricsFile  string
	dryRun       bool
)

// =============================================================================
// EXTRACT COMMAND DEFINITION
// =============================================================================

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract investment schedules from fund filings",
	Long: `The extract command reads fund filings, finds the schedule of investments
in each one and writes one record file per filing.

Each filing is matched to a source profile by file name and representation.
Filings are extracted concurrently and independently; a filing without a
schedule produces an empty record file and a warning instead of failing the
run.

Every run writes:
  - One record file per filing (CSV, XLSX or XML)
  - An issue log listing dropped rows and unparseable fields
  - A JSON run summary`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runExtract(ctx, cmd)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&filePath, "file", "", "Extract a single filing")
	extractCmd.Flags().StringVar(&fallbackPath, "fallback", "", "Fallback representation of --file")
	extractCmd.Flags().StringVar(&profileName, "profile", "", "Force a source profile by name")
	extractCmd.Flags().StringVar(&periodEnd, "period-end", "", "Reporting period end (YYYY-MM-DD)")
	extractCmd.Flags().StringVar(&outputFormat, "format", "", "Output format: csv, xlsx or xml (overrides config)")
	extractCmd.Flags().BoolVar(&extended, "extended", false, "Append the extension columns")
	extractCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write a Prometheus textfile to this path")
	extractCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Extract without writing record files")
}

// =============================================================================
// MAIN EXTRACTION FUNCTION
// =============================================================================

func runExtract(ctx context.Context, cmd *cobra.Command) error {
	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Println("=== Schedule Extractor ===")
	fmt.Println("Loading configuration...")

	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}
	applyLogLevel(mainConfig.LogLevel)

	if err := applyFlags(cmd, mainConfig); err != nil {
		return err
	}

	registry, err := loadRegistry(mainConfig)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d source profile(s)\n", len(registry.Names()))

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	files := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir)

	inputs, err := collectInputs(files)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		fmt.Println("No supported filings found in the input directory.")
		return nil
	}
	fmt.Printf("Found %d filing(s) to extract\n", len(inputs))

	// =========================================================================
	// STEP 3: RUN THE BATCH
	// =========================================================================

	fmt.Println("Extracting...")

	r := runner.New(mainConfig, registry, files, logger, runner.Options{
		Profile:   profileName,
		PeriodEnd: periodEnd,
		DryRun:    dryRun,
	})

	summary, err := r.Run(ctx, inputs)
	printSummary(summary)
	if err != nil {
		return err
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.MainConfig) error {
	if cmd.Flags().Changed("format") {
		switch outputFormat {
		case export.FormatCSV, export.FormatXLSX, export.FormatXML:
			cfg.OutputFormat = outputFormat
		default:
			return fmt.Errorf("unsupported output format %q", outputFormat)
		}
	}
	if cmd.Flags().Changed("extended") {
		cfg.ExtendedColumns = extended
	}
	if metricsFile != "" {
		cfg.MetricsFile = metricsFile
	}
	if periodEnd != "" {
		iso, err := normalize.NormalizeDate(periodEnd)
		if err != nil {
			return fmt.Errorf("invalid --period-end: %w", err)
		}
		periodEnd = iso
	}
	if fallbackPath != "" && filePath == "" {
		return fmt.Errorf("--fallback requires --file")
	}
	return nil
}

// loadRegistry builds the profile registry from the profiles directory.
// A missing directory leaves only the built-in profile.
func loadRegistry(cfg *config.MainConfig) (*config.Registry, error) {
	registry := config.NewRegistry()
	if cfg.ProfilesDir == "" {
		return registry, nil
	}
	if _, err := os.Stat(cfg.ProfilesDir); os.IsNotExist(err) {
		logger.Warn("profiles directory not found, using the built-in profile", zap.String("dir", cfg.ProfilesDir))
		return registry, nil
	}

	profiles, err := config.LoadProfiles(cfg.ProfilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	if err := registry.RegisterAll(profiles); err != nil {
		return nil, fmt.Errorf("failed to register profiles: %w", err)
	}
	return registry, nil
}

func collectInputs(files *utils.FileManager) ([]runner.Input, error) {
	if filePath != "" {
		if !utils.FileExists(filePath) {
			return nil, fmt.Errorf("file not found: %s", filePath)
		}
		return []runner.Input{{Path: filePath, Fallback: fallbackPath}}, nil
	}

	paths, err := files.DiscoverInputFiles(adapter.IsSupported)
	if err != nil {
		return nil, fmt.Errorf("failed to discover input files: %w", err)
	}

	inputs := make([]runner.Input, 0, len(paths))
	for _, p := range paths {
		inputs = append(inputs, runner.Input{Path: p})
	}
	return inputs, nil
}

func printSummary(summary utils.RunSummary) {
	for _, f := range summary.Files {
		out := f.OutputFile
		if out == "" {
			out = "(dry run)"
		}
		fmt.Printf("  ✓ %s -> %s (%d records)\n", filepath.Base(f.InputFile), out, f.Records)
	}
	for _, f := range summary.Failures {
		fmt.Printf("  ✗ %s: %s\n", filepath.Base(f.InputFile), f.ErrorMessage)
	}

	fmt.Println("\n=== Extraction Complete ===")
	fmt.Printf("Run:             %s\n", summary.RunID)
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("No schedule:     %d\n", summary.DegradedFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Records:         %d\n", summary.TotalRecords)
	fmt.Printf("Field errors:    %d\n", summary.FieldErrors)
	fmt.Printf("Time elapsed:    %s\n", summary.Duration())

	if summary.FailedFiles > 0 || summary.FieldErrors > 0 || summary.DegradedFiles > 0 {
		fmt.Println("\nIssues have been logged to the output directory.")
	}
}
