// =============================================================================
// Schedule Extractor - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// ('extract', 'validate', 'version') is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (schedex)
//   ├── extractCmd (schedex extract)
//   ├── validateCmd (schedex validate)
//   └── versionCmd (schedex version)
//
// The root command owns the global flags (--config, --verbose) and the
// process-wide zap logger.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// logger is built in PersistentPreRunE; commands use it after that.
var logger = zap.NewNop()

// logLevel is adjusted once the main config has been read.
var logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "schedex",
	Short: "Schedule Extractor - Pull investment schedules out of fund filings",
	Long: `Schedule Extractor reads periodic fund filings and extracts the schedule
of investments as one flat record per holding.

Key Features:
  - Dimensional (XBRL) and tabular (HTML, CSV, XLSX) filings
  - Source profiles for filer-specific vocabularies and layouts
  - Fallback reconciliation between two representations of a filing
  - Concurrent extraction with per-file diagnostics
  - CSV, XLSX or XML output with issue logs and run summaries

Example Usage:
  schedex extract                          # Extract every filing in the input directory
  schedex extract --file q2.htm            # Extract a single filing
  schedex extract --file q2.xml --fallback q2.htm
  schedex validate                         # Validate configuration without extracting`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger()
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// initLogger builds the process logger. Logs go to stderr so that the
// command output on stdout stays readable.
func initLogger() error {
	if verbose {
		logLevel.SetLevel(zapcore.DebugLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = logLevel
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	logger = l
	return nil
}

// applyLogLevel sets the configured level unless --verbose overrides it.
func applyLogLevel(level string) {
	if verbose || level == "" {
		return
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		logger.Warn("ignoring invalid log level", zap.String("level", level))
		return
	}
	logLevel.SetLevel(l)
}
