// =============================================================================
// Schedule Extractor - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   schedex validate
//
// Loads the main configuration and every source profile, reports what was
// found and exits non-zero if anything is invalid. No filing is read.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/engine"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and source profiles",
	Long: `Validate loads config.yaml and every profile in the profiles directory,
checks them and builds an extraction engine for each profile so that invalid
patterns are reported before any filing is processed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate() error {
	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}
	applyLogLevel(mainConfig.LogLevel)

	fmt.Println("=== Configuration ===")
	fmt.Printf("Input directory:    %s\n", mainConfig.InputDir)
	fmt.Printf("Output directory:   %s\n", mainConfig.OutputDir)
	fmt.Printf("Profiles directory: %s\n", mainConfig.ProfilesDir)
	fmt.Printf("Output format:      %s\n", mainConfig.OutputFormat)
	fmt.Printf("Max concurrency:    %d\n", mainConfig.MaxConcurrency)

	if err := mainConfig.EnsureOutputDir(); err != nil {
		return err
	}

	registry, err := loadRegistry(mainConfig)
	if err != nil {
		return err
	}

	fmt.Println("\n=== Source Profiles ===")
	var failed int
	for _, name := range registry.Names() {
		profile, _ := registry.Lookup(name)
		if _, err := engine.New(profile, engine.WithLogger(logger)); err != nil {
			failed++
			fmt.Printf("  ✗ %s: %v\n", name, err)
			continue
		}
		fmt.Printf("  ✓ %s %v\n", name, profile.Capabilities)
	}

	if failed > 0 {
		return fmt.Errorf("%d profile(s) are invalid", failed)
	}
	fmt.Println("\nConfiguration is valid.")
	return nil
}
