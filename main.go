// =============================================================================
// Schedule Extractor - Main Entry Point
// =============================================================================
//
// USAGE:
//   schedex extract       - Extract schedules from the filings in the input directory
//   schedex validate      - Validate configuration and profiles without extracting
//   schedex version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Extraction engine, readers, writers and configuration
//   - pkg/           : Shared file and run-log utilities
//   - profiles/      : Source profile YAML files
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/schedule-extractor/cmd"
)

func main() {
	cmd.Execute()
}
