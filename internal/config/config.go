// =============================================================================
// Schedule Extractor - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the per-source
// extraction profiles.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Source Profiles (profiles/*.yaml): keyword sets, legal suffixes,
//      default column maps and industry vocabularies for one filing source
//
// ENVIRONMENT:
//   Every main config field can be overridden with a SCHEDEX_* variable,
//   e.g. SCHEDEX_OUTPUT_DIR=/tmp/out.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of the environment overrides.
const EnvPrefix = "SCHEDEX"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned for filings when no file is given.
	// Default: "./input"
	InputDir string `yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`

	// OutputDir is the directory where extracted schedules are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`

	// ProfilesDir contains the per-source extraction profiles.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir" envconfig:"PROFILES_DIR"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the output file names.
	// Placeholders:
	//   {run}       - The run UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {source}    - Input file base name without extension
	//   {profile}   - Source profile name
	// Default: "{source}_{run}"
	OutputNameFormat string `yaml:"output_name_format" envconfig:"OUTPUT_NAME_FORMAT"`

	// OutputFormat selects the writer: "csv", "xlsx" or "xml".
	// Default: "csv"
	OutputFormat string `yaml:"output_format" envconfig:"OUTPUT_FORMAT" validate:"oneof=csv xlsx xml"`

	// ExtendedColumns appends the source-dependent extension columns.
	ExtendedColumns bool `yaml:"extended_columns" envconfig:"EXTENDED_COLUMNS"`

	// MetricsFile, when set, receives a Prometheus textfile dump.
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of documents extracted at once.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" validate:"gte=1"`

	// ContinueOnError keeps processing other documents when one fails.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error" envconfig:"CONTINUE_ON_ERROR"`
}

// KeepGoing reports the effective ContinueOnError value.
func (c *MainConfig) KeepGoing() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file is
//     not an error; defaults and environment overrides still apply.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be parsed or the result is invalid.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// Fall through to defaults.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment overrides win over the file.
	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{source}_{run}"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "csv"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	if err := validate.Struct(config); err != nil {
		return err
	}
	return nil
}

// EnsureOutputDir creates the output directory if it does not exist.
func (c *MainConfig) EnsureOutputDir() error {
	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.OutputDir, err)
	}
	return nil
}

// =============================================================================
// PROFILE LOADING
// =============================================================================

// LoadProfiles loads every source profile in a directory.
//
// PARAMETERS:
//   - profilesDir: The directory containing *.yaml / *.yml profiles. A
//     missing directory yields an empty map.
//
// RETURNS:
//   - A map of profiles keyed by profile name.
//   - An error if any file cannot be parsed or is invalid.
func LoadProfiles(profilesDir string) (map[string]*SourceProfile, error) {
	profiles := make(map[string]*SourceProfile)

	if _, err := os.Stat(profilesDir); os.IsNotExist(err) {
		return profiles, nil
	}

	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		profile, err := LoadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		key := profile.Name
		if key == "" {
			key = filepath.Base(file)
		}
		profiles[key] = profile
	}

	return profiles, nil
}

// LoadProfile loads a single source profile file. Unset lists and
// thresholds are filled from DefaultProfile.
func LoadProfile(filePath string) (*SourceProfile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile SourceProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	ApplyProfileDefaults(&profile)

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	return &profile, nil
}

// validate is shared by every struct check in this package.
var validate = validator.New(validator.WithRequiredStructEnabled())
