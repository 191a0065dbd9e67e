// =============================================================================
// Schedule Extractor - Run Orchestration
// =============================================================================
//
// This module runs one extraction batch end to end: it reads every input,
// picks a source profile per file, extracts all documents concurrently,
// and writes the record files, issue log, run summary and metrics.
//
// RUN PIPELINE:
//   1. Resolve a profile and read every input (and its fallback)
//   2. Extract all documents through engine.RunBatch
//   3. Write one record file per document
//   4. Record metrics and collect issues
//   5. Write the issue log, run summary and metrics textfile (and the XSD
//      of the record files when writing XML)
//
// FAILURE POLICY:
//   A file that cannot be read is reported in the summary and skipped
//   unless ContinueOnError is false. A document without a schedule still
//   produces an (empty) record file and a warning.
//
// =============================================================================

package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/schedule-extractor/internal/adapter"
	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/engine"
	"github.com/ginjaninja78/schedule-extractor/internal/export"
	"github.com/ginjaninja78/schedule-extractor/internal/metrics"
	"github.com/ginjaninja78/schedule-extractor/pkg/utils"
)

// =============================================================================
// INPUTS AND OPTIONS
// =============================================================================

// Input is one filing to extract. Fallback, when set, is another
// representation of the same filing used to fill missing fields.
type Input struct {
	Path     string
	Fallback string
}

// Options contains per-run settings that override the main config.
type Options struct {
	// Profile forces a profile by name. Empty resolves one per file.
	Profile string

	// PeriodEnd is the reporting period end (YYYY-MM-DD), if known.
	PeriodEnd string

	// DryRun extracts without writing record files.
	DryRun bool
}

// =============================================================================
// RUNNER STRUCTURE
// =============================================================================

// Runner executes extraction batches.
type Runner struct {
	cfg      *config.MainConfig
	registry *config.Registry
	files    *utils.FileManager
	recorder *metrics.Recorder
	logger   *zap.Logger
	options  Options

	mu      sync.Mutex
	engines map[string]*engine.Engine
}

// New creates a Runner.
//
// PARAMETERS:
//   - cfg: The main configuration.
//   - registry: The source profiles.
//   - files: Output naming and logs for this run.
//   - logger: nil disables logging.
//   - options: Per-run overrides.
func New(cfg *config.MainConfig, registry *config.Registry, files *utils.FileManager, logger *zap.Logger, options Options) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		registry: registry,
		files:    files,
		recorder: metrics.NewRecorder(),
		logger:   logger,
		options:  options,
		engines:  make(map[string]*engine.Engine),
	}
}

// Recorder returns the run's metrics recorder.
func (r *Runner) Recorder() *metrics.Recorder {
	return r.recorder
}

// =============================================================================
// MAIN RUN FUNCTION
// =============================================================================

// Run extracts every input and writes the run outputs.
//
// RETURNS:
//   - The run summary (also written to the output directory).
//   - An error if a file could not be read and ContinueOnError is false,
//     if the context was cancelled, or if an output could not be written.
func (r *Runner) Run(ctx context.Context, inputs []Input) (utils.RunSummary, error) {
	summary := utils.RunSummary{
		RunID:      r.files.RunID,
		StartTime:  time.Now(),
		TotalFiles: len(inputs),
	}
	var issues []utils.IssueLogEntry

	// =========================================================================
	// STEP 1: RESOLVE PROFILES AND READ INPUTS
	// =========================================================================

	var jobs []engine.Job
	var sources []Input
	for _, in := range inputs {
		job, err := r.prepare(in)
		if err != nil {
			r.logger.Error("failed to read input", zap.String("file", in.Path), zap.Error(err))
			r.recorder.ObserveFailure(string(adapter.KindOf(in.Path)))
			summary.FailedFiles++
			summary.Failures = append(summary.Failures, utils.FailedFileInfo{InputFile: in.Path, ErrorMessage: err.Error()})
			issues = append(issues, utils.IssueLogEntry{FileName: in.Path, IssueType: "read", Message: err.Error()})
			if !r.cfg.KeepGoing() {
				summary.EndTime = time.Now()
				return summary, err
			}
			continue
		}
		jobs = append(jobs, job)
		sources = append(sources, in)
	}

	// =========================================================================
	// STEP 2: EXTRACT
	// =========================================================================

	results, err := engine.RunBatch(ctx, jobs, r.cfg.MaxConcurrency)
	if err != nil {
		summary.EndTime = time.Now()
		return summary, fmt.Errorf("extraction cancelled: %w", err)
	}

	// =========================================================================
	// STEP 3-4: WRITE RECORDS, METRICS, ISSUES
	// =========================================================================

	for i, res := range results {
		in := sources[i]
		r.recorder.Observe(res)

		file := utils.FileSummary{
			InputFile: in.Path,
			Profile:   res.Profile,
			Kind:      string(res.Kind),
			Records:   len(res.Records),
			Dropped:   res.Diagnostics.Dropped,
			Warnings:  len(res.Diagnostics.Warnings),
			Duration:  res.Duration.String(),
			Summary:   res.Summary,
		}

		if !r.options.DryRun {
			out, err := r.write(in, res)
			if err != nil {
				summary.EndTime = time.Now()
				return summary, err
			}
			file.OutputFile = out
		}

		switch {
		case res.Diagnostics.Degraded():
			summary.DegradedFiles++
			issues = append(issues, utils.IssueLogEntry{FileName: in.Path, IssueType: "no_schedule", Message: res.Diagnostics.Err.Error()})
		default:
			summary.SuccessfulFiles++
		}
		for _, reason := range sortedReasons(res.Diagnostics.Dropped) {
			n := res.Diagnostics.Dropped[reason]
			issues = append(issues, utils.IssueLogEntry{
				FileName:  in.Path,
				IssueType: "dropped",
				Message:   fmt.Sprintf("%d rows dropped", n),
				Field:     reason,
			})
		}
		for _, fe := range res.Diagnostics.FieldErrors {
			issues = append(issues, utils.IssueLogEntry{
				FileName:  in.Path,
				IssueType: "field",
				Message:   fe.Reason,
				Field:     fe.Field,
				Value:     fe.Raw,
			})
		}

		summary.TotalRecords += len(res.Records)
		summary.FieldErrors += len(res.Diagnostics.FieldErrors)
		summary.Files = append(summary.Files, file)

		r.logger.Info("processed file",
			zap.String("file", in.Path),
			zap.String("output", file.OutputFile),
			zap.Int("records", file.Records),
			zap.Bool("degraded", res.Diagnostics.Degraded()),
		)
	}

	// =========================================================================
	// STEP 5: RUN OUTPUTS
	// =========================================================================

	summary.EndTime = time.Now()
	if err := r.writeRunOutputs(summary, issues); err != nil {
		return summary, err
	}

	return summary, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// prepare resolves the profile of an input and reads it.
func (r *Runner) prepare(in Input) (engine.Job, error) {
	profile, err := r.profileFor(in.Path)
	if err != nil {
		return engine.Job{}, err
	}

	eng, err := r.engineFor(profile)
	if err != nil {
		return engine.Job{}, err
	}

	doc, err := adapter.Read(in.Path, profile)
	if err != nil {
		return engine.Job{}, err
	}

	job := engine.Job{Engine: eng, Doc: doc}
	if in.Fallback != "" {
		fallback, err := adapter.Read(in.Fallback, profile)
		if err != nil {
			return engine.Job{}, fmt.Errorf("failed to read fallback: %w", err)
		}
		job.Fallback = fallback
	}
	return job, nil
}

func (r *Runner) profileFor(path string) (*config.SourceProfile, error) {
	if r.options.Profile != "" {
		p, ok := r.registry.Lookup(r.options.Profile)
		if !ok {
			return nil, fmt.Errorf("unknown profile %q", r.options.Profile)
		}
		return p, nil
	}
	return r.registry.Resolve(filepath.Base(path), string(adapter.KindOf(path))), nil
}

// engineFor returns the cached engine of a profile.
func (r *Runner) engineFor(profile *config.SourceProfile) (*engine.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[profile.Name]; ok {
		return e, nil
	}

	e, err := engine.New(profile,
		engine.WithLogger(r.logger),
		engine.WithPeriodEnd(r.options.PeriodEnd),
		engine.WithStandardizer(engine.NewVocabularyStandardizer(profile)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	r.engines[profile.Name] = e
	return e, nil
}

func (r *Runner) write(in Input, res engine.Result) (string, error) {
	path := r.files.OutputPath(r.cfg.OutputNameFormat, export.Extension(r.cfg.OutputFormat), map[string]string{
		"source":  utils.SourceName(in.Path),
		"profile": res.Profile,
	})

	options := r.exportOptions()
	options.Source = filepath.Base(in.Path)

	if err := export.WriteFile(path, r.cfg.OutputFormat, res.Records, &res.Summary, options); err != nil {
		return "", fmt.Errorf("failed to write output for %s: %w", in.Path, err)
	}
	return path, nil
}

func (r *Runner) exportOptions() export.Options {
	options := export.DefaultOptions()
	options.Extended = r.cfg.ExtendedColumns
	return options
}

// writeSchema writes the XSD describing the XML record files of this run.
func (r *Runner) writeSchema() (string, error) {
	path := filepath.Join(r.files.OutputDir, "schedule.xsd")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create schema: %w", err)
	}
	if err := export.WriteXSD(file, r.exportOptions()); err != nil {
		file.Close()
		return "", err
	}
	return path, file.Close()
}

func (r *Runner) writeRunOutputs(summary utils.RunSummary, issues []utils.IssueLogEntry) error {
	if r.options.DryRun {
		return nil
	}

	if err := r.files.EnsureDirectories(); err != nil {
		return err
	}

	if path, err := r.files.WriteIssueLog(issues); err != nil {
		return err
	} else if path != "" {
		r.logger.Info("wrote issue log", zap.String("path", path), zap.Int("issues", len(issues)))
	}

	if strings.EqualFold(r.cfg.OutputFormat, export.FormatXML) {
		path, err := r.writeSchema()
		if err != nil {
			return err
		}
		r.logger.Info("wrote schema", zap.String("path", path))
	}

	path, err := r.files.WriteSummaryLog(summary)
	if err != nil {
		return err
	}
	r.logger.Info("wrote run summary", zap.String("path", path))

	if r.cfg.MetricsFile != "" {
		if err := r.recorder.WriteTextfile(r.cfg.MetricsFile); err != nil {
			return err
		}
	}

	return nil
}

func sortedReasons(dropped map[string]int) []string {
	reasons := make([]string, 0, len(dropped))
	for reason := range dropped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}
