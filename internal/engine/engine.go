// =============================================================================
// Schedule Extractor - Extraction Engine
// =============================================================================
//
// This module orchestrates the extraction pipeline for a single document,
// from raw units to a deduplicated record set and its summary.
//
// EXTRACTION PIPELINE:
//   1. Adapt the document into raw units
//   2. Discover the schedule tables or the latest-instant contexts
//   3. Tabular: infer column roles and walk every table
//      Dimensional: parse identifiers and map facts onto fields
//   4. Standardize industry and type labels
//   5. Validate the records (warnings only)
//   6. Deduplicate
//   7. Summarize
//
// ERROR POLICY:
//   Row and field failures are counted and logged, never returned. A
//   document without any usable table or context yields an empty record
//   set with the discovery error in Diagnostics.Err.
//
// CONCURRENCY:
//   An Engine holds only read-only state after New and may be shared by
//   goroutines. Carry state lives inside each table walk.
//
// =============================================================================

package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/schedule-extractor/internal/adapter"
	"github.com/ginjaninja78/schedule-extractor/internal/classifier"
	"github.com/ginjaninja78/schedule-extractor/internal/columns"
	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/dedup"
	"github.com/ginjaninja78/schedule-extractor/internal/discovery"
	"github.com/ginjaninja78/schedule-extractor/internal/grammar"
	"github.com/ginjaninja78/schedule-extractor/internal/normalize"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
	"github.com/ginjaninja78/schedule-extractor/internal/validation"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of extracting one document.
type Result struct {
	// Source is the document's source name.
	Source string

	// Kind is the representation the records came from.
	Kind types.DocumentKind

	// Profile is the name of the source profile used.
	Profile string

	// Records is the final, deduplicated record set.
	Records []types.InvestmentRecord

	// Summary aggregates Records.
	Summary types.Summary

	// Diagnostics explains what was skipped and why.
	Diagnostics Diagnostics

	// Duration is the time the extraction took.
	Duration time.Duration
}

// Diagnostics collects the non-fatal outcomes of an extraction.
type Diagnostics struct {
	// Err is types.ErrNoCandidateTables or types.ErrNoCandidateContexts
	// (wrapped) when discovery found nothing.
	Err error

	// Warnings are human-readable notes, validation findings included.
	Warnings []string

	// Dropped counts discarded rows or contexts by reason.
	Dropped map[string]int

	// FieldErrors lists the tokens that failed to parse.
	FieldErrors []*types.FieldError

	// Tables is the number of candidate tables walked.
	Tables int

	// Contexts is the number of contexts at the selected instant.
	Contexts int

	// Period is the selected instant (dimensional sources).
	Period string

	// Duplicates is the number of records removed by deduplication.
	Duplicates int

	// Validation holds the record checks.
	Validation *validation.ValidationResult
}

// Degraded reports whether discovery found nothing usable.
func (d Diagnostics) Degraded() bool {
	return d.Err != nil
}

// =============================================================================
// OPTIONS
// =============================================================================

// Standardizer maps a raw industry or investment type label to its
// canonical form.
type Standardizer interface {
	Standardize(label string) string
}

// StandardizerFunc adapts a function to Standardizer.
type StandardizerFunc func(string) string

// Standardize implements Standardizer.
func (f StandardizerFunc) Standardize(label string) string { return f(label) }

type identity struct{}

func (identity) Standardize(label string) string { return label }

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithStandardizer sets the label standardizer.
func WithStandardizer(s Standardizer) Option {
	return func(e *Engine) {
		if s != nil {
			e.standardizer = s
		}
	}
}

// WithPeriodEnd sets the reporting period end (YYYY-MM-DD) used to tell
// current tables from prior-period ones.
func WithPeriodEnd(date string) Option {
	return func(e *Engine) {
		e.periodEnd = date
	}
}

// WithValidator replaces the record validator.
func WithValidator(v *validation.Validator) Option {
	return func(e *Engine) {
		if v != nil {
			e.validator = v
		}
	}
}

// =============================================================================
// ENGINE STRUCTURE
// =============================================================================

// Engine extracts investment records for one source profile.
type Engine struct {
	profile      *config.SourceProfile
	parser       *grammar.Parser
	inferencer   *columns.Inferencer
	discoverer   *discovery.Discoverer
	classifier   *classifier.Classifier
	scale        normalize.ScaleResolver
	matcher      *dedup.Matcher
	validator    *validation.Validator
	standardizer Standardizer
	concepts     []conceptRule
	periodEnd    string
	logger       *zap.Logger
}

// New creates an Engine. Every pattern of the profile is compiled here.
//
// PARAMETERS:
//   - profile: The source profile. nil means the built-in default.
//   - opts: Optional settings.
//
// RETURNS:
//   - An error if the profile is invalid.
func New(profile *config.SourceProfile, opts ...Option) (*Engine, error) {
	if profile == nil {
		profile = config.DefaultProfile()
	}
	config.ApplyProfileDefaults(profile)
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate profile %s: %w", profile.Name, err)
	}

	parser, err := grammar.New(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to build identifier parser: %w", err)
	}

	inferencer := columns.New(profile)
	e := &Engine{
		profile:      profile,
		parser:       parser,
		inferencer:   inferencer,
		discoverer:   discovery.New(profile, inferencer),
		classifier:   classifier.New(profile, parser, inferencer),
		scale:        normalize.NewScaleResolver(profile.Scale.Strategy, profile.Scale.Multiplier),
		matcher:      dedup.NewMatcher(profile),
		validator:    validation.NewValidator(),
		standardizer: identity{},
		concepts:     compileConcepts(profile.Concepts),
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Profile returns the engine's source profile.
func (e *Engine) Profile() *config.SourceProfile {
	return e.profile
}

// =============================================================================
// MAIN EXTRACTION FUNCTION
// =============================================================================

// Extract runs the pipeline on one document.
func (e *Engine) Extract(doc *types.RawDocument) Result {
	startTime := time.Now()
	if doc == nil {
		doc = &types.RawDocument{Kind: types.KindTabular}
	}
	result := Result{
		Source:  doc.Source,
		Kind:    doc.Kind,
		Profile: e.profile.Name,
		Diagnostics: Diagnostics{
			Dropped: make(map[string]int),
		},
	}
	log := e.logger.With(zap.String("source", doc.Source), zap.String("profile", e.profile.Name))

	// =========================================================================
	// STEP 1: ADAPT
	// =========================================================================

	units := adapter.Adapt(doc)
	log.Debug("adapted document", zap.Int("units", len(units)))

	// =========================================================================
	// STEP 2-3: DISCOVER AND BUILD
	// =========================================================================

	var records []types.InvestmentRecord
	switch doc.Kind {
	case types.KindDimensional:
		records = e.extractDimensional(units, &result.Diagnostics, log)
	default:
		records = e.extractTabular(doc, units, &result.Diagnostics, log)
	}

	if result.Diagnostics.Err != nil {
		log.Warn("no schedule found", zap.Error(result.Diagnostics.Err))
		result.Diagnostics.Warnings = append(result.Diagnostics.Warnings, result.Diagnostics.Err.Error())
	}

	// =========================================================================
	// STEP 4: STANDARDIZE
	// =========================================================================

	for i := range records {
		records[i].Industry = e.standardize(records[i].Industry)
		records[i].InvestmentType = e.standardize(records[i].InvestmentType)
	}

	// =========================================================================
	// STEP 5-7: DEDUP, VALIDATE, SUMMARIZE
	// =========================================================================

	e.finish(&result, records, log)
	result.Duration = time.Since(startTime)

	log.Info("extracted schedule",
		zap.Int("records", len(result.Records)),
		zap.Int("duplicates", result.Diagnostics.Duplicates),
		zap.Int("field_errors", len(result.Diagnostics.FieldErrors)),
		zap.Duration("duration", result.Duration),
	)

	return result
}

// finish deduplicates, validates and summarizes a record set into result.
// Validation findings index result.Records.
func (e *Engine) finish(result *Result, records []types.InvestmentRecord, log *zap.Logger) {
	result.Records = dedup.Dedup(records)
	result.Diagnostics.Duplicates = len(records) - len(result.Records)

	result.Diagnostics.Validation = e.validator.ValidateAll(result.Records)
	for _, w := range result.Diagnostics.Validation.Warnings() {
		log.Debug("validation finding", zap.String("finding", w))
	}
	result.Diagnostics.Warnings = append(result.Diagnostics.Warnings, result.Diagnostics.Validation.Warnings()...)

	result.Summary = types.Summarize(result.Records)
}

func (e *Engine) standardize(label string) string {
	if label == "" || label == types.Unknown {
		return label
	}
	if out := e.standardizer.Standardize(label); out != "" {
		return out
	}
	return label
}

// =============================================================================
// TABULAR SOURCES
// =============================================================================

func (e *Engine) extractTabular(doc *types.RawDocument, units []types.RawUnit, diag *Diagnostics, log *zap.Logger) []types.InvestmentRecord {
	tables := adapter.GroupRows(units, doc.Tables)

	candidates, err := e.discoverer.SelectTables(tables, normalize.YearOf(e.periodEnd))
	if err != nil {
		diag.Err = err
		return nil
	}
	diag.Tables = len(candidates)

	var records []types.InvestmentRecord
	for _, c := range candidates {
		hints := append(append([]string(nil), c.Table.Heading...), doc.ScaleHints...)
		multiplier, _ := e.scale.Resolve(hints)

		roles, headerIdx, fromHeader := e.inferencer.Infer(c.Table.Rows)
		walk := e.classifier.Walk(c.Table, roles, headerIdx, multiplier)

		log.Debug("walked table",
			zap.Int("table", c.Table.Index),
			zap.Bool("by_heading", c.ByHeading),
			zap.Bool("header_found", fromHeader),
			zap.String("scale", multiplier.String()),
			zap.Int("records", len(walk.Records)),
		)

		records = append(records, walk.Records...)
		for reason, n := range walk.Dropped {
			diag.Dropped[reason] += n
		}
		for _, fe := range walk.FieldErrors {
			log.Debug("unparseable field", zap.Int("table", c.Table.Index), zap.Error(fe))
		}
		diag.FieldErrors = append(diag.FieldErrors, walk.FieldErrors...)
	}

	if n := diag.Dropped[classifier.DropUnresolved]; n > 0 {
		log.Debug("dropped rows without company", zap.Int("rows", n))
	}

	return records
}

// =============================================================================
// DIMENSIONAL SOURCES
// =============================================================================

func (e *Engine) extractDimensional(units []types.RawUnit, diag *Diagnostics, log *zap.Logger) []types.InvestmentRecord {
	contexts, period, err := discovery.SelectContexts(units)
	if err != nil {
		diag.Err = err
		return nil
	}
	diag.Contexts = len(contexts)
	diag.Period = period

	var records []types.InvestmentRecord
	for _, c := range contexts {
		candidate, fieldErrs := e.BuildFromContext(c)
		diag.FieldErrors = append(diag.FieldErrors, fieldErrs...)

		record, err := types.NewInvestmentRecord(candidate)
		switch {
		case errors.Is(err, types.ErrUnresolvedIdentifier):
			diag.Dropped[classifier.DropUnresolved]++
			log.Debug("dropped context", zap.String("context", c.ID), zap.Error(err))
		case err != nil:
			diag.Dropped[classifier.DropNotRetainable]++
			log.Debug("dropped context", zap.String("context", c.ID), zap.Error(err))
		default:
			records = append(records, record)
		}
	}

	return records
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// Reconcile fills the empty fields of the primary result's records from a
// fallback result of the same filing. The primary records decide which
// instruments exist; fallback-only records are not added.
func (e *Engine) Reconcile(primary, fallback Result) Result {
	out := primary
	out.Diagnostics.Dropped = make(map[string]int, len(primary.Diagnostics.Dropped))
	for k, v := range primary.Diagnostics.Dropped {
		out.Diagnostics.Dropped[k] = v
	}
	out.Diagnostics.Warnings = append([]string(nil), primary.Diagnostics.Warnings...)

	records, stats := e.matcher.Reconcile(primary.Records, fallback.Records)

	log := e.logger.With(zap.String("source", primary.Source), zap.String("fallback", fallback.Source))
	for tier, n := range stats.Matched {
		log.Debug("reconciled records", zap.Int("tier", tier), zap.Int("records", n))
	}
	if stats.Unmatched > 0 && len(fallback.Records) > 0 {
		out.Diagnostics.Warnings = append(out.Diagnostics.Warnings,
			fmt.Sprintf("%d records had no match in %s", stats.Unmatched, fallback.Source))
	}

	e.finish(&out, records, log)
	return out
}
