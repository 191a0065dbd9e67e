// =============================================================================
// Schedule Extractor - Record Validation
// =============================================================================
//
// This module checks finalized investment records for values that parsed
// but look wrong. It never drops a record: every finding is reported next
// to the result so a reviewer can look at the source row.
//
// VALIDATION LEVELS:
//   1. Field-level: struct tags on types.InvestmentRecord and date formats
//   2. Record-level: cross-field rules (maturity after acquisition, ...)
//
// SEVERITY:
//   - "error"   the record breaks an invariant (empty company name)
//   - "warning" the record is kept but a value is suspicious
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ginjaninja78/schedule-extractor/internal/normalize"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single finding on one record.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string `json:"severity"`

	// Field is the output field name.
	Field string `json:"field"`

	// Value is the offending value as text.
	Value string `json:"value"`

	// Rule names the check that failed.
	Rule string `json:"rule"`

	// Message is a human-readable explanation.
	Message string `json:"message"`

	// Record is the position of the record in the validated slice.
	Record int `json:"record"`

	// Company is the record's company name, for reporting.
	Company string `json:"company"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Record %d (%s), Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Record,
		e.Company,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool `json:"is_valid"`

	// Errors contains all findings, warnings included.
	Errors []*ValidationError `json:"errors"`

	ErrorCount       int `json:"error_count"`
	WarningCount     int `json:"warning_count"`
	RecordsValidated int `json:"records_validated"`
}

// Warnings renders every finding as a line of text.
func (r *ValidationResult) Warnings() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Error())
	}
	return out
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors makes any warning invalidate the result.
	// Default: false
	TreatWarningsAsErrors bool

	// MaxSpread is the largest plausible spread, in percent.
	// Default: 20
	MaxSpread float64

	// MaxInterestRate is the largest plausible interest rate, in percent.
	// Default: 100
	MaxInterestRate float64
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		TreatWarningsAsErrors: false,
		MaxSpread:             20,
		MaxInterestRate:       100,
	}
}

// Validator validates investment records.
type Validator struct {
	validate *validator.Validate
	options  ValidationOptions
}

// NewValidator creates a Validator with the default options.
func NewValidator() *Validator {
	return NewValidatorWithOptions(DefaultValidationOptions())
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		options:  options,
	}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// ValidateAll validates every record and returns a detailed result.
func (v *Validator) ValidateAll(records []types.InvestmentRecord) *ValidationResult {
	result := &ValidationResult{
		IsValid:          true,
		Errors:           make([]*ValidationError, 0),
		RecordsValidated: len(records),
	}

	for i := range records {
		for _, err := range v.ValidateRecord(&records[i]) {
			err.Record = i
			result.Errors = append(result.Errors, err)

			if err.Severity == SeverityError {
				result.ErrorCount++
				result.IsValid = false
				continue
			}
			result.WarningCount++
			if v.options.TreatWarningsAsErrors {
				result.IsValid = false
			}
		}
	}

	return result
}

// ValidateRecord validates a single record.
func (v *Validator) ValidateRecord(r *types.InvestmentRecord) []*ValidationError {
	var out []*ValidationError

	out = append(out, v.validateTags(r)...)
	out = append(out, v.validateDates(r)...)
	out = append(out, v.validateAmounts(r)...)
	out = append(out, v.validateRates(r)...)

	return out
}

// validateTags runs the struct tags of types.InvestmentRecord.
func (v *Validator) validateTags(r *types.InvestmentRecord) []*ValidationError {
	err := v.validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []*ValidationError{newError(r, SeverityError, "record", "", "struct", err.Error())}
	}

	var out []*ValidationError
	for _, fe := range fieldErrs {
		severity := SeverityWarning
		if fe.Tag() == "required" {
			severity = SeverityError
		}
		out = append(out, newError(r, severity, jsonName(fe.Field()), fmt.Sprint(deref(fe.Value())), fe.Tag(),
			fmt.Sprintf("failed '%s' check", fe.Tag())))
	}
	return out
}

// validateDates checks the ISO format and that maturity follows
// acquisition. Unparseable dates pass through normalization unchanged, so
// they show up here.
func (v *Validator) validateDates(r *types.InvestmentRecord) []*ValidationError {
	var out []*ValidationError

	dates := []struct{ field, value string }{
		{"acquisition_date", r.AcquisitionDate},
		{"maturity_date", r.MaturityDate},
	}
	for _, d := range dates {
		if err := v.validate.Var(d.value, "omitempty,datetime=2006-01-02"); err != nil {
			out = append(out, newError(r, SeverityWarning, d.field, d.value, "datetime", "not an ISO date"))
		}
	}

	if len(out) == 0 && r.AcquisitionDate != "" && r.MaturityDate != "" && r.MaturityDate < r.AcquisitionDate {
		out = append(out, newError(r, SeverityWarning, "maturity_date", r.MaturityDate, "after_acquisition",
			"maturity date precedes acquisition date "+r.AcquisitionDate))
	}

	return out
}

func (v *Validator) validateAmounts(r *types.InvestmentRecord) []*ValidationError {
	var out []*ValidationError

	amounts := []struct {
		field string
		value *float64
	}{
		{"principal_amount", r.PrincipalAmount},
		{"cost", r.Cost},
		{"fair_value", r.FairValue},
	}
	for _, a := range amounts {
		if a.value != nil && *a.value < 0 {
			out = append(out, newError(r, SeverityWarning, a.field, normalize.FormatMoney(*a.value), "non_negative",
				"amount is negative"))
		}
	}

	return out
}

func (v *Validator) validateRates(r *types.InvestmentRecord) []*ValidationError {
	var out []*ValidationError

	check := func(field, value string, max float64) {
		if value == "" {
			return
		}
		pct, err := normalize.PercentValue(value)
		if err != nil || pct == nil {
			out = append(out, newError(r, SeverityWarning, field, value, "percent", "not a percentage"))
			return
		}
		if *pct < 0 || *pct > max {
			out = append(out, newError(r, SeverityWarning, field, value, "range",
				fmt.Sprintf("outside 0%% to %g%%", max)))
		}
	}

	check("interest_rate", r.InterestRate, v.options.MaxInterestRate)
	check("spread", r.Spread, v.options.MaxSpread)
	check("floor_rate", r.FloorRate, v.options.MaxInterestRate)
	check("pik_rate", r.PIKRate, v.options.MaxInterestRate)

	return out
}

// =============================================================================
// HELPERS
// =============================================================================

func newError(r *types.InvestmentRecord, severity, field, value, rule, message string) *ValidationError {
	return &ValidationError{
		Severity: severity,
		Field:    field,
		Value:    value,
		Rule:     rule,
		Message:  message,
		Company:  r.CompanyName,
	}
}

var fieldNames = map[string]string{
	"CompanyName":        "company_name",
	"PercentOfNetAssets": "percent_net_assets",
}

func jsonName(field string) string {
	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}

func deref(v interface{}) interface{} {
	if p, ok := v.(*float64); ok && p != nil {
		return *p
	}
	return v
}
