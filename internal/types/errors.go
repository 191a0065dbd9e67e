package types

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================
//
// Row- and field-level errors are recovered locally by the pipeline. Only
// ErrNoCandidateTables / ErrNoCandidateContexts reach the caller (as a
// diagnostic next to an empty result) and ErrSourceFetch is fatal.

var (
	// ErrUnresolvedIdentifier means no company name survived parsing.
	ErrUnresolvedIdentifier = errors.New("unresolved identifier")

	// ErrUnparseableField means a single money, date or percent token failed.
	ErrUnparseableField = errors.New("unparseable field")

	// ErrNoCandidateTables means the discoverer found no schedule table.
	ErrNoCandidateTables = errors.New("no candidate tables")

	// ErrNoCandidateContexts means the discoverer found no usable context.
	ErrNoCandidateContexts = errors.New("no candidate contexts")

	// ErrSourceFetch wraps failures of the document retrieval layer.
	ErrSourceFetch = errors.New("source fetch failed")

	// ErrNotRetainable means a record has no amounts and no known type.
	ErrNotRetainable = errors.New("record not retainable")
)

// FieldError reports why a single field could not be parsed. The field is
// left empty and the row is otherwise kept.
type FieldError struct {
	// Field is the output field name (e.g. "fair_value").
	Field string

	// Raw is the token that failed to parse.
	Raw string

	// Reason is a short human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("unparseable field: %q: %s", e.Raw, e.Reason)
	}
	return fmt.Sprintf("unparseable field %s: %q: %s", e.Field, e.Raw, e.Reason)
}

// Unwrap lets errors.Is match ErrUnparseableField.
func (e *FieldError) Unwrap() error {
	return ErrUnparseableField
}

// NewFieldError builds a FieldError.
func NewFieldError(field, raw, reason string) *FieldError {
	return &FieldError{Field: field, Raw: raw, Reason: reason}
}

// WithField returns a copy of the error labelled with an output field name.
func (e *FieldError) WithField(field string) *FieldError {
	c := *e
	c.Field = field
	return &c
}
