package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// UNIT SCALE
// =============================================================================
//
// Filings state amounts in dollars, thousands or millions, and not all of
// them say which. Resolution is a pluggable strategy chosen per source
// profile:
//   none     - amounts are taken as written
//   explicit - look for "(in thousands)" style annotations near the tables
//   fixed    - apply the profile's configured multiplier
//   chain    - explicit first, then fixed

// ScaleResolver decides the multiplier for the amounts of one document.
type ScaleResolver interface {
	// Resolve returns the multiplier and whether a signal was found.
	Resolve(hints []string) (decimal.Decimal, bool)
}

var one = decimal.NewFromInt(1)

var scaleAnnotation = regexp.MustCompile(`(?i)\b(?:in|amounts\s+in|expressed\s+in|\$\s*in)\s+(thousands|millions|billions)\b`)

var scaleWords = map[string]decimal.Decimal{
	"thousands": decimal.NewFromInt(1_000),
	"millions":  decimal.NewFromInt(1_000_000),
	"billions":  decimal.NewFromInt(1_000_000_000),
}

// ExplicitScale reads scale annotations from text near the schedule.
type ExplicitScale struct{}

// Resolve implements ScaleResolver.
func (ExplicitScale) Resolve(hints []string) (decimal.Decimal, bool) {
	for _, h := range hints {
		if m := scaleAnnotation.FindStringSubmatch(h); m != nil {
			return scaleWords[strings.ToLower(m[1])], true
		}
	}
	return one, false
}

// FixedScale always applies the same multiplier.
type FixedScale struct {
	Multiplier decimal.Decimal
}

// Resolve implements ScaleResolver.
func (f FixedScale) Resolve([]string) (decimal.Decimal, bool) {
	if f.Multiplier.IsZero() {
		return one, false
	}
	return f.Multiplier, true
}

// NoScale leaves amounts unchanged.
type NoScale struct{}

// Resolve implements ScaleResolver.
func (NoScale) Resolve([]string) (decimal.Decimal, bool) {
	return one, false
}

// ChainScale returns the first resolver that finds a signal.
type ChainScale []ScaleResolver

// Resolve implements ScaleResolver.
func (c ChainScale) Resolve(hints []string) (decimal.Decimal, bool) {
	for _, r := range c {
		if m, ok := r.Resolve(hints); ok {
			return m, true
		}
	}
	return one, false
}

// NewScaleResolver builds the resolver for a strategy name.
func NewScaleResolver(strategy string, multiplier float64) ScaleResolver {
	fixed := FixedScale{Multiplier: decimal.NewFromFloat(multiplier)}

	switch strings.ToLower(strategy) {
	case "explicit":
		return ExplicitScale{}
	case "fixed":
		return fixed
	case "chain", "":
		return ChainScale{ExplicitScale{}, fixed}
	default:
		return NoScale{}
	}
}

// ApplyScale multiplies an amount. A nil amount stays nil.
func ApplyScale(v *float64, multiplier decimal.Decimal) *float64 {
	if v == nil || multiplier.Equal(one) {
		return v
	}
	f, _ := decimal.NewFromFloat(*v).Mul(multiplier).Float64()
	return &f
}
