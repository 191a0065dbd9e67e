package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// REFERENCE RATE + SPREAD
// =============================================================================

// basisPointCutoff separates percent spreads from basis-point spreads.
var basisPointCutoff = decimal.NewFromInt(20)

var spreadToken = regexp.MustCompile(`(?i)^\+?\s*(\d*\.?\d+)\s*(%|bps|bp)?$`)

// referenceNames maps the spellings found in filings to the canonical
// reference rate names.
var referenceNames = map[string]string{
	"SOFR":      "SOFR",
	"TERM SOFR": "SOFR",
	"LIBOR":     "LIBOR",
	"PRIME":     "PRIME",
	"P":         "PRIME",
	"EURIBOR":   "EURIBOR",
	"E":         "EURIBOR",
	"BASE RATE": "BASE RATE",
	"BASE":      "BASE RATE",
	"L":         "LIBOR",
	"S":         "SOFR",
}

// CanonicalReference returns the canonical name of a reference rate token
// ("Term SOFR+" -> "SOFR"), or "" when the token names no known index.
func CanonicalReference(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimRight(s, "+ ")
	s = strings.Join(strings.Fields(s), " ")
	return referenceNames[s]
}

// NormalizeSpread converts a spread token to a percent string. Values
// above 20 are basis points and are divided by 100 ("575" -> "5.75%");
// values up to 20 already are percents and keep their digits
// ("6.50%" -> "6.50%", "5.75" -> "5.75%").
func NormalizeSpread(s string) (string, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" || IsDash(s) {
		return "", nil
	}

	m := spreadToken.FindStringSubmatch(s)
	if m == nil {
		return "", types.NewFieldError("", raw, "not a spread")
	}

	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return "", types.NewFieldError("", raw, "not a spread")
	}

	unit := strings.ToLower(m[2])
	if unit == "bps" || unit == "bp" || d.GreaterThan(basisPointCutoff) {
		return FormatPercent(d.Div(hundred)), nil
	}

	digits := m[1]
	if strings.HasPrefix(digits, ".") {
		digits = "0" + digits
	}
	return digits + "%", nil
}

// ParseRateSpread parses a co-occurring reference rate and spread.
//
// RETURNS:
//   - the canonical reference rate ("" when ref names no known index)
//   - the normalized spread
//   - a *types.FieldError when the spread cannot be parsed
func ParseRateSpread(ref, spread string) (string, string, error) {
	name := CanonicalReference(ref)
	norm, err := NormalizeSpread(spread)
	return name, norm, err
}
