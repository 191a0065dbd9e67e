package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// PERCENT
// =============================================================================

var percentToken = regexp.MustCompile(`^(\()?\s*(-?\d*\.?\d+)\s*(%)?\s*(\))?$`)

var hundred = decimal.NewFromInt(100)

// NormalizePercent canonicalizes a percent token.
//
// A token that already carries "%" is taken as a percent ("6.50 %" ->
// "6.5%"). A bare number with magnitude <= 1.0 is a fraction and is
// multiplied by 100 ("0.055" -> "5.5%"); any other bare number is already
// a percent ("5.5" -> "5.5%"). A parenthesized token is negative
// ("(1.5%)" -> "-1.5%"). Values are rounded to 4 decimals with trailing
// zeros trimmed. The result is a fixed point of the function.
func NormalizePercent(s string) (string, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" || IsDash(s) {
		return "", nil
	}

	m := percentToken.FindStringSubmatch(s)
	if m == nil || (m[1] == "") != (m[4] == "") {
		return "", types.NewFieldError("", raw, "not a percentage")
	}

	d, err := decimal.NewFromString(m[2])
	if err != nil {
		return "", types.NewFieldError("", raw, "not a percentage")
	}

	if m[3] == "" && d.Abs().LessThanOrEqual(decimal.NewFromInt(1)) {
		d = d.Mul(hundred)
	}
	if m[1] != "" {
		d = d.Neg()
	}

	return FormatPercent(d), nil
}

// FormatPercent renders a percent value with at most 4 decimals, trailing
// zeros trimmed, suffixed with "%".
func FormatPercent(d decimal.Decimal) string {
	return d.Round(4).String() + "%"
}

// PercentValue parses a percent token into its numeric value ("5.5%" -> 5.5).
func PercentValue(s string) (*float64, error) {
	norm, err := NormalizePercent(s)
	if err != nil || norm == "" {
		return nil, err
	}

	d, err := decimal.NewFromString(strings.TrimSuffix(norm, "%"))
	if err != nil {
		return nil, types.NewFieldError("", s, "not a percentage")
	}

	f, _ := d.Float64()
	return &f, nil
}

// IsPercentToken reports whether a cell is a number followed by "%".
func IsPercentToken(s string) bool {
	if !strings.Contains(s, "%") {
		return false
	}
	_, err := NormalizePercent(s)
	return err == nil
}
