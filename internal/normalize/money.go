// =============================================================================
// Schedule Extractor - Field Normalizer
// =============================================================================
//
// This package turns the heterogeneous numeric, percent and date encodings
// found in fund schedules into canonical values:
//   - Money:   "$1,234", "(500)", "—"      -> 1234, -500, nil
//   - Percent: "0.055", "5.5", "5.50 %"    -> "5.5%", "5.5%", "5.50%"
//   - Date:    "3/1/27", "March 2027"      -> "2027-03-01"
//   - Spread:  "575" (bps), "5.75"         -> "5.75%"
//
// Every parse returns an explicit error (a *types.FieldError) instead of
// silently defaulting, so the caller can log the reason and leave the field
// empty.
//
// =============================================================================

package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// MONEY
// =============================================================================

// dashSentinels parse to "absent", never to zero.
var dashSentinels = map[string]bool{
	"-": true, "--": true, "—": true, "–": true, "−": true, "‒": true,
}

var moneyNoise = strings.NewReplacer(
	"$", "", "USD", "", "US$", "", "€", "", "£", "",
	",", "", " ", "", "*", "",
)

// IsDash reports whether a cell is a dash placeholder.
func IsDash(s string) bool {
	return dashSentinels[strings.TrimSpace(s)]
}

// ParseMoney parses a monetary token.
//
// RETURNS:
//   - nil, nil for an empty cell or a dash placeholder
//   - the value for "$1,234.50", "1234", "(500)" (negative), "-500"
//   - nil and a *types.FieldError for anything else
func ParseMoney(s string) (*float64, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" || IsDash(s) {
		return nil, nil
	}

	s = moneyNoise.Replace(s)
	if IsDash(s) || s == "" {
		return nil, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, types.NewFieldError("", raw, "not a monetary amount")
	}
	if negative {
		d = d.Neg()
	}

	f, _ := d.Float64()
	return &f, nil
}

// FormatMoney renders a value the way schedules print it: "$1,234.50",
// negatives in parentheses.
func FormatMoney(x float64) string {
	d := decimal.NewFromFloat(x)
	negative := d.IsNegative()
	digits := d.Abs().StringFixed(2)

	intPart, frac := digits, ""
	if dot := strings.IndexByte(digits, '.'); dot >= 0 {
		intPart, frac = digits[:dot], digits[dot:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := "$" + b.String() + frac
	if negative {
		return "(" + out + ")"
	}
	return out
}

// =============================================================================
// SYMBOL CELL MERGING
// =============================================================================

var numericCell = regexp.MustCompile(`^\(?-?[\d,]*\.?\d+\)?$`)

// MergeSymbolCells joins currency and percent symbols that a filing laid
// out as cells of their own. A lone "$" is merged with the following
// numeric cell and a lone "%" with the preceding one. The merged token
// takes the left-most position and the other cell is blanked, so column
// positions are preserved.
func MergeSymbolCells(cells []string) []string {
	out := make([]string, len(cells))
	copy(out, cells)

	for i := 0; i < len(out); i++ {
		switch strings.TrimSpace(out[i]) {
		case "$":
			j := nextNonEmpty(out, i+1)
			if j < 0 {
				continue
			}
			next := strings.TrimSpace(out[j])
			if numericCell.MatchString(next) || IsDash(next) {
				out[i] = "$" + next
				out[j] = ""
				i = j
			}
		case "%":
			j := prevNonEmpty(out, i-1)
			if j < 0 {
				continue
			}
			prev := strings.TrimSpace(out[j])
			if numericCell.MatchString(prev) {
				out[j] = prev + "%"
				out[i] = ""
			}
		}
	}

	return out
}

func nextNonEmpty(cells []string, from int) int {
	for j := from; j < len(cells); j++ {
		if strings.TrimSpace(cells[j]) != "" {
			return j
		}
	}
	return -1
}

func prevNonEmpty(cells []string, from int) int {
	for j := from; j >= 0; j-- {
		if strings.TrimSpace(cells[j]) != "" {
			return j
		}
	}
	return -1
}
