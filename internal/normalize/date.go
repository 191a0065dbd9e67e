package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// DATE
// =============================================================================

var (
	slashDate = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{2}|\d{4})$`)
	isoDate   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	monthDate = regexp.MustCompile(`^([A-Za-z]{3,9})\.?\s+(?:(\d{1,2}),?\s+)?(\d{4})$`)
	// DateToken finds a date inside free text.
	DateToken = regexp.MustCompile(`(?i)\b(?:\d{1,2}/\d{1,2}/(?:\d{4}|\d{2})|\d{4}-\d{2}-\d{2}|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+(?:\d{1,2},?\s+)?\d{4})\b`)
)

var months = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// ExpandYear applies the two-digit year rule: below 50 is 20xx, otherwise
// 19xx. Four-digit years are returned unchanged.
func ExpandYear(y int) int {
	switch {
	case y >= 100:
		return y
	case y < 50:
		return 2000 + y
	default:
		return 1900 + y
	}
}

// NormalizeDate converts a date token to ISO "YYYY-MM-DD".
//
// Accepted forms: MM/DD/YYYY, MM/DD/YY, YYYY-MM-DD, "Month YYYY" and
// "Mon YYYY" (day 01), "Month D, YYYY". Anything else is returned
// unchanged together with a *types.FieldError so callers can keep the raw
// text as a best-effort value.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || IsDash(s) {
		return "", nil
	}

	if m := slashDate.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return formatDate(s, ExpandYear(year), month, day)
	}

	if m := isoDate.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return formatDate(s, year, month, day)
	}

	if m := monthDate.FindStringSubmatch(s); m != nil {
		month, ok := months[strings.ToLower(m[1])]
		if !ok {
			return s, types.NewFieldError("", s, "unknown month name")
		}
		day := 1
		if m[2] != "" {
			day, _ = strconv.Atoi(m[2])
		}
		year, _ := strconv.Atoi(m[3])
		return formatDate(s, year, month, day)
	}

	return s, types.NewFieldError("", s, "unrecognized date format")
}

// formatDate renders a calendar date as ISO. time.Date normalizes
// overflow, so a date that does not round-trip does not exist.
func formatDate(raw string, year, month, day int) (string, error) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return raw, types.NewFieldError("", raw, "date out of range")
	}
	return t.Format("2006-01-02"), nil
}

// IsDateToken reports whether a whole cell is a date.
func IsDateToken(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if slashDate.MatchString(s) || isoDate.MatchString(s) {
		return true
	}
	if m := monthDate.FindStringSubmatch(s); m != nil {
		_, ok := months[strings.ToLower(m[1])]
		return ok
	}
	return false
}

// YearOf returns the year of an ISO date, or 0.
func YearOf(iso string) int {
	if len(iso) < 4 {
		return 0
	}
	y, err := strconv.Atoi(iso[:4])
	if err != nil {
		return 0
	}
	return y
}
