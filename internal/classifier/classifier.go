// =============================================================================
// Schedule Extractor - Row Classifier & Carry-State Machine
// =============================================================================
//
// Schedules state an issuer or an industry once and let it apply to every
// following row until the next such marker. This package walks the rows of
// one table in order, classifies each row and carries the issuer, industry
// and rate terms forward.
//
// ROW STATES:
//   HEADER            column titles (also repeated headers after page breaks)
//   SECTION_MARKER    "Non-controlled/non-affiliated investments" banners
//   COMPANY_OR_INDUSTRY_MARKER
//                     first cell set, no detail signal
//   DETAIL            first cell set, detail signal present
//   CONTINUATION      first cell empty, detail signal present
//   TOTAL             "Total ...", "Subtotal ..."
//
// DETAIL SIGNAL:
//   a percent token, a reference rate prefix ("SOFR+"), a date, or a dollar
//   amount anywhere in the row.
//
// The walk is sequential by nature and a Walker must not be shared between
// goroutines. Its carry state is reset at the start of every table.
//
// =============================================================================

package classifier

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ginjaninja78/schedule-extractor/internal/columns"
	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/grammar"
	"github.com/ginjaninja78/schedule-extractor/internal/normalize"
)

// =============================================================================
// STATES
// =============================================================================

// State is the classification of one row.
type State int

const (
	StateBlank State = iota
	StateHeader
	StateSectionMarker
	StateCompanyOrIndustry
	StateDetail
	StateContinuation
	StateTotal
)

var stateNames = [...]string{
	StateBlank:             "BLANK",
	StateHeader:            "HEADER",
	StateSectionMarker:     "SECTION_MARKER",
	StateCompanyOrIndustry: "COMPANY_OR_INDUSTRY_MARKER",
	StateDetail:            "DETAIL",
	StateContinuation:      "CONTINUATION",
	StateTotal:             "TOTAL",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// =============================================================================
// SIGNALS
// =============================================================================

var (
	percentSignal   = regexp.MustCompile(`\d\s*%`)
	refPrefixSignal = regexp.MustCompile(`(?i)\b(?:SOFR|LIBOR|PRIME|EURIBOR|BASE\s+RATE)\s*\+`)
	dollarSignal    = regexp.MustCompile(`\$\s*\(?\d`)
	thousandsAmount = regexp.MustCompile(`^\(?-?\d{1,3}(?:,\d{3})+(?:\.\d+)?\)?$`)
	plainAmount     = regexp.MustCompile(`^\(?-?\d{3,}(?:\.\d+)?\)?$`)
	yearLike        = regexp.MustCompile(`^(?:19|20)\d{2}$`)
)

// IsMoneyToken reports whether a cell looks like a dollar amount: a "$"
// followed by digits, a number with thousands separators, or a plain number
// of three or more digits that is not a year.
func IsMoneyToken(cell string) bool {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return false
	}
	if dollarSignal.MatchString(cell) || thousandsAmount.MatchString(cell) {
		return true
	}
	return plainAmount.MatchString(cell) && !yearLike.MatchString(cell)
}

// IsRateToken reports whether a cell names a reference rate, alone
// ("SOFR") or as a prefix ("SOFR+", "LIBOR + 5.75%").
func IsRateToken(cell string) bool {
	return refPrefixSignal.MatchString(cell) || normalize.CanonicalReference(cell) != "" && len(strings.TrimSpace(cell)) > 1
}

// DetailSignal reports whether any cell carries a percent token, a
// reference rate prefix, a date or a dollar amount.
func DetailSignal(cells []string) bool {
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if percentSignal.MatchString(cell) || IsRateToken(cell) ||
			normalize.DateToken.MatchString(cell) || IsMoneyToken(cell) {
			return true
		}
	}
	return false
}

func hasMoneyOrDate(cells []string) bool {
	for _, cell := range cells {
		if IsMoneyToken(cell) || normalize.DateToken.MatchString(cell) {
			return true
		}
	}
	return false
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classifier classifies rows for one source profile.
type Classifier struct {
	profile    *config.SourceProfile
	parser     *grammar.Parser
	inferencer *columns.Inferencer
	sections   []string
	totals     []string
	suffixes   map[string]bool
}

// New creates a Classifier.
func New(profile *config.SourceProfile, parser *grammar.Parser, inferencer *columns.Inferencer) *Classifier {
	c := &Classifier{
		profile:    profile,
		parser:     parser,
		inferencer: inferencer,
		suffixes:   make(map[string]bool),
	}
	for _, s := range profile.SectionKeywords {
		c.sections = append(c.sections, strings.ToLower(s))
	}
	for _, s := range profile.TotalKeywords {
		c.totals = append(c.totals, strings.ToLower(s))
	}
	for _, s := range profile.LegalSuffixes {
		c.suffixes[strings.Trim(strings.ToLower(s), ".")] = true
	}
	return c
}

// Classify returns the state of a row. It does not look at carry state.
func (c *Classifier) Classify(cells []string) State {
	lead := ""
	for _, cell := range cells {
		if t := strings.TrimSpace(cell); t != "" {
			lead = strings.ToLower(grammar.StripFootnotes(t))
			break
		}
	}
	if lead == "" {
		return StateBlank
	}

	if hasKeywordPrefix(lead, c.totals) {
		return StateTotal
	}

	if c.inferencer.IsHeader(cells) {
		return StateHeader
	}

	first := ""
	if len(cells) > 0 {
		first = strings.TrimSpace(cells[0])
	}
	signal := DetailSignal(cells)

	if first != "" && hasKeywordPrefix(lead, c.sections) && !hasMoneyOrDate(cells) {
		return StateSectionMarker
	}

	if first == "" {
		if signal {
			return StateContinuation
		}
		return StateBlank
	}

	if !signal {
		return StateCompanyOrIndustry
	}
	return StateDetail
}

// hasKeywordPrefix matches whole-word prefixes: "total" matches "total
// investments" and "total:" but not "totally".
func hasKeywordPrefix(s string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.HasPrefix(s, kw) {
			continue
		}
		rest := s[len(kw):]
		if rest == "" {
			return true
		}
		r := []rune(rest)[0]
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// LooksLikeCompany reports whether a name ends with a legal suffix.
func (c *Classifier) LooksLikeCompany(name string) bool {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) < 2 {
		return false
	}
	last := strings.Trim(fields[len(fields)-1], ".,()")
	return c.suffixes[last]
}
