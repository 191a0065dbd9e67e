// =============================================================================
// Schedule Extractor - Identifier Grammar Parser
// =============================================================================
//
// Funds pack several facts about a holding into one free-text identifier:
//
//   "Acme Corp LLC (1)(2), Software, First Lien Term Loan, SOFR+575,
//    1.00% Floor, 2.00% PIK, Maturity Date 3/1/28"
//
// The parser applies ordered rules to that text:
//   1. strip footnote markers "(1)", "(1)(2)"
//   2. extract "Maturity [Date] <date>" / "Acquisition [Date] <date>"
//   3. extract rate terms: REF+spread, floor, PIK, interest rate
//   4. find the investment type after the company name boundary
//   5. the remainder is the company name, with any industry phrase removed
//
// A Parser owns its compiled patterns. It is built once per source profile
// and is safe for concurrent use.
//
// =============================================================================

package grammar

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/normalize"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// PATTERN TABLE
// =============================================================================

const datePattern = `(\d{1,2}/\d{1,2}/(?:\d{4}|\d{2})|\d{4}-\d{2}-\d{2}|[A-Za-z]{3,9}\.?\s+(?:\d{1,2},?\s+)?\d{4})`

const refPattern = `(SOFR|LIBOR|PRIME|EURIBOR|BASE\s+RATE)`

var (
	footnotes       = regexp.MustCompile(`(?:\s*\(\s*\d{1,3}\s*\))+`)
	maturityRule    = regexp.MustCompile(`(?i)\b(?:maturity|matures|due)(?:\s+date)?\s*[:\-]?\s*` + datePattern)
	acquisitionRule = regexp.MustCompile(`(?i)\b(?:acquisition|acquired)(?:\s+date)?\s*[:\-]?\s*` + datePattern)
	refSpreadRule   = regexp.MustCompile(`(?i)\b(?:term\s+)?` + refPattern + `\s*(?:\+|plus)\s*(\d*\.?\d+)\s*(%|bps|bp)?`)
	refOnlyRule     = regexp.MustCompile(`\b(?:[Tt]erm\s+)?(SOFR|LIBOR|PRIME|EURIBOR|BASE\s+RATE)\b\s*\+?`)
	floorRule       = regexp.MustCompile(`(?i)(\d*\.?\d+)\s*%\s*floor|\bfloor\b[^%\d]{0,20}?(\d*\.?\d+)\s*%`)
	pikRule         = regexp.MustCompile(`(?i)(\d*\.?\d+)\s*%\s*(?:pik|paid[\s-]+in[\s-]+kind)|\b(?:pik|paid[\s-]+in[\s-]+kind)\b[^%\d]{0,20}?(\d*\.?\d+)\s*%`)
	interestRule    = regexp.MustCompile(`(?i)(?:\binterest\s+rate\s*:?\s*|\bcoupon\s*:?\s*)?(\d*\.?\d+)\s*%(?:\s*(?:cash|fixed))?(?:\s+interest(?:\s+rate)?)?`)
	emptyParens     = regexp.MustCompile(`\(\s*[,;/&+]*\s*\)`)
	repeatedSep     = regexp.MustCompile(`\s*([,;])\s*(?:[,;]\s*)+`)
	spaces          = regexp.MustCompile(`\s+`)
	boundaryRule    = regexp.MustCompile(`\s*(?:,|;|\s[-–—]\s|\|)\s*`)
)

// Parser parses packed investment identifiers.
type Parser struct {
	types      []typeRule
	vocabulary []string
	industries []*regexp.Regexp
}

type typeRule struct {
	re    *regexp.Regexp
	label string
	order int
}

// New compiles the investment-type and industry tables of a profile.
//
// RETURNS:
//   - An error if a configured type pattern does not compile.
func New(profile *config.SourceProfile) (*Parser, error) {
	p := &Parser{}

	for i, tp := range profile.InvestmentTypes {
		re, err := regexp.Compile(`(?i)\b(?:` + tp.Pattern + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("failed to compile investment type pattern %q: %w", tp.Pattern, err)
		}
		p.types = append(p.types, typeRule{re: re, label: tp.Label, order: i})
	}

	// Longest vocabulary entries first so "Health Care Technology" wins over
	// "Technology".
	p.vocabulary = append([]string(nil), profile.IndustryVocabulary...)
	sort.SliceStable(p.vocabulary, func(i, j int) bool {
		return len(p.vocabulary[i]) > len(p.vocabulary[j])
	})
	for _, v := range p.vocabulary {
		p.industries = append(p.industries, regexp.MustCompile(`(?i)^`+regexp.QuoteMeta(v)+`$`))
	}

	return p, nil
}

// =============================================================================
// PARSE
// =============================================================================

// Parse applies the ordered rules to an identifier. axisIndustry is the
// explicit dimensional industry member ("" when absent); it takes priority
// over any industry found in the text.
func (p *Parser) Parse(text, axisIndustry string) types.ParsedIdentifier {
	var out types.ParsedIdentifier

	// Rule 1: footnotes.
	s := StripFootnotes(text)

	// Rule 2: dated tokens.
	s = extract(s, maturityRule, func(m []string) {
		if out.MaturityDate == "" {
			out.MaturityDate, _ = normalize.NormalizeDate(m[1])
		}
	})
	s = extract(s, acquisitionRule, func(m []string) {
		if out.AcquisitionDate == "" {
			out.AcquisitionDate, _ = normalize.NormalizeDate(m[1])
		}
	})

	// Rule 3: rate terms.
	s = extract(s, refSpreadRule, func(m []string) {
		if out.ReferenceRate != "" {
			return
		}
		out.ReferenceRate = normalize.CanonicalReference(m[1])
		out.Spread, _ = normalize.NormalizeSpread(m[2] + m[3])
	})
	s = extract(s, floorRule, func(m []string) {
		if out.FloorRate == "" {
			out.FloorRate, _ = normalize.NormalizePercent(firstNonEmpty(m[1], m[2]) + "%")
		}
	})
	s = extract(s, pikRule, func(m []string) {
		if out.PIKRate == "" {
			out.PIKRate, _ = normalize.NormalizePercent(firstNonEmpty(m[1], m[2]) + "%")
		}
	})
	s = extract(s, refOnlyRule, func(m []string) {
		if out.ReferenceRate == "" {
			out.ReferenceRate = normalize.CanonicalReference(m[1])
		}
	})
	s = extract(s, interestRule, func(m []string) {
		if out.InterestRate == "" {
			out.InterestRate, _ = normalize.NormalizePercent(m[1] + "%")
		}
	})
	s = tidy(s)

	// Rule 4: investment type after the company boundary.
	if start, end, label, ok := p.findType(s); ok {
		out.InvestmentType = label
		s = tidy(s[:start] + ", " + s[end:])
	}

	// Rule 5: company name and industry.
	company, industry := p.splitCompany(s)
	out.CompanyName = company
	if out.CompanyName == "" {
		out.CompanyName = types.UnknownCompany
	}

	out.Industry = ResolveIndustry(axisIndustry, industry)

	return out
}

// ResolveIndustry applies the tie-break between an explicit axis member and
// a textually parsed industry: the axis wins whenever it is present.
func ResolveIndustry(axis, textual string) string {
	axis = strings.TrimSpace(axis)
	if axis != "" && axis != types.Unknown {
		return axis
	}
	if textual != "" && textual != types.Unknown {
		return textual
	}
	return ""
}

// StripFootnotes removes parenthesized footnote numbers, chained or not.
func StripFootnotes(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(footnotes.ReplaceAllString(s, " "), " "))
}

// =============================================================================
// INVESTMENT TYPE
// =============================================================================

type typeMatch struct {
	start, end int
	order      int
	label      string
}

// findType locates the investment type phrase. A match inside the company
// segment (before the first boundary) is used only when the segment is
// nothing but a type phrase, when the segment names an instrument
// ("Term Loan B", "Class A Units"), or when nothing follows the boundary
// and the match does not start the text. Adjacent phrases are joined, so
// "Senior Secured First Lien Term Loan" is kept whole.
func (p *Parser) findType(s string) (int, int, string, bool) {
	if s == "" {
		return 0, 0, "", false
	}

	matches := p.typeMatches(s)
	if len(matches) == 0 {
		return 0, 0, "", false
	}

	boundary := firstBoundary(s)

	var best *typeMatch
	for i := range matches {
		if matches[i].start >= boundary {
			best = &matches[i]
			break
		}
	}
	if best == nil && p.IsInvestmentType(s[:boundary]) {
		best = &matches[0]
	}
	if best == nil {
		if label, ok := p.instrumentLabel(s[:boundary]); ok {
			return 0, boundary, label, true
		}
		for i := range matches {
			if matches[i].start > 0 && !covered(matches, matches[i].start) {
				best = &matches[i]
				break
			}
		}
	}
	if best == nil {
		return 0, 0, "", false
	}

	start, end := best.start, best.end
	for {
		extended := false
		for _, m := range matches {
			if m.start > end && strings.TrimSpace(s[end:m.start]) == "" && m.end > end {
				end = m.end
				extended = true
			}
		}
		if !extended {
			break
		}
	}

	label := best.label
	if label == "" || end != best.end {
		label = spaces.ReplaceAllString(strings.TrimSpace(s[start:end]), " ")
	}
	return start, end, label, true
}

var (
	parenthetical  = regexp.MustCompile(`\([^()]*\)`)
	instrumentWord = regexp.MustCompile(`(?i)^(?:[a-z]|[a-z]?-?\d+[a-z]?|[ivx]{1,4}|\d+(?:st|nd|rd|th)|incremental|additional|add-on|initial|new|tranche|class|series|facility|and|&|/)$`)
)

// instrumentLabel reports whether a segment names an instrument and
// nothing else: type phrases plus tranche letters, numbers and qualifiers
// such as "Incremental". Parentheticals ("(1,000 shares)") are ignored.
// The label is the segment text unless one configured phrase covers it.
func (p *Parser) instrumentLabel(seg string) (string, bool) {
	text := tidy(parenthetical.ReplaceAllString(seg, " "))
	matches := p.typeMatches(text)
	if len(matches) == 0 {
		return "", false
	}

	rest := []byte(text)
	for _, m := range matches {
		for i := m.start; i < m.end; i++ {
			rest[i] = ' '
		}
	}
	for _, word := range strings.Fields(string(rest)) {
		if w := strings.Trim(word, ",;:.-"); w != "" && !instrumentWord.MatchString(w) {
			return "", false
		}
	}

	if m := matches[0]; m.start == 0 && m.end == len(text) && m.label != "" {
		return m.label, true
	}
	return text, true
}

// covered reports whether a position lies inside an earlier match.
func covered(matches []typeMatch, pos int) bool {
	for _, m := range matches {
		if m.start < pos && m.end > pos {
			return true
		}
	}
	return false
}

// typeMatches returns every type phrase in s, ordered by position, then by
// pattern order, then longest first.
func (p *Parser) typeMatches(s string) []typeMatch {
	var matches []typeMatch
	for _, rule := range p.types {
		for _, loc := range rule.re.FindAllStringIndex(s, -1) {
			matches = append(matches, typeMatch{start: loc[0], end: loc[1], order: rule.order, label: rule.label})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.start != b.start {
			return a.start < b.start
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return a.end > b.end
	})
	return matches
}

// MatchType returns the investment type phrase contained in a cell, or "".
func (p *Parser) MatchType(s string) string {
	matches := p.typeMatches(s)
	if len(matches) == 0 {
		return ""
	}
	m := matches[0]
	if m.label != "" {
		return m.label
	}
	return spaces.ReplaceAllString(strings.TrimSpace(s[m.start:m.end]), " ")
}

// IsInvestmentType reports whether a cell consists only of a type phrase
// (plus footnotes and punctuation).
func (p *Parser) IsInvestmentType(s string) bool {
	s = strings.Trim(StripFootnotes(s), " ,;:-")
	if s == "" {
		return false
	}
	for _, rule := range p.types {
		loc := rule.re.FindStringIndex(s)
		if loc != nil && loc[0] == 0 && strings.Trim(s[loc[1]:], " ,;:-") == "" {
			return true
		}
	}
	return false
}

// =============================================================================
// COMPANY AND INDUSTRY
// =============================================================================

// IndustryOf returns the vocabulary entry that a cell names, or "".
func (p *Parser) IndustryOf(s string) string {
	s = strings.Trim(StripFootnotes(s), " ,;:-")
	for i, re := range p.industries {
		if re.MatchString(s) {
			return p.vocabulary[i]
		}
	}
	return ""
}

// splitCompany separates the company segment from trailing segments and
// pulls out an industry phrase, either a whole segment or a leading or
// trailing phrase joined to the name by a dash, colon or pipe. Commas inside
// parentheses do not separate segments.
func (p *Parser) splitCompany(s string) (string, string) {
	segments := splitTopLevel(s)
	var company, industry string
	var rest []string

	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if industry == "" {
			if ind := p.IndustryOf(seg); ind != "" {
				industry = ind
				continue
			}
		}
		if company == "" {
			company = seg
			continue
		}
		rest = append(rest, seg)
	}

	if company != "" && industry == "" {
		company, industry = p.splitJoinedIndustry(company)
	}

	// A legal suffix split off by a comma belongs to the name
	// ("Acme Holdings, Inc.").
	for _, seg := range rest {
		if isLegalTail(seg) {
			company += ", " + seg
			continue
		}
		break
	}

	return CleanName(company), industry
}

var joinedSep = regexp.MustCompile(`\s*(?:\s[-–—]\s|:|\|)\s*`)

func (p *Parser) splitJoinedIndustry(company string) (string, string) {
	loc := joinedSep.FindAllStringIndex(company, -1)
	if len(loc) == 0 {
		return company, ""
	}

	first := loc[0]
	if ind := p.IndustryOf(company[:first[0]]); ind != "" && strings.TrimSpace(company[first[1]:]) != "" {
		return strings.TrimSpace(company[first[1]:]), ind
	}

	last := loc[len(loc)-1]
	if ind := p.IndustryOf(company[last[1]:]); ind != "" && strings.TrimSpace(company[:last[0]]) != "" {
		return strings.TrimSpace(company[:last[0]]), ind
	}

	return company, ""
}

var legalTail = regexp.MustCompile(`(?i)^(?:inc|llc|l\.l\.c|lp|l\.p|llp|ltd|limited|corp|co|plc|s\.a|gmbh|b\.v)\.?$`)

func isLegalTail(s string) bool {
	return legalTail.MatchString(strings.TrimSpace(s))
}

// CleanName tidies a company name: footnotes removed, whitespace
// collapsed, dangling separators trimmed.
func CleanName(s string) string {
	s = StripFootnotes(s)
	s = emptyParens.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, " ")
	return strings.Trim(s, " ,;:-–—|/")
}

// =============================================================================
// HELPERS
// =============================================================================

// depthAt returns the parenthesis depth at byte offset i.
func depthAt(s string, i int) int {
	depth := 0
	for _, r := range s[:i] {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}

// firstBoundary returns the offset of the first segment boundary outside
// parentheses, or len(s).
func firstBoundary(s string) int {
	for _, loc := range boundaryRule.FindAllStringIndex(s, -1) {
		if depthAt(s, loc[0]) == 0 {
			return loc[0]
		}
	}
	return len(s)
}

// splitTopLevel splits s on commas outside parentheses.
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// extract calls fn for every match of re and removes the matched text.
func extract(s string, re *regexp.Regexp, fn func(m []string)) string {
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		fn(m)
	}
	return re.ReplaceAllString(s, ", ")
}

// tidy collapses separators left behind by extract.
func tidy(s string) string {
	s = emptyParens.ReplaceAllString(s, "")
	s = repeatedSep.ReplaceAllString(s, "$1 ")
	s = spaces.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " ,", ",")
	return strings.Trim(s, " ,;:-–—|/")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
