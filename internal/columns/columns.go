// =============================================================================
// Schedule Extractor - Column Role Inferencer
// =============================================================================
//
// Assigns a semantic role (company, type, maturity, fair value, ...) to each
// column of a schedule table. The header row is found by keyword scoring; if
// no header qualifies the profile's positional map is used instead.
//
// ROLE PRIORITY:
//   Each header cell takes the first role whose keywords it contains. The
//   order matters: "amortized cost" must resolve before bare "cost", and
//   "spread above index" before "index".
//
// =============================================================================

package columns

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// ROLE RULES
// =============================================================================

type roleRule struct {
	role     types.ColumnRole
	keywords []string
}

// roleRules is the ordered, first-match-wins role table.
var roleRules = []roleRule{
	{types.RolePercentOfNetAssets, []string{"% of net assets", "percent of net assets", "percentage of net assets", "net assets"}},
	{types.RoleFairValue, []string{"fair value", "market value"}},
	{types.RoleCost, []string{"amortized cost", "cost"}},
	{types.RoleSpread, []string{"spread above index", "spread", "margin"}},
	{types.RoleReferenceRate, []string{"reference rate", "reference", "index", "base rate"}},
	{types.RoleRate, []string{"interest rate", "rate", "coupon"}},
	{types.RoleAcquisitionDate, []string{"acquisition date", "initial acquisition", "acquisition", "acquired"}},
	{types.RoleMaturityDate, []string{"maturity", "expiration"}},
	{types.RolePrincipal, []string{"principal", "par amount", "par", "shares", "units", "amount"}},
	{types.RoleIndustry, []string{"industry", "sector"}},
	{types.RoleCompany, []string{"portfolio company", "company", "issuer", "borrower", "name"}},
	{types.RoleType, []string{"investment type", "type of investment", "type", "investment", "instrument", "security", "class"}},
}

// =============================================================================
// INFERENCER
// =============================================================================

// Inferencer finds header rows and builds ColumnRoleMaps for one profile.
type Inferencer struct {
	profile  *config.SourceProfile
	rules    []compiledRule
	groups   map[string][]*regexp.Regexp
	fallback types.ColumnRoleMap
}

type compiledRule struct {
	role     types.ColumnRole
	patterns []*regexp.Regexp
}

// New builds an Inferencer. Keyword patterns are compiled once here.
func New(profile *config.SourceProfile) *Inferencer {
	inf := &Inferencer{
		profile: profile,
		groups:  make(map[string][]*regexp.Regexp),
	}

	for _, rule := range roleRules {
		cr := compiledRule{role: rule.role}
		for _, kw := range rule.keywords {
			cr.patterns = append(cr.patterns, keywordPattern(kw))
		}
		inf.rules = append(inf.rules, cr)
	}

	for group, keywords := range profile.HeaderKeywords.Groups() {
		for _, kw := range keywords {
			inf.groups[group] = append(inf.groups[group], keywordPattern(kw))
		}
	}

	if len(profile.DefaultColumns) > 0 {
		inf.fallback = make(types.ColumnRoleMap, len(profile.DefaultColumns))
		for role, idx := range profile.DefaultColumns {
			inf.fallback[types.ColumnRole(role)] = idx
		}
	}

	return inf
}

// keywordPattern matches a keyword on word boundaries, case-insensitively.
func keywordPattern(kw string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN])` + regexp.QuoteMeta(kw) + `(?:$|[^\pL\pN])`)
}

// =============================================================================
// HEADER DETECTION
// =============================================================================

// HeaderScore counts how many keyword groups (company, type, maturity,
// principal, cost, fair value) a row hits.
func (inf *Inferencer) HeaderScore(cells []string) int {
	text := strings.Join(cells, " | ")
	score := 0
	for _, patterns := range inf.groups {
		for _, re := range patterns {
			if re.MatchString(text) {
				score++
				break
			}
		}
	}
	return score
}

// IsHeader reports whether a row qualifies as the header: it must hit the
// company AND type AND principal AND fair value groups.
func (inf *Inferencer) IsHeader(cells []string) bool {
	text := strings.Join(cells, " | ")
	for _, group := range []string{"company", "type", "principal", "fair_value"} {
		if !matchesAny(inf.groups[group], text) {
			return false
		}
	}
	return true
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// =============================================================================
// INFERENCE
// =============================================================================

// Infer scans the first HeaderScanRows rows of a table for a header.
//
// RETURNS:
//   - the role map (the profile's positional map when no header qualifies,
//     nil when the profile has none either)
//   - the index of the header row, -1 when none was found
//   - true when the map came from a header row
func (inf *Inferencer) Infer(rows [][]string) (types.ColumnRoleMap, int, bool) {
	limit := inf.profile.HeaderScanRows
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}

	for i := 0; i < limit; i++ {
		if !inf.IsHeader(rows[i]) {
			continue
		}
		roles := inf.Roles(rows[i])
		if i+1 < len(rows) && inf.IsHeaderContinuation(rows[i+1]) {
			roles = inf.mergeContinuation(roles, rows[i+1])
		}
		return roles, i, true
	}

	return inf.Fallback(), -1, false
}

// Roles assigns a role to each header cell, first match wins; a role
// already taken by an earlier column is not reassigned.
func (inf *Inferencer) Roles(header []string) types.ColumnRoleMap {
	roles := make(types.ColumnRoleMap)
	for idx, cell := range header {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		if role, ok := inf.RoleOf(cell); ok {
			if _, taken := roles[role]; !taken {
				roles[role] = idx
			}
		}
	}
	return roles
}

// RoleOf returns the first role whose keywords a header cell contains.
func (inf *Inferencer) RoleOf(cell string) (types.ColumnRole, bool) {
	for _, rule := range inf.rules {
		if matchesAny(rule.patterns, cell) {
			return rule.role, true
		}
	}
	return "", false
}

// Fallback returns a copy of the profile's positional map, or nil.
func (inf *Inferencer) Fallback() types.ColumnRoleMap {
	if inf.fallback == nil {
		return nil
	}
	out := make(types.ColumnRoleMap, len(inf.fallback))
	for k, v := range inf.fallback {
		out[k] = v
	}
	return out
}

// IsHeaderContinuation detects a second header line such as
// "| Amount | | Cost | Value |" under "Principal | | Amortized | Fair".
// It has no digits and at least two role keywords.
func (inf *Inferencer) IsHeaderContinuation(cells []string) bool {
	hits := 0
	for _, cell := range cells {
		if strings.ContainsAny(cell, "0123456789$") {
			return false
		}
		if _, ok := inf.RoleOf(cell); ok {
			hits++
		}
	}
	return hits >= 2
}

// mergeContinuation fills roles only the second header line names.
func (inf *Inferencer) mergeContinuation(roles types.ColumnRoleMap, cells []string) types.ColumnRoleMap {
	for idx, cell := range cells {
		role, ok := inf.RoleOf(cell)
		if !ok {
			continue
		}
		if _, taken := roles[role]; !taken {
			roles[role] = idx
		}
	}
	return roles
}
