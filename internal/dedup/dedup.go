// =============================================================================
// Schedule Extractor - Deduplicator & Reconciler
// =============================================================================
//
// DEDUP:
//   Records sharing (company, type, maturity) and (principal, cost, fair
//   value) are duplicates. The first occurrence wins and input order is kept.
//
// RECONCILE:
//   A primary record set (usually dimensional facts) is enriched from a
//   fallback set (usually a table of the same filing). Matching tiers:
//     1. normalized name + investment type
//     2. normalized name
//     3. name with legal suffixes and parentheticals stripped
//     4. similarity >= threshold, or token containment
//   Only empty primary fields are filled.
//
// =============================================================================

package dedup

import (
	"regexp"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// NAME NORMALIZATION
// =============================================================================

var (
	nonAlnum     = regexp.MustCompile(`[^\pL\pN]+`)
	parenthetics = regexp.MustCompile(`\([^)]*\)`)
)

// NormalizeName lowercases a name and reduces every run of punctuation or
// whitespace to a single space.
func NormalizeName(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
}

// StripLegal removes parentheticals and trailing legal suffixes
// ("Acme Holdings, L.L.C. (fka Acme)" -> "acme").
func StripLegal(name string, suffixes []string) string {
	name = parenthetics.ReplaceAllString(name, " ")
	fields := strings.Fields(NormalizeName(strings.ReplaceAll(name, ".", "")))

	drop := make(map[string]bool, len(suffixes))
	for _, s := range suffixes {
		drop[NormalizeName(strings.ReplaceAll(s, ".", ""))] = true
	}

	for len(fields) > 1 && drop[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}

	return strings.Join(fields, " ")
}

// =============================================================================
// DEDUP
// =============================================================================

// Key builds the dedup key of a record.
func Key(r types.InvestmentRecord) types.DedupKey {
	return types.DedupKey{
		Company:      NormalizeName(r.CompanyName),
		Type:         NormalizeName(r.InvestmentType),
		MaturityDate: r.MaturityDate,
		Principal:    money(r.PrincipalAmount),
		Cost:         money(r.Cost),
		FairValue:    money(r.FairValue),
	}
}

func money(v *float64) string {
	if v == nil {
		return ""
	}
	return decimal.NewFromFloat(*v).String()
}

// Dedup collapses records with the same key to their first occurrence.
// Dedup(Dedup(x)) equals Dedup(x).
func Dedup(records []types.InvestmentRecord) []types.InvestmentRecord {
	seen := make(map[types.DedupKey]bool, len(records))
	out := make([]types.InvestmentRecord, 0, len(records))

	for _, r := range records {
		k := Key(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}

	return out
}

// =============================================================================
// RECONCILE
// =============================================================================

// Matcher finds the fallback record that describes the same instrument as
// a primary record.
type Matcher struct {
	suffixes  []string
	threshold float64
	metric    *metrics.Levenshtein
}

// NewMatcher builds a Matcher from a profile's legal suffixes and
// similarity threshold.
func NewMatcher(profile *config.SourceProfile) *Matcher {
	threshold := profile.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.8
	}
	return &Matcher{
		suffixes:  profile.LegalSuffixes,
		threshold: threshold,
		metric:    metrics.NewLevenshtein(),
	}
}

// Similarity returns the normalized Levenshtein similarity of two names.
func (m *Matcher) Similarity(a, b string) float64 {
	return strutil.Similarity(NormalizeName(a), NormalizeName(b), m.metric)
}

type index struct {
	byNameType map[string]int
	byName     map[string]int
	byStripped map[string]int
	stripped   []string
}

func (m *Matcher) index(fallback []types.InvestmentRecord) index {
	idx := index{
		byNameType: make(map[string]int),
		byName:     make(map[string]int),
		byStripped: make(map[string]int),
		stripped:   make([]string, len(fallback)),
	}
	for i, r := range fallback {
		name := NormalizeName(r.CompanyName)
		stripped := StripLegal(r.CompanyName, m.suffixes)
		idx.stripped[i] = stripped

		putFirst(idx.byNameType, name+"|"+NormalizeName(r.InvestmentType), i)
		putFirst(idx.byName, name, i)
		putFirst(idx.byStripped, stripped, i)
	}
	return idx
}

func putFirst(m map[string]int, key string, i int) {
	if _, ok := m[key]; !ok {
		m[key] = i
	}
}

// match returns the index of the fallback record matching r and the tier
// that matched, or -1, 0.
func (m *Matcher) match(r types.InvestmentRecord, idx index) (int, int) {
	name := NormalizeName(r.CompanyName)
	if i, ok := idx.byNameType[name+"|"+NormalizeName(r.InvestmentType)]; ok {
		return i, 1
	}
	if i, ok := idx.byName[name]; ok {
		return i, 2
	}
	stripped := StripLegal(r.CompanyName, m.suffixes)
	if i, ok := idx.byStripped[stripped]; ok {
		return i, 3
	}

	best, bestScore := -1, 0.0
	for i, candidate := range idx.stripped {
		if candidate == "" || stripped == "" {
			continue
		}
		if containsTokens(stripped, candidate) {
			return i, 4
		}
		if score := strutil.Similarity(stripped, candidate, m.metric); score >= m.threshold && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		return best, 4
	}
	return -1, 0
}

// containsTokens reports whether every token of the shorter name appears
// in the longer one.
func containsTokens(a, b string) bool {
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}
	if len(ta) == 0 || len(strings.Join(ta, "")) < 4 {
		return false
	}
	set := make(map[string]bool, len(tb))
	for _, t := range tb {
		set[t] = true
	}
	for _, t := range ta {
		if !set[t] {
			return false
		}
	}
	return true
}

// ReconcileStats counts matches per tier.
type ReconcileStats struct {
	Matched   map[int]int
	Unmatched int
}

// Reconcile returns a copy of primary with empty fields filled from the
// matching fallback records. Populated primary fields are never
// overwritten, and a fallback record may serve several primary records.
func (m *Matcher) Reconcile(primary, fallback []types.InvestmentRecord) ([]types.InvestmentRecord, ReconcileStats) {
	stats := ReconcileStats{Matched: make(map[int]int)}
	out := make([]types.InvestmentRecord, len(primary))
	copy(out, primary)

	if len(fallback) == 0 {
		stats.Unmatched = len(primary)
		return out, stats
	}

	idx := m.index(fallback)
	for i := range out {
		j, tier := m.match(out[i], idx)
		if j < 0 {
			stats.Unmatched++
			continue
		}
		stats.Matched[tier]++
		out[i] = Fill(out[i], fallback[j])
	}

	return out, stats
}

// Fill copies into dst every field that is empty on dst and set on src.
// An "Unknown" type or industry counts as empty.
func Fill(dst, src types.InvestmentRecord) types.InvestmentRecord {
	fillLabel(&dst.InvestmentType, src.InvestmentType)
	fillLabel(&dst.Industry, src.Industry)

	fillString(&dst.BusinessDescription, src.BusinessDescription)
	fillString(&dst.AcquisitionDate, src.AcquisitionDate)
	fillString(&dst.MaturityDate, src.MaturityDate)
	fillString(&dst.InterestRate, src.InterestRate)
	fillString(&dst.ReferenceRate, src.ReferenceRate)
	fillString(&dst.Spread, src.Spread)
	fillString(&dst.FloorRate, src.FloorRate)
	fillString(&dst.PIKRate, src.PIKRate)
	fillString(&dst.SharesUnits, src.SharesUnits)
	fillString(&dst.Currency, src.Currency)

	fillFloat(&dst.PrincipalAmount, src.PrincipalAmount)
	fillFloat(&dst.Cost, src.Cost)
	fillFloat(&dst.FairValue, src.FairValue)
	fillFloat(&dst.PercentOfNetAssets, src.PercentOfNetAssets)
	fillFloat(&dst.CommitmentLimit, src.CommitmentLimit)
	fillFloat(&dst.UndrawnCommitment, src.UndrawnCommitment)

	return dst
}

func fillString(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}

func fillLabel(dst *string, src string) {
	if (*dst == "" || *dst == types.Unknown) && src != "" && src != types.Unknown {
		*dst = src
	}
}

func fillFloat(dst **float64, src *float64) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}
