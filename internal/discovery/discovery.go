// =============================================================================
// Schedule Extractor - Table/Context Discoverer
// =============================================================================
//
// Picks the parts of a document that hold the schedule of investments.
//
// DIMENSIONAL SOURCES:
//   Only contexts at the single latest reporting instant are kept. Filings
//   repeat the prior period's holdings as comparative contexts, and keeping
//   them would duplicate every position.
//
// TABULAR SOURCES:
//   A table is a candidate when a schedule heading precedes it, or when one
//   of its leading rows scores enough header keywords. Small tables are
//   noise. Tables that only describe a prior period are dropped, and in
//   comparison tables rows of the prior period are dropped.
//
// =============================================================================

package discovery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/schedule-extractor/internal/columns"
	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// DIMENSIONAL CONTEXTS
// =============================================================================

// SelectContexts applies the latest point-in-time policy.
//
// RETURNS:
//   - the contexts at the latest instant, in input order
//   - the instant that was selected
//   - types.ErrNoCandidateContexts when nothing usable remains
func SelectContexts(units []types.RawUnit) ([]types.Context, string, error) {
	var withID []types.Context
	latestInstant := ""
	latestEnd := ""

	for _, u := range units {
		if u.Kind != types.UnitContext || u.Context == nil {
			continue
		}
		c := *u.Context
		if strings.TrimSpace(c.Identifier) == "" {
			continue
		}
		withID = append(withID, c)

		if c.Instant != "" && c.Instant > latestInstant {
			latestInstant = c.Instant
		}
		if c.Instant == "" && c.EndDate > latestEnd {
			latestEnd = c.EndDate
		}
	}

	// Durations only count when no instant context exists.
	useInstant := latestInstant != ""
	latest := latestInstant
	if !useInstant {
		latest = latestEnd
	}
	if latest == "" {
		return nil, "", fmt.Errorf("%w: no dated context with an identifier", types.ErrNoCandidateContexts)
	}

	var selected []types.Context
	for _, c := range withID {
		if useInstant && c.Instant == latest {
			selected = append(selected, c)
		}
		if !useInstant && c.Instant == "" && c.EndDate == latest {
			selected = append(selected, c)
		}
	}

	return selected, latest, nil
}

// =============================================================================
// TABLES
// =============================================================================

// Discoverer selects schedule tables for one profile.
type Discoverer struct {
	profile    *config.SourceProfile
	inferencer *columns.Inferencer
	headings   []string
}

// New creates a Discoverer.
func New(profile *config.SourceProfile, inferencer *columns.Inferencer) *Discoverer {
	d := &Discoverer{profile: profile, inferencer: inferencer}
	for _, h := range profile.HeadingPhrases {
		d.headings = append(d.headings, strings.ToLower(h))
	}
	return d
}

// Candidate is a selected table with the reason it was picked.
type Candidate struct {
	Table types.Table

	// ByHeading is true when a schedule heading preceded the table.
	ByHeading bool

	// Score is the best header keyword score among the leading rows.
	Score int
}

// SelectTables returns the candidate tables of a document. periodYear is
// the current reporting year; 0 means "derive it from the tables".
//
// RETURNS:
//   - the candidates in document order
//   - types.ErrNoCandidateTables when none qualifies
func (d *Discoverer) SelectTables(tables []types.Table, periodYear int) ([]Candidate, error) {
	var candidates []Candidate

	for _, t := range tables {
		if RowCount(t) < d.profile.MinTableRows {
			continue
		}

		byHeading := d.HasHeading(t)
		score := d.bestScore(t)
		if !byHeading && score < d.profile.MinHeaderScore {
			continue
		}

		candidates = append(candidates, Candidate{Table: t, ByHeading: byHeading, Score: score})
	}

	candidates = d.filterPeriods(candidates, periodYear)

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %d tables inspected", types.ErrNoCandidateTables, len(tables))
	}
	return candidates, nil
}

// RowCount counts the rows that carry any text.
func RowCount(t types.Table) int {
	n := 0
	for _, row := range t.Rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				n++
				break
			}
		}
	}
	return n
}

// HasHeading reports whether a schedule heading phrase appears in the text
// nodes preceding the table, within the profile's window.
func (d *Discoverer) HasHeading(t types.Table) bool {
	window := d.profile.HeadingWindow
	start := 0
	if window > 0 && len(t.Heading) > window {
		start = len(t.Heading) - window
	}

	for _, text := range t.Heading[start:] {
		lower := strings.ToLower(text)
		for _, phrase := range d.headings {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
	}
	return false
}

func (d *Discoverer) bestScore(t types.Table) int {
	limit := d.profile.HeaderScanRows
	if limit > len(t.Rows) {
		limit = len(t.Rows)
	}

	best := 0
	for i := 0; i < limit; i++ {
		if s := d.inferencer.HeaderScore(t.Rows[i]); s > best {
			best = s
		}
	}
	return best
}

// =============================================================================
// PERIOD FILTER
// =============================================================================

var yearToken = regexp.MustCompile(`\b(19[5-9]\d|20\d{2})\b`)

// periodLabel matches a cell that only names a reporting period:
// "2024", "December 31, 2024", "As of June 30, 2025".
var periodLabel = regexp.MustCompile(`(?i)^(?:as\s+of\s+)?(?:[a-z]+\.?\s+\d{1,2},?\s+)?(19[5-9]\d|20\d{2})$`)

// PeriodYears returns the period years a table announces in its heading
// and its leading header rows.
func (d *Discoverer) PeriodYears(t types.Table) map[int]bool {
	years := make(map[int]bool)

	window := d.profile.HeadingWindow
	start := 0
	if window > 0 && len(t.Heading) > window {
		start = len(t.Heading) - window
	}
	for _, text := range t.Heading[start:] {
		for _, y := range yearToken.FindAllString(text, -1) {
			n, _ := strconv.Atoi(y)
			years[n] = true
		}
	}

	limit := d.profile.HeaderScanRows
	if limit > len(t.Rows) {
		limit = len(t.Rows)
	}
	for i := 0; i < limit; i++ {
		if !d.inferencer.IsHeader(t.Rows[i]) && !isPeriodRow(t.Rows[i]) {
			continue
		}
		for _, cell := range t.Rows[i] {
			if m := periodLabel.FindStringSubmatch(strings.TrimSpace(cell)); m != nil {
				n, _ := strconv.Atoi(m[1])
				years[n] = true
			}
		}
	}

	return years
}

// isPeriodRow reports whether every non-empty cell is a period label.
func isPeriodRow(cells []string) bool {
	seen := false
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if !periodLabel.MatchString(cell) {
			return false
		}
		seen = true
	}
	return seen
}

func (d *Discoverer) filterPeriods(candidates []Candidate, periodYear int) []Candidate {
	yearsByTable := make([]map[int]bool, len(candidates))
	current := periodYear
	for i, c := range candidates {
		yearsByTable[i] = d.PeriodYears(c.Table)
		if periodYear == 0 {
			for y := range yearsByTable[i] {
				if y > current {
					current = y
				}
			}
		}
	}
	if current == 0 {
		return candidates
	}

	var kept []Candidate
	for i, c := range candidates {
		years := yearsByTable[i]
		if len(years) > 0 && !years[current] {
			// Only prior periods.
			continue
		}
		if len(years) > 1 {
			c.Table = dropPriorRows(c.Table, current)
		}
		kept = append(kept, c)
	}
	return kept
}

// dropPriorRows keeps the rows of a comparison table that do not belong to
// a prior period: a row is dropped when one of its cells is a period label
// for another year and none is a label for the current year.
func dropPriorRows(t types.Table, current int) types.Table {
	out := types.Table{Index: t.Index, Heading: t.Heading}
	for _, row := range t.Rows {
		hasCurrent, hasPrior := false, false
		for _, cell := range row {
			m := periodLabel.FindStringSubmatch(strings.TrimSpace(cell))
			if m == nil {
				continue
			}
			if n, _ := strconv.Atoi(m[1]); n == current {
				hasCurrent = true
			} else {
				hasPrior = true
			}
		}
		if hasPrior && !hasCurrent {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
