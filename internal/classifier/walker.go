package classifier

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/schedule-extractor/internal/grammar"
	"github.com/ginjaninja78/schedule-extractor/internal/normalize"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// CARRY STATE
// =============================================================================

// RateTerms are the floating-rate terms of a debt instrument.
type RateTerms struct {
	ReferenceRate string
	Spread        string
	FloorRate     string
	PIKRate       string
}

// fill returns r with its empty fields taken from other.
func (r RateTerms) fill(other RateTerms) RateTerms {
	if r.ReferenceRate == "" {
		r.ReferenceRate = other.ReferenceRate
	}
	if r.Spread == "" {
		r.Spread = other.Spread
	}
	if r.FloorRate == "" {
		r.FloorRate = other.FloorRate
	}
	if r.PIKRate == "" {
		r.PIKRate = other.PIKRate
	}
	return r
}

// CarryState holds the values the walk carries from row to row. It is
// scoped to one table.
type CarryState struct {
	Company  string
	Industry string
	Rate     RateTerms
}

// Reset clears the state at a table boundary.
func (c *CarryState) Reset() {
	*c = CarryState{}
}

// SetCompany switches the current company. Rate terms belong to the
// previous company's instruments and are cleared on a change.
func (c *CarryState) SetCompany(name string) {
	if name != c.Company {
		c.Rate = RateTerms{}
	}
	c.Company = name
}

// SetIndustry starts a new industry block.
func (c *CarryState) SetIndustry(industry string) {
	c.Industry = industry
	c.Company = ""
	c.Rate = RateTerms{}
}

// =============================================================================
// WALK
// =============================================================================

// Drop reasons reported in WalkResult.Dropped.
const (
	DropUnresolved    = "unresolved_identifier"
	DropNotRetainable = "not_retainable"
)

// WalkResult is the outcome of walking one table.
type WalkResult struct {
	Records     []types.InvestmentRecord
	States      []State
	Dropped     map[string]int
	FieldErrors []*types.FieldError
}

// equityWords mark instruments that never inherit floating-rate terms.
var equityWords = []string{"equity", "stock", "warrant", "preferred", "common", "membership", "units", "shares"}

func equityLike(investmentType string) bool {
	lower := strings.ToLower(investmentType)
	for _, w := range equityWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

type walker struct {
	*Classifier
	roles      types.ColumnRoleMap
	multiplier decimal.Decimal
	carry      CarryState
	result     WalkResult
}

// Walk classifies the rows of one table in order and builds a record from
// every DETAIL and CONTINUATION row.
//
// PARAMETERS:
//   - table: The candidate table.
//   - roles: The column role map (nil when neither a header nor a
//     positional map is available).
//   - headerIdx: The header row index, -1 when none. Rows up to the header
//     (and a second header line right below it) are not walked.
//   - multiplier: The unit scale applied to money values.
func (c *Classifier) Walk(table types.Table, roles types.ColumnRoleMap, headerIdx int, multiplier decimal.Decimal) WalkResult {
	w := &walker{
		Classifier: c,
		roles:      roles,
		multiplier: multiplier,
		result:     WalkResult{Dropped: make(map[string]int)},
	}
	w.carry.Reset()

	for i, row := range table.Rows {
		if headerIdx >= 0 && (i <= headerIdx || (i == headerIdx+1 && c.inferencer.IsHeaderContinuation(row))) {
			w.result.States = append(w.result.States, StateHeader)
			continue
		}

		cells := normalize.MergeSymbolCells(row)
		state := c.Classify(cells)
		w.result.States = append(w.result.States, state)

		switch state {
		case StateCompanyOrIndustry:
			w.applyMarker(cells)
		case StateDetail, StateContinuation:
			w.buildRecord(cells)
		}
	}

	return w.result
}

// =============================================================================
// MARKER ROWS
// =============================================================================

// applyMarker updates the carry state from a row without detail signal.
//
// A lone cell names an industry when it is in the vocabulary or does not
// look like a company. A lone cell that ends in a legal suffix or carries a
// type phrase next to a name is a company heading, and a lone instrument
// label ("Term Loan B") leaves the state alone. A row with further cells
// names a company, and an industry when one of the other cells names one.
func (w *walker) applyMarker(cells []string) {
	first := strings.TrimSpace(cells[0])

	var others []string
	for _, cell := range cells[1:] {
		if t := strings.TrimSpace(cell); t != "" {
			others = append(others, t)
		}
	}

	if len(others) == 0 {
		if industry := w.parser.IndustryOf(first); industry != "" {
			w.carry.SetIndustry(industry)
			return
		}
		parsed := w.parser.Parse(first, "")
		if !parsed.Resolved() && parsed.InvestmentType != "" {
			return
		}
		if parsed.Resolved() && (w.LooksLikeCompany(parsed.CompanyName) || parsed.InvestmentType != "") {
			w.carry.SetCompany(parsed.CompanyName)
			if parsed.Industry != "" {
				w.carry.Industry = parsed.Industry
			}
			return
		}
		w.carry.SetIndustry(grammar.CleanName(first))
		return
	}

	parsed := w.parser.Parse(first, "")
	if !parsed.Resolved() {
		return
	}
	w.carry.SetCompany(parsed.CompanyName)
	if parsed.Industry != "" {
		w.carry.Industry = parsed.Industry
		return
	}

	for _, cell := range others {
		if industry := w.parser.IndustryOf(cell); industry != "" {
			w.carry.Industry = industry
			return
		}
	}
	for _, cell := range others {
		if isLabelText(cell) && !w.parser.IsInvestmentType(cell) {
			w.carry.Industry = grammar.CleanName(cell)
			return
		}
	}
}

// isLabelText accepts short free text without digits.
func isLabelText(cell string) bool {
	return len(cell) <= 60 && !strings.ContainsAny(cell, "0123456789$%") && !normalize.IsDash(cell)
}

// =============================================================================
// DETAIL AND CONTINUATION ROWS
// =============================================================================

// rowValues are the fields read from the cells of one row.
type rowValues struct {
	Type        string
	Industry    string
	Rate        RateTerms
	Interest    string
	Acquisition string
	Maturity    string
	Principal   *float64
	Cost        *float64
	FairValue   *float64
	PercentNA   *float64
}

type moneySlot struct {
	pos int
	val *float64
}

func (w *walker) buildRecord(cells []string) {
	idCol := w.roles.Index(types.RoleCompany)
	if idCol < 0 {
		idCol = 0
	}
	idText := cellAt(cells, idCol)

	// An instrument label in the identifier column ("Term Loan B") parses
	// without a company, so the carried company stands.
	parsed := types.ParsedIdentifier{CompanyName: types.UnknownCompany}
	if idText != "" {
		parsed = w.parser.Parse(idText, "")
	}

	values, tokens := w.scan(cells, idCol)
	w.applyRoles(cells, &values, tokens)

	company := parsed.CompanyName
	if parsed.Resolved() {
		w.carry.SetCompany(company)
	} else {
		company = w.carry.Company
	}

	investmentType := firstNonEmpty(parsed.InvestmentType, values.Type)

	rate := values.Rate.fill(RateTerms{
		ReferenceRate: parsed.ReferenceRate,
		Spread:        parsed.Spread,
		FloorRate:     parsed.FloorRate,
		PIKRate:       parsed.PIKRate,
	})
	if rate.ReferenceRate != "" {
		w.carry.Rate = rate
	} else if !equityLike(investmentType) {
		rate = rate.fill(w.carry.Rate)
	}

	candidate := types.InvestmentRecord{
		CompanyName:        company,
		InvestmentType:     investmentType,
		Industry:           firstNonEmpty(parsed.Industry, values.Industry, w.carry.Industry),
		AcquisitionDate:    firstNonEmpty(values.Acquisition, parsed.AcquisitionDate),
		MaturityDate:       firstNonEmpty(values.Maturity, parsed.MaturityDate),
		PrincipalAmount:    normalize.ApplyScale(values.Principal, w.multiplier),
		Cost:               normalize.ApplyScale(values.Cost, w.multiplier),
		FairValue:          normalize.ApplyScale(values.FairValue, w.multiplier),
		InterestRate:       firstNonEmpty(values.Interest, parsed.InterestRate),
		ReferenceRate:      rate.ReferenceRate,
		Spread:             rate.Spread,
		FloorRate:          rate.FloorRate,
		PIKRate:            rate.PIKRate,
		PercentOfNetAssets: values.PercentNA,
	}

	record, err := types.NewInvestmentRecord(candidate)
	switch {
	case errors.Is(err, types.ErrUnresolvedIdentifier):
		w.result.Dropped[DropUnresolved]++
	case err != nil:
		w.result.Dropped[DropNotRetainable]++
	default:
		w.result.Records = append(w.result.Records, record)
	}
}

// scan reads a row token by token, ignoring the identifier column.
//
// A reference rate cell opens a spread that the next spread-like cell
// closes. The first percent before any amount is the interest rate, a
// percent after an amount is the percentage of net assets. One date is the
// maturity; with two or more, the first is the acquisition date and the
// last the maturity. Amounts fill principal, cost and fair value from the
// left. Other text is run through the identifier grammar for type,
// industry and rate terms.
//
// RETURNS:
//   - the values found
//   - the money slots in column order (dashes count as empty slots once
//     past the rate and date cells)
func (w *walker) scan(cells []string, skip int) (rowValues, []moneySlot) {
	var v rowValues
	var dates []string
	var money []moneySlot
	var dashes []int
	pending := false
	seenMoney := false
	lastInfo := -1

	for j, raw := range cells {
		cell := strings.TrimSpace(raw)
		if j == skip || cell == "" {
			continue
		}

		switch {
		case normalize.IsDash(cell) || normalize.IsDash(strings.TrimPrefix(cell, "$")):
			dashes = append(dashes, j)

		case pending && isSpread(cell):
			v.Rate.Spread, _ = normalize.NormalizeSpread(cell)
			pending = false
			lastInfo = j

		case normalize.CanonicalReference(cell) != "" && len(cell) > 1:
			v.Rate.ReferenceRate = normalize.CanonicalReference(cell)
			pending = true
			lastInfo = j

		case normalize.IsPercentToken(cell):
			if seenMoney {
				if pct, err := normalize.PercentValue(cell); err == nil && v.PercentNA == nil {
					v.PercentNA = pct
				}
				continue
			}
			if v.Interest == "" {
				v.Interest, _ = normalize.NormalizePercent(cell)
			}
			lastInfo = j

		case normalize.IsDateToken(cell):
			iso, err := normalize.NormalizeDate(cell)
			if err != nil {
				w.fieldError(err, "maturity_date")
			}
			dates = append(dates, iso)
			lastInfo = j

		case IsMoneyToken(cell):
			val, err := normalize.ParseMoney(cell)
			if err != nil {
				w.fieldError(err, "amount")
				continue
			}
			money = append(money, moneySlot{pos: j, val: val})
			seenMoney = true

		default:
			if w.harvest(&v, cell) {
				lastInfo = j
			}
		}
	}

	switch {
	case len(dates) == 1:
		v.Maturity = dates[0]
	case len(dates) > 1:
		v.Acquisition = dates[0]
		v.Maturity = dates[len(dates)-1]
	}

	tokens := mergeSlots(money, dashes, lastInfo)
	targets := []**float64{&v.Principal, &v.Cost, &v.FairValue}
	for i, slot := range tokens {
		if i >= len(targets) {
			break
		}
		*targets[i] = slot.val
	}

	return v, tokens
}

// harvest runs free text through the grammar and keeps everything but the
// company name. It reports whether anything was found.
func (w *walker) harvest(v *rowValues, cell string) bool {
	parsed := w.parser.Parse(cell, "")
	found := false
	set := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			found = true
		}
	}

	set(&v.Type, parsed.InvestmentType)
	set(&v.Industry, parsed.Industry)
	set(&v.Rate.ReferenceRate, parsed.ReferenceRate)
	set(&v.Rate.Spread, parsed.Spread)
	set(&v.Rate.FloorRate, parsed.FloorRate)
	set(&v.Rate.PIKRate, parsed.PIKRate)
	set(&v.Interest, parsed.InterestRate)
	set(&v.Maturity, parsed.MaturityDate)
	set(&v.Acquisition, parsed.AcquisitionDate)
	return found
}

// mergeSlots interleaves amounts with the dash placeholders that follow
// the last rate or date cell.
func mergeSlots(money []moneySlot, dashes []int, after int) []moneySlot {
	out := make([]moneySlot, 0, len(money)+len(dashes))
	m, d := 0, 0
	for m < len(money) || d < len(dashes) {
		if d < len(dashes) && (m >= len(money) || dashes[d] < money[m].pos) {
			if dashes[d] > after {
				out = append(out, moneySlot{pos: dashes[d]})
			}
			d++
			continue
		}
		out = append(out, money[m])
		m++
	}
	return out
}

func isSpread(cell string) bool {
	s, err := normalize.NormalizeSpread(cell)
	return err == nil && s != ""
}

// =============================================================================
// MAPPED COLUMNS
// =============================================================================

// applyRoles overrides scanned values with the cells of mapped columns
// where those cells parse.
//
// Money columns are taken as mapped when every mapped cell holds an amount
// or a dash. Otherwise the header is taken to be offset from the data and
// the scanned amounts are aligned from the right onto the mapped columns.
func (w *walker) applyRoles(cells []string, v *rowValues, tokens []moneySlot) {
	if len(w.roles) == 0 {
		return
	}

	for _, role := range types.AllRoles {
		idx := w.roles.Index(role)
		cell := cellAt(cells, idx)
		if idx < 0 || cell == "" || normalize.IsDash(cell) {
			continue
		}

		switch role {
		case types.RoleType:
			if t := w.parser.MatchType(cell); t != "" {
				v.Type = t
			} else if isLabelText(cell) {
				v.Type = grammar.CleanName(cell)
			}

		case types.RoleIndustry:
			if industry := w.parser.IndustryOf(cell); industry != "" {
				v.Industry = industry
			} else if isLabelText(cell) {
				v.Industry = grammar.CleanName(cell)
			}

		case types.RoleRate:
			if pct, err := normalize.NormalizePercent(cell); err == nil {
				v.Interest = pct
				continue
			}
			parsed := w.parser.Parse(cell, "")
			v.Interest = firstNonEmpty(parsed.InterestRate, v.Interest)
			v.Rate = RateTerms{
				ReferenceRate: parsed.ReferenceRate,
				Spread:        parsed.Spread,
				FloorRate:     parsed.FloorRate,
				PIKRate:       parsed.PIKRate,
			}.fill(v.Rate)

		case types.RoleReferenceRate:
			if ref := normalize.CanonicalReference(cell); ref != "" {
				v.Rate.ReferenceRate = ref
				continue
			}
			parsed := w.parser.Parse(cell, "")
			if parsed.ReferenceRate != "" {
				v.Rate.ReferenceRate = parsed.ReferenceRate
				v.Rate.Spread = firstNonEmpty(parsed.Spread, v.Rate.Spread)
			}

		case types.RoleSpread:
			spread, err := normalize.NormalizeSpread(cell)
			if err != nil {
				w.fieldError(err, "spread")
				continue
			}
			v.Rate.Spread = spread

		case types.RoleAcquisitionDate:
			iso, err := normalize.NormalizeDate(cell)
			if err != nil {
				w.fieldError(err, "acquisition_date")
			}
			v.Acquisition = iso

		case types.RoleMaturityDate:
			iso, err := normalize.NormalizeDate(cell)
			if err != nil {
				w.fieldError(err, "maturity_date")
			}
			v.Maturity = iso

		case types.RolePercentOfNetAssets:
			pct, err := normalize.PercentValue(cell)
			if err != nil {
				w.fieldError(err, "percent_net_assets")
				continue
			}
			v.PercentNA = pct
		}
	}

	w.applyMoneyRoles(cells, v, tokens)
}

func (w *walker) applyMoneyRoles(cells []string, v *rowValues, tokens []moneySlot) {
	type target struct {
		idx   int
		field string
		dst   **float64
	}
	var targets []target
	for _, t := range []target{
		{w.roles.Index(types.RolePrincipal), "principal_amount", &v.Principal},
		{w.roles.Index(types.RoleCost), "cost", &v.Cost},
		{w.roles.Index(types.RoleFairValue), "fair_value", &v.FairValue},
	} {
		if t.idx >= 0 {
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return
	}
	// Column order, so right alignment matches the layout.
	for i := 1; i < len(targets); i++ {
		for j := i; j > 0 && targets[j].idx < targets[j-1].idx; j-- {
			targets[j], targets[j-1] = targets[j-1], targets[j]
		}
	}

	aligned := true
	values := make([]*float64, len(targets))
	for i, t := range targets {
		cell := cellAt(cells, t.idx)
		if cell == "" {
			aligned = false
			break
		}
		val, err := normalize.ParseMoney(cell)
		if err != nil {
			aligned = false
			break
		}
		values[i] = val
	}

	if aligned {
		for i, t := range targets {
			*t.dst = values[i]
		}
		return
	}

	if len(tokens) == 0 {
		return
	}
	for _, t := range targets {
		*t.dst = nil
	}
	offset := len(targets) - len(tokens)
	for i, slot := range tokens {
		if i+offset < 0 {
			continue
		}
		*targets[i+offset].dst = slot.val
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (w *walker) fieldError(err error, field string) {
	var fe *types.FieldError
	if errors.As(err, &fe) {
		if fe.Field == "" {
			fe = fe.WithField(field)
		}
		w.result.FieldErrors = append(w.result.FieldErrors, fe)
	}
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
