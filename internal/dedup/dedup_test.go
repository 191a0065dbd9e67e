package dedup

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

func ptr(f float64) *float64 { return &f }

func record(company, investmentType, maturity string, principal, cost, fair *float64) types.InvestmentRecord {
	return types.InvestmentRecord{
		CompanyName:     company,
		InvestmentType:  investmentType,
		Industry:        types.Unknown,
		MaturityDate:    maturity,
		PrincipalAmount: principal,
		Cost:            cost,
		FairValue:       fair,
		Currency:        "USD",
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "acme corp llc", NormalizeName("  ACME Corp., LLC "))
	assert.Equal(t, "beta", NormalizeName("Beta!!!"))
}

func TestStripLegal(t *testing.T) {
	suffixes := config.DefaultProfile().LegalSuffixes

	assert.Equal(t, "acme", StripLegal("Acme Holdings, L.L.C. (fka Acme)", suffixes))
	assert.Equal(t, "beta industries", StripLegal("Beta Industries Inc.", suffixes))
	assert.Equal(t, "holdings", StripLegal("Holdings", suffixes), "a lone suffix is kept")
}

// Two records with identical (company, type, maturity) and identical
// (principal, cost, fair value) collapse to one.
func TestDedupCollapsesDuplicates(t *testing.T) {
	a := record("Acme Corp LLC", "First Lien", "2028-03-01", ptr(1000), ptr(990), ptr(995))
	b := record("ACME Corp, LLC", "first lien", "2028-03-01", ptr(1000), ptr(990), ptr(995))
	c := record("Acme Corp LLC", "First Lien", "2028-03-01", ptr(1000), ptr(990), ptr(900))

	got := Dedup([]types.InvestmentRecord{a, b, c})

	want := []types.InvestmentRecord{a, c}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dedup() mismatch (-want +got):\n%s", diff)
	}
}

func TestDedupIdempotent(t *testing.T) {
	in := []types.InvestmentRecord{
		record("Acme", "Term Loan", "", ptr(1), nil, nil),
		record("Acme", "Term Loan", "", ptr(1), nil, nil),
		record("Beta", "Warrants", "", nil, nil, ptr(5)),
		record("Acme", "Term Loan", "2029-01-01", ptr(1), nil, nil),
		record("Beta", "Warrants", "", nil, nil, ptr(5)),
	}

	once := Dedup(in)
	twice := Dedup(once)

	assert.Len(t, once, 3)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("Dedup is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestKeyDistinguishesAbsentFromZero(t *testing.T) {
	zero := record("Acme", "Term Loan", "", ptr(0), nil, nil)
	absent := record("Acme", "Term Loan", "", nil, nil, nil)
	assert.NotEqual(t, Key(zero), Key(absent))
}

func TestKeyKeepsSubCentAmounts(t *testing.T) {
	a := record("Acme", "Term Loan", "", ptr(1000.001), nil, nil)
	b := record("Acme", "Term Loan", "", ptr(1000.004), nil, nil)
	assert.NotEqual(t, Key(a), Key(b))
	assert.Equal(t, "1000.001", Key(a).Principal)

	assert.Len(t, Dedup([]types.InvestmentRecord{a, b}), 2)
}

func TestReconcileTiers(t *testing.T) {
	m := NewMatcher(config.DefaultProfile())

	fallback := []types.InvestmentRecord{
		{CompanyName: "Acme Corp LLC", InvestmentType: "First Lien", MaturityDate: "2028-03-01", InterestRate: "10%"},
		{CompanyName: "Acme Corp LLC", InvestmentType: "Revolver", MaturityDate: "2027-01-01"},
		{CompanyName: "Beta Industries Inc.", AcquisitionDate: "2021-05-01"},
		{CompanyName: "Gamma Software Holdings LLC", Industry: "Software"},
		{CompanyName: "Deltta Partners", InterestRate: "9%"},
	}
	primary := []types.InvestmentRecord{
		{CompanyName: "Acme Corp LLC", InvestmentType: "Revolver", FairValue: ptr(5)},
		{CompanyName: "ACME CORP, LLC", InvestmentType: "Warrants"},
		{CompanyName: "Beta Industries (fka Beta Co)"},
		{CompanyName: "Gamma Software Group", Industry: types.Unknown},
		{CompanyName: "Delta Partners"},
		{CompanyName: "Omega LP", MaturityDate: "2030-01-01"},
	}

	got, stats := m.Reconcile(primary, fallback)
	require.Len(t, got, len(primary))

	assert.Equal(t, "2027-01-01", got[0].MaturityDate, "tier 1 prefers the same type")
	assert.Equal(t, "2028-03-01", got[1].MaturityDate, "tier 2 falls back to the name")
	assert.Equal(t, "Warrants", got[1].InvestmentType, "populated fields are never overwritten")
	assert.Equal(t, "2021-05-01", got[2].AcquisitionDate, "tier 3 strips suffixes and parentheticals")
	assert.Equal(t, "Software", got[3].Industry, "token containment, Unknown counts as empty")
	assert.Equal(t, "9%", got[4].InterestRate, "similar names match")
	assert.Equal(t, "2030-01-01", got[5].MaturityDate)
	assert.Empty(t, got[5].InterestRate)

	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1, 4: 2}, stats.Matched)
	assert.Equal(t, 1, stats.Unmatched)

	assert.Empty(t, primary[1].MaturityDate, "input is not modified")
}

func TestReconcileWithoutFallback(t *testing.T) {
	m := NewMatcher(config.DefaultProfile())
	primary := []types.InvestmentRecord{{CompanyName: "Acme"}}

	got, stats := m.Reconcile(primary, nil)
	assert.Equal(t, primary, got)
	assert.Equal(t, 1, stats.Unmatched)
}

func TestFillCopiesPointers(t *testing.T) {
	src := types.InvestmentRecord{Cost: ptr(10)}
	dst := Fill(types.InvestmentRecord{}, src)

	require.NotNil(t, dst.Cost)
	*src.Cost = 20
	assert.Equal(t, 10.0, *dst.Cost)
}

func TestSimilarity(t *testing.T) {
	m := NewMatcher(config.DefaultProfile())
	assert.Equal(t, 1.0, m.Similarity("Acme Corp", "ACME corp"))
	assert.Less(t, m.Similarity("Acme", "Zeta Clinics"), 0.5)
}
