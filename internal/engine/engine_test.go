package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

func ptr(f float64) *float64 { return &f }

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	e, err := New(nil, opts...)
	require.NoError(t, err)
	return e
}

func dimensionalDoc() *types.RawDocument {
	return &types.RawDocument{
		Source: "acme_10q.xml",
		Kind:   types.KindDimensional,
		Contexts: []types.Context{
			{ID: "c1", Identifier: "Acme Corp LLC, First Lien Secured Debt", Instant: "2025-06-30"},
			{ID: "c0", Identifier: "Old Holdings LLC, Warrants", Instant: "2024-12-31"},
			{ID: "c2", Instant: "2025-06-30"},
		},
		Facts: []types.Fact{
			{ContextRef: "c1", Concept: "PrincipalAmount", Value: "1,000,000", Unit: "usd"},
			{ContextRef: "c1", Concept: "FairValue", Value: "950,000", Unit: "usd"},
			{ContextRef: "c0", Concept: "FairValue", Value: "10", Unit: "usd"},
			{ContextRef: "c2", Concept: "FairValue", Value: "99", Unit: "usd"},
		},
	}
}

// scheduleDoc is a table of company markers, each followed by a
// continuation row carrying the instrument terms.
func scheduleDoc() *types.RawDocument {
	return &types.RawDocument{
		Source: "beta_10q.htm",
		Kind:   types.KindTabular,
		Tables: []types.Table{{
			Index:   0,
			Heading: []string{"Consolidated Schedule of Investments"},
			Rows: [][]string{
				{"Beta Industries Inc", "Software"},
				{"", "", "12.50%", "SOFR+", "6.50%", "03/01/2028", "$1,500,000"},
				{"Gamma Clinics LLC", "Healthcare"},
				{"", "", "10.00%", "SOFR+", "5.00%", "06/30/2029", "$2,000,000"},
				{"Delta Publishing Corp", "Media"},
				{"", "", "11.25%", "LIBOR+", "6.00%", "09/15/2027", "$750,000"},
				{"Epsilon Stores Inc", "Retail"},
				{"", "", "9.75%", "SOFR+", "4.75%", "12/31/2030", "$3,000,000"},
				{"Kappa Logistics LLC", "Transportation"},
				{"", "", "13.00%", "SOFR+", "7.00%", "01/31/2029", "$500,000"},
				{"Beta Industries Inc", "Software"},
				{"", "", "12.50%", "SOFR+", "6.50%", "03/01/2028", "$1,500,000"},
			},
		}},
	}
}

// A context's identifier and its facts become one record.
func TestExtractDimensional(t *testing.T) {
	e := newEngine(t)

	res := e.Extract(dimensionalDoc())

	require.NoError(t, res.Diagnostics.Err)
	assert.Equal(t, types.KindDimensional, res.Kind)
	assert.Equal(t, "2025-06-30", res.Diagnostics.Period)
	assert.Equal(t, 1, res.Diagnostics.Contexts, "contexts without identifier are ignored")

	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, "Acme Corp LLC", r.CompanyName)
	assert.Equal(t, "First Lien Secured Debt", r.InvestmentType)
	assert.Equal(t, ptr(1000000), r.PrincipalAmount)
	assert.Equal(t, ptr(950000), r.FairValue)
	assert.Equal(t, "USD", r.Currency)

	assert.Equal(t, 1, res.Summary.TotalInvestments)
	assert.Equal(t, 950000.0, res.Summary.TotalFairValue)
}

func TestBuildFromContextFacts(t *testing.T) {
	e := newEngine(t)

	r, fieldErrs := e.BuildFromContext(types.Context{
		ID:         "c1",
		Identifier: "Acme Corp LLC, First Lien Term Loan (SOFR + 5.75%)",
		Industry:   "Software",
		Instant:    "2025-06-30",
		Facts: []types.Fact{
			{Concept: "us-gaap:InvestmentInterestRate", Value: "0.105"},
			{Concept: "InvestmentBasisSpreadVariableRate", Value: "0.06"},
			{Concept: "InvestmentInterestRateFloor", Value: "0.01"},
			{Concept: "InvestmentMaturityDate", Value: "2028-03-01"},
			{Concept: "InvestmentOwnedPercentOfNetAssets", Value: "0.012"},
			{Concept: "InvestmentOwnedAtCost", Value: "n/a"},
			{Concept: "InvestmentOwnedAtFairValue", Value: "(1,250)", Unit: "iso4217_EUR"},
			{Concept: "InvestmentOwnedBalanceShares", Value: "1,000"},
			{Concept: "DocumentType", Value: "10-Q"},
		},
	})

	assert.Equal(t, "Acme Corp LLC", r.CompanyName)
	assert.Equal(t, "Software", r.Industry)
	assert.Equal(t, "SOFR", r.ReferenceRate)
	assert.Equal(t, "6%", r.Spread, "facts override the identifier text")
	assert.Equal(t, "10.5%", r.InterestRate)
	assert.Equal(t, "1%", r.FloorRate)
	assert.Equal(t, "2028-03-01", r.MaturityDate)
	assert.Equal(t, ptr(1.2), r.PercentOfNetAssets)
	assert.Equal(t, ptr(-1250), r.FairValue)
	assert.Equal(t, "EUR", r.Currency)
	assert.Equal(t, "1,000", r.SharesUnits)
	assert.Nil(t, r.Cost)

	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "cost", fieldErrs[0].Field)
	assert.True(t, errors.Is(fieldErrs[0], types.ErrUnparseableField))
}

func TestFieldOf(t *testing.T) {
	e := newEngine(t)

	assert.Equal(t, "floor_rate", e.FieldOf("us-gaap:InvestmentInterestRateFloor"))
	assert.Equal(t, "percent_net_assets", e.FieldOf("InvestmentOwnedPercentOfNetAssets"))
	assert.Equal(t, "undrawn_commitment", e.FieldOf("UnfundedCommitmentAmount"))
	assert.Equal(t, "", e.FieldOf("DocumentType"))
}

// A continuation row below a company marker inherits the marker's
// company and industry.
func TestExtractTabular(t *testing.T) {
	e := newEngine(t)

	res := e.Extract(scheduleDoc())

	require.NoError(t, res.Diagnostics.Err)
	assert.Equal(t, 1, res.Diagnostics.Tables)
	assert.Equal(t, 1, res.Diagnostics.Duplicates)
	require.Len(t, res.Records, 5)

	beta := res.Records[0]
	assert.Equal(t, "Beta Industries Inc", beta.CompanyName)
	assert.Equal(t, "Software", beta.Industry)
	assert.Equal(t, "SOFR", beta.ReferenceRate)
	assert.Equal(t, "6.50%", beta.Spread)
	assert.Equal(t, "2028-03-01", beta.MaturityDate)
	assert.Equal(t, ptr(1500000), beta.PrincipalAmount)

	delta := res.Records[2]
	assert.Equal(t, "Delta Publishing Corp", delta.CompanyName)
	assert.Equal(t, "LIBOR", delta.ReferenceRate)

	assert.Equal(t, 5, res.Summary.TotalInvestments)
	assert.Equal(t, 7750000.0, res.Summary.TotalPrincipal)
	assert.Equal(t, 1, res.Summary.IndustryBreakdown["Software"])
	assert.Equal(t, 5, res.Summary.InvestmentTypeBreakdown[types.Unknown])
}

func TestExtractAppliesScaleHint(t *testing.T) {
	e := newEngine(t)
	doc := scheduleDoc()
	doc.ScaleHints = []string{"(dollar amounts in thousands)"}

	res := e.Extract(doc)

	require.NotEmpty(t, res.Records)
	assert.Equal(t, ptr(1500000000), res.Records[0].PrincipalAmount)
}

func TestExtractWithoutSchedule(t *testing.T) {
	e := newEngine(t)

	res := e.Extract(&types.RawDocument{
		Source: "press_release.htm",
		Kind:   types.KindTabular,
		Tables: []types.Table{{Rows: [][]string{{"Revenue", "$10"}, {"Net income", "$2"}}}},
	})

	assert.True(t, res.Diagnostics.Degraded())
	assert.True(t, errors.Is(res.Diagnostics.Err, types.ErrNoCandidateTables))
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, res.Summary.TotalInvestments)
	require.NotEmpty(t, res.Diagnostics.Warnings)
	assert.Contains(t, res.Diagnostics.Warnings[0], "no candidate tables")
}

func TestExtractWithoutContexts(t *testing.T) {
	e := newEngine(t)

	res := e.Extract(&types.RawDocument{Source: "empty.xml", Kind: types.KindDimensional})

	assert.True(t, errors.Is(res.Diagnostics.Err, types.ErrNoCandidateContexts))
	assert.Empty(t, res.Records)
}

func TestStandardizer(t *testing.T) {
	e := newEngine(t, WithStandardizer(StandardizerFunc(strings.ToUpper)))

	res := e.Extract(scheduleDoc())

	require.NotEmpty(t, res.Records)
	assert.Equal(t, "SOFTWARE", res.Records[0].Industry)
	assert.Equal(t, types.Unknown, res.Records[0].InvestmentType, "Unknown is never standardized")
}

func TestReconcile(t *testing.T) {
	e := newEngine(t)

	primary := Result{
		Source: "acme_10q.xml",
		Records: []types.InvestmentRecord{
			{CompanyName: "Acme Corp LLC", InvestmentType: "First Lien", Industry: types.Unknown, FairValue: ptr(950)},
			{CompanyName: "Omega LP", InvestmentType: "Warrants", Industry: types.Unknown, FairValue: ptr(1)},
		},
		Diagnostics: Diagnostics{Dropped: map[string]int{}},
	}
	fallback := Result{
		Source: "acme_10q.htm",
		Records: []types.InvestmentRecord{
			{CompanyName: "ACME CORP, LLC", InvestmentType: "First Lien", Industry: "Software", MaturityDate: "2028-03-01", FairValue: ptr(1)},
		},
	}

	out := e.Reconcile(primary, fallback)

	require.Len(t, out.Records, 2)
	assert.Equal(t, "Software", out.Records[0].Industry)
	assert.Equal(t, "2028-03-01", out.Records[0].MaturityDate)
	assert.Equal(t, ptr(950), out.Records[0].FairValue, "primary values win")
	assert.Equal(t, 1, out.Summary.IndustryBreakdown["Software"])
	assert.Contains(t, out.Diagnostics.Warnings, "1 records had no match in acme_10q.htm")
	assert.Empty(t, primary.Records[0].MaturityDate)
}

func TestRunBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := newEngine(t)
	jobs := []Job{
		{Engine: e, Doc: dimensionalDoc()},
		{Engine: e, Doc: scheduleDoc()},
		{Engine: e, Doc: &types.RawDocument{Source: "none.htm", Kind: types.KindTabular}},
		{Engine: e, Doc: &types.RawDocument{Source: "none.htm", Kind: types.KindTabular}, Fallback: scheduleDoc()},
	}

	results, err := RunBatch(context.Background(), jobs, 2)

	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "acme_10q.xml", results[0].Source)
	assert.Len(t, results[0].Records, 1)
	assert.Len(t, results[1].Records, 5)
	assert.True(t, results[2].Diagnostics.Degraded())
	assert.Len(t, results[3].Records, 5, "a degraded primary is replaced by its fallback")
	assert.Contains(t, strings.Join(results[3].Diagnostics.Warnings, "\n"), "no candidate tables")
}

func TestRunBatchCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunBatch(ctx, []Job{{Engine: newEngine(t), Doc: scheduleDoc()}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVocabularyStandardizer(t *testing.T) {
	profile := config.DefaultProfile()
	profile.LabelAliases = map[string]string{"Healthcare & Pharmaceuticals": "Healthcare"}
	s := NewVocabularyStandardizer(profile)

	assert.Equal(t, "Software", s.Standardize("  SOFTWARE "))
	assert.Equal(t, "Healthcare", s.Standardize("healthcare &  pharmaceuticals"))
	assert.Equal(t, "First Lien Term Loan", s.Standardize("first lien term loan"))
	assert.Equal(t, "Unitranche DDTL", s.Standardize("Unitranche DDTL"))
}

// Validation findings point into the deduplicated record slice.
func TestExtractValidatesAfterDedup(t *testing.T) {
	e := newEngine(t)

	doc := &types.RawDocument{
		Source: "zeta_10q.xml",
		Kind:   types.KindDimensional,
		Contexts: []types.Context{
			{ID: "c1", Identifier: "Acme Corp LLC, First Lien Term Loan", Instant: "2025-06-30"},
			{ID: "c2", Identifier: "Acme Corp LLC, First Lien Term Loan", Instant: "2025-06-30"},
			{ID: "c3", Identifier: "Zeta Clinics LLC, Second Lien Term Loan", Instant: "2025-06-30"},
		},
		Facts: []types.Fact{
			{ContextRef: "c1", Concept: "FairValue", Value: "1,000", Unit: "usd"},
			{ContextRef: "c2", Concept: "FairValue", Value: "1,000", Unit: "usd"},
			{ContextRef: "c3", Concept: "FairValue", Value: "(5,000)", Unit: "usd"},
		},
	}

	res := e.Extract(doc)

	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Diagnostics.Duplicates)
	require.NotNil(t, res.Diagnostics.Validation)
	assert.Equal(t, 2, res.Diagnostics.Validation.RecordsValidated)

	var found bool
	for _, finding := range res.Diagnostics.Validation.Errors {
		if finding.Field != "fair_value" {
			continue
		}
		found = true
		require.Less(t, finding.Record, len(res.Records))
		assert.Equal(t, 1, finding.Record)
		assert.Equal(t, "Zeta Clinics LLC", res.Records[finding.Record].CompanyName)
	}
	assert.True(t, found, "negative fair value is reported")
}
