package classifier

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/schedule-extractor/internal/columns"
	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/grammar"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	profile := config.DefaultProfile()
	parser, err := grammar.New(profile)
	require.NoError(t, err)
	return New(profile, parser, columns.New(profile))
}

func ptr(f float64) *float64 { return &f }

func TestClassify(t *testing.T) {
	c := newClassifier(t)

	tests := []struct {
		name  string
		cells []string
		want  State
	}{
		{"blank", []string{"", " ", ""}, StateBlank},
		{"total", []string{"Total Software", "", "$1,000"}, StateTotal},
		{"total in second cell", []string{"", "Total Investments", "$1,000"}, StateTotal},
		{"not a total", []string{"Totally Awesome Inc", "Software"}, StateCompanyOrIndustry},
		{"repeated header", []string{"Portfolio Company", "Investment Type", "Principal", "Fair Value"}, StateHeader},
		{"section banner", []string{"Non-controlled/non-affiliated investments", "", "152.3%"}, StateSectionMarker},
		{"industry marker", []string{"Software"}, StateCompanyOrIndustry},
		{"company marker", []string{"Beta Industries Inc", "Software"}, StateCompanyOrIndustry},
		{"detail", []string{"Acme Corp", "First Lien", "SOFR+", "5.75%", "$1,000"}, StateDetail},
		{"continuation", []string{"", "", "12.50%", "SOFR+", "6.50%", "03/01/2028", "$1,500,000"}, StateContinuation},
		{"first lien detail is not a section", []string{"First Lien Term Loan", "3/1/2028", "$500"}, StateDetail},
		{"empty first cell without signal", []string{"", "see note"}, StateBlank},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.cells))
		})
	}
}

func TestDetailSignal(t *testing.T) {
	assert.True(t, DetailSignal([]string{"", "5%"}))
	assert.True(t, DetailSignal([]string{"LIBOR + 5.50"}))
	assert.True(t, DetailSignal([]string{"March 2027"}))
	assert.True(t, DetailSignal([]string{"$12"}))
	assert.True(t, DetailSignal([]string{"1,250"}))
	assert.False(t, DetailSignal([]string{"Acme Corp", "Software", "2024"}))
	assert.False(t, DetailSignal([]string{"Prime Healthcare Services LLC"}))
}

func TestIsMoneyToken(t *testing.T) {
	assert.True(t, IsMoneyToken("$ 5"))
	assert.True(t, IsMoneyToken("(1,250)"))
	assert.True(t, IsMoneyToken("950"))
	assert.False(t, IsMoneyToken("2028"))
	assert.False(t, IsMoneyToken("12"))
	assert.False(t, IsMoneyToken("Acme"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CONTINUATION", StateContinuation.String())
	assert.Equal(t, "COMPANY_OR_INDUSTRY_MARKER", StateCompanyOrIndustry.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}

func TestCarryState(t *testing.T) {
	var c CarryState
	c.SetIndustry("Software")
	c.SetCompany("Acme Corp")
	c.Rate = RateTerms{ReferenceRate: "SOFR", Spread: "5%"}

	c.SetCompany("Acme Corp")
	assert.Equal(t, "SOFR", c.Rate.ReferenceRate, "same company keeps its rate terms")

	c.SetCompany("Beta LLC")
	assert.Empty(t, c.Rate)
	assert.Equal(t, "Software", c.Industry)

	c.SetIndustry("Healthcare")
	assert.Empty(t, c.Company)

	c.Reset()
	assert.Equal(t, CarryState{}, c)
}

// Beta's details sit on a continuation row below the company marker.
func TestWalkContinuationInheritsMarker(t *testing.T) {
	c := newClassifier(t)

	table := types.Table{Rows: [][]string{
		{"Beta Industries Inc", "Software"},
		{"", "", "12.50%", "SOFR+", "6.50%", "03/01/2028", "$1,500,000"},
	}}

	res := c.Walk(table, nil, -1, decimal.NewFromInt(1))

	assert.Equal(t, []State{StateCompanyOrIndustry, StateContinuation}, res.States)
	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, "Beta Industries Inc", r.CompanyName)
	assert.Equal(t, "Software", r.Industry)
	assert.Equal(t, types.Unknown, r.InvestmentType)
	assert.Equal(t, "12.5%", r.InterestRate)
	assert.Equal(t, "SOFR", r.ReferenceRate)
	assert.Equal(t, "6.50%", r.Spread)
	assert.Equal(t, "2028-03-01", r.MaturityDate)
	assert.Equal(t, ptr(1500000), r.PrincipalAmount)
	assert.Nil(t, r.Cost)
	assert.Equal(t, "USD", r.Currency)
}

var scheduleHeader = []string{"Portfolio Company", "Investment Type", "Reference Rate", "Spread", "Maturity Date", "Principal", "Cost", "Fair Value"}

func scheduleTable() types.Table {
	return types.Table{Rows: [][]string{
		scheduleHeader,
		{"Software", "", "", "", "", "", "", ""},
		{"Acme Corp LLC (1)", "First Lien Term Loan", "SOFR", "5.75%", "01/15/2029", "$1,000,000", "$990,000", "$995,000"},
		{"", "Delayed Draw Term Loan", "", "", "01/15/2029", "$200,000", "$198,000", "$199,000"},
		{"", "Warrants", "", "", "", "", "$50,000", "$60,000"},
		{"Total Software", "", "", "", "", "$1,200,000", "$1,238,000", "$1,254,000"},
		{"Healthcare", "", "", "", "", "", "", ""},
		{"", "Term Loan", "", "", "", "$10", "$10", "$10"},
		{"Zeta Clinics LLC", "Second Lien Term Loan", "LIBOR", "700", "6/30/2030", "$—", "$400", "(25)"},
	}}
}

func TestWalkSchedule(t *testing.T) {
	c := newClassifier(t)
	table := scheduleTable()

	roles, headerIdx, found := columns.New(config.DefaultProfile()).Infer(table.Rows)
	require.True(t, found)
	require.Equal(t, 0, headerIdx)

	res := c.Walk(table, roles, headerIdx, decimal.NewFromInt(1))

	assert.Equal(t, []State{
		StateHeader,
		StateCompanyOrIndustry,
		StateDetail,
		StateContinuation,
		StateContinuation,
		StateTotal,
		StateCompanyOrIndustry,
		StateContinuation,
		StateDetail,
	}, res.States)

	require.Len(t, res.Records, 4)
	assert.Equal(t, 1, res.Dropped[DropUnresolved], "continuation after an industry reset has no company")

	acme := res.Records[0]
	assert.Equal(t, "Acme Corp LLC", acme.CompanyName)
	assert.Equal(t, "Software", acme.Industry)
	assert.Equal(t, "First Lien Term Loan", acme.InvestmentType)
	assert.Equal(t, "SOFR", acme.ReferenceRate)
	assert.Equal(t, "5.75%", acme.Spread)
	assert.Equal(t, "2029-01-15", acme.MaturityDate)
	assert.Equal(t, ptr(1000000), acme.PrincipalAmount)
	assert.Equal(t, ptr(990000), acme.Cost)
	assert.Equal(t, ptr(995000), acme.FairValue)

	ddtl := res.Records[1]
	assert.Equal(t, "Acme Corp LLC", ddtl.CompanyName)
	assert.Equal(t, "Software", ddtl.Industry)
	assert.Equal(t, "Delayed Draw Term Loan", ddtl.InvestmentType)
	assert.Equal(t, "SOFR", ddtl.ReferenceRate, "debt continuation inherits rate terms")
	assert.Equal(t, "5.75%", ddtl.Spread)

	warrants := res.Records[2]
	assert.Equal(t, "Acme Corp LLC", warrants.CompanyName)
	assert.Equal(t, "Warrants", warrants.InvestmentType)
	assert.Empty(t, warrants.ReferenceRate, "equity never inherits rate terms")
	assert.Nil(t, warrants.PrincipalAmount)
	assert.Equal(t, ptr(50000), warrants.Cost)
	assert.Equal(t, ptr(60000), warrants.FairValue)

	zeta := res.Records[3]
	assert.Equal(t, "Zeta Clinics LLC", zeta.CompanyName)
	assert.Equal(t, "Healthcare", zeta.Industry)
	assert.Equal(t, "LIBOR", zeta.ReferenceRate)
	assert.Equal(t, "7%", zeta.Spread)
	assert.Equal(t, "2030-06-30", zeta.MaturityDate)
	assert.Nil(t, zeta.PrincipalAmount)
	assert.Equal(t, ptr(400), zeta.Cost)
	assert.Equal(t, ptr(-25), zeta.FairValue)
}

func TestWalkCarryForward(t *testing.T) {
	c := newClassifier(t)

	rows := [][]string{{"Gamma Holdings LLC", "Software"}}
	for i := 0; i < 5; i++ {
		rows = append(rows, []string{"", "Term Loan", "$1,000", "$1,000"})
	}

	res := c.Walk(types.Table{Rows: rows}, nil, -1, decimal.NewFromInt(1))

	require.Len(t, res.Records, 5)
	for _, r := range res.Records {
		assert.Equal(t, "Gamma Holdings LLC", r.CompanyName)
		assert.Equal(t, "Software", r.Industry)
	}
}

// Every row after a company marker reports that company until the next
// marker, whatever instrument label the row itself starts with.
func TestWalkCarryForwardAcrossCompanies(t *testing.T) {
	tests := []struct {
		name     string
		first    string
		wantType string
	}{
		{"empty first cell", "", types.Unknown},
		{"tranche letter", "Term Loan B", "Term Loan B"},
		{"lien and tranche", "First Lien Term Loan A", "First Lien Term Loan A"},
		{"equity class", "Class A Units", "Class A Units"},
		{"qualified loan", "Incremental Term Loan", "Incremental Term Loan"},
		{"share count", "Common Stock (1,000 shares)", "Common Stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClassifier(t)
			table := types.Table{Rows: [][]string{
				{"Acme Corp LLC", "Software"},
				{tt.first, "SOFR+", "5.75%", "3/1/2028", "$1,000"},
				{"", "", "", "", "$2,000"},
				{tt.first, "SOFR+", "5.75%", "3/1/2028", "$1,500"},
				{"Beta Industries Inc", "Healthcare"},
				{tt.first, "SOFR+", "6.00%", "6/30/2029", "$3,000"},
			}}

			res := c.Walk(table, nil, -1, decimal.NewFromInt(1))

			require.Len(t, res.Records, 4)
			want := []struct{ company, industry string }{
				{"Acme Corp LLC", "Software"},
				{"Acme Corp LLC", "Software"},
				{"Acme Corp LLC", "Software"},
				{"Beta Industries Inc", "Healthcare"},
			}
			for i, w := range want {
				assert.Equal(t, w.company, res.Records[i].CompanyName, "record %d", i)
				assert.Equal(t, w.industry, res.Records[i].Industry, "record %d", i)
			}

			assert.Equal(t, tt.wantType, res.Records[0].InvestmentType)
			assert.Equal(t, types.Unknown, res.Records[1].InvestmentType)
			assert.Equal(t, tt.wantType, res.Records[2].InvestmentType)
			assert.Equal(t, tt.wantType, res.Records[3].InvestmentType)
			assert.Equal(t, "6.00%", res.Records[3].Spread)
			assert.Equal(t, ptr(3000), res.Records[3].PrincipalAmount)
		})
	}
}

// A lone cell is an industry unless it reads as a company heading; a lone
// instrument label leaves the carried values alone.
func TestWalkLoneMarkerCells(t *testing.T) {
	c := newClassifier(t)
	one := decimal.NewFromInt(1)

	res := c.Walk(types.Table{Rows: [][]string{
		{"Software"},
		{"Acme Holdings LLC"},
		{"", "First Lien", "5.75%", "$1,000"},
	}}, nil, -1, one)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Acme Holdings LLC", res.Records[0].CompanyName)
	assert.Equal(t, "Software", res.Records[0].Industry)
	assert.Equal(t, "First Lien", res.Records[0].InvestmentType)

	res = c.Walk(types.Table{Rows: [][]string{
		{"Acme Holdings LLC", "Software"},
		{"Term Loan B"},
		{"", "", "$5,000"},
	}}, nil, -1, one)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Acme Holdings LLC", res.Records[0].CompanyName)
	assert.Equal(t, "Software", res.Records[0].Industry)

	res = c.Walk(types.Table{Rows: [][]string{
		{"Acme Holdings LLC", "Software"},
		{"Consumer Durables"},
		{"", "Term Loan", "$5,000"},
	}}, nil, -1, one)
	assert.Empty(t, res.Records, "an industry heading clears the company")
	assert.Equal(t, 1, res.Dropped[DropUnresolved])
}

func TestWalkResetsBetweenTables(t *testing.T) {
	c := newClassifier(t)
	one := decimal.NewFromInt(1)

	first := c.Walk(types.Table{Rows: [][]string{{"Gamma Holdings LLC", "Software"}}}, nil, -1, one)
	assert.Empty(t, first.Records)

	second := c.Walk(types.Table{Rows: [][]string{{"", "Term Loan", "$1,000"}}}, nil, -1, one)
	assert.Empty(t, second.Records)
	assert.Equal(t, 1, second.Dropped[DropUnresolved])
}

func TestWalkAppliesScale(t *testing.T) {
	c := newClassifier(t)

	table := types.Table{Rows: [][]string{
		{"Acme Corp", "First Lien", "$", "1,500", "(200)"},
	}}
	res := c.Walk(table, nil, -1, decimal.NewFromInt(1000))

	require.Len(t, res.Records, 1)
	assert.Equal(t, ptr(1500000), res.Records[0].PrincipalAmount)
	assert.Equal(t, ptr(-200000), res.Records[0].Cost)
}

func TestWalkDropsTypelessRowsWithoutAmounts(t *testing.T) {
	c := newClassifier(t)

	table := types.Table{Rows: [][]string{
		{"Acme Corp", "Software"},
		{"", "", "12.5%"},
	}}
	res := c.Walk(table, nil, -1, decimal.NewFromInt(1))

	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Dropped[DropNotRetainable])
}

func TestWalkRecordsFieldErrors(t *testing.T) {
	c := newClassifier(t)

	header := []string{"Portfolio Company", "Investment", "Maturity", "Principal", "Fair Value"}
	table := types.Table{Rows: [][]string{
		header,
		{"Acme Corp", "First Lien", "soon", "$100", "$90"},
	}}
	roles, headerIdx, _ := columns.New(config.DefaultProfile()).Infer(table.Rows)

	res := c.Walk(table, roles, headerIdx, decimal.NewFromInt(1))

	require.Len(t, res.Records, 1)
	assert.Equal(t, "soon", res.Records[0].MaturityDate, "unparseable dates pass through")
	require.Len(t, res.FieldErrors, 1)
	assert.Equal(t, "maturity_date", res.FieldErrors[0].Field)
	assert.ErrorIs(t, res.FieldErrors[0], types.ErrUnparseableField)
}

func TestLooksLikeCompany(t *testing.T) {
	c := newClassifier(t)
	assert.True(t, c.LooksLikeCompany("Acme Holdings, Inc."))
	assert.True(t, c.LooksLikeCompany("Zeta Clinics LLC"))
	assert.False(t, c.LooksLikeCompany("Aerospace & Defense"))
	assert.False(t, c.LooksLikeCompany("Inc"))
}
