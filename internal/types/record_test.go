package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestNewInvestmentRecordDefaults(t *testing.T) {
	r, err := NewInvestmentRecord(InvestmentRecord{CompanyName: "  Acme Corp ", FairValue: ptr(0)})
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", r.CompanyName)
	assert.Equal(t, Unknown, r.InvestmentType)
	assert.Equal(t, Unknown, r.Industry)
	assert.Equal(t, "USD", r.Currency)
}

func TestNewInvestmentRecordKeepsTypedRecordWithoutAmounts(t *testing.T) {
	r, err := NewInvestmentRecord(InvestmentRecord{CompanyName: "Acme Corp", InvestmentType: "Warrants", Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, "EUR", r.Currency)
}

func TestNewInvestmentRecordRejects(t *testing.T) {
	_, err := NewInvestmentRecord(InvestmentRecord{CompanyName: " ", Cost: ptr(1)})
	assert.ErrorIs(t, err, ErrUnresolvedIdentifier)

	_, err = NewInvestmentRecord(InvestmentRecord{CompanyName: UnknownCompany, Cost: ptr(1)})
	assert.ErrorIs(t, err, ErrUnresolvedIdentifier)

	_, err = NewInvestmentRecord(InvestmentRecord{CompanyName: "Acme Corp"})
	assert.ErrorIs(t, err, ErrNotRetainable)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]InvestmentRecord{
		{Industry: "Software", InvestmentType: "First Lien", PrincipalAmount: ptr(100), FairValue: ptr(90)},
		{Industry: "Software", InvestmentType: "Warrants", Cost: ptr(5)},
		{Industry: Unknown, InvestmentType: "First Lien"},
	})

	assert.Equal(t, 3, s.TotalInvestments)
	assert.Equal(t, 100.0, s.TotalPrincipal)
	assert.Equal(t, 5.0, s.TotalCost)
	assert.Equal(t, 90.0, s.TotalFairValue)
	assert.Equal(t, map[string]int{"Software": 2, Unknown: 1}, s.IndustryBreakdown)
	assert.Equal(t, map[string]int{"First Lien": 2, "Warrants": 1}, s.InvestmentTypeBreakdown)

	empty := Summarize(nil)
	assert.Zero(t, empty.TotalInvestments)
	assert.NotNil(t, empty.IndustryBreakdown)
}

func TestFieldError(t *testing.T) {
	fe := NewFieldError("", "12/31/xx", "unrecognized date format")
	assert.Equal(t, `unparseable field: "12/31/xx": unrecognized date format`, fe.Error())

	labelled := fe.WithField("maturity_date")
	assert.Equal(t, `unparseable field maturity_date: "12/31/xx": unrecognized date format`, labelled.Error())
	assert.Empty(t, fe.Field, "WithField must not modify the receiver")

	var err error = labelled
	assert.True(t, errors.Is(err, ErrUnparseableField))
}

func TestContextDate(t *testing.T) {
	assert.Equal(t, "2025-06-30", Context{Instant: "2025-06-30", EndDate: "2025-03-31"}.Date())
	assert.Equal(t, "2025-03-31", Context{StartDate: "2025-01-01", EndDate: "2025-03-31"}.Date())
}
