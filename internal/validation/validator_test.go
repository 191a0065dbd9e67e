package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

func ptr(f float64) *float64 { return &f }

func rules(errs []*ValidationError) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Field+":"+e.Rule)
	}
	return out
}

func TestValidateCleanRecord(t *testing.T) {
	v := NewValidator()
	r := types.InvestmentRecord{
		CompanyName:        "Acme Corp",
		AcquisitionDate:    "2021-01-01",
		MaturityDate:       "2028-03-01",
		FairValue:          ptr(100),
		InterestRate:       "10.5%",
		Spread:             "5.75%",
		PercentOfNetAssets: ptr(1.2),
	}
	assert.Empty(t, v.ValidateRecord(&r))
}

func TestValidateRecordFindings(t *testing.T) {
	v := NewValidator()
	r := types.InvestmentRecord{
		CompanyName:        "Acme Corp",
		AcquisitionDate:    "2029-01-01",
		MaturityDate:       "2028-03-01",
		FairValue:          ptr(-5),
		Spread:             "575%",
		PIKRate:            "abc",
		PercentOfNetAssets: ptr(150),
	}

	got := rules(v.ValidateRecord(&r))
	assert.ElementsMatch(t, []string{
		"percent_net_assets:lte",
		"maturity_date:after_acquisition",
		"fair_value:non_negative",
		"spread:range",
		"pik_rate:percent",
	}, got)
}

func TestValidateUnparsedDate(t *testing.T) {
	v := NewValidator()
	r := types.InvestmentRecord{CompanyName: "Acme", AcquisitionDate: "2020-01-01", MaturityDate: "soon"}

	got := v.ValidateRecord(&r)
	require.Len(t, got, 1)
	assert.Equal(t, "datetime", got[0].Rule)
	assert.Equal(t, SeverityWarning, got[0].Severity)
}

func TestValidateAll(t *testing.T) {
	records := []types.InvestmentRecord{
		{CompanyName: "Acme", FairValue: ptr(1)},
		{CompanyName: "", FairValue: ptr(1)},
		{CompanyName: "Beta", Cost: ptr(-1)},
	}

	result := NewValidator().ValidateAll(records)
	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 1, result.WarningCount)
	assert.Equal(t, 3, result.RecordsValidated)

	require.Len(t, result.Errors, 2)
	assert.Equal(t, 1, result.Errors[0].Record)
	assert.Equal(t, "company_name", result.Errors[0].Field)
	assert.Equal(t, 2, result.Errors[1].Record)
	assert.Contains(t, result.Warnings()[1], "[WARNING] Record 2 (Beta)")
}

func TestTreatWarningsAsErrors(t *testing.T) {
	opts := DefaultValidationOptions()
	opts.TreatWarningsAsErrors = true

	result := NewValidatorWithOptions(opts).ValidateAll([]types.InvestmentRecord{
		{CompanyName: "Beta", Cost: ptr(-1)},
	})
	assert.False(t, result.IsValid)
	assert.Equal(t, 0, result.ErrorCount)
}
