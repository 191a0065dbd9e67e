package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// INVESTMENT RECORD
// =============================================================================

// InvestmentRecord is the unit of output: one holding of the fund.
//
// Money fields and PercentOfNetAssets are pointers so that "absent" and
// "zero" stay distinct. Rate terms and dates are strings; empty means absent.
type InvestmentRecord struct {
	CompanyName         string   `json:"company_name" validate:"required"`
	BusinessDescription string   `json:"business_description,omitempty"`
	InvestmentType      string   `json:"investment_type"`
	Industry            string   `json:"industry"`
	AcquisitionDate     string   `json:"acquisition_date,omitempty"`
	MaturityDate        string   `json:"maturity_date,omitempty"`
	PrincipalAmount     *float64 `json:"principal_amount,omitempty"`
	Cost                *float64 `json:"cost,omitempty"`
	FairValue           *float64 `json:"fair_value,omitempty"`
	InterestRate        string   `json:"interest_rate,omitempty"`
	ReferenceRate       string   `json:"reference_rate,omitempty"`
	Spread              string   `json:"spread,omitempty"`
	FloorRate           string   `json:"floor_rate,omitempty"`
	PIKRate             string   `json:"pik_rate,omitempty"`
	SharesUnits         string   `json:"shares_units,omitempty"`
	PercentOfNetAssets  *float64 `json:"percent_net_assets,omitempty" validate:"omitempty,gte=0,lte=100"`
	Currency            string   `json:"currency,omitempty"`
	CommitmentLimit     *float64 `json:"commitment_limit,omitempty"`
	UndrawnCommitment   *float64 `json:"undrawn_commitment,omitempty"`
}

// NewInvestmentRecord finalizes a candidate record. It applies the defaults
// ("Unknown" type and industry, "USD" currency) and enforces the retention
// invariant: a non-empty company name and at least one of principal, cost,
// fair value, or a known investment type.
//
// RETURNS:
//   - The finalized record.
//   - ErrUnresolvedIdentifier when the company name is missing.
//   - ErrNotRetainable when the record carries neither values nor a type.
func NewInvestmentRecord(r InvestmentRecord) (InvestmentRecord, error) {
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	if r.CompanyName == "" || r.CompanyName == UnknownCompany {
		return r, fmt.Errorf("%w: empty company name", ErrUnresolvedIdentifier)
	}

	if strings.TrimSpace(r.InvestmentType) == "" {
		r.InvestmentType = Unknown
	}
	if strings.TrimSpace(r.Industry) == "" {
		r.Industry = Unknown
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}

	if !r.HasValue() && r.InvestmentType == Unknown {
		return r, fmt.Errorf("%w: %s has no amounts and no investment type", ErrNotRetainable, r.CompanyName)
	}

	return r, nil
}

// HasValue reports whether any of principal, cost or fair value is present.
func (r InvestmentRecord) HasValue() bool {
	return r.PrincipalAmount != nil || r.Cost != nil || r.FairValue != nil
}

// =============================================================================
// DEDUP KEY
// =============================================================================

// DedupKey identifies an instrument for deduplication. Two records with the
// same key and the same value tuple are duplicates.
type DedupKey struct {
	Company      string
	Type         string
	MaturityDate string
	Principal    string
	Cost         string
	FairValue    string
}

// =============================================================================
// AGGREGATE SUMMARY
// =============================================================================

// Summary is returned alongside the records.
type Summary struct {
	TotalInvestments        int            `json:"total_investments"`
	TotalPrincipal          float64        `json:"total_principal"`
	TotalCost               float64        `json:"total_cost"`
	TotalFairValue          float64        `json:"total_fair_value"`
	IndustryBreakdown       map[string]int `json:"industry_breakdown"`
	InvestmentTypeBreakdown map[string]int `json:"investment_type_breakdown"`
}

// Summarize aggregates a finalized record set.
func Summarize(records []InvestmentRecord) Summary {
	s := Summary{
		TotalInvestments:        len(records),
		IndustryBreakdown:       make(map[string]int),
		InvestmentTypeBreakdown: make(map[string]int),
	}

	for _, r := range records {
		if r.PrincipalAmount != nil {
			s.TotalPrincipal += *r.PrincipalAmount
		}
		if r.Cost != nil {
			s.TotalCost += *r.Cost
		}
		if r.FairValue != nil {
			s.TotalFairValue += *r.FairValue
		}
		s.IndustryBreakdown[r.Industry]++
		s.InvestmentTypeBreakdown[r.InvestmentType]++
	}

	return s
}
