package engine

import (
	"errors"
	"strings"

	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/normalize"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// CONCEPT MAPPING
// =============================================================================

type conceptRule struct {
	contains string
	field    string
}

func compileConcepts(rules []config.ConceptRule) []conceptRule {
	out := make([]conceptRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, conceptRule{contains: strings.ToLower(r.Contains), field: r.Field})
	}
	return out
}

// FieldOf returns the output field a fact concept maps to, or "".
// The first rule whose fragment occurs in the concept's local name wins.
func (e *Engine) FieldOf(concept string) string {
	if i := strings.LastIndex(concept, ":"); i >= 0 {
		concept = concept[i+1:]
	}
	name := strings.ToLower(concept)
	for _, r := range e.concepts {
		if strings.Contains(name, r.contains) {
			return r.field
		}
	}
	return ""
}

// =============================================================================
// RECORD FROM CONTEXT
// =============================================================================

// BuildFromContext builds a candidate record from one dimensional context.
// The identifier is parsed first; typed facts then override whatever the
// text said. Fact amounts are in whole units and are not scaled.
//
// RETURNS:
//   - The candidate record (not yet finalized).
//   - The fact values that failed to parse, labelled with their field.
func (e *Engine) BuildFromContext(c types.Context) (types.InvestmentRecord, []*types.FieldError) {
	parsed := e.parser.Parse(c.Identifier, c.Industry)

	r := types.InvestmentRecord{
		CompanyName:     parsed.CompanyName,
		InvestmentType:  parsed.InvestmentType,
		Industry:        parsed.Industry,
		AcquisitionDate: parsed.AcquisitionDate,
		MaturityDate:    parsed.MaturityDate,
		InterestRate:    parsed.InterestRate,
		ReferenceRate:   parsed.ReferenceRate,
		Spread:          parsed.Spread,
		FloorRate:       parsed.FloorRate,
		PIKRate:         parsed.PIKRate,
	}

	var fieldErrs []*types.FieldError
	for _, f := range c.Facts {
		field := e.FieldOf(f.Concept)
		if field == "" || strings.TrimSpace(f.Value) == "" {
			continue
		}
		if err := setFact(&r, field, f); err != nil {
			var fe *types.FieldError
			if errors.As(err, &fe) {
				fieldErrs = append(fieldErrs, fe.WithField(field))
			} else {
				fieldErrs = append(fieldErrs, types.NewFieldError(field, f.Value, err.Error()))
			}
		}
	}

	return r, fieldErrs
}

// setFact writes one fact value into its field.
func setFact(r *types.InvestmentRecord, field string, f types.Fact) error {
	switch field {
	case "principal_amount", "cost", "fair_value", "commitment_limit", "undrawn_commitment":
		v, err := normalize.ParseMoney(f.Value)
		if err != nil {
			return err
		}
		if v == nil {
			return nil
		}
		*moneyField(r, field) = v
		if cur := currencyOf(f.Unit); cur != "" {
			r.Currency = cur
		}

	case "percent_net_assets":
		v, err := normalize.PercentValue(f.Value)
		if err != nil {
			return err
		}
		r.PercentOfNetAssets = v

	case "interest_rate", "spread", "floor_rate", "pik_rate":
		v, err := normalize.NormalizePercent(f.Value)
		if err != nil {
			return err
		}
		if v != "" {
			*rateField(r, field) = v
		}

	case "acquisition_date", "maturity_date":
		v, err := normalize.NormalizeDate(f.Value)
		if field == "acquisition_date" {
			r.AcquisitionDate = v
		} else {
			r.MaturityDate = v
		}
		return err

	case "shares_units":
		r.SharesUnits = strings.TrimSpace(f.Value)

	case "reference_rate":
		if ref := normalize.CanonicalReference(f.Value); ref != "" {
			r.ReferenceRate = ref
		}

	case "business_description":
		r.BusinessDescription = strings.TrimSpace(f.Value)
	}

	return nil
}

func moneyField(r *types.InvestmentRecord, field string) **float64 {
	switch field {
	case "principal_amount":
		return &r.PrincipalAmount
	case "cost":
		return &r.Cost
	case "commitment_limit":
		return &r.CommitmentLimit
	case "undrawn_commitment":
		return &r.UndrawnCommitment
	default:
		return &r.FairValue
	}
}

func rateField(r *types.InvestmentRecord, field string) *string {
	switch field {
	case "spread":
		return &r.Spread
	case "floor_rate":
		return &r.FloorRate
	case "pik_rate":
		return &r.PIKRate
	default:
		return &r.InterestRate
	}
}

// currencyOf reads an ISO currency code from a unit reference such as
// "usd" or "iso4217_EUR". Share and pure units yield "".
func currencyOf(unit string) string {
	u := strings.ToUpper(strings.TrimSpace(unit))
	if i := strings.LastIndexAny(u, ":_"); i >= 0 {
		u = u[i+1:]
	}
	if len(u) != 3 {
		return ""
	}
	for _, ch := range u {
		if ch < 'A' || ch > 'Z' {
			return ""
		}
	}
	return u
}
