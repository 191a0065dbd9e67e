package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// SOURCE PROFILE STRUCTURE
// =============================================================================

// Capability names the representation a profile knows how to extract.
const (
	CapabilityDimensional = "dimensional"
	CapabilityTabular     = "tabular"
)

// SourceProfile is the declarative configuration of one filing source.
// Every extraction behavior that differs between sources is data here,
// never a code path of its own.
type SourceProfile struct {
	// =========================================================================
	// IDENTIFICATION
	// =========================================================================

	// Name is the unique profile name (usually the fund ticker or family).
	Name string `yaml:"name" validate:"required"`

	// Capabilities lists the representations this profile handles.
	Capabilities []string `yaml:"capabilities" validate:"required,min=1,dive,oneof=dimensional tabular"`

	// FileMatchingPatterns are glob patterns matched against input file names.
	// Examples:
	//   - "arcc_*.htm"
	//   - "*_10q.xml"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// =========================================================================
	// TABLE DISCOVERY
	// =========================================================================

	// HeadingPhrases mark a table as a schedule when found in the text
	// preceding it.
	HeadingPhrases []string `yaml:"heading_phrases"`

	// HeadingWindow is how many preceding text nodes are searched.
	// Default: 8
	HeadingWindow int `yaml:"heading_window" validate:"gte=0"`

	// HeaderKeywords are the keyword groups used to score header rows.
	HeaderKeywords HeaderKeywords `yaml:"header_keywords"`

	// MinHeaderScore is the number of keyword groups a header must hit.
	// Default: 4
	MinHeaderScore int `yaml:"min_header_score" validate:"gte=1"`

	// MinTableRows rejects smaller tables as noise.
	// Default: 10
	MinTableRows int `yaml:"min_table_rows" validate:"gte=1"`

	// HeaderScanRows is how many leading rows are inspected for a header.
	// Default: 10
	HeaderScanRows int `yaml:"header_scan_rows" validate:"gte=1"`

	// =========================================================================
	// ROW CLASSIFICATION
	// =========================================================================

	// SectionKeywords are prefixes of banner rows that are skipped.
	SectionKeywords []string `yaml:"section_keywords"`

	// TotalKeywords are prefixes of total rows that are skipped.
	TotalKeywords []string `yaml:"total_keywords"`

	// DefaultColumns is the positional fallback map (role -> column index)
	// used when no header row is detected.
	DefaultColumns map[string]int `yaml:"default_columns"`

	// =========================================================================
	// IDENTIFIER GRAMMAR
	// =========================================================================

	// InvestmentTypes is the ordered list of investment type patterns.
	// The first pattern that matches wins.
	InvestmentTypes []TypePattern `yaml:"investment_types" validate:"dive"`

	// IndustryVocabulary is the controlled list of industry labels.
	IndustryVocabulary []string `yaml:"industry_vocabulary"`

	// LegalSuffixes are stripped when matching company names.
	LegalSuffixes []string `yaml:"legal_suffixes"`

	// LabelAliases maps raw industry or investment type labels, matched
	// case-insensitively, to their canonical form.
	// Example:
	//   "healthcare & pharmaceuticals": "Healthcare"
	LabelAliases map[string]string `yaml:"label_aliases"`

	// =========================================================================
	// DIMENSIONAL FACTS
	// =========================================================================

	// IdentifierAxes are the axis names whose typed member carries the
	// packed investment identifier.
	IdentifierAxes []string `yaml:"identifier_axes"`

	// IndustryAxes are the axis names whose member carries the industry.
	IndustryAxes []string `yaml:"industry_axes"`

	// Concepts maps fact concept names to output fields (first match wins).
	Concepts []ConceptRule `yaml:"concepts" validate:"dive"`

	// =========================================================================
	// NORMALIZATION AND RECONCILIATION
	// =========================================================================

	// Scale selects the unit-scale resolution strategy.
	Scale ScaleSettings `yaml:"scale"`

	// SimilarityThreshold is the fuzzy name-match threshold.
	// Default: 0.8
	SimilarityThreshold float64 `yaml:"similarity_threshold" validate:"gte=0,lte=1"`
}

// HeaderKeywords groups header keywords by the concept they signal.
type HeaderKeywords struct {
	Company   []string `yaml:"company"`
	Type      []string `yaml:"type"`
	Maturity  []string `yaml:"maturity"`
	Principal []string `yaml:"principal"`
	Cost      []string `yaml:"cost"`
	FairValue []string `yaml:"fair_value"`
}

// Groups returns the keyword groups in scoring order.
func (h HeaderKeywords) Groups() map[string][]string {
	return map[string][]string{
		"company":    h.Company,
		"type":       h.Type,
		"maturity":   h.Maturity,
		"principal":  h.Principal,
		"cost":       h.Cost,
		"fair_value": h.FairValue,
	}
}

// TypePattern recognizes one family of investment types.
type TypePattern struct {
	// Pattern is a case-insensitive regular expression.
	Pattern string `yaml:"pattern" validate:"required"`

	// Label, when set, replaces the matched text. Left empty, the phrase is
	// kept as written in the filing and canonicalized later by the
	// standardizer.
	Label string `yaml:"label"`
}

// ConceptRule maps a fact concept to an output field.
type ConceptRule struct {
	// Contains is matched case-insensitively against the concept local name.
	Contains string `yaml:"contains" validate:"required"`

	// Field is the output field name (e.g. "fair_value").
	Field string `yaml:"field" validate:"required"`
}

// ScaleSettings configures unit-scale resolution.
type ScaleSettings struct {
	// Strategy is one of "none", "explicit", "fixed", "chain".
	// "chain" tries explicit annotations first, then the fixed multiplier.
	// Default: "chain"
	Strategy string `yaml:"strategy" validate:"oneof=none explicit fixed chain"`

	// Multiplier is used by the fixed strategy.
	// Default: 1
	Multiplier float64 `yaml:"multiplier" validate:"gte=0"`
}

// Has reports whether the profile declares a capability.
func (p *SourceProfile) Has(capability string) bool {
	for _, c := range p.Capabilities {
		if strings.EqualFold(c, capability) {
			return true
		}
	}
	return false
}

// Validate checks the struct tags of the profile.
func (p *SourceProfile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return nil
}

// MatchesFile reports whether a file name matches one of the profile's
// patterns.
func (p *SourceProfile) MatchesFile(fileName string) bool {
	base := filepath.Base(fileName)
	for _, pattern := range p.FileMatchingPatterns {
		matched, err := filepath.Match(pattern, base)
		if err != nil {
			// Invalid pattern, skip it.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultProfileName names the built-in profile.
const DefaultProfileName = "default"

// DefaultProfile returns the built-in profile used when no source-specific
// profile matches. Every call returns a fresh copy.
func DefaultProfile() *SourceProfile {
	return &SourceProfile{
		Name:         DefaultProfileName,
		Capabilities: []string{CapabilityDimensional, CapabilityTabular},
		HeadingPhrases: []string{
			"schedule of investments",
			"consolidated schedule of investments",
			"schedules of investments",
		},
		HeadingWindow: 8,
		HeaderKeywords: HeaderKeywords{
			Company:   []string{"portfolio company", "company", "issuer", "borrower", "name of investment"},
			Type:      []string{"investment type", "type of investment", "investment", "instrument", "security", "class"},
			Maturity:  []string{"maturity", "expiration"},
			Principal: []string{"principal", "par", "shares", "units", "amount"},
			Cost:      []string{"amortized cost", "cost"},
			FairValue: []string{"fair value", "market value"},
		},
		MinHeaderScore:  4,
		MinTableRows:    10,
		HeaderScanRows:  10,
		SectionKeywords: []string{"investments", "non-controlled", "non-control", "affiliated investments", "control investments", "debt investments", "equity investments", "first lien", "second lien"},
		TotalKeywords:   []string{"total", "subtotal", "sub-total"},
		InvestmentTypes: []TypePattern{
			{Pattern: `first\s+lien(?:\s+senior)?(?:\s+secured)?(?:\s+(?:term\s+loan|revolver|revolving(?:\s+loan)?|delayed\s+draw(?:\s+term\s+loan)?|debt|loan|notes?))*`},
			{Pattern: `second\s+lien(?:\s+senior)?(?:\s+secured)?(?:\s+(?:term\s+loan|debt|loan|notes?))*`},
			{Pattern: `unitranche(?:\s+(?:term\s+loan|loan|debt))?`},
			{Pattern: `senior\s+secured(?:\s+(?:term\s+loan|revolver|loan|debt|notes?))*`},
			{Pattern: `senior\s+subordinated(?:\s+(?:debt|loan|notes?))*`},
			{Pattern: `subordinated(?:\s+(?:debt|loan|notes?))*`},
			{Pattern: `delayed\s+draw(?:\s+term\s+loan)?`},
			{Pattern: `revolv(?:er|ing(?:\s+(?:loan|credit\s+facility))?)`},
			{Pattern: `term\s+loan`},
			{Pattern: `structured\s+(?:finance|products?)|clo\s+(?:equity|debt)`},
			{Pattern: `(?:series\s+\w+\s+)?preferred(?:\s+(?:equity|stock|shares|units))?`},
			{Pattern: `common(?:\s+(?:equity|stock|shares|units))?|(?:class\s+\w+\s+)?(?:membership|lp|llc)\s+(?:interests?|units)`},
			{Pattern: `(?:class|series)\s+[a-z0-9-]{1,4}\s+(?:units|shares|interests?)`},
			{Pattern: `warrants?`},
			{Pattern: `equity(?:\s+interests?)?`},
		},
		IndustryVocabulary: []string{
			"Aerospace & Defense", "Automotive", "Banking", "Beverage, Food & Tobacco",
			"Business Services", "Capital Equipment", "Chemicals", "Construction & Building",
			"Consumer Goods", "Consumer Services", "Containers & Packaging", "Diversified Financial Services",
			"Education", "Energy", "Environmental Industries", "Financial Services",
			"Food Products", "Healthcare", "Health Care Providers & Services", "Health Care Technology",
			"High Tech Industries", "Hotels, Restaurants & Leisure", "Insurance", "Internet & Direct Marketing",
			"IT Services", "Media", "Metals & Mining", "Pharmaceuticals",
			"Professional Services", "Real Estate", "Retail", "Software",
			"Specialty Retail", "Technology", "Telecommunications", "Transportation",
			"Utilities", "Wholesale",
		},
		LegalSuffixes: []string{
			"inc", "incorporated", "llc", "l.l.c", "lp", "l.p", "llp", "ltd", "limited",
			"corp", "corporation", "co", "company", "holdings", "holding", "plc", "gmbh", "s.a", "sa", "bv", "b.v",
		},
		IdentifierAxes: []string{"InvestmentIdentifierAxis", "ScheduleOfInvestmentsAxis", "InvestmentAxis"},
		IndustryAxes:   []string{"InvestmentIndustryAxis", "IndustrySectorAxis", "EquitySecuritiesByIndustryAxis"},
		Concepts: []ConceptRule{
			{Contains: "percentofnetassets", Field: "percent_net_assets"},
			{Contains: "balanceshares", Field: "shares_units"},
			{Contains: "sharesunits", Field: "shares_units"},
			{Contains: "principalamount", Field: "principal_amount"},
			{Contains: "balanceprincipal", Field: "principal_amount"},
			{Contains: "fairvalue", Field: "fair_value"},
			{Contains: "atcost", Field: "cost"},
			{Contains: "amortizedcost", Field: "cost"},
			{Contains: "undrawn", Field: "undrawn_commitment"},
			{Contains: "unfundedcommitment", Field: "undrawn_commitment"},
			{Contains: "commitment", Field: "commitment_limit"},
			{Contains: "paidinkind", Field: "pik_rate"},
			{Contains: "pik", Field: "pik_rate"},
			{Contains: "floor", Field: "floor_rate"},
			{Contains: "spread", Field: "spread"},
			{Contains: "interestrate", Field: "interest_rate"},
			{Contains: "maturitydate", Field: "maturity_date"},
			{Contains: "acquisitiondate", Field: "acquisition_date"},
			{Contains: "cost", Field: "cost"},
		},
		Scale:               ScaleSettings{Strategy: "chain", Multiplier: 1},
		SimilarityThreshold: 0.8,
	}
}

// ApplyProfileDefaults fills every unset list and threshold from
// DefaultProfile. Lists set in the file replace the defaults entirely.
func ApplyProfileDefaults(p *SourceProfile) {
	d := DefaultProfile()

	if len(p.Capabilities) == 0 {
		p.Capabilities = d.Capabilities
	}
	if len(p.HeadingPhrases) == 0 {
		p.HeadingPhrases = d.HeadingPhrases
	}
	if p.HeadingWindow == 0 {
		p.HeadingWindow = d.HeadingWindow
	}
	if len(p.HeaderKeywords.Company) == 0 {
		p.HeaderKeywords.Company = d.HeaderKeywords.Company
	}
	if len(p.HeaderKeywords.Type) == 0 {
		p.HeaderKeywords.Type = d.HeaderKeywords.Type
	}
	if len(p.HeaderKeywords.Maturity) == 0 {
		p.HeaderKeywords.Maturity = d.HeaderKeywords.Maturity
	}
	if len(p.HeaderKeywords.Principal) == 0 {
		p.HeaderKeywords.Principal = d.HeaderKeywords.Principal
	}
	if len(p.HeaderKeywords.Cost) == 0 {
		p.HeaderKeywords.Cost = d.HeaderKeywords.Cost
	}
	if len(p.HeaderKeywords.FairValue) == 0 {
		p.HeaderKeywords.FairValue = d.HeaderKeywords.FairValue
	}
	if p.MinHeaderScore == 0 {
		p.MinHeaderScore = d.MinHeaderScore
	}
	if p.MinTableRows == 0 {
		p.MinTableRows = d.MinTableRows
	}
	if p.HeaderScanRows == 0 {
		p.HeaderScanRows = d.HeaderScanRows
	}
	if len(p.SectionKeywords) == 0 {
		p.SectionKeywords = d.SectionKeywords
	}
	if len(p.TotalKeywords) == 0 {
		p.TotalKeywords = d.TotalKeywords
	}
	if len(p.InvestmentTypes) == 0 {
		p.InvestmentTypes = d.InvestmentTypes
	}
	if len(p.IndustryVocabulary) == 0 {
		p.IndustryVocabulary = d.IndustryVocabulary
	}
	if len(p.LegalSuffixes) == 0 {
		p.LegalSuffixes = d.LegalSuffixes
	}
	if len(p.IdentifierAxes) == 0 {
		p.IdentifierAxes = d.IdentifierAxes
	}
	if len(p.IndustryAxes) == 0 {
		p.IndustryAxes = d.IndustryAxes
	}
	if len(p.Concepts) == 0 {
		p.Concepts = d.Concepts
	}
	if p.Scale.Strategy == "" {
		p.Scale.Strategy = d.Scale.Strategy
	}
	if p.Scale.Multiplier == 0 {
		p.Scale.Multiplier = d.Scale.Multiplier
	}
	if p.SimilarityThreshold == 0 {
		p.SimilarityThreshold = d.SimilarityThreshold
	}
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry resolves source profiles by name, file name or capability.
// It is safe for concurrent lookups.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*SourceProfile
}

// NewRegistry creates a registry seeded with the default profile.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]*SourceProfile)}
	r.profiles[DefaultProfileName] = DefaultProfile()
	return r
}

// Register adds or replaces a profile.
func (r *Registry) Register(p *SourceProfile) error {
	if p == nil {
		return fmt.Errorf("nil profile")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Name] = p
	return nil
}

// RegisterAll adds every profile of a loaded map.
func (r *Registry) RegisterAll(profiles map[string]*SourceProfile) error {
	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns a profile by name.
func (r *Registry) Lookup(name string) (*SourceProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	return p, ok
}

// Resolve selects the profile for an input file: a profile whose file
// patterns match and which declares the capability wins; otherwise the
// first profile (by name) declaring the capability; otherwise the default.
func (r *Registry) Resolve(fileName, capability string) *SourceProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.sortedNames()

	for _, name := range names {
		p := r.profiles[name]
		if p.Has(capability) && p.MatchesFile(fileName) {
			return p
		}
	}

	if p, ok := r.profiles[DefaultProfileName]; ok && p.Has(capability) {
		return p
	}

	for _, name := range names {
		if r.profiles[name].Has(capability) {
			return r.profiles[name]
		}
	}

	return DefaultProfile()
}

// Names lists the registered profile names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
