// =============================================================================
// Schedule Extractor - Shared Types
// =============================================================================
//
// This package contains the data model shared by every stage of the
// extraction pipeline. Keeping it in one leaf package avoids import cycles
// between the adapter, discovery, classifier, dedup and engine packages.
//
// LIFECYCLE:
//   RawDocument  -> created per input, discarded after extraction
//   RawUnit      -> immutable once produced by the adapter
//   InvestmentRecord -> built once per detail row or context, finalized by
//                       NewInvestmentRecord, never mutated afterwards
//
// =============================================================================

package types

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// DocumentKind tells the engine which representation a document carries.
type DocumentKind string

const (
	// KindDimensional is a document of fact contexts (Input A).
	KindDimensional DocumentKind = "dimensional"

	// KindTabular is a document of tables (Input B).
	KindTabular DocumentKind = "tabular"
)

// RawDocument is the opaque source filing after reading. It owns the
// contexts and facts of a dimensional source, or the tables of a tabular one.
type RawDocument struct {
	// Source names where the document came from (path or URL).
	Source string

	// Kind selects the pipeline branch.
	Kind DocumentKind

	// Contexts holds the dimensional contexts (Input A).
	Contexts []Context

	// Facts holds the typed facts keyed by context id (Input A).
	Facts []Fact

	// Tables holds the tables in document order (Input B).
	Tables []Table

	// ScaleHints holds free text found near the schedule, such as
	// "(in thousands)". Used by the unit-scale resolver.
	ScaleHints []string
}

// Table is one table of a tabular document.
type Table struct {
	// Index is the position of the table in the document (0-based).
	Index int

	// Heading contains the text nodes preceding the table, nearest last.
	Heading []string

	// Rows contains the raw cell text of every row.
	Rows [][]string
}

// Context is one dimensional context (a holding at a point in time).
type Context struct {
	ID string

	// Identifier is the packed free-text investment identifier.
	Identifier string

	// Industry is the explicit industry axis member, if any.
	Industry string

	// Instant is set for point-in-time contexts (YYYY-MM-DD).
	Instant string

	// StartDate and EndDate are set for duration contexts.
	StartDate string
	EndDate   string

	// Facts are the facts reported against this context.
	Facts []Fact
}

// Date returns the comparison date of the context: the instant, or the end
// of the duration.
func (c Context) Date() string {
	if c.Instant != "" {
		return c.Instant
	}
	return c.EndDate
}

// Fact is a single typed value reported against a context.
type Fact struct {
	ContextRef string
	Concept    string
	Value      string
	Unit       string
	Decimals   string
}

// =============================================================================
// RAW UNITS
// =============================================================================

// UnitKind discriminates the RawUnit union.
type UnitKind int

const (
	UnitContext UnitKind = iota
	UnitRow
)

// RawUnit is either a Context or a Row.
type RawUnit struct {
	Kind    UnitKind
	Context *Context
	Row     *Row
}

// Row is one cleaned table row.
type Row struct {
	// Table is the index of the owning table.
	Table int

	// Index is the row position inside its table.
	Index int

	// Cells are trimmed and whitespace-collapsed.
	Cells []string
}

// =============================================================================
// COLUMN ROLES
// =============================================================================

// ColumnRole names the semantic role a column plays.
type ColumnRole string

const (
	RoleCompany            ColumnRole = "company"
	RoleType               ColumnRole = "type"
	RoleIndustry           ColumnRole = "industry"
	RoleRate               ColumnRole = "rate"
	RoleReferenceRate      ColumnRole = "reference_rate"
	RoleSpread             ColumnRole = "spread"
	RoleAcquisitionDate    ColumnRole = "acquisition_date"
	RoleMaturityDate       ColumnRole = "maturity_date"
	RolePrincipal          ColumnRole = "principal"
	RoleCost               ColumnRole = "cost"
	RoleFairValue          ColumnRole = "fair_value"
	RolePercentOfNetAssets ColumnRole = "percent_of_net_assets"
)

// AllRoles lists every role in output order.
var AllRoles = []ColumnRole{
	RoleCompany, RoleType, RoleIndustry, RoleRate, RoleReferenceRate,
	RoleSpread, RoleAcquisitionDate, RoleMaturityDate, RolePrincipal,
	RoleCost, RoleFairValue, RolePercentOfNetAssets,
}

// ColumnRoleMap maps a role to a column index.
type ColumnRoleMap map[ColumnRole]int

// Index returns the column for a role, or -1 when the role is absent.
func (m ColumnRoleMap) Index(role ColumnRole) int {
	if m == nil {
		return -1
	}
	if idx, ok := m[role]; ok && idx >= 0 {
		return idx
	}
	return -1
}

// Has reports whether the role is mapped.
func (m ColumnRoleMap) Has(role ColumnRole) bool {
	return m.Index(role) >= 0
}

// =============================================================================
// PARSED IDENTIFIER
// =============================================================================

// UnknownCompany is the sentinel company name of an unresolved identifier.
const UnknownCompany = "Unknown"

// Unknown is the default label for investment type and industry.
const Unknown = "Unknown"

// ParsedIdentifier is the structured output of the identifier grammar.
type ParsedIdentifier struct {
	CompanyName     string
	InvestmentType  string
	Industry        string
	MaturityDate    string
	AcquisitionDate string
	ReferenceRate   string
	Spread          string
	FloorRate       string
	PIKRate         string
	InterestRate    string
}

// Resolved reports whether a company name survived parsing.
func (p ParsedIdentifier) Resolved() bool {
	return p.CompanyName != "" && p.CompanyName != UnknownCompany
}
