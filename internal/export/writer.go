// =============================================================================
// Schedule Extractor - Output Writer Module
// =============================================================================
//
// This module writes extracted investment records to delimited text, to a
// workbook or to XML. All writers share one column layout.
//
// COLUMN LAYOUT:
//   company_name, industry, business_description, investment_type,
//   acquisition_date, maturity_date, principal_amount, cost, fair_value,
//   interest_rate, reference_rate, spread, floor_rate, pik_rate
//
//   Extended layout appends:
//   shares_units, percent_net_assets, currency, commitment_limit,
//   undrawn_commitment
//
// CELL RENDERING:
//   - Absent values are empty cells, never "0"
//   - Amounts use the shortest exact decimal form ("1500000", "-25.5")
//   - Rates and dates are written as extracted
//
// =============================================================================

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// COLUMN LAYOUT
// =============================================================================

// BaseColumns is the fixed output column order.
var BaseColumns = []string{
	"company_name",
	"industry",
	"business_description",
	"investment_type",
	"acquisition_date",
	"maturity_date",
	"principal_amount",
	"cost",
	"fair_value",
	"interest_rate",
	"reference_rate",
	"spread",
	"floor_rate",
	"pik_rate",
}

// ExtendedColumns are appended when Options.Extended is set.
var ExtendedColumns = []string{
	"shares_units",
	"percent_net_assets",
	"currency",
	"commitment_limit",
	"undrawn_commitment",
}

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatXML  = "xml"
)

// Options contains options for writing.
type Options struct {
	// Extended appends ExtendedColumns.
	// Default: false
	Extended bool

	// Delimiter is the CSV field separator.
	// Default: ','
	Delimiter rune

	// RecordsSheet names the workbook sheet holding the records.
	// Default: "Investments"
	RecordsSheet string

	// SummarySheet names the workbook sheet holding the summary. Empty
	// disables the summary sheet.
	// Default: "Summary"
	SummarySheet string

	// Source names the filing in the XML root element.
	Source string

	// RootElement and RecordElement name the XML elements.
	// Default: "schedule" and "investment"
	RootElement   string
	RecordElement string

	// Indent is the XML indentation unit.
	// Default: "  "
	Indent string
}

// DefaultOptions returns the default write options.
func DefaultOptions() Options {
	return Options{
		Delimiter:     ',',
		RecordsSheet:  "Investments",
		SummarySheet:  "Summary",
		RootElement:   "schedule",
		RecordElement: "investment",
		Indent:        "  ",
	}
}

func applyOptionDefaults(o *Options) {
	d := DefaultOptions()
	if o.Delimiter == 0 {
		o.Delimiter = d.Delimiter
	}
	if o.RecordsSheet == "" {
		o.RecordsSheet = d.RecordsSheet
	}
	if o.RootElement == "" {
		o.RootElement = d.RootElement
	}
	if o.RecordElement == "" {
		o.RecordElement = d.RecordElement
	}
	if o.Indent == "" {
		o.Indent = d.Indent
	}
}

// Columns returns the header row for a layout.
func Columns(extended bool) []string {
	cols := append([]string(nil), BaseColumns...)
	if extended {
		cols = append(cols, ExtendedColumns...)
	}
	return cols
}

// Row renders one record in column order.
func Row(r types.InvestmentRecord, extended bool) []string {
	row := []string{
		r.CompanyName,
		r.Industry,
		r.BusinessDescription,
		r.InvestmentType,
		r.AcquisitionDate,
		r.MaturityDate,
		amount(r.PrincipalAmount),
		amount(r.Cost),
		amount(r.FairValue),
		r.InterestRate,
		r.ReferenceRate,
		r.Spread,
		r.FloorRate,
		r.PIKRate,
	}
	if extended {
		row = append(row,
			r.SharesUnits,
			amount(r.PercentOfNetAssets),
			r.Currency,
			amount(r.CommitmentLimit),
			amount(r.UndrawnCommitment),
		)
	}
	return row
}

func amount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// =============================================================================
// CSV
// =============================================================================

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, records []types.InvestmentRecord, options Options) error {
	applyOptionDefaults(&options)

	writer := csv.NewWriter(w)
	writer.Comma = options.Delimiter

	if err := writer.Write(Columns(options.Extended)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range records {
		if err := writer.Write(Row(r, options.Extended)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// =============================================================================
// XLSX
// =============================================================================

// BuildWorkbook lays out the records, and optionally the summary, in a new
// workbook. The caller owns the returned file.
func BuildWorkbook(records []types.InvestmentRecord, summary *types.Summary, options Options) (*excelize.File, error) {
	applyOptionDefaults(&options)

	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, options.RecordsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(options.RecordsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(Columns(options.Extended), nil)); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	numeric := numericColumns(options.Extended)
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := sw.SetRow(cell, toCells(Row(r, options.Extended), numeric)); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	if summary != nil && options.SummarySheet != "" {
		if err := writeSummarySheet(f, options.SummarySheet, *summary); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

// WriteXLSX writes the workbook to path.
func WriteXLSX(path string, records []types.InvestmentRecord, summary *types.Summary, options Options) error {
	f, err := BuildWorkbook(records, summary, options)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// numericColumns marks the amount columns, which are written as numbers.
func numericColumns(extended bool) map[int]bool {
	numeric := make(map[int]bool)
	for i, c := range Columns(extended) {
		switch c {
		case "principal_amount", "cost", "fair_value", "percent_net_assets", "commitment_limit", "undrawn_commitment":
			numeric[i] = true
		}
	}
	return numeric
}

func toCells(values []string, numeric map[int]bool) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		if numeric[i] && v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				cells[i] = f
				continue
			}
		}
		cells[i] = v
	}
	return cells
}

func writeSummarySheet(f *excelize.File, sheet string, s types.Summary) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	rows := [][]interface{}{
		{"total_investments", s.TotalInvestments},
		{"total_principal", s.TotalPrincipal},
		{"total_cost", s.TotalCost},
		{"total_fair_value", s.TotalFairValue},
		{},
		{"industry", "count"},
	}
	for _, k := range sortedKeys(s.IndustryBreakdown) {
		rows = append(rows, []interface{}{k, s.IndustryBreakdown[k]})
	}
	rows = append(rows, []interface{}{}, []interface{}{"investment_type", "count"})
	for _, k := range sortedKeys(s.InvestmentTypeBreakdown) {
		rows = append(rows, []interface{}{k, s.InvestmentTypeBreakdown[k]})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i, err)
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// WriteFile writes records to path in the given format, creating parent
// directories as needed.
func WriteFile(path, format string, records []types.InvestmentRecord, summary *types.Summary, options Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	switch strings.ToLower(format) {
	case FormatXLSX:
		return WriteXLSX(path, records, summary, options)
	case FormatXML:
		return writeText(path, func(w io.Writer) error { return WriteXML(w, records, options) })
	case FormatCSV, "":
		return writeText(path, func(w io.Writer) error { return WriteCSV(w, records, options) })
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func writeText(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Extension returns the file extension for a format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case FormatXLSX:
		return ".xlsx"
	case FormatXML:
		return ".xml"
	}
	return ".csv"
}
