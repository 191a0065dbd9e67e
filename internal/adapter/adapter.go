// =============================================================================
// Schedule Extractor - Source Adapter
// =============================================================================
//
// This module turns a source filing into the common unit sequence the
// engine works on:
//   - Dimensional sources (XBRL instances) become one Context per
//     identifier-tagged context, with its facts attached.
//   - Tabular sources (HTML, CSV, XLSX) become one Row per table row, with
//     cells NFKC-normalized, trimmed and whitespace-collapsed.
//
// The adapter never fails on a single bad unit. Malformed fragments are
// skipped; only an unreadable input is reported.
//
// =============================================================================

package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// ADAPT
// =============================================================================

// Adapt converts a document into RawUnits. Contexts come first, in input
// order, each with the facts that reference it; rows follow in table order.
func Adapt(doc *types.RawDocument) []types.RawUnit {
	if doc == nil {
		return nil
	}

	var units []types.RawUnit

	factsByContext := make(map[string][]types.Fact)
	for _, f := range doc.Facts {
		if f.ContextRef == "" || f.Concept == "" {
			continue
		}
		factsByContext[f.ContextRef] = append(factsByContext[f.ContextRef], f)
	}

	for _, c := range doc.Contexts {
		if c.ID == "" {
			continue
		}
		ctx := c
		ctx.Identifier = CleanCell(c.Identifier)
		ctx.Industry = CleanCell(c.Industry)
		ctx.Facts = append(append([]types.Fact(nil), c.Facts...), factsByContext[c.ID]...)
		units = append(units, types.RawUnit{Kind: types.UnitContext, Context: &ctx})
	}

	for _, t := range doc.Tables {
		for i, row := range t.Rows {
			cells := make([]string, len(row))
			for j, cell := range row {
				cells[j] = CleanCell(cell)
			}
			units = append(units, types.RawUnit{
				Kind: types.UnitRow,
				Row:  &types.Row{Table: t.Index, Index: i, Cells: cells},
			})
		}
	}

	return units
}

// GroupRows rebuilds the cleaned tables from row units, keeping the
// headings of the source tables.
func GroupRows(units []types.RawUnit, source []types.Table) []types.Table {
	headings := make(map[int][]string, len(source))
	var order []int
	for _, t := range source {
		if _, seen := headings[t.Index]; !seen {
			order = append(order, t.Index)
		}
		headings[t.Index] = t.Heading
	}

	rows := make(map[int][][]string)
	for _, u := range units {
		if u.Kind != types.UnitRow || u.Row == nil {
			continue
		}
		if _, known := headings[u.Row.Table]; !known {
			headings[u.Row.Table] = nil
			order = append(order, u.Row.Table)
		}
		rows[u.Row.Table] = append(rows[u.Row.Table], u.Row.Cells)
	}

	tables := make([]types.Table, 0, len(order))
	for _, idx := range order {
		tables = append(tables, types.Table{Index: idx, Heading: headings[idx], Rows: rows[idx]})
	}
	return tables
}

// CleanCell normalizes cell text: NFKC (so non-breaking and full-width
// characters become plain ones), zero-width characters removed, whitespace
// collapsed and trimmed.
func CleanCell(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// =============================================================================
// FILE DISPATCH
// =============================================================================

// Read opens a source file and reads it with the reader matching its
// extension.
//
// SUPPORTED FORMATS:
//   - .xml, .xbrl        XBRL instance (dimensional)
//   - .htm, .html        HTML filing (tabular)
//   - .csv, .tsv, .txt   delimited text (tabular)
//   - .xlsx              Excel workbook, one table per sheet (tabular)
//
// RETURNS:
//   - The document.
//   - An error wrapping types.ErrSourceFetch if the file cannot be read.
func Read(path string, profile *config.SourceProfile) (*types.RawDocument, error) {
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".xlsx" {
		doc, err := ReadXLSX(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrSourceFetch, err)
		}
		return doc, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open file: %v", types.ErrSourceFetch, err)
	}
	defer file.Close()

	var doc *types.RawDocument
	switch ext {
	case ".xml", ".xbrl":
		doc, err = ReadXBRL(file, path, AxesOf(profile))
	case ".htm", ".html":
		doc, err = ReadHTML(file, path)
	case ".tsv":
		doc, err = ReadCSV(file, path, "tab")
	case ".csv", ".txt":
		doc, err = ReadCSV(file, path, ",")
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", types.ErrSourceFetch, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSourceFetch, err)
	}

	return doc, nil
}

// IsSupported reports whether Read understands a file extension.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".xbrl", ".htm", ".html", ".csv", ".tsv", ".txt", ".xlsx":
		return true
	}
	return false
}

// KindOf returns the representation a file's extension implies.
func KindOf(path string) types.DocumentKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".xbrl":
		return types.KindDimensional
	}
	return types.KindTabular
}
