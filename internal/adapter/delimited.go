package adapter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// CSV READER
// =============================================================================

// ReadCSV reads a delimited export of a schedule as a single table. The
// table heading is the file name, so a file called "schedule_of_investments.csv"
// is recognized by heading like an HTML table would be.
//
// PARAMETERS:
//   - r: The input.
//   - source: The source name recorded on the document.
//   - delimiter: ",", "|", ";", "tab" (or "\t"); empty means comma.
func ReadCSV(r io.Reader, source, delimiter string) (*types.RawDocument, error) {
	csvReader := csv.NewReader(bufio.NewReader(r))
	configureReader(csvReader, delimiter)

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	doc := &types.RawDocument{Source: source, Kind: types.KindTabular}
	doc.Tables = append(doc.Tables, types.Table{
		Index:   0,
		Heading: []string{headingFromName(source)},
		Rows:    rows,
	})
	doc.ScaleHints = scaleHintsOf(rows)

	return doc, nil
}

// configureReader sets up a lenient reader: variable field counts and lazy
// quotes, since exports of filings are rarely well-formed.
func configureReader(reader *csv.Reader, delimiter string) {
	switch delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(delimiter) > 0 {
			reader.Comma = rune(delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// =============================================================================
// XLSX READER
// =============================================================================

// ReadXLSX reads every sheet of a workbook as one table. The sheet name is
// the table heading.
func ReadXLSX(path string) (*types.RawDocument, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	doc := &types.RawDocument{Source: path, Kind: types.KindTabular}

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			// Unreadable sheets are skipped.
			continue
		}
		doc.Tables = append(doc.Tables, types.Table{
			Index:   len(doc.Tables),
			Heading: []string{headingFromName(path), sheet},
			Rows:    rows,
		})
		doc.ScaleHints = append(doc.ScaleHints, scaleHintsOf(rows)...)
	}

	return doc, nil
}

func headingFromName(path string) string {
	base := filepath.Base(path)
	base = base[:len(base)-len(filepath.Ext(base))]
	out := []rune(base)
	for i, r := range out {
		if r == '_' || r == '-' {
			out[i] = ' '
		}
	}
	return string(out)
}

// scaleHintsOf returns the cells of the leading rows that mention a unit
// scale.
func scaleHintsOf(rows [][]string) []string {
	var hints []string
	for i, row := range rows {
		if i >= 10 {
			break
		}
		for _, cell := range row {
			if mentionsScale(cell) {
				hints = append(hints, cell)
			}
		}
	}
	return hints
}
