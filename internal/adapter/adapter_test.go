package adapter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

const sampleXBRL = `<?xml version="1.0" encoding="UTF-8"?>
<xbrli:xbrl xmlns:xbrli="http://www.xbrl.org/2003/instance"
            xmlns:xbrldi="http://xbrl.org/2006/xbrldi"
            xmlns:us-gaap="http://fasb.org/us-gaap/2024"
            xmlns:ex="http://example.com/fund"
            xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <xbrli:context id="c1">
    <xbrli:entity>
      <xbrli:identifier scheme="http://www.sec.gov/CIK">0000001</xbrli:identifier>
      <xbrli:segment>
        <xbrldi:typedMember dimension="us-gaap:InvestmentIdentifierAxis">
          <us-gaap:InvestmentIdentifierAxis.domain>Acme Corp LLC, First Lien Secured Debt</us-gaap:InvestmentIdentifierAxis.domain>
        </xbrldi:typedMember>
        <xbrldi:explicitMember dimension="us-gaap:InvestmentIndustryAxis">ex:SoftwareSectorMember</xbrldi:explicitMember>
      </xbrli:segment>
    </xbrli:entity>
    <xbrli:period><xbrli:instant>2025-06-30</xbrli:instant></xbrli:period>
  </xbrli:context>
  <xbrli:context id="c0">
    <xbrli:entity>
      <xbrli:identifier scheme="http://www.sec.gov/CIK">0000001</xbrli:identifier>
    </xbrli:entity>
    <xbrli:period><xbrli:startDate>2025-01-01</xbrli:startDate><xbrli:endDate>2025-06-30</xbrli:endDate></xbrli:period>
  </xbrli:context>
  <us-gaap:InvestmentOwnedBalancePrincipalAmount contextRef="c1" unitRef="usd" decimals="0">1000000</us-gaap:InvestmentOwnedBalancePrincipalAmount>
  <us-gaap:InvestmentOwnedAtFairValue contextRef="c1" unitRef="usd" decimals="0">950000</us-gaap:InvestmentOwnedAtFairValue>
  <us-gaap:InvestmentOwnedAtCost contextRef="c1" unitRef="usd" xsi:nil="true"/>
  <us-gaap:NetIncomeLoss contextRef="c0" unitRef="usd" decimals="0">5</us-gaap:NetIncomeLoss>
</xbrli:xbrl>`

func TestReadXBRL(t *testing.T) {
	doc, err := ReadXBRL(strings.NewReader(sampleXBRL), "fund.xml", AxesOf(nil))
	require.NoError(t, err)

	assert.Equal(t, types.KindDimensional, doc.Kind)
	require.Len(t, doc.Contexts, 2)

	c := doc.Contexts[0]
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "Acme Corp LLC, First Lien Secured Debt", c.Identifier)
	assert.Equal(t, "Software", c.Industry)
	assert.Equal(t, "2025-06-30", c.Instant)

	assert.Empty(t, doc.Contexts[1].Identifier)
	assert.Equal(t, "2025-06-30", doc.Contexts[1].EndDate)

	require.Len(t, doc.Facts, 3, "nil facts are skipped")
	assert.Equal(t, types.Fact{
		ContextRef: "c1",
		Concept:    "InvestmentOwnedBalancePrincipalAmount",
		Value:      "1000000",
		Unit:       "usd",
		Decimals:   "0",
	}, doc.Facts[0])
}

func TestReadXBRLRejectsGarbage(t *testing.T) {
	_, err := ReadXBRL(strings.NewReader("<<<not xml"), "x.xml", AxesOf(nil))
	assert.Error(t, err)
}

func TestAdaptAttachesFacts(t *testing.T) {
	doc, err := ReadXBRL(strings.NewReader(sampleXBRL), "fund.xml", AxesOf(nil))
	require.NoError(t, err)

	units := Adapt(doc)
	require.Len(t, units, 2)
	assert.Equal(t, types.UnitContext, units[0].Kind)
	assert.Len(t, units[0].Context.Facts, 2)
	assert.Len(t, units[1].Context.Facts, 1)
}

const sampleHTML = `<html><head><title>10-Q</title><style>p{}</style></head><body>
<p><b>Consolidated Schedule of Investments</b></p>
<p>As of June 30, 2025</p>
<p>(dollar amounts in thousands)</p>
<table>
  <tr><th>Portfolio Company</th><th>Investment</th><th colspan="2">Principal</th><th>Fair Value</th></tr>
  <tr><td><span>Acme&nbsp;Corp</span> <sup>(1)</sup></td><td>First Lien</td><td>$</td><td>1,000</td><td>950</td></tr>
</table>
<p>Notes to financial statements</p>
<table><tr><td>Other</td></tr></table>
</body></html>`

func TestReadHTML(t *testing.T) {
	doc, err := ReadHTML(strings.NewReader(sampleHTML), "fund.htm")
	require.NoError(t, err)

	assert.Equal(t, types.KindTabular, doc.Kind)
	require.Len(t, doc.Tables, 2)

	first := doc.Tables[0]
	assert.Equal(t, []string{
		"Consolidated Schedule of Investments",
		"As of June 30, 2025",
		"(dollar amounts in thousands)",
	}, first.Heading)
	require.Len(t, first.Rows, 2)
	assert.Equal(t, []string{"Portfolio Company", "Investment", "Principal", "", "Fair Value"}, first.Rows[0])
	assert.Equal(t, []string{"Acme Corp (1)", "First Lien", "$", "1,000", "950"}, first.Rows[1])

	second := doc.Tables[1]
	assert.Equal(t, 1, second.Index)
	assert.Equal(t, "Notes to financial statements", second.Heading[len(second.Heading)-1])

	assert.Contains(t, doc.ScaleHints, "(dollar amounts in thousands)")
}

func TestReadCSV(t *testing.T) {
	in := "Company|Investment|Principal\nAcme Corp|First Lien|\"1,000\"\nBeta|Warrants\n"
	doc, err := ReadCSV(strings.NewReader(in), "/data/schedule_of_investments.csv", "pipe")
	require.NoError(t, err)

	require.Len(t, doc.Tables, 1)
	table := doc.Tables[0]
	assert.Equal(t, []string{"schedule of investments"}, table.Heading)
	assert.Equal(t, [][]string{
		{"Company", "Investment", "Principal"},
		{"Acme Corp", "First Lien", "1,000"},
		{"Beta", "Warrants"},
	}, table.Rows)
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdings.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Company", "Fair Value"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Acme Corp", "950"}))
	_, err := f.NewSheet("Prior")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Prior", "A1", &[]interface{}{"(in millions)"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	doc, err := ReadXLSX(path)
	require.NoError(t, err)
	require.Len(t, doc.Tables, 2)
	assert.Equal(t, []string{"holdings", "Sheet1"}, doc.Tables[0].Heading)
	assert.Equal(t, "Acme Corp", doc.Tables[0].Rows[1][0])
	assert.Equal(t, []string{"(in millions)"}, doc.ScaleHints)
}

func TestReadDispatch(t *testing.T) {
	dir := t.TempDir()

	htmlPath := filepath.Join(dir, "fund.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte(sampleHTML), 0o644))
	doc, err := Read(htmlPath, config.DefaultProfile())
	require.NoError(t, err)
	assert.Len(t, doc.Tables, 2)

	_, err = Read(filepath.Join(dir, "missing.csv"), nil)
	assert.ErrorIs(t, err, types.ErrSourceFetch)

	_, err = Read(filepath.Join(dir, "fund.pdf"), nil)
	assert.ErrorIs(t, err, types.ErrSourceFetch)

	assert.True(t, IsSupported("a.XLSX"))
	assert.False(t, IsSupported("a.pdf"))
	assert.Equal(t, types.KindDimensional, KindOf("a.XBRL"))
	assert.Equal(t, types.KindTabular, KindOf("a.htm"))
}

func TestAdaptCleansRows(t *testing.T) {
	doc := &types.RawDocument{Tables: []types.Table{
		{Index: 3, Heading: []string{"h"}, Rows: [][]string{{"  Acme  Corp ", "＄100"}}},
	}}

	units := Adapt(doc)
	require.Len(t, units, 1)
	assert.Equal(t, []string{"Acme Corp", "$100"}, units[0].Row.Cells)
	assert.Equal(t, 3, units[0].Row.Table)

	tables := GroupRows(units, doc.Tables)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"h"}, tables[0].Heading)
	assert.Equal(t, [][]string{{"Acme Corp", "$100"}}, tables[0].Rows)
}

func TestCleanCell(t *testing.T) {
	assert.Equal(t, "a b", CleanCell(" a \u200b\t b "))
	assert.Equal(t, "", CleanCell("   "))
}

func TestMemberLabel(t *testing.T) {
	assert.Equal(t, "Health Care Providers And Services", MemberLabel("ex:HealthCareProvidersAndServicesMember"))
	assert.Equal(t, "Software", MemberLabel("ex:SoftwareSectorMember"))
}
