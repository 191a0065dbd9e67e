// =============================================================================
// Schedule Extractor - XML Writer
// =============================================================================
//
// XML STRUCTURE:
//
//   <?xml version="1.0" encoding="UTF-8"?>
//   <schedule source="acme_10q.htm" records="2">
//     <investment n="1">
//       <company_name>Beta Industries Inc</company_name>
//       <principal_amount>1500000</principal_amount>
//       ...
//     </investment>
//     <investment n="2">
//       ...
//     </investment>
//   </schedule>
//
// Elements follow the column layout. Absent values are omitted rather than
// written as empty elements.
//
// =============================================================================

package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// WriteXML writes the records as one XML document.
func WriteXML(w io.Writer, records []types.InvestmentRecord, options Options) error {
	applyOptionDefaults(&options)

	var buffer bytes.Buffer
	buffer.WriteString(xml.Header)

	buffer.WriteString("<" + options.RootElement)
	if options.Source != "" {
		writeAttr(&buffer, "source", options.Source)
	}
	writeAttr(&buffer, "records", fmt.Sprint(len(records)))
	buffer.WriteString(">\n")

	columns := Columns(options.Extended)
	for i, r := range records {
		writeRecord(&buffer, options, columns, Row(r, options.Extended), i+1)
	}

	buffer.WriteString("</" + options.RootElement + ">\n")

	if _, err := w.Write(buffer.Bytes()); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}
	return nil
}

// writeRecord writes one record element. The index attribute is 1-based
// and runs across the whole document.
func writeRecord(buffer *bytes.Buffer, options Options, columns, values []string, index int) {
	buffer.WriteString(options.Indent + "<" + options.RecordElement)
	writeAttr(buffer, "n", fmt.Sprint(index))

	empty := true
	for _, v := range values {
		if v != "" {
			empty = false
			break
		}
	}
	if empty {
		buffer.WriteString("/>\n")
		return
	}
	buffer.WriteString(">\n")

	for i, v := range values {
		if v == "" {
			continue
		}
		buffer.WriteString(strings.Repeat(options.Indent, 2))
		buffer.WriteString("<" + columns[i] + ">")
		xml.EscapeText(buffer, []byte(v))
		buffer.WriteString("</" + columns[i] + ">\n")
	}

	buffer.WriteString(options.Indent + "</" + options.RecordElement + ">\n")
}

func writeAttr(buffer *bytes.Buffer, name, value string) {
	buffer.WriteString(" " + name + `="`)
	xml.EscapeText(buffer, []byte(value))
	buffer.WriteString(`"`)
}

// =============================================================================
// XSD GENERATION
// =============================================================================

// WriteXSD writes an XSD schema describing the documents WriteXML produces
// for the same options. Amount columns are xs:decimal; every other column is
// xs:string.
func WriteXSD(w io.Writer, options Options) error {
	applyOptionDefaults(&options)

	var buffer bytes.Buffer
	buffer.WriteString(xml.Header)
	buffer.WriteString(`<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">` + "\n")

	fmt.Fprintf(&buffer, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="%s" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="source" type="xs:string"/>
      <xs:attribute name="records" type="xs:nonNegativeInteger" use="required"/>
    </xs:complexType>
  </xs:element>

`, options.RootElement, options.RecordElement)

	fmt.Fprintf(&buffer, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
`, options.RecordElement)

	numeric := numericColumns(options.Extended)
	for i, column := range Columns(options.Extended) {
		xsdType := "xs:string"
		if numeric[i] {
			xsdType = "xs:decimal"
		}
		fmt.Fprintf(&buffer, "        <xs:element name=\"%s\" type=\"%s\" minOccurs=\"0\"/>\n", column, xsdType)
	}

	buffer.WriteString(`      </xs:sequence>
      <xs:attribute name="n" type="xs:positiveInteger" use="required"/>
    </xs:complexType>
  </xs:element>

</xs:schema>
`)

	if _, err := w.Write(buffer.Bytes()); err != nil {
		return fmt.Errorf("failed to write XSD: %w", err)
	}
	return nil
}
