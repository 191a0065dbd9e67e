package adapter

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ginjaninja78/schedule-extractor/internal/config"
	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// XBRL INSTANCE READER
// =============================================================================
//
// EXPECTED STRUCTURE:
//
//   <xbrli:context id="c1">
//     <xbrli:entity>
//       <xbrli:segment>
//         <xbrldi:typedMember dimension="us-gaap:InvestmentIdentifierAxis">
//           <us-gaap:InvestmentIdentifierAxis.domain>Acme Corp, First Lien</...>
//         </xbrldi:typedMember>
//         <xbrldi:explicitMember dimension="us-gaap:InvestmentIndustryAxis">
//           ex:SoftwareSectorMember
//         </xbrldi:explicitMember>
//       </xbrli:segment>
//     </xbrli:entity>
//     <xbrli:period><xbrli:instant>2025-06-30</xbrli:instant></xbrli:period>
//   </xbrli:context>
//   <us-gaap:InvestmentOwnedAtFairValue contextRef="c1" unitRef="usd">950000</...>

// Axes names the dimensions that carry the identifier and the industry.
type Axes struct {
	Identifier []string
	Industry   []string
}

// AxesOf returns the axes configured in a profile.
func AxesOf(profile *config.SourceProfile) Axes {
	if profile == nil {
		profile = config.DefaultProfile()
	}
	return Axes{Identifier: profile.IdentifierAxes, Industry: profile.IndustryAxes}
}

type xbrlContext struct {
	ID               string         `xml:"id,attr"`
	SegmentTyped     []xbrlTyped    `xml:"entity>segment>typedMember"`
	SegmentExplicit  []xbrlExplicit `xml:"entity>segment>explicitMember"`
	ScenarioTyped    []xbrlTyped    `xml:"scenario>typedMember"`
	ScenarioExplicit []xbrlExplicit `xml:"scenario>explicitMember"`
	Instant          string         `xml:"period>instant"`
	StartDate        string         `xml:"period>startDate"`
	EndDate          string         `xml:"period>endDate"`
}

type xbrlTyped struct {
	Dimension string `xml:"dimension,attr"`
	Value     struct {
		Text string `xml:",chardata"`
	} `xml:",any"`
}

type xbrlExplicit struct {
	Dimension string `xml:"dimension,attr"`
	Member    string `xml:",chardata"`
}

type xbrlFact struct {
	ContextRef string `xml:"contextRef,attr"`
	UnitRef    string `xml:"unitRef,attr"`
	Decimals   string `xml:"decimals,attr"`
	Nil        string `xml:"http://www.w3.org/2001/XMLSchema-instance nil,attr"`
	Value      string `xml:",chardata"`
}

// ReadXBRL reads an XBRL instance document. Contexts without a usable
// identifier member are kept so the discoverer can report on them; facts
// are attached to the document, not to the contexts.
func ReadXBRL(r io.Reader, source string, axes Axes) (*types.RawDocument, error) {
	doc := &types.RawDocument{Source: source, Kind: types.KindDimensional}
	decoder := xml.NewDecoder(r)
	decoder.Strict = false

	depth := 0
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if depth == 0 && len(doc.Contexts) == 0 && len(doc.Facts) == 0 {
				return nil, fmt.Errorf("failed to parse XBRL: %w", err)
			}
			// Truncated documents keep what was read.
			break
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				continue
			}

			if el.Name.Local == "context" {
				var c xbrlContext
				if err := decoder.DecodeElement(&c, &el); err != nil {
					depth--
					continue
				}
				depth--
				doc.Contexts = append(doc.Contexts, c.toContext(axes))
				continue
			}

			if hasAttr(el, "contextRef") {
				var f xbrlFact
				if err := decoder.DecodeElement(&f, &el); err != nil {
					depth--
					continue
				}
				depth--
				if f.Nil == "true" {
					continue
				}
				doc.Facts = append(doc.Facts, types.Fact{
					ContextRef: f.ContextRef,
					Concept:    el.Name.Local,
					Value:      strings.TrimSpace(f.Value),
					Unit:       f.UnitRef,
					Decimals:   f.Decimals,
				})
				continue
			}

		case xml.EndElement:
			depth--
		}
	}

	return doc, nil
}

func hasAttr(el xml.StartElement, local string) bool {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return true
		}
	}
	return false
}

func (c xbrlContext) toContext(axes Axes) types.Context {
	out := types.Context{
		ID:        c.ID,
		Instant:   strings.TrimSpace(c.Instant),
		StartDate: strings.TrimSpace(c.StartDate),
		EndDate:   strings.TrimSpace(c.EndDate),
	}

	typed := append(append([]xbrlTyped(nil), c.SegmentTyped...), c.ScenarioTyped...)
	for _, m := range typed {
		if onAxis(m.Dimension, axes.Identifier) {
			out.Identifier = strings.TrimSpace(m.Value.Text)
			break
		}
	}
	if out.Identifier == "" && len(typed) == 1 {
		out.Identifier = strings.TrimSpace(typed[0].Value.Text)
	}

	explicit := append(append([]xbrlExplicit(nil), c.SegmentExplicit...), c.ScenarioExplicit...)
	for _, m := range explicit {
		if onAxis(m.Dimension, axes.Industry) {
			out.Industry = MemberLabel(m.Member)
			break
		}
	}
	for _, m := range typed {
		if out.Industry == "" && onAxis(m.Dimension, axes.Industry) {
			out.Industry = strings.TrimSpace(m.Value.Text)
		}
	}

	return out
}

// onAxis compares the local part of a dimension QName with the axis names.
func onAxis(dimension string, axes []string) bool {
	local := dimension
	if i := strings.LastIndexByte(local, ':'); i >= 0 {
		local = local[i+1:]
	}
	for _, a := range axes {
		if strings.EqualFold(local, a) {
			return true
		}
	}
	return false
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// MemberLabel turns an explicit member QName into a readable label:
// "ex:HealthCareProvidersAndServicesMember" -> "Health Care Providers And Services".
func MemberLabel(member string) string {
	member = strings.TrimSpace(member)
	if i := strings.LastIndexByte(member, ':'); i >= 0 {
		member = member[i+1:]
	}
	member = strings.TrimSuffix(member, "Member")
	member = strings.TrimSuffix(member, "Sector")
	member = camelBoundary.ReplaceAllString(member, "$1 $2")
	return strings.Join(strings.Fields(member), " ")
}
