package adapter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/ginjaninja78/schedule-extractor/internal/types"
)

// =============================================================================
// HTML READER
// =============================================================================

// headingMemory is how many preceding text blocks are kept for each table.
const headingMemory = 20

// maxColspan guards against absurd colspan attributes.
const maxColspan = 50

// blockElements end a text block when entered or left.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"center": true, "section": true, "article": true, "header": true,
	"footer": true, "hr": true, "table": true, "tr": true, "td": true, "th": true,
	"body": true, "title": true, "caption": true,
}

type htmlReader struct {
	doc    *types.RawDocument
	blocks []string
	buf    strings.Builder
}

// ReadHTML reads every table of an HTML filing. Each table records the
// text blocks that precede it (nearest last) as its heading. Cell text is
// flattened from nested formatting; colspan cells are repeated as empty
// cells so later columns keep their positions.
func ReadHTML(r io.Reader, source string) (*types.RawDocument, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	hr := &htmlReader{doc: &types.RawDocument{Source: source, Kind: types.KindTabular}}
	hr.walk(root)
	hr.flush()

	return hr.doc, nil
}

func (hr *htmlReader) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		hr.buf.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "head", "noscript":
			return
		case "table":
			hr.flush()
			hr.readTable(n)
			return
		}
		if blockElements[n.Data] {
			hr.flush()
			defer hr.flush()
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		hr.walk(c)
	}
}

// flush closes the current text block.
func (hr *htmlReader) flush() {
	text := CleanCell(hr.buf.String())
	hr.buf.Reset()
	if text == "" {
		return
	}

	hr.blocks = append(hr.blocks, text)
	if len(hr.blocks) > headingMemory {
		hr.blocks = hr.blocks[len(hr.blocks)-headingMemory:]
	}
	if mentionsScale(text) {
		hr.doc.ScaleHints = append(hr.doc.ScaleHints, text)
	}
}

func (hr *htmlReader) readTable(n *html.Node) {
	table := types.Table{
		Index:   len(hr.doc.Tables),
		Heading: append([]string(nil), hr.blocks...),
	}

	for _, tr := range rowsOf(n) {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
				continue
			}
			text := CleanCell(textOf(c))
			cells = append(cells, text)
			for i := 1; i < colspan(c); i++ {
				cells = append(cells, "")
			}
			if mentionsScale(text) {
				hr.doc.ScaleHints = append(hr.doc.ScaleHints, text)
			}
		}
		if len(cells) > 0 {
			table.Rows = append(table.Rows, cells)
		}
	}

	hr.doc.Tables = append(hr.doc.Tables, table)
}

// rowsOf collects the rows of a table without descending into nested
// tables.
func rowsOf(table *html.Node) []*html.Node {
	var rows []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				rows = append(rows, c)
			case "table":
				// Nested tables stay part of their cell's text.
			default:
				visit(c)
			}
		}
	}
	visit(table)
	return rows
}

// textOf flattens the text of a node and all its descendants.
func textOf(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "br" || n.Data == "p" || n.Data == "div") {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func colspan(n *html.Node) int {
	for _, a := range n.Attr {
		if a.Key != "colspan" {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(a.Val))
		if err != nil || v < 1 {
			return 1
		}
		if v > maxColspan {
			return maxColspan
		}
		return v
	}
	return 1
}

func mentionsScale(text string) bool {
	lower := strings.ToLower(text)
	return len(lower) < 200 && (strings.Contains(lower, "thousand") || strings.Contains(lower, "million"))
}
