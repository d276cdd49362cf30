// Package pdftest builds small, valid PDF files for tests. Pages are drawn
// with the standard Helvetica font; text must be printable ASCII.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Line is one run of text with its baseline origin at (X, Y), in points from
// the lower-left corner of a US Letter page.
type Line struct {
	X, Y float64
	Text string
}

// Options tunes the generated file.
type Options struct {
	// FontSize defaults to 12.
	FontSize float64
	// OmitWidths leaves /Widths out of the font dictionary, which is legal
	// for the standard 14 fonts.
	OmitWidths bool
}

// GlyphWidth is the advance, in thousandths of the font size, written for
// every character when widths are included.
const GlyphWidth = 500

// Build returns a PDF with one page per element of pages. A page with no
// lines has an empty content stream, like a scan without a text layer.
func Build(opts Options, pages ...[]Line) []byte {
	if opts.FontSize <= 0 {
		opts.FontSize = 12
	}
	var objs []string
	add := func(s string) int {
		objs = append(objs, s)
		return len(objs)
	}

	catalog := add("") // patched once the page tree number is known
	pagesObj := add("")
	font := "<</Type/Font/Subtype/Type1/BaseFont/Helvetica/Encoding/WinAnsiEncoding"
	if !opts.OmitWidths {
		widths := strings.TrimSpace(strings.Repeat(fmt.Sprintf("%d ", GlyphWidth), 126-32+1))
		font += "/FirstChar 32/LastChar 126/Widths[" + widths + "]"
	}
	fontObj := add(font + ">>")

	var kids []string
	for _, lines := range pages {
		content := contentStream(opts.FontSize, lines)
		contentObj := add(fmt.Sprintf("<</Length %d>>\nstream\n%s\nendstream", len(content), content))
		pageObj := add(fmt.Sprintf(
			"<</Type/Page/Parent %d 0 R/MediaBox[0 0 612 792]/Resources<</Font<</F1 %d 0 R>>>>/Contents %d 0 R>>",
			pagesObj, fontObj, contentObj))
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj))
	}
	objs[catalog-1] = fmt.Sprintf("<</Type/Catalog/Pages %d 0 R>>", pagesObj)
	objs[pagesObj-1] = fmt.Sprintf("<</Type/Pages/Kids[%s]/Count %d>>", strings.Join(kids, " "), len(kids))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d/Root %d 0 R>>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, catalog, xref)
	return buf.Bytes()
}

func contentStream(fontSize float64, lines []Line) string {
	if len(lines) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "BT\n/F1 %g Tf\n", fontSize)
	for _, l := range lines {
		fmt.Fprintf(&sb, "1 0 0 1 %g %g Tm\n(%s) Tj\n", l.X, l.Y, escape(l.Text))
	}
	sb.WriteString("ET")
	return sb.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
