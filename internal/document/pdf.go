package document

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dshills/lexiscan/internal/schema"
)

// Glyph is one positioned run of text on a PDF page, in user space with the
// baseline at Y.
type Glyph struct {
	X, Y, W  float64
	FontSize float64
	S        string
}

func (n *Normalizer) extractPDF(doc *Document) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pageCount, err := api.PageCount(bytes.NewReader(doc.Raw), conf)
	if err != nil {
		return fmt.Errorf("%w: pdf: %v", ErrExtractionFailure, err)
	}

	pages, err := readPDFGlyphs(doc.Raw)
	if err != nil {
		// pdfcpu accepted the file, so it is a PDF; the text layer is simply
		// unavailable (encrypted or unsupported fonts).
		n.logger.Warn("document.pdf.text_unavailable", "filename", doc.Filename, "error", err)
		pages = make([][]Glyph, pageCount)
	}

	if est := zeroWidthGlyphs(pages); est > 0 {
		n.logger.Info("document.pdf.width_estimated", "filename", doc.Filename, "glyphs", est)
	}

	doc.Pages = make([]Page, len(pages))
	for i, glyphs := range pages {
		doc.Pages[i] = LayoutPage(glyphs)
	}
	joinPages(doc)

	if len(strings.TrimSpace(doc.Text)) < n.MinTextChars {
		doc.LowConfidence = true
	}
	return nil
}

// readPDFGlyphs returns the positioned text of every page. Malformed content
// streams make the reader panic, so that is converted into an error.
func readPDFGlyphs(data []byte) (pages [][]Glyph, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf text reader: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf text reader: %w", err)
	}
	n := r.NumPage()
	pages = make([][]Glyph, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, t := range p.Content().Text {
			pages[i-1] = append(pages[i-1], Glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
		}
	}
	return pages, nil
}

// LayoutPage linearizes glyphs in content-stream order. A newline is inserted
// when the baseline moves by more than half a font size, and a space when a
// horizontal gap wider than a fifth of the font size separates two glyphs on
// the same line. Every byte of the resulting text gets the rectangle of the
// glyph it came from; inserted separators get an empty rectangle.
//
// Glyphs reported without a width (standard fonts with no /Widths array) get
// an estimated one so that they still produce a visible rectangle.
func LayoutPage(glyphs []Glyph) Page {
	var (
		sb    strings.Builder
		boxes []schema.Rect
		prev  *Glyph
		prevW float64
		tail  byte
	)
	emit := func(s string, box schema.Rect) {
		sb.WriteString(s)
		for range len(s) {
			boxes = append(boxes, box)
		}
		tail = s[len(s)-1]
	}
	for i := range glyphs {
		g := &glyphs[i]
		if g.S == "" {
			continue
		}
		fs := fontSize(g)
		w := glyphWidth(glyphs, i)
		if prev != nil {
			switch {
			case math.Abs(g.Y-prev.Y) > fs/2:
				if tail != '\n' {
					emit("\n", schema.Rect{})
				}
			case g.X-(prev.X+prevW) > fs/5:
				if tail != ' ' && tail != '\n' && g.S[0] != ' ' {
					emit(" ", schema.Rect{})
				}
			}
		}
		emit(g.S, schema.Rect{
			X0: g.X,
			Y0: g.Y - 0.2*fs,
			X1: g.X + w,
			Y1: g.Y + 0.8*fs,
		})
		prev, prevW = g, w
	}
	return Page{Text: sb.String(), Boxes: boxes}
}

func fontSize(g *Glyph) float64 {
	if g.FontSize <= 0 {
		return 10
	}
	return g.FontSize
}

// glyphWidth returns the width of glyphs[i], estimated when the reader
// reported none: the advance to the next glyph on the same baseline, or half
// the font size per rune.
func glyphWidth(glyphs []Glyph, i int) float64 {
	g := &glyphs[i]
	if g.W > 0 {
		return g.W
	}
	fs := fontSize(g)
	for j := i + 1; j < len(glyphs); j++ {
		n := &glyphs[j]
		if n.S == "" {
			continue
		}
		if math.Abs(n.Y-g.Y) <= fs/2 && n.X > g.X && n.X-g.X < fs*float64(utf8.RuneCountInString(g.S)) {
			return n.X - g.X
		}
		break
	}
	return 0.5 * fs * float64(utf8.RuneCountInString(g.S))
}

// zeroWidthGlyphs counts glyphs whose width had to be estimated.
func zeroWidthGlyphs(pages [][]Glyph) int {
	n := 0
	for _, glyphs := range pages {
		for _, g := range glyphs {
			if g.S != "" && g.W <= 0 {
				n++
			}
		}
	}
	return n
}
