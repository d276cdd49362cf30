package document

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/dshills/lexiscan/internal/pdftest"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestDetect(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		declared string
		data     []byte
		want     Format
	}{
		{"declared pdf", "a.bin", "application/pdf", []byte("%PDF-1.4"), FormatPDF},
		{"sniffed pdf", "upload", "", []byte("%PDF-1.7\n%..."), FormatPDF},
		{"octet-stream falls back to sniff", "x", "application/octet-stream", []byte("%PDF-1.7\n"), FormatPDF},
		{"declared text with params", "a", "text/plain; charset=utf-8", []byte("hello"), FormatText},
		{"sniffed png", "scan", "", pngHeader, FormatImage},
		{"markdown by extension", "notes.md", "application/octet-stream", []byte{0xff, 0xfe, 0x00, 0x01, 0x02}, FormatText},
		{"declared docx", "c.docx", mimeDOCX, []byte("PK"), FormatDOCX},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, _, err := Detect(c.filename, c.declared, c.data)
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if got != c.want {
				t.Errorf("Detect = %q, want %q", got, c.want)
			}
		})
	}
}

func TestDetect_Unsupported(t *testing.T) {
	_, _, err := Detect("archive.tar", "application/x-tar", []byte{0x00, 0x01, 0x02, 0x03})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeText_Lenient(t *testing.T) {
	got, err := DecodeText([]byte("loyer \xff800 euros"))
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if got != "loyer �800 euros" {
		t.Errorf("DecodeText = %q", got)
	}

	got, err = DecodeText([]byte("\xef\xbb\xbfArticle 1"))
	if err != nil {
		t.Fatalf("DecodeText BOM: %v", err)
	}
	if got != "Article 1" {
		t.Errorf("BOM not stripped: %q", got)
	}
}

func TestNormalize_Text(t *testing.T) {
	n := NewNormalizer(nil)
	doc, err := n.Normalize(context.Background(), Upload{
		Filename: "bail.txt",
		MIME:     "text/plain",
		Data:     []byte("Article 1: Fee is 800.\n\nArticle 2: No pets allowed."),
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if doc.Format != FormatText {
		t.Errorf("Format = %q", doc.Format)
	}
	if doc.Paged() {
		t.Error("text documents are not paged")
	}
	if doc.PageCount() != 1 {
		t.Errorf("PageCount = %d", doc.PageCount())
	}
	if !strings.HasSuffix(doc.Text, "No pets allowed.") {
		t.Errorf("Text = %q", doc.Text)
	}
}

func TestNormalize_EmptyTextRejected(t *testing.T) {
	n := NewNormalizer(nil)
	_, err := n.Normalize(context.Background(), Upload{Filename: "a.txt", MIME: "text/plain", Data: []byte("  \n\t ")})
	if !errors.Is(err, ErrExtractionFailure) {
		t.Fatalf("expected ErrExtractionFailure, got %v", err)
	}
	_, err = n.Normalize(context.Background(), Upload{Filename: "a.txt", MIME: "text/plain"})
	if !errors.Is(err, ErrExtractionFailure) {
		t.Fatalf("expected ErrExtractionFailure for empty upload, got %v", err)
	}
}

func TestNormalize_CorruptPDF(t *testing.T) {
	n := NewNormalizer(nil)
	_, err := n.Normalize(context.Background(), Upload{
		Filename: "broken.pdf",
		MIME:     "application/pdf",
		Data:     []byte("%PDF-1.4\nthis is not really a pdf"),
	})
	if !errors.Is(err, ErrExtractionFailure) {
		t.Fatalf("expected ErrExtractionFailure, got %v", err)
	}
}

func TestNormalize_Image(t *testing.T) {
	n := NewNormalizer(nil)
	doc, err := n.Normalize(context.Background(), Upload{Filename: "scan.png", Data: pngHeader})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if doc.Format != FormatImage || doc.Text != "" {
		t.Errorf("image doc = %+v", doc)
	}
	if !bytes.Equal(doc.Raw, pngHeader) {
		t.Error("image bytes must be kept unmodified")
	}
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	xmlDoc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
	if _, err := w.Write([]byte(xmlDoc)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNormalize_DOCX(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>Article 1 :</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve"> Paiement</w:t></w:r></w:p>`+
			`<w:p></w:p>`+
			`<w:p><w:r><w:t>Le loyer est de 800 euros.</w:t></w:r></w:p>`)
	n := NewNormalizer(nil)
	doc, err := n.Normalize(context.Background(), Upload{Filename: "bail.docx", MIME: mimeDOCX, Data: data})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := "Article 1 :\t Paiement\n\nLe loyer est de 800 euros."
	if doc.Text != want {
		t.Errorf("Text = %q, want %q", doc.Text, want)
	}
	if len(doc.Pages) != 0 {
		t.Errorf("docx must not carry pages, got %d", len(doc.Pages))
	}
}

func TestNormalize_DOCXMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("word/styles.xml"); err != nil {
		t.Fatal(err)
	}
	zw.Close()

	n := NewNormalizer(nil)
	_, err := n.Normalize(context.Background(), Upload{Filename: "x.docx", MIME: mimeDOCX, Data: buf.Bytes()})
	if !errors.Is(err, ErrExtractionFailure) {
		t.Fatalf("expected ErrExtractionFailure, got %v", err)
	}
}

func TestNormalize_XLSX(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "Clause"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "Penalty of 50% per day"); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	n := NewNormalizer(nil)
	doc, err := n.Normalize(context.Background(), Upload{Filename: "terms.xlsx", MIME: mimeXLSX, Data: buf.Bytes()})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !doc.Paged() || len(doc.Pages) != 1 {
		t.Fatalf("expected one sheet page, got %d", len(doc.Pages))
	}
	if doc.Pages[0].Text != "Clause\tPenalty of 50% per day" {
		t.Errorf("sheet text = %q", doc.Pages[0].Text)
	}
}

func TestLayoutPage(t *testing.T) {
	glyphs := []Glyph{
		{X: 10, Y: 700, W: 6, FontSize: 12, S: "N"},
		{X: 16, Y: 700, W: 6, FontSize: 12, S: "o"},
		// gap of 8 > 12/5: a space is inserted
		{X: 30, Y: 700, W: 6, FontSize: 12, S: "p"},
		// baseline drop: a newline is inserted
		{X: 10, Y: 680, W: 6, FontSize: 12, S: "é"},
	}
	p := LayoutPage(glyphs)
	if p.Text != "No p\né" {
		t.Fatalf("Text = %q", p.Text)
	}
	if !p.HasGeometry() {
		t.Fatal("page must carry one box per byte")
	}
	if !p.Boxes[2].Empty() || !p.Boxes[4].Empty() {
		t.Error("inserted separators must have empty boxes")
	}
	if p.Boxes[0].X0 != 10 || p.Boxes[0].X1 != 16 {
		t.Errorf("box[0] = %+v", p.Boxes[0])
	}
	// "é" is two bytes, both mapped to the same glyph.
	if p.Boxes[5] != p.Boxes[6] || p.Boxes[5].Empty() {
		t.Errorf("multi-byte glyph boxes = %+v %+v", p.Boxes[5], p.Boxes[6])
	}
}

func TestLayoutPage_EstimatesMissingWidths(t *testing.T) {
	tests := []struct {
		name   string
		glyphs []Glyph
		wantX1 float64
	}{
		{
			name: "advance to next glyph",
			glyphs: []Glyph{
				{X: 10, Y: 700, FontSize: 12, S: "N"},
				{X: 17, Y: 700, FontSize: 12, S: "o"},
			},
			wantX1: 17,
		},
		{
			name: "no advance falls back to half the font size",
			glyphs: []Glyph{
				{X: 10, Y: 700, FontSize: 12, S: "N"},
				{X: 10, Y: 700, FontSize: 12, S: "o"},
			},
			wantX1: 16,
		},
		{
			name: "last glyph on the line",
			glyphs: []Glyph{
				{X: 10, Y: 700, FontSize: 12, S: "No"},
				{X: 10, Y: 680, FontSize: 12, S: "p"},
			},
			wantX1: 22,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := LayoutPage(tt.glyphs)
			if p.Boxes[0].Empty() {
				t.Fatalf("zero-width glyph produced an empty box: %+v", p.Boxes[0])
			}
			if p.Boxes[0].X1 != tt.wantX1 {
				t.Errorf("box[0].X1 = %v, want %v", p.Boxes[0].X1, tt.wantX1)
			}
		})
	}
}

func TestNormalize_PDF(t *testing.T) {
	for _, omit := range []bool{false, true} {
		data := pdftest.Build(pdftest.Options{OmitWidths: omit},
			[]pdftest.Line{
				{X: 72, Y: 720, Text: "Article 1: Fee is 800 euros per month,"},
				{X: 72, Y: 704, Text: "payable in advance on the first day."},
			},
			[]pdftest.Line{{X: 72, Y: 720, Text: "Article 2: No pets allowed."}},
		)
		doc, err := NewNormalizer(nil).Normalize(context.Background(), Upload{Filename: "lease.pdf", Data: data})
		if err != nil {
			t.Fatalf("omitWidths=%v: Normalize: %v", omit, err)
		}
		if doc.Format != FormatPDF || len(doc.Pages) != 2 {
			t.Fatalf("omitWidths=%v: format %s pages %d", omit, doc.Format, len(doc.Pages))
		}
		if doc.LowConfidence {
			t.Errorf("omitWidths=%v: text-bearing PDF marked low confidence", omit)
		}
		if !strings.Contains(doc.Text, "Fee") || !strings.Contains(doc.Text, "pets") {
			t.Errorf("omitWidths=%v: Text = %q", omit, doc.Text)
		}
		for i, p := range doc.Pages {
			if !p.HasGeometry() {
				t.Errorf("omitWidths=%v: page %d has no geometry", omit, i)
				continue
			}
			for j := range p.Text {
				if p.Text[j] != ' ' && p.Text[j] != '\n' && p.Boxes[j].Empty() {
					t.Errorf("omitWidths=%v: page %d byte %d (%q) has an empty box", omit, i, j, p.Text[j])
					break
				}
			}
		}
	}
}

func TestNormalize_PDFWithoutTextIsLowConfidence(t *testing.T) {
	data := pdftest.Build(pdftest.Options{}, nil)
	doc, err := NewNormalizer(nil).Normalize(context.Background(), Upload{Filename: "scan.pdf", MIME: mimePDF, Data: data})
	if err != nil {
		t.Fatalf("a scanned PDF is not an extraction failure: %v", err)
	}
	if !doc.LowConfidence {
		t.Error("expected LowConfidence for a page without text")
	}
	if doc.PageCount() != 1 {
		t.Errorf("PageCount = %d", doc.PageCount())
	}
}

func TestDOCXParagraphs(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "tab stops in paragraph properties",
			body: `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/><w:tab w:val="left" w:pos="1440"/></w:tabs></w:pPr>` +
				`<w:r><w:t>Article 1</w:t></w:r></w:p>`,
			want: []string{"Article 1"},
		},
		{
			name: "tab and break inside runs",
			body: `<w:p><w:r><w:t>A</w:t><w:tab/><w:t>B</w:t><w:br/><w:t>C</w:t></w:r></w:p>`,
			want: []string{"A\tB\nC"},
		},
		{
			name: "nested text box paragraph",
			body: `<w:p><w:r><w:t>Before </w:t></w:r>` +
				`<w:r><w:txbxContent><w:p><w:r><w:t>Boxed</w:t></w:r></w:p></w:txbxContent></w:r>` +
				`<w:r><w:t>after</w:t></w:r></w:p>`,
			want: []string{"Boxed", "Before after"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xmlDoc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
				tt.body + `</w:body></w:document>`
			got, err := docxParagraphs(strings.NewReader(xmlDoc))
			if err != nil {
				t.Fatalf("docxParagraphs: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJoinPages_Offsets(t *testing.T) {
	doc := &Document{Pages: []Page{{Text: "one"}, {Text: "two"}}}
	joinPages(doc)
	if doc.Text != "one\n\ntwo" {
		t.Fatalf("Text = %q", doc.Text)
	}
	if doc.Pages[1].Offset != 5 || doc.Pages[1].Index != 1 {
		t.Errorf("page 1 = %+v", doc.Pages[1])
	}
	p := doc.Pages[1]
	if doc.Text[p.Offset:p.Offset+len(p.Text)] != p.Text {
		t.Error("page offset does not address its text")
	}
}
