// Package document normalizes uploaded bytes (PDF, image, Word, spreadsheet,
// or plain text) into a canonical text plus a renderable, page-addressable
// representation.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dshills/lexiscan/internal/schema"
)

// Format tags the container type of a normalized document.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatImage Format = "image"
	FormatDOCX  Format = "docx"
	FormatXLSX  Format = "xlsx"
	FormatText  Format = "text"
)

// PageSeparator joins page texts in Document.Text.
const PageSeparator = "\n\n"

// DefaultMinTextChars is the extracted-text length below which a PDF is
// assumed to be a scan without a text layer.
const DefaultMinTextChars = 50

var (
	// ErrUnsupportedFormat is returned when the upload is not a recognised
	// document type. The request is rejected before any oracle call.
	ErrUnsupportedFormat = errors.New("document: unsupported format")

	// ErrExtractionFailure is returned when the bytes do not parse as their
	// declared format, or no text could be extracted from a text format.
	ErrExtractionFailure = errors.New("document: extraction failure")
)

// Page is one addressable page of a document. Boxes, when present, has one
// rectangle per byte of Text; separator bytes carry an empty rectangle.
type Page struct {
	Index  int
	Offset int // byte offset of Text within Document.Text
	Text   string
	Boxes  []schema.Rect
}

// HasGeometry reports whether the page carries glyph rectangles.
func (p Page) HasGeometry() bool {
	return len(p.Boxes) > 0 && len(p.Boxes) == len(p.Text)
}

// Document is the canonical result of normalization. It is owned by the
// request that created it.
type Document struct {
	Filename string
	Format   Format
	MIME     string
	Text     string
	Pages    []Page
	// Raw is the original container, used as the renderable for annotation.
	Raw []byte
	// LowConfidence marks a document whose text layer is missing or too thin
	// to trust a clean result.
	LowConfidence bool
}

// PageCount returns the number of pages; text-only formats report 1.
func (d *Document) PageCount() int {
	if len(d.Pages) == 0 {
		return 1
	}
	return len(d.Pages)
}

// Paged reports whether locations in this document carry page indices.
func (d *Document) Paged() bool {
	return d.Format == FormatPDF || d.Format == FormatXLSX
}

// Upload is one submitted file.
type Upload struct {
	Filename string
	MIME     string // declared content type; may be empty
	Data     []byte
}

// Normalizer dispatches uploads to format-specific extractors.
type Normalizer struct {
	MinTextChars int
	logger       *slog.Logger
}

// NewNormalizer returns a Normalizer with default thresholds.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{MinTextChars: DefaultMinTextChars, logger: logger}
}

// Normalize detects the upload format and extracts its text.
func (n *Normalizer) Normalize(ctx context.Context, up Upload) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(up.Data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrExtractionFailure)
	}
	format, mimeType, err := Detect(up.Filename, up.MIME, up.Data)
	if err != nil {
		n.logger.Warn("document.detect.unsupported",
			"filename", up.Filename, "declared", up.MIME, "detected", mimeType)
		return nil, err
	}
	n.logger.Debug("document.normalize.start",
		"filename", up.Filename, "format", format, "mime", mimeType, "bytes", len(up.Data))

	doc := &Document{Filename: up.Filename, Format: format, MIME: mimeType, Raw: up.Data}
	switch format {
	case FormatPDF:
		err = n.extractPDF(doc)
	case FormatImage:
		// Images go to the oracle as-is; annotation is not attempted.
	case FormatDOCX:
		err = extractDOCX(doc)
	case FormatXLSX:
		err = extractXLSX(doc)
	case FormatText:
		err = extractText(doc)
	}
	if err != nil {
		n.logger.Error("document.normalize.failed", "filename", up.Filename, "format", format, "error", err)
		return nil, err
	}

	if format != FormatImage && format != FormatPDF && strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: no text extracted from document", ErrExtractionFailure)
	}

	n.logger.Info("document.normalize.ok",
		"filename", up.Filename,
		"format", format,
		"pages", doc.PageCount(),
		"chars", utf8.RuneCountInString(doc.Text),
		"low_confidence", doc.LowConfidence,
	)
	return doc, nil
}

// joinPages assembles Document.Text from page texts and fixes up offsets.
func joinPages(doc *Document) {
	var sb strings.Builder
	for i := range doc.Pages {
		if i > 0 {
			sb.WriteString(PageSeparator)
		}
		doc.Pages[i].Index = i
		doc.Pages[i].Offset = sb.Len()
		sb.WriteString(doc.Pages[i].Text)
	}
	doc.Text = sb.String()
}
