// Package annotate writes risk highlights into PDF documents.
package annotate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/dshills/lexiscan/internal/document"
	"github.com/dshills/lexiscan/internal/schema"
)

// ErrAnnotationFailure is returned when highlights could not be written. The
// caller still receives the original document bytes.
var ErrAnnotationFailure = errors.New("annotate: annotation failure")

var riskColors = map[schema.RiskLevel]color.SimpleColor{
	schema.RiskCritical: {R: 1, G: 0, B: 0},
	schema.RiskMedium:   {R: 1, G: 0.65, B: 0},
	schema.RiskLow:      {R: 0, G: 0.8, B: 0},
}

// Annotator highlights resolved finding locations. Opacity is the highlight
// alpha in [0,1].
type Annotator struct {
	Opacity float64
	logger  *slog.Logger
}

// New returns an Annotator with a semi-transparent highlight.
func New(logger *slog.Logger) *Annotator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotator{Opacity: 0.4, logger: logger}
}

// Annotate returns doc's renderable with one highlight per location rectangle.
// Non-PDF documents, and PDFs with nothing to highlight, are returned
// unchanged. On failure the original bytes are returned with an error
// wrapping ErrAnnotationFailure.
func (a *Annotator) Annotate(ctx context.Context, doc *document.Document, findings []schema.Finding) ([]byte, error) {
	if doc == nil {
		return nil, nil
	}
	if doc.Format != document.FormatPDF {
		return doc.Raw, nil
	}
	if err := ctx.Err(); err != nil {
		return doc.Raw, fmt.Errorf("%w: %v", ErrAnnotationFailure, err)
	}

	m, skipped := a.renderers(findings)
	if skipped > 0 {
		a.logger.Warn("annotate.rect.skipped", "filename", doc.Filename, "count", skipped)
	}
	if len(m) == 0 {
		return doc.Raw, nil
	}

	out, err := apply(doc.Raw, m)
	if err != nil {
		a.logger.Error("annotate.failed", "filename", doc.Filename, "error", err)
		return doc.Raw, fmt.Errorf("%w: %v", ErrAnnotationFailure, err)
	}
	a.logger.Info("annotate.ok", "filename", doc.Filename, "pages", len(m), "bytes", len(out))
	return out, nil
}

// renderers groups highlight annotations by 1-based page number. Locations
// without a page or with degenerate rectangles are skipped.
func (a *Annotator) renderers(findings []schema.Finding) (map[int][]model.AnnotationRenderer, int) {
	m := make(map[int][]model.AnnotationRenderer)
	skipped := 0
	modDate := types.DateString(time.Now())
	ca := a.Opacity
	for _, f := range findings {
		col, ok := riskColors[f.Risk]
		if !ok {
			col = riskColors[schema.RiskMedium]
		}
		for li, loc := range f.Locations {
			if loc.Page < 0 {
				continue
			}
			for ri, r := range loc.Rects {
				if r.Empty() {
					skipped++
					continue
				}
				id := fmt.Sprintf("lexiscan-%s-%d-%d", f.ID, li, ri)
				ann := model.NewHighlightAnnotation(
					*types.NewRectangle(r.X0, r.Y0, r.X1, r.Y1),
					0,
					popupText(f),
					id,
					modDate,
					model.AnnPrint,
					&col,
					0, 0, 0,
					"LexiScan",
					nil,
					&ca,
					"",
					string(f.Risk),
					quadPoints(r),
				)
				m[loc.Page+1] = append(m[loc.Page+1], ann)
			}
		}
	}
	return m, skipped
}

// quadPoints returns the single quadrilateral covering r, counter-clockwise
// from the lower-left corner. Text markup annotations need QuadPoints to be
// drawn; Rect alone only bounds them.
func quadPoints(r schema.Rect) types.QuadPoints {
	return types.QuadPoints{types.QuadLiteral{
		P1: types.Point{X: r.X0, Y: r.Y0},
		P2: types.Point{X: r.X1, Y: r.Y0},
		P3: types.Point{X: r.X1, Y: r.Y1},
		P4: types.Point{X: r.X0, Y: r.Y1},
	}}
}

func apply(raw []byte, m map[int][]model.AnnotationRenderer) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	var buf bytes.Buffer
	if err := api.AddAnnotationsMap(bytes.NewReader(raw), &buf, m, conf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func popupText(f schema.Finding) string {
	s := string(f.Risk)
	if f.Category != "" {
		s += " / " + f.Category
	}
	if f.Explanation != "" {
		s += ": " + f.Explanation
	}
	if f.Recommendation != "" {
		s += "\n" + f.Recommendation
	}
	return s
}
