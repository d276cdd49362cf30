// Package citation locates verbatim oracle citations in a normalized document.
package citation

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/dshills/lexiscan/internal/document"
	"github.com/dshills/lexiscan/internal/schema"
)

const (
	DefaultFallbackThreshold = 60
	DefaultPrefixLen         = 40
)

// Resolver maps citation strings to document locations. Citations longer
// than FallbackThreshold bytes that do not match exactly are retried with
// their first PrefixLen bytes.
type Resolver struct {
	FallbackThreshold int
	PrefixLen         int
}

// NewResolver returns a Resolver with the default fallback parameters.
func NewResolver() Resolver {
	return Resolver{FallbackThreshold: DefaultFallbackThreshold, PrefixLen: DefaultPrefixLen}
}

// Resolve returns every non-overlapping occurrence of citation in doc, in
// page order. An empty result means the citation is ungrounded; it is not an
// error.
func (r Resolver) Resolve(doc *document.Document, citation string) []schema.Location {
	citation = strings.TrimSpace(citation)
	if citation == "" || doc == nil {
		return nil
	}
	if locs := search(doc, citation, schema.MatchExact); len(locs) > 0 {
		return locs
	}
	if r.PrefixLen <= 0 || len(citation) <= r.FallbackThreshold {
		return nil
	}
	prefix := strings.TrimSpace(truncate(citation, r.PrefixLen))
	if prefix == "" {
		return nil
	}
	return search(doc, prefix, schema.MatchPrefix)
}

// ResolveSegment returns the location of a segment's own byte range. Segment
// offsets index the document text; for paged documents they are translated
// into the page that contains the segment start.
func (r Resolver) ResolveSegment(doc *document.Document, seg schema.Segment) []schema.Location {
	if doc == nil || seg.End <= seg.Start {
		return nil
	}
	if !doc.Paged() || len(doc.Pages) == 0 {
		return []schema.Location{{Page: -1, Start: seg.Start, End: seg.End, Method: schema.MatchSegment}}
	}
	for _, p := range doc.Pages {
		end := p.Offset + len(p.Text)
		if seg.Start < p.Offset || seg.Start >= end {
			continue
		}
		start := seg.Start - p.Offset
		stop := min(seg.End, end) - p.Offset
		return []schema.Location{{
			Page:   p.Index,
			Start:  start,
			End:    stop,
			Rects:  lineRects(p, start, stop),
			Method: schema.MatchSegment,
		}}
	}
	return nil
}

func search(doc *document.Document, needle string, method schema.MatchMethod) []schema.Location {
	if !doc.Paged() || len(doc.Pages) == 0 {
		var locs []schema.Location
		for _, start := range indexAll(doc.Text, needle) {
			locs = append(locs, schema.Location{Page: -1, Start: start, End: start + len(needle), Method: method})
		}
		return locs
	}
	var locs []schema.Location
	for _, p := range doc.Pages {
		for _, start := range indexAll(p.Text, needle) {
			end := start + len(needle)
			locs = append(locs, schema.Location{
				Page:   p.Index,
				Start:  start,
				End:    end,
				Rects:  lineRects(p, start, end),
				Method: method,
			})
		}
	}
	return locs
}

// indexAll returns the start offsets of all non-overlapping occurrences.
func indexAll(s, sub string) []int {
	var out []int
	for off := 0; off <= len(s)-len(sub); {
		i := strings.Index(s[off:], sub)
		if i < 0 {
			break
		}
		out = append(out, off+i)
		off += i + len(sub)
	}
	return out
}

// lineRects merges the glyph boxes of p.Text[start:end] into one rectangle
// per visual line.
func lineRects(p document.Page, start, end int) []schema.Rect {
	if !p.HasGeometry() {
		return nil
	}
	var (
		out []schema.Rect
		cur schema.Rect
	)
	flush := func() {
		if !cur.Empty() {
			out = append(out, cur)
		}
		cur = schema.Rect{}
	}
	for i := start; i < end && i < len(p.Boxes); i++ {
		if p.Text[i] == '\n' {
			flush()
			continue
		}
		b := p.Boxes[i]
		if b.Empty() {
			continue
		}
		if !cur.Empty() && !sameLine(cur, b) {
			flush()
		}
		cur = cur.Union(b)
	}
	flush()
	return out
}

func sameLine(a, b schema.Rect) bool {
	h := math.Min(a.Y1-a.Y0, b.Y1-b.Y0)
	return math.Abs((a.Y0+a.Y1)/2-(b.Y0+b.Y1)/2) < h/2
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
