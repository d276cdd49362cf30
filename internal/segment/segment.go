// Package segment splits normalized document text into ordered clause
// candidates with offsets back into that text.
package segment

import (
	"regexp"
	"strings"

	"github.com/dshills/lexiscan/internal/schema"
)

// DefaultDelimiter matches a blank line: two line breaks with only horizontal
// whitespace (or carriage returns) between them. Longer runs of blank lines
// are consumed by the surrounding trim.
var DefaultDelimiter = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

// Segmenter splits text into clauses. The zero value uses DefaultDelimiter.
// Segmenter holds no mutable state, so a single value may be shared.
type Segmenter struct {
	Delimiter *regexp.Regexp
}

// Segment splits text on the delimiter and binds each non-empty trimmed block
// to its offsets in text.
func (s Segmenter) Segment(text string) []schema.Segment {
	delim := s.Delimiter
	if delim == nil {
		delim = DefaultDelimiter
	}
	return Bind(text, Candidates(text, delim))
}

// Segment splits text with the default Segmenter.
func Segment(text string) []schema.Segment {
	return Segmenter{}.Segment(text)
}

// Candidates returns the trimmed, non-empty blocks of text separated by delim.
func Candidates(text string, delim *regexp.Regexp) []string {
	parts := delim.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Bind assigns offsets to candidates using a forward-only cursor. Each
// candidate is searched at or after the end of the previous one, so repeated
// identical clauses bind to successive occurrences. A candidate that cannot be
// found is bound at the cursor with Exact=false. The cursor always advances by
// the candidate length, and offsets are clamped to len(text).
func Bind(text string, candidates []string) []schema.Segment {
	segs := make([]schema.Segment, 0, len(candidates))
	cursor := 0
	for i, c := range candidates {
		seg := schema.Segment{ID: i + 1, Text: c}
		if idx := strings.Index(text[cursor:], c); idx >= 0 {
			seg.Start = cursor + idx
			seg.Exact = true
		} else {
			seg.Start = cursor
		}
		seg.End = min(seg.Start+len(c), len(text))
		segs = append(segs, seg)
		cursor = seg.End
	}
	return segs
}

// Find returns the segment whose range contains [start, end), or false.
func Find(segs []schema.Segment, start, end int) (schema.Segment, bool) {
	for _, s := range segs {
		if start >= s.Start && end <= s.End {
			return s, true
		}
	}
	return schema.Segment{}, false
}
