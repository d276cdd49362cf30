// Package schema defines all canonical data types for the LexiScan output format.
package schema

// Status represents the document-level outcome of an analysis.
type Status string

const (
	StatusSafe       Status = "SAFE"
	StatusWarning    Status = "WARNING"
	StatusCritical   Status = "CRITICAL"
	StatusError      Status = "ERROR"
	StatusUnreadable Status = "UNREADABLE"
)

// RiskLevel represents the canonical severity of a single finding.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskCritical RiskLevel = "CRITICAL"
)

// Mode selects the oracle request granularity.
type Mode string

const (
	ModeDocument Mode = "document"
	ModeClause   Mode = "clause"
)

// MatchMethod records how a location was resolved.
type MatchMethod string

const (
	MatchExact   MatchMethod = "exact"
	MatchPrefix  MatchMethod = "prefix"
	MatchSegment MatchMethod = "segment"
)

// Rect is an axis-aligned rectangle in PDF user space (origin bottom-left).
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Union returns the smallest rectangle containing r and o. An empty receiver
// yields o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// Segment is one clause candidate carved out of the normalized text.
// Start and End are byte offsets into that text.
type Segment struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	// Exact is false when the segment could not be found forward of the
	// cursor and was bound at the cursor position instead.
	Exact bool `json:"exact"`
}

// Location is one place in the source document where a citation was found.
// Page is -1 for formats without pages; Start and End then index into the
// document text, otherwise into the page text.
type Location struct {
	Page   int         `json:"page"`
	Start  int         `json:"start"`
	End    int         `json:"end"`
	Rects  []Rect      `json:"rects,omitempty"`
	Method MatchMethod `json:"method"`
}

// Finding is one risk judgment returned by the oracle.
type Finding struct {
	ID             string     `json:"id"`
	Citation       string     `json:"citation"`
	Risk           RiskLevel  `json:"risk"`
	Category       string     `json:"category,omitempty"`
	LegalReference string     `json:"legal_reference,omitempty"`
	Explanation    string     `json:"explanation"`
	Recommendation string     `json:"recommendation"`
	SegmentID      int        `json:"segment_id,omitempty"`
	Placeholder    bool       `json:"placeholder,omitempty"`
	Locations      []Location `json:"locations"`
}

// Grounded reports whether the citation was located in the source.
func (f Finding) Grounded() bool {
	return len(f.Locations) > 0
}

// Report is the top-level output document.
type Report struct {
	Tool      string    `json:"tool"`
	Version   string    `json:"version"`
	RequestID string    `json:"request_id"`
	Input     Input     `json:"input"`
	Status    Status    `json:"status"`
	Summary   string    `json:"summary"`
	Score     float64   `json:"score"`
	Counts    Counts    `json:"counts"`
	Findings  []Finding `json:"findings"`
	// Segments lists every clause in per-clause mode, flagged or not.
	Segments          []Segment `json:"segments,omitempty"`
	AnnotatedDocument []byte    `json:"annotated_document,omitempty"`
	Meta              Meta      `json:"meta"`
}

// Input records the parameters used for this run.
type Input struct {
	Filename  string `json:"filename"`
	Format    string `json:"format"`
	Mode      Mode   `json:"mode"`
	Profile   string `json:"profile"`
	Pages     int    `json:"pages"`
	Segments  int    `json:"segments,omitempty"`
	Truncated bool   `json:"truncated"`
}

// Counts holds severity and grounding tallies across findings.
type Counts struct {
	Critical   int `json:"critical"`
	Medium     int `json:"medium"`
	Low        int `json:"low"`
	Grounded   int `json:"grounded"`
	Ungrounded int `json:"ungrounded"`
}

// Meta records information about the oracle calls.
type Meta struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

// Turn is one message of a follow-up conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
