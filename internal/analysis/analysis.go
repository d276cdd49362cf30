// Package analysis runs the document risk pipeline: normalization, oracle
// judgment, citation resolution, annotation, and aggregation.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/lexiscan/internal/annotate"
	"github.com/dshills/lexiscan/internal/citation"
	"github.com/dshills/lexiscan/internal/document"
	"github.com/dshills/lexiscan/internal/llm"
	"github.com/dshills/lexiscan/internal/profile"
	"github.com/dshills/lexiscan/internal/schema"
	"github.com/dshills/lexiscan/internal/segment"
	"github.com/dshills/lexiscan/internal/session"
	"github.com/dshills/lexiscan/internal/verdict"
)

// ErrInvalidRequest is returned for requests rejected before any work is done
// (unknown profile or mode, empty question).
var ErrInvalidRequest = errors.New("analysis: invalid request")

// ImagePlaceholder is stored as session context for image uploads, which
// carry no extracted text.
const ImagePlaceholder = "[image document: no extracted text]"

// UnreadableSummary explains an UNREADABLE status.
const UnreadableSummary = "The document may be unreadable: little or no text could be extracted, so no risk was found. Upload a text-based PDF or an image of each page."

// Oracle is the risk-judgment capability the pipeline depends on.
// *llm.Oracle implements it.
type Oracle interface {
	AnalyzeDocument(ctx context.Context, text string, prof profile.Profile) llm.Result
	AnalyzeClause(ctx context.Context, seg schema.Segment, prof profile.Profile) llm.Result
	AnalyzeImage(ctx context.Context, image []byte, mimeType, text string, prof profile.Profile) llm.Result
	Answer(ctx context.Context, reference string, history []schema.Turn, question string) (string, error)
	Meta() schema.Meta
}

// Options tunes the pipeline.
type Options struct {
	// Concurrency bounds in-flight per-clause oracle calls.
	Concurrency int
	// HistoryWindow is the number of most recent turns forwarded to Ask.
	HistoryWindow     int
	FallbackThreshold int
	PrefixLen         int
	// MinTextChars is the PDF text length below which a document is treated
	// as low confidence.
	MinTextChars int
	Version      string
}

// DefaultOptions returns the pipeline defaults.
func DefaultOptions() Options {
	return Options{
		Concurrency:       4,
		HistoryWindow:     6,
		FallbackThreshold: citation.DefaultFallbackThreshold,
		PrefixLen:         citation.DefaultPrefixLen,
		MinTextChars:      document.DefaultMinTextChars,
		Version:           "dev",
	}
}

// Request is one analysis submission.
type Request struct {
	SessionID string
	Filename  string
	MIME      string
	Data      []byte
	// Mode may be empty to use the profile's default.
	Mode    schema.Mode
	Profile string
}

// AskRequest is one follow-up question.
type AskRequest struct {
	SessionID string
	History   []schema.Turn
	Question  string
}

// Service is safe for concurrent use; each call owns its document.
type Service struct {
	normalizer *document.Normalizer
	segmenter  segment.Segmenter
	oracle     Oracle
	resolver   citation.Resolver
	annotator  *annotate.Annotator
	sessions   session.Store
	opts       Options
	log        *slog.Logger
}

// New wires a Service.
func New(oracle Oracle, sessions session.Store, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	n := document.NewNormalizer(logger)
	if opts.MinTextChars > 0 {
		n.MinTextChars = opts.MinTextChars
	}
	return &Service{
		normalizer: n,
		oracle:     oracle,
		resolver:   citation.Resolver{FallbackThreshold: opts.FallbackThreshold, PrefixLen: opts.PrefixLen},
		annotator:  annotate.New(logger),
		sessions:   sessions,
		opts:       opts,
		log:        logger,
	}
}

// Analyze runs the pipeline on one upload. Only request validation and
// normalization failures are returned as errors; oracle and annotation
// failures are folded into the report.
func (s *Service) Analyze(ctx context.Context, req Request) (*schema.Report, error) {
	rid := uuid.New().String()
	start := time.Now()
	log := s.log.With("req_id", rid, "session_id", req.SessionID, "filename", req.Filename)

	prof, err := profile.Load(req.Profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	mode := req.Mode
	if mode == "" {
		mode = prof.DefaultMode
	}
	if mode != schema.ModeDocument && mode != schema.ModeClause {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, mode)
	}

	doc, err := s.normalizer.Normalize(ctx, document.Upload{Filename: req.Filename, MIME: req.MIME, Data: req.Data})
	if err != nil {
		return nil, err
	}
	s.remember(req.SessionID, doc)

	report := &schema.Report{
		Tool:      "lexiscan",
		Version:   s.opts.Version,
		RequestID: rid,
		Input: schema.Input{
			Filename: req.Filename,
			Format:   string(doc.Format),
			Mode:     mode,
			Profile:  prof.Name,
			Pages:    doc.PageCount(),
		},
		Meta: s.oracle.Meta(),
	}
	log.Info("analysis.start", "format", doc.Format, "mode", mode, "profile", prof.Name)

	var (
		findings []schema.Finding
		declared schema.Status
		failed   bool
	)
	switch {
	case doc.Format == document.FormatImage:
		report.Input.Mode = schema.ModeDocument
		res := s.oracle.AnalyzeImage(ctx, doc.Raw, doc.MIME, doc.Text, prof)
		findings, declared, failed = s.resolveAll(doc, res), res.Status, res.Err != nil
		report.Summary, report.Input.Truncated = res.Summary, res.Truncated
	case mode == schema.ModeDocument:
		res := s.oracle.AnalyzeDocument(ctx, doc.Text, prof)
		findings, declared, failed = s.resolveAll(doc, res), res.Status, res.Err != nil
		report.Summary, report.Input.Truncated = res.Summary, res.Truncated
	default:
		segs := s.segmenter.Segment(doc.Text)
		report.Input.Segments = len(segs)
		report.Segments = segs
		out := s.analyzeClauses(ctx, doc, segs, prof)
		findings, report.Input.Truncated = out.findings, out.truncated
		report.Summary = clauseSummary(len(segs), findings, out.placeholders)
		// Every clause failing means the oracle was unreachable, not that the
		// document is moderately risky. Placeholders stay in the report.
		failed = len(segs) > 0 && out.failures == len(segs)
	}

	for i := range findings {
		findings[i].ID = fmt.Sprintf("F-%03d", i+1)
	}
	report.Findings = findings
	if report.Findings == nil {
		report.Findings = []schema.Finding{}
	}

	switch {
	case failed:
		report.Status = schema.StatusError
		report.Summary = llm.DegradedSummary
	case doc.LowConfidence && len(findings) == 0:
		report.Status = schema.StatusUnreadable
		report.Summary = UnreadableSummary
	default:
		report.Status = verdict.MaxStatus(verdict.DetermineStatus(findings), declared)
	}
	if !failed {
		report.Score = verdict.ComputeScore(findings)
	}
	report.Counts = verdict.Count(findings)

	switch doc.Format {
	case document.FormatPDF, document.FormatImage:
		out, err := s.annotator.Annotate(ctx, doc, findings)
		if err != nil {
			log.Warn("analysis.annotate.degraded", "error", err)
		}
		report.AnnotatedDocument = out
	}

	log.Info("analysis.done",
		"status", report.Status,
		"score", report.Score,
		"findings", len(findings),
		"grounded", report.Counts.Grounded,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// resolveAll locates every finding's citation in doc. Unresolved findings are
// kept with no locations.
func (s *Service) resolveAll(doc *document.Document, res llm.Result) []schema.Finding {
	findings := res.Findings
	for i := range findings {
		findings[i].Locations = s.resolver.Resolve(doc, findings[i].Citation)
		if findings[i].Locations == nil {
			findings[i].Locations = []schema.Location{}
		}
	}
	return findings
}

// clauseOutcome is the merged result of a per-clause run.
type clauseOutcome struct {
	findings     []schema.Finding
	placeholders int
	failures     int
	truncated    bool
}

// analyzeClauses judges every segment concurrently and merges results in
// segment order. Each finding is located by its segment's own bounds.
func (s *Service) analyzeClauses(ctx context.Context, doc *document.Document, segs []schema.Segment, prof profile.Profile) clauseOutcome {
	results := make([]llm.Result, len(segs))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, seg := range segs {
		g.Go(func() error {
			results[i] = s.oracle.AnalyzeClause(ctx, seg, prof)
			return nil
		})
	}
	_ = g.Wait()

	var out clauseOutcome
	for i, res := range results {
		out.truncated = out.truncated || res.Truncated
		if res.Err != nil {
			out.failures++
		}
		for _, f := range res.Findings {
			if f.Placeholder {
				out.placeholders++
			}
			f.Locations = s.resolver.ResolveSegment(doc, segs[i])
			if f.Locations == nil {
				f.Locations = []schema.Location{}
			}
			out.findings = append(out.findings, f)
		}
	}
	return out
}

func (s *Service) remember(id string, doc *document.Document) {
	if id == "" || s.sessions == nil {
		return
	}
	text := doc.Text
	if doc.Format == document.FormatImage && text == "" {
		text = ImagePlaceholder
	}
	s.sessions.Put(id, text)
}

// Ask answers a follow-up question against the session's latest document.
// Oracle failures produce llm.AnswerUnavailable rather than an error.
func (s *Service) Ask(ctx context.Context, req AskRequest) (string, error) {
	if req.Question == "" {
		return "", fmt.Errorf("%w: empty question", ErrInvalidRequest)
	}
	reference := session.NoContext
	if s.sessions != nil {
		reference = s.sessions.Get(req.SessionID)
	}
	history := req.History
	if w := s.opts.HistoryWindow; w >= 0 && len(history) > w {
		history = history[len(history)-w:]
	}
	answer, err := s.oracle.Answer(ctx, reference, history, req.Question)
	if err != nil {
		s.log.Warn("analysis.ask.degraded", "session_id", req.SessionID, "error", err)
		return llm.AnswerUnavailable, nil
	}
	return answer, nil
}

func clauseSummary(segments int, findings []schema.Finding, placeholders int) string {
	c := verdict.Count(findings)
	s := fmt.Sprintf("Analyzed %d clauses: %d critical, %d medium, %d low.", segments, c.Critical, c.Medium, c.Low)
	if placeholders > 0 {
		s += fmt.Sprintf(" %d could not be analyzed automatically and need manual review.", placeholders)
	}
	return s
}
