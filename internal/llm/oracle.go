package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/lexiscan/internal/profile"
	"github.com/dshills/lexiscan/internal/schema"
)

// DegradedSummary is the summary reported when the oracle could not produce
// a usable whole-document answer.
const DegradedSummary = "Analysis unavailable due to a technical error."

// AnswerUnavailable is returned to the user when a follow-up question could
// not be answered.
const AnswerUnavailable = "Sorry, I could not answer that question right now. Please try again."

// Options configures an Oracle.
type Options struct {
	Provider      string
	Model         string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
	MaxInputChars int
	// Debug logs full prompts at debug level.
	Debug bool
}

// DefaultOptions returns the defaults used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Provider:      "openai",
		MaxTokens:     4096,
		Temperature:   0,
		Timeout:       60 * time.Second,
		MaxInputChars: 20000,
	}
}

// Oracle issues risk-analysis requests to a Provider and converts every
// response, or failure, into a canonical Result.
type Oracle struct {
	provider Provider
	opts     Options
	log      *slog.Logger
}

// New creates an Oracle backed by the provider named in opts.
func New(opts Options, logger *slog.Logger) (*Oracle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Model == "" {
		opts.Model = DefaultModel(opts.Provider)
	}
	p, err := NewProvider(opts.Provider, opts.Model)
	if err != nil {
		return nil, fmt.Errorf("llm: create provider: %w", err)
	}
	return &Oracle{provider: p, opts: opts, log: logger}, nil
}

// Meta describes the oracle configuration for reports.
func (o *Oracle) Meta() schema.Meta {
	return schema.Meta{Provider: o.opts.Provider, Model: o.opts.Model, Temperature: o.opts.Temperature}
}

// AnalyzeDocument judges the whole document text in a single call. On any
// failure it returns a Result with status ERROR, DegradedSummary, no
// findings, and Err set.
func (o *Oracle) AnalyzeDocument(ctx context.Context, text string, prof profile.Profile) Result {
	text, truncated := truncateRunes(text, o.opts.MaxInputChars)
	req := Request{
		System: buildDocumentSystemPrompt(prof),
		User:   buildDocumentUserPrompt(text),
		JSON:   true,
	}
	res := o.documentCall(ctx, "document", req)
	res.Truncated = truncated
	return res
}

// AnalyzeImage sends the image, plus any extracted text, to the provider's
// vision input. Failure handling matches AnalyzeDocument.
func (o *Oracle) AnalyzeImage(ctx context.Context, image []byte, mimeType, text string, prof profile.Profile) Result {
	text, truncated := truncateRunes(text, o.opts.MaxInputChars)
	req := Request{
		System:    buildDocumentSystemPrompt(prof),
		User:      buildImageUserPrompt(text),
		Image:     image,
		ImageMIME: mimeType,
		JSON:      true,
	}
	res := o.documentCall(ctx, "image", req)
	res.Truncated = truncated
	return res
}

// AnalyzeClause judges a single segment. The Result holds at most one
// finding, whose citation is the segment text. On failure the finding is a
// MEDIUM placeholder so that one bad clause does not hide the others.
func (o *Oracle) AnalyzeClause(ctx context.Context, seg schema.Segment, prof profile.Profile) Result {
	text, truncated := truncateRunes(seg.Text, o.opts.MaxInputChars)
	clipped := seg
	clipped.Text = text
	req := Request{
		System: buildClauseSystemPrompt(prof),
		User:   buildClauseUserPrompt(clipped),
		JSON:   true,
	}
	rid := uuid.New().String()
	res, err := o.call(ctx, rid, "clause", req, clauseAdapter{segment: seg}, "segment_id", seg.ID)
	if err != nil {
		return Result{
			Findings: []schema.Finding{{
				Citation:       seg.Text,
				Risk:           schema.RiskMedium,
				SegmentID:      seg.ID,
				Placeholder:    true,
				Explanation:    "Automatic analysis of this clause failed: " + err.Error(),
				Recommendation: "Review this clause manually.",
			}},
			Truncated: truncated,
			Err:       err,
		}
	}
	res.Truncated = truncated
	return res
}

// Answer replies to a follow-up question about reference. history holds the
// prior turns to forward, oldest first.
func (o *Oracle) Answer(ctx context.Context, reference string, history []schema.Turn, question string) (string, error) {
	reference, _ = truncateRunes(reference, o.opts.MaxInputChars)
	rid := uuid.New().String()
	start := time.Now()
	o.log.Info("llm.answer.start", "req_id", rid, "history", len(history), "question_len", len(question))

	raw, err := o.complete(ctx, rid, Request{
		System:  buildAnswerSystemPrompt(reference),
		User:    question,
		History: history,
	})
	if err != nil {
		o.log.Error("llm.answer.failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: %v", ErrOracleFailure, err)
	}
	o.log.Info("llm.answer.ok", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
	return raw, nil
}

func (o *Oracle) documentCall(ctx context.Context, kind string, req Request) Result {
	rid := uuid.New().String()
	res, err := o.call(ctx, rid, kind, req, documentAdapter{})
	if err != nil {
		return Result{Status: schema.StatusError, Summary: DegradedSummary, Err: err}
	}
	return res
}

// call runs one bounded completion and adapts the response. Any failure is
// returned wrapped in ErrOracleFailure.
func (o *Oracle) call(ctx context.Context, rid, kind string, req Request, a Adapter, attrs ...any) (Result, error) {
	start := time.Now()
	o.log.Info("llm."+kind+".start", append([]any{
		"req_id", rid,
		"provider", o.opts.Provider,
		"model", o.opts.Model,
		"input_len", len(req.User),
		"has_image", len(req.Image) > 0,
	}, attrs...)...)

	raw, err := o.complete(ctx, rid, req)
	if err != nil {
		o.log.Error("llm."+kind+".provider_error", append([]any{
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		}, attrs...)...)
		return Result{}, fmt.Errorf("%w: %v", ErrOracleFailure, err)
	}

	res, verrs := a.Adapt(raw)
	if fatal := fatalValidation(verrs); fatal != nil {
		o.log.Error("llm."+kind+".invalid_response", append([]any{
			"req_id", rid, "error", fatal, "raw_len", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		}, attrs...)...)
		return Result{}, fmt.Errorf("%w: %v", ErrOracleFailure, fatal)
	}
	for _, v := range verrs {
		o.log.Warn("llm."+kind+".validation_warning", "req_id", rid, "field", v.Field, "message", v.Message)
	}

	o.log.Info("llm."+kind+".ok", append([]any{
		"req_id", rid,
		"status", res.Status,
		"findings", len(res.Findings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}, attrs...)...)
	return res, nil
}

func (o *Oracle) complete(ctx context.Context, rid string, req Request) (string, error) {
	if req.MaxTokens == 0 {
		req.MaxTokens = o.opts.MaxTokens
	}
	req.Temperature = o.opts.Temperature
	if o.opts.Debug {
		o.log.Debug("llm.prompt", "req_id", rid, "system", req.System, "user", req.User)
	}
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}
	return o.provider.Complete(ctx, req)
}

// fatalValidation returns the first error that prevents using the response.
func fatalValidation(errs []ValidationError) error {
	for _, e := range errs {
		switch e.Field {
		case "json_parse", "schema", "json_decode":
			return e
		}
	}
	return nil
}
