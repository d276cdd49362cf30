// Package server exposes the analysis service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/lexiscan/internal/analysis"
	"github.com/dshills/lexiscan/internal/document"
	"github.com/dshills/lexiscan/internal/schema"
)

// MaxUploadBytes bounds the size of an uploaded document.
const MaxUploadBytes = 32 << 20

// SessionHeader carries the session id chosen for an upload sent without one.
const SessionHeader = "X-Session-ID"

// Analyzer is the subset of *analysis.Service the server depends on.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*schema.Report, error)
	Ask(ctx context.Context, req analysis.AskRequest) (string, error)
}

// Server is the HTTP front end.
type Server struct {
	svc  Analyzer
	addr string
	log  *slog.Logger
}

// New creates a Server listening on addr once Start is called.
func New(svc Analyzer, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, addr: addr, log: logger}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      5 * time.Minute,
	}

	s.log.Info("server.start", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("server.shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "could not read upload")
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	w.Header().Set(SessionHeader, sessionID)

	report, err := s.svc.Analyze(r.Context(), analysis.Request{
		SessionID: sessionID,
		Filename:  hdr.Filename,
		MIME:      hdr.Header.Get("Content-Type"),
		Data:      data,
		Mode:      schema.Mode(r.FormValue("mode")),
		Profile:   r.FormValue("profile"),
	})
	if err != nil {
		s.log.Warn("server.analyze.rejected", "filename", hdr.Filename, "error", err)
		writeDetail(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type chatRequest struct {
	SessionID string        `json:"session_id"`
	Message   string        `json:"message"`
	History   []schema.Turn `json:"history"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	answer, err := s.svc.Ask(r.Context(), analysis.AskRequest{
		SessionID: req.SessionID,
		History:   req.History,
		Question:  req.Message,
	})
	if err != nil {
		writeDetail(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: answer})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps fatal pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, document.ErrUnsupportedFormat),
		errors.Is(err, document.ErrExtractionFailure),
		errors.Is(err, analysis.ErrInvalidRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", SessionHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
