package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/lexiscan/internal/analysis"
	"github.com/dshills/lexiscan/internal/config"
	"github.com/dshills/lexiscan/internal/document"
	"github.com/dshills/lexiscan/internal/llm"
	"github.com/dshills/lexiscan/internal/profile"
	"github.com/dshills/lexiscan/internal/render"
	"github.com/dshills/lexiscan/internal/schema"
	"github.com/dshills/lexiscan/internal/server"
	"github.com/dshills/lexiscan/internal/session"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// cliSession is the session id used by one-shot CLI commands.
const cliSession = "cli"

// errCritical signals that --fail-on-critical tripped.
var errCritical = errors.New("document status is CRITICAL")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code: 0 ok, 1 usage or
// fatal error, 2 when --fail-on-critical matched.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		if errors.Is(err, errCritical) {
			return 2
		}
		return 1
	}
	return 0
}

// app carries settings shared by every subcommand.
type app struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{cfg: config.FromEnv(), stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "lexiscan",
		Short:         "Document risk analysis with grounded citations",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.cfg.Validate()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfg.Provider, "provider", a.cfg.Provider, "oracle provider: openai, anthropic, google, vertex")
	pf.StringVar(&a.cfg.Model, "model", a.cfg.Model, "model name (provider default when empty)")
	pf.DurationVar(&a.cfg.Timeout, "timeout", a.cfg.Timeout, "per-call oracle timeout")
	pf.IntVar(&a.cfg.MaxInputChars, "max-input-chars", a.cfg.MaxInputChars, "characters of document text sent to the oracle")
	pf.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "debug, info, warn, error")
	pf.StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "text or json")
	pf.BoolVar(&a.cfg.DevMode, "dev", a.cfg.DevMode, "log full prompts")

	root.AddCommand(a.newAnalyzeCmd(), a.newAskCmd(), a.newServeCmd(), a.newProfilesCmd())
	return root
}

// build wires the service from the current configuration.
func (a *app) build() (*analysis.Service, *session.LRUStore, *slog.Logger, error) {
	logger := a.cfg.NewLogger(a.stderr)
	oracle, err := llm.New(a.cfg.OracleOptions(), logger)
	if err != nil {
		return nil, nil, nil, err
	}
	store := session.NewLRUStore(a.cfg.SessionSize, a.cfg.SessionTTL)
	svc := analysis.New(oracle, store, a.cfg.AnalysisOptions(version), logger)
	return svc, store, logger, nil
}

func (a *app) newAnalyzeCmd() *cobra.Command {
	var (
		format         string
		out            string
		failOnCritical bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a document and report risky clauses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "md" {
				return fmt.Errorf("--format must be json or md")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			svc, _, _, err := a.build()
			if err != nil {
				return err
			}
			report, err := svc.Analyze(cmd.Context(), analysis.Request{
				SessionID: cliSession,
				Filename:  filepath.Base(args[0]),
				MIME:      mime.TypeByExtension(filepath.Ext(args[0])),
				Data:      data,
				Mode:      a.cfg.Mode,
				Profile:   a.cfg.Profile,
			})
			if err != nil {
				return err
			}

			if out != "" && len(report.AnnotatedDocument) > 0 {
				if err := os.WriteFile(out, report.AnnotatedDocument, 0o644); err != nil {
					return fmt.Errorf("write annotated document: %w", err)
				}
			}
			if format == "md" {
				fmt.Fprint(a.stdout, render.RenderMarkdown(report))
			} else {
				if out != "" {
					report.AnnotatedDocument = nil
				}
				b, err := render.RenderJSON(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, string(b))
			}

			if failOnCritical && report.Status == schema.StatusCritical {
				return errCritical
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar((*string)(&a.cfg.Mode), "mode", string(a.cfg.Mode), "document or clause (profile default when empty)")
	f.StringVar(&a.cfg.Profile, "profile", a.cfg.Profile, "analysis profile")
	f.IntVar(&a.cfg.Concurrency, "concurrency", a.cfg.Concurrency, "parallel clause analyses")
	f.StringVar(&format, "format", "md", "output format: json or md")
	f.StringVarP(&out, "out", "o", "", "write the annotated document to this path")
	f.BoolVar(&failOnCritical, "fail-on-critical", false, "exit with status 2 when the document is CRITICAL")
	return cmd
}

func (a *app) newAskCmd() *cobra.Command {
	var contextFile string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about a document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, store, logger, err := a.build()
			if err != nil {
				return err
			}
			if contextFile != "" {
				data, err := os.ReadFile(contextFile)
				if err != nil {
					return err
				}
				doc, err := document.NewNormalizer(logger).Normalize(cmd.Context(), document.Upload{
					Filename: filepath.Base(contextFile),
					MIME:     mime.TypeByExtension(filepath.Ext(contextFile)),
					Data:     data,
				})
				if err != nil {
					return err
				}
				store.Put(cliSession, doc.Text)
			}
			question := args[0]
			for _, w := range args[1:] {
				question += " " + w
			}
			answer, err := svc.Ask(cmd.Context(), analysis.AskRequest{SessionID: cliSession, Question: question})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&contextFile, "context", "", "document to answer from")
	return cmd
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, logger, err := a.build()
			if err != nil {
				return err
			}
			return server.New(svc, a.cfg.Addr, logger).Start(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.cfg.Addr, "addr", a.cfg.Addr, "listen address")
	f.IntVar(&a.cfg.Concurrency, "concurrency", a.cfg.Concurrency, "parallel clause analyses per request")
	f.IntVar(&a.cfg.SessionSize, "session-size", a.cfg.SessionSize, "maximum retained sessions")
	f.DurationVar(&a.cfg.SessionTTL, "session-ttl", a.cfg.SessionTTL, "session lifetime")
	return cmd
}

func (a *app) newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List analysis profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range profile.Names() {
				p, _ := profile.Load(name)
				fmt.Fprintf(a.stdout, "%-10s %-8s %s\n", p.Name, p.DefaultMode, p.Description)
			}
			return nil
		},
	}
}
