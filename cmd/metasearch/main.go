package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cwoolley/metasearch/internal/apiclient"
	"github.com/cwoolley/metasearch/internal/config"
	"github.com/cwoolley/metasearch/internal/logger"
	"github.com/cwoolley/metasearch/internal/metrics"
	"github.com/cwoolley/metasearch/internal/providers"
	"github.com/cwoolley/metasearch/internal/providers/builtin"
	"github.com/cwoolley/metasearch/internal/render"
	"github.com/cwoolley/metasearch/internal/search"
	"github.com/cwoolley/metasearch/internal/server"
	"github.com/cwoolley/metasearch/internal/summary"
	"github.com/cwoolley/metasearch/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

const (
	shutdownTimeout = 30 * time.Second
	remoteTimeout   = 90 * time.Second
)

// loadConfig is overridden in tests.
var loadConfig = config.Load

// makeSignalCh returns a channel that receives SIGINT/SIGTERM and a stop
// function. Overridden in tests to avoid real signals.
var makeSignalCh = func() (chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}

// app holds everything built from one Config.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	metrics  *metrics.Metrics
	registry *providers.Registry
	engine   *search.Engine
}

func buildApp(cfg *config.Config) (*app, error) {
	log, err := logger.New(logger.Config{Environment: cfg.Environment, Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}
	strategy, err := search.ParseStrategy(cfg.MergeStrategy)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	reg := builtin.New(cfg, log)
	summarizer := summary.New(summary.Config{
		APIKey:    cfg.Summary.APIKey,
		BaseURL:   cfg.Summary.BaseURL,
		Model:     cfg.Summary.Model,
		Timeout:   cfg.Summary.Timeout,
		MaxTokens: cfg.Summary.MaxTokens,
	})
	engine := search.New(reg,
		search.WithSummarizer(summarizer),
		search.WithRecorder(m),
		search.WithLogger(log),
		search.WithStrategy(strategy),
		search.WithSummaryTopN(cfg.Summary.TopN),
	)
	return &app{cfg: cfg, log: log, metrics: m, registry: reg, engine: engine}, nil
}

func loadApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return buildApp(cfg)
}

type searchOptions struct {
	apis       []string
	num        int
	language   string
	country    string
	vertical   string
	safeSearch bool
	summarize  bool
	json       bool
	server     string
}

func (o searchOptions) request(query string) search.Request {
	return search.Request{
		Query:              query,
		Providers:          providers.ParseIDs(o.apis...),
		ResultsPerProvider: o.num,
		Language:           o.language,
		Country:            o.country,
		Vertical:           providers.Vertical(o.vertical),
		SafeSearch:         o.safeSearch,
		WantSummary:        o.summarize,
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "metasearch",
		Short:         "Query several web search providers at once and merge the results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSearchCmd(out), newServeCmd(out), newProvidersCmd(out), newVersionCmd(out))
	return root
}

func newSearchCmd(out io.Writer) *cobra.Command {
	var opts searchOptions
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search the selected providers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := opts.request(strings.Join(args, " "))

			var (
				resp *search.Response
				err  error
			)
			if opts.server != "" {
				client := apiclient.New(opts.server, &http.Client{Timeout: remoteTimeout})
				resp, err = client.Search(cmd.Context(), req)
			} else {
				var a *app
				a, err = loadApp()
				if err != nil {
					return err
				}
				defer func() { _ = a.log.Sync() }()
				resp, err = a.engine.Search(cmd.Context(), req)
			}
			if err != nil {
				return err
			}

			if opts.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			return render.Response(out, resp)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.apis, "apis", nil, "providers to query, comma separated (default: the configured default provider)")
	f.IntVarP(&opts.num, "num", "n", search.DefaultResults, fmt.Sprintf("results per provider (%d-%d)", search.MinResults, search.MaxResults))
	f.StringVar(&opts.language, "language", search.DefaultLanguage, "two-letter language code")
	f.StringVar(&opts.country, "country", search.DefaultCountry, "two-letter country code")
	f.StringVar(&opts.vertical, "vertical", string(providers.VerticalWeb), "brave vertical: web, images, news, videos or auto")
	f.BoolVar(&opts.safeSearch, "safe-search", true, "ask providers to filter explicit content")
	f.BoolVar(&opts.summarize, "summarize", false, "append an LLM summary of the top results")
	f.BoolVar(&opts.json, "json", false, "print the raw JSON response")
	f.StringVar(&opts.server, "server", os.Getenv("METASEARCH_SERVER"), "query a running metasearch server instead of the providers directly")
	return cmd
}

func newServeCmd(out io.Writer) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()

			if !cmd.Flags().Changed("addr") && a.cfg.ServerAddr != "" {
				addr = a.cfg.ServerAddr
			}

			srv := server.New(addr)
			web.New(a.engine, a.registry, web.WithMetrics(a.metrics), web.WithLogger(a.log)).Register(srv)
			srv.Handle("GET /metrics", a.metrics.Handler())

			if err := srv.Listen(); err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			a.log.Info("server started",
				zap.String("addr", srv.Addr()),
				zap.String("default_provider", string(a.registry.Default())))
			return serveLoop(srv, out)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func newProvidersCmd(out io.Writer) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List the known providers and whether their credentials are set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ds := builtin.New(cfg, nil).Descriptors()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ds)
			}
			return render.Providers(out, ds)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newVersionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "metasearch version %s\n", version)
		},
	}
}

// httpServer is the subset of *server.Server used by serveLoop.
type httpServer interface {
	Serve() error
	Addr() string
	Shutdown(ctx context.Context) error
}

// serveLoop runs srv until it fails or a signal arrives, then shuts it down.
func serveLoop(srv httpServer, out io.Writer) error {
	sigCh, stop := makeSignalCh()
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	fmt.Fprintf(out, "Listening on %s\n", srv.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		fmt.Fprintf(out, "received %s, shutting down\n", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func runWithOutput(args []string, out io.Writer) error {
	cmd := newRootCmd(out)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)
	return cmd.Execute()
}

func run(args []string) error {
	return runWithOutput(args, os.Stdout)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
