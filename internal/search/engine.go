package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cwoolley/metasearch/internal/logger"
	"github.com/cwoolley/metasearch/internal/providers"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultProviderTimeout applies to providers that report no timeout.
const DefaultProviderTimeout = 10 * time.Second

// Summary placeholders. A requested summary is never left empty.
const (
	SummaryNotConfigured = "Summary unavailable: summarization is not configured."
	SummaryNoResults     = "Summary unavailable: no results to summarize."
	SummaryFailed        = "Summary unavailable: the summarization service did not respond successfully."
)

// ErrSummaryNotConfigured is returned by a Summarizer that has no credential.
var ErrSummaryNotConfigured = errors.New("summarizer not configured")

// Resolver looks up providers by ID. *providers.Registry implements it.
type Resolver interface {
	Resolve(id providers.ID) (providers.Provider, bool)
	Default() providers.ID
}

// Summarizer condenses the top results into prose.
type Summarizer interface {
	Summarize(ctx context.Context, query string, results []RankedResult, language string) (string, error)
}

// Recorder receives per-provider timings.
type Recorder interface {
	ObserveProvider(provider, outcome string, d time.Duration)
}

// Outcome is what one provider produced for one request: results, or an
// error that excluded it from the merge.
type Outcome struct {
	Provider providers.ID
	Results  []providers.Result
	Err      *providers.Error
}

func (o Outcome) OK() bool { return o.Err == nil }

// OutcomeMap indexes outcomes by provider.
func OutcomeMap(outcomes []Outcome) map[providers.ID]Outcome {
	m := make(map[providers.ID]Outcome, len(outcomes))
	for _, o := range outcomes {
		m[o.Provider] = o
	}
	return m
}

// ProviderError is the caller-visible form of a failed outcome.
type ProviderError struct {
	Kind    providers.Kind `json:"kind"`
	Message string         `json:"message"`
}

// Response is the aggregated answer to a Request.
type Response struct {
	Query                     string                         `json:"query"`
	ProvidersUsed             []providers.ID                 `json:"providers_used"`
	RequestedCountPerProvider int                            `json:"requested_count_per_provider"`
	Results                   []RankedResult                 `json:"results"`
	Summary                   *string                        `json:"summary,omitempty"`
	ProviderErrors            map[providers.ID]ProviderError `json:"provider_errors,omitempty"`
}

// Engine fans a request out to providers concurrently and aggregates what
// comes back. It holds no per-request state and is safe for concurrent use.
type Engine struct {
	registry    Resolver
	summarizer  Summarizer
	recorder    Recorder
	log         *zap.Logger
	strategy    Strategy
	summaryTopN int
}

type Option func(*Engine)

func WithSummarizer(s Summarizer) Option { return func(e *Engine) { e.summarizer = s } }

func WithRecorder(r Recorder) Option { return func(e *Engine) { e.recorder = r } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

func WithStrategy(s Strategy) Option { return func(e *Engine) { e.strategy = s } }

// WithSummaryTopN limits how many merged results the summarizer sees.
func WithSummaryTopN(n int) Option { return func(e *Engine) { e.summaryTopN = n } }

// New creates an engine over the given registry.
func New(registry Resolver, opts ...Option) *Engine {
	e := &Engine{
		registry:    registry,
		log:         zap.NewNop(),
		strategy:    StrategySequential,
		summaryTopN: 5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve maps requested IDs to providers. Unknown IDs are dropped and
// duplicates collapse onto their first position. When nothing resolves, the
// registry default is used alone.
func (e *Engine) Resolve(ids []providers.ID) []providers.Provider {
	seen := make(map[providers.ID]bool, len(ids))
	selected := make([]providers.Provider, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := e.registry.Resolve(id); ok {
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		if p, ok := e.registry.Resolve(e.registry.Default()); ok {
			selected = append(selected, p)
		}
	}
	return selected
}

// Dispatch invokes every resolved provider concurrently and waits for all of
// them. Each provider runs under its own timeout and cancelling ctx does not
// stop them. The returned outcomes are in resolution order, one per provider.
func (e *Engine) Dispatch(ctx context.Context, req Request) []Outcome {
	req = req.Normalize()
	selected := e.Resolve(req.Providers)
	q := req.query()
	log := logger.FromContext(ctx, e.log)

	outcomes := make([]Outcome, len(selected))
	var g errgroup.Group
	for i, p := range selected {
		g.Go(func() error {
			outcomes[i] = e.invoke(ctx, p, q, log)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

type callResult struct {
	results []providers.Result
	err     error
}

// invoke runs one provider under its own deadline. The wait is bounded here
// rather than trusted to the adapter: a call still running at the deadline
// is abandoned and whatever it returns later is discarded.
func (e *Engine) invoke(ctx context.Context, p providers.Provider, q providers.Query, log *zap.Logger) (out Outcome) {
	id := p.ID()
	out.Provider = id

	timeout := p.Timeout()
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		label := "ok"
		if out.Err != nil {
			label = string(out.Err.Kind)
			log.Warn("provider failed",
				zap.String("provider", string(id)),
				zap.String("kind", label),
				zap.Duration("duration", elapsed),
				zap.Error(out.Err))
		}
		if e.recorder != nil {
			e.recorder.ObserveProvider(string(id), label, elapsed)
		}
	}()

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: &providers.Error{Provider: id, Kind: providers.KindInternal, Err: fmt.Errorf("provider panicked: %v", r)}}
			}
		}()
		results, err := p.Search(ctx, q)
		done <- callResult{results: results, err: err}
	}()

	var res callResult
	select {
	case res = <-done:
	case <-ctx.Done():
		out.Err = providers.TransportError(id, context.DeadlineExceeded)
		return out
	}

	if res.err != nil {
		out.Err = providers.AsError(id, res.err)
		return out
	}
	out.Results = providers.Limit(res.results, q.Count)
	if out.Results == nil {
		out.Results = []providers.Result{}
	}
	return out
}

// Search validates req, dispatches it, merges the outcomes and, when asked,
// summarizes the merged list. Provider failures never fail the call: the
// only error returned is a *ValidationError.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	outcomes := e.Dispatch(ctx, req)
	resp := &Response{
		Query:                     req.Query,
		ProvidersUsed:             ProvidersUsed(outcomes),
		RequestedCountPerProvider: req.ResultsPerProvider,
		Results:                   Merge(outcomes, req.ResultsPerProvider, e.strategy),
	}
	for _, o := range outcomes {
		if o.OK() {
			continue
		}
		if resp.ProviderErrors == nil {
			resp.ProviderErrors = make(map[providers.ID]ProviderError)
		}
		resp.ProviderErrors[o.Provider] = ProviderError{Kind: o.Err.Kind, Message: o.Err.Message()}
	}

	if req.WantSummary {
		summary := e.summarize(ctx, req, resp.Results)
		resp.Summary = &summary
	}
	return resp, nil
}

func (e *Engine) summarize(ctx context.Context, req Request, results []RankedResult) string {
	if e.summarizer == nil {
		return SummaryNotConfigured
	}
	if len(results) == 0 {
		return SummaryNoResults
	}
	top := results
	if e.summaryTopN > 0 && len(top) > e.summaryTopN {
		top = top[:e.summaryTopN]
	}

	text, err := e.summarizer.Summarize(context.WithoutCancel(ctx), req.Query, top, req.Language)
	switch {
	case errors.Is(err, ErrSummaryNotConfigured):
		return SummaryNotConfigured
	case err != nil:
		logger.FromContext(ctx, e.log).Warn("summarization failed", zap.Error(err))
		return SummaryFailed
	case text == "":
		return SummaryFailed
	}
	return text
}
