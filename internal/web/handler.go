// Package web serves the search aggregation API over HTTP.
package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cwoolley/metasearch/internal/logger"
	"github.com/cwoolley/metasearch/internal/metrics"
	"github.com/cwoolley/metasearch/internal/providers"
	"github.com/cwoolley/metasearch/internal/search"
	"go.uber.org/zap"
)

// Banner is the body of GET /.
const Banner = "Metasearch API is running!"

const internalError = "internal server error"

// Searcher runs one aggregation. *search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, req search.Request) (*search.Response, error)

func (f SearcherFunc) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	return f(ctx, req)
}

// Catalog lists the registered providers. *providers.Registry implements it.
type Catalog interface {
	Descriptors() []providers.Descriptor
}

// Mux is the registration surface of *server.Server and *http.ServeMux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

type Handler struct {
	searcher Searcher
	catalog  Catalog
	metrics  *metrics.Metrics
	log      *zap.Logger
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics) Option { return func(h *Handler) { h.metrics = m } }

func WithLogger(l *zap.Logger) Option { return func(h *Handler) { h.log = l } }

func New(searcher Searcher, catalog Catalog, opts ...Option) *Handler {
	h := &Handler{searcher: searcher, catalog: catalog, log: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API routes on m.
func (h *Handler) Register(m Mux) {
	m.Handle("GET /search", h.wrap(http.HandlerFunc(h.handleSearch)))
	m.Handle("POST /search", h.wrap(http.HandlerFunc(h.handleSearch)))
	m.Handle("GET /providers", h.wrap(http.HandlerFunc(h.handleProviders)))
	m.Handle("GET /{$}", h.wrap(http.HandlerFunc(h.handleBanner)))
}

func (h *Handler) wrap(next http.Handler) http.Handler {
	return h.withRequestID(h.recoverer(next))
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.log)

	req, err := parseRequest(r)
	if err != nil {
		h.fail(w, log, err)
		return
	}

	resp, err := h.searcher.Search(r.Context(), req)
	if err != nil {
		h.fail(w, log, err)
		return
	}

	h.metrics.ObserveSearch(strconv.Itoa(http.StatusOK))
	log.Info("search served",
		zap.Int("providers", len(resp.ProvidersUsed)),
		zap.Int("results", len(resp.Results)),
		zap.Int("provider_errors", len(resp.ProviderErrors)))
	writeJSON(w, log, http.StatusOK, resp)
}

func (h *Handler) fail(w http.ResponseWriter, log *zap.Logger, err error) {
	var verr *search.ValidationError
	if errors.As(err, &verr) {
		h.metrics.ObserveSearch(strconv.Itoa(http.StatusBadRequest))
		writeError(w, log, http.StatusBadRequest, verr.Error())
		return
	}
	log.Error("search failed", zap.Error(err))
	h.metrics.ObserveSearch(strconv.Itoa(http.StatusInternalServerError))
	writeError(w, log, http.StatusInternalServerError, internalError)
}

func (h *Handler) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, logger.FromContext(r.Context(), h.log), http.StatusOK, map[string]any{
		"providers": h.catalog.Descriptors(),
	})
}

func (h *Handler) handleBanner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, Banner)
}
