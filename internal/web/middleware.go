package web

import (
	"net/http"

	"github.com/cwoolley/metasearch/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader is echoed on every response. An inbound value is reused.
const RequestIDHeader = "X-Request-ID"

// withRequestID tags the request with an id and a logger carrying it.
func (h *Handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		log := h.log.With(zap.String("request_id", id))
		next.ServeHTTP(w, r.WithContext(logger.NewContext(r.Context(), log)))
	})
}

// recoverer turns a panic into a generic 500. Internal detail is logged,
// never returned to the caller.
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log := logger.FromContext(r.Context(), h.log)
				log.Error("handler panicked", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				h.metrics.ObserveSearch("500")
				writeError(w, log, http.StatusInternalServerError, internalError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
