package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	hubbleErrors "github.com/harunnryd/hubblepad/internal/errors"
	"github.com/harunnryd/hubblepad/internal/hook"
	"github.com/harunnryd/hubblepad/internal/logger"
	"github.com/harunnryd/hubblepad/internal/store"
)

const maxBodyBytes = 10 << 20

// HealthFunc reports per-component health; a nil error means healthy.
type HealthFunc func() map[string]error

// Server exposes the item store, hook registry and hook runs over HTTP.
type Server struct {
	items    *store.ItemStore
	registry *store.HookRegistry
	hooks    *hook.Service
	health   HealthFunc
	version  string
	mux      *http.ServeMux
}

type Option func(*Server)

func WithHealth(fn HealthFunc) Option {
	return func(s *Server) {
		s.health = fn
	}
}

func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

func NewServer(items *store.ItemStore, registry *store.HookRegistry, hooks *hook.Service, opts ...Option) *Server {
	s := &Server{
		items:    items,
		registry: registry,
		hooks:    hooks,
		version:  "dev",
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /__hooks/list", s.handleHooksList)
	s.mux.HandleFunc("POST /__hooks/save", s.handleHooksSave)
	s.mux.HandleFunc("POST /__hooks/run-all", s.handleRunAll)
	s.mux.HandleFunc("POST /__hooks/run/{ref...}", s.handleRunOne)
	s.mux.HandleFunc("GET /data/workitems.json", s.handleItemsGet)
	s.mux.HandleFunc("POST /__data/save", s.handleItemsSave)
	s.mux.HandleFunc("POST /__log", s.handleClientLog)
	return s
}

// ServeHTTP tags each request with an id and logs its outcome.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = ulid.Make().String()
	}
	w.Header().Set("X-Request-ID", requestID)

	ctx := logger.WithRequestID(r.Context(), requestID)
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()

	s.mux.ServeHTTP(rec, r.WithContext(ctx))

	level := slog.LevelDebug
	if rec.status >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.From(ctx).Log(ctx, level, "HTTP request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeError reports err under key ("message" for saves, "error" for runs),
// with the status derived from its category.
func writeError(w http.ResponseWriter, r *http.Request, key string, err error) {
	status := hubbleErrors.HTTPStatus(err)
	log := logger.From(r.Context()).With("category", hubbleErrors.Category(err), "error", err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Debug("Request rejected")
	}
	if hubbleErrors.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, map[string]any{"ok": false, key: err.Error()})
}
