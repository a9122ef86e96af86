package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/couchcryptid/avyrss/internal/feed"
	"github.com/couchcryptid/avyrss/internal/storage"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	contentTypeRSS  = "application/rss+xml; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"
)

// fallbackIndex is served at / until an index page has been generated.
const fallbackIndex = `<html><body><h1>AvyRSS</h1><p>Avalanche Forecast RSS Feeds</p>` +
	`<p>Index page not yet generated. Run <code>avyrss generate-index</code> to create it.</p></body></html>`

// Server serves generated feeds, previews and the index page, plus health,
// readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	files      storage.Backend
	logger     *slog.Logger
}

// NewServer creates an HTTP server reading generated files from files.
func NewServer(addr string, files storage.Backend, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		files:  files,
		logger: logger,
	}

	mux.HandleFunc("GET /feed/{center}/{zone}", s.handleFeed)
	mux.HandleFunc("GET /preview/{center}/{zone}", s.handlePreview)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /health", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	center, zone := r.PathValue("center"), r.PathValue("zone")
	if !validSlug(center) || !validSlug(zone) {
		http.NotFound(w, r)
		return
	}
	s.serveFile(w, r, feed.RSSKey(center, zone), contentTypeRSS,
		fmt.Sprintf("Feed not found for %s/%s", center, zone))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	center, zone := r.PathValue("center"), r.PathValue("zone")
	if !validSlug(center) || !validSlug(zone) {
		http.NotFound(w, r)
		return
	}
	s.serveFile(w, r, feed.PreviewKey(center, zone), contentTypeHTML,
		fmt.Sprintf("Preview not found for %s/%s", center, zone))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := s.files.Read(r.Context(), feed.IndexKey)
	if errors.Is(err, domain.ErrNotFound) {
		writeBody(w, http.StatusOK, contentTypeHTML, []byte(fallbackIndex))
		return
	}
	if err != nil {
		s.fail(w, feed.IndexKey, err)
		return
	}
	writeBody(w, http.StatusOK, contentTypeHTML, data)
}

// serveFile writes a stored file verbatim.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, key, contentType, notFound string) {
	data, err := s.files.Read(r.Context(), key)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, notFound, http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, key, err)
		return
	}
	writeBody(w, http.StatusOK, contentType, data)
}

func (s *Server) fail(w http.ResponseWriter, key string, err error) {
	s.logger.Error("serve file failed", "key", key, "error", err)
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrBackendUnavailable) {
		status = http.StatusServiceUnavailable
	}
	http.Error(w, http.StatusText(status), status)
}

// validSlug rejects path values that could escape the feeds root once unescaped.
func validSlug(s string) bool {
	return s != "" && !strings.HasPrefix(s, ".") && !strings.ContainsAny(s, "/\\")
}

func writeBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(body) //nolint:errcheck // client went away
}
