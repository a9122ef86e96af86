package http_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/avyrss/internal/adapter/http"
	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/couchcryptid/avyrss/internal/observability"
	"github.com/couchcryptid/avyrss/internal/storage"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>t</title></channel></rss>`

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type unavailableBackend struct {
	storage.Backend
}

func (unavailableBackend) Read(context.Context, string) ([]byte, error) {
	return nil, fmt.Errorf("dial tcp: %w", domain.ErrBackendUnavailable)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, readyErr error) (*httpadapter.Server, *storage.LocalBackend) {
	t.Helper()
	files := storage.NewLocalBackend(t.TempDir())
	cached := storage.NewCachedBackend(files, 16, time.Minute, clockwork.NewFakeClock(), observability.NewMetricsForTesting())
	return httpadapter.NewServer(":0", cached, &mockReadiness{err: readyErr}, quietLogger()), files
}

func get(srv http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestFeed_ServedVerbatim(t *testing.T) {
	srv, files := newTestServer(t, nil)
	require.NoError(t, files.Write(context.Background(), "nwac/snoqualmie-pass.xml", []byte(testRSS)))

	rec := get(srv, "/feed/nwac/snoqualmie-pass")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, testRSS, rec.Body.String())
}

func TestFeed_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := get(srv, "/feed/nwac/atlantis")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Feed not found for nwac/atlantis")
}

func TestFeed_RejectsEscapedTraversal(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := get(srv, "/feed/%2E%2E/secret")
	assert.NotEqual(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, get(srv, "/feed/.hidden/zone").Code)
}

func TestFeed_BackendUnavailable(t *testing.T) {
	srv := httpadapter.NewServer(":0", unavailableBackend{}, &mockReadiness{}, quietLogger())

	rec := get(srv, "/feed/nwac/snoqualmie-pass")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPreview(t *testing.T) {
	srv, files := newTestServer(t, nil)
	require.NoError(t, files.Write(context.Background(), "nwac/snoqualmie-pass.html", []byte("<html>preview</html>")))

	rec := get(srv, "/preview/nwac/snoqualmie-pass")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<html>preview</html>", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(srv, "/preview/nwac/mt-hood").Code)
}

func TestIndex_FallbackUntilGenerated(t *testing.T) {
	srv, files := newTestServer(t, nil)

	rec := get(srv, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Index page not yet generated")

	require.NoError(t, files.Write(context.Background(), "index.html", []byte("<html>index</html>")))
	rec = get(srv, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>index</html>", rec.Body.String())
}

func TestUnknownPathIs404(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, get(srv, "/nope").Code)
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, get(srv, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(srv, "/health").Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, get(srv, "/readyz").Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _ := newTestServer(t, fmt.Errorf("feeds backend: %w", domain.ErrBackendUnavailable))
	assert.Equal(t, http.StatusServiceUnavailable, get(srv, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := get(srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
