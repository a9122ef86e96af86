package storage

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/couchcryptid/avyrss/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSource(t *testing.T) *LocalBackend {
	t.Helper()
	ctx := context.Background()
	src := NewLocalBackend(t.TempDir())
	files := map[string]string{
		"nwac/olympics/2024/2024-01-05.json":      `{"request_time":"2024-01-05T08:00:00Z"}`,
		"nwac/olympics/2024/2024-01-04.json":      `{"request_time":"2024-01-04T08:00:00Z"}`,
		"sac/central-sierra/2023/2023-12-31.json": `{"request_time":"2023-12-31T08:00:00Z"}`,
		"nwac/olympics/notes.md":                  "ignored",
	}
	for k, v := range files {
		require.NoError(t, src.Write(ctx, k, []byte(v)))
	}
	return src
}

func TestCopy_CopiesPayloadsVerbatim(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	dst := NewLocalBackend(t.TempDir())
	metrics := observability.NewMetricsForTesting()

	res, err := NewMigrator(slog.Default(), metrics).Copy(ctx, src, dst, false)
	require.NoError(t, err)
	assert.Equal(t, MigrationResult{Total: 4, Copied: 3, Skipped: 1}, res)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.MigrationFiles.WithLabelValues("copied")), 0)

	want, err := src.Read(ctx, "sac/central-sierra/2023/2023-12-31.json")
	require.NoError(t, err)
	got, err := dst.Read(ctx, "sac/central-sierra/2023/2023-12-31.json")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	ok, err := dst.Exists(ctx, "nwac/olympics/notes.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCopy_OverwritesDestination(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	dst := NewLocalBackend(t.TempDir())
	require.NoError(t, dst.Write(ctx, "nwac/olympics/2024/2024-01-05.json", []byte("stale")))

	_, err := NewMigrator(slog.Default(), observability.NewMetricsForTesting()).Copy(ctx, src, dst, false)
	require.NoError(t, err)

	got, err := dst.Read(ctx, "nwac/olympics/2024/2024-01-05.json")
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(got))
}

func TestCopy_DryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	dst := NewLocalBackend(t.TempDir())

	res, err := NewMigrator(slog.Default(), observability.NewMetricsForTesting()).Copy(ctx, src, dst, true)
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 3, res.Copied)

	keys, err := dst.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

// flakyBackend fails writes for keys containing a marker.
type flakyBackend struct {
	Backend
	failOn string
}

func (f flakyBackend) Write(ctx context.Context, key string, data []byte) error {
	if strings.Contains(key, f.failOn) {
		return errors.New("disk full")
	}
	return f.Backend.Write(ctx, key, data)
}

func TestCopy_FailureDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	dst := flakyBackend{Backend: NewLocalBackend(t.TempDir()), failOn: "2024-01-04"}

	res, err := NewMigrator(slog.Default(), observability.NewMetricsForTesting()).Copy(ctx, src, dst, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Copied)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"nwac/olympics/2024/2024-01-04.json"}, res.Failures)
}

func TestCheckDistinct(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, CheckDistinct(dir, "file://"+dir+"/"), domain.ErrValidation)
	assert.ErrorIs(t, CheckDistinct("s3://b/p", "s3://b/p/"), domain.ErrValidation)
	assert.NoError(t, CheckDistinct(dir, "s3://b/p"))
	assert.NoError(t, CheckDistinct(filepath.Join(dir, "data#1"), filepath.Join(dir, "data")))
}
