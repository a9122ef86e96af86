package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/couchcryptid/avyrss/internal/observability"
)

// MigrationResult summarizes a Copy run. Total counts every file found under
// the source root; non-payload files are Skipped.
type MigrationResult struct {
	Total    int
	Copied   int
	Skipped  int
	Failed   int
	Failures []string
	DryRun   bool
}

// Migrator copies stored payloads between two backends.
type Migrator struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewMigrator creates a Migrator.
func NewMigrator(logger *slog.Logger, metrics *observability.Metrics) *Migrator {
	return &Migrator{logger: logger, metrics: metrics}
}

// CheckDistinct rejects a migration whose source and destination name the same location.
func CheckDistinct(srcURI, dstURI string) error {
	src, err := NormalizeURI(srcURI)
	if err != nil {
		return err
	}
	dst, err := NormalizeURI(dstURI)
	if err != nil {
		return err
	}
	if src == dst {
		return fmt.Errorf("source and destination are the same (%s): %w", src, domain.ErrValidation)
	}
	return nil
}

// Copy copies every .json file under src to the same relative key under dst,
// overwriting existing files. In dry-run mode nothing is read or written. A
// failure on one file is recorded and the remaining files are still copied.
// An error is returned only when the source cannot be listed.
func (m *Migrator) Copy(ctx context.Context, src, dst Backend, dryRun bool) (MigrationResult, error) {
	result := MigrationResult{DryRun: dryRun}

	keys, err := src.List(ctx, "")
	if err != nil {
		return result, fmt.Errorf("list source %s: %w", src.URI(), err)
	}
	result.Total = len(keys)
	m.logger.Info("migration started", "source", src.URI(), "dest", dst.URI(), "files", len(keys), "dry_run", dryRun)

	for _, key := range keys {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if !strings.HasSuffix(key, payloadExt) {
			result.Skipped++
			m.metrics.MigrationFiles.WithLabelValues("skipped").Inc()
			continue
		}

		if dryRun {
			m.logger.Info("would copy", "from", src.Location(key), "to", dst.Location(key))
			result.Copied++
			continue
		}

		if err := copyOne(ctx, src, dst, key); err != nil {
			m.logger.Error("copy failed", "path", src.Location(key), "error", err)
			result.Failed++
			result.Failures = append(result.Failures, key)
			m.metrics.MigrationFiles.WithLabelValues("failed").Inc()
			continue
		}
		m.logger.Debug("copied", "path", key)
		result.Copied++
		m.metrics.MigrationFiles.WithLabelValues("copied").Inc()
	}

	m.logger.Info("migration finished",
		"total", result.Total, "copied", result.Copied, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

func copyOne(ctx context.Context, src, dst Backend, key string) error {
	data, err := src.Read(ctx, key)
	if err != nil {
		return err
	}
	if dir := path.Dir(key); dir != "." {
		if err := dst.MakeDirs(ctx, dir); err != nil {
			return err
		}
	}
	return dst.Write(ctx, key, data)
}
