package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"

	httpadapter "github.com/couchcryptid/avyrss/internal/adapter/http"
	"github.com/couchcryptid/avyrss/internal/pipeline"
	"github.com/couchcryptid/avyrss/internal/scheduler"
	"github.com/couchcryptid/avyrss/internal/storage"
	"github.com/jonboulle/clockwork"
)

var rule = strings.Repeat("=", 60)

func runFullUpdate(ctx context.Context, c *command) int {
	a, ok := c.openApp(ctx)
	if !ok {
		return exitFail
	}
	defer a.Close()

	download, feeds := a.service.FullUpdate(ctx)

	fmt.Fprintln(c.stdout)
	fmt.Fprintln(c.stdout, rule)
	fmt.Fprintln(c.stdout, "FULL UPDATE COMPLETE")
	fmt.Fprintln(c.stdout, rule)
	fmt.Fprintf(c.stdout, "Forecasts downloaded: %d/%d\n", download.Succeeded, download.Total)
	fmt.Fprintf(c.stdout, "RSS feeds generated:  %d/%d\n", feeds.Succeeded, feeds.Total)
	fmt.Fprintln(c.stdout, rule)
	printFailures(c.stderr, download)
	printFailures(c.stderr, feeds)
	return exitOK
}

func runDownloadForecast(ctx context.Context, c *command) int {
	center, zone, ok := c.zoneArgs("download-forecast")
	if !ok {
		return exitUsage
	}
	a, ok := c.openApp(ctx)
	if !ok {
		return exitFail
	}
	defer a.Close()

	path, err := a.service.DownloadZone(ctx, center, zone)
	if err != nil {
		fmt.Fprintf(c.stderr, "✗ Error downloading forecast for %s/%s: %v\n", center, zone, err)
		return exitFail
	}
	fmt.Fprintln(c.stdout, "✓ Successfully downloaded forecast")
	fmt.Fprintf(c.stdout, "  Saved to: %s\n", path)
	return exitOK
}

func runDownloadAll(ctx context.Context, c *command) int {
	a, ok := c.openApp(ctx)
	if !ok {
		return exitFail
	}
	defer a.Close()

	result := a.service.DownloadAll(ctx)
	printBatch(c.stdout, "Forecasts downloaded", result)
	printFailures(c.stderr, result)
	return exitOK
}

func runGenerateFeed(ctx context.Context, c *command) int {
	center, zone, ok := c.zoneArgs("generate-feed")
	if !ok {
		return exitUsage
	}
	a, ok := c.openApp(ctx)
	if !ok {
		return exitFail
	}
	defer a.Close()

	path, err := a.service.GenerateFeed(ctx, center, zone)
	if err != nil {
		fmt.Fprintf(c.stderr, "✗ Error generating feed for %s/%s: %v\n", center, zone, err)
		return exitFail
	}
	fmt.Fprintln(c.stdout, "✓ RSS feed generated successfully")
	fmt.Fprintf(c.stdout, "  Saved to: %s\n", path)
	return exitOK
}

func runGenerateAllFeeds(ctx context.Context, c *command) int {
	a, ok := c.openApp(ctx)
	if !ok {
		return exitFail
	}
	defer a.Close()

	result := a.service.GenerateAllFeeds(ctx)
	printBatch(c.stdout, "RSS feeds generated", result)
	printFailures(c.stderr, result)
	return exitOK
}

func runGenerateIndex(ctx context.Context, c *command) int {
	a, ok := c.openApp(ctx)
	if !ok {
		return exitFail
	}
	defer a.Close()

	path, err := a.service.GenerateIndex(ctx)
	if err != nil {
		fmt.Fprintf(c.stderr, "✗ Error generating index: %v\n", err)
		return exitFail
	}
	fmt.Fprintln(c.stdout, "✓ HTML index page generated successfully")
	fmt.Fprintf(c.stdout, "  Saved to: %s\n", path)
	return exitOK
}

func runMigrate(ctx context.Context, c *command) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	source := fs.String("source", "", "source storage URI (path, file://, s3://, redis://)")
	dest := fs.String("dest", "", "destination storage URI")
	dryRun := fs.Bool("dry-run", false, "list what would be copied without writing")
	if err := fs.Parse(c.args); err != nil {
		return exitUsage
	}
	if *source == "" || *dest == "" {
		fmt.Fprintln(c.stderr, "usage: avyrss migrate --source URI --dest URI [--dry-run]")
		return exitUsage
	}

	if err := storage.CheckDistinct(*source, *dest); err != nil {
		fmt.Fprintf(c.stderr, "✗ %v\n", err)
		return exitFail
	}
	opts := storageOptions(c.cfg, c.logger)
	src, err := storage.Open(ctx, *source, opts)
	if err != nil {
		fmt.Fprintf(c.stderr, "✗ open source: %v\n", err)
		return exitFail
	}
	dst, err := storage.Open(ctx, *dest, opts)
	if err != nil {
		fmt.Fprintf(c.stderr, "✗ open destination: %v\n", err)
		return exitFail
	}

	result, err := storage.NewMigrator(c.logger, c.metrics).Copy(ctx, src, dst, *dryRun)
	if err != nil {
		fmt.Fprintf(c.stderr, "✗ migration aborted: %v\n", err)
		return exitFail
	}

	fmt.Fprintln(c.stdout)
	fmt.Fprintln(c.stdout, rule)
	fmt.Fprintln(c.stdout, "MIGRATION SUMMARY")
	fmt.Fprintln(c.stdout, rule)
	fmt.Fprintf(c.stdout, "Total files:    %d\n", result.Total)
	fmt.Fprintf(c.stdout, "Copied:         %d\n", result.Copied)
	fmt.Fprintf(c.stdout, "Skipped:        %d\n", result.Skipped)
	fmt.Fprintf(c.stdout, "Failed:         %d\n", result.Failed)
	fmt.Fprintln(c.stdout, rule)
	for _, f := range result.Failures {
		fmt.Fprintf(c.stderr, "  failed: %s\n", f)
	}
	if result.DryRun {
		fmt.Fprintln(c.stdout, "\nThis was a dry run. No files were actually copied.")
		fmt.Fprintln(c.stdout, "Run without --dry-run to perform the actual migration.")
	} else {
		fmt.Fprintln(c.stdout, "\nMigration complete!")
	}
	return exitOK
}

func runServe(ctx context.Context, c *command) int {
	a, ok := c.openApp(ctx)
	if !ok {
		return exitFail
	}
	defer a.Close()

	cached := storage.NewCachedBackend(a.feeds, feedCacheEntries, c.cfg.FeedCacheTTL, clockwork.NewRealClock(), c.metrics)
	srv := httpadapter.NewServer(c.cfg.HTTPAddr, cached, a.service, c.logger)

	if c.cfg.UpdateInterval > 0 {
		sched := scheduler.New(c.cfg.UpdateInterval, func(ctx context.Context) {
			a.service.FullUpdate(ctx)
			if _, err := a.service.GenerateIndex(ctx); err != nil {
				c.logger.Error("scheduled index generation failed", "error", err)
			}
		}, clockwork.NewRealClock(), c.logger, c.metrics)
		if err := sched.Start(ctx); err != nil {
			fmt.Fprintf(c.stderr, "✗ %v\n", err)
			return exitFail
		}
		defer sched.Stop()
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	code := exitOK
	select {
	case <-ctx.Done():
		c.logger.Info("shutting down")
	case err := <-serveErr:
		c.logger.Error("http server error", "error", err)
		code = exitFail
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.logger.Error("http server shutdown error", "error", err)
	}

	c.logger.Info("shutdown complete")
	return code
}

func printBatch(w io.Writer, label string, r pipeline.BatchResult) {
	fmt.Fprintf(w, "%s: %d/%d (%d failed)\n", label, r.Succeeded, r.Total, r.Failed)
}

func printFailures(w io.Writer, r pipeline.BatchResult) {
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  failed: %s\n", f)
	}
}
