// Command avyrss downloads avalanche forecasts, generates per-zone RSS feeds,
// and serves them.
//
// Usage:
//
//	avyrss full-update
//	avyrss download-forecast <center> <zone>
//	avyrss download-all
//	avyrss generate-feed <center> <zone>
//	avyrss generate-all-feeds
//	avyrss generate-index
//	avyrss migrate --source <uri> --dest <uri> [--dry-run]
//	avyrss serve
//
// Settings come from the environment (see internal/config).
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/avyrss/internal/config"
	"github.com/couchcryptid/avyrss/internal/observability"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

const usage = `usage: avyrss <command> [arguments]

commands:
  full-update                        download all forecasts, then regenerate all feeds
  download-forecast <center> <zone>  download one zone's forecast
  download-all                       download every configured zone
  generate-feed <center> <zone>      regenerate one zone's feed
  generate-all-feeds                 regenerate every configured zone's feed
  generate-index                     write the index page
  migrate --source URI --dest URI    copy stored forecasts between backends
  serve                              serve feeds over HTTP
`

// commandFunc runs one subcommand and returns the process exit code.
type commandFunc func(ctx context.Context, cmd *command) int

// command is the environment a subcommand runs in.
type command struct {
	args    []string
	stdout  io.Writer
	stderr  io.Writer
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

var commands = map[string]commandFunc{
	"full-update":        runFullUpdate,
	"download-forecast":  runDownloadForecast,
	"download-all":       runDownloadAll,
	"generate-feed":      runGenerateFeed,
	"generate-all-feeds": runGenerateAllFeeds,
	"generate-index":     runGenerateIndex,
	"migrate":            runMigrate,
	"serve":              runServe,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, observability.NewMetrics())
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, metrics *observability.Metrics) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}
	fn, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitFail
	}

	return fn(ctx, &command{
		args:    args[1:],
		stdout:  stdout,
		stderr:  stderr,
		cfg:     cfg,
		logger:  observability.NewLogger(cfg),
		metrics: metrics,
	})
}

// openApp wires the service or reports why it could not.
func (c *command) openApp(ctx context.Context) (*app, bool) {
	a, err := newApp(ctx, c.cfg, c.logger, c.metrics)
	if err != nil {
		fmt.Fprintf(c.stderr, "✗ %v\n", err)
		return nil, false
	}
	return a, true
}

// zoneArgs parses the <center> <zone> positional arguments.
func (c *command) zoneArgs(name string) (string, string, bool) {
	if len(c.args) != 2 {
		fmt.Fprintf(c.stderr, "usage: avyrss %s <center> <zone>\n", name)
		return "", "", false
	}
	return c.args[0], c.args[1], true
}
