// Command validate checks the integrity of stored forecasts and generated
// feeds: every stored payload must decode and normalize, and every generated
// RSS document must parse with unique entry ids.
//
// Usage:
//
//	go run ./cmd/validate -forecasts forecasts -feeds feeds
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/couchcryptid/avyrss/internal/storage"
	"github.com/mmcdole/gofeed"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	checked int
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	forecastsURI := flag.String("forecasts", "forecasts", "forecast store URI")
	feedsURI := flag.String("feeds", "feeds", "feeds store URI")
	flag.Parse()

	os.Exit(run(context.Background(), *forecastsURI, *feedsURI, os.Stdout))
}

func run(ctx context.Context, forecastsURI, feedsURI string, out io.Writer) int {
	opts := storage.Options{Timeout: 30 * time.Second, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	forecasts, err := storage.Open(ctx, forecastsURI, opts)
	if err != nil {
		fmt.Fprintf(out, "FATAL: open forecasts: %v\n", err)
		return 1
	}
	feeds, err := storage.Open(ctx, feedsURI, opts)
	if err != nil {
		fmt.Fprintf(out, "FATAL: open feeds: %v\n", err)
		return 1
	}

	fmt.Fprintln(out, "=== AvyRSS Integrity Validation ===")
	fmt.Fprintln(out)

	phases := []*phase{
		validateForecasts(ctx, forecasts),
		validateFeeds(ctx, feeds),
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-30s %4d checked  %s\n", p.name, p.checked, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func validateForecasts(ctx context.Context, b storage.Backend) *phase {
	p := &phase{name: "Stored forecasts"}
	keys, err := b.List(ctx, "")
	if err != nil {
		p.errorf("list %s: %v", b.URI(), err)
		return p
	}
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		p.checked++
		data, err := b.Read(ctx, key)
		if err != nil {
			p.errorf("%s: %v", b.Location(key), err)
			continue
		}
		payload, err := domain.DecodePayload(data)
		if err != nil {
			p.errorf("%s: %v", b.Location(key), err)
			continue
		}
		if payload.Failed() {
			p.errorf("%s: stored payload records a fetch error: %s", b.Location(key), payload.Error)
			continue
		}
		summary, err := domain.Extract(payload, "")
		if err != nil {
			p.errorf("%s: %v", b.Location(key), err)
			continue
		}
		if want := summary.DateKey() + ".json"; !strings.HasSuffix(key, "/"+want) {
			p.errorf("%s: filed under the wrong date, want %s", b.Location(key), want)
		}
	}
	return p
}

func validateFeeds(ctx context.Context, b storage.Backend) *phase {
	p := &phase{name: "Generated feeds"}
	keys, err := b.List(ctx, "")
	if err != nil {
		p.errorf("list %s: %v", b.URI(), err)
		return p
	}
	parser := gofeed.NewParser()
	for _, key := range keys {
		if !strings.HasSuffix(key, ".xml") {
			continue
		}
		p.checked++
		data, err := b.Read(ctx, key)
		if err != nil {
			p.errorf("%s: %v", b.Location(key), err)
			continue
		}
		parsed, err := parser.ParseString(string(data))
		if err != nil {
			p.errorf("%s: parse: %v", b.Location(key), err)
			continue
		}
		if parsed.FeedType != "rss" {
			p.errorf("%s: feed type %q, want rss", b.Location(key), parsed.FeedType)
		}
		if len(parsed.Items) == 0 {
			p.errorf("%s: no entries", b.Location(key))
		}
		seen := make(map[string]bool, len(parsed.Items))
		for _, item := range parsed.Items {
			if item.GUID == "" {
				p.errorf("%s: entry %q has no id", b.Location(key), item.Title)
				continue
			}
			if seen[item.GUID] {
				p.errorf("%s: duplicate entry id %s", b.Location(key), item.GUID)
			}
			seen[item.GUID] = true
		}
	}
	return p
}
