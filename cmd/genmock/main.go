// Command genmock writes synthetic forecast payloads for the past N days into a
// forecast store, for local development of feeds without calling the API.
// Payloads are derived from the zone and date only, so reruns produce
// identical files.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -zones avalanche_centers.yaml \
//	  -out forecasts \
//	  -zone northwest-avalanche-center/snoqualmie-pass \
//	  -days 7 -end 2024-01-05
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/couchcryptid/avyrss/internal/observability"
	"github.com/couchcryptid/avyrss/internal/storage"
	"github.com/couchcryptid/avyrss/internal/zones"
	"github.com/jonboulle/clockwork"
)

var problemTypes = []string{"Wind Slab", "Storm Slab", "Persistent Slab", "Loose Wet", "Cornice"}
var likelihoods = []string{"unlikely", "possible", "likely", "very likely"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	zonesPath := flag.String("zones", "avalanche_centers.yaml", "zone configuration file")
	out := flag.String("out", "forecasts", "forecast store URI to write into")
	zoneList := flag.String("zone", "", "comma-separated center/zone slugs (default: every configured zone)")
	days := flag.Int("days", 7, "number of days to generate, ending at -end")
	end := flag.String("end", "2024-01-05", "last forecast date (YYYY-MM-DD)")
	flag.Parse()

	if *days <= 0 {
		flag.Usage()
		return fmt.Errorf("-days must be positive")
	}
	endDate, err := time.Parse(domain.DateLayout, *end)
	if err != nil {
		return fmt.Errorf("parse -end: %w", err)
	}

	registry, err := zones.Load(*zonesPath)
	if err != nil {
		return err
	}
	targets, err := selectZones(registry, *zoneList)
	if err != nil {
		return err
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	backend, err := storage.Open(ctx, *out, storage.Options{Timeout: 10 * time.Second, Logger: logger})
	if err != nil {
		return err
	}
	store := storage.NewForecastStore(backend, logger, observability.NewMetricsForTesting())

	// Fixed clock: request times are one hour after each publication.
	clock := clockwork.NewFakeClockAt(endDate.Add(-time.Duration(*days-1) * 24 * time.Hour).Add(8 * time.Hour))
	written := 0
	for day := 0; day < *days; day++ {
		published := clock.Now().Add(-time.Hour)
		for _, z := range targets {
			p, err := mockPayload(z, published, clock.Now())
			if err != nil {
				return err
			}
			if _, err := store.Save(ctx, z.CenterSlug, z.ZoneSlug, p); err != nil {
				return fmt.Errorf("save %s/%s: %w", z.CenterSlug, z.ZoneSlug, err)
			}
			written++
		}
		clock.Advance(24 * time.Hour)
	}

	log.Printf("wrote %d payloads for %d zones into %s", written, len(targets), backend.URI())
	return nil
}

func selectZones(registry *zones.Registry, list string) ([]zones.Zone, error) {
	if list == "" {
		return registry.AllZones(), nil
	}
	var out []zones.Zone
	for _, item := range strings.Split(list, ",") {
		center, zone, ok := strings.Cut(strings.TrimSpace(item), "/")
		if !ok {
			return nil, fmt.Errorf("zone %q: want center/zone", item)
		}
		z, err := registry.Lookup(center, zone)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, nil
}

// seed derives stable pseudo-random values from the zone and date.
func seed(z zones.Zone, date time.Time) uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s/%s/%s", z.CenterSlug, z.ZoneSlug, date.Format(domain.DateLayout))
	return h.Sum32()
}

func mockPayload(z zones.Zone, published, requested time.Time) (domain.RawForecastPayload, error) {
	s := seed(z, published)
	level := func(shift uint) int { return int((s>>shift)%5) + 1 }
	upper, middle, lower := level(0), level(3), level(6)
	if middle > upper {
		middle = upper
	}
	if lower > middle {
		lower = middle
	}

	nProblems := int(s>>9) % 3
	problems := make([]map[string]any, 0, nProblems)
	for i := 0; i < nProblems; i++ {
		problems = append(problems, map[string]any{
			"name":       problemTypes[int(s>>(12+uint(i)*3))%len(problemTypes)],
			"likelihood": likelihoods[int(s>>(18+uint(i)*2))%len(likelihoods)],
			"size":       []float64{1, float64(1 + (s>>(22+uint(i)))%3)},
		})
	}

	forecast := map[string]any{
		"published_time":    published.UTC().Format(time.RFC3339),
		"author":            "Mock Forecaster",
		"bottom_line":       fmt.Sprintf("<p>Mock bottom line for %s on %s.</p>", z.ZoneName, published.Format(domain.DateLayout)),
		"hazard_discussion": "<p>Synthetic discussion generated for local development.</p>",
		"forecast_zone":     []map[string]any{{"id": z.ZoneID, "name": z.ZoneName, "url": "https://avalanche.org/#/" + z.ZoneSlug}},
		"danger": []map[string]any{
			{"valid_day": "current", "upper": upper, "middle": middle, "lower": lower},
			{"valid_day": "tomorrow", "upper": max(upper-1, 1), "middle": max(middle-1, 1), "lower": max(lower-1, 1)},
		},
		"forecast_avalanche_problems": problems,
	}
	body, err := json.Marshal(forecast)
	if err != nil {
		return domain.RawForecastPayload{}, fmt.Errorf("marshal mock forecast: %w", err)
	}
	return domain.RawForecastPayload{
		RequestTime:       domain.FormatTimestamp(requested),
		RequestDurationMs: int64(100 + s%400),
		Forecast:          body,
	}, nil
}
