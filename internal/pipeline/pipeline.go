package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/couchcryptid/avyrss/internal/feed"
	"github.com/couchcryptid/avyrss/internal/observability"
	"github.com/couchcryptid/avyrss/internal/storage"
	"github.com/couchcryptid/avyrss/internal/zones"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// readinessKey is probed on the feeds backend by CheckReadiness.
const readinessKey = ".readyz"

// Fetcher retrieves the current forecast for one provider zone.
type Fetcher interface {
	Fetch(ctx context.Context, centerID, zoneID string) (domain.RawForecastPayload, error)
}

// Notifier is told about every saved forecast.
type Notifier interface {
	ForecastSaved(ctx context.Context, event domain.ForecastSavedEvent) error
}

// Registry resolves configured centers and zones.
type Registry interface {
	Lookup(centerSlug, zoneSlug string) (zones.Zone, error)
	AllZones() []zones.Zone
	Centers() []zones.Center
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) ForecastSaved(context.Context, domain.ForecastSavedEvent) error { return nil }

// Failure is one batch item that did not complete.
type Failure struct {
	CenterSlug string
	ZoneSlug   string
	Err        error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s/%s: %v", f.CenterSlug, f.ZoneSlug, f.Err)
}

// BatchResult summarizes a batch over every configured zone. A batch never
// aborts on an item failure.
type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Failures  []Failure
}

// Options tunes a Service.
type Options struct {
	Workers   int // concurrent zones per batch
	FeedLimit int // entries per feed
}

// Service downloads forecasts and generates feeds for the configured zones.
type Service struct {
	registry Registry
	fetcher  Fetcher
	store    *storage.ForecastStore
	feeds    storage.Backend
	builder  *feed.Builder
	notifier Notifier
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	opts     Options
}

// New creates a Service. A nil notifier disables notifications.
func New(
	registry Registry,
	fetcher Fetcher,
	store *storage.ForecastStore,
	feeds storage.Backend,
	builder *feed.Builder,
	notifier Notifier,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
	opts Options,
) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Service{
		registry: registry,
		fetcher:  fetcher,
		store:    store,
		feeds:    feeds,
		builder:  builder,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
	}
}

func (s *Service) lookup(centerSlug, zoneSlug string) (zones.Zone, error) {
	z, err := s.registry.Lookup(centerSlug, zoneSlug)
	if err != nil {
		return zones.Zone{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return z, nil
}

// DownloadZone fetches and stores the current forecast for one zone and
// returns the location written. Failed fetches are never stored.
func (s *Service) DownloadZone(ctx context.Context, centerSlug, zoneSlug string) (string, error) {
	return s.downloadZone(ctx, uuid.NewString(), centerSlug, zoneSlug)
}

func (s *Service) downloadZone(ctx context.Context, runID, centerSlug, zoneSlug string) (string, error) {
	z, err := s.lookup(centerSlug, zoneSlug)
	if err != nil {
		return "", err
	}

	s.logger.Info("fetching forecast", "run_id", runID, "center", centerSlug, "zone", zoneSlug, "zone_id", z.ZoneID)
	payload, err := s.fetcher.Fetch(ctx, z.CenterID, z.ZoneID)
	if err != nil {
		return "", err
	}
	if payload.Failed() {
		return "", fmt.Errorf("fetch %s/%s: %s: %w", centerSlug, zoneSlug, payload.Error, domain.ErrBackendUnavailable)
	}

	path, err := s.store.Save(ctx, centerSlug, zoneSlug, payload)
	if err != nil {
		return "", err
	}

	s.notify(ctx, runID, centerSlug, zoneSlug, payload, path)
	return path, nil
}

// notify failures are logged; the forecast is already stored.
func (s *Service) notify(ctx context.Context, runID, centerSlug, zoneSlug string, p domain.RawForecastPayload, path string) {
	date, err := p.EffectiveDate()
	if err != nil {
		return
	}
	event := domain.ForecastSavedEvent{
		ID:         uuid.NewString(),
		RunID:      runID,
		CenterSlug: centerSlug,
		ZoneSlug:   zoneSlug,
		Date:       date.Format(domain.DateLayout),
		Path:       path,
		SavedAt:    s.clock.Now().UTC(),
	}
	if err := s.notifier.ForecastSaved(ctx, event); err != nil {
		s.logger.Warn("forecast notification failed", "center", centerSlug, "zone", zoneSlug, "error", err)
	}
}

// DownloadAll downloads every configured zone.
func (s *Service) DownloadAll(ctx context.Context) BatchResult {
	runID := uuid.NewString()
	return s.runBatch(ctx, "download_all", runID, func(ctx context.Context, z zones.Zone) error {
		_, err := s.downloadZone(ctx, runID, z.CenterSlug, z.ZoneSlug)
		return err
	})
}

// GenerateFeed rebuilds one zone's RSS document and HTML preview from its
// most recent stored forecasts and returns the location of the RSS document.
func (s *Service) GenerateFeed(ctx context.Context, centerSlug, zoneSlug string) (string, error) {
	path, err := s.generateFeed(ctx, centerSlug, zoneSlug)
	if err != nil {
		s.metrics.FeedsGenerated.WithLabelValues("error").Inc()
		return "", err
	}
	s.metrics.FeedsGenerated.WithLabelValues("success").Inc()
	return path, nil
}

func (s *Service) generateFeed(ctx context.Context, centerSlug, zoneSlug string) (string, error) {
	z, err := s.lookup(centerSlug, zoneSlug)
	if err != nil {
		return "", err
	}

	stored, err := s.store.Recent(ctx, centerSlug, zoneSlug, s.opts.FeedLimit)
	if err != nil {
		return "", err
	}

	summaries := make([]domain.ForecastSummary, 0, len(stored))
	for _, sf := range stored {
		summary, err := domain.Extract(sf.Payload, z.ZoneName)
		if err != nil {
			s.metrics.CorruptSkipped.Inc()
			s.logger.Warn("skipping corrupt forecast", "path", sf.Path, "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}

	doc := s.builder.Build(feed.ZoneMeta{
		CenterSlug: z.CenterSlug,
		CenterName: z.CenterName,
		ZoneSlug:   z.ZoneSlug,
		ZoneName:   z.ZoneName,
	}, summaries)

	rss, err := feed.EncodeRSS(doc)
	if err != nil {
		return "", fmt.Errorf("generate feed %s/%s: %w", centerSlug, zoneSlug, err)
	}
	preview, err := s.builder.PreviewHTML(doc)
	if err != nil {
		return "", fmt.Errorf("generate preview %s/%s: %w", centerSlug, zoneSlug, err)
	}

	if err := s.feeds.MakeDirs(ctx, centerSlug); err != nil {
		return "", fmt.Errorf("generate feed %s/%s: %w", centerSlug, zoneSlug, err)
	}
	rssKey := feed.RSSKey(centerSlug, zoneSlug)
	if err := s.feeds.Write(ctx, rssKey, []byte(rss)); err != nil {
		return "", fmt.Errorf("write feed %s/%s: %w", centerSlug, zoneSlug, err)
	}
	if err := s.feeds.Write(ctx, feed.PreviewKey(centerSlug, zoneSlug), preview); err != nil {
		return "", fmt.Errorf("write preview %s/%s: %w", centerSlug, zoneSlug, err)
	}

	loc := s.feeds.Location(rssKey)
	s.logger.Info("generated feed", "center", centerSlug, "zone", zoneSlug, "entries", len(summaries), "path", loc)
	return loc, nil
}

// GenerateAllFeeds rebuilds the feed of every configured zone.
func (s *Service) GenerateAllFeeds(ctx context.Context) BatchResult {
	return s.runBatch(ctx, "generate_all_feeds", uuid.NewString(), func(ctx context.Context, z zones.Zone) error {
		_, err := s.GenerateFeed(ctx, z.CenterSlug, z.ZoneSlug)
		return err
	})
}

// FullUpdate downloads every zone, then regenerates every feed.
func (s *Service) FullUpdate(ctx context.Context) (download, feeds BatchResult) {
	start := s.clock.Now()
	defer func() {
		s.metrics.BatchDuration.WithLabelValues("full_update").Observe(s.clock.Since(start).Seconds())
	}()
	download = s.DownloadAll(ctx)
	feeds = s.GenerateAllFeeds(ctx)
	return download, feeds
}

// GenerateIndex writes the landing page listing every center and zone and
// returns its location.
func (s *Service) GenerateIndex(ctx context.Context) (string, error) {
	centers := s.registry.Centers()
	index := make([]feed.IndexCenter, 0, len(centers))
	for _, c := range centers {
		ic := feed.IndexCenter{Slug: c.Slug, Name: c.Name, Zones: make([]feed.IndexZone, 0, len(c.Zones))}
		for _, z := range c.Zones {
			ic.Zones = append(ic.Zones, feed.IndexZone{
				Slug:       z.ZoneSlug,
				Name:       z.ZoneName,
				FeedURL:    s.builder.FeedURL(c.Slug, z.ZoneSlug),
				PreviewURL: s.builder.PreviewURL(c.Slug, z.ZoneSlug),
			})
		}
		index = append(index, ic)
	}

	page, err := s.builder.IndexHTML(index)
	if err != nil {
		return "", fmt.Errorf("generate index: %w", err)
	}
	if err := s.feeds.Write(ctx, feed.IndexKey, page); err != nil {
		return "", fmt.Errorf("write index: %w", err)
	}
	loc := s.feeds.Location(feed.IndexKey)
	s.logger.Info("generated index", "centers", len(index), "path", loc)
	return loc, nil
}

// CheckReadiness reports whether the feeds backend can be reached.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if _, err := s.feeds.Exists(ctx, readinessKey); err != nil {
		return fmt.Errorf("feeds backend: %w", err)
	}
	return nil
}

// runBatch applies fn to every configured zone with bounded concurrency.
// Failures are collected, logged and sorted by zone; they never stop the batch.
func (s *Service) runBatch(ctx context.Context, operation, runID string, fn func(context.Context, zones.Zone) error) BatchResult {
	start := s.clock.Now()
	all := s.registry.AllZones()
	result := BatchResult{Total: len(all)}
	s.logger.Info("batch started", "operation", operation, "run_id", runID, "zones", len(all), "workers", s.opts.Workers)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.opts.Workers)
	for _, z := range all {
		g.Go(func() error {
			err := ctx.Err()
			if err == nil {
				err = fn(ctx, z)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, Failure{CenterSlug: z.CenterSlug, ZoneSlug: z.ZoneSlug, Err: err})
				s.logger.Error("batch item failed", "operation", operation, "run_id", runID,
					"center", z.CenterSlug, "zone", z.ZoneSlug, "error", err)
				return nil
			}
			result.Succeeded++
			return nil
		})
	}
	_ = g.Wait() // items never return errors

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].String() < result.Failures[j].String()
	})

	elapsed := s.clock.Since(start)
	s.metrics.BatchDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	s.logger.Info("batch complete", "operation", operation, "run_id", runID,
		"succeeded", result.Succeeded, "failed", result.Failed, "total", result.Total,
		"duration", elapsed.Round(time.Millisecond))
	return result
}
