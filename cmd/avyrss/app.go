package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/avyrss/internal/adapter/avalanche"
	kafkaadapter "github.com/couchcryptid/avyrss/internal/adapter/kafka"
	"github.com/couchcryptid/avyrss/internal/config"
	"github.com/couchcryptid/avyrss/internal/feed"
	"github.com/couchcryptid/avyrss/internal/observability"
	"github.com/couchcryptid/avyrss/internal/pipeline"
	"github.com/couchcryptid/avyrss/internal/storage"
	"github.com/couchcryptid/avyrss/internal/zones"
	"github.com/jonboulle/clockwork"
)

// feedCacheEntries bounds the serve command's read cache.
const feedCacheEntries = 512

// app holds the wired components shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	feeds    storage.Backend
	service  *pipeline.Service
	notifier *kafkaadapter.Notifier
}

func storageOptions(cfg *config.Config, logger *slog.Logger) storage.Options {
	return storage.Options{
		Timeout:    cfg.StorageTimeout,
		S3Endpoint: cfg.S3Endpoint,
		S3Region:   cfg.S3Region,
		Logger:     logger,
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*app, error) {
	registry, err := zones.Load(cfg.ZonesConfig)
	if err != nil {
		return nil, err
	}

	opts := storageOptions(cfg, logger)
	forecasts, err := storage.Open(ctx, cfg.ForecastsURI, opts)
	if err != nil {
		return nil, fmt.Errorf("open forecasts store: %w", err)
	}
	feeds, err := storage.Open(ctx, cfg.FeedsURI, opts)
	if err != nil {
		return nil, fmt.Errorf("open feeds store: %w", err)
	}

	clock := clockwork.NewRealClock()
	a := &app{cfg: cfg, logger: logger, metrics: metrics, feeds: feeds}

	var notifier pipeline.Notifier
	if cfg.KafkaEnabled {
		a.notifier = kafkaadapter.NewNotifier(cfg, metrics, logger)
		notifier = a.notifier
		logger.Info("forecast notifications enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	a.service = pipeline.New(
		registry,
		avalanche.NewClient(cfg.AvalancheAPIURL, cfg.FetchTimeout, clock, metrics, logger),
		storage.NewForecastStore(forecasts, logger, metrics),
		feeds,
		feed.NewBuilder(cfg.BaseURL, cfg.IconBaseURL, clock),
		notifier,
		clock,
		logger,
		metrics,
		pipeline.Options{Workers: cfg.Workers, FeedLimit: cfg.FeedLimit},
	)
	logger.Debug("storage opened", "forecasts", forecasts.URI(), "feeds", feeds.URI())
	return a, nil
}

func (a *app) Close() {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Close(); err != nil {
		a.logger.Error("kafka notifier close error", "error", err)
	}
}
