package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/couchcryptid/avyrss/internal/observability"
)

const payloadExt = ".json"

// StoredForecast is a payload together with the location it was read from.
type StoredForecast struct {
	Path    string
	Payload domain.RawForecastPayload
}

// ForecastStore files raw payloads under
// {center}/{zone}/{YYYY}/{YYYY-MM-DD}.json, keyed by the forecast's own
// publication date. Saving the same date again overwrites the earlier file.
type ForecastStore struct {
	backend Backend
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewForecastStore creates a store over the given backend.
func NewForecastStore(backend Backend, logger *slog.Logger, metrics *observability.Metrics) *ForecastStore {
	return &ForecastStore{backend: backend, logger: logger, metrics: metrics}
}

// Backend returns the underlying backend.
func (s *ForecastStore) Backend() Backend { return s.backend }

// Key returns the location a forecast for date is stored at.
func (s *ForecastStore) Key(centerSlug, zoneSlug string, date time.Time) string {
	return s.backend.Location(payloadKey(centerSlug, zoneSlug, date))
}

func payloadKey(centerSlug, zoneSlug string, date time.Time) string {
	return joinKey(centerSlug, zoneSlug, date.Format("2006"), date.Format(domain.DateLayout)+payloadExt)
}

// Save writes the full payload, request metadata included, under its effective
// date and returns the location written.
func (s *ForecastStore) Save(ctx context.Context, centerSlug, zoneSlug string, p domain.RawForecastPayload) (string, error) {
	date, err := p.EffectiveDate()
	if err != nil {
		return "", fmt.Errorf("save %s/%s: %w", centerSlug, zoneSlug, err)
	}
	data, err := domain.MarshalPayload(p)
	if err != nil {
		return "", fmt.Errorf("save %s/%s: %w", centerSlug, zoneSlug, err)
	}

	key := payloadKey(centerSlug, zoneSlug, date)
	if err := s.backend.MakeDirs(ctx, joinKey(centerSlug, zoneSlug, date.Format("2006"))); err != nil {
		return "", fmt.Errorf("save %s/%s: %w", centerSlug, zoneSlug, err)
	}
	if err := s.backend.Write(ctx, key, data); err != nil {
		return "", fmt.Errorf("save %s/%s: %w", centerSlug, zoneSlug, err)
	}

	s.metrics.ForecastsSaved.Inc()
	loc := s.backend.Location(key)
	s.logger.Info("saved forecast", "center", centerSlug, "zone", zoneSlug, "path", loc)
	return loc, nil
}

// Recent returns up to limit stored payloads for a zone, newest first. Keys are
// fixed-width dates, so descending key order is descending date order. A zone
// with no stored data yields an empty list. Corrupt files among the newest
// limit are logged and skipped, so fewer than limit may be returned.
func (s *ForecastStore) Recent(ctx context.Context, centerSlug, zoneSlug string, limit int) ([]StoredForecast, error) {
	out := []StoredForecast{}
	if limit <= 0 {
		return out, nil
	}

	keys, err := s.backend.List(ctx, joinKey(centerSlug, zoneSlug))
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", centerSlug, zoneSlug, err)
	}
	keys = filterExt(keys, payloadExt)
	if len(keys) == 0 {
		s.logger.Warn("no stored forecasts", "center", centerSlug, "zone", zoneSlug)
		return out, nil
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > limit {
		keys = keys[:limit]
	}

	for _, key := range keys {
		data, err := s.backend.Read(ctx, key)
		if errors.Is(err, domain.ErrBackendUnavailable) {
			return nil, fmt.Errorf("recent %s/%s: %w", centerSlug, zoneSlug, err)
		}
		if err != nil {
			s.logger.Warn("skipping unreadable forecast", "path", s.backend.Location(key), "error", err)
			continue
		}
		p, err := domain.DecodePayload(data)
		if err != nil {
			s.metrics.CorruptSkipped.Inc()
			s.logger.Warn("skipping corrupt forecast", "path", s.backend.Location(key), "error", err)
			continue
		}
		out = append(out, StoredForecast{Path: s.backend.Location(key), Payload: p})
	}
	return out, nil
}

func filterExt(keys []string, ext string) []string {
	out := keys[:0:0]
	for _, k := range keys {
		if strings.HasSuffix(k, ext) {
			out = append(out, k)
		}
	}
	return out
}
