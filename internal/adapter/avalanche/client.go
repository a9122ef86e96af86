// Package avalanche fetches zone forecasts from the avalanche.org public API.
package avalanche

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/couchcryptid/avyrss/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
)

// maxBodyBytes bounds how much of a forecast response is read.
const maxBodyBytes = 8 << 20

var (
	errCircuitOpen = errors.New("circuit breaker open")
	errStatus      = errors.New("unexpected status code")
)

// Client retrieves a single zone's current forecast product.
type Client struct {
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a forecast API client. Requests time out after timeout.
func NewClient(baseURL string, timeout time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "avalanche-api",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			},
		}),
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch requests the forecast product for one zone. The payload is always
// populated with request_time and request_duration_ms. On failure it carries
// the error text and no forecast, and the error is returned as well.
func (c *Client) Fetch(ctx context.Context, centerID, zoneID string) (domain.RawForecastPayload, error) {
	start := c.clock.Now()
	body, err := c.get(ctx, centerID, zoneID)
	elapsed := c.clock.Since(start)

	c.metrics.FetchDuration.Observe(elapsed.Seconds())
	payload := domain.RawForecastPayload{
		RequestTime:       domain.FormatTimestamp(start),
		RequestDurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		payload.Error = err.Error()
		return payload, fmt.Errorf("fetch forecast center=%s zone=%s: %w: %w", centerID, zoneID, domain.ErrBackendUnavailable, err)
	}

	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	payload.Forecast = body
	return payload, nil
}

func (c *Client) get(ctx context.Context, centerID, zoneID string) (json.RawMessage, error) {
	params := url.Values{
		"type":      {"forecast"},
		"center_id": {centerID},
		"zone_id":   {zoneID},
	}
	fullURL := c.baseURL + "/product?" + params.Encode()

	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: %d", errStatus, resp.StatusCode)
		}
		if !json.Valid(data) {
			return nil, errors.New("response is not valid JSON")
		}
		return json.RawMessage(data), nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	body, ok := result.(json.RawMessage)
	if !ok {
		return nil, errors.New("unexpected result type from circuit breaker")
	}
	return body, nil
}
