package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RawForecastPayload is the envelope fetched from the provider and stored verbatim.
// Forecast is kept as raw JSON so unknown provider fields survive storage and migration.
type RawForecastPayload struct {
	RequestTime       string          `json:"request_time"`
	RequestDurationMs int64           `json:"request_duration_ms"`
	Forecast          json.RawMessage `json:"forecast,omitempty"`
	Error             string          `json:"error,omitempty"`
}

// DateLayout is the fixed-width date used in storage keys, titles and entry ids.
const DateLayout = "2006-01-02"

// timestampLayouts are tried in order after the trailing "Z" marker is stripped.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	DateLayout,
}

// ParseTimestamp parses a provider timestamp. A trailing "Z" marks UTC; values with
// an explicit offset keep that offset so their calendar date matches the provider's.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	bare := strings.TrimSuffix(s, "Z")
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, bare, time.UTC); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, ErrCorruptData)
}

// FormatTimestamp renders t the way request_time is written: UTC, microseconds, trailing "Z".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000") + "Z"
}

// RequestedAt parses RequestTime.
func (p RawForecastPayload) RequestedAt() (time.Time, error) {
	t, err := ParseTimestamp(p.RequestTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("request_time: %w", err)
	}
	return t, nil
}

// HasForecast reports whether the payload carries a non-empty forecast body.
// A missing body, null, false, zero, or an empty object, list or string all
// count as absent.
func (p RawForecastPayload) HasForecast() bool {
	body := bytes.TrimSpace(p.Forecast)
	if len(body) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		// Not valid JSON; Extract reports it as corrupt.
		return true
	}
	switch x := v.(type) {
	case nil:
		return false
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	}
	return true
}

// Failed reports whether the payload records a fetch error.
func (p RawForecastPayload) Failed() bool {
	return p.Error != ""
}

// EffectiveDate is the date a payload is filed under: the forecast's published_time
// when present and parseable, otherwise the request time.
func (p RawForecastPayload) EffectiveDate() (time.Time, error) {
	if p.HasForecast() {
		var head struct {
			PublishedTime *string `json:"published_time"`
		}
		if err := json.Unmarshal(p.Forecast, &head); err == nil && head.PublishedTime != nil && *head.PublishedTime != "" {
			if t, err := ParseTimestamp(*head.PublishedTime); err == nil {
				return t, nil
			}
		}
	}
	return p.RequestedAt()
}

// MarshalPayload encodes a payload as pretty-printed JSON with two-space indentation.
// Encoding the same payload twice yields identical bytes.
func MarshalPayload(p RawForecastPayload) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}

// DecodePayload parses a stored payload file.
func DecodePayload(data []byte) (RawForecastPayload, error) {
	var p RawForecastPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return RawForecastPayload{}, fmt.Errorf("decode payload: %w: %w", ErrCorruptData, err)
	}
	return p, nil
}
