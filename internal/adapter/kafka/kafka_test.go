package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/couchcryptid/avyrss/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSavedAt = time.Date(2024, 1, 5, 14, 30, 0, 0, time.UTC)

func testEvent() domain.ForecastSavedEvent {
	return domain.ForecastSavedEvent{
		ID:         "evt-1",
		RunID:      "run-1",
		CenterSlug: "nwac",
		ZoneSlug:   "snoqualmie-pass",
		Date:       "2024-01-05",
		Path:       "/data/forecasts/nwac/snoqualmie-pass/2024/2024-01-05.json",
		SavedAt:    testSavedAt,
	}
}

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func testNotifier(w messageWriter) (*Notifier, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return &Notifier{writer: w, metrics: m, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, m
}

func TestSerializeToMessage(t *testing.T) {
	msg, err := serializeToMessage(testEvent())
	require.NoError(t, err)

	assert.Equal(t, []byte("nwac/snoqualmie-pass"), msg.Key)

	var decoded domain.ForecastSavedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, testEvent(), decoded)

	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("forecast_saved"), msg.Headers[0].Value)
	assert.Equal(t, "run_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[1].Value)
	assert.Equal(t, "saved_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(testSavedAt.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestNotifier_ForecastSaved(t *testing.T) {
	w := &recordingWriter{}
	n, m := testNotifier(w)

	require.NoError(t, n.ForecastSaved(context.Background(), testEvent()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("nwac/snoqualmie-pass"), w.msgs[0].Key)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsPublished.WithLabelValues("success")), 0)

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestNotifier_ForecastSaved_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	n, m := testNotifier(w)

	err := n.ForecastSaved(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nwac/snoqualmie-pass")
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsPublished.WithLabelValues("error")), 0)
}
