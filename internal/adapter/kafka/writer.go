package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/avyrss/internal/config"
	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/couchcryptid/avyrss/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Notifier publishes forecast-saved events to a Kafka topic.
// It implements pipeline.Notifier.
type Notifier struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured events topic.
func NewNotifier(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Notifier{writer: w, metrics: metrics, logger: logger}
}

// ForecastSaved publishes a single event.
func (n *Notifier) ForecastSaved(ctx context.Context, event domain.ForecastSavedEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		n.metrics.NotificationsPublished.WithLabelValues("error").Inc()
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		n.metrics.NotificationsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("publish forecast event %s: %w", event.Key(), err)
	}
	n.metrics.NotificationsPublished.WithLabelValues("success").Inc()
	n.logger.Debug("published forecast event", "center", event.CenterSlug, "zone", event.ZoneSlug, "date", event.Date)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a ForecastSavedEvent into a Kafka message.
func serializeToMessage(event domain.ForecastSavedEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte("forecast_saved")},
			{Key: "run_id", Value: []byte(event.RunID)},
			{Key: "saved_at", Value: []byte(event.SavedAt.Format(time.RFC3339))},
		},
	}, nil
}
