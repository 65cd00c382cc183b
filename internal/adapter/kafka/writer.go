package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/pm-density-service/internal/config"
	"github.com/couchcryptid/pm-density-service/internal/domain"
)

// Writer produces ingested readings to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes one message per reading in a single WriteMessages call.
// Messages are keyed by date so a day's readings land on one partition.
func (w *Writer) Publish(ctx context.Context, batch domain.IngestBatch) error {
	if len(batch.Readings) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch.Readings))
	for i := range batch.Readings {
		msg, err := serializeToMessage(batch, batch.Readings[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("published ingest batch", "source", batch.Source, "messages", len(msgs))
	return nil
}

// Close flushes pending messages and closes the writer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// readingMessage is the JSON value of a published reading. Density is null
// when the source cell was missing.
type readingMessage struct {
	Year    int      `json:"year"`
	Month   int      `json:"month"`
	Day     int      `json:"day"`
	Hour    int      `json:"hour"`
	Density *float64 `json:"density"`
}

// serializeToMessage marshals a reading into a Kafka message.
func serializeToMessage(batch domain.IngestBatch, r domain.Reading) (kafkago.Message, error) {
	value := readingMessage{Year: r.Year, Month: r.Month, Day: r.Day, Hour: r.Hour}
	if !math.IsNaN(r.Density) {
		d := r.Density
		value.Density = &d
	}
	data, err := json.Marshal(value)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.Date().String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(batch.Source)},
			{Key: "ingested_at", Value: []byte(batch.IngestedAt.Format(time.RFC3339))},
		},
	}, nil
}
