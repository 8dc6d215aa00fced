package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flight-timetable-etl/internal/config"
	"github.com/couchcryptid/flight-timetable-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes reconciled timetables to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured timetable topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes one message per timetable row in a single
// WriteMessages call. An empty timetable is a no-op.
func (w *Writer) LoadBatch(ctx context.Context, tt domain.Timetable) error {
	if len(tt.Rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(tt.Rows))
	for i := range tt.Rows {
		msg, err := serializeToMessage(tt, tt.Rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish timetable %s: %w", tt.RunID, err)
	}
	w.logger.Debug("timetable published", "run_id", tt.RunID, "rows", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a row into a Kafka message keyed by the row's
// strongest identity key so updates for one leg land on one partition.
func serializeToMessage(tt domain.Timetable, row domain.FlightRow) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize flight row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(row)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(tt.RunID)},
			{Key: "status", Value: []byte(row.DisplayStatus)},
			{Key: "source", Value: []byte(row.Source)},
			{Key: "generated_at", Value: []byte(tt.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}

func messageKey(row domain.FlightRow) string {
	k := domain.KeysOf(row)
	for _, key := range []string{k.Primary, k.Registration, k.TimeRoute, k.Content} {
		if key != "" {
			return key
		}
	}
	return ""
}
