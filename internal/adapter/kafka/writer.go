package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/biodiversity-map/internal/config"
	"github.com/couchcryptid/biodiversity-map/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes city snapshots to a Kafka topic.
// It implements orchestrator.SnapshotPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		// One message per load; don't hold the request open for a batch to fill.
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSnapshot serializes and writes a single snapshot message.
func (w *Writer) PublishSnapshot(ctx context.Context, snap domain.CitySnapshot) error {
	msg, err := serializeToMessage(snap)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write snapshot %s: %w", snap.ID, err)
	}
	w.logger.Debug("snapshot published",
		"snapshot_id", snap.ID,
		"city", snap.City.Query,
		"observations", snap.Fetched,
	)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a CitySnapshot into a Kafka message keyed by
// snapshot id.
func serializeToMessage(snap domain.CitySnapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize city snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(snap.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "city", Value: []byte(snap.City.Query)},
			{Key: "observations", Value: []byte(strconv.Itoa(snap.Fetched))},
			{Key: "loaded_at", Value: []byte(snap.LoadedAt.Format(time.RFC3339))},
		},
	}, nil
}
