package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-benefit-cost/internal/config"
	"github.com/couchcryptid/storm-benefit-cost/internal/engine"
)

// Writer publishes result rows to a Kafka topic, one message per scenario.
// It implements pipeline.ResultLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured results topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaResultsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// message is the published payload: one result row plus its run context.
type message struct {
	RunID        string    `json:"run_id"`
	EventID      string    `json:"event_id"`
	ComputedAt   time.Time `json:"computed_at"`
	BaseYear     int       `json:"base_year"`
	FutureYear   int       `json:"future_year"`
	Aggregation  string    `json:"aggregation"`
	Accumulation string    `json:"accumulation"`
	Measures     []string  `json:"measures"`
	engine.Row
}

// LoadResults publishes every row of rs in a single WriteMessages call,
// keyed by run_id/scenario.
func (w *Writer) LoadResults(ctx context.Context, rs engine.ResultSet) error {
	rows := rs.Rows()
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rs, rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish results: %w", err)
	}
	w.logger.Debug("results published", "run_id", rs.RunID, "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

// Close flushes pending messages and closes the writer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one result row into a Kafka message.
func serializeToMessage(rs engine.ResultSet, row engine.Row) (kafkago.Message, error) {
	data, err := json.Marshal(message{
		RunID:        rs.RunID,
		EventID:      rs.EventID,
		ComputedAt:   rs.ComputedAt,
		BaseYear:     rs.BaseYear,
		FutureYear:   rs.FutureYear,
		Aggregation:  rs.Aggregation,
		Accumulation: string(rs.Accumulation),
		Measures:     rs.Measures,
		Row:          row,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize result row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rs.RunID + "/" + string(row.Scenario)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(rs.RunID)},
			{Key: "scenario", Value: []byte(row.Scenario)},
			{Key: "status", Value: []byte(row.Status)},
			{Key: "computed_at", Value: []byte(rs.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
