//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-benefit-cost/internal/adapter/kafka"
	"github.com/couchcryptid/storm-benefit-cost/internal/adapter/sqlite"
	"github.com/couchcryptid/storm-benefit-cost/internal/config"
	"github.com/couchcryptid/storm-benefit-cost/internal/definition"
	"github.com/couchcryptid/storm-benefit-cost/internal/engine"
	"github.com/couchcryptid/storm-benefit-cost/internal/impact"
	"github.com/couchcryptid/storm-benefit-cost/internal/observability"
	"github.com/couchcryptid/storm-benefit-cost/internal/pipeline"
	"github.com/couchcryptid/storm-benefit-cost/internal/scenario"
)

const testResultsTopic = "test-results"

// publishedRow holds a deserialized message read from the results topic.
type publishedRow struct {
	Payload struct {
		RunID string `json:"run_id"`
		engine.Row
	}
	Key     string
	Headers map[string]string
}

func readRow(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedRow {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from results topic")

	pr := publishedRow{Key: string(msg.Key), Headers: make(map[string]string, len(msg.Headers))}
	for _, h := range msg.Headers {
		pr.Headers[h.Key] = string(h.Value)
	}
	require.NoError(t, json.Unmarshal(msg.Value, &pr.Payload), "unmarshal result message")
	return pr
}

func loadCoastal(t *testing.T) *definition.Definition {
	t.Helper()
	def, err := definition.Load(filepath.Join("..", "definition", "testdata", "coastal.yaml"))
	require.NoError(t, err)
	return def
}

// TestPipelinePublishesResults runs the coastal analysis through the full
// pipeline with Kafka and SQLite sinks and reads every row back from both.
func TestPipelinePublishesResults(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testResultsTopic)

	cfg := &config.Config{
		KafkaBrokers:      []string{broker},
		KafkaResultsTopic: testResultsTopic,
	}

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	metrics := observability.NewMetricsForTesting()
	eng := engine.New(scenario.Default(), impact.NewCalculator(2), discardLogger(), metrics, nil)
	p := pipeline.New(eng, []pipeline.Sink{
		{Name: "kafka", Loader: writer},
		{Name: "sqlite", Loader: store},
	}, discardLogger(), metrics, 3, 2)

	rs, err := p.Process(ctx, loadCoastal(t))
	require.NoError(t, err)
	assert.Greater(t, testutil.ToFloat64(metrics.LastDelivery), 0.0)
	require.Len(t, rs.Order, 5)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testResultsTopic,
		GroupID:     fmt.Sprintf("test-results-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := map[string]publishedRow{}
	for len(received) < len(rs.Order) {
		pr := readRow(ctx, t, consumer)
		received[pr.Headers["scenario"]] = pr
	}

	for _, id := range rs.Order {
		pr, ok := received[string(id)]
		require.True(t, ok, "missing message for %s", id)
		assert.Equal(t, rs.RunID+"/"+string(id), pr.Key)
		assert.Equal(t, rs.RunID, pr.Headers["run_id"])
		assert.Equal(t, engine.StatusOK, pr.Headers["status"])
		_, err := time.Parse(time.RFC3339, pr.Headers["computed_at"])
		assert.NoError(t, err, "computed_at should be valid RFC3339")

		assert.Equal(t, rs.RunID, pr.Payload.RunID)
		assert.InDelta(t, rs.Outcomes[id].Result.Benefit, pr.Payload.Benefit, 1e-3)
		assert.InDelta(t, rs.Outcomes[id].Result.BenefitCostRatio, pr.Payload.BenefitCostRatio, 1e-9)
	}

	stored, err := store.LoadResultSet(ctx, rs.RunID)
	require.NoError(t, err)
	assert.Equal(t, rs.Order, stored.Order)
}

// TestPipelineSinkUnavailable verifies that an unreachable broker fails
// delivery after the configured attempts while the SQLite sink still
// receives the run.
func TestPipelineSinkUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	cfg := &config.Config{
		KafkaBrokers:      []string{"127.0.0.1:1"},
		KafkaResultsTopic: testResultsTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	metrics := observability.NewMetricsForTesting()
	eng := engine.New(scenario.Default(), impact.NewCalculator(1), discardLogger(), metrics, nil)
	p := pipeline.New(eng, []pipeline.Sink{
		{Name: "kafka", Loader: writer},
		{Name: "sqlite", Loader: store},
	}, discardLogger(), metrics, 1, 1)

	rs, err := p.Process(ctx, loadCoastal(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink kafka")
	require.NotEmpty(t, rs.RunID)
	assert.Zero(t, testutil.ToFloat64(metrics.LastDelivery))

	require.NoError(t, store.Ping(ctx))

	stored, err := store.LoadResultSet(ctx, rs.RunID)
	require.NoError(t, err)
	assert.Len(t, stored.Order, 5)
}
