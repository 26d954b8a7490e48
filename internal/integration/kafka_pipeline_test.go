//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/adapter/file"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/adapter/kafka"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/dedup"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/observability"
	"github.com/couchcryptid/dxcluster-spot-etl/internal/pipeline"
)

const (
	testSinkTopic = "test-dx-spots"
	capturePath   = "../pipeline/testdata/capture.txt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("dxspot-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	}))
}

type sinkMessage struct {
	Key     string
	Headers map[string]string
	Event   struct {
		ID       string          `json:"id"`
		Category string          `json:"category"`
		Dialect  string          `json:"dialect"`
		Source   string          `json:"source"`
		Seq      int64           `json:"seq"`
		Raw      string          `json:"raw"`
		Spot     json.RawMessage `json:"spot"`
	}
}

func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	out := sinkMessage{Key: string(msg.Key), Headers: make(map[string]string, len(msg.Headers))}
	for _, h := range msg.Headers {
		out.Headers[h.Key] = string(h.Value)
	}
	require.NoError(t, json.Unmarshal(msg.Value, &out.Event), "unmarshal sink message")
	return out
}

// TestCaptureToKafkaAndSQLite replays a captured session through the full
// pipeline into Kafka and SQLite and checks both sinks agree.
func TestCaptureToKafkaAndSQLite(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	reader, err := file.Open(capturePath, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })

	writer := kafka.NewWriter([]string{broker}, testSinkTopic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "spots.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	loader := pipeline.NewMultiLoader(
		pipeline.NamedLoader{Name: "kafka", Loader: writer},
		pipeline.NamedLoader{Name: "sqlite", Loader: store},
	)
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewTransformer(nil, discardLogger()), loader,
		discardLogger(), metrics, 8, pipeline.WithDedup(dedup.New(100)))

	// The file source ends the run on its own.
	require.NoError(t, p.Run(ctx))
	assert.True(t, p.Ready())

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	const want = 17
	byCategory := map[string]int{}
	seen := map[string]bool{}
	for range want {
		m := readSink(ctx, t, consumer)

		assert.Equal(t, m.Event.ID, m.Key)
		assert.False(t, seen[m.Key], "duplicate key %s", m.Key)
		seen[m.Key] = true

		assert.Equal(t, m.Event.Category, m.Headers["category"])
		assert.Equal(t, m.Event.Dialect, m.Headers["dialect"])
		assert.NotEmpty(t, m.Headers["originator"])
		_, err := time.Parse(time.RFC3339, m.Headers["processed_at"])
		assert.NoError(t, err, "processed_at should be valid RFC3339")
		assert.Equal(t, "file:capture.txt", m.Event.Source)
		assert.True(t, strings.HasPrefix(m.Key, strings.ToLower(m.Event.Category)+"-"))

		byCategory[m.Event.Category]++
	}

	assert.Equal(t, map[string]int{"DX": 7, "RBN": 2, "WWV": 2, "WCY": 1, "WX": 2, "ToAll": 2, "ToLocal": 1}, byCategory)

	counts, err := store.CountByCategory(ctx)
	require.NoError(t, err)
	total := 0
	for category, n := range counts {
		assert.Equal(t, byCategory[string(category)], n, "sqlite count for %s", category)
		total += n
	}
	assert.Equal(t, want, total)

	// Nothing beyond the deduplicated spots reaches the topic.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no further messages on sink topic")
}

// TestKafkaWriterRoundTrip publishes one parsed spot and reads it back.
func TestKafkaWriterRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	line := "DX de KM3T-#:    14074.0  JA1XYZ       FT8  -12 dB  FK68    CQ      2101Z"
	out, err := pipeline.NewTransformer(nil, discardLogger()).Transform(ctx, domain.RawLine{
		Text:       line,
		Source:     "test",
		Seq:        1,
		ReceivedAt: time.Date(2024, 3, 1, 21, 1, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	writer := kafka.NewWriter([]string{broker}, testSinkTopic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.OutputEvent{out}))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-roundtrip-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	m := readSink(ctx, t, consumer)
	assert.Equal(t, string(out.Key), m.Key)
	assert.Equal(t, "RBN", m.Headers["category"])
	assert.Equal(t, "rbn", m.Headers["dialect"])
	assert.Equal(t, "KM3T-#", m.Headers["originator"])
	assert.Equal(t, line, m.Event.Raw)

	var spot struct {
		Spotted string `json:"spotted"`
		SNR     int    `json:"snr_db"`
		Mode    string `json:"mode"`
	}
	require.NoError(t, json.Unmarshal(m.Event.Spot, &spot))
	assert.Equal(t, "JA1XYZ", spot.Spotted)
	assert.Equal(t, -12, spot.SNR)
	assert.Equal(t, "FT8", spot.Mode)
}
