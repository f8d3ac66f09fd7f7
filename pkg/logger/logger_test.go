package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]AggregatedLogEntry
}

func (p *memPublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *memPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

func TestLoggerWritesTypedFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf).With(String("component", "landscape"))

	l.Info("plotted",
		Float64("risk", 0.42),
		Int("history", 3),
		Bool("novel", true),
		Duration("took", 1500*time.Millisecond),
		Strings("tags", []string{"a", "b"}),
	)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "plotted", line["message"])
	assert.Equal(t, "landscape", line["component"])
	assert.Equal(t, 0.42, line["risk"])
	assert.Equal(t, float64(3), line["history"])
	assert.Equal(t, true, line["novel"])
	assert.Equal(t, float64(1500), line["took"])
	assert.Equal(t, "a, b", line["tags"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestNopLoggerDiscards(t *testing.T) {
	l := NewNop()
	l.Error("ignored", Error(errors.New("boom")))
	l.Debug("ignored")
}

func TestCollectorAggregatesErrors(t *testing.T) {
	pub := &memPublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "glasslens.logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("scoring api unreachable", String("endpoint", "/predict"))
	}
	l.Error("frame encode failed")
	l.Warn("not collected")

	require.Equal(t, 2, l.collector.Pending())
	l.RemoveCollector()

	require.Equal(t, 1, pub.count())
	assert.Equal(t, "glasslens.logs", pub.topics[0])
	batch := pub.batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "scoring api unreachable", batch[0].Message)
	assert.Equal(t, 3, batch[0].Count)
	assert.Equal(t, 1, batch[1].Count)
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &memPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")

	assert.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, c.Pending())
}
