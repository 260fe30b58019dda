package logging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raftaar/raftaar-backend/internal/models"
)

type captured struct {
	mu   sync.Mutex
	logs []models.SystemLog
}

func (c *captured) write(batch []models.SystemLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, batch...)
	return nil
}

func (c *captured) snapshot() []models.SystemLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.SystemLog(nil), c.logs...)
}

func TestPGHandler_MapsActorAttributes(t *testing.T) {
	sink := &captured{}
	h := newPGHandler(sink.write, time.Hour)
	logger := slog.New(h).With("request_id", "req-1")

	logger.Info("ignored below error")
	logger.Error("location update failed",
		"actor_id", "a-1",
		"actor_kind", "captain",
		"channel_id", "ch-9",
		"error", "boom",
		"latency_ms", 12.6,
		"event", "update-location-captain",
	)
	h.Stop()

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	entry := sink.snapshot()[0]
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "a-1", entry.ActorID)
	assert.Equal(t, models.KindCaptain, entry.ActorKind)
	assert.Equal(t, "ch-9", entry.ChannelID)
	assert.Equal(t, "boom", entry.Error)
	assert.Equal(t, 13, entry.LatencyMs)

	var extra map[string]any
	require.NoError(t, json.Unmarshal(entry.Extra, &extra))
	assert.Equal(t, "update-location-captain", extra["event"])
}

func TestPGHandler_FlushesFullBatch(t *testing.T) {
	sink := &captured{}
	h := newPGHandler(sink.write, time.Hour)
	defer h.Stop()

	for i := 0; i < batchSize; i++ {
		h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "x", 0))
	}
	require.Eventually(t, func() bool { return len(sink.snapshot()) == batchSize }, time.Second, 5*time.Millisecond)
}

type countingHandler struct {
	mu    sync.Mutex
	count int
	min   slog.Level
	err   error
}

func (c *countingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= c.min }
func (c *countingHandler) Handle(context.Context, slog.Record) error {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	return c.err
}
func (c *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return c }
func (c *countingHandler) WithGroup(string) slog.Handler      { return c }

func TestMultiHandler_RespectsEachLevel(t *testing.T) {
	info := &countingHandler{min: slog.LevelInfo}
	errs := &countingHandler{min: slog.LevelError}
	logger := slog.New(NewMultiHandler(info, errs))

	logger.Debug("nobody")
	logger.Info("info only")
	logger.Error("both")

	assert.Equal(t, 2, info.count)
	assert.Equal(t, 1, errs.count)
}

func TestMultiHandler_FailingSinkDoesNotBlockOthers(t *testing.T) {
	broken := &countingHandler{min: slog.LevelInfo, err: errors.New("sink down")}
	healthy := &countingHandler{min: slog.LevelInfo}
	h := NewMultiHandler(broken, healthy)

	rec := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	err := h.Handle(context.Background(), rec)

	require.Error(t, err)
	assert.Equal(t, 1, broken.count)
	assert.Equal(t, 1, healthy.count)
}
