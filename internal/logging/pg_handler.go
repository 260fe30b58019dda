package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/raftaar/raftaar-backend/internal/models"
)

const batchSize = 50

// PGHandler is an slog.Handler that batches ERROR+ logs to PostgreSQL.
type PGHandler struct {
	write  func([]models.SystemLog) error
	mu     sync.Mutex
	buffer []models.SystemLog
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func NewPGHandler(db *gorm.DB) *PGHandler {
	return newPGHandler(func(batch []models.SystemLog) error {
		return db.CreateInBatches(batch, batchSize).Error
	}, 5*time.Second)
}

func newPGHandler(write func([]models.SystemLog) error, interval time.Duration) *PGHandler {
	h := &PGHandler{
		write:  write,
		buffer: make([]models.SystemLog, 0, batchSize),
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go h.flushLoop()
	return h
}

func (h *PGHandler) flushLoop() {
	for {
		select {
		case <-h.ticker.C:
			h.flush()
		case <-h.done:
			h.flush()
			return
		}
	}
}

func (h *PGHandler) flush() {
	h.mu.Lock()
	if len(h.buffer) == 0 {
		h.mu.Unlock()
		return
	}
	batch := h.buffer
	h.buffer = make([]models.SystemLog, 0, batchSize)
	h.mu.Unlock()

	if err := h.write(batch); err != nil {
		// Warn stays below this handler's level, so this cannot recurse.
		slog.Warn("failed to flush system logs to DB", "error", err.Error(), "count", len(batch))
	}
}

// Stop flushes what is buffered and ends the background loop.
func (h *PGHandler) Stop() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}

// Enabled only handles ERROR and above.
func (h *PGHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *PGHandler) Handle(_ context.Context, record slog.Record) error {
	h.enqueue(buildEntry(record, nil))
	return nil
}

func (h *PGHandler) enqueue(entry models.SystemLog) {
	h.mu.Lock()
	h.buffer = append(h.buffer, entry)
	needFlush := len(h.buffer) >= batchSize
	h.mu.Unlock()

	if needFlush {
		go h.flush()
	}
}

func (h *PGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &boundPGHandler{parent: h, attrs: attrs}
}

func (h *PGHandler) WithGroup(string) slog.Handler {
	return h
}

// boundPGHandler carries attributes added with slog.Logger.With.
type boundPGHandler struct {
	parent *PGHandler
	attrs  []slog.Attr
}

func (b *boundPGHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return b.parent.Enabled(ctx, level)
}

func (b *boundPGHandler) Handle(_ context.Context, record slog.Record) error {
	b.parent.enqueue(buildEntry(record, b.attrs))
	return nil
}

func (b *boundPGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(b.attrs)+len(attrs))
	merged = append(merged, b.attrs...)
	merged = append(merged, attrs...)
	return &boundPGHandler{parent: b.parent, attrs: merged}
}

func (b *boundPGHandler) WithGroup(string) slog.Handler { return b }

func buildEntry(record slog.Record, bound []slog.Attr) models.SystemLog {
	entry := models.SystemLog{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]interface{})
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case "request_id":
			entry.RequestID = a.Value.String()
		case "actor_id":
			entry.ActorID = a.Value.String()
		case "actor_kind":
			entry.ActorKind = models.ActorKind(a.Value.String())
		case "channel_id":
			entry.ChannelID = a.Value.String()
		case "action":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		case "latency_ms":
			switch v := a.Value.Any().(type) {
			case float64:
				entry.LatencyMs = int(math.Round(v))
			case int64:
				entry.LatencyMs = int(v)
			}
		default:
			extra[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range bound {
		apply(a)
	}
	record.Attrs(apply)

	entry.Extra = datatypes.JSON("{}")
	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}
	return entry
}
