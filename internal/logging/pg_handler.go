package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/talkah/talkah-backend/internal/models"
)

const pgBatchSize = 50

// LogWriter persists a batch of log rows.
type LogWriter interface {
	WriteLogs(ctx context.Context, logs []models.SystemLog) error
}

type pgBuffer struct {
	writer LogWriter
	mu     sync.Mutex
	buffer []models.SystemLog
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// PGHandler is an slog.Handler that batches ERROR+ records into the
// system_logs table. Handlers derived with WithAttrs share one buffer.
type PGHandler struct {
	buf   *pgBuffer
	attrs []slog.Attr
}

func NewPGHandler(writer LogWriter, interval time.Duration) *PGHandler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	buf := &pgBuffer{
		writer: writer,
		buffer: make([]models.SystemLog, 0, pgBatchSize),
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go buf.flushLoop()
	return &PGHandler{buf: buf}
}

func (b *pgBuffer) flushLoop() {
	for {
		select {
		case <-b.ticker.C:
			b.flush()
		case <-b.done:
			b.flush()
			return
		}
	}
}

func (b *pgBuffer) flush() {
	b.mu.Lock()
	if len(b.buffer) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.buffer
	b.buffer = make([]models.SystemLog, 0, pgBatchSize)
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.writer.WriteLogs(ctx, batch); err != nil {
		// Warn stays below this handler's level, so it cannot recurse.
		slog.Warn("failed to flush system logs", "error", err, "count", len(batch))
	}
}

// Stop flushes what is buffered and ends the flush loop.
func (h *PGHandler) Stop() {
	h.buf.once.Do(func() {
		h.buf.ticker.Stop()
		close(h.buf.done)
	})
}

// Flush writes the buffer synchronously.
func (h *PGHandler) Flush() {
	h.buf.flush()
}

func (h *PGHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *PGHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]interface{})
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case "request_id":
			entry.RequestID = a.Value.String()
		case "user_id":
			s := a.Value.String()
			entry.UserID = &s
		case "action":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		case "latency_ms":
			switch a.Value.Kind() {
			case slog.KindFloat64:
				entry.LatencyMs = int(math.Round(a.Value.Float64()))
			case slog.KindInt64:
				entry.LatencyMs = int(a.Value.Int64())
			}
		default:
			extra[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	h.buf.mu.Lock()
	h.buf.buffer = append(h.buf.buffer, entry)
	needFlush := len(h.buf.buffer) >= pgBatchSize
	h.buf.mu.Unlock()

	if needFlush {
		go h.buf.flush()
	}
	return nil
}

func (h *PGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &PGHandler{buf: h.buf, attrs: merged}
}

// WithGroup is ignored; groups flatten into extra.
func (h *PGHandler) WithGroup(string) slog.Handler {
	return h
}
