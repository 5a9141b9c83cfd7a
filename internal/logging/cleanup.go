package logging

import (
	"context"
	"log/slog"
	"time"
)

// LogPruner deletes log rows older than a cutoff.
type LogPruner interface {
	DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cleanup removes system logs older than retention. It is run by the
// scheduler.
func Cleanup(ctx context.Context, pruner LogPruner, retention time.Duration) error {
	cutoff := time.Now().Add(-retention)
	deleted, err := pruner.DeleteLogsBefore(ctx, cutoff)
	if err != nil {
		slog.Error("log cleanup failed", "error", err)
		return err
	}
	if deleted > 0 {
		slog.Info("log cleanup completed", "deleted", deleted)
	}
	return nil
}
