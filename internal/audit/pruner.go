// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package audit

import (
	"context"
	"log/slog"
	"time"
)

// Pruner enforces the audit retention window by removing events older than
// the configured horizon. Like the [Recorder], it is best effort: a failed
// prune is logged and retried on the next run, never escalated.
type Pruner struct {
	store     Store
	log       *slog.Logger
	retention time.Duration
}

// NewPruner constructs a [Pruner] over the given store.
func NewPruner(store Store, log *slog.Logger, retention time.Duration) *Pruner {
	return &Pruner{store: store, log: log, retention: retention}
}

// Prune deletes every event older than the retention window, once.
func (pruner *Pruner) Prune(ctx context.Context) {
	cutoff := time.Now().Add(-pruner.retention)

	deleted, err := pruner.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		pruner.log.Warn("audit prune failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if deleted > 0 {
		pruner.log.Info("audit events pruned",
			slog.Int64("deleted", deleted),
			slog.Time("cutoff", cutoff),
		)
	}
}

// Run prunes immediately, then on every interval tick until ctx is done.
// Intended to run as a background goroutine for the process lifetime.
func (pruner *Pruner) Run(ctx context.Context, interval time.Duration) {
	pruner.Prune(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruner.Prune(ctx)
		}
	}
}
