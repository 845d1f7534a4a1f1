// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/sentra-id/sentra/pkg/uuid"
)

// appendTimeout bounds a single insert so a slow database cannot stall the
// session lifecycle that triggered the event.
const appendTimeout = 2 * time.Second

// Recorder writes lifecycle events to a [Store], best effort.
//
// It satisfies the session manager's audit sink contract: a failed insert is
// logged and swallowed, never propagated.
type Recorder struct {
	store Store
	log   *slog.Logger
}

// NewRecorder constructs a [Recorder].
func NewRecorder(store Store, log *slog.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record persists one lifecycle event.
//
// The insert runs under its own deadline, detached from the request context
// so a cancelled request still leaves a trail.
func (recorder *Recorder) Record(ctx context.Context, kind, subject string) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), appendTimeout)
	defer cancel()

	event := &Event{
		ID:      uuid.New(),
		Kind:    kind,
		Subject: subject,
	}

	if err := recorder.store.Append(detached, event); err != nil {
		recorder.log.Warn("audit append failed",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}
