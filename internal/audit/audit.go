// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

/*
Package audit records session lifecycle events for operator review.

# Architecture

The gateway treats the audit trail as best-effort observability, never as a
dependency of the session lifecycle itself. A failed insert is logged and
dropped; login and logout proceed regardless.
*/
package audit

import (
	"context"
	"time"
)

// Event is a single recorded lifecycle transition.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Filter narrows a listing query. Zero values mean "no constraint".
type Filter struct {
	// Kind restricts to a single event kind, e.g. "session.login".
	Kind string
	// Subject restricts to a single principal.
	Subject string
	// Since excludes events older than the given instant.
	Since time.Time
}

// Store defines the persistence contract for audit events.
//
// Implementations live alongside this interface; the recorder (the consumer)
// defines what it needs.
type Store interface {
	// Append persists one event.
	Append(ctx context.Context, event *Event) error

	// List returns a filtered, paginated slice of events newest first,
	// with the total count for pagination.
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Event, int, error)

	// DeleteBefore removes events older than cutoff, returning the number
	// of rows removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
