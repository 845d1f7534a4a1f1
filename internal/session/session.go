// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

/*
Package session implements the stateful core of the session lifecycle:
the ambient "is someone logged in, and with what token" fact, the dual-store
propagation that backs it, and the deferred expiry check that tears it down.

Lifecycle:

	Unauthenticated → Authenticated(token) → Unauthenticated

A session is created on a successful identity exchange or on startup restore
of a live durable token; it is destroyed by explicit logout, by detected
expiry, or on sight of a malformed token where an authenticated state was
otherwise assumed.

Concurrency: exactly one Session exists per running gateway. It is shared,
mutable, single-writer state — only [Manager] mutates it — with many readers.
*/
package session

import "time"

// Status is the session's lifecycle state.
type Status string

const (
	// StatusUnauthenticated means no live session exists.
	StatusUnauthenticated Status = "unauthenticated"

	// StatusAuthenticated means a structurally valid, live token is held.
	StatusAuthenticated Status = "authenticated"
)

// Snapshot is a point-in-time, read-only view of the session.
//
// Liveness is re-evaluated when the snapshot is taken, never cached: a
// snapshot of an expired-but-not-yet-torn-down session already reads
// Unauthenticated.
type Snapshot struct {
	Status    Status    `json:"status"`
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Authenticated reports whether the snapshot holds a live session.
func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated
}
