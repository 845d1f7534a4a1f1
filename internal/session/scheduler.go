// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package session

import (
	"sync"
	"time"

	"github.com/sentra-id/sentra/internal/session/token"
)

// Scheduler owns the single deferred expiry check for the ambient session.
//
// # Cancellation model
//
// The timer is the only cancellable unit of work in the subsystem. Re-arming
// always cancels-then-replaces, never stacks: at most one timer is ever
// outstanding. A generation counter makes a stale callback a no-op even if
// it was already in flight when the timer was replaced.
type Scheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64

	lead  time.Duration
	clock func() time.Time
}

// NewScheduler creates a [Scheduler] that fires lead ahead of token expiry.
// The lead absorbs clock skew against the token issuer; pass
// [constants.ExpiryLead] in production.
func NewScheduler(lead time.Duration) *Scheduler {
	return &Scheduler{lead: lead, clock: time.Now}
}

// Lead returns the skew allowance the scheduler fires ahead of expiry.
func (s *Scheduler) Lead() time.Duration { return s.lead }

// Arm schedules onExpire for the token's expiry.
//
// If the token is already dead, onExpire runs synchronously. Otherwise a
// single one-shot timer fires at remaining−lead (floored at zero) and
// re-validates liveness before calling onExpire — the token could have been
// replaced by a newer login in the meantime, and the caller's re-check is
// what makes that race harmless.
func (s *Scheduler) Arm(tok *token.Token, onExpire func()) {
	now := s.clock()
	remaining := tok.Remaining(now)

	s.mu.Lock()
	s.cancelLocked()

	if remaining <= 0 {
		s.mu.Unlock()
		onExpire()
		return
	}

	delay := remaining - s.lead
	if delay < 0 {
		delay = 0
	}

	generation := s.gen
	s.timer = time.AfterFunc(delay, func() {
		s.fire(generation, tok, onExpire)
	})
	s.mu.Unlock()
}

// Cancel unconditionally stops any outstanding timer. Idempotent.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.cancelLocked()
	s.mu.Unlock()
}

// cancelLocked stops the timer and bumps the generation so a concurrently
// firing callback recognizes itself as stale. Caller holds s.mu.
func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// fire is the timer callback: it re-checks that it is still the current
// generation and that the token really is at end of life before expiring.
func (s *Scheduler) fire(generation uint64, tok *token.Token, onExpire func()) {
	s.mu.Lock()
	if generation != s.gen {
		// Cancelled or re-armed after this callback was scheduled.
		s.mu.Unlock()
		return
	}

	now := s.clock()
	if remaining := tok.Remaining(now); remaining > s.lead {
		// Fired early (timer drift). Push the check out to the real horizon
		// instead of expiring a token that is still comfortably live.
		s.timer = time.AfterFunc(remaining-s.lead, func() {
			s.fire(generation, tok, onExpire)
		})
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	onExpire()
}
