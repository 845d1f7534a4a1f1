// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

/*
Package store persists the session token in two independently-failing stores
and keeps them mutually consistent.

The two halves:

  - Durable store: Redis, survives gateway restarts. Source of truth for the
    session restore at startup.
  - HTTP-visible store: the session cookie attached to the response, the only
    thing the request-gating layer can observe.

There is no transaction across the pair. The durable store is written first;
the cookie is a best-effort projection, and every consumer of the projection
fails closed on absence or malformation rather than assume consistency.

Partial failure of either half never fails the caller's login or logout:
losing the cookie degrades route-gating (user bounced to login), losing the
durable copy degrades persistence-across-restart. Neither should abort the
session the user is actively using. Inconsistency is logged and reported via
[DualStore.LastReport] for the diagnostics surface.
*/
package store

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sentra-id/sentra/internal/platform/constants"
)

// ErrAbsent is returned by reads when no value is stored under the key.
var ErrAbsent = errors.New("store: no value")

// DurableStore is the contract for the restart-surviving half of the pair.
//
// # Why an interface?
//
// Production uses Redis; tests use an in-memory map. The dual-write logic
// is identical either way and should be testable without a server.
type DurableStore interface {
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves the value under key, or [ErrAbsent].
	Get(ctx context.Context, key string) (string, error)

	// Delete removes the value under key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// WriteReport describes how far a dual write got. Partial-failure operations
// report the furthest step reached, not a single pass/fail bit.
type WriteReport struct {
	// DurableOK is true when the durable store accepted the token.
	DurableOK bool `json:"durable_ok"`
	// CookieOK is true when the HTTP-visible copy was attached post-write.
	CookieOK bool `json:"cookie_ok"`
	// Truncated is true when the cookie only fit as a deliberately broken copy.
	Truncated bool `json:"truncated"`
	// Consistent is true when both halves hold the same usable token.
	Consistent bool `json:"consistent"`
}

// DualStore coordinates the durable store and the session cookie.
type DualStore struct {
	durable DurableStore
	log     *slog.Logger

	mu   sync.Mutex
	last WriteReport
}

// NewDualStore constructs a [DualStore] over the given durable half.
func NewDualStore(durable DurableStore, log *slog.Logger) *DualStore {
	return &DualStore{durable: durable, log: log}
}

// Write persists the token to both stores, durable half first.
//
// # Ordering
//
// The durable write is sequenced before the cookie write. There is no
// guarantee about the two halves becoming consistent with each other beyond
// "within this call"; the route guard fails closed on any gap.
//
// Write never fails the caller: the report says how far it got.
func (s *DualStore) Write(ctx context.Context, writer http.ResponseWriter, raw string, ttl time.Duration) WriteReport {
	report := WriteReport{}

	// ── 1. Durable store (source of truth) ────────────────────────────────
	if err := s.durable.Set(ctx, constants.SessionTokenKey, raw, ttl); err != nil {
		s.log.ErrorContext(ctx, "session_durable_write_failed", slog.Any("error", err))
	} else {
		report.DurableOK = true
	}

	// ── 2. HTTP-visible projection ────────────────────────────────────────
	cookie := sessionCookie(raw, ttl)
	if len(cookie.String()) > constants.MaxCookieBytes {
		// Degrade, don't crash: store a deliberately broken copy. A truncated
		// token is never structurally valid, so the route guard will treat
		// the session as absent — the safe failure direction.
		cookie.Value = truncateValue(raw, len(cookie.String())-len(raw))
		report.Truncated = true
		s.log.WarnContext(ctx, "session_cookie_oversized",
			slog.Int("token_bytes", len(raw)),
			slog.Int("limit", constants.MaxCookieBytes),
			slog.String("effect", "gate will treat session as absent"),
		)
	}
	http.SetCookie(writer, cookie)

	// ── 3. Post-write verification ────────────────────────────────────────
	report.CookieOK = cookieWasSet(writer)
	report.Consistent = report.DurableOK && report.CookieOK && !report.Truncated

	if !report.Consistent {
		// Diagnosable inconsistency signal, not an error: login proceeds
		// using whichever store succeeded.
		s.log.WarnContext(ctx, "session_store_inconsistent",
			slog.Bool("durable_ok", report.DurableOK),
			slog.Bool("cookie_ok", report.CookieOK),
			slog.Bool("truncated", report.Truncated),
		)
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	return report
}

// Clear removes the token from both stores.
//
// The cookie is cleared with a max-age in the past, never merely an empty
// value: an empty-but-present cookie is observably different from absent.
func (s *DualStore) Clear(ctx context.Context, writer http.ResponseWriter) {
	s.ClearDurable(ctx)

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionTokenKey,
		Value:    "",
		Path:     constants.SessionCookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.mu.Lock()
	s.last = WriteReport{}
	s.mu.Unlock()
}

// ClearDurable removes only the durable half. Used when the session dies
// outside a request (timer-driven expiry) and no response is in flight to
// carry a cookie header; the stale cookie fails closed at the gate anyway.
func (s *DualStore) ClearDurable(ctx context.Context) {
	if err := s.durable.Delete(ctx, constants.SessionTokenKey); err != nil {
		s.log.ErrorContext(ctx, "session_durable_clear_failed", slog.Any("error", err))
	}
}

// Read returns the raw token from the durable store only. This is the
// startup-restore path; per-request reads go through the cookie at the gate.
func (s *DualStore) Read(ctx context.Context) (string, error) {
	return s.durable.Get(ctx, constants.SessionTokenKey)
}

// LastReport returns the report of the most recent [DualStore.Write].
// A zero report means no write has happened since the last clear.
func (s *DualStore) LastReport() WriteReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// # Cookie Construction

// sessionCookie builds the HTTP-visible copy with an explicit max-age capped
// at [constants.MaxSessionCookieAge] regardless of the token's own expiry.
func sessionCookie(raw string, ttl time.Duration) *http.Cookie {
	maxAge := ttl
	if maxAge > constants.MaxSessionCookieAge {
		maxAge = constants.MaxSessionCookieAge
	}

	return &http.Cookie{
		Name:     constants.SessionTokenKey,
		Value:    raw,
		Path:     constants.SessionCookiePath,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// truncateValue cuts raw down to the cookie size budget AND down to at most
// two dot-separated segments. The second cut is the guarantee the first one
// cannot make: a three-segment prefix of a token could still decode as
// structurally valid, and a truncated copy must never be mistaken for a
// live session.
func truncateValue(raw string, overhead int) string {
	budget := constants.MaxCookieBytes - overhead
	if budget < 0 {
		budget = 0
	}
	if budget < len(raw) {
		raw = raw[:budget]
	}

	if i := nthDot(raw, 2); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

// nthDot returns the index of the n-th '.' in s, or -1.
func nthDot(s string, n int) int {
	seen := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			seen++
			if seen == n {
				return i
			}
		}
	}
	return -1
}

// cookieWasSet verifies the response headers carry a session cookie.
func cookieWasSet(writer http.ResponseWriter) bool {
	for _, header := range writer.Header().Values("Set-Cookie") {
		if strings.HasPrefix(header, constants.SessionTokenKey+"=") {
			return true
		}
	}
	return false
}
