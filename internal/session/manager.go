// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sentra-id/sentra/internal/session/store"
	"github.com/sentra-id/sentra/internal/session/token"
)

// # Lifecycle Events

// Audit event names emitted by the manager. Recording is best-effort: an
// audit failure never affects the session operation it describes.
const (
	EventLogin     = "session.login"
	EventLogout    = "session.logout"
	EventExpired   = "session.expired"
	EventRestored  = "session.restored"
	EventIntegrity = "session.integrity_discard"
)

// AuditSink receives session lifecycle events.
//
// Defined here (not in the audit package) so the manager does not depend on
// the storage layer that implements it.
type AuditSink interface {
	Record(ctx context.Context, event, subject string)
}

// ErrNotLive is returned by Login when handed a token that is already dead.
var ErrNotLive = errors.New("session: token is not live")

// Manager is the single writer of the ambient session.
//
// It drives the dual store and the expiry scheduler; everything else reads
// the session through [Manager.Status] or through the route guard's
// per-request token check.
type Manager struct {
	store *store.DualStore
	sched *Scheduler
	log   *slog.Logger
	audit AuditSink // optional

	mu      sync.RWMutex
	current *token.Token
}

// NewManager constructs the session manager. audit may be nil.
func NewManager(dual *store.DualStore, sched *Scheduler, log *slog.Logger, audit AuditSink) *Manager {
	return &Manager{store: dual, sched: sched, log: log, audit: audit}
}

// Login establishes the session from a freshly issued token.
//
// # Ordering
//
// Store, then arm, then mark authenticated — storage must happen before the
// session is advertised as active, so a concurrent reader never observes
// "Authenticated" with no retrievable token.
func (m *Manager) Login(ctx context.Context, writer http.ResponseWriter, raw string, ttl time.Duration) error {
	tok, err := token.Decode(raw)
	if err != nil {
		return err
	}
	if !tok.IsLive(time.Now()) {
		return ErrNotLive
	}

	report := m.store.Write(ctx, writer, raw, ttl)

	m.sched.Arm(tok, func() { m.expire(tok) })

	m.mu.Lock()
	m.current = tok
	m.mu.Unlock()

	m.record(ctx, EventLogin, tok.Subject())
	m.log.InfoContext(ctx, "session_established",
		slog.String("subject", tok.Subject()),
		slog.String("token", token.Mask(raw)),
		slog.Bool("stores_consistent", report.Consistent),
	)
	return nil
}

// Logout tears the session down: clear both stores, cancel the scheduler,
// mark unauthenticated. The HTTP layer follows up with a full navigation
// back to the entry point, which discards every in-memory "am I logged in"
// cache by virtue of the client starting over.
func (m *Manager) Logout(ctx context.Context, writer http.ResponseWriter) {
	m.mu.Lock()
	subject := ""
	if m.current != nil {
		subject = m.current.Subject()
	}
	m.current = nil
	m.mu.Unlock()

	m.store.Clear(ctx, writer)
	m.sched.Cancel()

	m.record(ctx, EventLogout, subject)
	m.log.InfoContext(ctx, "session_cleared", slog.String("subject", subject))
}

// Restore rebuilds the session from the durable store at startup.
//
// Absent ⇒ unauthenticated. Malformed or dead ⇒ the durable copy is
// discarded and the gateway starts unauthenticated — an integrity defect is
// resolved by forcing re-login, never surfaced as a user-facing error.
func (m *Manager) Restore(ctx context.Context) {
	raw, err := m.store.Read(ctx)
	if errors.Is(err, store.ErrAbsent) {
		return
	}
	if err != nil {
		// Durable store unreachable: fail closed and start unauthenticated.
		m.log.WarnContext(ctx, "session_restore_read_failed", slog.Any("error", err))
		return
	}

	tok, decodeErr := token.Decode(raw)
	if decodeErr != nil || !tok.IsLive(time.Now()) {
		m.store.ClearDurable(ctx)
		m.record(ctx, EventIntegrity, "")
		m.log.WarnContext(ctx, "session_restore_discarded",
			slog.Bool("malformed", decodeErr != nil),
			slog.String("token", token.Mask(raw)),
		)
		return
	}

	// Re-create the expiry check from the token's actual remaining lifetime
	// so a restart doesn't lose it.
	m.sched.Arm(tok, func() { m.expire(tok) })

	m.mu.Lock()
	m.current = tok
	m.mu.Unlock()

	m.record(ctx, EventRestored, tok.Subject())
	m.log.InfoContext(ctx, "session_restored",
		slog.String("subject", tok.Subject()),
		slog.Duration("remaining", tok.Remaining(time.Now())),
	)
}

// Status reports the session state, re-checking liveness at read time.
func (m *Manager) Status() Snapshot {
	m.mu.RLock()
	current := m.current
	m.mu.RUnlock()

	if current == nil || !current.IsLive(time.Now()) {
		return Snapshot{Status: StatusUnauthenticated}
	}

	expiresAt, _ := current.ExpiresAt()
	return Snapshot{
		Status:    StatusAuthenticated,
		Subject:   current.Subject(),
		ExpiresAt: expiresAt,
	}
}

// StoreReport returns the dual-store consistency report from the last write.
func (m *Manager) StoreReport() store.WriteReport {
	return m.store.LastReport()
}

// expire is the scheduler callback. It re-validates that the armed token is
// still the session's token — a newer login replaces the session and must
// not be torn down by the old token's timer.
func (m *Manager) expire(armed *token.Token) {
	m.mu.Lock()
	if m.current == nil || m.current.Raw() != armed.Raw() {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.mu.Unlock()

	// No request is in flight here, so only the durable half can be cleared;
	// the stale cookie fails closed at the gate.
	ctx := context.Background()
	m.store.ClearDurable(ctx)

	m.record(ctx, EventExpired, armed.Subject())
	m.log.Info("session_expired", slog.String("subject", armed.Subject()))
}

// record forwards a lifecycle event to the audit sink, if one is wired.
func (m *Manager) record(ctx context.Context, event, subject string) {
	if m.audit == nil {
		return
	}
	m.audit.Record(ctx, event, subject)
}
