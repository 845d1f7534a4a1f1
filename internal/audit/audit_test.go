// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-id/sentra/internal/audit"
	"github.com/sentra-id/sentra/pkg/pagination"
)

// # Fake Store

// fakeStore is an in-memory [audit.Store] with scriptable failures.
type fakeStore struct {
	mu sync.Mutex

	appendErr error
	appended  []*audit.Event
	// appendCtxErr captures ctx.Err() as seen by Append.
	appendCtxErr error

	listEvents []*audit.Event
	listTotal  int
	listErr    error
	lastFilter audit.Filter
	lastLimit  int
	lastOffset int

	deleteErr error
	deleted   int64
	cutoffs   []time.Time
}

func (f *fakeStore) Append(ctx context.Context, event *audit.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendCtxErr = ctx.Err()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, event)
	return nil
}

func (f *fakeStore) List(_ context.Context, filter audit.Filter, limit, offset int) ([]*audit.Event, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	f.lastLimit = limit
	f.lastOffset = offset
	return f.listEvents, f.listTotal, f.listErr
}

func (f *fakeStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleted, f.deleteErr
}

func (f *fakeStore) pruneCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// # Recorder

/*
TestRecorder_PopulatesEvent verifies the recorder assigns an identifier and
carries the event fields through to the store.
*/
func TestRecorder_PopulatesEvent(t *testing.T) {
	store := &fakeStore{}
	recorder := audit.NewRecorder(store, discardLogger())

	recorder.Record(context.Background(), "login", "user-1")

	require.Len(t, store.appended, 1)
	event := store.appended[0]
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "login", event.Kind)
	assert.Equal(t, "user-1", event.Subject)
}

/*
TestRecorder_SwallowsStoreFailure verifies a failing insert never escapes
the recorder: the lifecycle operation that triggered it must not notice.
*/
func TestRecorder_SwallowsStoreFailure(t *testing.T) {
	store := &fakeStore{appendErr: errors.New("connection refused")}
	recorder := audit.NewRecorder(store, discardLogger())

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), "login", "user-1")
	})

	// The store recovers; subsequent events still land.
	store.mu.Lock()
	store.appendErr = nil
	store.mu.Unlock()
	recorder.Record(context.Background(), "logout", "user-1")
	require.Len(t, store.appended, 1)
	assert.Equal(t, "logout", store.appended[0].Kind)
}

/*
TestRecorder_DetachesFromRequestContext verifies a cancelled request still
leaves a trail: the insert runs under its own deadline.
*/
func TestRecorder_DetachesFromRequestContext(t *testing.T) {
	store := &fakeStore{}
	recorder := audit.NewRecorder(store, discardLogger())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	recorder.Record(cancelled, "expired", "user-1")

	require.Len(t, store.appended, 1)
	assert.NoError(t, store.appendCtxErr)
}

// # Listing Handler

func listRequest(t *testing.T, store *fakeStore, target string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	audit.NewHandler(store).Routes().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	return recorder
}

/*
TestList_MapsQueryOntoStore verifies filter and pagination parameters reach
the store correctly translated.
*/
func TestList_MapsQueryOntoStore(t *testing.T) {
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		listEvents: []*audit.Event{
			{ID: "e1", Kind: "login", Subject: "user-1", OccurredAt: since.Add(time.Hour)},
		},
		listTotal: 25,
	}

	recorder := listRequest(t, store,
		"/?page=2&limit=10&kind=login&subject=user-1&since=2026-08-01T00:00:00Z")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "login", store.lastFilter.Kind)
	assert.Equal(t, "user-1", store.lastFilter.Subject)
	assert.True(t, store.lastFilter.Since.Equal(since))
	assert.Equal(t, 10, store.lastLimit)
	assert.Equal(t, 10, store.lastOffset)

	var envelope struct {
		Data []*audit.Event  `json:"data"`
		Meta pagination.Meta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "e1", envelope.Data[0].ID)
	assert.Equal(t, pagination.Meta{Page: 2, Limit: 10, Total: 25, TotalPages: 3}, envelope.Meta)
}

/*
TestList_UnparsableSinceIsIgnored verifies a bad since value degrades to an
unfiltered listing instead of an error.
*/
func TestList_UnparsableSinceIsIgnored(t *testing.T) {
	store := &fakeStore{}

	recorder := listRequest(t, store, "/?since=yesterday")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, store.lastFilter.Since.IsZero())
}

/*
TestList_EmptyPageIsAnArray verifies an empty result serializes as [] and
never as null.
*/
func TestList_EmptyPageIsAnArray(t *testing.T) {
	recorder := listRequest(t, &fakeStore{}, "/")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"data":[]`)
}

/*
TestList_StoreFailure verifies a store error surfaces as a server error
without leaking the cause.
*/
func TestList_StoreFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("pg: connection reset")}

	recorder := listRequest(t, store, "/")

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "connection reset")
}

// # Retention

/*
TestPruner_CutsAtRetentionHorizon verifies the delete cutoff trails now by
exactly the retention window.
*/
func TestPruner_CutsAtRetentionHorizon(t *testing.T) {
	store := &fakeStore{deleted: 3}
	pruner := audit.NewPruner(store, discardLogger(), 24*time.Hour)

	before := time.Now().Add(-24 * time.Hour)
	pruner.Prune(context.Background())
	after := time.Now().Add(-24 * time.Hour)

	require.Len(t, store.cutoffs, 1)
	cutoff := store.cutoffs[0]
	assert.False(t, cutoff.Before(before))
	assert.False(t, cutoff.After(after))
}

/*
TestPruner_RunStopsOnContextCancel verifies the periodic loop prunes on its
interval and exits when the context is done.
*/
func TestPruner_RunStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	pruner := audit.NewPruner(store, discardLogger(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pruner.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return store.pruneCount() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pruner kept running after cancellation")
	}
}

/*
TestPruner_SurvivesStoreFailure verifies a failed prune is absorbed and the
next run still happens.
*/
func TestPruner_SurvivesStoreFailure(t *testing.T) {
	store := &fakeStore{deleteErr: errors.New("pg: timeout")}
	pruner := audit.NewPruner(store, discardLogger(), time.Hour)

	assert.NotPanics(t, func() {
		pruner.Prune(context.Background())
		pruner.Prune(context.Background())
	})
	assert.Equal(t, 2, store.pruneCount())
}
