// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-id/sentra/internal/platform/constants"
	"github.com/sentra-id/sentra/internal/session/store"
	"github.com/sentra-id/sentra/internal/session/token"
)

// memoryDurable is an in-memory [store.DurableStore] for tests.
type memoryDurable struct {
	mu      sync.Mutex
	values  map[string]string
	failSet bool
}

func newMemoryDurable() *memoryDurable {
	return &memoryDurable{values: make(map[string]string)}
}

func (m *memoryDurable) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errors.New("durable store down")
	}
	m.values[key] = value
	return nil
}

func (m *memoryDurable) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", store.ErrAbsent
	}
	return value, nil
}

func (m *memoryDurable) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestWrite_BothStores verifies the happy path: the token lands in the durable
store and in the response cookie, and the report says consistent.
*/
func TestWrite_BothStores(t *testing.T) {
	durable := newMemoryDurable()
	dual := store.NewDualStore(durable, discardLogger())
	recorder := httptest.NewRecorder()

	report := dual.Write(context.Background(), recorder, "header.payload.signature", time.Hour)

	assert.True(t, report.DurableOK)
	assert.True(t, report.CookieOK)
	assert.False(t, report.Truncated)
	assert.True(t, report.Consistent)

	stored, err := dual.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "header.payload.signature", stored)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, constants.SessionTokenKey, cookies[0].Name)
	assert.Equal(t, "header.payload.signature", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

/*
TestWrite_CookieMaxAgeCapped verifies the cookie lifetime never exceeds the
cap, whatever TTL the provider issued.
*/
func TestWrite_CookieMaxAgeCapped(t *testing.T) {
	dual := store.NewDualStore(newMemoryDurable(), discardLogger())
	recorder := httptest.NewRecorder()

	dual.Write(context.Background(), recorder, "a.b.c", 365*24*time.Hour)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, int(constants.MaxSessionCookieAge/time.Second), cookies[0].MaxAge)
}

/*
TestWrite_DurableFailure verifies a durable-store outage degrades to a
cookie-only session with an inconsistent report, not a failure.
*/
func TestWrite_DurableFailure(t *testing.T) {
	durable := newMemoryDurable()
	durable.failSet = true
	dual := store.NewDualStore(durable, discardLogger())
	recorder := httptest.NewRecorder()

	report := dual.Write(context.Background(), recorder, "a.b.c", time.Hour)

	assert.False(t, report.DurableOK)
	assert.True(t, report.CookieOK)
	assert.False(t, report.Consistent)

	// The cookie half still carries the token.
	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "a.b.c", cookies[0].Value)
}

/*
TestWrite_OversizedTokenTruncates verifies that a token too large for the
cookie is stored as a deliberately broken copy that can never decode as a
structurally valid token.
*/
func TestWrite_OversizedTokenTruncates(t *testing.T) {
	durable := newMemoryDurable()
	dual := store.NewDualStore(durable, discardLogger())
	recorder := httptest.NewRecorder()

	// Three well-formed segments, far beyond the cookie budget.
	huge := strings.Repeat("a", 3000) + "." + strings.Repeat("b", 3000) + "." + strings.Repeat("c", 3000)

	report := dual.Write(context.Background(), recorder, huge, time.Hour)

	assert.True(t, report.Truncated)
	assert.False(t, report.Consistent)
	// The durable half keeps the full token.
	assert.True(t, report.DurableOK)
	stored, err := dual.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, huge, stored)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	truncated := cookies[0].Value
	assert.Less(t, len(truncated), len(huge))

	// The invariant that matters: the stored fragment must never pass the
	// structural decode.
	_, err = token.Decode(truncated)
	assert.ErrorIs(t, err, token.ErrMalformed)
}

/*
TestClear_RemovesBothHalves verifies clearing empties the durable store and
expires the cookie rather than leaving an empty-valued one.
*/
func TestClear_RemovesBothHalves(t *testing.T) {
	durable := newMemoryDurable()
	dual := store.NewDualStore(durable, discardLogger())

	writeRecorder := httptest.NewRecorder()
	dual.Write(context.Background(), writeRecorder, "a.b.c", time.Hour)

	clearRecorder := httptest.NewRecorder()
	dual.Clear(context.Background(), clearRecorder)

	_, err := dual.Read(context.Background())
	assert.ErrorIs(t, err, store.ErrAbsent)

	cookies := clearRecorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)

	// The report resets with the session.
	assert.Equal(t, store.WriteReport{}, dual.LastReport())
}

/*
TestClearDurable_LeavesCookieAlone covers the timer-driven expiry path where
no response writer exists.
*/
func TestClearDurable_LeavesCookieAlone(t *testing.T) {
	durable := newMemoryDurable()
	dual := store.NewDualStore(durable, discardLogger())

	recorder := httptest.NewRecorder()
	dual.Write(context.Background(), recorder, "a.b.c", time.Hour)

	dual.ClearDurable(context.Background())

	_, err := dual.Read(context.Background())
	assert.ErrorIs(t, err, store.ErrAbsent)
}

/*
TestLastReport verifies the report survives until the next write or clear.
*/
func TestLastReport(t *testing.T) {
	dual := store.NewDualStore(newMemoryDurable(), discardLogger())
	assert.Equal(t, store.WriteReport{}, dual.LastReport())

	recorder := httptest.NewRecorder()
	written := dual.Write(context.Background(), recorder, "a.b.c", time.Hour)
	assert.Equal(t, written, dual.LastReport())
}
