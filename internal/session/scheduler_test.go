// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package session_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-id/sentra/internal/session"
	"github.com/sentra-id/sentra/internal/session/token"
)

// decode parses a forged token for scheduler tests.
func decode(t *testing.T, subject string, exp time.Time) *token.Token {
	t.Helper()
	tok, err := token.Decode(forge(t, subject, exp))
	require.NoError(t, err)
	return tok
}

/*
TestArm_DeadTokenExpiresSynchronously verifies an already-dead token runs
the callback inline, with no timer involved.
*/
func TestArm_DeadTokenExpiresSynchronously(t *testing.T) {
	scheduler := session.NewScheduler(10 * time.Second)

	var fired atomic.Bool
	scheduler.Arm(decode(t, "u", time.Now().Add(-time.Minute)), func() {
		fired.Store(true)
	})

	assert.True(t, fired.Load())
}

/*
TestArm_FiresAheadOfExpiry verifies the one-shot fires within the token's
lifetime, lead-adjusted.
*/
func TestArm_FiresAheadOfExpiry(t *testing.T) {
	scheduler := session.NewScheduler(50 * time.Millisecond)

	fired := make(chan struct{})
	scheduler.Arm(decode(t, "u", time.Now().Add(200*time.Millisecond)), func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expiry callback never fired")
	}
}

/*
TestArm_ReplacesPreviousTimer verifies cancel-then-replace: re-arming must
orphan the earlier callback entirely.
*/
func TestArm_ReplacesPreviousTimer(t *testing.T) {
	scheduler := session.NewScheduler(0)

	var firstFired atomic.Bool
	scheduler.Arm(decode(t, "u", time.Now().Add(time.Second)), func() {
		firstFired.Store(true)
	})

	secondFired := make(chan struct{})
	scheduler.Arm(decode(t, "u", time.Now().Add(2*time.Second)), func() {
		close(secondFired)
	})

	select {
	case <-secondFired:
	case <-time.After(4 * time.Second):
		t.Fatal("replacement callback never fired")
	}

	assert.False(t, firstFired.Load(), "replaced timer must not fire")
}

/*
TestCancel_StopsOutstandingTimer verifies cancellation, including calling
Cancel twice and with nothing armed.
*/
func TestCancel_StopsOutstandingTimer(t *testing.T) {
	scheduler := session.NewScheduler(0)

	var fired atomic.Bool
	scheduler.Arm(decode(t, "u", time.Now().Add(500*time.Millisecond)), func() {
		fired.Store(true)
	})

	scheduler.Cancel()
	scheduler.Cancel() // idempotent

	// Past the cancelled timer's latest possible deadline.
	time.Sleep(2 * time.Second)
	assert.False(t, fired.Load())
}

/*
TestLead reports the configured skew allowance.
*/
func TestLead(t *testing.T) {
	assert.Equal(t, 10*time.Second, session.NewScheduler(10*time.Second).Lead())
}
