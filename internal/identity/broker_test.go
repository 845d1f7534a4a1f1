// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package identity_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-id/sentra/internal/identity"
)

// # Fake Provider

// challengeCall captures one RespondToChallenge invocation.
type challengeCall struct {
	attributes map[string]string
}

// fakeProvider scripts provider behavior per exchange.
type fakeProvider struct {
	mu sync.Mutex

	authResult    *identity.AuthResult
	authChallenge *identity.Challenge
	authErr       error

	challengeResults []*identity.AuthResult
	challengeErrs    []error
	challengeCalls   []challengeCall

	resetErr        error
	confirmErr      error
	updateErr       error
	verificationErr error

	// block, when non-nil, holds InitiateAuth open until closed. entered
	// receives once the call is parked inside the provider.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeProvider) InitiateAuth(_ context.Context, _, _ string) (*identity.AuthResult, *identity.Challenge, error) {
	if f.block != nil {
		if f.entered != nil {
			f.entered <- struct{}{}
		}
		<-f.block
	}
	return f.authResult, f.authChallenge, f.authErr
}

func (f *fakeProvider) RespondToChallenge(_ context.Context, _, _ string, attributes map[string]string) (*identity.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := make(map[string]string, len(attributes))
	for k, v := range attributes {
		copied[k] = v
	}
	f.challengeCalls = append(f.challengeCalls, challengeCall{attributes: copied})

	call := len(f.challengeCalls) - 1
	var result *identity.AuthResult
	var err error
	if call < len(f.challengeResults) {
		result = f.challengeResults[call]
	}
	if call < len(f.challengeErrs) {
		err = f.challengeErrs[call]
	}
	return result, err
}

func (f *fakeProvider) RequestPasswordReset(_ context.Context, _ string) error { return f.resetErr }

func (f *fakeProvider) ConfirmPasswordReset(_ context.Context, _, _, _ string) error {
	return f.confirmErr
}

func (f *fakeProvider) UpdateAttribute(_ context.Context, _, _, _ string) error { return f.updateErr }

func (f *fakeProvider) RequestAttributeVerification(_ context.Context, _, _ string) error {
	return f.verificationErr
}

func newBroker(provider identity.Provider) *identity.Broker {
	return identity.NewBroker(provider, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func rejection(reason identity.Reason, detail string) *identity.ProviderError {
	return &identity.ProviderError{Reason: reason, Detail: detail}
}

// # Login

/*
TestLogin_Success verifies a straight credential exchange.
*/
func TestLogin_Success(t *testing.T) {
	provider := &fakeProvider{
		authResult: &identity.AuthResult{Token: "a.b.c", TTL: time.Hour},
	}

	outcome := newBroker(provider).Login(context.Background(), "user", "pw")

	assert.Equal(t, identity.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "a.b.c", outcome.Token)
	assert.Equal(t, time.Hour, outcome.TTL)
}

/*
TestLogin_ChallengeIsNotFailure verifies a rotation demand surfaces as a
challenge outcome carrying the handle, with no token.
*/
func TestLogin_ChallengeIsNotFailure(t *testing.T) {
	provider := &fakeProvider{
		authChallenge: &identity.Challenge{
			Kind:   identity.ChallengeNewPassword,
			Handle: "handle-123",
		},
	}

	outcome := newBroker(provider).Login(context.Background(), "user", "pw")

	assert.Equal(t, identity.OutcomeChallenge, outcome.Kind)
	require.NotNil(t, outcome.Challenge)
	assert.Equal(t, "handle-123", outcome.Challenge.Handle)
	assert.Empty(t, outcome.Token)
}

/*
TestLogin_RejectionCarriesReason verifies rejected exchanges keep their
normalized reason.
*/
func TestLogin_RejectionCarriesReason(t *testing.T) {
	provider := &fakeProvider{
		authErr: rejection(identity.ReasonNotAuthorized, "incorrect username or password"),
	}

	outcome := newBroker(provider).Login(context.Background(), "user", "pw")

	assert.Equal(t, identity.OutcomeRejected, outcome.Kind)
	assert.Equal(t, identity.ReasonNotAuthorized, outcome.Reason)
}

/*
TestLogin_TransportErrorDegradesToUnavailable verifies that a raw non-provider
error never leaks through the outcome.
*/
func TestLogin_TransportErrorDegradesToUnavailable(t *testing.T) {
	provider := &fakeProvider{
		authErr: errors.New("dial tcp: connection refused"),
	}

	outcome := newBroker(provider).Login(context.Background(), "user", "pw")

	assert.Equal(t, identity.OutcomeUnavailable, outcome.Kind)
	assert.NotContains(t, outcome.Detail, "dial tcp")
}

/*
TestLogin_ConcurrentSubmissionRejected verifies the re-entrancy gate: a
second exchange while one is in flight is rejected as busy, never queued.
*/
func TestLogin_ConcurrentSubmissionRejected(t *testing.T) {
	provider := &fakeProvider{
		authResult: &identity.AuthResult{Token: "a.b.c", TTL: time.Hour},
		block:      make(chan struct{}),
		entered:    make(chan struct{}, 1),
	}
	broker := newBroker(provider)

	firstDone := make(chan identity.Outcome, 1)
	go func() {
		firstDone <- broker.Login(context.Background(), "user", "pw")
	}()
	<-provider.entered

	// Second submission while the first is parked inside the provider.
	second := broker.Login(context.Background(), "user", "pw")
	assert.Equal(t, identity.OutcomeBusy, second.Kind)

	close(provider.block)
	first := <-firstDone
	assert.Equal(t, identity.OutcomeSuccess, first.Kind)

	// The slot frees up once the first exchange completes.
	provider.block = nil
	assert.Equal(t, identity.OutcomeSuccess, broker.Login(context.Background(), "user", "pw").Kind)
}

// # Credential Rotation

/*
TestCompleteRotation_RichPayloadFirst verifies the enriched submission is
attempted and succeeds without a second call.
*/
func TestCompleteRotation_RichPayloadFirst(t *testing.T) {
	provider := &fakeProvider{
		challengeResults: []*identity.AuthResult{{Token: "a.b.c", TTL: time.Hour}},
	}

	outcome := newBroker(provider).CompleteRotation(context.Background(), "user", "newpw", "handle", "me@example.com")

	assert.Equal(t, identity.OutcomeSuccess, outcome.Kind)
	require.Len(t, provider.challengeCalls, 1)
	assert.Equal(t, "me@example.com", provider.challengeCalls[0].attributes[identity.ChallengeAttrEmail])
}

/*
TestCompleteRotation_RetriesMinimalOnUnsupportedAttributes verifies the
specific fallback: attribute rejection triggers exactly one minimal retry.
*/
func TestCompleteRotation_RetriesMinimalOnUnsupportedAttributes(t *testing.T) {
	provider := &fakeProvider{
		challengeErrs: []error{
			rejection(identity.ReasonInvalidParameter, "attributes given cannot be updated"),
			nil,
		},
		challengeResults: []*identity.AuthResult{
			nil,
			{Token: "a.b.c", TTL: time.Hour},
		},
	}

	outcome := newBroker(provider).CompleteRotation(context.Background(), "user", "newpw", "handle", "me@example.com")

	assert.Equal(t, identity.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "a.b.c", outcome.Token)

	require.Len(t, provider.challengeCalls, 2)
	assert.Contains(t, provider.challengeCalls[0].attributes, identity.ChallengeAttrEmail)
	assert.NotContains(t, provider.challengeCalls[1].attributes, identity.ChallengeAttrEmail)
}

/*
TestCompleteRotation_NoRetryOnOtherRejections verifies the fallback is not a
blind retry: an ordinary rejection fails once.
*/
func TestCompleteRotation_NoRetryOnOtherRejections(t *testing.T) {
	provider := &fakeProvider{
		challengeErrs: []error{rejection(identity.ReasonNotAuthorized, "session expired")},
	}

	outcome := newBroker(provider).CompleteRotation(context.Background(), "user", "newpw", "handle", "me@example.com")

	assert.Equal(t, identity.OutcomeRejected, outcome.Kind)
	assert.Len(t, provider.challengeCalls, 1)
}

/*
TestCompleteRotation_AcceptedWithoutToken verifies the accepted-no-token path
resolves as success with an empty token.
*/
func TestCompleteRotation_AcceptedWithoutToken(t *testing.T) {
	provider := &fakeProvider{} // nil result, nil error

	outcome := newBroker(provider).CompleteRotation(context.Background(), "user", "newpw", "handle", "")

	assert.Equal(t, identity.OutcomeSuccess, outcome.Kind)
	assert.Empty(t, outcome.Token)
}

// # Credential Recovery

/*
TestRequestReset_UnknownIdentifierLooksLikeSuccess verifies enumeration
resistance: not-found and delivered are indistinguishable.
*/
func TestRequestReset_UnknownIdentifierLooksLikeSuccess(t *testing.T) {
	known := newBroker(&fakeProvider{}).RequestReset(context.Background(), "real@example.com")
	unknown := newBroker(&fakeProvider{
		resetErr: rejection(identity.ReasonNotFound, "user not found"),
	}).RequestReset(context.Background(), "fake@example.com")

	assert.Equal(t, known, unknown)
	assert.Equal(t, identity.OutcomeSuccess, unknown.Kind)
}

/*
TestRequestReset_RateLimitStaysDistinct verifies rate limiting is not
masked by the enumeration guard.
*/
func TestRequestReset_RateLimitStaysDistinct(t *testing.T) {
	provider := &fakeProvider{
		resetErr: rejection(identity.ReasonRateLimited, "attempt limit exceeded"),
	}

	outcome := newBroker(provider).RequestReset(context.Background(), "user@example.com")

	assert.Equal(t, identity.OutcomeRejected, outcome.Kind)
	assert.Equal(t, identity.ReasonRateLimited, outcome.Reason)
}

/*
TestConfirmReset_DistinctFailureReasons verifies mismatch, expiry, and
policy rejections never collapse into one reason.
*/
func TestConfirmReset_DistinctFailureReasons(t *testing.T) {
	tests := []struct {
		name   string
		err    *identity.ProviderError
		reason identity.Reason
	}{
		{"wrong_code", rejection(identity.ReasonCodeMismatch, "invalid code"), identity.ReasonCodeMismatch},
		{"stale_code", rejection(identity.ReasonCodeExpired, "code expired"), identity.ReasonCodeExpired},
		{"weak_credential", rejection(identity.ReasonPolicyViolation, "password too simple"), identity.ReasonPolicyViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{confirmErr: tt.err}
			outcome := newBroker(provider).ConfirmReset(context.Background(), "user", "123456", "NewPw!234")

			assert.Equal(t, identity.OutcomeRejected, outcome.Kind)
			assert.Equal(t, tt.reason, outcome.Reason)
		})
	}
}

// # Contact Attributes

/*
TestUpdateContactAttribute_PartialSuccess verifies that a failed
verification request after a successful update reports partial success,
not failure.
*/
func TestUpdateContactAttribute_PartialSuccess(t *testing.T) {
	provider := &fakeProvider{
		verificationErr: rejection(identity.ReasonServiceUnavailable, "delivery backend down"),
	}

	outcome := newBroker(provider).UpdateContactAttribute(context.Background(), "token", "email", "me@example.com")

	assert.Equal(t, identity.OutcomeSuccess, outcome.Kind)
	assert.True(t, outcome.Partial)
	assert.NotEmpty(t, outcome.PartialDetail)
}

/*
TestUpdateContactAttribute_UpdateFailureIsTotal verifies a failed update is
an ordinary rejection with nothing partial about it.
*/
func TestUpdateContactAttribute_UpdateFailureIsTotal(t *testing.T) {
	provider := &fakeProvider{
		updateErr: rejection(identity.ReasonInvalidParameter, "invalid email format"),
	}

	outcome := newBroker(provider).UpdateContactAttribute(context.Background(), "token", "email", "nope")

	assert.Equal(t, identity.OutcomeRejected, outcome.Kind)
	assert.False(t, outcome.Partial)
}
