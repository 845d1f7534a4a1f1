// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

/*
Package identity executes the identity-provider protocol exchanges and
normalizes their outcomes into a small result vocabulary.

The broker never returns a raw provider error across its boundary: every
exchange yields exactly one tagged [Outcome], so the transport layer can map
each attempt to one terminal, human-readable result and the UI is never left
in an indeterminate state.

Login surface state machine:

	ENTRY --login success--------------------> AUTHENTICATED
	ENTRY --login: rotation required---------> ROTATING
	ROTATING --rotation done (token)---------> AUTHENTICATED
	ROTATING --rotation done (no token)------> ENTRY (re-login required)
	ENTRY --request reset--------------------> RESET_PENDING_CODE
	RESET_PENDING_CODE --confirm success-----> ENTRY (credential now valid)
	AUTHENTICATED --expiry or logout---------> ENTRY

ROTATING and RESET_PENDING_CODE are transient: their state (the challenge
handle, the expected code) lives only in the client's in-flight request and
abandons cleanly back to ENTRY with no side effects.
*/
package identity

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// # Outcome Vocabulary

// OutcomeKind tags the result of an identity exchange.
type OutcomeKind string

const (
	// OutcomeSuccess carries a token (possibly empty for exchanges that
	// succeed without issuing one) and its TTL.
	OutcomeSuccess OutcomeKind = "success"

	// OutcomeChallenge means the provider demands another step before a
	// token is issued. A challenge is NOT a failure, and it must never set
	// a session.
	OutcomeChallenge OutcomeKind = "challenge"

	// OutcomeRejected is a user-recoverable rejection with a specific reason.
	OutcomeRejected OutcomeKind = "rejected"

	// OutcomeUnavailable is a transient provider or network failure,
	// recoverable by retry after a delay.
	OutcomeUnavailable OutcomeKind = "unavailable"

	// OutcomeBusy means another exchange is still pending; the submission
	// was rejected, not queued.
	OutcomeBusy OutcomeKind = "busy"
)

// Outcome is the single terminal result of one exchange attempt.
type Outcome struct {
	Kind OutcomeKind

	// Token and TTL are set for OutcomeSuccess. An empty Token on success
	// means the exchange completed but no credential was issued (the user
	// must sign in again).
	Token string
	TTL   time.Duration

	// Challenge is set for OutcomeChallenge.
	Challenge *Challenge

	// Reason is set for OutcomeRejected.
	Reason Reason

	// Detail is a log-safe elaboration for OutcomeUnavailable.
	Detail string

	// Partial flags an OutcomeSuccess whose trailing side effect failed
	// (e.g. attribute updated but the verification reminder was not sent).
	Partial bool
	// PartialDetail says which step was missed.
	PartialDetail string
}

// # Broker

// Broker drives the provider exchanges and enforces the re-entrancy rule:
// one exchange in flight at a time, a second submission is rejected with
// [OutcomeBusy], never queued.
type Broker struct {
	provider Provider
	log      *slog.Logger
	inFlight atomic.Bool
}

// NewBroker constructs a [Broker] over the given provider.
func NewBroker(provider Provider, log *slog.Logger) *Broker {
	return &Broker{provider: provider, log: log}
}

// Login performs the primary credential exchange.
//
// A provider-reported "must rotate credential" demand comes back as
// [OutcomeChallenge] carrying the single-use handle — the caller must not
// treat it as failure, and must not establish a session from it.
func (b *Broker) Login(ctx context.Context, username, password string) Outcome {
	release, busy := b.acquire()
	if busy {
		return Outcome{Kind: OutcomeBusy}
	}
	defer release()

	result, challenge, err := b.provider.InitiateAuth(ctx, username, password)
	if err != nil {
		return b.outcomeFromError(ctx, "login", err)
	}
	if challenge != nil {
		b.log.InfoContext(ctx, "login_challenge_issued",
			slog.String("username", username),
			slog.String("kind", string(challenge.Kind)),
		)
		return Outcome{Kind: OutcomeChallenge, Challenge: challenge}
	}

	return Outcome{Kind: OutcomeSuccess, Token: result.Token, TTL: result.TTL}
}

// CompleteRotation submits the rotated credential against a pending
// NEW_PASSWORD challenge.
//
// # Fallback strategy
//
// The provider's attribute-update semantics during this exchange are narrow:
// some attributes are provider-managed and rejecting them must not abort the
// rotation. So: try the rich payload first, and specifically on the
// "unsupported attributes" rejection, retry once with the minimal payload
// (username and credential only). Two genuinely different requests — not a
// blind retry loop.
func (b *Broker) CompleteRotation(ctx context.Context, username, newPassword, handle, email string) Outcome {
	release, busy := b.acquire()
	if busy {
		return Outcome{Kind: OutcomeBusy}
	}
	defer release()

	attributes := map[string]string{
		ChallengeAttrNewPassword: newPassword,
	}
	if email != "" {
		attributes[ChallengeAttrEmail] = email
	}

	result, err := b.provider.RespondToChallenge(ctx, username, handle, attributes)
	if err != nil && email != "" && IsUnsupportedAttributes(err) {
		b.log.InfoContext(ctx, "rotation_attributes_rejected_retrying_minimal",
			slog.String("username", username),
		)
		result, err = b.provider.RespondToChallenge(ctx, username, handle, map[string]string{
			ChallengeAttrNewPassword: newPassword,
		})
	}
	if err != nil {
		return b.outcomeFromError(ctx, "complete_rotation", err)
	}

	if result == nil {
		// Provider accepted the new credential but issued no token:
		// ROTATING resolves back to ENTRY and the user signs in again.
		return Outcome{Kind: OutcomeSuccess}
	}
	return Outcome{Kind: OutcomeSuccess, Token: result.Token, TTL: result.TTL}
}

// RequestReset triggers out-of-band delivery of a reset code.
//
// # Enumeration resistance
//
// A provider "not found" is mapped to the same generic success outcome as a
// real delivery, so the response never reveals whether the identifier
// corresponds to an account. Rate-limit rejections stay distinct — they are
// user-actionable ("wait and retry") and leak nothing.
func (b *Broker) RequestReset(ctx context.Context, identifier string) Outcome {
	release, busy := b.acquire()
	if busy {
		return Outcome{Kind: OutcomeBusy}
	}
	defer release()

	err := b.provider.RequestPasswordReset(ctx, identifier)
	if err != nil {
		if pe, ok := err.(*ProviderError); ok && pe.Reason == ReasonNotFound {
			b.log.InfoContext(ctx, "reset_requested_unknown_identifier")
			return Outcome{Kind: OutcomeSuccess}
		}
		return b.outcomeFromError(ctx, "request_reset", err)
	}
	return Outcome{Kind: OutcomeSuccess}
}

// ConfirmReset finalizes a reset with the delivered code.
//
// Code mismatch (retype it), code expired (restart the request), and
// credential policy rejection (pick a different credential) are never
// collapsed: the user's recovery action differs for each.
func (b *Broker) ConfirmReset(ctx context.Context, identifier, code, newCredential string) Outcome {
	release, busy := b.acquire()
	if busy {
		return Outcome{Kind: OutcomeBusy}
	}
	defer release()

	if err := b.provider.ConfirmPasswordReset(ctx, identifier, code, newCredential); err != nil {
		return b.outcomeFromError(ctx, "confirm_reset", err)
	}
	return Outcome{Kind: OutcomeSuccess}
}

// UpdateContactAttribute updates a verifiable contact attribute and then
// triggers delivery of its verification challenge.
//
// The two steps are sequential and the second step's failure does not roll
// back the first — the attribute is already updated, only the verification
// reminder failed. That is reported as partial success, not total failure.
func (b *Broker) UpdateContactAttribute(ctx context.Context, accessToken, attribute, value string) Outcome {
	release, busy := b.acquire()
	if busy {
		return Outcome{Kind: OutcomeBusy}
	}
	defer release()

	if err := b.provider.UpdateAttribute(ctx, accessToken, attribute, value); err != nil {
		return b.outcomeFromError(ctx, "update_attribute", err)
	}

	if err := b.provider.RequestAttributeVerification(ctx, accessToken, attribute); err != nil {
		b.log.WarnContext(ctx, "attribute_verification_request_failed",
			slog.String("attribute", attribute),
			slog.Any("error", err),
		)
		return Outcome{
			Kind:          OutcomeSuccess,
			Partial:       true,
			PartialDetail: "attribute updated; verification message was not sent",
		}
	}
	return Outcome{Kind: OutcomeSuccess}
}

// # Normalization

// outcomeFromError maps a provider failure onto the outcome vocabulary.
// Anything that is not a recognized [*ProviderError] — including transport
// errors — degrades to unavailable, never propagates raw.
func (b *Broker) outcomeFromError(ctx context.Context, exchange string, err error) Outcome {
	pe, ok := err.(*ProviderError)
	if !ok {
		b.log.ErrorContext(ctx, "provider_exchange_failed",
			slog.String("exchange", exchange),
			slog.Any("error", err),
		)
		return Outcome{Kind: OutcomeUnavailable, Detail: "identity provider unreachable"}
	}

	if pe.Reason == ReasonServiceUnavailable {
		b.log.WarnContext(ctx, "provider_unavailable",
			slog.String("exchange", exchange),
			slog.String("detail", pe.Detail),
		)
		return Outcome{Kind: OutcomeUnavailable, Detail: pe.Detail}
	}

	return Outcome{Kind: OutcomeRejected, Reason: pe.Reason}
}

// acquire claims the single in-flight slot. busy is true when another
// exchange holds it; release must be called exactly once otherwise.
func (b *Broker) acquire() (release func(), busy bool) {
	if !b.inFlight.CompareAndSwap(false, true) {
		return nil, true
	}
	return func() { b.inFlight.Store(false) }, false
}
