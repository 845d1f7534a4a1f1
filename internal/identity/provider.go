// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package identity

import (
	"context"
	"strings"
	"time"
)

// # Provider Contract

// Reason is the closed set of named failure reasons a [Provider] may report.
//
// Adapters must map every provider-specific error onto one of these;
// unrecognized reasons map to [ReasonServiceUnavailable] rather than
// propagating raw.
type Reason string

const (
	ReasonNotFound           Reason = "not-found"
	ReasonNotAuthorized      Reason = "not-authorized"
	ReasonInvalidParameter   Reason = "invalid-parameter"
	ReasonCodeMismatch       Reason = "code-mismatch"
	ReasonCodeExpired        Reason = "code-expired"
	ReasonRateLimited        Reason = "rate-limited"
	ReasonPolicyViolation    Reason = "policy-violation"
	ReasonServiceUnavailable Reason = "service-unavailable"
)

// ProviderError is the only error type a [Provider] returns.
type ProviderError struct {
	// Reason is the normalized failure class.
	Reason Reason
	// Detail is the provider's own message, for logs and fallback decisions.
	// Never shown to end users verbatim.
	Detail string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return string(e.Reason) + ": " + e.Detail
}

// IsUnsupportedAttributes reports whether err is the provider's specific
// "attributes cannot be set in this exchange" rejection. Only this rejection
// triggers the minimal-payload fallback during rotation completion.
func IsUnsupportedAttributes(err error) bool {
	pe, ok := err.(*ProviderError)
	if !ok || pe.Reason != ReasonInvalidParameter {
		return false
	}
	return strings.Contains(strings.ToLower(pe.Detail), "attribute")
}

// # Exchange Results

// AuthResult is a successfully issued credential.
type AuthResult struct {
	// Token is the raw encoded bearer token.
	Token string
	// TTL is the issued lifetime.
	TTL time.Duration
}

// ChallengeKind names the provider-issued challenge types.
type ChallengeKind string

// ChallengeNewPassword is the forced-credential-rotation challenge.
const ChallengeNewPassword ChallengeKind = "NEW_PASSWORD"

// Challenge describes a provider demand that must be satisfied before a
// token is issued.
type Challenge struct {
	// Kind identifies the challenge.
	Kind ChallengeKind
	// Handle is the provider's opaque, single-use continuation handle.
	Handle string
}

// ChallengeAttrNewPassword is the attribute key carrying the rotated
// credential in [Provider.RespondToChallenge].
const ChallengeAttrNewPassword = "new_password"

// ChallengeAttrEmail is the optional contact attribute submitted alongside
// the rotated credential.
const ChallengeAttrEmail = "email"

// Provider is the identity-provider protocol surface the broker depends on.
//
// All methods return a [*ProviderError] on failure; network-level errors may
// surface as other error types and are treated as service-unavailable by the
// broker.
type Provider interface {
	// InitiateAuth performs the primary credential exchange. Exactly one of
	// result or challenge is non-nil on a nil error.
	InitiateAuth(ctx context.Context, username, password string) (*AuthResult, *Challenge, error)

	// RespondToChallenge completes a pending challenge. A nil result with a
	// nil error means the provider accepted the response but issued no
	// token; the caller must re-authenticate with the new credential.
	RespondToChallenge(ctx context.Context, username, handle string, attributes map[string]string) (*AuthResult, error)

	// RequestPasswordReset triggers out-of-band delivery of a confirmation code.
	RequestPasswordReset(ctx context.Context, identifier string) error

	// ConfirmPasswordReset finalizes a reset with the delivered code.
	ConfirmPasswordReset(ctx context.Context, identifier, code, newCredential string) error

	// UpdateAttribute updates a contact attribute on the authenticated account.
	UpdateAttribute(ctx context.Context, accessToken, name, value string) error

	// RequestAttributeVerification triggers delivery of a verification
	// challenge for a previously updated attribute.
	RequestAttributeVerification(ctx context.Context, accessToken, name string) error
}
