// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

/*
Package token implements the structural codec for opaque bearer tokens.

It parses a raw JWT-shaped credential far enough to answer two questions —
who is this for, and when does it stop being valid — without trusting any
other claim for security decisions.

Trust boundary:

  - Decode checks SHAPE only: three dot-separated base64url segments with
    JSON-decodable header and payload. It does not verify the signature;
    the identity provider is assumed to be the only issuer (see DESIGN.md).
  - Liveness is re-evaluated at every use against the caller's clock,
    never cached.

Decode runs on every protected request, so it must never panic and never
propagate a parse failure as anything other than [ErrMalformed].
*/
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned for any string that is not a structurally valid
// token. Malformed tokens are never trusted and are discarded on sight.
var ErrMalformed = errors.New("token: malformed")

// Token is the decoded, read-only view of a bearer credential.
type Token struct {
	raw       string
	subject   string
	expiresAt time.Time // zero when the claim is absent
	issuedAt  time.Time // zero when the claim is absent
	issuer    string
}

// Decode structurally parses raw into a [Token].
//
// # Failure mode
//
// Any defect — wrong segment count, bad base64url, non-JSON header or
// payload — yields [ErrMalformed]. Decode never panics: it is on the hot
// path of every gated request and must fail closed, not crash.
func Decode(raw string) (*Token, error) {
	if raw == "" {
		return nil, ErrMalformed
	}

	// ParseUnverified splits the three segments and JSON-decodes the outer
	// two without touching the signature. That is exactly the structural
	// contract this codec promises — no more, no less.
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, ErrMalformed
	}

	tok := &Token{raw: raw}

	if subject, err := parsed.Claims.GetSubject(); err == nil {
		tok.subject = subject
	}
	if expiry, err := parsed.Claims.GetExpirationTime(); err == nil && expiry != nil {
		tok.expiresAt = expiry.Time
	}
	if issued, err := parsed.Claims.GetIssuedAt(); err == nil && issued != nil {
		tok.issuedAt = issued.Time
	}
	if issuer, err := parsed.Claims.GetIssuer(); err == nil {
		tok.issuer = issuer
	}

	return tok, nil
}

// Raw returns the encoded form the token was decoded from.
func (t *Token) Raw() string { return t.raw }

// Subject returns the opaque user identifier, or "" if the claim is absent.
func (t *Token) Subject() string { return t.subject }

// ExpiresAt returns the absolute expiry timestamp.
// ok is false when the token carries no expiry claim.
func (t *Token) ExpiresAt() (expiry time.Time, ok bool) {
	return t.expiresAt, !t.expiresAt.IsZero()
}

// IsLive reports whether the token is valid at the given instant.
//
// A token with no expiry claim is treated as NOT live — fail closed.
func (t *Token) IsLive(now time.Time) bool {
	if t.expiresAt.IsZero() {
		return false
	}
	return t.expiresAt.After(now)
}

// Remaining returns the lifetime left at the given instant, floored at zero.
func (t *Token) Remaining(now time.Time) time.Duration {
	if !t.IsLive(now) {
		return 0
	}
	return t.expiresAt.Sub(now)
}

// PublicClaims returns the non-sensitive claims exposed by the diagnostic
// surface. The raw token value is deliberately not among them.
func (t *Token) PublicClaims() map[string]any {
	claims := map[string]any{
		"sub": t.subject,
	}
	if !t.expiresAt.IsZero() {
		claims["exp"] = t.expiresAt.UTC().Format(time.RFC3339)
	}
	if !t.issuedAt.IsZero() {
		claims["iat"] = t.issuedAt.UTC().Format(time.RFC3339)
	}
	if t.issuer != "" {
		claims["iss"] = t.issuer
	}
	return claims
}

// Mask returns a redacted preview of a raw token safe for logs and the
// diagnostic endpoint: the first and last four characters with the middle
// elided. Short values are fully elided.
func Mask(raw string) string {
	const edge = 4
	if len(raw) <= edge*2 {
		return "****"
	}
	return raw[:edge] + "…" + raw[len(raw)-edge:]
}
