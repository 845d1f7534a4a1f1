// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

/*
Package constants provides centralized, immutable values for the gateway.

It defines default timeouts, rate limits, and the cross-cutting session keys
shared between the session, gate, and transport layers.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Session: Cookie/store naming, size and lifetime caps, expiry lead.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "sentra-gateway"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Session

const (
	// SessionTokenKey names both halves of the dual store: the durable-store
	// key and the HTTP-visible cookie. Keeping the two names identical makes
	// the pair trivially correlatable when debugging.
	SessionTokenKey = "session-token"

	// SessionCookiePath scopes the session cookie to the whole site.
	SessionCookiePath = "/"

	// MaxSessionCookieAge caps the cookie max-age regardless of the token's
	// own expiry. Defends against a provider handing out an unbounded TTL.
	MaxSessionCookieAge = 7 * 24 * time.Hour

	// MaxCookieBytes is the serialized Set-Cookie size most browsers accept.
	MaxCookieBytes = 4096

	// ExpiryLead is how far ahead of token expiry the session scheduler
	// fires. Absorbs clock skew between the gateway and the provider.
	ExpiryLead = 10 * time.Second

	// AuditPruneInterval is how often the audit retention prune runs.
	AuditPruneInterval = 6 * time.Hour
)

// # Route Gating

const (
	// EntryPath is where unauthenticated requests are redirected.
	EntryPath = "/"

	// ReturnURLParam carries the originally requested path through the
	// redirect so the client can come back after logging in.
	ReturnURLParam = "returnUrl"
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long an idle IP entry is kept before eviction.
	RateLimitClientTTL = 3 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
)

// # Response Fields

const (
	FieldCode  = "code"
	FieldError = "error"
)
