// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

// Package gate provides the route admission middleware for the Sentra gateway.
//
// # Architecture
//
// The guard sits in front of every protected route. It admits a request only
// when it carries a live session credential, and bounces everything else to
// the entry route with the original destination preserved for post-login
// return. Admission never mutates the durable session store.
package gate

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sentra-id/sentra/internal/platform/constants"
	"github.com/sentra-id/sentra/internal/platform/ctxutil"
	"github.com/sentra-id/sentra/internal/session/token"
)

// Guard is the admission middleware. Construct it with [New] and mount via
// [Guard.Protect].
type Guard struct {
	entryPath string
	allow     []rule
}

// rule is a single allow-list entry. Prefix rules admit every path below
// them; exact rules admit the path alone.
type rule struct {
	path   string
	prefix bool
}

// New builds a guard that redirects unauthenticated requests to entryPath.
//
// The entry path itself is always allow-listed; otherwise a bounced request
// would loop forever.
func New(entryPath string) *Guard {
	if entryPath == "" {
		entryPath = constants.EntryPath
	}
	guard := &Guard{entryPath: entryPath}
	guard.AllowExact(entryPath)
	return guard
}

// AllowExact admits requests whose path equals path exactly.
func (g *Guard) AllowExact(path string) *Guard {
	g.allow = append(g.allow, rule{path: path})
	return g
}

// AllowPrefix admits requests whose path starts with prefix.
func (g *Guard) AllowPrefix(prefix string) *Guard {
	g.allow = append(g.allow, rule{path: prefix, prefix: true})
	return g
}

// Protect wraps next with the admission check.
//
// # Flow
//  1. Extract the credential, cookie first, bearer header as fallback.
//  2. A structurally valid, live credential is decoded into a principal.
//  3. Without a principal, allow-listed paths still pass (anonymously);
//     everything else bounces to the entry route carrying
//     ?returnUrl=<original path>.
//  4. An admitted request carries the decoded principal in its context and
//     a normalized Authorization header for downstream services.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		// ── 1. Credential Extraction ──────────────────────────────────────
		raw := credentialFrom(request)

		// ── 2. Structural And Liveness Check ──────────────────────────────
		var principal *token.Token
		if raw != "" {
			if decoded, err := token.Decode(raw); err == nil && decoded.IsLive(timeNow()) {
				principal = decoded
			}
		}

		// ── 3. Admission Decision ─────────────────────────────────────────
		if principal == nil {
			if g.allowed(request.URL.Path) {
				next.ServeHTTP(writer, request)
				return
			}
			g.bounce(writer, request)
			return
		}

		// ── 4. Principal Injection ────────────────────────────────────────
		request.Header.Set(constants.HeaderAuthorization, "Bearer "+raw)
		ctx := ctxutil.WithPrincipal(request.Context(), principal)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// allowed reports whether path matches any allow-list rule.
func (g *Guard) allowed(path string) bool {
	for _, r := range g.allow {
		if r.prefix {
			if strings.HasPrefix(path, r.path) {
				return true
			}
			continue
		}
		if path == r.path {
			return true
		}
	}
	return false
}

// bounce redirects to the entry route, preserving the original destination.
//
// The original path goes into the query escaped, so nested queries survive
// the round trip.
func (g *Guard) bounce(writer http.ResponseWriter, request *http.Request) {
	destination := request.URL.Path
	if request.URL.RawQuery != "" {
		destination += "?" + request.URL.RawQuery
	}
	target := g.entryPath + "?" + constants.ReturnURLParam + "=" + url.QueryEscape(destination)
	http.Redirect(writer, request, target, http.StatusFound)
}

// timeNow is swapped out in tests.
var timeNow = time.Now

// credentialFrom extracts the raw credential, cookie preferred.
func credentialFrom(request *http.Request) string {
	if cookie, err := request.Cookie(constants.SessionTokenKey); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := request.Header.Get(constants.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
