// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/sentra-id/sentra/internal/platform/ctxkey"
	"github.com/sentra-id/sentra/internal/session/token"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Identity & Access

// WithPrincipal returns a new context with the admitted session token attached.
// Only the route guard writes this value.
func WithPrincipal(ctx context.Context, tok *token.Token) context.Context {
	return context.WithValue(ctx, ctxkey.KeyPrincipal, tok)
}

// GetPrincipal retrieves the admitted session token from the [context.Context].
// Returns nil for requests the guard did not admit.
func GetPrincipal(ctx context.Context) *token.Token {
	tok, ok := ctx.Value(ctxkey.KeyPrincipal).(*token.Token)
	if !ok {
		return nil
	}
	return tok
}
