// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package ctxutil_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-id/sentra/internal/platform/ctxutil"
	"github.com/sentra-id/sentra/internal/session/token"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Principal verifies that an admitted session token can be stored
in context.
*/
func TestContext_Principal(t *testing.T) {
	ctx := context.Background()

	encode := base64.RawURLEncoding.EncodeToString
	header, err := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	require.NoError(t, err)
	claims, err := json.Marshal(map[string]any{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	principal, err := token.Decode(fmt.Sprintf("%s.%s.%s", encode(header), encode(claims), encode([]byte("signature"))))
	require.NoError(t, err)

	// 1. Initially should be nil
	assert.Nil(t, ctxutil.GetPrincipal(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithPrincipal(ctx, principal)
	retrieved := ctxutil.GetPrincipal(ctx)

	assert.NotNil(t, retrieved)
	assert.Equal(t, "user-123", retrieved.Subject())
}
