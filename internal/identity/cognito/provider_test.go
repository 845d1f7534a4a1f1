// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package cognito_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-id/sentra/internal/identity/cognito"
	"github.com/sentra-id/sentra/internal/platform/apperr"
)

/*
TestNew_MissingClientIDIsAConfigurationError verifies the constructor refuses
an empty client id with the operator-facing error class, and that the
sentinel stays reachable for callers matching on it.
*/
func TestNew_MissingClientIDIsAConfigurationError(t *testing.T) {
	provider, err := cognito.New(nil, "", "secret")

	assert.Nil(t, provider)
	require.Error(t, err)
	assert.ErrorIs(t, err, cognito.ErrMissingClientID)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "MISCONFIGURED", appError.Code)
}

/*
TestNew_SecretIsOptional verifies a public client constructs without a
client secret.
*/
func TestNew_SecretIsOptional(t *testing.T) {
	provider, err := cognito.New(nil, "client-abc", "")

	require.NoError(t, err)
	assert.NotNil(t, provider)
}

/*
TestNew_RejectsOnlyTheClientID verifies the sentinel is not conflated with
unrelated errors.
*/
func TestNew_RejectsOnlyTheClientID(t *testing.T) {
	_, err := cognito.New(nil, "client-abc", "secret")
	require.NoError(t, err)
	assert.False(t, errors.Is(err, cognito.ErrMissingClientID))
}
