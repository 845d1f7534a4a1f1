// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away body decoding and principal extraction, ensuring consistent
error handling and type safety across handlers.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/sentra-id/sentra/internal/platform/apperr"
	"github.com/sentra-id/sentra/internal/platform/ctxutil"
	"github.com/sentra-id/sentra/internal/platform/validate"
	"github.com/sentra-id/sentra/internal/session/token"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Principal extracts the admitted session token from the request context.

Returns nil if the route guard did not admit the request.
*/
func Principal(request *http.Request) *token.Token {
	return ctxutil.GetPrincipal(request.Context())
}

/*
RequiredPrincipal ensures the request was admitted by the route guard and
returns the session token.

Returns:
  - *token.Token: The admitted session token
  - error: apperr.Unauthorized if the request carries no admitted session
*/
func RequiredPrincipal(request *http.Request) (*token.Token, error) {

	// Get the admitted token
	principal := ctxutil.GetPrincipal(request.Context())

	// If the guard did not admit this request, fail closed
	if principal == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return principal, nil
}
