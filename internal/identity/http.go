// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package identity

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sentra-id/sentra/internal/platform/apperr"
	"github.com/sentra-id/sentra/internal/platform/constants"
	requestutil "github.com/sentra-id/sentra/internal/platform/request"
	"github.com/sentra-id/sentra/internal/platform/respond"
	"github.com/sentra-id/sentra/internal/platform/validate"
	"github.com/sentra-id/sentra/internal/session"
	"github.com/sentra-id/sentra/internal/session/token"
)

// Validation field names used in error payloads.
const (
	FieldUsername    = "username"
	FieldPassword    = "password"
	FieldNewPassword = "new_password"
	FieldHandle      = "handle"
	FieldIdentifier  = "identifier"
	FieldConfirmCode = "confirmation_code"
	FieldAttribute   = "attribute"
	FieldValue       = "value"
	FieldMessage     = "message"
)

// # Definitions & Constructors

// Handler implements the identity and session HTTP endpoints.
//
// # Scope
//
// Everything related to the session lifecycle entry points lives here:
// sign-in, credential rotation, recovery, contact updates, sign-out, and
// the read-only session views.
type Handler struct {
	broker    *Broker
	sessions  *session.Manager
	entryPath string
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(broker *Broker, sessions *session.Manager, entryPath string) *Handler {
	if entryPath == "" {
		entryPath = constants.EntryPath
	}
	return &Handler{broker: broker, sessions: sessions, entryPath: entryPath}
}

// Routes returns a [chi.Router] configured with the identity routes.
//
// # Endpoints
//   - POST /login             : Primary credential exchange.
//   - POST /complete-rotation : Finish a forced credential rotation.
//   - POST /request-reset     : Start credential recovery.
//   - POST /confirm-reset     : Finish credential recovery.
//   - POST /contact           : Update a contact attribute (authenticated).
//   - POST /logout            : Tear down the session and bounce to entry.
//   - GET  /session           : Point-in-time session snapshot.
//   - GET  /diagnostics       : Redacted session internals for operators.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.login)
	router.Post("/complete-rotation", handler.completeRotation)
	router.Post("/request-reset", handler.requestReset)
	router.Post("/confirm-reset", handler.confirmReset)
	router.Post("/contact", handler.updateContact)
	router.Post("/logout", handler.logout)
	router.Get("/session", handler.sessionSnapshot)
	router.Get("/diagnostics", handler.diagnostics)

	return router
}

// # Request Payloads

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type completeRotationRequest struct {
	Username    string `json:"username"`
	NewPassword string `json:"new_password"`
	Handle      string `json:"handle"`
	Email       string `json:"email"`
}

type requestResetRequest struct {
	Identifier string `json:"identifier"`
}

type confirmResetRequest struct {
	Identifier  string `json:"identifier"`
	Code        string `json:"confirmation_code"`
	NewPassword string `json:"new_password"`
}

type updateContactRequest struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

/*
Login performs the primary credential exchange and establishes the session.

POST /api/v1/identity/login

Description: Exchanges the credentials with the identity provider. On
success the session is written to both stores and armed for expiry. A
rotation demand comes back as a challenge payload and establishes nothing.

Request:
  - Body: loginRequest (Username, Password)

Response:
  - 200: Session snapshot, or challenge descriptor
  - 401: ErrUnauthorized: Invalid credentials
  - 409: ErrConflict: Another exchange is still in flight
  - 503: ErrServiceUnavailable: Provider unreachable
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome := handler.broker.Login(request.Context(), input.Username, input.Password)
	handler.respondExchange(writer, request, outcome)
}

/*
CompleteRotation finishes a forced credential rotation.

POST /api/v1/identity/complete-rotation

Description: Submits the new credential against the single-use challenge
handle returned by login. If the provider rejects the enriched submission
for carrying unsupported attributes, the broker retries once with the
minimal payload before failing.

Request:
  - Body: completeRotationRequest (Username, NewPassword, Handle, Email)

Response:
  - 200: Session snapshot, or a sign-in-again notice when no token is issued
  - 401: ErrUnauthorized: Handle expired or credentials rejected
  - 422: ErrUnprocessable: New credential fails the policy
*/
func (handler *Handler) completeRotation(writer http.ResponseWriter, request *http.Request) {
	var input completeRotationRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required(FieldNewPassword, input.NewPassword).
		Required(FieldHandle, input.Handle)
	if input.Email != "" {
		validator.Email("email", input.Email)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome := handler.broker.CompleteRotation(
		request.Context(),
		input.Username,
		input.NewPassword,
		input.Handle,
		input.Email,
	)
	handler.respondExchange(writer, request, outcome)
}

/*
RequestReset starts the credential recovery flow.

POST /api/v1/identity/request-reset

Description: Asks the provider to deliver a confirmation code out of band.
Unknown identifiers get the same generic acknowledgment as known ones, so
the endpoint cannot be used to enumerate accounts.

Request:
  - Body: requestResetRequest (Identifier)

Response:
  - 202: Generic acknowledgment
  - 429: ErrRateLimited: Too many recovery attempts
*/
func (handler *Handler) requestReset(writer http.ResponseWriter, request *http.Request) {
	var input requestResetRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldIdentifier, input.Identifier)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome := handler.broker.RequestReset(request.Context(), input.Identifier)
	if outcome.Kind == OutcomeSuccess {
		respond.Accepted(writer, map[string]string{
			FieldMessage: "If this account exists, a confirmation code has been sent.",
		})
		return
	}
	handler.respondExchange(writer, request, outcome)
}

/*
ConfirmReset finishes the credential recovery flow.

POST /api/v1/identity/confirm-reset

Description: Validates the delivered code and installs the new credential.
A wrong code and a stale code produce distinct errors so the client can
tell "re-type it" from "request a fresh one".

Request:
  - Body: confirmResetRequest (Identifier, ConfirmationCode, NewPassword)

Response:
  - 200: Success notice; the user signs in with the new credential
  - 400: CODE_MISMATCH: The code is wrong
  - 410: CODE_EXPIRED: The code is stale
  - 422: ErrUnprocessable: New credential fails the policy
*/
func (handler *Handler) confirmReset(writer http.ResponseWriter, request *http.Request) {
	var input confirmResetRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldIdentifier, input.Identifier).
		Required(FieldConfirmCode, input.Code).
		Required(FieldNewPassword, input.NewPassword)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome := handler.broker.ConfirmReset(
		request.Context(),
		input.Identifier,
		input.Code,
		input.NewPassword,
	)
	if outcome.Kind == OutcomeSuccess {
		respond.OK(writer, map[string]string{
			FieldMessage: "Credential updated. Sign in with the new credential.",
		})
		return
	}
	handler.respondExchange(writer, request, outcome)
}

/*
UpdateContact updates a contact attribute on the authenticated account.

POST /api/v1/identity/contact

Description: Applies the attribute change and requests delivery of its
verification challenge. A failed verification request does not roll the
update back; the response flags the partial completion instead.

Request:
  - Body: updateContactRequest (Attribute, Value)

Response:
  - 200: Success notice, with a pending_verification flag when partial
  - 401: ErrUnauthorized: No live session
*/
func (handler *Handler) updateContact(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateContactRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldAttribute, input.Attribute).
		Required(FieldValue, input.Value)
	if input.Attribute == ChallengeAttrEmail {
		validator.Email(FieldValue, input.Value)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome := handler.broker.UpdateContactAttribute(
		request.Context(),
		principal.Raw(),
		input.Attribute,
		input.Value,
	)
	if outcome.Kind == OutcomeSuccess {
		payload := map[string]any{
			FieldMessage: "Contact attribute updated.",
		}
		if outcome.Partial {
			payload["verification_pending"] = true
			payload["verification_note"] = "The verification message could not be sent; request it again later."
		}
		respond.OK(writer, payload)
		return
	}
	handler.respondExchange(writer, request, outcome)
}

/*
Logout tears down the session.

POST /api/v1/identity/logout

Description: Clears both halves of the session store, cancels the expiry
schedule, and redirects to the entry route. The redirect forces a full
navigation, so any client-side session caches restart from scratch.

Response:
  - 302: Redirect to the entry route
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	handler.sessions.Logout(request.Context(), writer)
	http.Redirect(writer, request, handler.entryPath, http.StatusFound)
}

/*
SessionSnapshot reports the current session state.

GET /api/v1/identity/session

Description: Returns the point-in-time session snapshot. Liveness is
re-evaluated on every call; an expired session reads unauthenticated even
before its teardown completes.

Response:
  - 200: Snapshot (status, subject, expires_at)
*/
func (handler *Handler) sessionSnapshot(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.sessions.Status())
}

/*
Diagnostics exposes redacted session internals for operators.

GET /api/v1/identity/diagnostics

Description: Shows the masked credential, the public (non-signature) claim
set, and the dual-store consistency report from the last write. The raw
token never appears in this payload.

Response:
  - 200: Diagnostic payload
  - 401: ErrUnauthorized: No live session
*/
func (handler *Handler) diagnostics(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	report := handler.sessions.StoreReport()
	respond.OK(writer, map[string]any{
		"token_preview":     token.Mask(principal.Raw()),
		"claims":            principal.PublicClaims(),
		"snapshot":          handler.sessions.Status(),
		"stores_consistent": report.Consistent,
		"cookie_truncated":  report.Truncated,
	})
}

// # Outcome Mapping

// respondExchange maps a broker outcome onto the HTTP surface.
//
// Success with a token establishes the session before responding; a
// challenge responds with its descriptor and establishes nothing.
func (handler *Handler) respondExchange(writer http.ResponseWriter, request *http.Request, outcome Outcome) {
	switch outcome.Kind {
	case OutcomeSuccess:
		if outcome.Token == "" {
			// Accepted without a credential: the user signs in again.
			respond.OK(writer, map[string]any{
				FieldMessage:      "Credential accepted. Sign in with the new credential.",
				"session_created": false,
			})
			return
		}
		if err := handler.sessions.Login(request.Context(), writer, outcome.Token, outcome.TTL); err != nil {
			respond.Error(writer, request, apperr.Unauthorized("The issued credential could not be decoded"))
			return
		}
		respond.OK(writer, handler.sessions.Status())

	case OutcomeChallenge:
		respond.OK(writer, map[string]any{
			"challenge": map[string]string{
				"kind":   string(outcome.Challenge.Kind),
				"handle": outcome.Challenge.Handle,
			},
			"session_created": false,
		})

	case OutcomeRejected:
		respond.Error(writer, request, rejectionError(outcome.Reason))

	case OutcomeBusy:
		respond.Error(writer, request, apperr.Conflict("Another exchange is already in progress"))

	default: // OutcomeUnavailable
		respond.Error(writer, request, apperr.ServiceUnavailable("The identity service is temporarily unavailable. Try again shortly."))
	}
}

// rejectionError translates a normalized rejection reason into the API error
// vocabulary. Credential rejections intentionally collapse to one message.
func rejectionError(reason Reason) *apperr.AppError {
	switch reason {
	case ReasonNotFound, ReasonNotAuthorized:
		return apperr.Unauthorized("Invalid credentials")
	case ReasonInvalidParameter:
		return apperr.ValidationError("Invalid request parameters")
	case ReasonCodeMismatch:
		return apperr.New(http.StatusBadRequest, "CODE_MISMATCH", "The confirmation code is incorrect")
	case ReasonCodeExpired:
		return apperr.New(http.StatusGone, "CODE_EXPIRED", "The confirmation code has expired. Request a new one.")
	case ReasonRateLimited:
		return apperr.RateLimited(30)
	case ReasonPolicyViolation:
		return apperr.Unprocessable("The new credential does not meet the policy requirements")
	default:
		return apperr.Unauthorized("The request was rejected")
	}
}
