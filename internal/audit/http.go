// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package audit

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sentra-id/sentra/internal/platform/respond"
	"github.com/sentra-id/sentra/pkg/pagination"
)

// Handler exposes the audit trail over HTTP.
type Handler struct {
	store Store
}

// NewHandler constructs a new [Handler].
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Routes returns a [chi.Router] with the audit endpoints.
//
// # Endpoints
//   - GET / : Paginated event listing, newest first.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", handler.list)
	return router
}

/*
List returns recorded lifecycle events.

GET /api/v1/audit

Description: Returns a filtered, paginated page of audit events newest first.

Request:
  - Query: page, limit (pagination)
  - Query: kind (optional event kind filter)
  - Query: subject (optional principal filter)
  - Query: since (optional RFC 3339 lower bound)

Response:
  - 200: []Event with pagination metadata
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	filter := Filter{
		Kind:    request.URL.Query().Get("kind"),
		Subject: request.URL.Query().Get("subject"),
	}
	if raw := request.URL.Query().Get("since"); raw != "" {
		if since, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.Since = since
		}
	}

	events, total, err := handler.store.List(request.Context(), filter, params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if events == nil {
		events = []*Event{}
	}
	respond.Paginated(writer, events, pagination.NewMeta(params.Page, params.Limit, total))
}
