// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

// Package schema centralizes table and column names so store queries are
// assembled from one authoritative source.
package schema

// AuditEventTable represents the 'audit.event' table
type AuditEventTable struct {
	Table      string
	ID         string
	Kind       string
	Subject    string
	OccurredAt string
}

var AuditEvent = AuditEventTable{
	Table:      "audit.event",
	ID:         "id",
	Kind:       "kind",
	Subject:    "subject",
	OccurredAt: "occurredat",
}
