// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentra-id/sentra/internal/platform/database/schema"
	"github.com/sentra-id/sentra/internal/platform/dberr"
)

// PostgresStore implements the [Store] interface using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL implementation of [Store].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Append persists one event.
func (store *PostgresStore) Append(ctx context.Context, event *Event) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s) VALUES ($1, $2, $3, $4)`,
		schema.AuditEvent.Table,
		schema.AuditEvent.ID, schema.AuditEvent.Kind, schema.AuditEvent.Subject, schema.AuditEvent.OccurredAt)

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	_, err := store.pool.Exec(ctx, query,
		event.ID,
		event.Kind,
		event.Subject,
		event.OccurredAt,
	)
	if err != nil {
		return dberr.Wrap(err, "append_audit_event")
	}

	return nil
}

// List returns a filtered page of events, newest first, plus the total count.
//
// Filter fields are applied as optional predicates so a single statement
// covers every combination.
func (store *PostgresStore) List(ctx context.Context, filter Filter, limit, offset int) ([]*Event, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, COUNT(*) OVER() AS total
		FROM %s
		WHERE ($1 = '' OR %s = $1)
		  AND ($2 = '' OR %s = $2)
		  AND ($3::timestamptz IS NULL OR %s >= $3)
		ORDER BY %s DESC
		LIMIT $4 OFFSET $5`,
		schema.AuditEvent.ID, schema.AuditEvent.Kind, schema.AuditEvent.Subject, schema.AuditEvent.OccurredAt,
		schema.AuditEvent.Table,
		schema.AuditEvent.Kind,
		schema.AuditEvent.Subject,
		schema.AuditEvent.OccurredAt,
		schema.AuditEvent.OccurredAt)

	var since *time.Time
	if !filter.Since.IsZero() {
		since = &filter.Since
	}

	rows, err := store.pool.Query(ctx, query, filter.Kind, filter.Subject, since, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_audit_events")
	}
	defer rows.Close()

	var (
		events []*Event
		total  int
	)
	for rows.Next() {
		event := &Event{}
		if err := rows.Scan(&event.ID, &event.Kind, &event.Subject, &event.OccurredAt, &total); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_audit_event")
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "read_audit_events")
	}

	return events, total, nil
}

// DeleteBefore removes events older than cutoff and reports how many went.
func (store *PostgresStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`,
		schema.AuditEvent.Table, schema.AuditEvent.OccurredAt)

	tag, err := store.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, dberr.Wrap(err, "prune_audit_events")
	}
	return tag.RowsAffected(), nil
}
