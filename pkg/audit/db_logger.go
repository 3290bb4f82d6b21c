package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// DBLogger persists audit events to Postgres and serves the query side
// of the trail.
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a new DBLogger
func NewDBLogger(db *sql.DB) *DBLogger {
	return &DBLogger{db: db}
}

// Record inserts one event.
func (l *DBLogger) Record(ctx context.Context, event *Event) error {
	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			occurred_at, action, actor_id, actor_email, workspace_id,
			resource_id, request_id, method, path, status_code, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.OccurredAt, event.Action,
		nullString(event.ActorID), nullString(event.ActorEmail),
		nullString(event.WorkspaceID), nullString(event.ResourceID),
		nullString(event.RequestID), nullString(event.Method),
		nullString(event.Path), event.StatusCode, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Close is a no-op; the connection pool is owned by the caller.
func (l *DBLogger) Close() error {
	return nil
}

// List returns events matching the filter, newest first.
func (l *DBLogger) List(ctx context.Context, filter Filter) ([]*Event, error) {
	var (
		clauses []string
		args    []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.WorkspaceID != "" {
		clauses = append(clauses, "workspace_id = "+arg(filter.WorkspaceID))
	}
	if filter.ActorID != "" {
		clauses = append(clauses, "actor_id = "+arg(filter.ActorID))
	}
	if len(filter.Actions) > 0 {
		actions := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			actions[i] = string(a)
		}
		clauses = append(clauses, "action = ANY("+arg(pq.Array(actions))+")")
	}
	if filter.Since != nil {
		clauses = append(clauses, "occurred_at >= "+arg(*filter.Since))
	}
	if filter.Until != nil {
		clauses = append(clauses, "occurred_at < "+arg(*filter.Until))
	}

	query := `
		SELECT id, occurred_at, action, actor_id, actor_email, workspace_id,
		       resource_id, request_id, method, path, status_code, metadata
		FROM audit_events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > DefaultQueryLimit {
		limit = DefaultQueryLimit
	}
	query += " ORDER BY occurred_at DESC, id DESC"
	query += " LIMIT " + arg(limit)
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		var (
			event    Event
			actorID  sql.NullString
			email    sql.NullString
			wsID     sql.NullString
			resID    sql.NullString
			reqID    sql.NullString
			method   sql.NullString
			path     sql.NullString
			status   sql.NullInt64
			metadata []byte
		)
		if err := rows.Scan(&event.ID, &event.OccurredAt, &event.Action,
			&actorID, &email, &wsID, &resID, &reqID, &method, &path,
			&status, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		event.ActorID = actorID.String
		event.ActorEmail = email.String
		event.WorkspaceID = wsID.String
		event.ResourceID = resID.String
		event.RequestID = reqID.String
		event.Method = method.String
		event.Path = path.String
		event.StatusCode = int(status.Int64)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to parse audit metadata: %w", err)
			}
		}

		events = append(events, &event)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
