// Package pgstore provides a PostgreSQL implementation of enrich.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/opsseer/internal/enrich"
)

var tracer = otel.Tracer("github.com/linnemanlabs/opsseer/internal/enrich/pgstore")

//go:embed schema.sql
var schema string

// Store persists incident timelines in PostgreSQL. The timeline table is
// append-only; event_ts is a sequence, so per-incident ordering is strict
// even for same-instant appends.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store. The pool stays owned by
// the caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Append inserts one timeline event and returns its assigned event_ts.
func (s *Store) Append(ctx context.Context, incidentID string, typ enrich.EventType, payload json.RawMessage) (int64, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Append", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
		attribute.String("opsseer.incident.id", incidentID),
		attribute.String("opsseer.event.type", string(typ)),
	))
	defer span.End()

	var eventTS int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO timeline (incident_id, type, payload) VALUES ($1, $2, $3) RETURNING event_ts`,
		incidentID, string(typ), payload,
	).Scan(&eventTS)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return eventTS, nil
}

// List returns the incident's events ordered by event_ts.
func (s *Store) List(ctx context.Context, incidentID string) ([]enrich.TimelineEvent, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
		attribute.String("opsseer.incident.id", incidentID),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT incident_id, type, payload, event_ts FROM timeline WHERE incident_id = $1 ORDER BY event_ts`,
		incidentID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	var events []enrich.TimelineEvent
	for rows.Next() {
		var (
			ev      enrich.TimelineEvent
			typ     string
			payload []byte
		)
		if err := rows.Scan(&ev.IncidentID, &typ, &payload, &ev.EventTS); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = enrich.EventType(typ)
		ev.Payload = json.RawMessage(payload)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate timeline: %w", err)
	}
	return events, nil
}

// Ping reports database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
