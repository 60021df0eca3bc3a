package enrich

import (
	"context"
	"encoding/json"
)

// Store is the persistence interface for incident timelines. Append assigns
// and returns the event's timeline position; values strictly increase per
// incident and are never reused. Appends are not deduplicated.
type Store interface {
	Append(ctx context.Context, incidentID string, typ EventType, payload json.RawMessage) (int64, error)
	List(ctx context.Context, incidentID string) ([]TimelineEvent, error)
	Ping(ctx context.Context) error
}
