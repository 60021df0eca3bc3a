// Package memstore provides an in-memory implementation of enrich.Store.
package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/linnemanlabs/opsseer/internal/enrich"
)

// Store holds incident timelines in memory. Suitable for dev/testing.
type Store struct {
	mu     sync.RWMutex
	nextTS int64
	events map[string][]enrich.TimelineEvent // incident ID -> ordered events
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{events: make(map[string][]enrich.TimelineEvent)}
}

// Append adds an event to the incident's timeline and returns its assigned
// position. Positions strictly increase and are never reused.
func (s *Store) Append(_ context.Context, incidentID string, typ enrich.EventType, payload json.RawMessage) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTS++
	ev := enrich.TimelineEvent{
		IncidentID: incidentID,
		Type:       typ,
		Payload:    json.RawMessage(bytes.Clone(payload)),
		EventTS:    s.nextTS,
	}
	s.events[incidentID] = append(s.events[incidentID], ev)
	return ev.EventTS, nil
}

// List returns the incident's events in append order. Returns copies.
func (s *Store) List(_ context.Context, incidentID string) ([]enrich.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.events[incidentID]
	out := make([]enrich.TimelineEvent, len(evs))
	copy(out, evs)
	return out, nil
}

// Ping always reports healthy.
func (s *Store) Ping(context.Context) error { return nil }
