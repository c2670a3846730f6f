package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/palengke-dev/farmgate-api/internal/events"
)

// InsertDomainEvent appends an event to the domain_events table.
func (s *Store) InsertDomainEvent(ctx context.Context, topic, aggregateID string, payload []byte) (events.Event, error) {
	ev := events.Event{ID: uuid.NewString(), Topic: topic, AggregateID: aggregateID, Payload: payload}
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO domain_events (id, topic, aggregate_id, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING occurred_at`,
		ev.ID, ev.Topic, ev.AggregateID, ev.Payload).Scan(&ev.OccurredAt)
	if err != nil {
		return events.Event{}, fmt.Errorf("store: insert event: %w", err)
	}
	return ev, nil
}
