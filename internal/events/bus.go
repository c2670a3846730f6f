package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is a persisted domain event.
type Event struct {
	ID          string
	Topic       string
	AggregateID string
	Payload     json.RawMessage
	OccurredAt  time.Time
}

// EventStore persists emitted events before fan-out.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, topic, aggregateID string, payload []byte) (Event, error)
}

// Notifier reacts to emitted events. Notifier failures never fail the
// emit; they are joined and reported to the caller for logging.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus persists domain events and fans them out to notifiers.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
}

// Emit records the event, then dispatches it to every notifier. The event
// is durable once this returns, even when a notifier errors.
func (b *Bus) Emit(ctx context.Context, topic, aggregateID string, payload any) (Event, error) {
	if b == nil || b.Store == nil {
		return Event{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	if strings.TrimSpace(aggregateID) == "" {
		return Event{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev, err := b.Store.InsertDomainEvent(ctx, topic, aggregateID, encoded)
	if err != nil {
		return Event{}, fmt.Errorf("events: persist event: %w", err)
	}

	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return ev, joined
}

func encodePayload(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case nil:
		return []byte("{}"), nil
	case []byte:
		if len(v) == 0 {
			return []byte("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return append([]byte(nil), v...), nil
	case json.RawMessage:
		return encodePayload([]byte(v))
	default:
		return json.Marshal(v)
	}
}
