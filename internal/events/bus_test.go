package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type memEventStore struct {
	events []Event
	err    error
}

func (m *memEventStore) InsertDomainEvent(_ context.Context, topic, aggregateID string, payload []byte) (Event, error) {
	if m.err != nil {
		return Event{}, m.err
	}
	ev := Event{ID: "ev-1", Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}
	m.events = append(m.events, ev)
	return ev, nil
}

type recordingNotifier struct {
	got []Event
	err error
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) error {
	n.got = append(n.got, ev)
	return n.err
}

func TestEmitPersistsAndFansOut(t *testing.T) {
	store := &memEventStore{}
	n := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{n}}

	ev, err := bus.Emit(context.Background(), TopicOrderCreated, "order-1", map[string]string{"orderNumber": "FTM-20260901-0001"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(store.events) != 1 || len(n.got) != 1 {
		t.Fatalf("event not persisted or not dispatched: %d/%d", len(store.events), len(n.got))
	}
	var payload map[string]string
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if payload["orderNumber"] != "FTM-20260901-0001" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestEmitNotifierFailureDoesNotLoseEvent(t *testing.T) {
	store := &memEventStore{}
	n := &recordingNotifier{err: errors.New("smtp down")}
	bus := &Bus{Store: store, Notifiers: []Notifier{n}}

	_, err := bus.Emit(context.Background(), TopicPriceFlagged, "product-1", nil)
	if err == nil {
		t.Fatal("notifier failure should surface for logging")
	}
	if len(store.events) != 1 {
		t.Fatal("event must be persisted despite notifier failure")
	}
}

func TestEmitValidation(t *testing.T) {
	bus := &Bus{Store: &memEventStore{}}
	if _, err := bus.Emit(context.Background(), " ", "agg", nil); err == nil {
		t.Fatal("blank topic must be rejected")
	}
	if _, err := bus.Emit(context.Background(), TopicOrderCreated, "", nil); err == nil {
		t.Fatal("blank aggregate id must be rejected")
	}
	if _, err := bus.Emit(context.Background(), TopicOrderCreated, "agg", []byte("not-json")); err == nil {
		t.Fatal("invalid json payload must be rejected")
	}
}
