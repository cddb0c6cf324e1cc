// Package events publishes ledger events for downstream consumers such as
// the push notification worker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type names a ledger event. It doubles as the AMQP routing key.
type Type string

const (
	TransactionCreated Type = "transaction.created"
	TransactionDeleted Type = "transaction.deleted"
	SettlementSettled  Type = "settlement.settled"
)

// Event is a lightweight notification. Consumers fetch full records by ID.
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	SettlementID  string    `json:"settlement_id,omitempty"`
	GroupID       string    `json:"group_id,omitempty"`
	ActorID       string    `json:"actor_id"`
	Participants  []string  `json:"participants,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// New creates an event with a fresh ID, stamped with the current time.
// Consumers deduplicate redeliveries by ID.
func New(typ Type, actorID string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      typ,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event from JSON bytes.
func FromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, *Event) error { return nil }
func (Nop) Close() error                         { return nil }
