package notifications

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a ledger lifecycle event.
type EventType string

const (
	EventProducerRegistered   EventType = "producer.registered"
	EventProducerVerified     EventType = "producer.verified"
	EventCertificateSubmitted EventType = "certificate.submitted"
	EventCertificateVerified  EventType = "certificate.verified"
	EventListingCreated       EventType = "listing.created"
	EventListingSold          EventType = "listing.sold"
	EventListingCancelled     EventType = "listing.cancelled"
)

// Event is a broadcastable ledger event.
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent stamps a payload with an id and timestamp.
func NewEvent(t EventType, payload interface{}) Event {
	return Event{
		ID:        uuid.New(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher delivers events to interested clients. Services publish
// after their transaction commits; delivery is best effort.
type Publisher interface {
	Publish(e Event)
}

// NopPublisher discards events. Used in tests and the bootstrap tool.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
