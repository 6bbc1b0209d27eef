// Package outbox implements the transactional outbox: domain events are
// written to the outbox table inside the mutation transaction and relayed
// to the message broker by a background processor.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message represents an outbox row ready for publishing.
type Message struct {
	ID               int64
	EventID          uuid.UUID
	AggregateType    string
	AggregateID      uuid.UUID
	EventType        string
	RoutingKey       string
	Payload          json.RawMessage
	Metadata         json.RawMessage
	CreatedAt        time.Time
	PublishedAt      *time.Time
	NextRetryAt      *time.Time
	RetryCount       int
	LastError        *string
	DeadLetteredAt   *time.Time
	DeadLetterReason *string
}

// Metadata carries the request context a message was produced under.
type Metadata struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	App           string `json:"app,omitempty"`
}

// NewMessage creates an outbox message for the given aggregate. The payload
// is marshalled as-is; the routing key doubles as the event type.
func NewMessage(aggregateType string, aggregateID uuid.UUID, routingKey string, payload any, meta Metadata) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:       uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     routingKey,
		RoutingKey:    routingKey,
		Payload:       body,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// IsPublished returns true if the message has been published.
func (m *Message) IsPublished() bool {
	return m.PublishedAt != nil
}

// CanRetry returns true if the message has retries left.
func (m *Message) CanRetry(maxRetries int) bool {
	return m.RetryCount < maxRetries
}
