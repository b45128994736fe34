package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event.
type EventType string

const (
	EventTenantCreated  EventType = "tenant.created"
	EventTenantUpdated  EventType = "tenant.updated"
	EventUserCreated    EventType = "user.created"
	EventUserUpdated    EventType = "user.updated"
	EventProjectCreated EventType = "project.created"
	EventProjectUpdated EventType = "project.updated"
)

// Event is the envelope published to the message broker whenever a tenant,
// user or project changes.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       EventType       `json:"type"`
	TenantID   *uuid.UUID      `json:"tenant_id,omitempty"`
	ActorID    *uuid.UUID      `json:"actor_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}
