package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tenantdesk/apiserver/types"
)

// EventPublisher is the broker side of domain events. *mq.MQ satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// EventObserver is notified after every publish attempt.
type EventObserver interface {
	EventPublished(eventType string, err error)
}

// Events publishes domain events. A nil *Events, or one without a
// publisher, drops events silently. Publish failures are logged and never
// returned to the caller.
type Events struct {
	pub      EventPublisher
	channel  string
	log      zerolog.Logger
	observer EventObserver
	now      func() time.Time
}

func NewEvents(pub EventPublisher, channel string, log zerolog.Logger) *Events {
	return &Events{
		pub:     pub,
		channel: channel,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithObserver sets the publish observer and returns e.
func (e *Events) WithObserver(o EventObserver) *Events {
	e.observer = o
	return e
}

func (e *Events) emit(ctx context.Context, typ types.EventType, tenantID uuid.NullUUID, actor uuid.UUID, data any) {
	if e == nil || e.pub == nil {
		return
	}

	payload, err := json.Marshal(data)
	if err != nil {
		e.log.Error().Err(err).Str("event", string(typ)).Msg("failed to encode event payload")
		return
	}

	event := types.Event{
		ID:         uuid.New(),
		Type:       typ,
		OccurredAt: e.now(),
		Data:       payload,
	}
	attrs := map[string]string{"type": string(typ)}
	if tenantID.Valid {
		id := tenantID.UUID
		event.TenantID = &id
		attrs["tenant_id"] = id.String()
	}
	if actor != uuid.Nil {
		event.ActorID = &actor
	}

	body, err := json.Marshal(event)
	if err != nil {
		e.log.Error().Err(err).Str("event", string(typ)).Msg("failed to encode event")
		return
	}

	_, err = e.pub.Publish(ctx, e.channel, body, attrs)
	if e.observer != nil {
		e.observer.EventPublished(string(typ), err)
	}
	if err != nil {
		e.log.Warn().Err(err).
			Str("event", string(typ)).
			Str("event_id", event.ID.String()).
			Msg("failed to publish event")
	}
}

func tenantRef(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
