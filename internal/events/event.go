package events

import (
	"context"
	"time"
)

const (
	ConversationOpened = "chat.conversation.opened"
	MessageCreated     = "chat.message.created"
	MessageUpdated     = "chat.message.updated"
	MessageDeleted     = "chat.message.deleted"
	PresenceOnline     = "chat.presence.online"
	PresenceOffline    = "chat.presence.offline"
)

// Event defines the contract for all chat domain events.
type Event interface {
	// EventType doubles as the subject/topic the event is published on.
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Publisher ships domain events to whoever is listening downstream.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
