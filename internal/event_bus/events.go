package event_bus

import "github.com/google/uuid"

const TopicEventsChanged EventType = "events.changed"

// ChangeType mirrors the row operation reported by the events change feed.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// EventsChanged is published once per changed row of the events table.
type EventsChanged struct {
	Type    ChangeType
	EventId uuid.UUID
}
