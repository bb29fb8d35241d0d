package event

import (
	"time"

	"github.com/google/uuid"
)

const DefaultTimezone = "UTC"

// Event is a row of the events table. Empty strings stand for NULL columns.
type Event struct {
	Id          uuid.UUID
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      *time.Time
	IsAllDay    bool
	IsPublic    bool
	RRule       string
	Timezone    string
	CreatedAt   time.Time
}

// IsRecurring reports whether the event carries a recurrence rule.
func (e Event) IsRecurring() bool {
	return e.RRule != ""
}

// Duration is zero for events without an end.
func (e Event) Duration() time.Duration {
	if e.EndsAt == nil || e.EndsAt.Before(e.StartsAt) {
		return 0
	}
	return e.EndsAt.Sub(e.StartsAt)
}

// TimeLocation resolves the event timezone, falling back to UTC for unknown names.
func (e Event) TimeLocation() *time.Location {
	if e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
