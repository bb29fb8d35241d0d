package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is the wire shape of an event, shared by the REST API and the
// expansion function. Column names are kept as-is.
type Record struct {
	Id          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	IsAllDay    bool       `json:"is_all_day"`
	IsPublic    *bool      `json:"is_public"`
	RRule       *string    `json:"rrule"`
	Timezone    *string    `json:"timezone"`
}

func ToRecord(e Event) Record {
	isPublic := e.IsPublic
	return Record{
		Id:          e.Id.String(),
		Title:       e.Title,
		Description: nullableString(e.Description),
		Location:    nullableString(e.Location),
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		IsAllDay:    e.IsAllDay,
		IsPublic:    &isPublic,
		RRule:       nullableString(e.RRule),
		Timezone:    nullableString(e.Timezone),
	}
}

// FromRecord converts a wire record. A missing id is left as uuid.Nil and a
// missing is_public defaults to true.
func FromRecord(r Record) (Event, error) {
	var id uuid.UUID
	if r.Id != "" {
		parsed, err := uuid.Parse(r.Id)
		if err != nil {
			return Event{}, fmt.Errorf("invalid event id %q: %w", r.Id, err)
		}
		id = parsed
	}
	isPublic := true
	if r.IsPublic != nil {
		isPublic = *r.IsPublic
	}
	timezone := DefaultTimezone
	if r.Timezone != nil && *r.Timezone != "" {
		timezone = *r.Timezone
	}
	return Event{
		Id:          id,
		Title:       r.Title,
		Description: stringValue(r.Description),
		Location:    stringValue(r.Location),
		StartsAt:    r.StartsAt,
		EndsAt:      r.EndsAt,
		IsAllDay:    r.IsAllDay,
		IsPublic:    isPublic,
		RRule:       stringValue(r.RRule),
		Timezone:    timezone,
	}, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
