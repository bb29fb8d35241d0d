package occurrence

import (
	"fmt"
	"time"

	"github.com/oremband/oremband/pkg/event"
)

const DateLayout = time.DateOnly

// Occurrence is one dated instance of an event as shown on the calendar.
type Occurrence struct {
	InstanceId      string     `json:"instanceId"`
	OriginalEventId string     `json:"originalEventId"`
	Date            string     `json:"date"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Location        string     `json:"location,omitempty"`
	StartsAt        time.Time  `json:"startsAt"`
	EndsAt          *time.Time `json:"endsAt,omitempty"`
	Timezone        string     `json:"timezone"`
	IsAllDay        bool       `json:"isAllDay"`
	IsPublic        bool       `json:"isPublic"`
}

// Normalize converts an event record into an occurrence. The date is the
// UTC calendar day of the start.
func Normalize(r event.Record) Occurrence {
	startsAt := r.StartsAt.UTC()
	var endsAt *time.Time
	if r.EndsAt != nil {
		end := r.EndsAt.UTC()
		endsAt = &end
	}
	timezone := event.DefaultTimezone
	if r.Timezone != nil && *r.Timezone != "" {
		timezone = *r.Timezone
	}
	isPublic := true
	if r.IsPublic != nil {
		isPublic = *r.IsPublic
	}
	return Occurrence{
		InstanceId:      InstanceId(r.Id, startsAt),
		OriginalEventId: r.Id,
		Date:            startsAt.Format(DateLayout),
		Title:           r.Title,
		Description:     valueOf(r.Description),
		Location:        valueOf(r.Location),
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		Timezone:        timezone,
		IsAllDay:        r.IsAllDay,
		IsPublic:        isPublic,
	}
}

func NormalizeAll(records []event.Record) []Occurrence {
	occurrences := make([]Occurrence, 0, len(records))
	for _, r := range records {
		occurrences = append(occurrences, Normalize(r))
	}
	return occurrences
}

func InstanceId(eventId string, startsAt time.Time) string {
	return fmt.Sprintf("%s_%s", eventId, startsAt.UTC().Format(time.RFC3339))
}

func valueOf(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
