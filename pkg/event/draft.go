package event

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrDraftIncomplete = errors.New("date and title are required")
var ErrDraftInvalid = errors.New("invalid event draft")

// Draft is the admin form for a new single event.
type Draft struct {
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Location    string `json:"location,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ToEvent builds an event from the draft. With a time the start is the wall
// clock date-time in loc; without one the event is all-day at midnight UTC.
func (d Draft) ToEvent(loc *time.Location) (Event, error) {
	date := strings.TrimSpace(d.Date)
	title := strings.TrimSpace(d.Title)
	clock := strings.TrimSpace(d.Time)
	if date == "" || title == "" {
		return Event{}, ErrDraftIncomplete
	}
	if loc == nil {
		loc = time.UTC
	}

	var startsAt time.Time
	var err error
	isAllDay := false
	if clock != "" {
		startsAt, err = time.ParseInLocation("2006-01-02T15:04", date+"T"+clock, loc)
		if err != nil {
			return Event{}, fmt.Errorf("%w: date %q time %q", ErrDraftInvalid, date, clock)
		}
	} else {
		startsAt, err = time.Parse(time.DateOnly, date)
		if err != nil {
			return Event{}, fmt.Errorf("%w: date %q", ErrDraftInvalid, date)
		}
		isAllDay = true
	}

	return Event{
		Title:       title,
		Description: strings.TrimSpace(d.Description),
		Location:    strings.TrimSpace(d.Location),
		StartsAt:    startsAt.UTC(),
		IsAllDay:    isAllDay,
		IsPublic:    true,
		Timezone:    loc.String(),
	}, nil
}
