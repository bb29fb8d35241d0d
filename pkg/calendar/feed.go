package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/oremband/oremband/internal/utils"
	"github.com/oremband/oremband/pkg/occurrence"
	log "github.com/sirupsen/logrus"
)

const (
	feedMonthsBack    = 1
	feedMonthsForward = 6
	feedProductId     = "-//Orem Band//Calendar//EN"
)

// Feed exports public occurrences as an iCalendar document.
type Feed struct {
	source occurrence.Source
	clock  utils.Clock
	name   string
}

func NewFeed(source occurrence.Source, clock utils.Clock, name string) *Feed {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Feed{source: source, clock: clock, name: name}
}

// Window is the exported range around now.
func (f *Feed) Window() (start, end time.Time) {
	now := f.clock.Now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -feedMonthsBack, 0), first.AddDate(0, feedMonthsForward+1, 0).Add(-time.Millisecond)
}

func (f *Feed) Build(ctx context.Context) (*ical.Calendar, error) {
	start, end := f.Window()
	occurrences, err := f.source.FetchOccurrences(ctx, start, end)
	if err != nil {
		return nil, err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(feedProductId)
	if f.name != "" {
		cal.SetName(f.name)
		cal.SetXWRCalName(f.name)
	}

	stamp := f.clock.Now().UTC()
	for _, occ := range occurrences {
		if !occ.IsPublic {
			continue
		}
		addOccurrence(cal, occ, stamp)
	}
	return cal, nil
}

func addOccurrence(cal *ical.Calendar, occ occurrence.Occurrence, stamp time.Time) {
	ev := cal.AddEvent(occ.InstanceId + "@oremband")
	ev.SetDtStampTime(stamp)
	ev.SetSummary(occ.Title)
	if occ.Description != "" {
		ev.SetDescription(occ.Description)
	}
	if occ.Location != "" {
		ev.SetLocation(occ.Location)
	}

	if occ.IsAllDay {
		ev.SetAllDayStartAt(occ.StartsAt)
		end := occ.StartsAt.AddDate(0, 0, 1)
		if occ.EndsAt != nil && occ.EndsAt.After(end) {
			end = *occ.EndsAt
		}
		ev.SetAllDayEndAt(end)
		return
	}
	ev.SetStartAt(occ.StartsAt)
	if occ.EndsAt != nil {
		ev.SetEndAt(*occ.EndsAt)
	} else {
		ev.SetEndAt(occ.StartsAt.Add(time.Hour))
	}
}

// ServeICS godoc
// @Summary iCalendar feed of public events
// @Tags Calendar
// @Produce text/calendar
// @Success 200 {string} string "iCalendar document"
// @Failure 502 {string} string "Events could not be loaded"
// @Router /calendar.ics [get]
func (f *Feed) ServeICS(w http.ResponseWriter, r *http.Request) {
	cal, err := f.Build(r.Context())
	if err != nil {
		log.Errorf("failed to build calendar feed: %v", err)
		http.Error(w, fmt.Sprintf("events could not be loaded: %v", err), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	if err := cal.SerializeTo(w); err != nil {
		log.Errorf("failed to write calendar feed: %v", err)
	}
}
