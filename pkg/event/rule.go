package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Rule parses the event recurrence rule anchored at the event start. Wall-clock
// recurrences are evaluated in the event timezone; all-day events stay in UTC
// so every occurrence keeps its calendar day.
func (e Event) Rule() (*rrule.RRule, error) {
	if !e.IsRecurring() {
		return nil, fmt.Errorf("%w: event %s has no recurrence rule", ErrInvalidEvent, e.Id)
	}
	loc := e.TimeLocation()
	if e.IsAllDay {
		loc = time.UTC
	}

	raw := strings.TrimSpace(e.RRule)
	raw = strings.TrimPrefix(raw, "RRULE:")
	opt, err := rrule.StrToROptionInLocation(raw, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: rrule %q: %v", ErrInvalidEvent, e.RRule, err)
	}
	if opt.Dtstart.IsZero() {
		opt.Dtstart = e.StartsAt.In(loc)
	}
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: rrule %q: %v", ErrInvalidEvent, e.RRule, err)
	}
	return r, nil
}
