package expansion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/oremband/oremband/pkg/event"
	log "github.com/sirupsen/logrus"
)

const defaultMaxOccurrencesPerEvent = 1000

var ErrInvalidRange = errors.New("range end is before range start")

// EventSource is the part of the events service the expander reads from.
type EventSource interface {
	FetchRange(ctx context.Context, from, to time.Time) ([]event.Event, error)
	FetchRecurring(ctx context.Context, until time.Time) ([]event.Event, error)
}

// Expander turns stored events into concrete occurrences inside a window.
type Expander struct {
	source      EventSource
	maxPerEvent int
}

func NewExpander(source EventSource, maxPerEvent int) *Expander {
	if maxPerEvent <= 0 {
		maxPerEvent = defaultMaxOccurrencesPerEvent
	}
	return &Expander{source: source, maxPerEvent: maxPerEvent}
}

// Expand returns one event copy per occurrence starting within [start, end].
// Each copy keeps the source id and duration with its start moved to the
// occurrence. Results are ordered by start, then id.
func (x *Expander) Expand(ctx context.Context, start, end time.Time) ([]event.Event, error) {
	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	singles, err := x.source.FetchRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	recurring, err := x.source.FetchRecurring(ctx, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recurring events: %w", err)
	}

	occurrences := make([]event.Event, 0, len(singles))
	for _, e := range singles {
		if e.IsRecurring() {
			continue
		}
		occurrences = append(occurrences, e)
	}
	for _, e := range recurring {
		occurrences = append(occurrences, x.expandRecurring(e, start, end)...)
	}

	sort.SliceStable(occurrences, func(i, j int) bool {
		if !occurrences[i].StartsAt.Equal(occurrences[j].StartsAt) {
			return occurrences[i].StartsAt.Before(occurrences[j].StartsAt)
		}
		return occurrences[i].Id.String() < occurrences[j].Id.String()
	})
	return occurrences, nil
}

func (x *Expander) expandRecurring(e event.Event, start, end time.Time) []event.Event {
	rule, err := e.Rule()
	if err != nil {
		log.Errorf("expand: skipping event %s: %v", e.Id, err)
		return nil
	}

	starts := rule.Between(start, end, true)
	if len(starts) > x.maxPerEvent {
		log.Warnf("expand: truncated occurrences for event %s at %d", e.Id, x.maxPerEvent)
		starts = starts[:x.maxPerEvent]
	}

	duration := e.Duration()
	out := make([]event.Event, 0, len(starts))
	for _, s := range starts {
		occ := e
		occ.StartsAt = s.UTC()
		if e.EndsAt != nil {
			endsAt := occ.StartsAt.Add(duration)
			occ.EndsAt = &endsAt
		}
		out = append(out, occ)
	}
	return out
}
