package event

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type RepositoryStub struct {
	mu     sync.RWMutex
	events map[uuid.UUID]Event
	// Err, when set, is returned by every call.
	Err error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{events: make(map[uuid.UUID]Event)}
}

func (r *RepositoryStub) FetchRange(ctx context.Context, from, to time.Time) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}

	var result []Event
	for _, e := range r.events {
		if !e.StartsAt.Before(from) && !e.StartsAt.After(to) {
			result = append(result, e)
		}
	}
	sortByStart(result)
	return result, nil
}

func (r *RepositoryStub) FetchRecurring(ctx context.Context, until time.Time) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}

	var result []Event
	for _, e := range r.events {
		if e.IsRecurring() && !e.StartsAt.After(until) {
			result = append(result, e)
		}
	}
	sortByStart(result)
	return result, nil
}

func (r *RepositoryStub) Get(ctx context.Context, id uuid.UUID) (Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return Event{}, r.Err
	}
	e, ok := r.events[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return e, nil
}

func (r *RepositoryStub) Insert(ctx context.Context, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Event{}, r.Err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.events[event.Id] = event
	return event, nil
}

func (r *RepositoryStub) Delete(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	if _, ok := r.events[id]; !ok {
		return 0, nil
	}
	delete(r.events, id)
	return 1, nil
}

func (r *RepositoryStub) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = make(map[uuid.UUID]Event)
	r.Err = nil
}

func sortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
}
