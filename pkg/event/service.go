package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oremband/oremband/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

var ErrEventNotFound = errors.New("event not found")
var ErrInvalidEvent = errors.New("invalid event")

type Service interface {
	FetchRange(ctx context.Context, from, to time.Time) ([]Event, error)
	FetchRecurring(ctx context.Context, until time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	// Subscribe registers fn for every change of the events table.
	Subscribe(fn func(change event_bus.EventsChanged)) (unsubscribe func())
}

type ServiceImpl struct {
	repo     Repository
	eventBus *event_bus.EventBus
}

func NewService(repo Repository, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, eventBus: eventBus}
}

func (s *ServiceImpl) FetchRange(ctx context.Context, from, to time.Time) ([]Event, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end %s before start %s", ErrInvalidEvent, to, from)
	}
	events, err := s.repo.FetchRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	return events, nil
}

func (s *ServiceImpl) FetchRecurring(ctx context.Context, until time.Time) ([]Event, error) {
	events, err := s.repo.FetchRecurring(ctx, until)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recurring events: %w", err)
	}
	return events, nil
}

func (s *ServiceImpl) CreateEvent(ctx context.Context, event Event) (Event, error) {
	event.Title = strings.TrimSpace(event.Title)
	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	if event.Timezone == "" {
		event.Timezone = DefaultTimezone
	}
	if err := validate(event); err != nil {
		return Event{}, err
	}

	stored, err := s.repo.Insert(ctx, event)
	if err != nil {
		return Event{}, fmt.Errorf("failed to store event: %w", err)
	}
	log.Debugf("created event %s (%s) at %s", stored.Id, stored.Title, stored.StartsAt)
	return stored, nil
}

func (s *ServiceImpl) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if deleted == 0 {
		return ErrEventNotFound
	}
	log.Debugf("deleted event %s", id)
	return nil
}

func (s *ServiceImpl) Subscribe(fn func(change event_bus.EventsChanged)) (unsubscribe func()) {
	return event_bus.SubscribeTyped[event_bus.EventsChanged](
		s.eventBus,
		event_bus.TopicEventsChanged,
		func(e event_bus.EventT[event_bus.EventsChanged]) error {
			fn(e.Data)
			return nil
		},
	)
}

func validate(event Event) error {
	if event.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if event.StartsAt.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidEvent)
	}
	if event.EndsAt != nil && event.EndsAt.Before(event.StartsAt) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidEvent, event.EndsAt, event.StartsAt)
	}
	if _, err := time.LoadLocation(event.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidEvent, event.Timezone)
	}
	if event.IsRecurring() {
		if _, err := event.Rule(); err != nil {
			return err
		}
	}
	return nil
}
