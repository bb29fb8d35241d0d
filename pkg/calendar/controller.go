package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oremband/oremband/internal/event_bus"
	"github.com/oremband/oremband/internal/utils"
	"github.com/oremband/oremband/pkg/event"
	"github.com/oremband/oremband/pkg/occurrence"
	log "github.com/sirupsen/logrus"
)

const (
	bannerDuration  = 5 * time.Second
	defaultDebounce = 300 * time.Millisecond
	loadFailedText  = "Could not load events. Showing the last loaded calendar."
)

var (
	ErrLoadInProgress     = errors.New("a calendar load is already in progress")
	ErrBackendUnavailable = errors.New("events backend is not available")
	ErrUnknownView        = errors.New("unknown calendar view")
	ErrInvalidDate        = errors.New("invalid calendar date")
	ErrControllerClosed   = errors.New("calendar controller is closed")
)

// Backend is the mutation side of the events table.
type Backend interface {
	CreateEvent(ctx context.Context, e event.Event) (event.Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	Subscribe(fn func(change event_bus.EventsChanged)) (unsubscribe func())
}

type Options struct {
	View     View
	Location *time.Location
	// Debounce coalesces insert and update notifications into one reload.
	Debounce time.Duration
	Clock    utils.Clock
}

type banner struct {
	message string
	expires time.Time
}

type listener struct {
	id uint64
	fn func(version uint64)
}

// Controller keeps the state of one calendar: the active view, the cursors,
// the loaded occurrences and the open day. Loads run outside the lock and a
// load requested while another is in flight is rejected.
type Controller struct {
	source   occurrence.Source
	backend  Backend
	clock    utils.Clock
	location *time.Location
	debounce time.Duration

	mu          sync.Mutex
	view        View
	cursor      Cursor
	store       *Store
	loading     bool
	openDate    string
	banner      banner
	version     uint64
	listeners   []listener
	nextId      uint64
	reloadTimer *time.Timer
	unsubscribe func()
	closed      bool

	// deletedDuringLoad holds events deleted while a fetch was in flight.
	deletedDuringLoad map[string]struct{}
}

// NewController builds a controller and subscribes it to backend changes.
// backend may be nil, in which case the calendar is read-only.
func NewController(source occurrence.Source, backend Backend, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.View == "" {
		opts.View = ViewMonth
	}

	c := &Controller{
		source:   source,
		backend:  backend,
		clock:    opts.Clock,
		location: opts.Location,
		debounce: opts.Debounce,
		view:     opts.View,
		cursor:   CursorAt(opts.Clock.Now().In(opts.Location)),
		store:    NewStore(),
	}
	if backend != nil {
		c.unsubscribe = backend.Subscribe(c.handleChange)
	} else {
		log.Warn("events backend unavailable, calendar is read-only")
	}
	return c
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Controller) Cursor() Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

func (c *Controller) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// OnChange registers fn to run after every re-render.
func (c *Controller) OnChange(fn func(version uint64)) (remove func()) {
	c.mu.Lock()
	c.nextId++
	id := c.nextId
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, l := range c.listeners {
				if l.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

func (c *Controller) NavigatePrev(ctx context.Context) error {
	return c.transition(ctx, func() { c.cursor = c.cursor.Prev(c.view) })
}

func (c *Controller) NavigateNext(ctx context.Context) error {
	return c.transition(ctx, func() { c.cursor = c.cursor.Next(c.view) })
}

func (c *Controller) GoToToday(ctx context.Context) error {
	return c.transition(ctx, func() { c.cursor = CursorAt(c.today()) })
}

func (c *Controller) SetView(ctx context.Context, view View) error {
	if _, err := ParseView(string(view)); err != nil {
		return err
	}
	return c.transition(ctx, func() { c.view = view })
}

// transition applies change, closes the popover and reloads the new period.
func (c *Controller) transition(ctx context.Context, change func()) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	change()
	c.openDate = ""
	c.mu.Unlock()
	return c.LoadEvents(ctx)
}

// LoadEvents fetches the occurrences of the current period and re-renders.
// On a read error the previous occurrences stay and a banner is shown.
func (c *Controller) LoadEvents(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	if c.loading {
		c.mu.Unlock()
		log.Debug("calendar load already in progress, dropping request")
		return ErrLoadInProgress
	}
	c.loading = true
	start, end := c.cursor.Period(c.view)
	c.mu.Unlock()

	occurrences, err := c.source.FetchOccurrences(ctx, start, end)

	c.mu.Lock()
	c.loading = false
	deleted := c.deletedDuringLoad
	c.deletedDuringLoad = nil
	if err != nil {
		log.Errorf("failed to load calendar %s..%s: %v", start.Format(time.RFC3339), end.Format(time.RFC3339), err)
		c.banner = banner{message: loadFailedText, expires: c.clock.Now().Add(bannerDuration)}
	} else {
		c.store.Replace(withoutEvents(occurrences, deleted))
		log.Debugf("calendar loaded %d occurrences for %s..%s", c.store.Len(), start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	notify := c.bumpLocked()
	c.mu.Unlock()

	notify()
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	return nil
}

// Refresh reloads the current period without changing the view.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.LoadEvents(ctx)
}

func (c *Controller) Render() ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := BuildIndex(c.store.All())
	start, end := c.cursor.Period(c.view)
	vm := ViewModel{
		View:        c.view,
		Title:       c.cursor.Title(c.view),
		PeriodStart: start.Format(occurrence.DateLayout),
		PeriodEnd:   end.Format(occurrence.DateLayout),
		Weekdays:    weekdayHeaders,
		ReadOnly:    c.backend == nil,
		Version:     c.version,
	}
	if c.view == ViewAgenda {
		vm.Agenda = renderAgenda(c.cursor, index)
	} else {
		vm.Cells = renderGrid(c.view, c.cursor, index, c.today().Format(occurrence.DateLayout))
	}
	if c.openDate != "" {
		vm.Popover = &Popover{Date: c.openDate, Occurrences: nonNil(index.On(c.openDate))}
	}
	if c.banner.message != "" && c.clock.Now().Before(c.banner.expires) {
		vm.Banner = c.banner.message
	}
	return vm
}

// OpenDay opens the popover of date (YYYY-MM-DD).
func (c *Controller) OpenDay(date string) (Popover, error) {
	if _, err := time.Parse(occurrence.DateLayout, date); err != nil {
		return Popover{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	c.mu.Lock()
	c.openDate = date
	popover := Popover{Date: date, Occurrences: nonNil(BuildIndex(c.store.All()).On(date))}
	notify := c.bumpLocked()
	c.mu.Unlock()

	notify()
	return popover, nil
}

func (c *Controller) CloseDay() {
	c.mu.Lock()
	if c.openDate == "" {
		c.mu.Unlock()
		return
	}
	c.openDate = ""
	notify := c.bumpLocked()
	c.mu.Unlock()
	notify()
}

// CreateEvent stores a new event built from draft and reloads the calendar.
// Nothing changes locally when the insert fails.
func (c *Controller) CreateEvent(ctx context.Context, draft event.Draft) (event.Event, error) {
	if c.backend == nil {
		return event.Event{}, ErrBackendUnavailable
	}
	e, err := draft.ToEvent(c.location)
	if err != nil {
		return event.Event{}, err
	}
	created, err := c.backend.CreateEvent(ctx, e)
	if err != nil {
		return event.Event{}, fmt.Errorf("failed to create event %q: %w", e.Title, err)
	}
	c.reloadAfterMutation(ctx)
	return created, nil
}

func (c *Controller) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if c.backend == nil {
		return ErrBackendUnavailable
	}
	if err := c.backend.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	c.reloadAfterMutation(ctx)
	return nil
}

func (c *Controller) reloadAfterMutation(ctx context.Context) {
	if err := c.LoadEvents(ctx); err != nil && !errors.Is(err, ErrLoadInProgress) {
		log.Warnf("calendar reload after mutation failed: %v", err)
	}
}

// Occurrences returns the loaded occurrences in start order.
func (c *Controller) Occurrences() []occurrence.Occurrence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.All()
}

// Upcoming returns the first n loaded occurrences dated today or later.
func (c *Controller) Upcoming(n int) []occurrence.Occurrence {
	if n <= 0 {
		return []occurrence.Occurrence{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	today := c.today().Format(occurrence.DateLayout)
	upcoming := make([]occurrence.Occurrence, 0, n)
	for _, occ := range c.store.All() {
		if len(upcoming) >= n {
			break
		}
		if occ.Date >= today {
			upcoming = append(upcoming, occ)
		}
	}
	return upcoming
}

// Close unsubscribes from the change feed and stops a pending reload.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.reloadTimer != nil {
		c.reloadTimer.Stop()
		c.reloadTimer = nil
	}
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.listeners = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Controller) handleChange(change event_bus.EventsChanged) {
	switch change.Type {
	case event_bus.ChangeDelete:
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		id := change.EventId.String()
		removed := c.store.RemoveEvent(id)
		if c.loading {
			if c.deletedDuringLoad == nil {
				c.deletedDuringLoad = make(map[string]struct{})
			}
			c.deletedDuringLoad[id] = struct{}{}
		}
		notify := c.bumpLocked()
		c.mu.Unlock()
		log.Debugf("calendar removed %d occurrences of deleted event %s", removed, change.EventId)
		notify()
	case event_bus.ChangeInsert, event_bus.ChangeUpdate:
		c.scheduleReload()
	}
}

func withoutEvents(occurrences []occurrence.Occurrence, eventIds map[string]struct{}) []occurrence.Occurrence {
	if len(eventIds) == 0 {
		return occurrences
	}
	kept := make([]occurrence.Occurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		if _, ok := eventIds[occ.OriginalEventId]; !ok {
			kept = append(kept, occ)
		}
	}
	return kept
}

func (c *Controller) scheduleReload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.reloadTimer != nil {
		c.reloadTimer.Stop()
	}
	c.reloadTimer = time.AfterFunc(c.debounce, func() {
		if err := c.LoadEvents(context.Background()); err != nil &&
			!errors.Is(err, ErrLoadInProgress) && !errors.Is(err, ErrControllerClosed) {
			log.Warnf("calendar realtime reload failed: %v", err)
		}
	})
}

// bumpLocked advances the render version and returns a func that notifies
// listeners. It must be called with mu held and the result run without it.
func (c *Controller) bumpLocked() func() {
	c.version++
	version := c.version
	listeners := make([]listener, len(c.listeners))
	copy(listeners, c.listeners)
	return func() {
		for _, l := range listeners {
			l.fn(version)
		}
	}
}

func (c *Controller) today() time.Time {
	return c.clock.Now().In(c.location)
}

func nonNil(list []occurrence.Occurrence) []occurrence.Occurrence {
	if list == nil {
		return []occurrence.Occurrence{}
	}
	return list
}
