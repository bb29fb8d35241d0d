package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oremband/oremband/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

const ChangeChannel = "events_changes"

var ErrChangeFeedFailed = errors.New("change feed failed")

type FeedState string

const (
	FeedConnecting FeedState = "connecting"
	FeedSubscribed FeedState = "subscribed"
	FeedFailed     FeedState = "failed"
	FeedStopped    FeedState = "stopped"
)

// ListenConn is a connection subscribed to a notification channel.
type ListenConn interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context)
}

// Dialer opens a connection already listening on channel.
type Dialer func(ctx context.Context, channel string) (ListenConn, error)

// ChangeFeed relays row notifications of the events table onto the event bus.
type ChangeFeed struct {
	dial       Dialer
	eventBus   *event_bus.EventBus
	maxRetries int
	retryDelay time.Duration

	mu    sync.RWMutex
	state FeedState
}

func NewChangeFeed(dial Dialer, eventBus *event_bus.EventBus, maxRetries int, retryDelay time.Duration) *ChangeFeed {
	return &ChangeFeed{
		dial:       dial,
		eventBus:   eventBus,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		state:      FeedConnecting,
	}
}

func (f *ChangeFeed) State() FeedState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *ChangeFeed) setState(state FeedState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
}

// Run blocks until ctx is done or the feed gives up after maxRetries
// consecutive failed subscriptions. A successful subscription resets the count.
func (f *ChangeFeed) Run(ctx context.Context) error {
	failures := 0
	for {
		f.setState(FeedConnecting)
		err := f.listen(ctx, func() { failures = 0 })
		if ctx.Err() != nil {
			f.setState(FeedStopped)
			return nil
		}

		failures++
		if failures > f.maxRetries {
			f.setState(FeedFailed)
			log.Errorf("events change feed giving up after %d attempts: %v", failures, err)
			return fmt.Errorf("%w: %w", ErrChangeFeedFailed, err)
		}
		log.Warnf("events change feed interrupted (attempt %d/%d), resubscribing in %s: %v",
			failures, f.maxRetries, f.retryDelay, err)

		select {
		case <-ctx.Done():
			f.setState(FeedStopped)
			return nil
		case <-time.After(f.retryDelay):
		}
	}
}

func (f *ChangeFeed) listen(ctx context.Context, subscribed func()) error {
	conn, err := f.dial(ctx, ChangeChannel)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer conn.Close(context.Background())

	f.setState(FeedSubscribed)
	subscribed()
	log.Infof("events change feed subscribed to %s", ChangeChannel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		change, err := ParseChange(notification.Payload)
		if err != nil {
			log.Warnf("ignoring malformed change notification %q: %v", notification.Payload, err)
			continue
		}
		log.Debugf("events change: %s %s", change.Type, change.EventId)
		if err := f.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.TopicEventsChanged, change)); err != nil {
			log.Errorf("failed to publish events change: %v", err)
		}
	}
}

// ParseChange decodes a notification payload written by the events trigger.
func ParseChange(payload string) (event_bus.EventsChanged, error) {
	var raw struct {
		Type string `json:"type"`
		Id   string `json:"id"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return event_bus.EventsChanged{}, err
	}
	changeType := event_bus.ChangeType(raw.Type)
	switch changeType {
	case event_bus.ChangeInsert, event_bus.ChangeUpdate, event_bus.ChangeDelete:
	default:
		return event_bus.EventsChanged{}, fmt.Errorf("unknown change type %q", raw.Type)
	}
	id, err := uuid.Parse(raw.Id)
	if err != nil {
		return event_bus.EventsChanged{}, fmt.Errorf("invalid event id: %w", err)
	}
	return event_bus.EventsChanged{Type: changeType, EventId: id}, nil
}

type poolListenConn struct {
	conn *pgxpool.Conn
}

func (c *poolListenConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return c.conn.Conn().WaitForNotification(ctx)
}

func (c *poolListenConn) Close(ctx context.Context) {
	if _, err := c.conn.Exec(ctx, "UNLISTEN *"); err != nil {
		// the connection is broken; keep it out of the pool
		c.conn.Hijack().Close(ctx)
		return
	}
	c.conn.Release()
}

// PoolDialer listens on a connection borrowed from pool.
func PoolDialer(pool *pgxpool.Pool) Dialer {
	return func(ctx context.Context, channel string) (ListenConn, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
			conn.Release()
			return nil, err
		}
		return &poolListenConn{conn: conn}, nil
	}
}
