package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oremband/oremband/internal/event_bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListenConn struct {
	notifications chan *pgconn.Notification
	closed        chan struct{}
	closeOnce     sync.Once
}

func newFakeListenConn() *fakeListenConn {
	return &fakeListenConn{
		notifications: make(chan *pgconn.Notification, 8),
		closed:        make(chan struct{}),
	}
}

func (c *fakeListenConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case n, ok := <-c.notifications:
		if !ok {
			return nil, errors.New("connection lost")
		}
		return n, nil
	}
}

func (c *fakeListenConn) Close(ctx context.Context) {
	c.closeOnce.Do(func() { close(c.closed) })
}

func TestParseChange(t *testing.T) {
	id := uuid.New()

	t.Run("should parse trigger payload", func(t *testing.T) {
		change, err := ParseChange(`{"type":"UPDATE","id":"` + id.String() + `"}`)

		require.NoError(t, err)
		assert.Equal(t, event_bus.EventsChanged{Type: event_bus.ChangeUpdate, EventId: id}, change)
	})

	t.Run("should reject unknown operation", func(t *testing.T) {
		_, err := ParseChange(`{"type":"TRUNCATE","id":"` + id.String() + `"}`)
		assert.Error(t, err)
	})

	t.Run("should reject malformed payload", func(t *testing.T) {
		_, err := ParseChange(`not json`)
		assert.Error(t, err)
	})
}

func TestChangeFeed_Run(t *testing.T) {
	t.Run("should publish notifications and skip malformed ones", func(t *testing.T) {
		// given
		bus := event_bus.NewEventBus()
		changes := make(chan event_bus.EventsChanged, 4)
		event_bus.SubscribeTyped[event_bus.EventsChanged](bus, event_bus.TopicEventsChanged,
			func(e event_bus.EventT[event_bus.EventsChanged]) error {
				changes <- e.Data
				return nil
			})
		conn := newFakeListenConn()
		feed := NewChangeFeed(func(ctx context.Context, channel string) (ListenConn, error) {
			assert.Equal(t, ChangeChannel, channel)
			return conn, nil
		}, bus, 3, time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- feed.Run(ctx) }()
		id := uuid.New()

		// when
		conn.notifications <- &pgconn.Notification{Payload: "garbage"}
		conn.notifications <- &pgconn.Notification{Payload: `{"type":"DELETE","id":"` + id.String() + `"}`}

		// then
		assert.Equal(t, event_bus.EventsChanged{Type: event_bus.ChangeDelete, EventId: id}, <-changes)
		assert.Equal(t, FeedSubscribed, feed.State())
		cancel()
		assert.NoError(t, <-done)
		assert.Equal(t, FeedStopped, feed.State())
		<-conn.closed
	})

	t.Run("should resubscribe after connection loss", func(t *testing.T) {
		// given
		bus := event_bus.NewEventBus()
		changes := make(chan event_bus.EventsChanged, 4)
		event_bus.SubscribeTyped[event_bus.EventsChanged](bus, event_bus.TopicEventsChanged,
			func(e event_bus.EventT[event_bus.EventsChanged]) error {
				changes <- e.Data
				return nil
			})
		first, second := newFakeListenConn(), newFakeListenConn()
		var mu sync.Mutex
		dials := 0
		feed := NewChangeFeed(func(ctx context.Context, channel string) (ListenConn, error) {
			mu.Lock()
			defer mu.Unlock()
			dials++
			if dials == 1 {
				return first, nil
			}
			return second, nil
		}, bus, 1, time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go feed.Run(ctx)
		id := uuid.New()

		// when
		close(first.notifications)
		second.notifications <- &pgconn.Notification{Payload: `{"type":"INSERT","id":"` + id.String() + `"}`}

		// then
		assert.Equal(t, event_bus.EventsChanged{Type: event_bus.ChangeInsert, EventId: id}, <-changes)
		mu.Lock()
		assert.Equal(t, 2, dials)
		mu.Unlock()
	})

	t.Run("should fail after exhausting retries", func(t *testing.T) {
		// given
		dialErr := errors.New("connection refused")
		feed := NewChangeFeed(func(ctx context.Context, channel string) (ListenConn, error) {
			return nil, dialErr
		}, event_bus.NewEventBus(), 2, time.Millisecond)

		// when
		err := feed.Run(context.Background())

		// then
		assert.ErrorIs(t, err, ErrChangeFeedFailed)
		assert.ErrorIs(t, err, dialErr)
		assert.Equal(t, FeedFailed, feed.State())
	})
}
