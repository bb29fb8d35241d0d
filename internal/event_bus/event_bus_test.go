package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_Publish(t *testing.T) {
	t.Run("should deliver in registration order", func(t *testing.T) {
		// given
		bus := NewEventBus()
		var calls []string
		bus.Subscribe(TopicEventsChanged, func(e Event) error { calls = append(calls, "first"); return nil })
		bus.Subscribe(TopicEventsChanged, func(e Event) error { calls = append(calls, "second"); return nil })

		// when
		err := bus.Publish(NewEvent(context.Background(), TopicEventsChanged, EventsChanged{Type: ChangeInsert}))

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, calls)
	})

	t.Run("should stop delivering after unsubscribe", func(t *testing.T) {
		bus := NewEventBus()
		calls := 0
		unsubscribe := bus.Subscribe(TopicEventsChanged, func(e Event) error { calls++; return nil })

		unsubscribe()
		unsubscribe()
		require.NoError(t, bus.Publish(NewEvent(context.Background(), TopicEventsChanged, nil)))

		assert.Equal(t, 0, calls)
		assert.Equal(t, 0, bus.SubscriberCount(TopicEventsChanged))
	})

	t.Run("should pass typed payloads and skip others", func(t *testing.T) {
		// given
		bus := NewEventBus()
		id := uuid.New()
		var received []EventsChanged
		SubscribeTyped[EventsChanged](bus, TopicEventsChanged, func(e EventT[EventsChanged]) error {
			received = append(received, e.Data)
			return nil
		})

		// when
		require.NoError(t, bus.Publish(NewEvent(context.Background(), TopicEventsChanged, "not a change")))
		require.NoError(t, bus.Publish(NewEvent(context.Background(), TopicEventsChanged, EventsChanged{Type: ChangeDelete, EventId: id})))

		// then
		require.Len(t, received, 1)
		assert.Equal(t, ChangeDelete, received[0].Type)
		assert.Equal(t, id, received[0].EventId)
	})

	t.Run("should collect handler errors and panics", func(t *testing.T) {
		// given
		bus := NewEventBus()
		reached := false
		bus.Subscribe(TopicEventsChanged, func(e Event) error { return errors.New("boom") })
		bus.Subscribe(TopicEventsChanged, func(e Event) error { panic("handler exploded") })
		bus.Subscribe(TopicEventsChanged, func(e Event) error { reached = true; return nil })

		// when
		err := bus.Publish(NewEvent(context.Background(), TopicEventsChanged, nil))

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 handler(s) failed")
		assert.True(t, reached)
	})

	t.Run("should not publish with a cancelled context", func(t *testing.T) {
		bus := NewEventBus()
		calls := 0
		bus.Subscribe(TopicEventsChanged, func(e Event) error { calls++; return nil })
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := bus.Publish(NewEvent(ctx, TopicEventsChanged, nil))

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, calls)
	})
}
