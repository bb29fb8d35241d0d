package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraft_ToEvent(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	t.Run("should convert local date and time to an instant", func(t *testing.T) {
		// given
		draft := Draft{Date: "2025-04-01", Time: "14:30", Title: "Rehearsal", Location: " Band room "}

		// when
		e, err := draft.ToEvent(denver)

		// then
		require.NoError(t, err)
		expected := time.Date(2025, 4, 1, 14, 30, 0, 0, denver)
		assert.True(t, expected.Equal(e.StartsAt))
		assert.Equal(t, "2025-04-01T20:30:00Z", e.StartsAt.Format(time.RFC3339))
		assert.False(t, e.IsAllDay)
		assert.True(t, e.IsPublic)
		assert.Equal(t, "Band room", e.Location)
		assert.Equal(t, "America/Denver", e.Timezone)
		assert.Nil(t, e.EndsAt)
	})

	t.Run("should create all-day event at midnight UTC without time", func(t *testing.T) {
		e, err := Draft{Date: "2025-04-01", Title: "Banquet"}.ToEvent(denver)

		require.NoError(t, err)
		assert.True(t, e.IsAllDay)
		assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), e.StartsAt)
	})

	t.Run("should require date and title", func(t *testing.T) {
		_, err := Draft{Date: "2025-04-01", Title: "  "}.ToEvent(denver)
		assert.ErrorIs(t, err, ErrDraftIncomplete)

		_, err = Draft{Title: "Banquet"}.ToEvent(denver)
		assert.ErrorIs(t, err, ErrDraftIncomplete)
	})

	t.Run("should reject malformed date or time", func(t *testing.T) {
		_, err := Draft{Date: "04/01/2025", Title: "Banquet"}.ToEvent(denver)
		assert.ErrorIs(t, err, ErrDraftInvalid)

		_, err = Draft{Date: "2025-04-01", Time: "2pm", Title: "Banquet"}.ToEvent(denver)
		assert.ErrorIs(t, err, ErrDraftInvalid)
	})

	t.Run("should default to UTC without location", func(t *testing.T) {
		e, err := Draft{Date: "2025-04-01", Time: "09:00", Title: "Clinic"}.ToEvent(nil)

		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC), e.StartsAt)
		assert.Equal(t, "UTC", e.Timezone)
	})
}

func TestEvent_Rule(t *testing.T) {
	t.Run("should anchor recurrence at the start in the event timezone", func(t *testing.T) {
		// given
		e := Event{
			Title:    "Marching practice",
			StartsAt: time.Date(2025, 9, 2, 21, 30, 0, 0, time.UTC), // 15:30 in Denver
			RRule:    "RRULE:FREQ=WEEKLY;COUNT=3",
			Timezone: "America/Denver",
		}

		// when
		rule, err := e.Rule()

		// then
		require.NoError(t, err)
		starts := rule.All()
		require.Len(t, starts, 3)
		for _, s := range starts {
			assert.Equal(t, 15, s.Hour())
			assert.Equal(t, 30, s.Minute())
		}
	})

	t.Run("should reject malformed rule", func(t *testing.T) {
		_, err := Event{StartsAt: time.Now(), RRule: "FREQ=SOMETIMES"}.Rule()
		assert.ErrorIs(t, err, ErrInvalidEvent)
	})

	t.Run("should reject event without rule", func(t *testing.T) {
		_, err := Event{StartsAt: time.Now()}.Rule()
		assert.ErrorIs(t, err, ErrInvalidEvent)
	})
}

func TestEvent_TimeLocation(t *testing.T) {
	t.Run("should keep the venue apart from the timezone", func(t *testing.T) {
		e := Event{Location: "Stadium", Timezone: "America/Denver"}

		assert.Equal(t, "Stadium", e.Location)
		assert.Equal(t, "America/Denver", e.TimeLocation().String())
	})

	t.Run("should fall back to UTC", func(t *testing.T) {
		assert.Equal(t, time.UTC, Event{}.TimeLocation())
		assert.Equal(t, time.UTC, Event{Timezone: "Nowhere/Special"}.TimeLocation())
	})
}

func TestFromRecord(t *testing.T) {
	t.Run("should default is_public and timezone", func(t *testing.T) {
		e, err := FromRecord(Record{Title: "Concert", StartsAt: time.Date(2025, 3, 14, 19, 0, 0, 0, time.UTC)})

		require.NoError(t, err)
		assert.True(t, e.IsPublic)
		assert.Equal(t, "UTC", e.Timezone)
	})

	t.Run("should reject malformed id", func(t *testing.T) {
		_, err := FromRecord(Record{Id: "42", Title: "Concert"})
		assert.Error(t, err)
	})
}
