package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor(t *testing.T) {
	t.Run("should start weeks on Sunday", func(t *testing.T) {
		cursor := CursorAt(time.Date(2025, 3, 14, 22, 0, 0, 0, time.UTC)) // Friday

		assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), cursor.WeekStart)
		assert.Equal(t, 2025, cursor.Year)
		assert.Equal(t, time.March, cursor.Month)
	})

	t.Run("should use the local calendar day", func(t *testing.T) {
		denver, err := time.LoadLocation("America/Denver")
		require.NoError(t, err)

		// 2025-03-01 05:00 UTC is still February 28 in Denver
		cursor := CursorAt(time.Date(2025, 3, 1, 5, 0, 0, 0, time.UTC).In(denver))

		assert.Equal(t, time.February, cursor.Month)
		assert.Equal(t, time.Date(2025, 2, 23, 0, 0, 0, 0, time.UTC), cursor.WeekStart)
	})

	t.Run("should return to the original period after next then prev", func(t *testing.T) {
		for _, view := range []View{ViewMonth, ViewWeek, ViewAgenda} {
			for _, day := range []time.Time{
				time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			} {
				cursor := CursorAt(day)

				assert.Equal(t, cursor, cursor.Next(view).Prev(view), "view %s from %s", view, day)
			}
		}
	})

	t.Run("should roll months over year boundaries", func(t *testing.T) {
		cursor := CursorAt(time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC))

		next := cursor.Next(ViewMonth)

		assert.Equal(t, 2026, next.Year)
		assert.Equal(t, time.January, next.Month)
		assert.Equal(t, cursor.WeekStart, next.WeekStart)
	})

	t.Run("should cover the whole month", func(t *testing.T) {
		start, end := CursorAt(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)).Period(ViewMonth)

		assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, 999000000, time.UTC), end)
	})

	t.Run("should cover seven days in week view", func(t *testing.T) {
		start, end := CursorAt(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)).Period(ViewWeek)

		assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 3, 15, 23, 59, 59, 999000000, time.UTC), end)
	})

	t.Run("should title periods", func(t *testing.T) {
		assert.Equal(t, "March 2025", CursorAt(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)).Title(ViewMonth))
		assert.Equal(t, "Mar 9 - Mar 15, 2025", CursorAt(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)).Title(ViewWeek))
		assert.Equal(t, "Dec 28, 2025 - Jan 3, 2026", CursorAt(time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC)).Title(ViewWeek))
	})
}

func TestParseView(t *testing.T) {
	view, err := ParseView("agenda")
	require.NoError(t, err)
	assert.Equal(t, ViewAgenda, view)

	_, err = ParseView("year")
	assert.ErrorIs(t, err, ErrUnknownView)
}
