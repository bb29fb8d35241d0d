package calendar

import (
	"fmt"
	"time"
)

type View string

const (
	ViewMonth  View = "month"
	ViewWeek   View = "week"
	ViewAgenda View = "agenda"
)

func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewMonth, ViewWeek, ViewAgenda:
		return View(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Cursor holds the visible period of each view. Month and agenda share the
// (Year, Month) cursor; week uses WeekStart, always a Sunday at 00:00 UTC.
type Cursor struct {
	Year      int
	Month     time.Month
	WeekStart time.Time
}

// CursorAt places both cursors on the period containing day.
func CursorAt(day time.Time) Cursor {
	return Cursor{
		Year:      day.Year(),
		Month:     day.Month(),
		WeekStart: startOfWeek(day),
	}
}

// Period returns the inclusive UTC window the view shows.
func (c Cursor) Period(view View) (start, end time.Time) {
	if view == ViewWeek {
		start = c.WeekStart
		return start, start.AddDate(0, 0, 7).Add(-time.Millisecond)
	}
	start = time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0).Add(-time.Millisecond)
}

func (c Cursor) Next(view View) Cursor {
	return c.shift(view, 1)
}

func (c Cursor) Prev(view View) Cursor {
	return c.shift(view, -1)
}

func (c Cursor) shift(view View, step int) Cursor {
	if view == ViewWeek {
		c.WeekStart = c.WeekStart.AddDate(0, 0, 7*step)
		return c
	}
	first := time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, step, 0)
	c.Year = first.Year()
	c.Month = first.Month()
	return c
}

// Title is the header label of the period.
func (c Cursor) Title(view View) string {
	if view == ViewWeek {
		end := c.WeekStart.AddDate(0, 0, 6)
		if c.WeekStart.Year() != end.Year() {
			return fmt.Sprintf("%s - %s", c.WeekStart.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
		}
		return fmt.Sprintf("%s - %s", c.WeekStart.Format("Jan 2"), end.Format("Jan 2, 2006"))
	}
	return fmt.Sprintf("%s %d", c.Month, c.Year)
}

// startOfWeek returns the Sunday on or before the calendar day of t.
func startOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}
