package calendar

import (
	"time"

	"github.com/oremband/oremband/pkg/occurrence"
)

const (
	monthPreviewLimit = 1
	weekPreviewLimit  = 4
)

var weekdayHeaders = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type ViewModel struct {
	View        View        `json:"view"`
	Title       string      `json:"title"`
	PeriodStart string      `json:"periodStart"`
	PeriodEnd   string      `json:"periodEnd"`
	Weekdays    []string    `json:"weekdays"`
	Cells       []Cell      `json:"cells,omitempty"`
	Agenda      []AgendaDay `json:"agenda,omitempty"`
	Popover     *Popover    `json:"popover,omitempty"`
	Banner      string      `json:"banner,omitempty"`
	ReadOnly    bool        `json:"readOnly"`
	Version     uint64      `json:"version"`
}

// Cell is one slot of the month or week grid. Empty cells pad the grid
// before the first day of the period.
type Cell struct {
	Empty     bool                    `json:"empty"`
	Date      string                  `json:"date,omitempty"`
	Day       int                     `json:"day,omitempty"`
	HasEvents bool                    `json:"hasEvents"`
	IsToday   bool                    `json:"isToday"`
	Previews  []occurrence.Occurrence `json:"previews,omitempty"`
	More      int                     `json:"more,omitempty"`
}

type AgendaDay struct {
	Date        string                  `json:"date"`
	Occurrences []occurrence.Occurrence `json:"occurrences"`
}

// Popover lists every occurrence of one day.
type Popover struct {
	Date        string                  `json:"date"`
	Occurrences []occurrence.Occurrence `json:"occurrences"`
}

func previewLimit(view View) int {
	if view == ViewWeek {
		return weekPreviewLimit
	}
	return monthPreviewLimit
}

func renderGrid(view View, cursor Cursor, index DateIndex, today string) []Cell {
	var first time.Time
	var days int
	if view == ViewWeek {
		first = cursor.WeekStart
		days = 7
	} else {
		first = time.Date(cursor.Year, cursor.Month, 1, 0, 0, 0, 0, time.UTC)
		days = first.AddDate(0, 1, -1).Day()
	}

	leading := int(first.Weekday())
	cells := make([]Cell, 0, leading+days)
	for i := 0; i < leading; i++ {
		cells = append(cells, Cell{Empty: true})
	}

	limit := previewLimit(view)
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		date := day.Format(occurrence.DateLayout)
		list := index.On(date)
		cell := Cell{
			Date:      date,
			Day:       day.Day(),
			HasEvents: len(list) > 0,
			IsToday:   date == today,
		}
		if len(list) > limit {
			cell.Previews = list[:limit]
			cell.More = len(list) - limit
		} else if len(list) > 0 {
			cell.Previews = list
		}
		cells = append(cells, cell)
	}
	return cells
}

func renderAgenda(cursor Cursor, index DateIndex) []AgendaDay {
	start, end := cursor.Period(ViewAgenda)
	from := start.Format(occurrence.DateLayout)
	to := end.Format(occurrence.DateLayout)

	agenda := make([]AgendaDay, 0)
	for _, date := range index.Dates() {
		if date < from || date > to {
			continue
		}
		agenda = append(agenda, AgendaDay{Date: date, Occurrences: index.On(date)})
	}
	return agenda
}
