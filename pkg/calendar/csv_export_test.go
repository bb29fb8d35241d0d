package calendar

import (
	"net/http"
	"testing"
	"time"

	"github.com/oremband/oremband/pkg/event"
	"github.com/oremband/oremband/pkg/occurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCSV(t *testing.T) {
	t.Run("should write one row per occurrence in local time", func(t *testing.T) {
		// given
		denver, err := time.LoadLocation("America/Denver")
		require.NoError(t, err)
		end := time.Date(2025, 3, 14, 3, 30, 0, 0, time.UTC)
		location := "Auditorium, main stage"
		occurrences := []occurrence.Occurrence{
			occurrence.Normalize(event.Record{Id: eventA, Title: "Jazz festival", StartsAt: time.Date(2025, 3, 14, 1, 0, 0, 0, time.UTC), EndsAt: &end, Location: &location}),
			occurrence.Normalize(event.Record{Id: eventB, Title: "Banquet", StartsAt: time.Date(2025, 3, 22, 0, 0, 0, 0, time.UTC), IsAllDay: true}),
		}

		// when
		body, err := RenderCSV(occurrences, denver)

		// then
		require.NoError(t, err)
		assert.Equal(t,
			"Date,Start,Duration,Title,Location,Description\n"+
				"2025-03-14,19:00,02:30:00,Jazz festival,\"Auditorium, main stage\",\n"+
				"2025-03-22,All day,,Banquet,,\n",
			body)
	})

	t.Run("should write only the header without occurrences", func(t *testing.T) {
		body, err := RenderCSV(nil, nil)

		require.NoError(t, err)
		assert.Equal(t, "Date,Start,Duration,Title,Location,Description\n", body)
	})
}

func TestHandler_ExportCSV(t *testing.T) {
	// given
	router, test := setupHandlerTest(t)
	router.HandleFunc("/api/calendar/export.csv", NewHandler(test.controller).ExportCSV).Methods("GET")

	// when
	rr := serve(router, http.MethodGet, "/api/calendar/export.csv", nil)

	// then
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "Pep band")
	assert.Contains(t, rr.Body.String(), "Jazz festival")
}

func TestDurationToString(t *testing.T) {
	t.Run("should pad each part to two digits", func(t *testing.T) {
		assert.Equal(t, "00:00:00", durationToString(0))
		assert.Equal(t, "02:30:05", durationToString(2*time.Hour+30*time.Minute+5*time.Second))
	})

	t.Run("should keep hours beyond a day", func(t *testing.T) {
		assert.Equal(t, "26:00:00", durationToString(26*time.Hour))
	})
}
