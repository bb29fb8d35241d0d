package calendar

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/oremband/oremband/pkg/occurrence"
	log "github.com/sirupsen/logrus"
)

var csvHeader = []string{"Date", "Start", "Duration", "Title", "Location", "Description"}

// RenderCSV writes one row per occurrence with local start times in loc.
func RenderCSV(occurrences []occurrence.Occurrence, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	if err := writer.Write(csvHeader); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}
	for _, occ := range occurrences {
		start := "All day"
		if !occ.IsAllDay {
			start = occ.StartsAt.In(loc).Format("15:04")
		}
		duration := ""
		if occ.EndsAt != nil {
			duration = durationToString(occ.EndsAt.Sub(occ.StartsAt))
		}
		row := []string{occ.Date, start, duration, occ.Title, occ.Location, occ.Description}
		if err := writer.Write(row); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}
	return b.String(), nil
}

// durationToString formats as HH:MM:SS; hours may exceed 24.
func durationToString(d time.Duration) string {
	d = d.Round(time.Second)
	hours := int(d / time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)
	seconds := int(d%time.Minute) / int(time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// ExportCSV godoc
// @Summary Loaded occurrences of the current period as CSV
// @Tags Calendar
// @Produce text/csv
// @Success 200 {string} string "CSV document"
// @Router /api/calendar/export.csv [get]
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	body, err := RenderCSV(h.controller.Occurrences(), h.controller.location)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.csv"`)
	_, _ = w.Write([]byte(body))
}
