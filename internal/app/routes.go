package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/oremband/oremband/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Expansion function
	if deps.ExpansionHandler != nil {
		r.HandleFunc("/functions/v1/expand-rrules", deps.ExpansionHandler.ExpandRRules).Methods("GET")
	}

	// Events table
	if deps.EventHandler != nil {
		r.HandleFunc("/api/events", deps.EventHandler.GetEvents).Queries("from", "{from}", "to", "{to}").Methods("GET")
		r.Handle("/api/events", deps.AdminGate.Require(http.HandlerFunc(deps.EventHandler.CreateEvent))).Methods("POST")
		r.Handle("/api/events/{eventId}", deps.AdminGate.Require(http.HandlerFunc(deps.EventHandler.DeleteEvent))).Methods("DELETE")
	}

	// Calendar view
	r.HandleFunc("/api/calendar", deps.CalendarHandler.GetCalendar).Methods("GET")
	r.HandleFunc("/api/calendar/day/{date}", deps.CalendarHandler.GetDay).Methods("GET")
	r.HandleFunc("/api/calendar/day", deps.CalendarHandler.CloseDay).Methods("DELETE")
	r.HandleFunc("/api/calendar/upcoming", deps.CalendarHandler.GetUpcoming).Methods("GET")
	r.HandleFunc("/api/calendar/export.csv", deps.CalendarHandler.ExportCSV).Methods("GET")
	r.HandleFunc("/api/calendar/navigate/{direction}", deps.CalendarHandler.Navigate).Methods("POST")
	r.HandleFunc("/api/calendar/view/{view}", deps.CalendarHandler.SetView).Methods("PUT")
	r.HandleFunc("/calendar", deps.CalendarHandler.Page).Methods("GET")
	r.HandleFunc("/calendar/navigate/{direction}", deps.CalendarHandler.PageNavigate).Methods("POST")
	r.HandleFunc("/calendar/view/{view}", deps.CalendarHandler.PageSetView).Methods("POST")
	r.Handle("/calendar/events/{eventId}/delete", deps.AdminGate.Require(http.HandlerFunc(deps.CalendarHandler.PageDeleteEvent))).Methods("POST")
	r.HandleFunc("/calendar.ics", deps.CalendarFeed.ServeICS).Methods("GET")

	// Admin
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(deps.AdminGate.Require)
	admin.HandleFunc("/events", deps.CalendarHandler.CreateEvent).Methods("POST")
	admin.HandleFunc("/events/{eventId}", deps.CalendarHandler.DeleteEvent).Methods("DELETE")
}
