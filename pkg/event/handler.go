package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/oremband/oremband/internal/rest"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetEvents godoc
// @Summary List events in a time range
// @Tags Events
// @Produce json
// @Param from query string true "Range start in RFC3339 format"
// @Param to query string true "Range end in RFC3339 format"
// @Success 200 {array} Record
// @Failure 400 {object} rest.ErrorResponse "Invalid date format"
// @Router /api/events [get]
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid from (date) format", "'from' must be in RFC3339 format")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid to (date) format", "'to' must be in RFC3339 format")
		return
	}

	events, err := h.service.FetchRange(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, ErrInvalidEvent) {
			rest.WriteError(w, http.StatusBadRequest, "Invalid range", err.Error())
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	records := make([]Record, 0, len(events))
	for _, e := range events {
		records = append(records, ToRecord(e))
	}
	rest.WriteJSON(w, http.StatusOK, records)
}

// CreateEvent godoc
// @Summary Create an event
// @Tags Events
// @Accept json
// @Produce json
// @Param event body Record true "Event"
// @Success 201 {object} Record
// @Failure 400 {object} rest.ErrorResponse "Invalid event"
// @Router /api/events [post]
// @Security AdminBasicAuth
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var record Record
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	e, err := FromRecord(record)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event", err.Error())
		return
	}

	created, err := h.service.CreateEvent(r.Context(), e)
	if err != nil {
		if errors.Is(err, ErrInvalidEvent) {
			rest.WriteError(w, http.StatusBadRequest, "Invalid event", err.Error())
			return
		}
		log.Errorf("failed to create event: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, ToRecord(created))
}

// DeleteEvent godoc
// @Summary Delete an event
// @Tags Events
// @Param eventId path string true "Event id"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/events/{eventId} [delete]
// @Security AdminBasicAuth
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["eventId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event id", err.Error())
		return
	}

	if err := h.service.DeleteEvent(r.Context(), id); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			rest.WriteError(w, http.StatusNotFound, "Event not found", id.String())
			return
		}
		log.Errorf("failed to delete event %s: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
