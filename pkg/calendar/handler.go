package calendar

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/oremband/oremband/internal/rest"
	"github.com/oremband/oremband/pkg/event"
	"github.com/oremband/oremband/pkg/occurrence"
	log "github.com/sirupsen/logrus"
)

const defaultUpcomingLimit = 5

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("calendar.html").Funcs(template.FuncMap{
	"clock": func(o occurrence.Occurrence) string {
		if o.IsAllDay {
			return "All day"
		}
		return o.StartsAt.Format("3:04 PM")
	},
	"views": func() []View { return []View{ViewMonth, ViewWeek, ViewAgenda} },
	"title": func(v View) string {
		s := string(v)
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}).ParseFS(templateFS, "templates/calendar.html"))

type Handler struct {
	controller *Controller
}

func NewHandler(controller *Controller) *Handler {
	return &Handler{controller: controller}
}

type pageData struct {
	ViewModel
	Upcoming []occurrence.Occurrence
}

// GetCalendar godoc
// @Summary Current calendar view
// @Tags Calendar
// @Produce json
// @Success 200 {object} ViewModel
// @Router /api/calendar [get]
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, h.controller.Render())
}

// GetDay godoc
// @Summary Open the popover of a day
// @Tags Calendar
// @Produce json
// @Param date path string true "Day in YYYY-MM-DD format"
// @Success 200 {object} Popover
// @Failure 400 {object} rest.ErrorResponse "Invalid date"
// @Router /api/calendar/day/{date} [get]
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	popover, err := h.controller.OpenDay(mux.Vars(r)["date"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid date", err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, popover)
}

// CloseDay godoc
// @Summary Close the day popover
// @Tags Calendar
// @Produce json
// @Success 200 {object} ViewModel
// @Router /api/calendar/day [delete]
func (h *Handler) CloseDay(w http.ResponseWriter, r *http.Request) {
	h.controller.CloseDay()
	rest.WriteJSON(w, http.StatusOK, h.controller.Render())
}

// GetUpcoming godoc
// @Summary Next loaded occurrences from today
// @Tags Calendar
// @Produce json
// @Param limit query int false "Maximum number of occurrences (default 5)"
// @Success 200 {array} occurrence.Occurrence
// @Failure 400 {object} rest.ErrorResponse "Invalid limit"
// @Router /api/calendar/upcoming [get]
func (h *Handler) GetUpcoming(w http.ResponseWriter, r *http.Request) {
	limit := defaultUpcomingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			rest.WriteError(w, http.StatusBadRequest, "Invalid limit", "'limit' must be a positive integer")
			return
		}
		limit = parsed
	}
	rest.WriteJSON(w, http.StatusOK, h.controller.Upcoming(limit))
}

// Navigate godoc
// @Summary Move the calendar to the previous, next or current period
// @Tags Calendar
// @Produce json
// @Param direction path string true "prev, next or today"
// @Success 200 {object} ViewModel
// @Failure 400 {object} rest.ErrorResponse "Unknown direction"
// @Router /api/calendar/navigate/{direction} [post]
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	navigate, ok := h.navigation(mux.Vars(r)["direction"])
	if !ok {
		rest.WriteError(w, http.StatusBadRequest, "Unknown direction", "direction must be prev, next or today")
		return
	}
	h.writeAfterTransition(w, navigate(r.Context()))
}

func (h *Handler) navigation(direction string) (func(ctx context.Context) error, bool) {
	switch direction {
	case "prev":
		return h.controller.NavigatePrev, true
	case "next":
		return h.controller.NavigateNext, true
	case "today":
		return h.controller.GoToToday, true
	}
	return nil, false
}

// SetView godoc
// @Summary Switch between month, week and agenda views
// @Tags Calendar
// @Produce json
// @Param view path string true "month, week or agenda"
// @Success 200 {object} ViewModel
// @Failure 400 {object} rest.ErrorResponse "Unknown view"
// @Router /api/calendar/view/{view} [put]
func (h *Handler) SetView(w http.ResponseWriter, r *http.Request) {
	view, err := ParseView(mux.Vars(r)["view"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Unknown view", err.Error())
		return
	}
	h.writeAfterTransition(w, h.controller.SetView(r.Context(), view))
}

// writeAfterTransition renders the view even when the reload failed; the
// view model then carries the banner and the previous occurrences.
func (h *Handler) writeAfterTransition(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrControllerClosed) {
		rest.WriteError(w, http.StatusServiceUnavailable, "Calendar closed", err.Error())
		return
	}
	if err != nil {
		log.Debugf("calendar transition: %v", err)
	}
	rest.WriteJSON(w, http.StatusOK, h.controller.Render())
}

// CreateEvent godoc
// @Summary Create a single event from the admin form
// @Tags Admin
// @Accept json
// @Produce json
// @Param draft body event.Draft true "Event draft"
// @Success 201 {object} event.Record
// @Failure 400 {object} rest.ErrorResponse "Invalid draft"
// @Failure 503 {object} rest.ErrorResponse "Backend unavailable"
// @Router /api/admin/events [post]
// @Security AdminBasicAuth
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var draft event.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	created, err := h.controller.CreateEvent(r.Context(), draft)
	if err != nil {
		writeMutationError(w, "Failed to create event", err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, event.ToRecord(created))
}

// DeleteEvent godoc
// @Summary Delete an event and all its occurrences
// @Tags Admin
// @Param eventId path string true "Event id"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Failure 503 {object} rest.ErrorResponse "Backend unavailable"
// @Router /api/admin/events/{eventId} [delete]
// @Security AdminBasicAuth
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["eventId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event id", err.Error())
		return
	}
	if err := h.controller.DeleteEvent(r.Context(), id); err != nil {
		writeMutationError(w, "Failed to delete event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeMutationError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ErrBackendUnavailable):
		rest.WriteError(w, http.StatusServiceUnavailable, message, err.Error())
	case errors.Is(err, event.ErrDraftIncomplete),
		errors.Is(err, event.ErrDraftInvalid),
		errors.Is(err, event.ErrInvalidEvent):
		rest.WriteError(w, http.StatusBadRequest, message, err.Error())
	case errors.Is(err, event.ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, message, err.Error())
	default:
		log.Errorf("%s: %v", message, err)
		rest.WriteError(w, http.StatusInternalServerError, message, err.Error())
	}
}

// Page renders the current view as HTML. A day query parameter opens its popover.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if day := r.URL.Query().Get("day"); day != "" {
		if _, err := h.controller.OpenDay(day); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	data := pageData{
		ViewModel: h.controller.Render(),
		Upcoming:  h.controller.Upcoming(defaultUpcomingLimit),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Errorf("failed to render calendar page: %v", err)
	}
}

// PageNavigate is the form variant of Navigate and redirects back to the page.
func (h *Handler) PageNavigate(w http.ResponseWriter, r *http.Request) {
	navigate, ok := h.navigation(mux.Vars(r)["direction"])
	if !ok {
		http.Error(w, "direction must be prev, next or today", http.StatusBadRequest)
		return
	}
	h.redirectAfterTransition(w, r, navigate(r.Context()))
}

// PageSetView is the form variant of SetView and redirects back to the page.
func (h *Handler) PageSetView(w http.ResponseWriter, r *http.Request) {
	view, err := ParseView(mux.Vars(r)["view"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.redirectAfterTransition(w, r, h.controller.SetView(r.Context(), view))
}

// PageDeleteEvent deletes from the popover form and reopens the day it came from.
func (h *Handler) PageDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["eventId"])
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}
	if err := h.controller.DeleteEvent(r.Context(), id); err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrBackendUnavailable):
			code = http.StatusServiceUnavailable
		case errors.Is(err, event.ErrEventNotFound):
			code = http.StatusNotFound
		default:
			log.Errorf("failed to delete event %s: %v", id, err)
		}
		http.Error(w, "Failed to delete event: "+err.Error(), code)
		return
	}
	http.Redirect(w, r, pageURL(r.FormValue("day")), http.StatusSeeOther)
}

func (h *Handler) redirectAfterTransition(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrControllerClosed) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		log.Debugf("calendar transition: %v", err)
	}
	http.Redirect(w, r, pageURL(""), http.StatusSeeOther)
}

// pageURL points at the calendar page, with the popover of day open when
// day is a valid date.
func pageURL(day string) string {
	if _, err := time.Parse(occurrence.DateLayout, day); err != nil {
		return "/calendar"
	}
	return "/calendar?" + url.Values{"day": {day}}.Encode()
}
