package expansion

import (
	"net/http"
	"time"

	"github.com/oremband/oremband/internal/rest"
	"github.com/oremband/oremband/pkg/event"
	log "github.com/sirupsen/logrus"
)

// Response is the body of the expansion function.
type Response struct {
	Occurrences []event.Record `json:"occurrences"`
}

type Handler struct {
	expander *Expander
}

func NewHandler(expander *Expander) *Handler {
	return &Handler{expander: expander}
}

// ExpandRRules godoc
// @Summary Expand events into dated occurrences
// @Tags Functions
// @Produce json
// @Param start query string true "Window start in RFC3339 format"
// @Param end query string true "Window end in RFC3339 format"
// @Success 200 {object} Response
// @Failure 400 {object} rest.ErrorResponse "Invalid window"
// @Router /functions/v1/expand-rrules [get]
func (h *Handler) ExpandRRules(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid start format", "'start' must be in RFC3339 format")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid end format", "'end' must be in RFC3339 format")
		return
	}
	if end.Before(start) {
		rest.WriteError(w, http.StatusBadRequest, "Invalid window", ErrInvalidRange.Error())
		return
	}

	occurrences, err := h.expander.Expand(r.Context(), start, end)
	if err != nil {
		log.Errorf("expansion failed for %s..%s: %v", start, end, err)
		rest.WriteError(w, http.StatusInternalServerError, "Expansion failed", err.Error())
		return
	}

	records := make([]event.Record, 0, len(occurrences))
	for _, occ := range occurrences {
		records = append(records, event.ToRecord(occ))
	}
	log.Debugf("expanded %d occurrences for %s..%s", len(records), start.Format(time.RFC3339), end.Format(time.RFC3339))
	rest.WriteJSON(w, http.StatusOK, Response{Occurrences: records})
}
