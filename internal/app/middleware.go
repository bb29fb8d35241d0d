package app

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/oremband/oremband/internal/config"
	log "github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Request logging
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			started := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, req)
			log.Debugf("%s %s -> %d (%s)", req.Method, req.URL.Path, rec.status, time.Since(started))
		})
	})

	// Mark responses served without the events database
	if deps.ReadOnly() {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.Header().Set("X-Calendar-Read-Only", "true")
				next.ServeHTTP(w, req)
			})
		})
	}
}
