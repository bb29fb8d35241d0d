package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/oremband/oremband/internal/config"
	"github.com/oremband/oremband/internal/database"
	"github.com/oremband/oremband/pkg/calendar"
	"github.com/oremband/oremband/pkg/event"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Application wires configuration, database, router, and server lifecycle.
type Application struct {
	cfg       config.Application
	router    *mux.Router
	srv       *http.Server
	deps      *Dependencies
	scheduler *cron.Cron
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication() (*Application, error) {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		return nil, err
	}

	// DB + migrations. An unreachable database leaves the calendar read-only.
	db, err := database.OpenWithRetry(context.Background(), cfg.Database)
	if err != nil {
		log.Warnf("starting without the events database: %v", err)
		db = nil
	} else if err := database.Migrate(cfg.Database); err != nil {
		db.Close()
		return nil, err
	}

	r := mux.NewRouter()

	// Build dependencies (services, handlers...)
	deps := BuildDependencies(db, cfg)

	// Middleware chain
	SetupMiddleware(r, deps, cfg)

	// Routes
	RegisterRoutes(r, deps, cfg)

	scheduler, err := NewResyncScheduler(context.Background(), cfg.Calendar.Resync, deps.CalendarController)
	if err != nil {
		deps.Close()
		return nil, err
	}

	srv := &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, router: r, srv: srv, deps: deps, scheduler: scheduler}, nil
}

// Run starts the HTTP server and the background workers, and blocks until
// the process is interrupted or the server fails.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", a.srv.Addr)
	if err != nil {
		return err
	}
	log.Infof("Starting server on %s", a.srv.Addr)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.srv.Serve(listener)
	}()

	feedDone := make(chan struct{})
	if a.deps.ChangeFeed != nil {
		go func() {
			defer close(feedDone)
			a.runChangeFeed(ctx)
		}()
	} else {
		close(feedDone)
	}
	a.scheduler.Start()

	// the expansion function is served by this process, so load after listening
	if err := a.deps.CalendarController.LoadEvents(ctx); err != nil && !errors.Is(err, calendar.ErrLoadInProgress) {
		log.Warnf("initial calendar load failed: %v", err)
	}

	select {
	case err := <-serveErr:
		a.shutdown(stop, feedDone)
		return err
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = a.srv.Shutdown(shutdownCtx)
	a.shutdown(stop, feedDone)
	return err
}

func (a *Application) runChangeFeed(ctx context.Context) {
	if err := a.deps.ChangeFeed.Run(ctx); err != nil {
		if errors.Is(err, event.ErrChangeFeedFailed) {
			log.Errorf("realtime updates stopped, relying on scheduled resync: %v", err)
			return
		}
		log.Errorf("change feed stopped: %v", err)
	}
}

// shutdown stops the workers and waits for the change feed to hand its
// connection back before the pool is closed.
func (a *Application) shutdown(stop context.CancelFunc, feedDone <-chan struct{}) {
	stop()
	<-feedDone
	<-a.scheduler.Stop().Done()
	a.deps.Close()
}
