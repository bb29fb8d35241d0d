package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oremband/oremband/internal/auth"
	"github.com/oremband/oremband/internal/config"
	"github.com/oremband/oremband/internal/event_bus"
	"github.com/oremband/oremband/internal/utils"
	"github.com/oremband/oremband/pkg/calendar"
	"github.com/oremband/oremband/pkg/event"
	"github.com/oremband/oremband/pkg/expansion"
	"github.com/oremband/oremband/pkg/occurrence"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Dependencies holds all services and handlers for the application. The
// database-backed members are nil when the database could not be reached.
type Dependencies struct {
	DB       *pgxpool.Pool
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	EventRepository *event.RepositoryImpl
	EventService    *event.ServiceImpl
	EventHandler    *event.Handler
	ChangeFeed      *event.ChangeFeed

	Expander         *expansion.Expander
	ExpansionHandler *expansion.Handler

	FunctionClient   *occurrence.FunctionClient
	OccurrenceSource *occurrence.FallbackSource

	CalendarController *calendar.Controller
	CalendarHandler    *calendar.Handler
	CalendarFeed       *calendar.Feed

	AdminGate *auth.Gate
}

// ReadOnly reports whether the application runs without the events database.
func (d *Dependencies) ReadOnly() bool {
	return d.DB == nil
}

// BuildDependencies initializes and wires all application services and handlers.
// db may be nil, in which case the calendar reads only from the expansion function.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{
		DB:       db,
		EventBus: event_bus.NewEventBus(),
		Clock:    utils.SystemClock{},
	}

	var backend calendar.Backend
	var table occurrence.RangeQuerier
	if db != nil {
		deps.EventRepository = event.NewRepository(db)
		deps.EventService = event.NewService(deps.EventRepository, deps.EventBus)
		deps.EventHandler = event.NewHandler(deps.EventService)
		deps.ChangeFeed = event.NewChangeFeed(event.PoolDialer(db), deps.EventBus,
			cfg.Calendar.RealtimeRetries, cfg.Calendar.RealtimeRetryDelay)

		deps.Expander = expansion.NewExpander(deps.EventService, cfg.Calendar.MaxOccurrences)
		deps.ExpansionHandler = expansion.NewHandler(deps.Expander)

		backend = deps.EventService
		table = deps.EventService
	} else {
		log.Warn("events database unavailable: calendar is read-only and served from the expansion function only")
	}

	deps.FunctionClient = occurrence.NewFunctionClient(cfg.Functions.ExpandURL, cfg.Functions.Timeout, serviceTokens(cfg.Functions))
	deps.OccurrenceSource = occurrence.NewFallbackSource(deps.FunctionClient, table)

	view, err := calendar.ParseView(cfg.Calendar.DefaultView)
	if err != nil {
		log.Warnf("%v, using month view", err)
		view = calendar.ViewMonth
	}
	deps.CalendarController = calendar.NewController(deps.OccurrenceSource, backend, calendar.Options{
		View:     view,
		Location: cfg.Calendar.Location(),
		Debounce: cfg.Calendar.RealtimeDebounce,
		Clock:    deps.Clock,
	})
	deps.CalendarController.OnChange(func(version uint64) {
		log.Debugf("calendar re-rendered (version %d)", version)
	})
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarController)
	deps.CalendarFeed = calendar.NewFeed(deps.OccurrenceSource, deps.Clock, cfg.Calendar.FeedName)

	deps.AdminGate = auth.NewGate(cfg.Admin)

	return deps
}

// serviceTokens returns a static bearer source for the expansion function, or
// nil when no token is configured.
func serviceTokens(cfg config.Functions) oauth2.TokenSource {
	if cfg.ServiceToken == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.ServiceToken, TokenType: "Bearer"})
}

// Close releases long-lived resources.
func (d *Dependencies) Close() {
	d.CalendarController.Close()
	if d.DB != nil {
		d.DB.Close()
	}
}
