package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oremband/oremband/internal/config"
	"github.com/oremband/oremband/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readOnlyConfig(expandURL string) config.Application {
	return config.Application{
		Port:      8181,
		Functions: config.Functions{ExpandURL: expandURL, Timeout: time.Second, ServiceToken: "kiosk"},
		Admin:     config.Admin{User: "admin"},
		Calendar: config.Calendar{
			DefaultView:      "week",
			Timezone:         "America/Denver",
			RealtimeDebounce: 300 * time.Millisecond,
			Resync:           "@every 15m",
			FeedName:         "Orem High Band",
		},
	}
}

func setupReadOnlyApp(t *testing.T, expandURL string) (*mux.Router, *Dependencies) {
	cfg := readOnlyConfig(expandURL)
	deps := BuildDependencies(nil, cfg)
	t.Cleanup(deps.Close)
	r := mux.NewRouter()
	SetupMiddleware(r, deps, cfg)
	RegisterRoutes(r, deps, cfg)
	return r, deps
}

func TestReadOnlyApplication(t *testing.T) {
	t.Run("should serve the calendar from the expansion function", func(t *testing.T) {
		// given
		var gotAuth string
		function := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"occurrences":[]}`))
		}))
		t.Cleanup(function.Close)
		router, deps := setupReadOnlyApp(t, function.URL)
		require.NoError(t, deps.CalendarController.LoadEvents(context.Background()))

		// when
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/calendar", nil))

		// then
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "true", rr.Header().Get("X-Calendar-Read-Only"))
		assert.Contains(t, rr.Body.String(), `"view":"week"`)
		assert.Contains(t, rr.Body.String(), `"readOnly":true`)
		assert.Equal(t, "Bearer kiosk", gotAuth)
	})

	t.Run("should not expose database routes", func(t *testing.T) {
		router, deps := setupReadOnlyApp(t, "http://127.0.0.1:1")

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/functions/v1/expand-rrules?start=2025-03-01T00:00:00Z&end=2025-04-01T00:00:00Z", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.True(t, deps.ReadOnly())
		assert.Nil(t, deps.ChangeFeed)
	})

	t.Run("should disable admin routes without a password hash", func(t *testing.T) {
		router, _ := setupReadOnlyApp(t, "http://127.0.0.1:1")
		req := httptest.NewRequest(http.MethodPost, "/api/admin/events", strings.NewReader(`{"date":"2025-04-01","title":"Banquet"}`))
		req.SetBasicAuth("admin", "whatever")

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestNewResyncScheduler(t *testing.T) {
	_, deps := setupReadOnlyApp(t, "http://127.0.0.1:1")

	t.Run("should accept descriptors", func(t *testing.T) {
		scheduler, err := NewResyncScheduler(context.Background(), "@every 15m", deps.CalendarController)

		require.NoError(t, err)
		assert.Len(t, scheduler.Entries(), 1)
	})

	t.Run("should reject malformed schedules", func(t *testing.T) {
		_, err := NewResyncScheduler(context.Background(), "every now and then", deps.CalendarController)

		assert.Error(t, err)
	})
}

type blockingListenConn struct {
	closed chan struct{}
}

func (c *blockingListenConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *blockingListenConn) Close(ctx context.Context) {
	close(c.closed)
}

func TestApplication_Run(t *testing.T) {
	t.Run("should release the change feed connection when the server fails", func(t *testing.T) {
		// given
		cfg := readOnlyConfig("http://127.0.0.1:1")
		deps := BuildDependencies(nil, cfg)
		conn := &blockingListenConn{closed: make(chan struct{})}
		deps.ChangeFeed = event.NewChangeFeed(func(ctx context.Context, channel string) (event.ListenConn, error) {
			return conn, nil
		}, deps.EventBus, 0, time.Millisecond)
		scheduler, err := NewResyncScheduler(context.Background(), "", deps.CalendarController)
		require.NoError(t, err)
		srv := &http.Server{Addr: "127.0.0.1:0", Handler: mux.NewRouter()}
		application := &Application{cfg: cfg, srv: srv, deps: deps, scheduler: scheduler}
		require.NoError(t, srv.Close())

		// when
		err = application.Run()

		// then
		assert.ErrorIs(t, err, http.ErrServerClosed)
		assert.Equal(t, event.FeedStopped, deps.ChangeFeed.State())
		select {
		case <-conn.closed:
		default:
			t.Fatal("change feed connection still held after Run returned")
		}
	})
}
