package occurrence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/oremband/oremband/pkg/event"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

var ErrSourceUnavailable = errors.New("occurrence source unavailable")

// Source loads the occurrences of a window for the calendar.
type Source interface {
	FetchOccurrences(ctx context.Context, start, end time.Time) ([]Occurrence, error)
}

// RangeQuerier is the direct table query used when the expansion function fails.
type RangeQuerier interface {
	FetchRange(ctx context.Context, from, to time.Time) ([]event.Event, error)
}

type FunctionClient struct {
	expandURL string
	client    *http.Client
	tokens    oauth2.TokenSource
}

// NewFunctionClient calls the expansion function at expandURL. tokens may be
// nil; when set its access token is sent as a bearer header.
func NewFunctionClient(expandURL string, timeout time.Duration, tokens oauth2.TokenSource) *FunctionClient {
	return &FunctionClient{
		expandURL: expandURL,
		client:    &http.Client{Timeout: timeout},
		tokens:    tokens,
	}
}

type functionResponse struct {
	Occurrences *[]event.Record `json:"occurrences"`
}

// Expand returns the raw records of the window. A body without an
// occurrences array is treated as empty.
func (c *FunctionClient) Expand(ctx context.Context, start, end time.Time) ([]event.Record, error) {
	u, err := url.Parse(c.expandURL)
	if err != nil {
		return nil, fmt.Errorf("invalid expansion url: %w", err)
	}
	q := u.Query()
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("expansion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("expansion function returned status %d", resp.StatusCode)
	}

	var body functionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode expansion response: %w", err)
	}
	if body.Occurrences == nil {
		log.Warnf("expansion response for %s..%s has no occurrences array", start.Format(time.RFC3339), end.Format(time.RFC3339))
		return []event.Record{}, nil
	}
	return *body.Occurrences, nil
}

func (c *FunctionClient) authorize(req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, err := c.tokens.Token()
	if err != nil {
		log.Warnf("no session token for expansion request: %v", err)
		return
	}
	if token.AccessToken == "" {
		return
	}
	token.SetAuthHeader(req)
}

// FallbackSource asks the expansion function first and the events table
// second. The fallback path never expands recurrence rules.
type FallbackSource struct {
	function *FunctionClient
	table    RangeQuerier
}

// NewFallbackSource builds the adapter. table may be nil when the database
// is unavailable.
func NewFallbackSource(function *FunctionClient, table RangeQuerier) *FallbackSource {
	return &FallbackSource{function: function, table: table}
}

func (s *FallbackSource) FetchOccurrences(ctx context.Context, start, end time.Time) ([]Occurrence, error) {
	records, functionErr := s.function.Expand(ctx, start, end)
	if functionErr == nil {
		return NormalizeAll(records), nil
	}
	log.Warnf("expansion function failed, querying events table: %v", functionErr)

	if s.table == nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, functionErr)
	}
	events, tableErr := s.table.FetchRange(ctx, start, end)
	if tableErr != nil {
		log.Errorf("events table fallback failed: %v", tableErr)
		return nil, fmt.Errorf("%w: function: %w; table: %w", ErrSourceUnavailable, functionErr, tableErr)
	}

	records = make([]event.Record, 0, len(events))
	for _, e := range events {
		records = append(records, event.ToRecord(e))
	}
	return NormalizeAll(records), nil
}
