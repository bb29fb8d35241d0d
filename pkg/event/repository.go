package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	// FetchRange returns events starting within [from, to], ordered by start.
	FetchRange(ctx context.Context, from, to time.Time) ([]Event, error)
	// FetchRecurring returns events with a recurrence rule that start no later than until.
	FetchRecurring(ctx context.Context, until time.Time) ([]Event, error)
	Get(ctx context.Context, id uuid.UUID) (Event, error)
	Insert(ctx context.Context, event Event) (Event, error)
	// Delete returns the number of removed rows.
	Delete(ctx context.Context, id uuid.UUID) (int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const eventColumns = `id, title, description, location, starts_at, ends_at, is_all_day, is_public, rrule, timezone, created_at`

func (r *RepositoryImpl) FetchRange(ctx context.Context, from, to time.Time) ([]Event, error) {
	query := `SELECT ` + eventColumns + `
			  FROM events
			  WHERE starts_at BETWEEN $1 AND $2
			  ORDER BY starts_at ASC`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		log.Errorf("failed to query events between %s and %s: %v", from, to, err)
		return nil, err
	}
	return collectEvents(rows)
}

func (r *RepositoryImpl) FetchRecurring(ctx context.Context, until time.Time) ([]Event, error) {
	query := `SELECT ` + eventColumns + `
			  FROM events
			  WHERE rrule IS NOT NULL AND rrule <> '' AND starts_at <= $1
			  ORDER BY starts_at ASC`
	rows, err := r.db.Query(ctx, query, until)
	if err != nil {
		log.Errorf("failed to query recurring events: %v", err)
		return nil, err
	}
	return collectEvents(rows)
}

func (r *RepositoryImpl) Get(ctx context.Context, id uuid.UUID) (Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, err
	}
	return e, nil
}

func (r *RepositoryImpl) Insert(ctx context.Context, event Event) (Event, error) {
	query := `INSERT INTO events (id, title, description, location, starts_at, ends_at, is_all_day, is_public, rrule, timezone)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING ` + eventColumns
	stored, err := scanEvent(r.db.QueryRow(ctx, query,
		event.Id,
		event.Title,
		nullableString(event.Description),
		nullableString(event.Location),
		event.StartsAt,
		event.EndsAt,
		event.IsAllDay,
		event.IsPublic,
		nullableString(event.RRule),
		event.Timezone,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Event{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidEvent, event.Id)
		}
		log.Errorf("failed to insert event: %v", err)
		return Event{}, err
	}
	return stored, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id uuid.UUID) (int, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		log.Errorf("failed to delete event %s: %v", id, err)
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

func collectEvents(rows pgx.Rows) ([]Event, error) {
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	var description, location, rrule *string
	if err := row.Scan(
		&e.Id,
		&e.Title,
		&description,
		&location,
		&e.StartsAt,
		&e.EndsAt,
		&e.IsAllDay,
		&e.IsPublic,
		&rrule,
		&e.Timezone,
		&e.CreatedAt,
	); err != nil {
		return Event{}, err
	}
	e.Description = stringValue(description)
	e.Location = stringValue(location)
	e.RRule = stringValue(rrule)
	e.StartsAt = e.StartsAt.UTC()
	if e.EndsAt != nil {
		endsAt := e.EndsAt.UTC()
		e.EndsAt = &endsAt
	}
	return e, nil
}
