package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bkovacic/fitlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrEntryNotFound = errors.New("activity entry not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Upsert stores the entry, overwriting a previous entry of the same
// user and date
func (r *Repo) Upsert(ctx context.Context, entry Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activity.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", entry.UserID))
	span.SetAttributes(attribute.String("date", entry.DateKey()))

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO activity (user_id, activity_date, calories, steps, energy)
			VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, activity_date) DO UPDATE
			SET calories = EXCLUDED.calories,
				steps = EXCLUDED.steps,
				energy = EXCLUDED.energy;`,
		entry.UserID, entry.Date, entry.Calories, entry.Steps, entry.Energy,
	)
	if err != nil {
		return fmt.Errorf("upsert activity: %w", err)
	}

	return nil
}

// ListAll returns all activity entries of a user, most recent date first
func (r *Repo) ListAll(ctx context.Context, userID int) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activity.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT user_id, activity_date, calories, steps, energy
			FROM activity
			WHERE user_id = $1
			ORDER BY activity_date DESC;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	entries, err := rows2entries(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2entries: %w", err)
	}
	return entries, nil
}

func (r *Repo) Get(ctx context.Context, userID int, date time.Time) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activity.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var entry Entry
	err = r.db.QueryRow(
		ctx,
		`SELECT user_id, activity_date, calories, steps, energy
			FROM activity
			WHERE user_id = $1 AND activity_date = $2;`,
		userID, date,
	).Scan(&entry.UserID, &entry.Date, &entry.Calories, &entry.Steps, &entry.Energy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}

	return &entry, nil
}

func rows2entries(rows pgx.Rows) ([]Entry, error) {
	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.UserID, &entry.Date, &entry.Calories, &entry.Steps, &entry.Energy); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
