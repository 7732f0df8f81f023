package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/bkovacic/fitlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrUserNotFound = errors.New("user not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Get returns the profile of a user, with nil fields where the
// profile row is missing or a column was never saved
func (r *Repo) Get(ctx context.Context, userID int) (_ *Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	var profile Profile
	err = r.db.QueryRow(
		ctx,
		`SELECT u.id, u.email, p.name, p.age, p.weight, p.height, p.gender
			FROM users u
			LEFT JOIN user_profile p ON u.id = p.user_id
			WHERE u.id = $1;`,
		userID,
	).Scan(
		&profile.UserID, &profile.Email,
		&profile.Name, &profile.Age, &profile.Weight, &profile.Height, &profile.Gender,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &profile, nil
}

// Upsert stores the profile, overwriting a previously saved one
func (r *Repo) Upsert(ctx context.Context, profile Profile) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", profile.UserID))

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO user_profile (user_id, name, age, weight, height, gender)
			VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
			SET name = EXCLUDED.name,
				age = EXCLUDED.age,
				weight = EXCLUDED.weight,
				height = EXCLUDED.height,
				gender = EXCLUDED.gender;`,
		profile.UserID, profile.Name, profile.Age, profile.Weight, profile.Height, profile.Gender,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}
