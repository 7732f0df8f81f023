package workout

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

var ErrWorkoutNotFound = errors.New("workout not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add stores the workout together with all its sets in a single
// transaction, either everything is stored or nothing is
func (r *Repo) Add(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	err = tx.QueryRow(
		ctx,
		`INSERT INTO workout (user_id, exercise_name, workout_date)
			VALUES ($1, $2, $3)
		RETURNING id;`,
		workout.UserID, workout.ExerciseName, workout.WorkoutDate,
	).Scan(&workout.ID)
	if err != nil {
		return nil, fmt.Errorf("insert workout: %w", err)
	}

	for _, set := range workout.Sets {
		if _, err = tx.Exec(
			ctx,
			`INSERT INTO workout_set (workout_id, set_number, reps, weight)
				VALUES ($1, $2, $3, $4);`,
			workout.ID, set.SetNumber, set.Reps, set.Weight,
		); err != nil {
			return nil, fmt.Errorf("insert set %d: %w", set.SetNumber, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	span.SetAttributes(attribute.Int("workout.id", workout.ID))

	return &workout, nil
}

// ListAll returns all workouts of a user, most recent date first,
// sets ordered by their set number
func (r *Repo) ListAll(ctx context.Context, userID int) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				w.id, w.user_id, w.exercise_name, w.workout_date,
				s.set_number, s.reps, s.weight
			FROM workout w
			LEFT JOIN workout_set s ON s.workout_id = w.id
			WHERE w.user_id = $1
			ORDER BY w.workout_date DESC, w.id DESC, s.set_number ASC;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	workouts, err := rows2workouts(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2workouts: %w", err)
	}
	return workouts, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				w.id, w.user_id, w.exercise_name, w.workout_date,
				s.set_number, s.reps, s.weight
			FROM workout w
			LEFT JOIN workout_set s ON s.workout_id = w.id
			WHERE w.id = $1
			ORDER BY s.set_number ASC;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	workouts, err := rows2workouts(rows)
	if err != nil {
		return nil, err
	}

	if len(workouts) != 1 {
		return nil, ErrWorkoutNotFound
	}

	return &workouts[0], nil
}

// Delete removes the workout of the given user along with its sets
func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(
		ctx,
		`DELETE FROM workout_set WHERE workout_id = $1;`,
		id,
	); err != nil {
		return fmt.Errorf("delete sets: %w", err)
	}

	tag, err := tx.Exec(
		ctx,
		`DELETE FROM workout WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = ErrWorkoutNotFound
		return err
	}

	return tx.Commit(ctx)
}

func rows2workouts(rows pgx.Rows) ([]Workout, error) {
	var workouts []Workout
	for rows.Next() {
		var id, userID int
		var exerciseName string
		var workoutDate time.Time
		var setNumber, reps *int
		var weight *float64
		if err := rows.Scan(&id, &userID, &exerciseName, &workoutDate, &setNumber, &reps, &weight); err != nil {
			return nil, err
		}

		if len(workouts) == 0 || workouts[len(workouts)-1].ID != id {
			workouts = append(workouts, Workout{
				ID:           id,
				UserID:       userID,
				ExerciseName: exerciseName,
				WorkoutDate:  workoutDate,
				Sets:         []Set{},
			})
		}

		// set columns are null for workouts without sets (left join)
		if setNumber != nil && reps != nil && weight != nil {
			last := &workouts[len(workouts)-1]
			last.Sets = append(last.Sets, Set{
				SetNumber: *setNumber,
				Reps:      *reps,
				Weight:    *weight,
			})
		}
	}

	if workouts == nil {
		workouts = make([]Workout, 0)
	}

	return workouts, nil
}
