package workout

import (
	"fmt"
	"time"
)

// DateLayout is the canonical date key layout, workouts are grouped
// and compared by this key, never by the raw timestamp
const DateLayout = "2006-01-02"

const (
	MaxReps   = 50
	MaxWeight = 500
)

type Set struct {
	SetNumber int     `json:"setNumber"`
	Reps      int     `json:"reps"`
	Weight    float64 `json:"weight"`
}

// Volume of a single set, reps times weight
func (s Set) Volume() float64 {
	return float64(s.Reps) * s.Weight
}

type Workout struct {
	ID           int       `json:"id"`
	UserID       int       `json:"userId"`
	ExerciseName string    `json:"exerciseName"`
	WorkoutDate  time.Time `json:"workoutDate"`
	Sets         []Set     `json:"sets"`
}

// DateKey returns the canonical date key of the workout
func (w Workout) DateKey() string {
	return w.WorkoutDate.Format(DateLayout)
}

// TotalVolume is the sum of reps x weight over all sets, 0 for no sets
func (w Workout) TotalVolume() float64 {
	var total float64
	for _, s := range w.Sets {
		total += s.Volume()
	}
	return total
}

// FieldError describes a single invalid workout field
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the workout against the submit bounds; set numbers
// must be contiguous starting from 1
func (w Workout) Validate() error {
	if w.ExerciseName == "" {
		return &FieldError{Field: "exerciseName", Reason: "must not be empty"}
	}
	if w.WorkoutDate.IsZero() {
		return &FieldError{Field: "workoutDate", Reason: "must be set"}
	}
	if len(w.Sets) == 0 {
		return &FieldError{Field: "sets", Reason: "at least one set required"}
	}
	for i, s := range w.Sets {
		if s.SetNumber != i+1 {
			return &FieldError{
				Field:  "sets",
				Reason: fmt.Sprintf("set numbers must be contiguous, got %d at position %d", s.SetNumber, i+1),
			}
		}
		if s.Reps < 1 || s.Reps > MaxReps {
			return &FieldError{
				Field:  "reps",
				Reason: fmt.Sprintf("must be between 1 and %d", MaxReps),
			}
		}
		if s.Weight < 0 || s.Weight > MaxWeight {
			return &FieldError{
				Field:  "weight",
				Reason: fmt.Sprintf("must be between 0 and %d", MaxWeight),
			}
		}
	}
	return nil
}
