package activity

import (
	"fmt"
	"time"

	"github.com/bkovacic/fitlog/internal/workout"
)

const (
	MaxCalories = 10000
	MaxSteps    = 100000
)

// Level is the self-reported energy level of a day
type Level int

const (
	LevelTired Level = iota + 1
	LevelOkay
	LevelGood
	LevelEnergized
)

func (l Level) Valid() bool {
	return l >= LevelTired && l <= LevelEnergized
}

func (l Level) String() string {
	switch l {
	case LevelTired:
		return "tired"
	case LevelOkay:
		return "okay"
	case LevelGood:
		return "good"
	case LevelEnergized:
		return "energized"
	default:
		return "unknown"
	}
}

// Entry is one day of activity for one user, unique per (user, date).
// The numeric fields are pointers so that a logged zero stays
// distinguishable from a field that was never logged.
type Entry struct {
	UserID   int       `json:"userId"`
	Date     time.Time `json:"date"`
	Calories *int      `json:"calories"`
	Steps    *int      `json:"steps"`
	Energy   *Level    `json:"energy"`
}

// DateKey returns the canonical date key of the entry
func (e Entry) DateKey() string {
	return e.Date.Format(workout.DateLayout)
}

// FieldError describes a single invalid activity field
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e Entry) Validate() error {
	if e.Date.IsZero() {
		return &FieldError{Field: "date", Reason: "must be set"}
	}
	if e.Calories != nil && (*e.Calories < 0 || *e.Calories > MaxCalories) {
		return &FieldError{
			Field:  "calories",
			Reason: fmt.Sprintf("must be between 0 and %d", MaxCalories),
		}
	}
	if e.Steps != nil && (*e.Steps < 0 || *e.Steps > MaxSteps) {
		return &FieldError{
			Field:  "steps",
			Reason: fmt.Sprintf("must be between 0 and %d", MaxSteps),
		}
	}
	if e.Energy != nil && !e.Energy.Valid() {
		return &FieldError{Field: "energy", Reason: "must be between 1 and 4"}
	}
	return nil
}
