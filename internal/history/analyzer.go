package history

import (
	"sort"

	"github.com/bkovacic/fitlog/internal/activity"
	"github.com/bkovacic/fitlog/internal/workout"
)

// WorkoutVolume is one workout condensed to its total volume
type WorkoutVolume struct {
	WorkoutID    int     `json:"workoutId"`
	ExerciseName string  `json:"exerciseName"`
	TotalVolume  float64 `json:"totalVolume"`
}

// DailyRecord is one distinct date of history, workouts and activity
// merged. The activity fields are pointers, nil means not logged that
// day, which is not the same as a logged zero.
type DailyRecord struct {
	Date     string          `json:"date"`
	Workouts []WorkoutVolume `json:"workouts"`
	Calories *int            `json:"calories"`
	Steps    *int            `json:"steps"`
	Energy   *activity.Level `json:"energy"`
}

type PersonalBest struct {
	BestWeight float64 `json:"bestWeight"`
	BestReps   int     `json:"bestReps"`
}

// Analyzer computes aggregates over already fetched records. All of
// its methods are pure, they never touch storage and never fail on
// well-formed input, empty input included.
type Analyzer struct {
	// when false, UniqueExercises keeps first-seen order instead of
	// sorting alphabetically
	sortExercises bool
}

func NewAnalyzer(sortExercises bool) *Analyzer {
	return &Analyzer{
		sortExercises: sortExercises,
	}
}

// VolumeByDay groups the workouts by their date key, keeping the
// input order within each group
func (a *Analyzer) VolumeByDay(workouts []workout.Workout) map[string][]workout.Workout {
	day2workouts := make(map[string][]workout.Workout)
	for _, w := range workouts {
		day := w.DateKey()
		day2workouts[day] = append(day2workouts[day], w)
	}
	return day2workouts
}

// ExerciseProgress returns the workouts of a single exercise, oldest
// first. The match is exact and case-sensitive. The sort is stable, so
// same-day workouts keep their input order.
func (a *Analyzer) ExerciseProgress(workouts []workout.Workout, exerciseName string) []workout.Workout {
	progress := make([]workout.Workout, 0)
	for _, w := range workouts {
		if w.ExerciseName == exerciseName {
			progress = append(progress, w)
		}
	}

	sort.SliceStable(progress, func(i, j int) bool {
		return progress[i].DateKey() < progress[j].DateKey()
	})

	return progress
}

// CombinedHistory joins workouts and activity entries on the date key,
// a full outer join, exactly one record per distinct date, most recent
// date first. A date with only workouts gets nil activity fields, a
// date with only an activity entry gets an empty workouts list.
func (a *Analyzer) CombinedHistory(
	workouts []workout.Workout,
	activities []activity.Entry,
) []DailyRecord {
	day2record := make(map[string]*DailyRecord)

	dayRecord := func(day string) *DailyRecord {
		if record, ok := day2record[day]; ok {
			return record
		}
		record := &DailyRecord{
			Date:     day,
			Workouts: []WorkoutVolume{},
		}
		day2record[day] = record
		return record
	}

	for _, w := range workouts {
		record := dayRecord(w.DateKey())
		record.Workouts = append(record.Workouts, WorkoutVolume{
			WorkoutID:    w.ID,
			ExerciseName: w.ExerciseName,
			TotalVolume:  w.TotalVolume(),
		})
	}

	for _, e := range activities {
		record := dayRecord(e.DateKey())
		record.Calories = e.Calories
		record.Steps = e.Steps
		record.Energy = e.Energy
	}

	records := make([]DailyRecord, 0, len(day2record))
	for _, record := range day2record {
		records = append(records, *record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Date > records[j].Date
	})

	return records
}

// PersonalBest finds the heaviest set ever done for an exercise, ties
// on weight broken by the higher rep count. A zero value is returned
// when the exercise has no sets at all.
func (a *Analyzer) PersonalBest(workouts []workout.Workout, exerciseName string) PersonalBest {
	var best PersonalBest
	for _, w := range workouts {
		if w.ExerciseName != exerciseName {
			continue
		}
		for _, s := range w.Sets {
			if s.Weight > best.BestWeight ||
				(s.Weight == best.BestWeight && s.Reps > best.BestReps) {
				best.BestWeight = s.Weight
				best.BestReps = s.Reps
			}
		}
	}
	return best
}

// UniqueExercises returns each distinct exercise name once, sorted
// alphabetically, or in first-seen order when the analyzer is
// configured that way
func (a *Analyzer) UniqueExercises(workouts []workout.Workout) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, w := range workouts {
		if !seen[w.ExerciseName] {
			seen[w.ExerciseName] = true
			names = append(names, w.ExerciseName)
		}
	}

	if a.sortExercises {
		sort.Strings(names)
	}

	return names
}
