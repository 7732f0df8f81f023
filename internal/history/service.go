package history

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bkovacic/fitlog/internal/activity"
	"github.com/bkovacic/fitlog/internal/workout"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=history

type workoutsRepo interface {
	Add(ctx context.Context, w workout.Workout) (*workout.Workout, error)
	ListAll(ctx context.Context, userID int) ([]workout.Workout, error)
}

type activitiesRepo interface {
	Upsert(ctx context.Context, e activity.Entry) error
	ListAll(ctx context.Context, userID int) ([]activity.Entry, error)
}

// Service is the per-user history facade. It keeps one consistent
// snapshot of the user's workouts and activities, refreshed as a
// whole. Reads never touch storage, they recompute over the snapshot
// under the lock.
type Service struct {
	userID     int
	workouts   workoutsRepo
	activities activitiesRepo
	analyzer   *Analyzer

	// seq numbers the issued refreshes, appliedSeq the applied ones;
	// a refresh that finishes after a newer one has already been
	// applied is discarded
	seq atomic.Uint64

	mutex          sync.Mutex
	appliedSeq     uint64
	closed         bool
	snapWorkouts   []workout.Workout
	snapActivities []activity.Entry
	// combined history memoized per applied snapshot
	combined []DailyRecord
}

func NewService(
	userID int,
	workouts workoutsRepo,
	activities activitiesRepo,
	analyzer *Analyzer,
) *Service {
	return &Service{
		userID:     userID,
		workouts:   workouts,
		activities: activities,
		analyzer:   analyzer,
	}
}

// Refresh fetches both record lists and swaps the snapshot whole. On
// a storage failure a *FetchError is returned and the previous
// snapshot stays untouched. A refresh that comes back stale, or after
// Close, is silently discarded.
func (s *Service) Refresh(ctx context.Context) error {
	seq := s.seq.Add(1)

	workouts, err := s.workouts.ListAll(ctx, s.userID)
	if err != nil {
		return &FetchError{Err: err}
	}
	activities, err := s.activities.ListAll(ctx, s.userID)
	if err != nil {
		return &FetchError{Err: err}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil
	}
	if seq <= s.appliedSeq {
		// a newer refresh already landed
		return nil
	}

	s.appliedSeq = seq
	s.snapWorkouts = workouts
	s.snapActivities = activities
	s.combined = nil

	return nil
}

// EnsureLoaded refreshes once if no refresh has been applied yet
func (s *Service) EnsureLoaded(ctx context.Context) error {
	s.mutex.Lock()
	loaded := s.appliedSeq > 0
	s.mutex.Unlock()

	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// SubmitWorkout validates, persists and refreshes. Validation failures
// come back as *ValidationError before anything is stored, storage
// failures as *PersistenceError.
func (s *Service) SubmitWorkout(ctx context.Context, w workout.Workout) (int, error) {
	w.UserID = s.userID

	if err := w.Validate(); err != nil {
		var fieldErr *workout.FieldError
		if errors.As(err, &fieldErr) {
			return 0, &ValidationError{Field: fieldErr.Field, Reason: fieldErr.Reason}
		}
		return 0, &ValidationError{Field: "workout", Reason: err.Error()}
	}

	added, err := s.workouts.Add(ctx, w)
	if err != nil {
		return 0, &PersistenceError{Err: err}
	}

	if err := s.Refresh(ctx); err != nil {
		// stored fine, only the snapshot is behind now
		return added.ID, err
	}

	return added.ID, nil
}

// SubmitActivity is SubmitWorkout's shape for daily activity, with
// upsert semantics
func (s *Service) SubmitActivity(ctx context.Context, e activity.Entry) error {
	e.UserID = s.userID

	if err := e.Validate(); err != nil {
		var fieldErr *activity.FieldError
		if errors.As(err, &fieldErr) {
			return &ValidationError{Field: fieldErr.Field, Reason: fieldErr.Reason}
		}
		return &ValidationError{Field: "activity", Reason: err.Error()}
	}

	if err := s.activities.Upsert(ctx, e); err != nil {
		return &PersistenceError{Err: err}
	}

	return s.Refresh(ctx)
}

// Close tears the facade down, any refresh still in flight gets
// discarded on arrival
func (s *Service) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closed = true
}

func (s *Service) CombinedHistory() []DailyRecord {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.combinedLocked()
}

func (s *Service) combinedLocked() []DailyRecord {
	if s.combined == nil {
		s.combined = s.analyzer.CombinedHistory(s.snapWorkouts, s.snapActivities)
	}
	return s.combined
}

func (s *Service) ExerciseProgress(exerciseName string) []workout.Workout {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.analyzer.ExerciseProgress(s.snapWorkouts, exerciseName)
}

func (s *Service) VolumeByDay() map[string][]workout.Workout {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.analyzer.VolumeByDay(s.snapWorkouts)
}

func (s *Service) PersonalBest(exerciseName string) PersonalBest {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.analyzer.PersonalBest(s.snapWorkouts, exerciseName)
}

func (s *Service) UniqueExercises() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.analyzer.UniqueExercises(s.snapWorkouts)
}

func (s *Service) ExerciseChart(exerciseName string) ExerciseChart {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return PivotExerciseHistory(s.analyzer.ExerciseProgress(s.snapWorkouts, exerciseName))
}

func (s *Service) VolumeBySegment(keyFn SegmentKeyFunc) []SegmentVolume {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return VolumeBySegment(s.combinedLocked(), keyFn)
}

// RecentWorkouts returns the most recent workouts, newest first
func (s *Service) RecentWorkouts(limit int) []workout.Workout {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// the snapshot comes from the repo most recent first already
	if limit < 0 || limit > len(s.snapWorkouts) {
		limit = len(s.snapWorkouts)
	}
	recent := make([]workout.Workout, limit)
	copy(recent, s.snapWorkouts[:limit])
	return recent
}
