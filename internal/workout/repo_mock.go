package workout

import (
	"context"
	"sort"
	"sync"
)

var _ workoutsRepo = (*repoMock)(nil)

type repoMock struct {
	// workout id to workout
	Workouts map[int]Workout
	nextID   int
	mutex    sync.Mutex
}

func NewRepoMock() *repoMock {
	return &repoMock{
		Workouts: map[int]Workout{},
		nextID:   1,
	}
}

func (r *repoMock) Add(_ context.Context, workout Workout) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workout.ID = r.nextID
	r.nextID++
	r.Workouts[workout.ID] = workout

	return &workout, nil
}

func (r *repoMock) ListAll(_ context.Context, userID int) ([]Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workouts := make([]Workout, 0)
	for _, w := range r.Workouts {
		if w.UserID == userID {
			workouts = append(workouts, w)
		}
	}

	sort.Slice(workouts, func(i, j int) bool {
		if !workouts[i].WorkoutDate.Equal(workouts[j].WorkoutDate) {
			return workouts[i].WorkoutDate.After(workouts[j].WorkoutDate)
		}
		return workouts[i].ID > workouts[j].ID
	})

	return workouts, nil
}

func (r *repoMock) Get(_ context.Context, id int) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	w, ok := r.Workouts[id]
	if !ok {
		return nil, ErrWorkoutNotFound
	}
	return &w, nil
}

func (r *repoMock) Delete(_ context.Context, userID, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	w, ok := r.Workouts[id]
	if !ok || w.UserID != userID {
		return ErrWorkoutNotFound
	}
	delete(r.Workouts, id)
	return nil
}
