package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bkovacic/fitlog/internal/activity"
	"github.com/bkovacic/fitlog/internal/workout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

const testUserID = 1

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func serviceTestSetup(t *testing.T) (*Service, *MockworkoutsRepo, *MockactivitiesRepo) {
	t.Helper()

	ctrl := gomock.NewController(t)
	workoutsRepo := NewMockworkoutsRepo(ctrl)
	activitiesRepo := NewMockactivitiesRepo(ctrl)
	service := NewService(testUserID, workoutsRepo, activitiesRepo, NewAnalyzer(true))

	return service, workoutsRepo, activitiesRepo
}

func TestService_Refresh(t *testing.T) {
	service, workoutsRepo, activitiesRepo := serviceTestSetup(t)
	ctx := context.Background()

	workouts := []workout.Workout{
		testWorkout(1, "Bench Press", "2024-03-15", set(1, 10, 60)),
	}
	activities := []activity.Entry{
		{
			UserID:   testUserID,
			Date:     time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
			Calories: intPtr(2200),
		},
	}

	workoutsRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(workouts, nil)
	activitiesRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(activities, nil)

	require.NoError(t, service.Refresh(ctx))

	records := service.CombinedHistory()
	require.Len(t, records, 2)
	assert.Equal(t, "2024-03-16", records[0].Date)
	assert.Equal(t, "2024-03-15", records[1].Date)

	// reads recompute over the snapshot, repeated calls are deep equal
	// and never go back to storage (no further EXPECTs are set)
	assert.Equal(t, records, service.CombinedHistory())
	assert.Equal(t, service.UniqueExercises(), service.UniqueExercises())
	assert.Equal(t, service.PersonalBest("Bench Press"), service.PersonalBest("Bench Press"))
	assert.Equal(t, service.ExerciseChart("Bench Press"), service.ExerciseChart("Bench Press"))
	assert.Equal(t,
		service.VolumeBySegment(SegmentByWeekday),
		service.VolumeBySegment(SegmentByWeekday),
	)
}

func TestService_Refresh_fetchErrorKeepsSnapshot(t *testing.T) {
	service, workoutsRepo, activitiesRepo := serviceTestSetup(t)
	ctx := context.Background()

	workouts := []workout.Workout{
		testWorkout(1, "Bench Press", "2024-03-15", set(1, 10, 60)),
	}
	workoutsRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(workouts, nil)
	activitiesRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(nil, nil)
	require.NoError(t, service.Refresh(ctx))

	before := service.CombinedHistory()
	require.Len(t, before, 1)

	// workouts fetch blows up: typed error, snapshot untouched
	storageErr := errors.New("connection reset")
	workoutsRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(nil, storageErr)

	err := service.Refresh(ctx)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, fetchErr.Err, storageErr)

	assert.Equal(t, before, service.CombinedHistory())

	// activities fetch failing is the same deal
	workoutsRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(workouts, nil)
	activitiesRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(nil, storageErr)

	err = service.Refresh(ctx)
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, before, service.CombinedHistory())
}

func TestService_Refresh_staleResponseDiscarded(t *testing.T) {
	service, workoutsRepo, activitiesRepo := serviceTestSetup(t)
	ctx := context.Background()

	older := []workout.Workout{
		testWorkout(1, "Bench Press", "2024-03-15", set(1, 10, 60)),
	}
	newer := []workout.Workout{
		testWorkout(2, "Squat", "2024-03-16", set(1, 5, 100)),
	}

	firstEntered := make(chan struct{})
	firstRelease := make(chan struct{})

	// the first refresh hangs in the fetch until released
	workoutsRepo.EXPECT().ListAll(gomock.Any(), testUserID).DoAndReturn(
		func(context.Context, int) ([]workout.Workout, error) {
			close(firstEntered)
			<-firstRelease
			return older, nil
		},
	)
	workoutsRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(newer, nil)
	activitiesRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(nil, nil).Times(2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, service.Refresh(ctx))
	}()

	<-firstEntered

	// the second refresh starts later but lands first
	require.NoError(t, service.Refresh(ctx))
	assert.Equal(t, []string{"Squat"}, service.UniqueExercises())

	// now the older response arrives and must be thrown away
	close(firstRelease)
	wg.Wait()

	assert.Equal(t, []string{"Squat"}, service.UniqueExercises())
}

func TestService_Close_discardsInflightRefresh(t *testing.T) {
	service, workoutsRepo, activitiesRepo := serviceTestSetup(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})

	workoutsRepo.EXPECT().ListAll(gomock.Any(), testUserID).DoAndReturn(
		func(context.Context, int) ([]workout.Workout, error) {
			close(entered)
			<-release
			return []workout.Workout{
				testWorkout(1, "Bench Press", "2024-03-15", set(1, 10, 60)),
			}, nil
		},
	)
	activitiesRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(nil, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, service.Refresh(ctx))
	}()

	<-entered
	service.Close()
	close(release)
	wg.Wait()

	// the result arrived after teardown, nothing was applied
	assert.Empty(t, service.UniqueExercises())
	assert.Empty(t, service.CombinedHistory())
}

func TestService_SubmitWorkout(t *testing.T) {
	service, workoutsRepo, activitiesRepo := serviceTestSetup(t)
	ctx := context.Background()

	submitted := testWorkout(0, "Bench Press", "2024-03-15", set(1, 10, 60))
	added := submitted
	added.ID = 42

	workoutsRepo.EXPECT().Add(gomock.Any(), submitted).Return(&added, nil)
	// the successful submit awaits a refresh
	workoutsRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return([]workout.Workout{added}, nil)
	activitiesRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(nil, nil)

	id, err := service.SubmitWorkout(ctx, submitted)
	require.NoError(t, err)
	assert.Equal(t, 42, id)
	assert.Equal(t, []string{"Bench Press"}, service.UniqueExercises())
}

func TestService_SubmitWorkout_validationBeforePersistence(t *testing.T) {
	service, _, _ := serviceTestSetup(t)
	ctx := context.Background()

	// no Add is expected, persistence must never be reached
	invalid := testWorkout(0, "Bench Press", "2024-03-15", set(1, 51, 60))

	_, err := service.SubmitWorkout(ctx, invalid)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "reps", validationErr.Field)

	// same input, same verdict, nothing stored in between
	_, err = service.SubmitWorkout(ctx, invalid)
	require.ErrorAs(t, err, &validationErr)
}

func TestService_SubmitWorkout_persistenceError(t *testing.T) {
	service, workoutsRepo, _ := serviceTestSetup(t)
	ctx := context.Background()

	submitted := testWorkout(0, "Bench Press", "2024-03-15", set(1, 10, 60))
	storageErr := errors.New("disk full")
	workoutsRepo.EXPECT().Add(gomock.Any(), submitted).Return(nil, storageErr)

	_, err := service.SubmitWorkout(ctx, submitted)
	var persistenceErr *PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
	assert.ErrorIs(t, persistenceErr.Err, storageErr)

	// the snapshot did not change
	assert.Empty(t, service.UniqueExercises())
}

func TestService_SubmitActivity(t *testing.T) {
	service, workoutsRepo, activitiesRepo := serviceTestSetup(t)
	ctx := context.Background()

	entry := activity.Entry{
		UserID:   testUserID,
		Date:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Calories: intPtr(2200),
	}

	activitiesRepo.EXPECT().Upsert(gomock.Any(), entry).Return(nil)
	workoutsRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(nil, nil)
	activitiesRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return([]activity.Entry{entry}, nil)

	require.NoError(t, service.SubmitActivity(ctx, entry))

	records := service.CombinedHistory()
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Calories)
	assert.Equal(t, 2200, *records[0].Calories)
}

func TestService_SubmitActivity_validation(t *testing.T) {
	service, _, _ := serviceTestSetup(t)

	invalid := activity.Entry{
		Date:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Calories: intPtr(activity.MaxCalories + 1),
	}

	err := service.SubmitActivity(context.Background(), invalid)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "calories", validationErr.Field)
}

func TestService_EnsureLoaded(t *testing.T) {
	service, workoutsRepo, activitiesRepo := serviceTestSetup(t)
	ctx := context.Background()

	// first call loads, the second is a no-op
	workoutsRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(nil, nil)
	activitiesRepo.EXPECT().ListAll(gomock.Any(), testUserID).Return(nil, nil)

	require.NoError(t, service.EnsureLoaded(ctx))
	require.NoError(t, service.EnsureLoaded(ctx))
}

func TestRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	workoutsRepo := NewMockworkoutsRepo(ctrl)
	activitiesRepo := NewMockactivitiesRepo(ctrl)

	registry := NewRegistry(workoutsRepo, activitiesRepo, NewAnalyzer(true))

	service1 := registry.ForUser(1)
	service2 := registry.ForUser(2)
	assert.NotSame(t, service1, service2)
	// same user, same facade
	assert.Same(t, service1, registry.ForUser(1))

	workoutsRepo.EXPECT().ListAll(gomock.Any(), 1).Return([]workout.Workout{
		testWorkout(1, "Bench Press", "2024-03-15", set(1, 10, 60)),
	}, nil)
	activitiesRepo.EXPECT().ListAll(gomock.Any(), 1).Return(nil, nil)

	require.NoError(t, registry.RefreshUser(context.Background(), 1))
	assert.Equal(t, []string{"Bench Press"}, service1.UniqueExercises())
	assert.Empty(t, service2.UniqueExercises())

	registry.Close()
	// a refresh after teardown is discarded on arrival
	workoutsRepo.EXPECT().ListAll(gomock.Any(), 1).Return(nil, nil).AnyTimes()
	activitiesRepo.EXPECT().ListAll(gomock.Any(), 1).Return(nil, nil).AnyTimes()
	require.NoError(t, service1.Refresh(context.Background()))
	assert.Equal(t, []string{"Bench Press"}, service1.UniqueExercises())
}
