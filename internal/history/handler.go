package history

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/bkovacic/fitlog/internal/auth"
	"github.com/bkovacic/fitlog/internal/telemetry/tracing"
	"github.com/bkovacic/fitlog/internal/workout"
	"github.com/bkovacic/fitlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const defaultRecentLimit = 5

type CombinedHistoryResponse struct {
	Records []DailyRecord `json:"records"`
	Total   int           `json:"total"`
}

type RecentWorkoutsResponse struct {
	Workouts []workout.Workout `json:"workouts"`
}

type VolumeResponse struct {
	Segments []SegmentVolume `json:"segments"`
}

type ExercisesResponse struct {
	Exercises []string `json:"exercises"`
}

type ProgressResponse struct {
	ExerciseName string            `json:"exerciseName"`
	Workouts     []workout.Workout `json:"workouts"`
}

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{
		registry: registry,
	}
}

// serviceForRequest resolves the per-user facade and makes sure it
// has a snapshot to read from
func (handler *Handler) serviceForRequest(w http.ResponseWriter, r *http.Request) (*Service, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return nil, false
	}

	service := handler.registry.ForUser(userID)
	if err := service.EnsureLoaded(r.Context()); err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			log.Errorf("failed to load history for user %d: %s", userID, fetchErr.Err)
		} else {
			log.Errorf("failed to load history for user %d: %s", userID, err)
		}
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return nil, false
	}

	return service, true
}

func writeJson(w http.ResponseWriter, payload any) {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal history response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, payloadJson, http.StatusOK)
}

func (handler *Handler) HandleCombinedHistory(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.combined")
	defer span.End()

	service, ok := handler.serviceForRequest(w, r)
	if !ok {
		return
	}

	records := service.CombinedHistory()
	writeJson(w, CombinedHistoryResponse{
		Records: records,
		Total:   len(records),
	})
}

func (handler *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.recent")
	defer span.End()

	service, ok := handler.serviceForRequest(w, r)
	if !ok {
		return
	}

	limit := defaultRecentLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsedLimit
	}

	writeJson(w, RecentWorkoutsResponse{
		Workouts: service.RecentWorkouts(limit),
	})
}

func (handler *Handler) HandleVolume(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.volume")
	defer span.End()

	service, ok := handler.serviceForRequest(w, r)
	if !ok {
		return
	}

	writeJson(w, VolumeResponse{
		Segments: service.VolumeBySegment(SegmentByDate),
	})
}

func (handler *Handler) HandleVolumeByWeekday(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.volume-weekday")
	defer span.End()

	service, ok := handler.serviceForRequest(w, r)
	if !ok {
		return
	}

	writeJson(w, VolumeResponse{
		Segments: service.VolumeBySegment(SegmentByWeekday),
	})
}

func (handler *Handler) HandleExercises(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.exercises")
	defer span.End()

	service, ok := handler.serviceForRequest(w, r)
	if !ok {
		return
	}

	writeJson(w, ExercisesResponse{
		Exercises: service.UniqueExercises(),
	})
}

func (handler *Handler) HandleExerciseProgress(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.progress")
	defer span.End()

	exerciseName := mux.Vars(r)["name"]
	if exerciseName == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}

	service, ok := handler.serviceForRequest(w, r)
	if !ok {
		return
	}

	writeJson(w, ProgressResponse{
		ExerciseName: exerciseName,
		Workouts:     service.ExerciseProgress(exerciseName),
	})
}

func (handler *Handler) HandlePersonalBest(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.pb")
	defer span.End()

	exerciseName := mux.Vars(r)["name"]
	if exerciseName == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}

	service, ok := handler.serviceForRequest(w, r)
	if !ok {
		return
	}

	writeJson(w, service.PersonalBest(exerciseName))
}

func (handler *Handler) HandleExerciseChart(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.chart")
	defer span.End()

	exerciseName := mux.Vars(r)["name"]
	if exerciseName == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}

	service, ok := handler.serviceForRequest(w, r)
	if !ok {
		return
	}

	writeJson(w, service.ExerciseChart(exerciseName))
}
