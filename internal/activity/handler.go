package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bkovacic/fitlog/internal/auth"
	"github.com/bkovacic/fitlog/internal/telemetry/metrics"
	"github.com/bkovacic/fitlog/internal/telemetry/tracing"
	"github.com/bkovacic/fitlog/pkg"

	log "github.com/sirupsen/logrus"
)

type activitiesRepo interface {
	Upsert(ctx context.Context, entry Entry) error
	ListAll(ctx context.Context, userID int) ([]Entry, error)
	Get(ctx context.Context, userID int, date time.Time) (*Entry, error)
}

type historyRefresher interface {
	RefreshUser(ctx context.Context, userID int) error
}

type ListResponse struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
}

type Handler struct {
	repo           activitiesRepo
	refresher      historyRefresher
	metricsManager *metrics.Manager
}

func NewHandler(repo activitiesRepo, refresher historyRefresher, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		refresher:      refresher,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.upsert")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		log.Tracef("new activity, unmarshal json params: %s", err)
		http.Error(w, "log activity failed", http.StatusBadRequest)
		return
	}

	entry.UserID = userID
	if entry.Date.IsZero() {
		entry.Date = time.Now()
	}

	if err := entry.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Upsert(ctx, entry); err != nil {
		log.Errorf("failed to log activity for %s: %s", entry.DateKey(), err)
		http.Error(w, "error, failed to log activity", http.StatusInternalServerError)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterActivities.Inc()
	}

	if handler.refresher != nil {
		if err := handler.refresher.RefreshUser(ctx, userID); err != nil {
			log.Errorf("failed to refresh history for user %d: %s", userID, err)
		}
	}

	entryJson, err := json.Marshal(entry)
	if err != nil {
		log.Errorf("failed to marshal activity entry: %s", err)
		http.Error(w, "error, failed to log activity", http.StatusInternalServerError)
		return
	}

	log.Debugf("activity logged: %s", entryJson)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, entryJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	entries, err := handler.repo.ListAll(ctx, userID)
	if err != nil {
		log.Errorf("list activities error: %s", err)
		http.Error(w, "failed to get activities", http.StatusInternalServerError)
		return
	}

	listResponse := ListResponse{
		Entries: entries,
		Total:   len(entries),
	}

	listResponseJson, err := json.Marshal(listResponse)
	if err != nil {
		log.Errorf("marshal activities error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listResponseJson, http.StatusOK)
}
