package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bkovacic/fitlog/internal/auth"
	"github.com/bkovacic/fitlog/internal/telemetry/tracing"
	"github.com/bkovacic/fitlog/pkg"

	log "github.com/sirupsen/logrus"
)

type profilesRepo interface {
	Get(ctx context.Context, userID int) (*Profile, error)
	Upsert(ctx context.Context, profile Profile) error
}

type Handler struct {
	repo profilesRepo
}

func NewHandler(repo profilesRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	profile, err := handler.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("get profile for user %d: %s", userID, err)
		http.Error(w, "failed to get profile", http.StatusInternalServerError)
		return
	}

	profileJson, err := json.Marshal(profile)
	if err != nil {
		log.Errorf("marshal profile: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, profileJson)
}

func (handler *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.save")
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

	var profile Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		log.Tracef("save profile, unmarshal json params: %s", err)
		http.Error(w, "save profile failed", http.StatusBadRequest)
		return
	}

	profile.UserID = userID
	if err := handler.repo.Upsert(ctx, profile); err != nil {
		log.Errorf("save profile for user %d: %s", userID, err)
		http.Error(w, "error, failed to save profile", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, []byte(`{"saved":true}`))
}
