package accuracy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bkovacic/fitlog/internal/auth"
	"github.com/bkovacic/fitlog/internal/telemetry/tracing"
	"github.com/bkovacic/fitlog/pkg"

	log "github.com/sirupsen/logrus"
)

// Maximum upload of 10 MB files
const maxUploadedFileSize = 10 << 20

type scorer interface {
	Score(ctx context.Context, exercise string, csvContent []byte) (*Result, error)
}

type Handler struct {
	service scorer
}

func NewHandler(service scorer) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.accuracy.score")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadedFileSize); err != nil {
		log.Errorf("accuracy score, parse multipart form: %s", err)
		http.Error(w, "internal error or file too big", http.StatusBadRequest)
		return
	}

	exercise := r.FormValue("exercise")
	if exercise == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		log.Errorf("accuracy score, get file from form: %s", err)
		http.Error(w, "failed to get file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	log.Debugf("accuracy check incoming from user %d: %s [%d bytes]", userID, fileHeader.Filename, fileHeader.Size)

	csvContent, err := io.ReadAll(file)
	if err != nil {
		log.Errorf("accuracy score, read file: %s", err)
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	result, err := handler.service.Score(ctx, exercise, csvContent)
	if err != nil {
		if errors.Is(err, ErrScriptFailed) {
			log.Errorf("accuracy score for user %d: %s", userID, err)
			http.Error(w, "scoring failed", http.StatusUnprocessableEntity)
			return
		}
		log.Errorf("accuracy score for user %d: %s", userID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("marshal accuracy result: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, resultJson)
}
