package accuracy

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/bkovacic/fitlog/internal/telemetry/metrics"
	"github.com/bkovacic/fitlog/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	oneHour           = 60 * 60
	resultCacheExpire = oneHour * 6
)

var ErrScriptFailed = errors.New("scoring script failed")

// Service stages an uploaded CSV to the work dir and hands it to the
// external scoring script. The script is a black box, the contract is
// its argv (exercise name, csv path) and the JSON it prints to stdout.
type Service struct {
	scriptPath     string
	workDir        string
	cache          *freecache.Cache
	metricsManager *metrics.Manager
}

func NewService(scriptPath, workDir string, metricsManager *metrics.Manager) *Service {
	megabyte := 1024 * 1024
	cacheSize := 20 * megabyte

	return &Service{
		scriptPath:     scriptPath,
		workDir:        workDir,
		cache:          freecache.NewCache(cacheSize),
		metricsManager: metricsManager,
	}
}

// Score runs the scoring script on the given CSV content. The same
// content scored for the same exercise is served from cache.
func (s *Service) Score(ctx context.Context, exercise string, csvContent []byte) (_ *Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "accuracy.score")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exercise))

	cacheKey := resultCacheKey(exercise, csvContent)
	if cachedBytes, err := s.cache.Get(cacheKey); err == nil {
		var cached Result
		if err := json.Unmarshal(cachedBytes, &cached); err == nil {
			log.Tracef("accuracy result for %s served from cache", exercise)
			return &cached, nil
		}
		log.Errorf("failed to unmarshal cached accuracy result: %s", err)
	}

	jobID := uuid.NewString()
	csvPath := filepath.Join(s.workDir, jobID+".csv")
	if err := os.WriteFile(csvPath, csvContent, 0600); err != nil {
		return nil, fmt.Errorf("stage csv: %w", err)
	}
	defer func() {
		if err := os.Remove(csvPath); err != nil {
			log.Errorf("failed to remove staged csv %s: %s", csvPath, err)
		}
	}()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.scriptPath, exercise, csvPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runStart := time.Now()
	runErr := cmd.Run()
	runDuration := time.Since(runStart)

	if s.metricsManager != nil {
		s.metricsManager.CounterAccuracyRuns.Inc()
		s.metricsManager.HistAccuracyRunDuration.Observe(runDuration.Seconds())
	}

	if runErr != nil {
		log.Errorf("accuracy job %s: %s: %s", jobID, runErr, stderr.String())
		return nil, fmt.Errorf("%w: %s", ErrScriptFailed, runErr)
	}

	var output scriptOutput
	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		return nil, fmt.Errorf("%w: unmarshal output: %s", ErrScriptFailed, err)
	}

	result := &Result{
		JobID:    jobID,
		Exercise: exercise,
		Score:    output.OverallAccuracy,
		Series:   output.TimeSeriesPredictions,
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	if err := s.cache.Set(cacheKey, resultJson, resultCacheExpire); err != nil {
		log.Errorf("failed to cache accuracy result for job %s: %s", jobID, err)
	}

	log.Debugf("accuracy job %s done in %s, score: %.2f", jobID, runDuration, result.Score)
	return result, nil
}

func resultCacheKey(exercise string, csvContent []byte) []byte {
	hash := sha256.New()
	hash.Write([]byte(exercise))
	hash.Write([]byte("||"))
	hash.Write(csvContent)
	return hash.Sum(nil)
}
