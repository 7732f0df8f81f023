package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bkovacic/fitlog/internal/accuracy"
	"github.com/bkovacic/fitlog/internal/activity"
	"github.com/bkovacic/fitlog/internal/auth"
	"github.com/bkovacic/fitlog/internal/config"
	"github.com/bkovacic/fitlog/internal/db"
	"github.com/bkovacic/fitlog/internal/history"
	"github.com/bkovacic/fitlog/internal/middleware"
	"github.com/bkovacic/fitlog/internal/profile"
	"github.com/bkovacic/fitlog/internal/telemetry/metrics"
	"github.com/bkovacic/fitlog/internal/telemetry/tracing"
	"github.com/bkovacic/fitlog/internal/workout"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/multierr"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	workoutsRepo    *workout.Repo
	activitiesRepo  *activity.Repo
	profilesRepo    *profile.Repo
	historyRegistry *history.Registry
	accuracyService *accuracy.Service

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("fitlog", "backend", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewService(auth.NewUsersRepo(dbPool), auth.DefaultTTL, rdb)
	go func() {
		for range time.Tick(time.Hour * 8) {
			authService.ScanAndClean(ctx)
		}
	}()

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "fitlog-backend", rdb)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(params.Config.AccuracyWorkDir, 0700); err != nil {
		return nil, fmt.Errorf("create accuracy work dir: %w", err)
	}

	workoutsRepo := workout.NewRepo(dbPool)
	activitiesRepo := activity.NewRepo(dbPool)

	return &Server{
		config:      params.Config,
		versionInfo: params.VersionInfo,
		dbPool:      dbPool,

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),

		workoutsRepo:   workoutsRepo,
		activitiesRepo: activitiesRepo,
		profilesRepo:   profile.NewRepo(dbPool),
		historyRegistry: history.NewRegistry(
			workoutsRepo,
			activitiesRepo,
			history.NewAnalyzer(params.Config.SortExercises),
		),
		accuracyService: accuracy.NewService(
			params.Config.AccuracyScriptPath,
			params.Config.AccuracyWorkDir,
			metricsManager,
		),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("fitlog-router"))

	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(s.versionInfo)); err != nil {
			log.Errorf("failed to write version response: %s", err)
		}
	}).Methods("GET").Name("version")

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	authHandler := auth.NewHandler(s.authService)
	authHandler.SetupRoutes(r, middleware.RateLimit(
		reqRateLimiter,
		"auth-router",
		s.config.LoginRateLimitAllowedPerMin,
		s.metricsManager,
	))

	workoutsHandler := workout.NewHandler(s.workoutsRepo, s.historyRegistry, s.metricsManager)
	r.HandleFunc("/workout", workoutsHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-workout")
	r.HandleFunc("/workout/list", workoutsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	r.HandleFunc("/workout/{id}", workoutsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("remove-workout")

	activitiesHandler := activity.NewHandler(s.activitiesRepo, s.historyRegistry, s.metricsManager)
	r.HandleFunc("/activity", activitiesHandler.HandleUpsert).Methods("POST", "OPTIONS").Name("log-activity")
	r.HandleFunc("/activity/list", activitiesHandler.HandleList).Methods("GET", "OPTIONS").Name("list-activities")

	historyHandler := history.NewHandler(s.historyRegistry)
	r.HandleFunc("/history", historyHandler.HandleCombinedHistory).Methods("GET", "OPTIONS").Name("combined-history")
	r.HandleFunc("/history/recent", historyHandler.HandleRecent).Methods("GET", "OPTIONS").Name("recent-workouts")
	r.HandleFunc("/history/volume", historyHandler.HandleVolume).Methods("GET", "OPTIONS").Name("volume-by-date")
	r.HandleFunc("/history/volume/weekday", historyHandler.HandleVolumeByWeekday).Methods("GET", "OPTIONS").Name("volume-by-weekday")
	r.HandleFunc("/history/exercises", historyHandler.HandleExercises).Methods("GET", "OPTIONS").Name("list-exercises")
	r.HandleFunc("/history/exercise/{name}/progress", historyHandler.HandleExerciseProgress).Methods("GET", "OPTIONS").Name("exercise-progress")
	r.HandleFunc("/history/exercise/{name}/pb", historyHandler.HandlePersonalBest).Methods("GET", "OPTIONS").Name("exercise-pb")
	r.HandleFunc("/history/exercise/{name}/chart", historyHandler.HandleExerciseChart).Methods("GET", "OPTIONS").Name("exercise-chart")

	profilesHandler := profile.NewHandler(s.profilesRepo)
	r.HandleFunc("/profile", profilesHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-profile")
	r.HandleFunc("/profile", profilesHandler.HandleSave).Methods("POST", "OPTIONS").Name("save-profile")

	accuracyHandler := accuracy.NewHandler(s.accuracyService)
	r.HandleFunc("/accuracy/score", accuracyHandler.HandleScore).Methods("POST", "OPTIONS").Name("accuracy-score")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("fitlog service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() (err error) {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	// in-flight refresh results are discarded from here on
	s.historyRegistry.Close()

	if s.redisClient != nil {
		if closeErr := s.redisClient.Close(); closeErr != nil {
			log.Errorf("failed to close redis client conn: %s", closeErr)
			err = multierr.Append(err, closeErr)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
		err = multierr.Append(err, shutdownErr)
	}
	log.Warnln("server shut down")

	if shutdownErr := s.metricsHttpServer.Shutdown(ctx); shutdownErr != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
		err = multierr.Append(err, shutdownErr)
	}
	log.Warnln("metrics server shut down")

	return err
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
