package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/quizrush/quizrush/internal/dbconfig"
	"github.com/quizrush/quizrush/internal/gateway"
	"github.com/quizrush/quizrush/internal/httpapi"
	"github.com/quizrush/quizrush/internal/leaderboard"
	"github.com/quizrush/quizrush/internal/questions"
	"github.com/quizrush/quizrush/internal/rounds"
	"github.com/quizrush/quizrush/internal/scoring"
	"github.com/quizrush/quizrush/internal/teams"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		log.Fatal().Msg("JWT_SECRET environment variable is required")
	}
	adminKey := getEnv("ADMIN_KEY", "")
	if adminKey == "" {
		log.Fatal().Msg("ADMIN_KEY environment variable is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbCfg := dbconfig.NewConfigFromEnv()
	pool, err := dbCfg.Connect(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	log.Info().
		Str("database", dbCfg.Database).
		Str("port", cfg.Server.Port).
		Msg("starting quizrush")

	clock := clockwork.NewRealClock()

	teamRepo := teams.NewRepository(pool)
	questionRepo := questions.NewRepository(pool)
	stateRepo := rounds.NewRepository(pool)

	aggregator := leaderboard.NewAggregator(teamRepo, cfg.Game.LeaderboardSize)

	hub := gateway.NewHub(gateway.DefaultConnectionConfig())
	mirror := gateway.NewStateMirror()

	// Seed the mirror from the store so a restart does not present a
	// stale stopped state to observers.
	state, err := stateRepo.State(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read round state")
	}
	mirror.Seed(state)

	var publisher gateway.EventPublisher
	if cfg.NATS.Enabled {
		natsCfg := gateway.DefaultNATSConfig()
		natsCfg.URL = cfg.NATS.URL
		if cfg.NATS.SubjectPrefix != "" {
			natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		}
		np, err := gateway.NewNATSPublisher(natsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect event bridge")
		}
		defer np.Close()
		publisher = np
	}

	sync := gateway.NewSynchronizer(hub, mirror, aggregator, clock, publisher)

	controller := rounds.NewController(stateRepo, sync, clock, cfg.durations())
	engine := scoring.NewEngine(teamRepo, questionRepo, stateRepo, sync, clock, scoring.Config{
		Round3MaxAttempts:     cfg.Game.Round3MaxAttempts,
		Round3PointsByAttempt: cfg.Game.Round3PointsByAttempt,
	})
	teamApp := teams.NewApp(teamRepo, stateRepo, clock)

	api := httpapi.NewAPI(
		controller, engine, teamApp, aggregator, sync,
		gateway.NewWebSocketHandler(hub),
		clock, []byte(jwtSecret), adminKey,
	)

	server := setupServer(api, cfg.Server.Port)

	go hub.Start(ctx)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	cancel()
}
