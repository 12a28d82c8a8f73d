package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam-quiz-service/internal/app"
	"exam-quiz-service/internal/config"
	"exam-quiz-service/internal/domain"
	"exam-quiz-service/internal/infra/memory"
	"exam-quiz-service/internal/infra/postgres"
	redisstore "exam-quiz-service/internal/infra/redis"
	"exam-quiz-service/internal/logger"
	transport "exam-quiz-service/internal/transport/http"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the storage wiring chosen from config.
type backends struct {
	sessions app.SessionRepository
	stats    app.StatsRepository
	usage    app.UsageRepository
	tiers    app.TierLookup
	source   app.QuestionSource
	closers  []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := buildBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ledgerCtx, stopLedger := context.WithCancel(context.Background())
	defer stopLedger()
	ledger := app.NewUsageLedger(b.usage, cfg.Usage.QueueSize, cfg.Usage.MaxRetries)
	go ledger.Run(ledgerCtx)

	service := app.NewQuizService(
		b.sessions,
		b.stats,
		app.NewQuestionPool(b.source),
		app.NewAccessGate(b.tiers),
		ledger,
	).WithMaxQuestions(cfg.Quiz.MaxQuestions)

	auth := transport.NewAuthenticator(cfg.Auth.JWTSecret)
	if !auth.Enabled() {
		log.Warn().Msg("jwt secret not configured, requests are not authenticated")
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	transport.NewQuizHandler(service, auth).Register(router)
	transport.NewWSHandler(service, auth).Register(router)

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(transport.AccessLog(router))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)

	// flush queued usage before the stores close; give up after the shutdown deadline
	go func() {
		<-shutdownCtx.Done()
		stopLedger()
	}()
	ledger.Close()
	return err
}

func buildBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}

	var source app.QuestionSource = memory.NewStaticQuestionBank(sampleQuestions())
	b.tiers = memory.NewTierStore(nil)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		source = postgres.NewQuestionSource(pool)

		db := openBun(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })
		b.tiers = postgres.NewTierStore(db)
	}

	poolTTL := config.TTLDuration(cfg.Quiz.PoolTTL, 10*time.Minute)
	if cfg.Redis.Addr == "" {
		log.Warn().Msg("redis not configured, sessions are kept in memory")
		b.sessions = memory.NewSessionStore()
		b.stats = memory.NewStatsStore()
		b.usage = memory.NewUsageStore()
		b.source = memory.NewCachedQuestionSource(source, poolTTL)
		return b, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		b.Close()
		_ = client.Close()
		return nil, err
	}
	b.closers = append(b.closers, func() { _ = client.Close() })

	b.sessions = redisstore.NewSessionStore(client, config.TTLDuration(cfg.Redis.TTL, 0))
	b.stats = redisstore.NewStatsStore(client)
	b.usage = redisstore.NewUsageStore(client)
	b.source = redisstore.NewQuestionCache(client, source, poolTTL)
	return b, nil
}

// sampleQuestions seeds the in-memory bank when no Postgres is configured.
// Short pools are padded with synthetic questions at draw time.
func sampleQuestions() map[string][]domain.Question {
	return map[string][]domain.Question{
		"daily": {
			{
				ID:            "daily-1",
				Question:      "Which article of the Constitution of India abolishes untouchability?",
				Options:       []string{"Article 14", "Article 17", "Article 21", "Article 32"},
				CorrectAnswer: "B",
				Explanation:   "Article 17 abolishes untouchability and forbids its practice in any form.",
				Subject:       "Polity",
				Difficulty:    domain.DifficultyEasy,
			},
			{
				ID:            "daily-2",
				Question:      "The Tropic of Cancer does not pass through which of these states?",
				Options:       []string{"Rajasthan", "Odisha", "Chhattisgarh", "Tripura"},
				CorrectAnswer: "B",
				Explanation:   "The Tropic of Cancer passes through eight states; Odisha is not one of them.",
				Subject:       "Geography",
				Difficulty:    domain.DifficultyEasy,
			},
		},
		"questions": {
			{
				ID:            "gs-1",
				Question:      "Who presided over the first session of the Indian National Congress?",
				Options:       []string{"Dadabhai Naoroji", "W. C. Bonnerjee", "Surendranath Banerjee", "A. O. Hume"},
				CorrectAnswer: "B",
				Explanation:   "W. C. Bonnerjee presided over the 1885 Bombay session.",
				Subject:       "History",
				Difficulty:    domain.DifficultyMedium,
			},
		},
	}
}
