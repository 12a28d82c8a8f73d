package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"exam-quiz-service/internal/app"
	"exam-quiz-service/internal/domain"
	"exam-quiz-service/internal/infra/postgres"
	pgmigrations "exam-quiz-service/internal/infra/postgres/migrations"
	infraredis "exam-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openDB(pgURL)
	defer db.Close()
	migrateDB(t, ctx, db)
	seedQuestions(t, ctx, db, sampleQuestions())

	tiers := postgres.NewTierStore(db)
	if err := tiers.SetTier(ctx, "u-practice", domain.TierPractice); err != nil {
		t.Fatalf("set tier: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	usageStore := infraredis.NewUsageStore(redisClient)
	ledger := app.NewUsageLedger(usageStore, 16, 3)
	go ledger.Run(ctx)

	service := app.NewQuizService(
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		infraredis.NewStatsStore(redisClient),
		app.NewQuestionPool(infraredis.NewQuestionCache(redisClient, postgres.NewQuestionSource(pool), 5*time.Minute)),
		app.NewAccessGate(tiers),
		ledger,
	)

	if _, err := service.Generate(ctx, app.GenerateRequest{
		UserID: "u-free", QuizType: domain.QuizSubjectPractice, Difficulty: domain.DifficultyMedium, Subject: "Polity", MaxQuestions: 2,
	}); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected free user to be denied, got %v", err)
	}

	gen, err := service.Generate(ctx, app.GenerateRequest{
		UserID: "u-practice", QuizType: domain.QuizSubjectPractice, Difficulty: domain.DifficultyMedium, Subject: "Polity", MaxQuestions: 3,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(gen.Questions) != 3 || gen.TimeLimit != 1800 {
		t.Fatalf("unexpected generate result %+v", gen)
	}
	stored := 0
	for _, q := range gen.Questions {
		if !app.IsSynthetic(q) {
			stored++
		}
	}
	if stored != 2 {
		t.Fatalf("expected both seeded Polity questions plus one filler, got %d stored", stored)
	}

	answers := make([]*string, len(gen.Questions))
	for i, q := range gen.Questions {
		a := q.CorrectAnswer
		answers[i] = &a
	}
	if _, err := service.SaveProgress(ctx, app.ProgressUpdate{
		SessionID:     gen.SessionID,
		Answers:       answers,
		Bookmarked:    make([]bool, len(answers)),
		TimeRemaining: 1700,
	}); err != nil {
		t.Fatalf("save progress: %v", err)
	}

	first, err := service.Complete(ctx, app.CompleteRequest{SessionID: gen.SessionID})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if first.Score != 100 || first.Accuracy != 100 {
		t.Fatalf("expected a perfect score, got %+v", first)
	}
	second, err := service.Complete(ctx, app.CompleteRequest{SessionID: gen.SessionID})
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("completion is not idempotent:\n%s\n%s", a, b)
	}

	ledger.Close()
	daily, err := usageStore.Daily(ctx, "u-practice", first.CompletedAt.Format("2006-01-02"))
	if err != nil {
		t.Fatalf("daily usage: %v", err)
	}
	if daily.Quizzes != 1 || daily.Questions != 3 {
		t.Fatalf("unexpected daily usage %+v", daily)
	}

	stats, err := service.GetStats(ctx, "u-practice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalQuizzes != 1 || stats.BestScore != 100 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func openDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func migrateDB(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, db *bun.DB, pools map[string][]domain.Question) {
	t.Helper()
	for pool, questions := range pools {
		for _, q := range questions {
			data, err := json.Marshal(q)
			if err != nil {
				t.Fatalf("marshal question: %v", err)
			}
			if _, err := db.ExecContext(ctx,
				`INSERT INTO questions (id, pool, difficulty, subject, data) VALUES (?, ?, ?, ?, ?::jsonb)
				 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
				q.ID, pool, string(q.Difficulty), q.SubjectOrDefault(), string(data)); err != nil {
				t.Fatalf("insert question: %v", err)
			}
		}
	}
}

func sampleQuestions() map[string][]domain.Question {
	opts := []string{"one", "two", "three", "four"}
	return map[string][]domain.Question{
		"questions": {
			{ID: "p1", Question: "Who appoints the Governor?", Options: opts, CorrectAnswer: "C", Subject: "Polity", Difficulty: domain.DifficultyMedium},
			{ID: "p2", Question: "Which schedule lists the languages?", Options: opts, CorrectAnswer: "D", Subject: "Polity", Difficulty: domain.DifficultyMedium},
			{ID: "h1", Question: "When was the Battle of Plassey?", Options: opts, CorrectAnswer: "A", Subject: "History", Difficulty: domain.DifficultyMedium},
			{ID: "p3", Question: "Hard polity question", Options: opts, CorrectAnswer: "B", Subject: "Polity", Difficulty: domain.DifficultyHard},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
