package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"exam-quiz-service/internal/app"
	"exam-quiz-service/internal/domain"
	"exam-quiz-service/internal/infra/memory"
)

type flakyUsage struct {
	mu       sync.Mutex
	failures int
	calls    int
	applied  []domain.UsageEntry
}

func (f *flakyUsage) Increment(_ context.Context, entry domain.UsageEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient")
	}
	f.applied = append(f.applied, entry)
	return nil
}

func completedResults(score int) domain.QuizResults {
	return domain.QuizResults{
		TotalQuestions: 10,
		CorrectAnswers: score / 10,
		Score:          score,
		TimeTaken:      300,
		CompletedAt:    time.Date(2024, 11, 22, 23, 30, 0, 0, time.UTC),
	}
}

func TestUsageLedgerAppliesEntries(t *testing.T) {
	store := memory.NewUsageStore()
	ledger := app.NewUsageLedger(store, 8, 2)
	go ledger.Run(context.Background())

	ledger.Record("u1", domain.QuizFreeDaily, completedResults(70))
	ledger.Record("u1", domain.QuizFreeDaily, completedResults(90))
	ledger.Record("u1", domain.QuizPYQ, completedResults(40))
	ledger.Close()

	daily := store.Daily("u1", "2024-11-22")
	if daily.Quizzes != 3 || daily.Questions != 30 || daily.TimeSpent != 900 {
		t.Fatalf("unexpected daily usage %+v", daily)
	}
	byType := store.ByQuizType("u1", domain.QuizFreeDaily)
	if byType.Attempts != 2 || byType.TotalScore != 160 || byType.LastScore != 90 {
		t.Fatalf("unexpected quiz type usage %+v", byType)
	}

	// Closed ledgers drop silently.
	ledger.Record("u1", domain.QuizPYQ, completedResults(10))
	if got := store.ByQuizType("u1", domain.QuizPYQ); got.Attempts != 1 {
		t.Fatalf("entry recorded after close: %+v", got)
	}
}

func TestUsageLedgerRetries(t *testing.T) {
	repo := &flakyUsage{failures: 2}
	ledger := app.NewUsageLedger(repo, 4, 3)
	ledger.SetRetryDelay(time.Millisecond)
	go ledger.Run(context.Background())

	ledger.Record("u1", domain.QuizFreeDaily, completedResults(50))
	ledger.Close()

	if repo.calls != 3 || len(repo.applied) != 1 {
		t.Fatalf("expected success on third attempt, got calls=%d applied=%d", repo.calls, len(repo.applied))
	}
}

func TestUsageLedgerGivesUp(t *testing.T) {
	repo := &flakyUsage{failures: 100}
	ledger := app.NewUsageLedger(repo, 4, 2)
	ledger.SetRetryDelay(time.Millisecond)
	go ledger.Run(context.Background())

	ledger.Record("u1", domain.QuizFreeDaily, completedResults(50))
	ledger.Close()

	if repo.calls != 3 || len(repo.applied) != 0 {
		t.Fatalf("expected 1 attempt + 2 retries, got calls=%d applied=%d", repo.calls, len(repo.applied))
	}
}
