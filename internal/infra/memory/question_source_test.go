package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"exam-quiz-service/internal/app"
	"exam-quiz-service/internal/domain"
)

func TestCachedQuestionSourceCaches(t *testing.T) {
	source := &countingSource{QuestionSource: NewStaticQuestionBank(sampleBank())}
	cached := NewCachedQuestionSource(source, time.Minute)
	query := domain.QuestionQuery{Pool: "daily", Difficulty: domain.DifficultyEasy, Limit: 10}

	got, err := cached.Questions(context.Background(), query)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if source.calls != 1 {
		t.Fatalf("expected source once, got %d", source.calls)
	}

	if _, err := cached.Questions(context.Background(), query); err != nil {
		t.Fatalf("questions 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.calls)
	}
}

func TestCachedQuestionSourceExpires(t *testing.T) {
	source := &countingSource{QuestionSource: NewStaticQuestionBank(sampleBank())}
	cached := NewCachedQuestionSource(source, time.Minute)
	now := time.Unix(1000, 0)
	cached.clock = func() time.Time { return now }
	query := domain.QuestionQuery{Pool: "daily", Difficulty: domain.DifficultyEasy, Limit: 10}

	_, _ = cached.Questions(context.Background(), query)
	now = now.Add(2 * time.Minute)
	_, _ = cached.Questions(context.Background(), query)
	if source.calls != 2 {
		t.Fatalf("expected reload after expiry, got %d calls", source.calls)
	}
}

func TestCachedQuestionSourceDoesNotCacheErrors(t *testing.T) {
	source := &countingSource{err: errors.New("db down")}
	cached := NewCachedQuestionSource(source, time.Minute)
	query := domain.QuestionQuery{Pool: "daily", Difficulty: domain.DifficultyEasy}

	if _, err := cached.Questions(context.Background(), query); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := cached.Questions(context.Background(), query); err == nil {
		t.Fatalf("expected error")
	}
	if source.calls != 2 {
		t.Fatalf("expected errors not cached, got %d calls", source.calls)
	}
}

func TestStaticQuestionBankFilters(t *testing.T) {
	bank := NewStaticQuestionBank(sampleBank())

	got, _ := bank.Questions(context.Background(), domain.QuestionQuery{Pool: "daily", Difficulty: domain.DifficultyEasy, Subject: "History"})
	if len(got) != 1 || got[0].ID != "q1" {
		t.Fatalf("expected only q1, got %+v", got)
	}

	got, _ = bank.Questions(context.Background(), domain.QuestionQuery{Pool: "daily", Difficulty: domain.DifficultyEasy, Limit: 1})
	if len(got) != 1 {
		t.Fatalf("expected limit applied, got %d", len(got))
	}

	got, _ = bank.Questions(context.Background(), domain.QuestionQuery{Pool: "pyq", Difficulty: domain.DifficultyEasy})
	if len(got) != 0 {
		t.Fatalf("expected empty pool, got %d", len(got))
	}
}

type countingSource struct {
	app.QuestionSource
	calls int
	err   error
}

func (s *countingSource) Questions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.QuestionSource.Questions(ctx, query)
}

func sampleBank() map[string][]domain.Question {
	return map[string][]domain.Question{
		"daily": {
			{ID: "q1", Question: "Who founded the Maurya empire?", Options: []string{"Chandragupta", "Ashoka", "Bindusara", "Harsha"}, CorrectAnswer: "A", Subject: "History", Difficulty: domain.DifficultyEasy},
			{ID: "q2", Question: "Article 21 protects?", Options: []string{"Property", "Life and liberty", "Religion", "Speech"}, CorrectAnswer: "B", Subject: "Polity", Difficulty: domain.DifficultyEasy},
			{ID: "q3", Question: "Hard one", Options: []string{"a", "b"}, CorrectAnswer: "A", Subject: "Polity", Difficulty: domain.DifficultyHard},
		},
	}
}
