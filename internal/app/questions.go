package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"exam-quiz-service/internal/domain"
)

// QuestionSource queries a backing question store (Postgres, cache, static bank).
type QuestionSource interface {
	Questions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error)
}

// SyntheticSource marks placeholder questions generated to fill a short pool.
const SyntheticSource = "synthetic"

// QuestionPool draws randomized question sets for a quiz.
type QuestionPool struct {
	source QuestionSource

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionPool(source QuestionSource) *QuestionPool {
	return NewQuestionPoolWithRand(source, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewQuestionPoolWithRand allows a seeded shuffle in tests.
func NewQuestionPoolWithRand(source QuestionSource, rnd *rand.Rand) *QuestionPool {
	return &QuestionPool{source: source, rnd: rnd}
}

// FetchQuestions returns exactly count questions in random order. Short pools are
// padded with synthetic questions; an unreachable store fails with ErrPoolUnavailable.
func (p *QuestionPool) FetchQuestions(ctx context.Context, quizType domain.QuizType, difficulty domain.Difficulty, subject string, count int) ([]domain.Question, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: question count must be positive", domain.ErrInvalidRequest)
	}
	cfg, ok := quizType.Config()
	if !ok {
		return nil, fmt.Errorf("%w: unknown quiz type %q", domain.ErrInvalidRequest, quizType)
	}

	query := domain.QuestionQuery{
		Pool:       cfg.Pool,
		Difficulty: difficulty,
		Limit:      count * 2,
	}
	if subject != domain.GeneralStudies {
		query.Subject = subject
	}

	found, err := p.source.Questions(ctx, query)
	if err != nil {
		if errors.Is(err, domain.ErrPoolUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPoolUnavailable, err)
	}

	questions := make([]domain.Question, len(found))
	copy(questions, found)

	p.mu.Lock()
	p.rnd.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	p.mu.Unlock()

	if len(questions) > count {
		questions = questions[:count]
	}
	for n := len(questions); n < count; n++ {
		questions = append(questions, syntheticQuestion(quizType, difficulty, subject, n+1))
	}
	return questions, nil
}

func syntheticQuestion(quizType domain.QuizType, difficulty domain.Difficulty, subject string, n int) domain.Question {
	if subject == "" {
		subject = domain.GeneralStudies
	}
	return domain.Question{
		ID:       fmt.Sprintf("synthetic-%s-%s-%d", quizType, difficulty, n),
		Question: fmt.Sprintf("Practice question %d on %s (%s level)", n, subject, difficulty),
		Options: []string{
			fmt.Sprintf("Option A for question %d", n),
			fmt.Sprintf("Option B for question %d", n),
			fmt.Sprintf("Option C for question %d", n),
			fmt.Sprintf("Option D for question %d", n),
		},
		CorrectAnswer: "A",
		Explanation:   "This is a placeholder question generated because the question pool had too few matching entries.",
		Subject:       subject,
		Difficulty:    difficulty,
		Source:        SyntheticSource,
		Tags:          []string{"synthetic", "placeholder"},
	}
}

// IsSynthetic reports whether q was generated to pad a short pool.
func IsSynthetic(q domain.Question) bool {
	return q.Source == SyntheticSource
}
