package app

import (
	"context"
	"sync"
	"time"

	"exam-quiz-service/internal/domain"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// UsageRepository applies additive usage counters.
type UsageRepository interface {
	Increment(ctx context.Context, entry domain.UsageEntry) error
}

// UsageLedger records quiz usage off the request path. Entries are queued and
// applied by a background worker with bounded retries; failures are logged only.
type UsageLedger struct {
	repo       UsageRepository
	queue      chan domain.UsageEntry
	maxRetries uint64
	baseDelay  time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewUsageLedger(repo UsageRepository, queueSize int, maxRetries uint64) *UsageLedger {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &UsageLedger{
		repo:       repo,
		queue:      make(chan domain.UsageEntry, queueSize),
		maxRetries: maxRetries,
		baseDelay:  200 * time.Millisecond,
		done:       make(chan struct{}),
	}
}

// SetRetryDelay changes the initial backoff interval between attempts.
func (l *UsageLedger) SetRetryDelay(d time.Duration) {
	l.baseDelay = d
}

// Record queues usage for a completed quiz. It never blocks; a full queue drops the entry.
func (l *UsageLedger) Record(userID string, quizType domain.QuizType, results domain.QuizResults) {
	entry := domain.UsageEntry{
		UserID:    userID,
		QuizType:  quizType,
		Questions: results.TotalQuestions,
		Correct:   results.CorrectAnswers,
		Score:     results.Score,
		TimeSpent: results.TimeTaken,
		At:        results.CompletedAt,
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		log.Warn().Str("userId", userID).Msg("usage ledger closed, dropping entry")
		return
	}
	select {
	case l.queue <- entry:
	default:
		log.Warn().Str("userId", userID).Str("quizType", string(quizType)).Msg("usage queue full, dropping entry")
	}
}

// Run drains the queue until Close is called. ctx bounds retries of in-flight entries.
func (l *UsageLedger) Run(ctx context.Context) {
	defer close(l.done)
	for entry := range l.queue {
		l.apply(ctx, entry)
	}
}

// Close stops intake and waits for queued entries to be applied.
func (l *UsageLedger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()
	<-l.done
}

func (l *UsageLedger) apply(ctx context.Context, entry domain.UsageEntry) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = l.baseDelay
	policy.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		return l.repo.Increment(ctx, entry)
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, l.maxRetries), ctx))
	if err != nil {
		log.Error().Err(err).
			Str("userId", entry.UserID).
			Str("quizType", string(entry.QuizType)).
			Int("attempts", attempt).
			Msg("failed to record usage")
	}
}
