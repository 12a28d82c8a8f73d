package memory

import (
	"context"
	"sync"

	"exam-quiz-service/internal/domain"
)

// StatsStore keeps per-user running statistics in memory.
type StatsStore struct {
	mu    sync.Mutex
	stats map[string]domain.UserStats
}

func NewStatsStore() *StatsStore {
	return &StatsStore{stats: make(map[string]domain.UserStats)}
}

func (s *StatsStore) RecordResults(_ context.Context, results domain.QuizResults) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.stats[results.UserID]
	current.UserID = results.UserID
	updated := current.Record(results)
	s.stats[results.UserID] = updated
	return updated, nil
}

func (s *StatsStore) GetStats(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, ok := s.stats[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrStatsNotFound
	}
	return stats, nil
}
