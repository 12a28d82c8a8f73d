package memory

import (
	"context"
	"sync"

	"exam-quiz-service/internal/domain"
)

// UsageStore keeps usage counters in memory.
type UsageStore struct {
	mu     sync.Mutex
	daily  map[string]domain.DailyUsage
	byType map[string]domain.QuizTypeUsage
}

func NewUsageStore() *UsageStore {
	return &UsageStore{
		daily:  make(map[string]domain.DailyUsage),
		byType: make(map[string]domain.QuizTypeUsage),
	}
}

func (s *UsageStore) Increment(_ context.Context, entry domain.UsageEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dayKey := entry.UserID + ":" + entry.Day()
	d := s.daily[dayKey]
	d.Quizzes++
	d.Questions += entry.Questions
	d.Correct += entry.Correct
	d.TimeSpent += entry.TimeSpent
	s.daily[dayKey] = d

	typeKey := entry.UserID + ":" + string(entry.QuizType)
	t := s.byType[typeKey]
	t.Attempts++
	t.Questions += entry.Questions
	t.Correct += entry.Correct
	t.TotalScore += entry.Score
	t.LastScore = entry.Score
	s.byType[typeKey] = t
	return nil
}

// Daily returns the counters for userID on day (YYYY-MM-DD).
func (s *UsageStore) Daily(userID, day string) domain.DailyUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.daily[userID+":"+day]
}

// ByQuizType returns the lifetime counters for userID and quizType.
func (s *UsageStore) ByQuizType(userID string, quizType domain.QuizType) domain.QuizTypeUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byType[userID+":"+string(quizType)]
}
