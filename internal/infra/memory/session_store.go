package memory

import (
	"context"
	"fmt"
	"sync"

	"exam-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// A single lock covers sessions and results, so Finalize is atomic.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.QuizSession
	results  map[string]domain.QuizResults
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.QuizSession),
		results:  make(map[string]domain.QuizResults),
	}
}

func (s *SessionStore) Create(_ context.Context, session domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *SessionStore) Update(_ context.Context, sessionID string, fn func(*domain.QuizSession) error) (domain.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[sessionID]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	working := stored.Clone()
	if err := fn(&working); err != nil {
		return domain.QuizSession{}, err
	}
	s.sessions[sessionID] = working.Clone()
	return working, nil
}

func (s *SessionStore) Finalize(_ context.Context, sessionID string, score func(*domain.QuizSession) (domain.QuizResults, error)) (domain.QuizResults, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[sessionID]
	if !ok {
		return domain.QuizResults{}, false, domain.ErrSessionNotFound
	}
	if stored.Completed {
		results, ok := s.results[sessionID]
		if !ok {
			return domain.QuizResults{}, false, domain.ErrResultsNotFound
		}
		return results, false, nil
	}

	working := stored.Clone()
	results, err := score(&working)
	if err != nil {
		return domain.QuizResults{}, false, err
	}
	completedAt := results.CompletedAt
	working.Completed = true
	working.CompletedAt = &completedAt

	s.results[sessionID] = results
	s.sessions[sessionID] = working
	return results, true, nil
}

func (s *SessionStore) GetResults(_ context.Context, sessionID string) (domain.QuizResults, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results, ok := s.results[sessionID]
	if !ok {
		return domain.QuizResults{}, domain.ErrResultsNotFound
	}
	return results, nil
}
