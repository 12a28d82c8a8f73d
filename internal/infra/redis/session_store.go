package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exam-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

// SessionStore is a Redis implementation of app.SessionRepository.
// Sessions and results are JSON documents:
//
//	SET quiz:session:{id} {session}
//	SET quiz:results:{id} {results}
//
// Updates and finalization use WATCH/MULTI so a save can never overwrite a session
// that was completed in between, and results land together with the completed flag.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a store. A zero ttl keeps documents indefinitely.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, session domain.QuizSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.sessionKey(session.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	return s.load(ctx, s.client, sessionID)
}

func (s *SessionStore) Update(ctx context.Context, sessionID string, fn func(*domain.QuizSession) error) (domain.QuizSession, error) {
	key := s.sessionKey(sessionID)
	var updated domain.QuizSession

	txf := func(tx *redis.Tx) error {
		session, err := s.load(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := fn(&session); err != nil {
			return err
		}
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		if err == nil {
			updated = session
		}
		return err
	}

	if err := s.watch(ctx, txf, key); err != nil {
		return domain.QuizSession{}, err
	}
	return updated, nil
}

func (s *SessionStore) Finalize(ctx context.Context, sessionID string, score func(*domain.QuizSession) (domain.QuizResults, error)) (domain.QuizResults, bool, error) {
	key := s.sessionKey(sessionID)
	resultsKey := s.resultsKey(sessionID)
	var (
		results domain.QuizResults
		created bool
	)

	txf := func(tx *redis.Tx) error {
		session, err := s.load(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session.Completed {
			results, err = s.loadResults(ctx, tx, sessionID)
			created = false
			return err
		}

		computed, err := score(&session)
		if err != nil {
			return err
		}
		completedAt := computed.CompletedAt
		session.Completed = true
		session.CompletedAt = &completedAt

		sessionData, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		resultsData, err := json.Marshal(computed)
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, resultsKey, resultsData, s.ttl)
			pipe.Set(ctx, key, sessionData, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		results = computed
		created = true
		return nil
	}

	if err := s.watch(ctx, txf, key, resultsKey); err != nil {
		return domain.QuizResults{}, false, err
	}
	return results, created, nil
}

func (s *SessionStore) GetResults(ctx context.Context, sessionID string) (domain.QuizResults, error) {
	return s.loadResults(ctx, s.client, sessionID)
}

// watch runs txf under optimistic locking, retrying when a watched key changed.
func (s *SessionStore) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("session transaction: %w", redis.TxFailedErr)
}

func (s *SessionStore) load(ctx context.Context, c getter, sessionID string) (domain.QuizSession, error) {
	data, err := c.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("load session: %w", err)
	}
	var session domain.QuizSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.QuizSession{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}

func (s *SessionStore) loadResults(ctx context.Context, c getter, sessionID string) (domain.QuizResults, error) {
	data, err := c.Get(ctx, s.resultsKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.QuizResults{}, domain.ErrResultsNotFound
	}
	if err != nil {
		return domain.QuizResults{}, fmt.Errorf("load results: %w", err)
	}
	var results domain.QuizResults
	if err := json.Unmarshal(data, &results); err != nil {
		return domain.QuizResults{}, fmt.Errorf("unmarshal results: %w", err)
	}
	return results, nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return "quiz:session:" + sessionID
}

func (s *SessionStore) resultsKey(sessionID string) string {
	return "quiz:results:" + sessionID
}
