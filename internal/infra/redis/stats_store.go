package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"exam-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// StatsStore keeps per-user running statistics as a JSON document at quiz:stats:{userID}.
type StatsStore struct {
	client *redis.Client
}

func NewStatsStore(client *redis.Client) *StatsStore {
	return &StatsStore{client: client}
}

func (s *StatsStore) RecordResults(ctx context.Context, results domain.QuizResults) (domain.UserStats, error) {
	key := s.key(results.UserID)
	var updated domain.UserStats

	txf := func(tx *redis.Tx) error {
		current, err := s.load(ctx, tx, results.UserID)
		if err != nil && !errors.Is(err, domain.ErrStatsNotFound) {
			return err
		}
		current.UserID = results.UserID
		next := current.Record(results)
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal stats: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			updated = next
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.UserStats{}, err
		}
		return updated, nil
	}
	return domain.UserStats{}, fmt.Errorf("stats transaction: %w", redis.TxFailedErr)
}

func (s *StatsStore) GetStats(ctx context.Context, userID string) (domain.UserStats, error) {
	return s.load(ctx, s.client, userID)
}

func (s *StatsStore) load(ctx context.Context, c getter, userID string) (domain.UserStats, error) {
	data, err := c.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UserStats{}, domain.ErrStatsNotFound
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("load stats: %w", err)
	}
	var stats domain.UserStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return domain.UserStats{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return stats, nil
}

func (s *StatsStore) key(userID string) string {
	return "quiz:stats:" + userID
}
