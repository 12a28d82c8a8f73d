package redis

import (
	"context"
	"fmt"
	"strconv"

	"exam-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// UsageStore keeps usage counters in Redis hashes:
//
//	HINCRBY usage:daily:{userID}:{YYYY-MM-DD} quizzes|questions|correct|timeSpent
//	HINCRBY usage:type:{userID}:{quizType}    attempts|questions|correct|totalScore
//	HSET    usage:type:{userID}:{quizType}    lastScore
type UsageStore struct {
	client *redis.Client
}

func NewUsageStore(client *redis.Client) *UsageStore {
	return &UsageStore{client: client}
}

func (s *UsageStore) Increment(ctx context.Context, entry domain.UsageEntry) error {
	dailyKey := s.dailyKey(entry.UserID, entry.Day())
	typeKey := s.typeKey(entry.UserID, entry.QuizType)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, dailyKey, "quizzes", 1)
		pipe.HIncrBy(ctx, dailyKey, "questions", int64(entry.Questions))
		pipe.HIncrBy(ctx, dailyKey, "correct", int64(entry.Correct))
		pipe.HIncrBy(ctx, dailyKey, "timeSpent", int64(entry.TimeSpent))

		pipe.HIncrBy(ctx, typeKey, "attempts", 1)
		pipe.HIncrBy(ctx, typeKey, "questions", int64(entry.Questions))
		pipe.HIncrBy(ctx, typeKey, "correct", int64(entry.Correct))
		pipe.HIncrBy(ctx, typeKey, "totalScore", int64(entry.Score))
		pipe.HSet(ctx, typeKey, "lastScore", entry.Score)
		return nil
	})
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// Daily returns the counters for userID on day (YYYY-MM-DD).
func (s *UsageStore) Daily(ctx context.Context, userID, day string) (domain.DailyUsage, error) {
	fields, err := s.client.HGetAll(ctx, s.dailyKey(userID, day)).Result()
	if err != nil {
		return domain.DailyUsage{}, err
	}
	return domain.DailyUsage{
		Quizzes:   atoi(fields["quizzes"]),
		Questions: atoi(fields["questions"]),
		Correct:   atoi(fields["correct"]),
		TimeSpent: atoi(fields["timeSpent"]),
	}, nil
}

// ByQuizType returns the lifetime counters for userID and quizType.
func (s *UsageStore) ByQuizType(ctx context.Context, userID string, quizType domain.QuizType) (domain.QuizTypeUsage, error) {
	fields, err := s.client.HGetAll(ctx, s.typeKey(userID, quizType)).Result()
	if err != nil {
		return domain.QuizTypeUsage{}, err
	}
	return domain.QuizTypeUsage{
		Attempts:   atoi(fields["attempts"]),
		Questions:  atoi(fields["questions"]),
		Correct:    atoi(fields["correct"]),
		TotalScore: atoi(fields["totalScore"]),
		LastScore:  atoi(fields["lastScore"]),
	}, nil
}

func (s *UsageStore) dailyKey(userID, day string) string {
	return "usage:daily:" + userID + ":" + day
}

func (s *UsageStore) typeKey(userID string, quizType domain.QuizType) string {
	return "usage:type:" + userID + ":" + string(quizType)
}

func atoi(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
