package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"exam-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionSource reads question documents (JSONB) from the questions table.
type QuestionSource struct {
	pool *pgxpool.Pool
}

func NewQuestionSource(pool *pgxpool.Pool) *QuestionSource {
	return &QuestionSource{pool: pool}
}

func (s *QuestionSource) Questions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	sql := `SELECT data FROM questions WHERE pool = $1 AND difficulty = $2`
	args := []interface{}{query.Pool, string(query.Difficulty)}
	if query.Subject != "" {
		sql += ` AND subject = $3`
		args = append(args, query.Subject)
	}
	sql += ` ORDER BY random()`
	if query.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT %d`, query.Limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query questions: %v", domain.ErrPoolUnavailable, err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read questions: %v", domain.ErrPoolUnavailable, err)
	}
	return questions, nil
}
