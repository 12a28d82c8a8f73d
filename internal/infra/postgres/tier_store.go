package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"exam-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

// Subscription is a row of user_subscriptions.
type Subscription struct {
	bun.BaseModel `bun:"table:user_subscriptions"`

	UserID    string    `bun:"user_id,pk"`
	Tier      string    `bun:"tier,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// TierStore resolves subscription tiers from Postgres.
type TierStore struct {
	db *bun.DB
}

func NewTierStore(db *bun.DB) *TierStore {
	return &TierStore{db: db}
}

func (s *TierStore) Tier(ctx context.Context, userID string) (domain.Tier, error) {
	var sub Subscription
	err := s.db.NewSelect().Model(&sub).Where("user_id = ?", userID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrTierNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load tier: %w", err)
	}
	return domain.Tier(sub.Tier), nil
}

// SetTier upserts a user's tier.
func (s *TierStore) SetTier(ctx context.Context, userID string, tier domain.Tier) error {
	sub := Subscription{UserID: userID, Tier: string(tier), UpdatedAt: time.Now()}
	_, err := s.db.NewInsert().
		Model(&sub).
		On("CONFLICT (user_id) DO UPDATE").
		Set("tier = EXCLUDED.tier").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	return nil
}
