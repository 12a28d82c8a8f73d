package memory

import (
	"context"
	"sync"

	"exam-quiz-service/internal/domain"
)

// TierStore holds subscription tiers in memory.
type TierStore struct {
	mu    sync.RWMutex
	tiers map[string]domain.Tier
}

func NewTierStore(tiers map[string]domain.Tier) *TierStore {
	copied := make(map[string]domain.Tier, len(tiers))
	for userID, tier := range tiers {
		copied[userID] = tier
	}
	return &TierStore{tiers: copied}
}

func (s *TierStore) Tier(_ context.Context, userID string) (domain.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tier, ok := s.tiers[userID]
	if !ok {
		return "", domain.ErrTierNotFound
	}
	return tier, nil
}

// SetTier assigns a tier to a user.
func (s *TierStore) SetTier(userID string, tier domain.Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[userID] = tier
}
