package app

import (
	"context"
	"errors"

	"exam-quiz-service/internal/domain"
	"github.com/rs/zerolog/log"
)

// TierLookup resolves a user's subscription tier. It returns domain.ErrTierNotFound
// when the user has no subscription record.
type TierLookup interface {
	Tier(ctx context.Context, userID string) (domain.Tier, error)
}

// AccessDecision is the outcome of an access check.
type AccessDecision struct {
	Allowed   bool        `json:"allowed"`
	Tier      domain.Tier `json:"tier"`
	TimeLimit int         `json:"timeLimit"`
}

// AccessGate maps a user's tier to the quiz types they may start.
type AccessGate struct {
	tiers TierLookup
}

func NewAccessGate(tiers TierLookup) *AccessGate {
	return &AccessGate{tiers: tiers}
}

// CheckAccess reports whether userID may start quizType. It fails closed on unknown
// quiz types and on lookup errors.
func (g *AccessGate) CheckAccess(ctx context.Context, userID string, quizType domain.QuizType) bool {
	return g.Decide(ctx, userID, quizType).Allowed
}

// Decide is CheckAccess with the resolved tier and time limit attached.
func (g *AccessGate) Decide(ctx context.Context, userID string, quizType domain.QuizType) AccessDecision {
	cfg, ok := quizType.Config()
	if !ok {
		return AccessDecision{}
	}

	tier, err := g.tiers.Tier(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrTierNotFound):
		tier = domain.TierFree
	case err != nil:
		log.Error().Err(err).Str("userId", userID).Str("quizType", string(quizType)).Msg("tier lookup failed, denying access")
		return AccessDecision{}
	case !tier.Valid():
		tier = domain.TierFree
	}

	return AccessDecision{
		Allowed:   cfg.Allows(tier),
		Tier:      tier,
		TimeLimit: cfg.TimeLimit,
	}
}
