package domain

// Tier is a subscription level.
type Tier string

const (
	TierFree       Tier = "free"
	TierFoundation Tier = "foundation"
	TierPractice   Tier = "practice"
	TierMains      Tier = "mains"
	TierInterview  Tier = "interview"
	TierElite      Tier = "elite"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierFoundation, TierPractice, TierMains, TierInterview, TierElite:
		return true
	}
	return false
}

// QuizType is a category of quiz with its own time limit and tier allow-list.
type QuizType string

const (
	QuizFreeDaily       QuizType = "free-daily"
	QuizCurrentAffairs  QuizType = "current-affairs"
	QuizSubjectPractice QuizType = "subject-practice"
	QuizPYQ             QuizType = "pyq"
	QuizMockPrelims     QuizType = "mock-prelims"
)

// QuizTypeConfig is the static configuration of a quiz type.
type QuizTypeConfig struct {
	AllowedTiers []Tier
	TimeLimit    int // seconds
	Pool         string
}

// Config returns the static configuration for q. ok is false for unknown quiz types.
func (q QuizType) Config() (QuizTypeConfig, bool) {
	switch q {
	case QuizFreeDaily:
		return QuizTypeConfig{
			AllowedTiers: []Tier{TierFree, TierFoundation, TierPractice, TierMains, TierInterview, TierElite},
			TimeLimit:    600,
			Pool:         "daily",
		}, true
	case QuizCurrentAffairs:
		return QuizTypeConfig{
			AllowedTiers: []Tier{TierFoundation, TierPractice, TierMains, TierInterview, TierElite},
			TimeLimit:    900,
			Pool:         "current-affairs",
		}, true
	case QuizSubjectPractice:
		return QuizTypeConfig{
			AllowedTiers: []Tier{TierPractice, TierMains, TierInterview, TierElite},
			TimeLimit:    1800,
			Pool:         "questions",
		}, true
	case QuizPYQ:
		return QuizTypeConfig{
			AllowedTiers: []Tier{TierPractice, TierMains, TierInterview, TierElite},
			TimeLimit:    3600,
			Pool:         "pyq",
		}, true
	case QuizMockPrelims:
		return QuizTypeConfig{
			AllowedTiers: []Tier{TierMains, TierInterview, TierElite},
			TimeLimit:    7200,
			Pool:         "mock-prelims",
		}, true
	}
	return QuizTypeConfig{}, false
}

// Allows reports whether tier is on the allow-list.
func (c QuizTypeConfig) Allows(tier Tier) bool {
	for _, t := range c.AllowedTiers {
		if t == tier {
			return true
		}
	}
	return false
}
