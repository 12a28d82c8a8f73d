package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"exam-quiz-service/internal/app"
	"exam-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CachedQuestionSource caches pool queries with TTL to avoid repeated DB hits.
type CachedQuestionSource struct {
	source app.QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCachedQuestionSource(source app.QuestionSource, ttl time.Duration) *CachedQuestionSource {
	return &CachedQuestionSource{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

func (c *CachedQuestionSource) Questions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	key := query.CacheKey()
	if questions, ok := c.lookup(key); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if questions, ok := c.lookup(key); ok {
			return questions, nil
		}

		questions, err := c.source.Questions(ctx, query)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedQuestions{
			questions: questions,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *CachedQuestionSource) lookup(key string) ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return entry.questions, true
}

func (c *CachedQuestionSource) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticQuestionBank is a question source backed by an in-memory map of pool -> questions
// (useful for tests/demos).
type StaticQuestionBank struct {
	pools map[string][]domain.Question
}

func NewStaticQuestionBank(pools map[string][]domain.Question) *StaticQuestionBank {
	return &StaticQuestionBank{pools: pools}
}

func (b *StaticQuestionBank) Questions(_ context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	var matched []domain.Question
	for _, q := range b.pools[query.Pool] {
		if q.Difficulty != query.Difficulty {
			continue
		}
		if query.Subject != "" && q.Subject != query.Subject {
			continue
		}
		matched = append(matched, q)
		if query.Limit > 0 && len(matched) == query.Limit {
			break
		}
	}
	return matched, nil
}
