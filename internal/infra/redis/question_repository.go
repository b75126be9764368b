package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"medquiz-service/internal/domain"
)

// QuestionLoader fetches the full question pool matching a filter from a
// backing store (e.g. the Postgres question bank).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

// QuestionRepository caches question pools in Redis (JSON blob per filter)
// and falls back to a loader on cache miss. Pools are stored as:
// SET questions:{category}:{difficulty} {json} EX ttl
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) FetchQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	key := poolKey(filter)

	if pool, ok := r.cachedPool(ctx, key); ok {
		return r.sample(pool, filter.Count), nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pool, ok := r.cachedPool(ctx, key); ok {
			return pool, nil
		}

		pool, err := r.loader.LoadQuestions(ctx, filter)
		if err != nil {
			return nil, err
		}

		if raw, err := json.Marshal(pool); err == nil {
			// best-effort cache fill
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return r.sample(result.([]domain.Question), filter.Count), nil
}

func (r *QuestionRepository) cachedPool(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var pool []domain.Question
	if err := json.Unmarshal(raw, &pool); err != nil {
		return nil, false
	}
	return pool, true
}

func (r *QuestionRepository) sample(pool []domain.Question, count int) []domain.Question {
	if count <= 0 || count >= len(pool) {
		out := make([]domain.Question, len(pool))
		copy(out, pool)
		return out
	}
	r.rndMu.Lock()
	perm := r.rnd.Perm(len(pool))
	r.rndMu.Unlock()
	out := make([]domain.Question, count)
	for i := 0; i < count; i++ {
		out[i] = pool[perm[i]]
	}
	return out
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func poolKey(filter domain.QuestionFilter) string {
	return "questions:" + filter.Category + ":" + string(filter.Difficulty)
}
