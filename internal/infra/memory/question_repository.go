package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"medquiz-service/internal/domain"
)

// QuestionLoader fetches the full question pool matching a filter from a
// backing store; the repository samples the requested count from the pool.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

// QuestionRepository caches question pools per filter with TTL to avoid
// repeated store hits, and samples a fresh subset per session so repeated
// quick sessions vary.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

func (r *QuestionRepository) FetchQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	key := poolKey(filter)
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return r.sample(entry.questions, filter.Count), nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		pool, err := r.loader.LoadQuestions(ctx, filter)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[key] = cachedPool{
			questions: pool,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return r.sample(result.([]domain.Question), filter.Count), nil
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
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func poolKey(filter domain.QuestionFilter) string {
	return "questions:" + filter.Category + ":" + string(filter.Difficulty)
}

// StaticQuestionLoader serves a fixed question bank (useful for tests/demos).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	var pool []domain.Question
	for _, q := range l.questions {
		if filter.Category != "" && q.Category != filter.Category {
			continue
		}
		if filter.Difficulty != "" && q.Difficulty != filter.Difficulty {
			continue
		}
		pool = append(pool, q)
	}
	return pool, nil
}
