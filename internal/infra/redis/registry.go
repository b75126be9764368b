package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"medquiz-service/internal/app"
)

// Registry is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Session state machines are in-process objects; the local map is the
//     source of truth for live sessions on this instance.
//   - Redis holds a per-session liveness marker so operators can see active
//     sessions across instances and restarts.
type Registry struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewRegistry(client *redis.Client, ttl time.Duration) *Registry {
	return &Registry{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (r *Registry) Put(session *app.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID()] = session
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(session.ID()), "1", r.ttl).Err()
}

func (r *Registry) Get(sessionID string) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	return session, ok
}

func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return
	}
	delete(r.sessions, sessionID)
	_ = r.client.Del(context.Background(), r.key(sessionID)).Err()
}

func (r *Registry) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
