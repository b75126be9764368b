package memory

import (
	"sync"

	"medquiz-service/internal/app"
)

// Registry is an in-memory implementation of app.SessionRegistry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*app.Session),
	}
}

func (r *Registry) Put(session *app.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID()] = session
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
	delete(r.sessions, sessionID)
}
