package lobby

import (
	"sync"

	"github.com/DoyleJ11/inhouse-queue/internal/engine"
)

// Repository holds the active session of each scope. At most one per scope;
// Put replaces whatever was there.
type Repository interface {
	Get(scope string) (engine.State, bool)
	Put(scope string, s engine.State)
	Remove(scope string)
}

// MemoryRepository keeps sessions in process memory.
type MemoryRepository struct {
	sessions map[string]engine.State
	mu       sync.RWMutex
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]engine.State)}
}

func (r *MemoryRepository) Get(scope string) (engine.State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[scope]
	if !ok {
		return engine.State{}, false
	}
	return engine.Clone(s), true
}

func (r *MemoryRepository) Put(scope string, s engine.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[scope] = engine.Clone(s)
}

func (r *MemoryRepository) Remove(scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, scope)
}
