package chat

import (
	"sync"

	"github.com/xhad/seerah/internal/logger"
)

// Store holds the live sessions of a server, keyed by session id.
type Store struct {
	mu       sync.RWMutex
	pipeline Pipeline
	sessions map[string]*Session
}

func NewStore(pipeline Pipeline) *Store {
	return &Store{
		pipeline: pipeline,
		sessions: make(map[string]*Session),
	}
}

func (st *Store) Create() *Session {
	s := NewSession(st.pipeline)

	st.mu.Lock()
	st.sessions[s.ID()] = s
	st.mu.Unlock()

	logger.Debug("session %s started", s.ID())
	return s
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// End removes a session. It reports whether the session existed.
func (st *Store) End(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	logger.Debug("session %s ended", id)
	return true
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
