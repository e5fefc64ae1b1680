package api

import (
	"sync"
	"time"

	"github.com/abhisek/tierwise/internal/session"
)

// liveSession guards one controller. The controller is not safe for
// concurrent use, so every access goes through mu.
type liveSession struct {
	mu    sync.Mutex
	s     *session.Session
	timer *time.Timer
}

// registry holds the sessions currently being taken.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
	onExpire func(id string)
}

func newRegistry(onExpire func(id string)) *registry {
	return &registry{
		sessions: make(map[string]*liveSession),
		onExpire: onExpire,
	}
}

// add registers s and arms its deadline timer.
func (r *registry) add(s *session.Session) *liveSession {
	ls := &liveSession{s: s}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = ls
	if !s.Deadline.IsZero() {
		id := s.ID
		ls.timer = time.AfterFunc(time.Until(s.Deadline), func() { r.onExpire(id) })
	}
	return ls
}

func (r *registry) get(id string) (*liveSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.sessions[id]
	return ls, ok
}

// remove drops a session and stops its timer. It reports whether the
// session was still registered.
func (r *registry) remove(id string) bool {
	r.mu.Lock()
	ls, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok && ls.timer != nil {
		ls.timer.Stop()
	}
	return ok
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ls := range r.sessions {
		if ls.timer != nil {
			ls.timer.Stop()
		}
		delete(r.sessions, id)
	}
}
