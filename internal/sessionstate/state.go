package sessionstate

import (
	"context"
	"sync"

	"github.com/MrEthical07/goAuthClient/session"
)

// State is safe for concurrent use.
type State struct {
	mu            sync.RWMutex
	user          *session.User
	authenticated bool
	initialized   bool
	generation    uint64

	initOnce sync.Once
	initDone chan struct{}

	subMu   sync.Mutex
	subs    map[uint64]func(session.Change)
	nextSub uint64
}

// New returns an uninitialized, unauthenticated state.
func New() *State {
	return &State{
		initDone: make(chan struct{}),
		subs:     make(map[uint64]func(session.Change)),
	}
}

// MarkInitialized completes hydration with user (nil means signed out). Only
// the first call has any effect; it reports whether this call won.
func (s *State) MarkInitialized(user *session.User) bool {
	first := false
	s.initOnce.Do(func() {
		first = true
		s.mu.Lock()
		s.user = user.Clone()
		s.authenticated = user != nil
		s.initialized = true
		s.mu.Unlock()
		close(s.initDone)
	})
	if first {
		s.notify(session.ReasonInitialized)
	}
	return first
}

// Done is closed once the state is initialized.
func (s *State) Done() <-chan struct{} {
	return s.initDone
}

// Wait blocks until initialization completes or ctx is done.
func (s *State) Wait(ctx context.Context) error {
	select {
	case <-s.initDone:
		return nil
	default:
	}
	select {
	case <-s.initDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetAuthenticated records a signed-in user and bumps the generation.
func (s *State) SetAuthenticated(user *session.User) uint64 {
	s.mu.Lock()
	s.user = user.Clone()
	s.authenticated = user != nil
	s.generation++
	gen := s.generation
	s.mu.Unlock()
	s.notify(session.ReasonLogin)
	return gen
}

// Touch notifies subscribers of a token refresh without changing identity.
func (s *State) Touch() {
	s.notify(session.ReasonRefresh)
}

// Clear signs the session out and bumps the generation. It is a no-op,
// apart from the generation bump, when already signed out.
func (s *State) Clear() uint64 {
	s.mu.Lock()
	wasAuthenticated := s.authenticated
	s.user = nil
	s.authenticated = false
	s.generation++
	gen := s.generation
	s.mu.Unlock()
	if wasAuthenticated {
		s.notify(session.ReasonLogout)
	}
	return gen
}

// Generation returns the current generation.
func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Authenticated is false until initialization has completed.
func (s *State) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized && s.authenticated
}

// Initialized reports whether hydration has completed.
func (s *State) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// User returns a copy of the current user, or nil.
func (s *State) User() *session.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// Snapshot returns a consistent copy of the state.
func (s *State) Snapshot() session.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session.Snapshot{
		User:          s.user.Clone(),
		Authenticated: s.initialized && s.authenticated,
		Initialized:   s.initialized,
		Generation:    s.generation,
	}
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. fn runs synchronously on the writer's goroutine.
func (s *State) Subscribe(fn func(session.Change)) func() {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *State) notify(reason session.ChangeReason) {
	snap := s.Snapshot()

	s.subMu.Lock()
	fns := make([]func(session.Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(session.Change{Reason: reason, Snapshot: snap})
	}
}
