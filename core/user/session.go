package user

import (
	"sync"
	"time"
)

// SessionState is the authentication state of a user as seen by the broker.
// The initial state is SessionUnknown until the first resolution; consumers
// must treat it as non-terminal.
type SessionState int

const (
	SessionUnknown SessionState = iota
	SessionAnonymous
	SessionAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case SessionAnonymous:
		return "anonymous"
	case SessionAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// SessionEvent is pushed to subscribers on every session transition
// (sign-in, sign-out, token refresh).
type SessionEvent struct {
	User  User
	State SessionState
	At    time.Time
}

// SessionBroker is an explicit session-state holder with a subscribe/notify
// mechanism. Consumers register callbacks and deregister on teardown; there
// is no polling.
type SessionBroker struct {
	mu       sync.RWMutex
	resolved bool
	active   map[string]User
	subs     map[int]func(SessionEvent)
	nextSub  int
}

func NewSessionBroker() *SessionBroker {
	return &SessionBroker{
		active: make(map[string]User),
		subs:   make(map[int]func(SessionEvent)),
	}
}

// Resolve marks the initial session check as done. Sign-in/sign-out events
// also resolve implicitly.
func (b *SessionBroker) Resolve() {
	b.mu.Lock()
	b.resolved = true
	b.mu.Unlock()
}

// State reports the session state for a user ID.
func (b *SessionBroker) State(userID string) SessionState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.resolved {
		return SessionUnknown
	}
	if _, ok := b.active[userID]; ok {
		return SessionAuthenticated
	}
	return SessionAnonymous
}

// IsAuthenticated reports whether a user has an active session. It is false
// while the state is still unknown.
func (b *SessionBroker) IsAuthenticated(userID string) bool {
	return b.State(userID) == SessionAuthenticated
}

// Subscribe registers a callback for session events and returns its
// deregistration func.
func (b *SessionBroker) Subscribe(fn func(SessionEvent)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *SessionBroker) SignedIn(usr User) {
	b.mu.Lock()
	b.resolved = true
	b.active[usr.ID] = usr
	b.mu.Unlock()
	b.notify(SessionEvent{User: usr, State: SessionAuthenticated, At: time.Now().UTC()})
}

func (b *SessionBroker) SignedOut(usr User) {
	b.mu.Lock()
	b.resolved = true
	delete(b.active, usr.ID)
	b.mu.Unlock()
	b.notify(SessionEvent{User: usr, State: SessionAnonymous, At: time.Now().UTC()})
}

// Refreshed re-emits the authenticated state on token refresh.
func (b *SessionBroker) Refreshed(usr User) {
	b.mu.Lock()
	b.resolved = true
	b.active[usr.ID] = usr
	b.mu.Unlock()
	b.notify(SessionEvent{User: usr, State: SessionAuthenticated, At: time.Now().UTC()})
}

// notify calls subscribers outside the lock; callbacks may re-enter the broker.
func (b *SessionBroker) notify(evt SessionEvent) {
	b.mu.RLock()
	fns := make([]func(SessionEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}
