package authclient

import (
	"sync"
	"time"
)

// Phase is where the session stands with respect to renewal.
type Phase int

const (
	// PhaseIdle means no renewal is outstanding.
	PhaseIdle Phase = iota
	// PhaseRenewing means exactly one refresh call is in flight.
	PhaseRenewing
	// PhaseCleared means the session was dropped and needs a new login.
	PhaseCleared
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRenewing:
		return "renewing"
	case PhaseCleared:
		return "cleared"
	}
	return "unknown"
}

// Principal is the summary the server hands out for the signed-in account.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// AuthSessionState is created by NewCoordinator and changed only by
// Coordinator methods.
type AuthSessionState struct {
	mu sync.Mutex

	principal     *Principal
	lastValidated time.Time
	lastCheck     time.Time
	// generation counts credential changes (login or renewal). A request
	// that failed under an older generation can simply retry.
	generation uint64
	phase      Phase
}

func (s *AuthSessionState) snapshot() (*Principal, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyPrincipal(s.principal), s.lastValidated
}

func (s *AuthSessionState) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func copyPrincipal(p *Principal) *Principal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// EventKind says what happened to the cached principal.
type EventKind int

const (
	EventSet EventKind = iota
	EventCleared
)

// Event is delivered to every listener after a cache change.
type Event struct {
	Kind      EventKind
	Principal *Principal
}

type Listener func(Event)
