package broker

import (
	"sync"

	"github.com/mistakeknot/overcast/internal/bus"
)

// Scope is an explicit ownership ledger for bus subscriptions installed on
// behalf of one connection. The ledger is the single source of truth for
// teardown: release never reaches beyond the handles recorded here, so a
// disconnect cannot strip handlers other connections still depend on, and a
// recorded handle is never skipped.
type Scope struct {
	mu   sync.Mutex
	subs []*bus.Subscription
}

func NewScope() *Scope { return &Scope{} }

func (s *Scope) track(subs ...*bus.Subscription) {
	s.mu.Lock()
	s.subs = append(s.subs, subs...)
	s.mu.Unlock()
}

// Len reports how many subscriptions the scope currently owns.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Release unsubscribes every owned handle exactly once. Calling Release
// again, or releasing a handle already removed elsewhere, is a no-op.
func (s *Scope) Release(b *bus.Bus) {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		b.Unsubscribe(sub)
	}
}
