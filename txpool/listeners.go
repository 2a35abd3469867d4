package txpool

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ethforge/txpool-core/types"
)

// Listener is notified of pool membership changes, per spec §6's
// subscribe_added(fn(Transaction))/subscribe_dropped(fn(Transaction))
// contract. It receives the full Transaction rather than just its hash so a
// dropped-listener can still re-broadcast, journal or refund-account the
// entry after it has already been deleted from by_hash. Invocations happen
// outside the pool's structural lock.
type Listener func(tx types.Transaction)

// listenerSet is a lightweight, independently-locked registry so listener
// iteration never has to take the structural pool lock.
type listenerSet struct {
	mu        sync.RWMutex
	listeners map[uuid.UUID]Listener
}

func newListenerSet() *listenerSet {
	return &listenerSet{listeners: make(map[uuid.UUID]Listener)}
}

func (s *listenerSet) subscribe(l Listener) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	s.listeners[id] = l
	s.mu.Unlock()
	return id
}

func (s *listenerSet) unsubscribe(id uuid.UUID) {
	s.mu.Lock()
	delete(s.listeners, id)
	s.mu.Unlock()
}

// notify fires every listener with tx concurrently, waiting for all of them
// to return before returning itself. Called only after the structural lock
// has been released, so a slow or blocking listener never holds up pool
// mutation.
func (s *listenerSet) notify(tx types.Transaction) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var g errgroup.Group
	for _, l := range s.listeners {
		l := l
		g.Go(func() error {
			l(tx)
			return nil
		})
	}
	_ = g.Wait()
}
