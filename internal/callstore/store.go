// Package callstore holds partial call records between the "ended" and
// "analyzed" lifecycle events. Entries are keyed by call id and evicted by the
// correlator once the merged record has been persisted.
package callstore

import (
	"sync"
	"time"
)

// Pending is the partial state retained for a call between lifecycle events.
type Pending struct {
	Event      string
	Payload    map[string]any
	ReceivedAt time.Time
}

// Store is process-wide keyed state written by concurrently executing webhook
// handlers. Operations on different call ids never block each other; WithLock
// serializes operations on the same call id.
type Store struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	data  map[string]Pending
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func New() *Store {
	return &Store{
		locks: make(map[string]*keyLock),
		data:  make(map[string]Pending),
	}
}

// WithLock runs fn while holding the per-call-id lock. A redelivered "ended"
// racing an "analyzed" for the same call id cannot interleave inside fn.
func (s *Store) WithLock(callID string, fn func()) {
	s.mu.Lock()
	kl, ok := s.locks[callID]
	if !ok {
		kl = &keyLock{}
		s.locks[callID] = kl
	}
	kl.refs++
	s.mu.Unlock()

	kl.mu.Lock()
	fn()
	kl.mu.Unlock()

	s.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(s.locks, callID)
	}
	s.mu.Unlock()
}

func (s *Store) Get(callID string) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[callID]
	return p, ok
}

func (s *Store) Put(callID string, p Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[callID] = p
}

func (s *Store) Delete(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, callID)
}

// Len reports the number of pending entries, for tests and diagnostics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
