package rollup

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/example-l2/sequencer"
)

// SharedLedger guards a Ledger for one writer (the executor) and any number
// of readers. The writer holds the lock for one block at a time so readers
// never observe a partially applied block.
type SharedLedger struct {
	mu     sync.RWMutex
	ledger *Ledger
}

// NewSharedLedger wraps l.
func NewSharedLedger(l *Ledger) *SharedLedger {
	return &SharedLedger{ledger: l}
}

// Read runs fn under the read lock. fn must not retain the ledger.
func (s *SharedLedger) Read(fn func(l *Ledger)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.ledger)
}

// Write runs fn under the write lock.
func (s *SharedLedger) Write(fn func(l *Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ledger)
}

// Namespace returns the ledger's sequencer namespace, which never changes.
func (s *SharedLedger) Namespace() sequencer.NamespaceID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Namespace()
}

// Balance returns the balance of addr.
func (s *SharedLedger) Balance(addr common.Address) Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Balance(addr)
}

// Nonce returns the nonce of addr.
func (s *SharedLedger) Nonce(addr common.Address) Nonce {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Nonce(addr)
}

// Commit returns the current state commitment.
func (s *SharedLedger) Commit() Commitment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Commit()
}

// Snapshot returns a deep copy of the current ledger.
func (s *SharedLedger) Snapshot() *Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Clone()
}
