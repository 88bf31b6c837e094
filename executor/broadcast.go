package executor

import (
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/event"

	"github.com/eth2030/example-l2/rollup"
)

// Snapshot is the ledger state right after executing Block. Ledger is a
// private copy shared by every subscriber and must be treated as read-only.
type Snapshot struct {
	Block      uint64
	Commitment rollup.Commitment
	Ledger     *rollup.Ledger
}

// Broadcaster fans snapshots out to subscribers without ever blocking the
// sender: a subscriber whose channel is full misses that snapshot.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[uint64]chan<- Snapshot
	nextID  uint64
	dropped atomic.Uint64
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]chan<- Snapshot)}
}

// Subscribe registers ch until the returned subscription is unsubscribed.
func (b *Broadcaster) Subscribe(ch chan<- Snapshot) event.Subscription {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		return nil
	})
}

// HasSubscribers reports whether any subscriber is registered.
func (b *Broadcaster) HasSubscribers() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs) > 0
}

// Send offers s to every subscriber and returns how many received it.
func (b *Broadcaster) Send(s Snapshot) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for _, ch := range b.subs {
		select {
		case ch <- s:
			delivered++
		default:
			b.dropped.Add(1)
		}
	}
	return delivered
}

// Dropped returns the number of snapshots subscribers have missed.
func (b *Broadcaster) Dropped() uint64 { return b.dropped.Load() }
