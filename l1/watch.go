package l1

import (
	"context"
	"math/big"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/eth2030/example-l2/log"
)

// DefaultResubscribeBackoff caps the wait between attempts to re-establish a
// dropped log subscription.
const DefaultResubscribeBackoff = 10 * time.Second

// BlockRange is a run of Count consecutive sequenced blocks starting at
// First.
type BlockRange struct {
	First uint64
	Count uint64
}

// Last returns the height of the final block in the range.
func (r BlockRange) Last() uint64 { return r.First + r.Count - 1 }

// logCursor remembers the position of the last delivered log so that logs
// seen again after a resubscription are dropped.
type logCursor struct {
	mu      sync.Mutex
	started bool
	block   uint64
	index   uint
	from    uint64
}

// advance reports whether l is past the cursor and moves the cursor to it.
func (c *logCursor) advance(l types.Log) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l.Removed {
		return false
	}
	if c.started && (l.BlockNumber < c.block || (l.BlockNumber == c.block && l.Index <= c.index)) {
		return false
	}
	if l.BlockNumber < c.from {
		return false
	}
	c.started, c.block, c.index = true, l.BlockNumber, l.Index
	return true
}

// resumeBlock is the L1 block a new subscription has to backfill from.
func (c *logCursor) resumeBlock() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return c.from
	}
	return c.block
}

// logWatcher streams every log of one event emitted by one contract, in
// chain order and without duplicates. A dropped subscription is re-opened
// with backoff and backfilled from the last delivered log.
type logWatcher struct {
	filterer bind.ContractFilterer
	address  common.Address
	topic    common.Hash
	backoff  time.Duration
	log      *log.Logger
}

func (w *logWatcher) query(from uint64) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		Addresses: []common.Address{w.address},
		Topics:    [][]common.Hash{{w.topic}},
	}
}

// watchLogs decodes every log w sees from L1 block from onward and sends
// the values decode accepts to sink, until the returned subscription is
// unsubscribed. Logs that fail to decode are logged and skipped.
func watchLogs[T any](w *logWatcher, from uint64, sink chan<- T, decode func(types.Log) (T, bool, error)) event.Subscription {
	cursor := &logCursor{from: from}
	logs := make(chan types.Log, 128)

	resub := event.ResubscribeErr(w.backoff, func(ctx context.Context, lastErr error) (event.Subscription, error) {
		if lastErr != nil {
			w.log.Warn("log subscription dropped, resubscribing", "contract", w.address, "err", lastErr)
		}
		return w.subscribe(ctx, cursor.resumeBlock(), logs)
	})

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer resub.Unsubscribe()
		for {
			select {
			case l := <-logs:
				if !cursor.advance(l) {
					continue
				}
				v, ok, err := decode(l)
				if err != nil {
					w.log.Warn("skipping undecodable log", "contract", w.address,
						"block", l.BlockNumber, "index", l.Index, "err", err)
					continue
				}
				if !ok {
					continue
				}
				select {
				case sink <- v:
				case <-quit:
					return nil
				}
			case err := <-resub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	})
}

// subscribe opens a live log subscription and then replays historical logs
// from block from. Opening the live feed first means no log falls between the
// two; the cursor drops the overlap.
func (w *logWatcher) subscribe(ctx context.Context, from uint64, sink chan<- types.Log) (event.Subscription, error) {
	q := w.query(from)
	live := make(chan types.Log, 128)
	sub, err := w.filterer.SubscribeFilterLogs(ctx, q, live)
	if err != nil {
		return nil, err
	}
	past, err := w.filterer.FilterLogs(ctx, q)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for _, l := range past {
			select {
			case sink <- l:
			case <-quit:
				return nil
			}
		}
		for {
			select {
			case l := <-live:
				select {
				case sink <- l:
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}
