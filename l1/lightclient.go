package l1

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/eth2030/example-l2/log"
)

// LightClient is a binding to the HotShot light client contract. Each
// NewState event reports the sequenced block height the light client has
// reached; consecutive heights delimit the block ranges to execute.
type LightClient struct {
	address  common.Address
	contract *bind.BoundContract
	filterer bind.ContractFilterer
	log      *log.Logger
}

// NewLightClient binds the light client at address.
func NewLightClient(address common.Address, filterer bind.ContractFilterer) *LightClient {
	return &LightClient{
		address:  address,
		contract: bind.NewBoundContract(address, lightClientABI, nil, nil, filterer),
		filterer: filterer,
		log:      log.Default().Module("l1"),
	}
}

// NewState is a decoded NewState event.
type NewState struct {
	ViewNum       uint64
	BlockHeight   uint64
	BlockCommRoot *big.Int
	Raw           types.Log
}

// ParseNewState decodes a NewState log.
func (lc *LightClient) ParseNewState(l types.Log) (*NewState, error) {
	ev := new(NewState)
	if err := lc.contract.UnpackLog(ev, "NewState", l); err != nil {
		return nil, fmt.Errorf("l1: parse NewState: %w", err)
	}
	ev.Raw = l
	return ev, nil
}

// rangeTracker turns a sequence of light-client block heights into the
// ranges of blocks not yet announced.
type rangeTracker struct {
	mu   sync.Mutex
	next uint64
}

// observe returns the range of blocks below height that have not been
// returned before. Heights at or below the tracked position yield nothing.
func (t *rangeTracker) observe(height uint64) (BlockRange, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if height <= t.next {
		return BlockRange{}, false
	}
	r := BlockRange{First: t.next, Count: height - t.next}
	t.next = height
	return r, true
}

// WatchRanges sends a block range for every NewState event emitted from L1
// block fromL1 onward. startBlock is the first sequenced block the executor
// has not executed yet.
func (lc *LightClient) WatchRanges(fromL1, startBlock uint64, sink chan<- BlockRange) event.Subscription {
	tracker := &rangeTracker{next: startBlock}
	w := &logWatcher{
		filterer: lc.filterer,
		address:  lc.address,
		topic:    lightClientABI.Events["NewState"].ID,
		backoff:  DefaultResubscribeBackoff,
		log:      lc.log,
	}
	return watchLogs(w, fromL1, sink, func(l types.Log) (BlockRange, bool, error) {
		ev, err := lc.ParseNewState(l)
		if err != nil {
			return BlockRange{}, false, err
		}
		r, ok := tracker.observe(ev.BlockHeight)
		if ok {
			lc.log.Debug("light client advanced", "view", ev.ViewNum, "height", ev.BlockHeight,
				"first", r.First, "count", r.Count)
		}
		return r, ok, nil
	})
}
