package l1

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/eth2030/example-l2/log"
)

// HotShot is a binding to the HotShot contract, which records the
// commitment of every sequenced block and announces new ones with a
// NewBlocks event.
type HotShot struct {
	address  common.Address
	contract *bind.BoundContract
	filterer bind.ContractFilterer
	log      *log.Logger
}

// NewHotShot binds the HotShot contract at address. caller serves
// commitment reads; filterer (usually a WebSocket client) serves logs.
func NewHotShot(address common.Address, caller bind.ContractCaller, filterer bind.ContractFilterer) *HotShot {
	return &HotShot{
		address:  address,
		contract: bind.NewBoundContract(address, hotShotABI, caller, nil, filterer),
		filterer: filterer,
		log:      log.Default().Module("l1"),
	}
}

// Commitment returns the header commitment recorded for the block at
// height.
func (h *HotShot) Commitment(ctx context.Context, height uint64) (common.Hash, error) {
	var out []interface{}
	if err := h.contract.Call(&bind.CallOpts{Context: ctx}, &out, "commitments", new(big.Int).SetUint64(height)); err != nil {
		return common.Hash{}, fmt.Errorf("l1: commitments(%d): %w", height, err)
	}
	return common.BigToHash(*abi.ConvertType(out[0], new(*big.Int)).(**big.Int)), nil
}

// NewBlocks is a decoded NewBlocks event.
type NewBlocks struct {
	FirstBlockNumber *big.Int
	NumBlocks        *big.Int
	Raw              types.Log
}

// ParseNewBlocks decodes a NewBlocks log.
func (h *HotShot) ParseNewBlocks(l types.Log) (*NewBlocks, error) {
	ev := new(NewBlocks)
	if err := h.contract.UnpackLog(ev, "NewBlocks", l); err != nil {
		return nil, fmt.Errorf("l1: parse NewBlocks: %w", err)
	}
	ev.Raw = l
	return ev, nil
}

// Range converts the event to a block range.
func (ev *NewBlocks) Range() (BlockRange, error) {
	if !ev.FirstBlockNumber.IsUint64() || !ev.NumBlocks.IsUint64() {
		return BlockRange{}, ErrCountRange
	}
	return BlockRange{First: ev.FirstBlockNumber.Uint64(), Count: ev.NumBlocks.Uint64()}, nil
}

// WatchRanges sends the block range of every NewBlocks event emitted from L1
// block fromL1 onward. Empty ranges are dropped.
func (h *HotShot) WatchRanges(fromL1 uint64, sink chan<- BlockRange) event.Subscription {
	w := &logWatcher{
		filterer: h.filterer,
		address:  h.address,
		topic:    hotShotABI.Events["NewBlocks"].ID,
		backoff:  DefaultResubscribeBackoff,
		log:      h.log,
	}
	return watchLogs(w, fromL1, sink, func(l types.Log) (BlockRange, bool, error) {
		ev, err := h.ParseNewBlocks(l)
		if err != nil {
			return BlockRange{}, false, err
		}
		r, err := ev.Range()
		if err != nil {
			return BlockRange{}, false, err
		}
		if r.Count == 0 {
			return BlockRange{}, false, nil
		}
		h.log.Debug("new sequenced blocks", "first", r.First, "count", r.Count, "l1_block", l.BlockNumber)
		return r, true, nil
	})
}
