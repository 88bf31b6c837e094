package executor

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/eth2030/example-l2/l1"
	"github.com/eth2030/example-l2/rollup"
	"github.com/eth2030/example-l2/sequencer"
)

// QueryService is the sequencer query API the executor reads blocks from.
// *sequencer.Client implements it.
type QueryService interface {
	SubscribeHeaders(ctx context.Context, from uint64) (sequencer.HeaderStream, error)
	NamespaceProof(ctx context.Context, height uint64, ns sequencer.NamespaceID) (*sequencer.NsProof, error)
	VidCommon(ctx context.Context, height uint64) (*sequencer.VidCommon, error)
	Payload(ctx context.Context, height uint64) (*sequencer.PayloadData, error)
}

// Settlement is the L1 rollup contract. *l1.RollupContract implements it.
type Settlement interface {
	StateCommitment(ctx context.Context) (rollup.Commitment, error)
	NumVerifiedBlocks(ctx context.Context) (uint64, error)
	VerifyBlocks(ctx context.Context, count uint64, next rollup.Commitment, proof *rollup.BatchProof) error
}

// CommitmentRegistry returns the header commitment L1 recorded for a
// sequenced block. *l1.HotShot implements it.
type CommitmentRegistry interface {
	Commitment(ctx context.Context, height uint64) (common.Hash, error)
}

// RangeSource announces ranges of newly sequenced blocks.
type RangeSource interface {
	WatchRanges(sink chan<- l1.BlockRange) event.Subscription
}

// RangeSourceFunc adapts a function to RangeSource.
type RangeSourceFunc func(sink chan<- l1.BlockRange) event.Subscription

// WatchRanges calls f(sink).
func (f RangeSourceFunc) WatchRanges(sink chan<- l1.BlockRange) event.Subscription { return f(sink) }
