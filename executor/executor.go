// Package executor runs the rollup's control loop: it waits for L1 to
// announce newly sequenced blocks, pulls their headers from the sequencer,
// checks them against the L1 commitment registry, applies the rollup's
// namespace to the ledger, aggregates the block proofs and submits the batch
// to the settlement contract, retrying until it is accepted or stale.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"

	"github.com/eth2030/example-l2/l1"
	"github.com/eth2030/example-l2/log"
	"github.com/eth2030/example-l2/rollup"
	"github.com/eth2030/example-l2/sequencer"
)

// Executor drives the ledger from the sequenced block stream and settles
// batch proofs on L1. It is the only writer of the shared ledger.
type Executor struct {
	cfg        Config
	ledger     *rollup.SharedLedger
	query      QueryService
	settlement Settlement
	registry   CommitmentRegistry
	ranges     RangeSource

	snapshots *Broadcaster
	metrics   *Metrics
	log       *log.Logger

	phase atomic.Int32
	next  uint64 // next sequenced block to execute
}

// New creates an Executor.
func New(cfg Config, ledger *rollup.SharedLedger, query QueryService, settlement Settlement, registry CommitmentRegistry, ranges RangeSource) *Executor {
	return &Executor{
		cfg:        cfg,
		ledger:     ledger,
		query:      query,
		settlement: settlement,
		registry:   registry,
		ranges:     ranges,
		snapshots:  NewBroadcaster(),
		metrics:    NewMetrics(nil),
		log:        log.Default().Module("executor"),
		next:       cfg.StartBlock,
	}
}

// SetMetrics replaces the executor's metrics.
func (e *Executor) SetMetrics(m *Metrics) {
	if m != nil {
		e.metrics = m
	}
}

// SetLogger replaces the executor's logger.
func (e *Executor) SetLogger(l *log.Logger) {
	if l != nil {
		e.log = l
	}
}

// Phase returns the current phase.
func (e *Executor) Phase() Phase { return Phase(e.phase.Load()) }

func (e *Executor) setPhase(p Phase) {
	e.phase.Store(int32(p))
	e.metrics.Phase.Set(float64(p))
}

// Snapshots returns the broadcaster of post-block ledger snapshots.
func (e *Executor) Snapshots() *Broadcaster { return e.snapshots }

// SubscribeSnapshots subscribes a new channel sized by Config.SnapshotBuffer.
func (e *Executor) SubscribeSnapshots() (<-chan Snapshot, event.Subscription) {
	ch := make(chan Snapshot, e.cfg.SnapshotBuffer)
	return ch, e.snapshots.Subscribe(ch)
}

// Run processes block ranges until ctx is cancelled or a fatal error
// occurs: a header stream failure, an L1 commitment mismatch, a failed
// inclusion check, or a query for block data other than the namespace
// proof failing.
func (e *Executor) Run(ctx context.Context) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	stream, err := e.query.SubscribeHeaders(ctx, e.cfg.StartBlock)
	if err != nil {
		return fmt.Errorf("executor: subscribe headers: %w", err)
	}
	defer stream.Close()

	ranges := make(chan l1.BlockRange, 16)
	sub := e.ranges.WatchRanges(ranges)
	defer sub.Unsubscribe()

	e.log.Info("executor started", "namespace", e.cfg.Namespace, "start", e.cfg.StartBlock,
		"state", e.ledger.Commit())
	for {
		e.setPhase(PhaseWaitingForEvent)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				return ErrRangeSourceClosed
			}
			return fmt.Errorf("executor: block range source: %w", err)
		case r := <-ranges:
			if err := e.processRange(ctx, stream, r); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
		}
	}
}

// clip trims r to the blocks not yet executed.
func (e *Executor) clip(r l1.BlockRange) (l1.BlockRange, bool, error) {
	if r.Count == 0 || r.Last() < e.next {
		return r, false, nil
	}
	if r.First > e.next {
		return r, false, fmt.Errorf("%w: range starts at %d, next block is %d", ErrRangeGap, r.First, e.next)
	}
	if r.First < e.next {
		r = l1.BlockRange{First: e.next, Count: r.Last() - e.next + 1}
	}
	return r, true, nil
}

func (e *Executor) processRange(ctx context.Context, stream sequencer.HeaderStream, announced l1.BlockRange) error {
	r, ok, err := e.clip(announced)
	if err != nil {
		return err
	}
	if !ok {
		e.log.Debug("ignoring already executed range", "first", announced.First, "count", announced.Count)
		return nil
	}

	e.setPhase(PhaseFetchingHeaders)
	headers, err := e.fetchHeaders(stream, r)
	if err != nil {
		return err
	}
	e.next = r.First + r.Count

	e.setPhase(PhaseApplyingBlocks)
	e.log.Info("executing blocks", "first", r.First, "last", r.Last(), "state", e.ledger.Commit())
	var proofs []*rollup.SingleBlockProof
	for _, h := range headers {
		proof, err := e.applyBlock(ctx, h)
		if err != nil {
			return err
		}
		if proof != nil {
			proofs = append(proofs, proof)
		}
	}

	if len(proofs) == 0 {
		e.log.Debug("no blocks for namespace in range", "first", r.First, "last", r.Last())
		return nil
	}
	e.setPhase(PhaseAggregatingProof)
	batch, err := rollup.GenerateBatchProof(proofs)
	if err != nil {
		return fmt.Errorf("executor: aggregate blocks %d-%d: %w", r.First, r.Last(), err)
	}

	e.setPhase(PhaseSubmittingProof)
	return e.submit(ctx, r, batch)
}

func (e *Executor) fetchHeaders(stream sequencer.HeaderStream, r l1.BlockRange) ([]*sequencer.Header, error) {
	headers := make([]*sequencer.Header, 0, r.Count)
	for i := uint64(0); i < r.Count; i++ {
		want := r.First + i
		h, err := stream.Next()
		if err != nil {
			return nil, fmt.Errorf("executor: fetch header %d: %w", want, err)
		}
		if h.Height != want {
			return nil, &HeightGapError{Expected: want, Got: h.Height}
		}
		headers = append(headers, h)
	}
	return headers, nil
}

// applyBlock executes one block. It returns a nil proof when the block is
// skipped for lack of a namespace proof.
func (e *Executor) applyBlock(ctx context.Context, h *sequencer.Header) (*rollup.SingleBlockProof, error) {
	start := time.Now()
	height := h.Height

	onChain, err := e.registry.Commitment(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("executor: read L1 commitment for block %d: %w", height, err)
	}
	if commit := h.Commit(); commit != onChain {
		return nil, &CommitmentMismatchError{Height: height, Header: commit, OnChain: onChain}
	}

	// A failed query and an absent proof look the same from here: both mean
	// the block carries nothing for this namespace.
	nsProof, err := e.query.NamespaceProof(ctx, height, e.cfg.Namespace)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.log.Warn("namespace proof query failed, skipping block", "block", height, "err", err)
		e.metrics.BlocksSkipped.Inc()
		return nil, nil
	}
	if nsProof == nil {
		e.log.Debug("no namespace proof, skipping block", "block", height)
		e.metrics.BlocksSkipped.Inc()
		return nil, nil
	}

	vid, err := e.query.VidCommon(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("executor: fetch VID common for block %d: %w", height, err)
	}
	payload, err := e.query.Payload(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("executor: fetch payload for block %d: %w", height, err)
	}

	var (
		proof    *rollup.SingleBlockProof
		snapshot *rollup.Ledger
	)
	err = e.ledger.Write(func(l *rollup.Ledger) error {
		p, err := l.ExecuteBlock(h, nsProof, vid, payload.BlockHash)
		if err != nil {
			return err
		}
		proof = p
		if e.snapshots.HasSubscribers() {
			snapshot = l.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("executor: execute block %d: %w", height, err)
	}
	e.metrics.BlocksExecuted.Inc()
	e.metrics.BlockDuration.Observe(time.Since(start).Seconds())

	if snapshot != nil {
		before := e.snapshots.Dropped()
		e.snapshots.Send(Snapshot{Block: height, Commitment: proof.NewState, Ledger: snapshot})
		if missed := e.snapshots.Dropped() - before; missed > 0 {
			e.metrics.SnapshotsDropped.Add(float64(missed))
		}
	}
	return proof, nil
}

// submit sends the batch until the contract accepts it. Between attempts it
// checks whether the contract already holds the batch's commitment or has
// moved past the batch's first block; either ends the loop without error.
func (e *Executor) submit(ctx context.Context, r l1.BlockRange, batch *rollup.BatchProof) error {
	for attempt := 1; ; attempt++ {
		err := e.settlement.VerifyBlocks(ctx, r.Count, batch.NewState, batch)
		if err == nil {
			e.metrics.BatchesSubmitted.Inc()
			e.metrics.VerifiedHeight.Set(float64(r.Last()))
			e.log.Info("submitted batch proof", "first", r.First, "last", r.Last(), "state", batch.NewState, "attempts", attempt)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.metrics.SubmitFailures.Inc()
		e.log.Warn("failed to submit proof to contract, retrying", "first", r.First, "last", r.Last(),
			"attempt", attempt, "err", err)

		if e.cfg.MaxSubmitAttempts > 0 && attempt >= e.cfg.MaxSubmitAttempts {
			e.metrics.BatchesAbandoned.Inc()
			e.log.Error("giving up on batch proof", "first", r.First, "last", r.Last(), "attempts", attempt)
			return nil
		}
		if err := sleepCtx(ctx, e.cfg.RetryInterval); err != nil {
			return err
		}
		done, err := e.settled(ctx, r, batch)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// settled reports whether retrying the batch is pointless because L1 already
// accepted it or verified past its start.
func (e *Executor) settled(ctx context.Context, r l1.BlockRange, batch *rollup.BatchProof) (bool, error) {
	accepted, err := e.settlement.StateCommitment(ctx)
	if err == nil && accepted == batch.NewState {
		e.metrics.BatchesSubmitted.Inc()
		e.metrics.VerifiedHeight.Set(float64(r.Last()))
		e.log.Info("batch proof already accepted", "first", r.First, "last", r.Last(), "state", accepted)
		return true, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, ctx.Err()
	}
	verified, err := e.settlement.NumVerifiedBlocks(ctx)
	if err == nil && verified > r.First {
		e.metrics.BatchesAbandoned.Inc()
		e.log.Warn("batch proof is stale, waiting for next range", "first", r.First, "verified", verified)
		return true, nil
	}
	return false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
