package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eth2030/example-l2/l1"
	"github.com/eth2030/example-l2/log"
	"github.com/eth2030/example-l2/rollup"
	"github.com/eth2030/example-l2/sequencer"
)

const testNamespace sequencer.NamespaceID = 1

var errSubmit = errors.New("submit failed")

// fakeQuery serves prebuilt blocks. Headers are streamed in the order of
// the headers slice, which defaults to the blocks' headers by height.
type fakeQuery struct {
	mu      sync.Mutex
	blocks  map[uint64]*sequencer.Block
	headers []*sequencer.Header
	nsErr   map[uint64]error
	vidErr  error
	subErr  error
}

func newFakeQuery(blocks ...*sequencer.Block) *fakeQuery {
	q := &fakeQuery{blocks: make(map[uint64]*sequencer.Block), nsErr: make(map[uint64]error)}
	for _, b := range blocks {
		q.blocks[b.Header.Height] = b
		h := b.Header
		q.headers = append(q.headers, &h)
	}
	return q
}

func (q *fakeQuery) block(height uint64) (*sequencer.Block, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	b, ok := q.blocks[height]
	if !ok {
		return nil, &sequencer.StatusError{Path: fmt.Sprintf("availability/block/%d", height), Status: 404}
	}
	return b, nil
}

func (q *fakeQuery) SubscribeHeaders(ctx context.Context, from uint64) (sequencer.HeaderStream, error) {
	if q.subErr != nil {
		return nil, q.subErr
	}
	s := &sliceStream{}
	for _, h := range q.headers {
		if h.Height >= from {
			s.headers = append(s.headers, h)
		}
	}
	return s, nil
}

func (q *fakeQuery) NamespaceProof(ctx context.Context, height uint64, ns sequencer.NamespaceID) (*sequencer.NsProof, error) {
	q.mu.Lock()
	err := q.nsErr[height]
	q.mu.Unlock()
	if err != nil {
		return nil, err
	}
	b, err := q.block(height)
	if err != nil {
		return nil, err
	}
	return b.NamespaceProof(ns), nil
}

func (q *fakeQuery) VidCommon(ctx context.Context, height uint64) (*sequencer.VidCommon, error) {
	if q.vidErr != nil {
		return nil, q.vidErr
	}
	b, err := q.block(height)
	if err != nil {
		return nil, err
	}
	vid := b.Common
	return &vid, nil
}

func (q *fakeQuery) Payload(ctx context.Context, height uint64) (*sequencer.PayloadData, error) {
	b, err := q.block(height)
	if err != nil {
		return nil, err
	}
	p := b.Payload
	return &p, nil
}

type sliceStream struct {
	headers []*sequencer.Header
	closed  bool
}

func (s *sliceStream) Next() (*sequencer.Header, error) {
	if s.closed || len(s.headers) == 0 {
		return nil, sequencer.ErrStreamClosed
	}
	h := s.headers[0]
	s.headers = s.headers[1:]
	return h, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

// fakeRegistry returns the commitments of the headers it was built from.
type fakeRegistry struct {
	commitments map[uint64]common.Hash
}

func newFakeRegistry(q *fakeQuery) *fakeRegistry {
	r := &fakeRegistry{commitments: make(map[uint64]common.Hash)}
	for _, h := range q.headers {
		r.commitments[h.Height] = h.Commit()
	}
	return r
}

func (r *fakeRegistry) Commitment(ctx context.Context, height uint64) (common.Hash, error) {
	c, ok := r.commitments[height]
	if !ok {
		return common.Hash{}, fmt.Errorf("no commitment for block %d", height)
	}
	return c, nil
}

type submission struct {
	count uint64
	next  rollup.Commitment
	proof *rollup.BatchProof
}

// fakeSettlement accepts every batch once its fail budget is spent. onFail
// runs, under the lock, after each rejected call.
type fakeSettlement struct {
	mu        sync.Mutex
	state     rollup.Commitment
	verified  uint64
	fail      int
	onFail    func(s *fakeSettlement)
	calls     []submission
	submitted chan submission
}

func newFakeSettlement() *fakeSettlement {
	return &fakeSettlement{submitted: make(chan submission, 8)}
}

func (s *fakeSettlement) StateCommitment(ctx context.Context) (rollup.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *fakeSettlement) NumVerifiedBlocks(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verified, nil
}

func (s *fakeSettlement) VerifyBlocks(ctx context.Context, count uint64, next rollup.Commitment, proof *rollup.BatchProof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := submission{count: count, next: next, proof: proof}
	s.calls = append(s.calls, sub)
	if s.fail > 0 {
		s.fail--
		if s.onFail != nil {
			s.onFail(s)
		}
		return errSubmit
	}
	s.state = next
	s.verified += count
	select {
	case s.submitted <- sub:
	default:
	}
	return nil
}

func (s *fakeSettlement) numCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// staticRanges announces ranges once and then stays open until
// unsubscribed.
func staticRanges(ranges ...l1.BlockRange) RangeSource {
	return RangeSourceFunc(func(sink chan<- l1.BlockRange) event.Subscription {
		return event.NewSubscription(func(quit <-chan struct{}) error {
			for _, r := range ranges {
				select {
				case sink <- r:
				case <-quit:
					return nil
				}
			}
			<-quit
			return nil
		})
	})
}

func transfer(t *testing.T, from rollup.SeedIdentity, to rollup.SeedIdentity, amount rollup.Amount, nonce rollup.Nonce) sequencer.Transaction {
	t.Helper()
	stx, err := rollup.SignTransaction(rollup.Transaction{Amount: amount, Destination: to.Address(), Nonce: nonce}, from.Key())
	if err != nil {
		t.Fatalf("SignTransaction: %v", err)
	}
	enc, err := stx.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return sequencer.Transaction{Namespace: testNamespace, Payload: enc}
}

func buildBlock(t *testing.T, height uint64, txs ...sequencer.Transaction) *sequencer.Block {
	t.Helper()
	b, err := sequencer.BuildBlock(height, 1000+height, txs)
	if err != nil {
		t.Fatalf("BuildBlock(%d): %v", height, err)
	}
	return b
}

type fixture struct {
	query      *fakeQuery
	registry   *fakeRegistry
	settlement *fakeSettlement
	ledger     *rollup.SharedLedger
	reg        *prometheus.Registry
	exec       *Executor
}

func newFixture(t *testing.T, cfg Config, ranges RangeSource, blocks ...*sequencer.Block) *fixture {
	t.Helper()
	f := &fixture{
		query:      newFakeQuery(blocks...),
		settlement: newFakeSettlement(),
		reg:        prometheus.NewRegistry(),
	}
	f.registry = newFakeRegistry(f.query)
	genesis := rollup.NewGenesisLedger(testNamespace)
	genesis.SetLogger(log.Discard())
	f.ledger = rollup.NewSharedLedger(genesis)
	if ranges == nil {
		ranges = staticRanges()
	}
	f.exec = New(cfg, f.ledger, f.query, f.settlement, f.registry, ranges)
	f.exec.SetLogger(log.Discard())
	f.exec.SetMetrics(NewMetrics(f.reg))
	return f
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryInterval = time.Millisecond
	return cfg
}

// process runs a single range through the executor with a fresh header
// stream opened at the range's first block.
func (f *fixture) process(t *testing.T, ctx context.Context, r l1.BlockRange) error {
	t.Helper()
	stream, err := f.query.SubscribeHeaders(ctx, r.First)
	if err != nil {
		t.Fatalf("SubscribeHeaders: %v", err)
	}
	defer stream.Close()
	return f.exec.processRange(ctx, stream, r)
}

// metricValue reads a counter, gauge or histogram sample count from reg.
func metricValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name || len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue()
		case m.GetHistogram() != nil:
			return float64(m.GetHistogram().GetSampleCount())
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
