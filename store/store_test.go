package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/eth2030/example-l2/executor"
	"github.com/eth2030/example-l2/log"
	"github.com/eth2030/example-l2/rollup"
)

func newTestStore(t *testing.T, retain uint64) *Store {
	t.Helper()
	s, err := OpenStorage(storage.NewMemStorage(), retain)
	if err != nil {
		t.Fatalf("OpenStorage: %v", err)
	}
	s.SetLogger(log.Discard())
	t.Cleanup(func() { s.Close() })
	return s
}

// ledgerAt returns a genesis ledger with Bob's balance raised by block so
// every snapshot is distinct.
func ledgerAt(block uint64) *rollup.Ledger {
	balances := rollup.GenesisBalances()
	balances[rollup.Bob.Address()] += rollup.Amount(block)
	l := rollup.NewLedger(1, balances)
	l.SetLogger(log.Discard())
	return l
}

func TestPutGet(t *testing.T) {
	s := newTestStore(t, 0)
	l := ledgerAt(7)
	if err := s.Put(7, l.Commit(), l); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Commit() != l.Commit() {
		t.Errorf("commit: got %s, want %s", got.Commit(), l.Commit())
	}
	if b := got.Balance(rollup.Bob.Address()); b != rollup.InitialBalance+7 {
		t.Errorf("Bob balance: got %d, want %d", b, rollup.InitialBalance+7)
	}
	c, err := s.Commitment(7)
	if err != nil {
		t.Fatalf("Commitment: %v", err)
	}
	if c != l.Commit() {
		t.Errorf("stored commitment: got %s, want %s", c, l.Commit())
	}
}

func TestNotFound(t *testing.T) {
	s := newTestStore(t, 0)
	if _, err := s.Get(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get: got %v, want ErrNotFound", err)
	}
	if _, err := s.Commitment(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Commitment: got %v, want ErrNotFound", err)
	}
	if _, _, err := s.Latest(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest: got %v, want ErrNotFound", err)
	}
}

func TestLatestOnlyMovesForward(t *testing.T) {
	s := newTestStore(t, 0)
	for _, block := range []uint64{3, 9, 5} {
		l := ledgerAt(block)
		if err := s.Put(block, l.Commit(), l); err != nil {
			t.Fatalf("Put(%d): %v", block, err)
		}
	}
	block, l, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if block != 9 {
		t.Errorf("latest block: got %d, want 9", block)
	}
	if l.Commit() != ledgerAt(9).Commit() {
		t.Error("latest ledger is not block 9's")
	}
}

func TestRetain(t *testing.T) {
	s := newTestStore(t, 2)
	for block := uint64(0); block < 5; block++ {
		l := ledgerAt(block)
		if err := s.Put(block, l.Commit(), l); err != nil {
			t.Fatalf("Put(%d): %v", block, err)
		}
	}
	for block := uint64(0); block < 5; block++ {
		_, err := s.Get(block)
		kept := block >= 3
		if kept && err != nil {
			t.Errorf("Get(%d): %v", block, err)
		}
		if !kept && !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%d): got %v, want ErrNotFound", block, err)
		}
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t, 0)
	for block := uint64(0); block < 4; block++ {
		l := ledgerAt(block)
		if err := s.Put(block, l.Commit(), l); err != nil {
			t.Fatalf("Put(%d): %v", block, err)
		}
	}
	n, err := s.Prune(2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned: got %d, want 2", n)
	}
	if _, err := s.Commitment(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Commitment(1) after prune: got %v, want ErrNotFound", err)
	}
	if n, _ := s.Prune(2); n != 0 {
		t.Errorf("second prune: got %d, want 0", n)
	}
}

func TestCorruptSnapshot(t *testing.T) {
	s := newTestStore(t, 0)
	if err := s.db.Put(snapshotKey(4), []byte{0x01, 0x02}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(4); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Get: got %v, want ErrCorrupt", err)
	}
	if err := s.db.Put(commitmentKey(4), []byte{0x01}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commitment(4); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Commitment: got %v, want ErrCorrupt", err)
	}
}

type broadcastFeed struct {
	b *executor.Broadcaster
}

func (f broadcastFeed) SubscribeSnapshots() (<-chan executor.Snapshot, event.Subscription) {
	ch := make(chan executor.Snapshot, 4)
	return ch, f.b.Subscribe(ch)
}

func TestRunArchivesSnapshots(t *testing.T) {
	s := newTestStore(t, 0)
	b := executor.NewBroadcaster()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, broadcastFeed{b}) }()

	deadline := time.Now().Add(5 * time.Second)
	for !b.HasSubscribers() {
		if time.Now().After(deadline) {
			t.Fatal("store never subscribed")
		}
		time.Sleep(time.Millisecond)
	}
	l := ledgerAt(2)
	if n := b.Send(executor.Snapshot{Block: 2, Commitment: l.Commit(), Ledger: l}); n != 1 {
		t.Fatalf("delivered: got %d, want 1", n)
	}
	for {
		if c, err := s.Commitment(2); err == nil {
			if c != l.Commit() {
				t.Errorf("archived commitment: got %s, want %s", c, l.Commit())
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot never archived")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run: got %v, want context.Canceled", err)
	}
	if b.HasSubscribers() {
		t.Error("Run left its subscription registered")
	}
}

func TestKeysSortByBlock(t *testing.T) {
	if string(snapshotKey(1)) >= string(snapshotKey(256)) {
		t.Error("snapshot keys do not sort by block number")
	}
	if _, ok := decodeBlockNumber(common.Hex2Bytes("01")); ok {
		t.Error("decoded a short block number")
	}
}
