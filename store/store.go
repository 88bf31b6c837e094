// Package store archives the ledger snapshots the executor publishes after
// every block in a LevelDB database, so past states can be served after the
// live ledger has moved on.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/event"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/eth2030/example-l2/executor"
	"github.com/eth2030/example-l2/log"
	"github.com/eth2030/example-l2/rollup"
)

var (
	ErrNotFound = errors.New("store: snapshot not found")
	ErrCorrupt  = errors.New("store: corrupt record")
)

// Config configures the snapshot archive.
type Config struct {
	// Path is the database directory.
	Path string `yaml:"path"`
	// Cache is the block cache size in MiB.
	Cache int `yaml:"cache"`
	// Handles caps the number of open table files.
	Handles int `yaml:"handles"`
	// Retain keeps only the newest Retain snapshots. Zero keeps all.
	Retain uint64 `yaml:"retain"`
}

// DefaultConfig returns the archive defaults.
func DefaultConfig() Config {
	return Config{Path: "snapshots", Cache: 16, Handles: 64}
}

// Store is a LevelDB-backed snapshot archive. It is safe for concurrent
// use.
type Store struct {
	db     *leveldb.DB
	retain uint64
	log    *log.Logger
}

// Open opens or creates the archive at cfg.Path.
func Open(cfg Config) (*Store, error) {
	db, err := leveldb.OpenFile(cfg.Path, &opt.Options{
		BlockCacheCapacity:     cfg.Cache * opt.MiB,
		OpenFilesCacheCapacity: cfg.Handles,
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Path, err)
	}
	return newStore(db, cfg.Retain), nil
}

// OpenStorage opens the archive on an existing goleveldb storage, such as
// storage.NewMemStorage().
func OpenStorage(stor storage.Storage, retain uint64) (*Store, error) {
	db, err := leveldb.Open(stor, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return newStore(db, retain), nil
}

func newStore(db *leveldb.DB, retain uint64) *Store {
	return &Store{db: db, retain: retain, log: log.Default().Module("store")}
}

// SetLogger replaces the store's logger.
func (s *Store) SetLogger(l *log.Logger) {
	if l != nil {
		s.log = l
	}
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Put archives the ledger state after block. The head pointer only moves
// forward.
func (s *Store) Put(block uint64, commitment rollup.Commitment, ledger *rollup.Ledger) error {
	enc, err := ledger.MarshalBinary()
	if err != nil {
		return fmt.Errorf("store: encode snapshot %d: %w", block, err)
	}
	batch := new(leveldb.Batch)
	batch.Put(snapshotKey(block), enc)
	batch.Put(commitmentKey(block), commitment.Bytes())

	head, err := s.head()
	switch {
	case errors.Is(err, ErrNotFound) || (err == nil && block > head):
		batch.Put(headKey, encodeBlockNumber(block))
	case err != nil:
		return err
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("store: write snapshot %d: %w", block, err)
	}
	if s.retain > 0 && block >= s.retain {
		if _, err := s.Prune(block - s.retain + 1); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the ledger state archived for block.
func (s *Store) Get(block uint64) (*rollup.Ledger, error) {
	enc, err := s.db.Get(snapshotKey(block), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read snapshot %d: %w", block, err)
	}
	l := new(rollup.Ledger)
	if err := l.UnmarshalBinary(enc); err != nil {
		return nil, fmt.Errorf("%w: snapshot %d: %v", ErrCorrupt, block, err)
	}
	return l, nil
}

// Commitment returns the state commitment archived for block without
// decoding the snapshot.
func (s *Store) Commitment(block uint64) (rollup.Commitment, error) {
	enc, err := s.db.Get(commitmentKey(block), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return rollup.Commitment{}, ErrNotFound
	}
	if err != nil {
		return rollup.Commitment{}, fmt.Errorf("store: read commitment %d: %w", block, err)
	}
	if len(enc) != len(rollup.Commitment{}) {
		return rollup.Commitment{}, fmt.Errorf("%w: commitment %d has %d bytes", ErrCorrupt, block, len(enc))
	}
	return rollup.BytesToCommitment(enc), nil
}

func (s *Store) head() (uint64, error) {
	enc, err := s.db.Get(headKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("store: read head: %w", err)
	}
	n, ok := decodeBlockNumber(enc)
	if !ok {
		return 0, fmt.Errorf("%w: head pointer", ErrCorrupt)
	}
	return n, nil
}

// Latest returns the newest archived block and its ledger state.
func (s *Store) Latest() (uint64, *rollup.Ledger, error) {
	block, err := s.head()
	if err != nil {
		return 0, nil, err
	}
	l, err := s.Get(block)
	if err != nil {
		return 0, nil, err
	}
	return block, l, nil
}

// Prune deletes every snapshot older than block and returns how many were
// removed.
func (s *Store) Prune(block uint64) (int, error) {
	it := s.db.NewIterator(&util.Range{Start: snapshotKey(0), Limit: snapshotKey(block)}, nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	for it.Next() {
		n, ok := decodeBlockNumber(it.Key()[len(snapshotPrefix):])
		if !ok {
			continue
		}
		batch.Delete(snapshotKey(n))
		batch.Delete(commitmentKey(n))
	}
	if err := it.Error(); err != nil {
		return 0, fmt.Errorf("store: prune: %w", err)
	}
	removed := batch.Len() / 2
	if removed == 0 {
		return 0, nil
	}
	if err := s.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("store: prune: %w", err)
	}
	s.log.Debug("pruned snapshots", "below", block, "removed", removed)
	return removed, nil
}

// SnapshotFeed publishes executed-block snapshots. *executor.Executor
// implements it.
type SnapshotFeed interface {
	SubscribeSnapshots() (<-chan executor.Snapshot, event.Subscription)
}

// Run archives every snapshot feed publishes until ctx is cancelled or the
// subscription fails.
func (s *Store) Run(ctx context.Context, feed SnapshotFeed) error {
	ch, sub := feed.SubscribeSnapshots()
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case snap := <-ch:
			if err := s.Put(snap.Block, snap.Commitment, snap.Ledger); err != nil {
				return err
			}
			s.log.Debug("archived snapshot", "block", snap.Block, "state", snap.Commitment)
		}
	}
}
