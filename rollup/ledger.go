// ledger.go implements the rollup account state machine: transfer
// application with nonce and balance checks, the chained state commitment,
// block execution against verified namespace payloads, and snapshots.
package rollup

import (
	"bytes"
	"fmt"
	"math"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eth2030/example-l2/crypto"
	"github.com/eth2030/example-l2/log"
	"github.com/eth2030/example-l2/sequencer"
)

// addressComparator orders addresses by their bytes.
func addressComparator(a, b interface{}) int {
	x, y := a.(common.Address), b.(common.Address)
	return bytes.Compare(x[:], y[:])
}

// Ledger is the rollup state: accounts in ascending address order, the
// namespace the rollup reads from the sequencer, and the commitment chain
// position (previous commitment and last block hash).
//
// A Ledger is not safe for concurrent use; see SharedLedger.
type Ledger struct {
	accounts       *treemap.Map // common.Address -> *Account
	namespace      sequencer.NamespaceID
	prevCommitment *Commitment
	blockHash      *common.Hash

	signers *crypto.SignerCache
	log     *log.Logger
}

// NewLedger creates a ledger for namespace with the given initial balances
// and nonce zero for every account.
func NewLedger(namespace sequencer.NamespaceID, balances map[common.Address]Amount) *Ledger {
	l := &Ledger{
		accounts:  treemap.NewWith(addressComparator),
		namespace: namespace,
		log:       log.Default().Module("ledger"),
	}
	for addr, bal := range balances {
		l.accounts.Put(addr, &Account{Balance: bal})
	}
	return l
}

// SetSignerCache makes the ledger recover senders through c.
func (l *Ledger) SetSignerCache(c *crypto.SignerCache) { l.signers = c }

// SetLogger replaces the ledger's logger.
func (l *Ledger) SetLogger(lg *log.Logger) {
	if lg != nil {
		l.log = lg
	}
}

// Namespace returns the namespace whose transactions the ledger applies.
func (l *Ledger) Namespace() sequencer.NamespaceID { return l.namespace }

func (l *Ledger) account(addr common.Address) (*Account, bool) {
	v, ok := l.accounts.Get(addr)
	if !ok {
		return nil, false
	}
	return v.(*Account), true
}

// Balance returns the balance of addr, zero for unknown accounts.
func (l *Ledger) Balance(addr common.Address) Amount {
	if a, ok := l.account(addr); ok {
		return a.Balance
	}
	return 0
}

// Nonce returns the nonce of addr, zero for unknown accounts.
func (l *Ledger) Nonce(addr common.Address) Nonce {
	if a, ok := l.account(addr); ok {
		return a.Nonce
	}
	return 0
}

// Len returns the number of accounts.
func (l *Ledger) Len() int { return l.accounts.Size() }

// Accounts calls fn for every account in ascending address order until fn
// returns false.
func (l *Ledger) Accounts(fn func(addr common.Address, acct Account) bool) {
	it := l.accounts.Iterator()
	for it.Next() {
		if !fn(it.Key().(common.Address), *it.Value().(*Account)) {
			return
		}
	}
}

// Apply decodes a transaction from its wire form and applies it.
func (l *Ledger) Apply(payload []byte) error {
	stx, err := DecodeTransaction(payload)
	if err != nil {
		return err
	}
	return l.ApplyTransaction(stx)
}

// ApplyTransaction validates stx against the current state and, if every
// check passes, debits the sender, advances its nonce and credits the
// destination. On error the ledger is unchanged.
func (l *Ledger) ApplyTransaction(stx *SignedTransaction) error {
	sender, err := stx.Recover(l.signers)
	if err != nil {
		return err
	}
	tx := &stx.Transaction

	from, ok := l.account(sender)
	if !ok {
		return &InsufficientBalanceError{Address: sender}
	}
	if from.Nonce == math.MaxUint64 || tx.Nonce != from.Nonce+1 {
		return &InvalidNonceError{Address: sender, Expected: from.Nonce + 1, Actual: tx.Nonce}
	}
	if tx.Amount > from.Balance {
		return &InsufficientBalanceError{Address: sender}
	}
	to, exists := l.account(tx.Destination)
	if exists && tx.Destination != sender && to.Balance > math.MaxUint64-tx.Amount {
		return &BalanceOverflowError{Address: tx.Destination}
	}

	from.Balance -= tx.Amount
	from.Nonce = tx.Nonce
	if !exists {
		l.accounts.Put(tx.Destination, &Account{Balance: tx.Amount})
	} else {
		to.Balance += tx.Amount
	}
	return nil
}

func (l *Ledger) entries() []accountEntry {
	out := make([]accountEntry, 0, l.accounts.Size())
	l.Accounts(func(addr common.Address, a Account) bool {
		out = append(out, accountEntry{Address: addr, Balance: a.Balance, Nonce: a.Nonce})
		return true
	})
	return out
}

// Commit returns the state commitment. It covers the last block hash and
// previous commitment (when present), every account in address order, and
// the namespace, so two ledgers commit equal exactly when they have the same
// accounts and chain position.
func (l *Ledger) Commit() Commitment {
	accounts, err := rlp.EncodeToBytes(l.entries())
	if err != nil {
		panic(fmt.Sprintf("rollup: account encoding failed: %v", err))
	}
	var blockHash, prev [][]byte
	if l.blockHash != nil {
		blockHash = append(blockHash, l.blockHash[:])
	}
	if l.prevCommitment != nil {
		prev = append(prev, l.prevCommitment[:])
	}
	return newCommitmentBuilder("State Commitment").
		array("block_hash", blockHash...).
		array("prev_state_commitment", prev...).
		field("accounts", accounts).
		u64("namespace", uint64(l.namespace)).
		finalize()
}

// ExecuteBlock verifies nsProof against header and vid, applies every
// transaction of the ledger's namespace in payload order and advances the
// commitment chain to blockHash. Transactions that fail validation are
// logged and skipped. A failed inclusion check returns an *InclusionError
// and leaves the ledger untouched.
func (l *Ledger) ExecuteBlock(header *sequencer.Header, nsProof *sequencer.NsProof, vid *sequencer.VidCommon, blockHash common.Hash) (*SingleBlockProof, error) {
	oldState := l.Commit()

	txs, err := l.verifyInclusion(header, nsProof, vid)
	if err != nil {
		return nil, err
	}
	applied := 0
	for i, tx := range txs {
		if err := l.Apply(tx.Payload); err != nil {
			l.log.Warn("skipping transaction", "block", header.Height, "index", i, "err", err)
			continue
		}
		applied++
	}
	l.prevCommitment = &oldState
	l.blockHash = &blockHash

	newState := l.Commit()
	l.log.Debug("executed block", "block", header.Height, "txs", len(txs), "applied", applied,
		"old", oldState, "new", newState)
	return newBlockProof(header, blockHash, oldState, newState), nil
}

func (l *Ledger) verifyInclusion(header *sequencer.Header, nsProof *sequencer.NsProof, vid *sequencer.VidCommon) ([]sequencer.Transaction, error) {
	if nsProof != nil && nsProof.Namespace != l.namespace {
		return nil, &InclusionError{Block: header.Height, Err: ErrWrongNamespace}
	}
	if err := checkInclusion(header, nsProof, vid); err != nil {
		return nil, err
	}
	txs, err := nsProof.Transactions()
	if err != nil {
		return nil, &InclusionError{Block: header.Height, Err: err}
	}
	return txs, nil
}

// Clone returns a deep copy of the ledger sharing its signer cache and
// logger.
func (l *Ledger) Clone() *Ledger {
	cp := &Ledger{
		accounts:  treemap.NewWith(addressComparator),
		namespace: l.namespace,
		signers:   l.signers,
		log:       l.log,
	}
	l.Accounts(func(addr common.Address, a Account) bool {
		acct := a
		cp.accounts.Put(addr, &acct)
		return true
	})
	if l.prevCommitment != nil {
		prev := *l.prevCommitment
		cp.prevCommitment = &prev
	}
	if l.blockHash != nil {
		h := *l.blockHash
		cp.blockHash = &h
	}
	return cp
}

type ledgerSnapshot struct {
	Namespace      uint64
	BlockHash      *common.Hash `rlp:"nil"`
	PrevCommitment *Commitment  `rlp:"nil"`
	Accounts       []accountEntry
}

// MarshalBinary encodes the full ledger state as RLP.
func (l *Ledger) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(&ledgerSnapshot{
		Namespace:      uint64(l.namespace),
		BlockHash:      l.blockHash,
		PrevCommitment: l.prevCommitment,
		Accounts:       l.entries(),
	})
}

// UnmarshalBinary replaces the ledger state with a MarshalBinary encoding.
// Accounts must be in strictly ascending address order.
func (l *Ledger) UnmarshalBinary(data []byte) error {
	var snap ledgerSnapshot
	if err := rlp.DecodeBytes(data, &snap); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotEncoding, err)
	}
	accounts := treemap.NewWith(addressComparator)
	for i, e := range snap.Accounts {
		if i > 0 && bytes.Compare(snap.Accounts[i-1].Address[:], e.Address[:]) >= 0 {
			return fmt.Errorf("%w: accounts not in ascending order", ErrSnapshotEncoding)
		}
		accounts.Put(e.Address, &Account{Balance: e.Balance, Nonce: e.Nonce})
	}
	l.accounts = accounts
	l.namespace = sequencer.NamespaceID(snap.Namespace)
	l.blockHash = snap.BlockHash
	l.prevCommitment = snap.PrevCommitment
	if l.log == nil {
		l.log = log.Default().Module("ledger")
	}
	return nil
}
