// Package rollup implements the example rollup's state machine: an ordered
// ledger of balance+nonce accounts keyed by address, signed transfer
// transactions, the chained state commitment, and the single-block and
// batch proofs the executor submits to the settlement layer.
package rollup

import "github.com/ethereum/go-ethereum/common"

// Amount is a token balance or transfer value.
type Amount uint64

// Nonce counts the transactions an account has sent.
type Nonce uint64

// Account is the state held for one address. Accounts are created on first
// credit and never deleted.
type Account struct {
	Balance Amount
	Nonce   Nonce
}

// accountEntry is the canonical RLP form of one ledger entry. Commitments
// and snapshots encode accounts as a list of entries in ascending address
// order.
type accountEntry struct {
	Address common.Address
	Balance Amount
	Nonce   Nonce
}
