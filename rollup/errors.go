package rollup

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger and proof errors.
var (
	ErrInvalidTransaction    = errors.New("rollup: invalid transaction encoding")
	ErrSignature             = errors.New("rollup: invalid transaction signature")
	ErrEmptyBatch            = errors.New("rollup: batch proof needs at least one block proof")
	ErrWrongNamespace        = errors.New("rollup: namespace proof is for another namespace")
	ErrMissingNamespaceProof = errors.New("rollup: missing namespace proof")
	ErrSnapshotEncoding      = errors.New("rollup: malformed ledger snapshot")
)

// InsufficientBalanceError is returned when the sender does not exist or
// cannot cover the transfer.
type InsufficientBalanceError struct {
	Address common.Address
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("rollup: insufficient balance for %s", e.Address)
}

// InvalidNonceError is returned when a transaction's nonce is not exactly
// one past the sender's current nonce.
type InvalidNonceError struct {
	Address  common.Address
	Expected Nonce
	Actual   Nonce
}

func (e *InvalidNonceError) Error() string {
	return fmt.Sprintf("rollup: invalid nonce for %s: expected %d, got %d", e.Address, e.Expected, e.Actual)
}

// BalanceOverflowError is returned when crediting the destination would
// overflow its balance.
type BalanceOverflowError struct {
	Address common.Address
}

func (e *BalanceOverflowError) Error() string {
	return fmt.Sprintf("rollup: balance overflow for %s", e.Address)
}

// OutOfOrderError reports two adjacent block proofs that do not chain:
// the proof at Position ends in NewState but the next one starts from
// OldState.
type OutOfOrderError struct {
	Position int
	NewState Commitment
	OldState Commitment
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("rollup: block proofs out of order at position %d: new state %s, next old state %s",
		e.Position, e.NewState, e.OldState)
}

// InclusionError reports a namespace proof that failed verification for
// the block at Block.
type InclusionError struct {
	Block uint64
	Err   error
}

func (e *InclusionError) Error() string {
	return fmt.Sprintf("rollup: namespace inclusion for block %d: %v", e.Block, e.Err)
}

func (e *InclusionError) Unwrap() error { return e.Err }
