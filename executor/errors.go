package executor

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Executor errors.
var (
	ErrRangeSourceClosed = errors.New("executor: block range source closed")
	ErrRangeGap          = errors.New("executor: block range skips unexecuted blocks")
)

// CommitmentMismatchError reports a fetched header whose commitment differs
// from the one the L1 registry recorded for its height.
type CommitmentMismatchError struct {
	Height  uint64
	Header  common.Hash
	OnChain common.Hash
}

func (e *CommitmentMismatchError) Error() string {
	return fmt.Sprintf("executor: block %d commitment %s does not match L1 commitment %s",
		e.Height, e.Header, e.OnChain)
}

// HeightGapError reports a header stream that skipped or repeated a height.
type HeightGapError struct {
	Expected uint64
	Got      uint64
}

func (e *HeightGapError) Error() string {
	return fmt.Sprintf("executor: header stream returned height %d, want %d", e.Got, e.Expected)
}
