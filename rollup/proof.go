package rollup

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/example-l2/sequencer"
)

// SingleBlockProof attests that applying the rollup transactions of the
// block with hash BlockHash to the state committed by OldState yields
// NewState. Block is the block's height.
type SingleBlockProof struct {
	Block     uint64      `json:"block"`
	BlockHash common.Hash `json:"block_hash"`
	OldState  Commitment  `json:"old_state"`
	NewState  Commitment  `json:"new_state"`
}

// BatchProof attests the transition from OldState to NewState over the
// consecutive blocks FirstBlockHash through LastBlockHash, at heights
// FirstBlock through LastBlock.
type BatchProof struct {
	FirstBlock     uint64      `json:"first_block"`
	LastBlock      uint64      `json:"last_block"`
	FirstBlockHash common.Hash `json:"first_block_hash"`
	LastBlockHash  common.Hash `json:"last_block_hash"`
	OldState       Commitment  `json:"old_state"`
	NewState       Commitment  `json:"new_state"`
}

// GenerateBlockProof builds the proof for the block with hash blockHash
// after checking that nsProof is the content of namespace nsProof.Namespace
// in header. The only error is an *InclusionError.
func GenerateBlockProof(header *sequencer.Header, newState, oldState Commitment, nsProof *sequencer.NsProof, vid *sequencer.VidCommon, blockHash common.Hash) (*SingleBlockProof, error) {
	if err := checkInclusion(header, nsProof, vid); err != nil {
		return nil, err
	}
	return newBlockProof(header, blockHash, oldState, newState), nil
}

func checkInclusion(header *sequencer.Header, nsProof *sequencer.NsProof, vid *sequencer.VidCommon) error {
	if nsProof == nil {
		return &InclusionError{Block: header.Height, Err: ErrMissingNamespaceProof}
	}
	if err := nsProof.Verify(header.NsTable, header.PayloadCommitment, vid); err != nil {
		return &InclusionError{Block: header.Height, Err: err}
	}
	return nil
}

func newBlockProof(header *sequencer.Header, blockHash common.Hash, oldState, newState Commitment) *SingleBlockProof {
	return &SingleBlockProof{Block: header.Height, BlockHash: blockHash, OldState: oldState, NewState: newState}
}

// GenerateBatchProof folds a chain of block proofs into one batch proof.
// Every proof must start from the state the previous one ended in.
func GenerateBatchProof(proofs []*SingleBlockProof) (*BatchProof, error) {
	if len(proofs) == 0 {
		return nil, ErrEmptyBatch
	}
	for i := 0; i+1 < len(proofs); i++ {
		if proofs[i].NewState != proofs[i+1].OldState {
			return nil, &OutOfOrderError{
				Position: i,
				NewState: proofs[i].NewState,
				OldState: proofs[i+1].OldState,
			}
		}
	}
	first, last := proofs[0], proofs[len(proofs)-1]
	return &BatchProof{
		FirstBlock:     first.Block,
		LastBlock:      last.Block,
		FirstBlockHash: first.BlockHash,
		LastBlockHash:  last.BlockHash,
		OldState:       first.OldState,
		NewState:       last.NewState,
	}, nil
}
