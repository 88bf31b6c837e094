package rollup

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/example-l2/sequencer"
)

func commitmentOf(b byte) Commitment {
	var c Commitment
	c[31] = b
	return c
}

func TestGenerateBatchProof(t *testing.T) {
	a, b, c, x := commitmentOf(0xa), commitmentOf(0xb), commitmentOf(0xc), commitmentOf(0xf)
	h3, h4 := common.HexToHash("0x33"), common.HexToHash("0x44")

	batch, err := GenerateBatchProof([]*SingleBlockProof{
		{Block: 3, BlockHash: h3, OldState: a, NewState: b},
		{Block: 4, BlockHash: h4, OldState: b, NewState: c},
	})
	if err != nil {
		t.Fatalf("GenerateBatchProof: %v", err)
	}
	want := BatchProof{FirstBlock: 3, LastBlock: 4, FirstBlockHash: h3, LastBlockHash: h4, OldState: a, NewState: c}
	if *batch != want {
		t.Errorf("batch: got %+v, want %+v", *batch, want)
	}

	_, err = GenerateBatchProof([]*SingleBlockProof{
		{Block: 3, OldState: a, NewState: b},
		{Block: 4, OldState: x, NewState: c},
	})
	var ooo *OutOfOrderError
	if !errors.As(err, &ooo) {
		t.Fatalf("got %v, want *OutOfOrderError", err)
	}
	if ooo.Position != 0 || ooo.NewState != b || ooo.OldState != x {
		t.Errorf("out of order: got %+v, want position 0, new %s, old %s", ooo, b, x)
	}
}

func TestGenerateBatchProofSingleAndEmpty(t *testing.T) {
	a, b := commitmentOf(1), commitmentOf(2)
	batch, err := GenerateBatchProof([]*SingleBlockProof{{Block: 7, OldState: a, NewState: b}})
	if err != nil {
		t.Fatalf("GenerateBatchProof: %v", err)
	}
	if batch.FirstBlock != 7 || batch.LastBlock != 7 || batch.OldState != a || batch.NewState != b {
		t.Errorf("single-block batch: got %+v", batch)
	}
	if _, err := GenerateBatchProof(nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("empty batch: got %v, want ErrEmptyBatch", err)
	}
}

func TestGenerateBatchProofReportsFirstBreak(t *testing.T) {
	a, b, c, d := commitmentOf(1), commitmentOf(2), commitmentOf(3), commitmentOf(4)
	_, err := GenerateBatchProof([]*SingleBlockProof{
		{Block: 1, OldState: a, NewState: b},
		{Block: 2, OldState: b, NewState: c},
		{Block: 3, OldState: a, NewState: d},
		{Block: 4, OldState: b, NewState: d},
	})
	var ooo *OutOfOrderError
	if !errors.As(err, &ooo) || ooo.Position != 1 {
		t.Fatalf("got %v, want *OutOfOrderError at position 1", err)
	}
}

func TestGenerateBlockProof(t *testing.T) {
	b := buildBlock(t, 2, []byte("payload"))
	old, next := commitmentOf(1), commitmentOf(2)

	proof, err := GenerateBlockProof(&b.Header, next, old, b.NamespaceProof(testNamespace), &b.Common, b.Payload.BlockHash)
	if err != nil {
		t.Fatalf("GenerateBlockProof: %v", err)
	}
	if proof.Block != 2 || proof.BlockHash != b.Payload.BlockHash || proof.OldState != old || proof.NewState != next {
		t.Errorf("proof: got %+v", proof)
	}

	other := buildBlock(t, 3, []byte("other payload"))
	_, err = GenerateBlockProof(&other.Header, next, old, b.NamespaceProof(testNamespace), &b.Common, other.Payload.BlockHash)
	var incl *InclusionError
	if !errors.As(err, &incl) {
		t.Fatalf("mismatched header: got %v, want *InclusionError", err)
	}
}

func TestEndToEndBatch(t *testing.T) {
	alice, bob := Alice.Address(), Bob.Address()
	l := newTestLedger(map[common.Address]Amount{alice: 9999})

	blocks := []*sequencer.Block{
		// Nonce 2 is one ahead of Alice's next nonce.
		buildBlock(t, 1, encodeTx(t, signedTransfer(t, Alice, bob, 100, 2))),
		buildBlock(t, 2, encodeTx(t, signedTransfer(t, Alice, bob, 100, 1))),
		buildBlock(t, 3, []byte("garbage")),
	}
	var proofs []*SingleBlockProof
	for _, b := range blocks {
		proofs = append(proofs, executeBlock(t, l, b))
	}
	batch, err := GenerateBatchProof(proofs)
	if err != nil {
		t.Fatalf("GenerateBatchProof: %v", err)
	}

	if got := l.Balance(alice); got != 9899 {
		t.Errorf("Alice: got %d, want 9899", got)
	}
	if got := l.Balance(bob); got != 100 {
		t.Errorf("Bob: got %d, want 100", got)
	}
	if batch.NewState != l.Commit() {
		t.Errorf("batch new state %s, ledger commit %s", batch.NewState, l.Commit())
	}
	if batch.FirstBlock != 1 || batch.LastBlock != 3 {
		t.Errorf("batch range: got %d..%d, want 1..3", batch.FirstBlock, batch.LastBlock)
	}
	if batch.FirstBlockHash != blocks[0].Payload.BlockHash || batch.LastBlockHash != blocks[2].Payload.BlockHash {
		t.Errorf("batch hashes: got %s..%s, want %s..%s", batch.FirstBlockHash, batch.LastBlockHash,
			blocks[0].Payload.BlockHash, blocks[2].Payload.BlockHash)
	}
	if batch.FirstBlockHash == batch.LastBlockHash {
		t.Error("first and last block hashes are equal")
	}
	if batch.OldState != proofs[0].OldState {
		t.Error("batch old state is not the first block's old state")
	}
}

func TestExecuteBlockMatchesGenerateBlockProof(t *testing.T) {
	l := newTestLedger(GenesisBalances())
	b := buildBlock(t, 5, encodeTx(t, signedTransfer(t, Alice, Bob.Address(), 7, 1)))
	old := l.Commit()

	proof := executeBlock(t, l, b)
	want, err := GenerateBlockProof(&b.Header, l.Commit(), old, b.NamespaceProof(testNamespace), &b.Common, b.Payload.BlockHash)
	if err != nil {
		t.Fatalf("GenerateBlockProof: %v", err)
	}
	if *proof != *want {
		t.Errorf("ExecuteBlock proof: got %+v, want %+v", *proof, *want)
	}
}
