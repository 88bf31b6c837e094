package rollup

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestCommitmentConversions(t *testing.T) {
	c := newTestLedger(GenesisBalances()).Commit()

	if got := CommitmentFromUint256(c.Uint256()); got != c {
		t.Errorf("uint256 round trip: got %s, want %s", got, c)
	}
	if got := CommitmentFromBig(c.Big()); got != c {
		t.Errorf("big round trip: got %s, want %s", got, c)
	}
	if got := BytesToCommitment(c.Bytes()); got != c {
		t.Errorf("bytes round trip: got %s, want %s", got, c)
	}

	small := CommitmentFromUint256(uint256.NewInt(5))
	if small[31] != 5 || small.Big().Cmp(big.NewInt(5)) != 0 {
		t.Errorf("small word: got %s", small)
	}
}

func TestCommitmentJSON(t *testing.T) {
	c := commitmentOf(0x2a)
	enc, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(enc) != `"`+c.Hex()+`"` {
		t.Errorf("json: got %s, want %q", enc, c.Hex())
	}
	var out Commitment
	if err := json.Unmarshal(enc, &out); err != nil || out != c {
		t.Fatalf("Unmarshal: got %s, %v", out, err)
	}
	if err := json.Unmarshal([]byte(`"0x2a"`), &out); err == nil {
		t.Fatal("short commitment accepted")
	}
}

func TestCommitmentBuilderFraming(t *testing.T) {
	// Moving a byte across a field boundary must change the digest.
	a := newCommitmentBuilder("t").field("x", []byte{1, 2}).field("y", []byte{3}).finalize()
	b := newCommitmentBuilder("t").field("x", []byte{1}).field("y", []byte{2, 3}).finalize()
	if a == b {
		t.Fatal("field framing does not separate fields")
	}
	none := newCommitmentBuilder("t").array("opt").finalize()
	empty := newCommitmentBuilder("t").array("opt", []byte{}).finalize()
	if none == empty {
		t.Fatal("absent and empty optional values collide")
	}
}

func TestCommitChainsPreviousState(t *testing.T) {
	l := newTestLedger(GenesisBalances())
	empty := func() *Ledger { return newTestLedger(GenesisBalances()) }

	p1 := executeBlock(t, l, buildBlock(t, 1, []byte("noop")))
	if p1.OldState != empty().Commit() {
		t.Error("first proof does not start from genesis")
	}
	if p1.NewState == p1.OldState {
		t.Error("executing a block did not advance the commitment")
	}
	p2 := executeBlock(t, l, buildBlock(t, 2, []byte("noop")))
	if p2.OldState != p1.NewState {
		t.Error("consecutive block proofs do not chain")
	}
}
