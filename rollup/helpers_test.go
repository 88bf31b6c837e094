package rollup

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/example-l2/log"
	"github.com/eth2030/example-l2/sequencer"
)

const testNamespace sequencer.NamespaceID = 1

func newTestLedger(balances map[common.Address]Amount) *Ledger {
	l := NewLedger(testNamespace, balances)
	l.SetLogger(log.Discard())
	return l
}

func signedTransfer(t *testing.T, from SeedIdentity, to common.Address, amount Amount, nonce Nonce) *SignedTransaction {
	t.Helper()
	stx, err := SignTransaction(Transaction{Amount: amount, Destination: to, Nonce: nonce}, from.Key())
	if err != nil {
		t.Fatalf("SignTransaction: %v", err)
	}
	return stx
}

func encodeTx(t *testing.T, stx *SignedTransaction) []byte {
	t.Helper()
	enc, err := stx.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return enc
}

// buildBlock sequences payloads into the test namespace at height.
func buildBlock(t *testing.T, height uint64, payloads ...[]byte) *sequencer.Block {
	t.Helper()
	txs := make([]sequencer.Transaction, len(payloads))
	for i, p := range payloads {
		txs[i] = sequencer.Transaction{Namespace: testNamespace, Payload: p}
	}
	b, err := sequencer.BuildBlock(height, height*12, txs)
	if err != nil {
		t.Fatalf("BuildBlock: %v", err)
	}
	return b
}

func executeBlock(t *testing.T, l *Ledger, b *sequencer.Block) *SingleBlockProof {
	t.Helper()
	proof, err := l.ExecuteBlock(&b.Header, b.NamespaceProof(testNamespace), &b.Common, b.Payload.BlockHash)
	if err != nil {
		t.Fatalf("ExecuteBlock(%d): %v", b.Header.Height, err)
	}
	return proof
}
