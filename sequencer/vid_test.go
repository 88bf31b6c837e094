package sequencer

import (
	"bytes"
	"errors"
	"testing"
)

func mustBuild(t *testing.T, height uint64, txs []Transaction) *Block {
	t.Helper()
	b, err := BuildBlock(height, 1000+height, txs)
	if err != nil {
		t.Fatalf("BuildBlock: %v", err)
	}
	return b
}

func TestBuildBlockProofsVerify(t *testing.T) {
	txs := []Transaction{
		{Namespace: 2, Payload: []byte("b-1")},
		{Namespace: 1, Payload: []byte("a-1")},
		{Namespace: 2, Payload: []byte("b-2")},
	}
	b := mustBuild(t, 5, txs)

	if len(b.Header.NsTable) != 2 {
		t.Fatalf("ns table: got %d entries, want 2", len(b.Header.NsTable))
	}
	if b.Header.NsTable[0].Namespace != 1 || b.Header.NsTable[1].Namespace != 2 {
		t.Fatalf("ns table not sorted: %+v", b.Header.NsTable)
	}
	if b.Header.PayloadCommitment != b.Common.Commit() {
		t.Fatal("header payload commitment does not match VID common")
	}

	for _, ns := range []NamespaceID{1, 2} {
		p := b.NamespaceProof(ns)
		if p == nil {
			t.Fatalf("missing proof for namespace %d", ns)
		}
		if err := p.Verify(b.Header.NsTable, b.Header.PayloadCommitment, &b.Common); err != nil {
			t.Fatalf("Verify namespace %d: %v", ns, err)
		}
	}

	got, err := b.NamespaceProof(2).Transactions()
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(got) != 2 || !bytes.Equal(got[0].Payload, []byte("b-1")) || !bytes.Equal(got[1].Payload, []byte("b-2")) {
		t.Fatalf("namespace 2 transactions out of order: %+v", got)
	}
	if got[0].Namespace != 2 {
		t.Fatalf("namespace tag: got %d, want 2", got[0].Namespace)
	}
	if b.NamespaceProof(3) != nil {
		t.Fatal("proof returned for absent namespace")
	}
}

func TestBuildBlockHashDistinctForEmptyBlocks(t *testing.T) {
	a := mustBuild(t, 1, nil)
	b := mustBuild(t, 2, nil)
	if a.Payload.BlockHash == b.Payload.BlockHash {
		t.Fatal("empty blocks at different heights share a block hash")
	}
	if a.Header.Commit() == b.Header.Commit() {
		t.Fatal("headers at different heights share a commitment")
	}
}

func TestNsProofVerifyRejectsTampering(t *testing.T) {
	b := mustBuild(t, 9, []Transaction{
		{Namespace: 1, Payload: []byte("transfer")},
		{Namespace: 4, Payload: []byte("other rollup")},
	})

	tests := []struct {
		name   string
		mutate func(p *NsProof, table NsTable, vid *VidCommon) (NsTable, *VidCommon)
		want   error
	}{
		{
			name: "payload swapped",
			mutate: func(p *NsProof, table NsTable, vid *VidCommon) (NsTable, *VidCommon) {
				p.NsPayload = append([]byte(nil), p.NsPayload...)
				p.NsPayload[len(p.NsPayload)-1] ^= 0xff
				return table, vid
			},
			want: ErrKZGProof,
		},
		{
			name: "wrong namespace claimed",
			mutate: func(p *NsProof, table NsTable, vid *VidCommon) (NsTable, *VidCommon) {
				p.Namespace = 4
				return table, vid
			},
			want: ErrNamespaceMismatch,
		},
		{
			name: "index out of range",
			mutate: func(p *NsProof, table NsTable, vid *VidCommon) (NsTable, *VidCommon) {
				p.NsIndex = 7
				return table, vid
			},
			want: ErrNamespaceIndex,
		},
		{
			name: "vid commitment swapped",
			mutate: func(p *NsProof, table NsTable, vid *VidCommon) (NsTable, *VidCommon) {
				cp := *vid
				cp.NsCommitments = []KZGBytes{vid.NsCommitments[1], vid.NsCommitments[0]}
				return table, &cp
			},
			want: ErrPayloadCommitment,
		},
		{
			name: "missing vid",
			mutate: func(p *NsProof, table NsTable, vid *VidCommon) (NsTable, *VidCommon) {
				return table, nil
			},
			want: ErrMissingVidCommon,
		},
		{
			name: "payload truncated",
			mutate: func(p *NsProof, table NsTable, vid *VidCommon) (NsTable, *VidCommon) {
				p.NsPayload = p.NsPayload[:len(p.NsPayload)-1]
				return table, vid
			},
			want: ErrNamespacePayloadLen,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := b.NamespaceProof(1)
			table := append(NsTable(nil), b.Header.NsTable...)
			vid := b.Common
			table, vidPtr := tt.mutate(p, table, &vid)
			err := p.Verify(table, b.Header.PayloadCommitment, vidPtr)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Verify: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNsProofVerifyRejectsDuplicateNamespace(t *testing.T) {
	b := mustBuild(t, 3, []Transaction{{Namespace: 1, Payload: []byte("x")}})
	p := b.NamespaceProof(1)

	comm, _, err := CommitNamespace(nil)
	if err != nil {
		t.Fatalf("CommitNamespace: %v", err)
	}
	table := append(NsTable(nil), b.Header.NsTable...)
	table = append(table, NsTableEntry{Namespace: 1, PayloadLen: 0})
	vid := VidCommon{
		PayloadByteLen: b.Common.PayloadByteLen,
		NsCommitments:  append(append([]KZGBytes(nil), b.Common.NsCommitments...), comm),
	}
	if err := p.Verify(table, vid.Commit(), &vid); !errors.Is(err, ErrDuplicateNamespace) {
		t.Fatalf("Verify: got %v, want ErrDuplicateNamespace", err)
	}
}

func TestPayloadToBlobCapacity(t *testing.T) {
	if _, err := payloadToBlob(make([]byte, MaxNamespacePayload)); err != nil {
		t.Fatalf("full payload rejected: %v", err)
	}
	if _, err := payloadToBlob(make([]byte, MaxNamespacePayload+1)); !errors.Is(err, ErrNamespacePayloadSize) {
		t.Fatalf("oversized payload: got %v, want ErrNamespacePayloadSize", err)
	}

	blob, err := payloadToBlob(bytes.Repeat([]byte{0xff}, 40))
	if err != nil {
		t.Fatalf("payloadToBlob: %v", err)
	}
	if blob[0] != 0 || blob[32] != 0 {
		t.Fatal("field element high bytes must stay zero")
	}
	if blob[1] != 0xff || blob[31] != 0xff || blob[33] != 0xff {
		t.Fatal("payload bytes not packed 31 per element")
	}
}
