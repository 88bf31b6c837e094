package sequencer

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/example-l2/crypto"
)

// Block is a fully assembled sequenced block: the header, the VID common data
// its payload commitment is derived from, and the namespace proofs a query
// service would hand out for it.
type Block struct {
	Header  Header
	Common  VidCommon
	Payload PayloadData

	proofs map[NamespaceID]*NsProof
}

// NamespaceProof returns the inclusion proof for ns, or nil if the block has
// no entry for it.
func (b *Block) NamespaceProof(ns NamespaceID) *NsProof {
	p, ok := b.proofs[ns]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// BuildBlock groups txs by namespace (ascending namespace order, submission
// order within a namespace), commits every namespace payload with KZG and
// returns the resulting block. The block hash covers the height and every
// namespace payload, so empty blocks at different heights stay distinct.
func BuildBlock(height, timestamp uint64, txs []Transaction) (*Block, error) {
	grouped := make(map[NamespaceID][][]byte)
	for _, tx := range txs {
		grouped[tx.Namespace] = append(grouped[tx.Namespace], tx.Payload)
	}
	namespaces := make([]NamespaceID, 0, len(grouped))
	for ns := range grouped {
		namespaces = append(namespaces, ns)
	}
	sort.Slice(namespaces, func(i, j int) bool { return namespaces[i] < namespaces[j] })

	b := &Block{
		Header: Header{Height: height, Timestamp: timestamp},
		proofs: make(map[NamespaceID]*NsProof, len(namespaces)),
	}
	hasher := crypto.NewKeccakState()
	hasher.Write(binary.BigEndian.AppendUint64(nil, height))
	for i, ns := range namespaces {
		payload, err := EncodeNamespacePayload(grouped[ns])
		if err != nil {
			return nil, err
		}
		comm, proof, err := CommitNamespace(payload)
		if err != nil {
			return nil, fmt.Errorf("sequencer: block %d namespace %s: %w", height, ns, err)
		}
		b.Header.NsTable = append(b.Header.NsTable, NsTableEntry{Namespace: ns, PayloadLen: uint64(len(payload))})
		b.Common.NsCommitments = append(b.Common.NsCommitments, comm)
		b.Common.PayloadByteLen += uint64(len(payload))
		b.proofs[ns] = &NsProof{
			NsIndex:   uint32(i),
			Namespace: ns,
			NsPayload: payload,
			Proof:     proof,
		}
		hasher.Write(payload)
	}
	b.Header.PayloadCommitment = b.Common.Commit()
	b.Payload = PayloadData{
		Height:    height,
		BlockHash: common.BytesToHash(hasher.Sum(nil)),
		Size:      b.Common.PayloadByteLen,
	}
	return b, nil
}
