// Package sequencer models the data served by the shared sequencer's query
// service: block headers with their namespace tables, the VID common data a
// payload commitment is computed from, and per-namespace inclusion proofs.
// It also provides the HTTP/WebSocket client the executor uses to reach the
// service and a builder that assembles blocks in the same format.
package sequencer

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eth2030/example-l2/crypto"
)

// NamespaceID identifies one rollup's sub-stream within a sequenced block.
type NamespaceID uint64

// String implements fmt.Stringer.
func (n NamespaceID) String() string { return fmt.Sprintf("%d", uint64(n)) }

// Transaction is an opaque payload tagged with the namespace it belongs to.
type Transaction struct {
	Namespace NamespaceID   `json:"namespace"`
	Payload   hexutil.Bytes `json:"payload"`
}

// NsTableEntry describes one namespace's slice of a block payload.
type NsTableEntry struct {
	Namespace  NamespaceID `json:"namespace"`
	PayloadLen uint64      `json:"payload_len"`
}

// NsTable is the ordered namespace table carried in a header.
type NsTable []NsTableEntry

// Lookup returns the index of ns in the table.
func (t NsTable) Lookup(ns NamespaceID) (int, bool) {
	for i, e := range t {
		if e.Namespace == ns {
			return i, true
		}
	}
	return 0, false
}

// PayloadLen returns the summed length of every namespace payload.
func (t NsTable) PayloadLen() uint64 {
	var n uint64
	for _, e := range t {
		n += e.PayloadLen
	}
	return n
}

// Header is a sequenced block header.
type Header struct {
	Height            uint64      `json:"height"`
	Timestamp         uint64      `json:"timestamp"`
	L1Head            uint64      `json:"l1_head"`
	NsTable           NsTable     `json:"ns_table"`
	PayloadCommitment common.Hash `json:"payload_commitment"`
}

// Commit returns the header commitment, keccak256 over the RLP encoding of
// every header field. This is the value the sequencer contract on L1 records
// for the block at Height.
func (h *Header) Commit() common.Hash {
	enc, err := rlp.EncodeToBytes(h)
	if err != nil {
		// Every field is an RLP-encodable fixed type.
		panic(fmt.Sprintf("sequencer: header encoding failed: %v", err))
	}
	return crypto.Keccak256Hash(enc)
}

// KZGBytes is a 48-byte compressed G1 point: a KZG commitment or proof.
type KZGBytes [48]byte

// MarshalText implements encoding.TextMarshaler.
func (b KZGBytes) MarshalText() ([]byte, error) {
	return hexutil.Bytes(b[:]).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *KZGBytes) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("KZGBytes", input, b[:])
}

// VidCommon is the availability-encoding metadata shared by every storage
// node of a block: the total payload length and one KZG commitment per
// namespace table entry.
type VidCommon struct {
	PayloadByteLen uint64     `json:"payload_byte_len"`
	NsCommitments  []KZGBytes `json:"ns_commitments"`
}

var vidDomain = []byte("example-l2/vid-common")

// Commit returns the payload commitment a header must carry for this VID
// data.
func (v *VidCommon) Commit() common.Hash {
	st := crypto.NewKeccakState()
	st.Write(vidDomain)
	st.Write(binary.BigEndian.AppendUint64(nil, v.PayloadByteLen))
	st.Write(binary.BigEndian.AppendUint64(nil, uint64(len(v.NsCommitments))))
	for _, c := range v.NsCommitments {
		st.Write(c[:])
	}
	return common.BytesToHash(st.Sum(nil))
}

// NsProof proves that NsPayload is exactly the content of namespace
// Namespace, found at table position NsIndex.
type NsProof struct {
	NsIndex   uint32        `json:"ns_index"`
	Namespace NamespaceID   `json:"namespace"`
	NsPayload hexutil.Bytes `json:"ns_payload"`
	Proof     KZGBytes      `json:"proof"`
}

// PayloadData is the payload summary served for a block height.
type PayloadData struct {
	Height    uint64      `json:"height"`
	BlockHash common.Hash `json:"block_hash"`
	Size      uint64      `json:"size"`
}

