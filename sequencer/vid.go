package sequencer

import (
	"errors"
	"fmt"
	"sync"

	goethkzg "github.com/crate-crypto/go-eth-kzg"
	"github.com/ethereum/go-ethereum/common"
)

const (
	bytesPerFieldElement  = 32
	usableBytesPerElement = 31
	fieldElementsPerBlob  = 4096

	// MaxNamespacePayload is the largest namespace payload that fits in one
	// blob. The leading byte of every field element stays zero so each
	// element is a canonical BLS12-381 scalar.
	MaxNamespacePayload = fieldElementsPerBlob * usableBytesPerElement
)

// Namespace inclusion errors.
var (
	ErrMissingVidCommon     = errors.New("sequencer: missing VID common data")
	ErrPayloadCommitment    = errors.New("sequencer: VID common does not match header payload commitment")
	ErrVidShape             = errors.New("sequencer: VID common does not match namespace table")
	ErrNamespaceIndex       = errors.New("sequencer: namespace index out of range")
	ErrNamespaceMismatch    = errors.New("sequencer: namespace does not match table entry")
	ErrDuplicateNamespace   = errors.New("sequencer: namespace appears more than once in table")
	ErrNamespacePayloadLen  = errors.New("sequencer: namespace payload length does not match table entry")
	ErrNamespacePayloadSize = errors.New("sequencer: namespace payload exceeds blob capacity")
	ErrKZGProof             = errors.New("sequencer: KZG opening proof rejected")
)

var (
	kzgOnce sync.Once
	kzgCtx  *goethkzg.Context
	kzgErr  error
)

// kzgContext lazily loads the Ethereum ceremony setup. Loading takes a few
// seconds and happens once per process.
func kzgContext() (*goethkzg.Context, error) {
	kzgOnce.Do(func() {
		kzgCtx, kzgErr = goethkzg.NewContext4096Secure()
		if kzgErr != nil {
			kzgErr = fmt.Errorf("sequencer: initialize KZG context: %w", kzgErr)
		}
	})
	return kzgCtx, kzgErr
}

// payloadToBlob packs payload into a blob, 31 bytes per field element.
func payloadToBlob(payload []byte) (*goethkzg.Blob, error) {
	if len(payload) > MaxNamespacePayload {
		return nil, ErrNamespacePayloadSize
	}
	blob := new(goethkzg.Blob)
	for i := 0; len(payload) > 0; i++ {
		start := i*bytesPerFieldElement + 1
		n := copy(blob[start:start+usableBytesPerElement], payload)
		payload = payload[n:]
	}
	return blob, nil
}

// CommitNamespace computes the KZG commitment of a namespace payload and the
// blob opening proof that accompanies it in an NsProof.
func CommitNamespace(payload []byte) (commitment, proof KZGBytes, err error) {
	blob, err := payloadToBlob(payload)
	if err != nil {
		return commitment, proof, err
	}
	ctx, err := kzgContext()
	if err != nil {
		return commitment, proof, err
	}
	comm, err := ctx.BlobToKZGCommitment(blob, 0)
	if err != nil {
		return commitment, proof, fmt.Errorf("sequencer: commit namespace payload: %w", err)
	}
	p, err := ctx.ComputeBlobKZGProof(blob, comm, 0)
	if err != nil {
		return commitment, proof, fmt.Errorf("sequencer: prove namespace payload: %w", err)
	}
	return KZGBytes(comm), KZGBytes(p), nil
}

// Verify checks that the proof's payload is exactly the content of its
// namespace in the block described by nsTable and payloadCommitment. The VID
// common data must hash to payloadCommitment, agree with the table, and carry
// a KZG commitment the payload opens against.
func (p *NsProof) Verify(nsTable NsTable, payloadCommitment common.Hash, vid *VidCommon) error {
	if vid == nil {
		return ErrMissingVidCommon
	}
	if vid.Commit() != payloadCommitment {
		return ErrPayloadCommitment
	}
	if len(vid.NsCommitments) != len(nsTable) || vid.PayloadByteLen != nsTable.PayloadLen() {
		return ErrVidShape
	}
	idx := int(p.NsIndex)
	if idx >= len(nsTable) {
		return fmt.Errorf("%w: %d >= %d", ErrNamespaceIndex, idx, len(nsTable))
	}
	entry := nsTable[idx]
	if entry.Namespace != p.Namespace {
		return fmt.Errorf("%w: table has %s, proof claims %s", ErrNamespaceMismatch, entry.Namespace, p.Namespace)
	}
	// A second entry for the namespace could hide transactions from a
	// verifier that only sees the first.
	if first, _ := nsTable.Lookup(p.Namespace); first != idx {
		return ErrDuplicateNamespace
	}
	for i := idx + 1; i < len(nsTable); i++ {
		if nsTable[i].Namespace == p.Namespace {
			return ErrDuplicateNamespace
		}
	}
	if uint64(len(p.NsPayload)) != entry.PayloadLen {
		return fmt.Errorf("%w: got %d, want %d", ErrNamespacePayloadLen, len(p.NsPayload), entry.PayloadLen)
	}

	blob, err := payloadToBlob(p.NsPayload)
	if err != nil {
		return err
	}
	ctx, err := kzgContext()
	if err != nil {
		return err
	}
	comm := goethkzg.KZGCommitment(vid.NsCommitments[idx])
	if err := ctx.VerifyBlobKZGProof(blob, comm, goethkzg.KZGProof(p.Proof)); err != nil {
		return fmt.Errorf("%w: %v", ErrKZGProof, err)
	}
	return nil
}

// Transactions decodes the namespace payload into its transactions. The
// payload must already have been verified.
func (p *NsProof) Transactions() ([]Transaction, error) {
	raw, err := DecodeNamespacePayload(p.NsPayload)
	if err != nil {
		return nil, err
	}
	txs := make([]Transaction, len(raw))
	for i, payload := range raw {
		txs[i] = Transaction{Namespace: p.Namespace, Payload: payload}
	}
	return txs, nil
}
