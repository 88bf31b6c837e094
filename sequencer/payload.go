package sequencer

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// ErrNamespacePayload is returned for namespace payloads that are not a
// list of transaction byte strings.
var ErrNamespacePayload = errors.New("sequencer: malformed namespace payload")

// EncodeNamespacePayload serializes the transaction payloads of one
// namespace as an RLP list of byte strings.
func EncodeNamespacePayload(txs [][]byte) ([]byte, error) {
	if txs == nil {
		txs = [][]byte{}
	}
	enc, err := rlp.EncodeToBytes(txs)
	if err != nil {
		return nil, fmt.Errorf("sequencer: encode namespace payload: %w", err)
	}
	return enc, nil
}

// DecodeNamespacePayload is the inverse of EncodeNamespacePayload. An empty
// payload decodes to no transactions.
func DecodeNamespacePayload(payload []byte) ([][]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var txs [][]byte
	if err := rlp.DecodeBytes(payload, &txs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNamespacePayload, err)
	}
	return txs, nil
}
