package rollup

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eth2030/example-l2/crypto"
)

// Transaction is an unsigned transfer of Amount to Destination. Nonce must
// be exactly one past the sender's current nonce.
type Transaction struct {
	Amount      Amount         `json:"amount"`
	Destination common.Address `json:"destination"`
	Nonce       Nonce          `json:"nonce"`
}

// SigningPayload returns the canonical RLP encoding of the transaction,
// [amount, destination, nonce]. This is the message the sender signs.
func (tx *Transaction) SigningPayload() []byte {
	enc, err := rlp.EncodeToBytes(tx)
	if err != nil {
		panic(fmt.Sprintf("rollup: transaction encoding failed: %v", err))
	}
	return enc
}

// SigningHash returns the EIP-191 digest of SigningPayload.
func (tx *Transaction) SigningHash() common.Hash {
	return crypto.MessageHash(tx.SigningPayload())
}

// SignedTransaction is a Transaction plus the sender's signature over its
// signing payload. The sender is not carried; it is recovered from the
// signature.
type SignedTransaction struct {
	Transaction Transaction   `json:"transaction"`
	Signature   hexutil.Bytes `json:"signature"`
}

// SignTransaction signs tx with key.
func SignTransaction(tx Transaction, key *ecdsa.PrivateKey) (*SignedTransaction, error) {
	sig, err := crypto.SignMessage(tx.SigningPayload(), key)
	if err != nil {
		return nil, err
	}
	return &SignedTransaction{Transaction: tx, Signature: sig}, nil
}

// Recover returns the address that signed the transaction. A nil cache
// recovers directly. Any failure is reported as ErrSignature.
func (stx *SignedTransaction) Recover(cache *crypto.SignerCache) (common.Address, error) {
	addr, err := cache.Recover(stx.Transaction.SigningHash(), stx.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return addr, nil
}

// Encode returns the JSON wire form submitted through the sequencer.
func (stx *SignedTransaction) Encode() ([]byte, error) {
	return json.Marshal(stx)
}

// Hash identifies the transaction in logs.
func (stx *SignedTransaction) Hash() common.Hash {
	return crypto.Keccak256Hash(stx.Transaction.SigningPayload(), stx.Signature)
}

// DecodeTransaction parses the JSON wire form. Unknown fields, missing
// signatures and trailing data are rejected.
func DecodeTransaction(data []byte) (*SignedTransaction, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var stx SignedTransaction
	if err := dec.Decode(&stx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidTransaction)
	}
	if len(stx.Signature) == 0 {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidTransaction)
	}
	return &stx, nil
}
