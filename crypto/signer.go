package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of an [R || S || V] signature.
const SignatureLength = 65

// Signature recovery errors.
var (
	ErrSignatureLength = errors.New("crypto: signature must be 65 bytes")
	ErrInvalidV        = errors.New("crypto: invalid recovery id")
	ErrMalleable       = errors.New("crypto: signature values out of range or malleable")
	ErrRecoverFailed   = errors.New("crypto: public key recovery failed")
)

// MessageHash returns the EIP-191 personal-message digest of msg, i.e.
// keccak256("\x19Ethereum Signed Message:\n" || len(msg) || msg).
func MessageHash(msg []byte) common.Hash {
	return common.BytesToHash(accounts.TextHash(msg))
}

// SignMessage signs the EIP-191 digest of msg. The recovery id is encoded as
// 27 or 28 in the last byte, matching what wallet tooling produces.
func SignMessage(msg []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := gethcrypto.Sign(MessageHash(msg).Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("crypto: sign: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// RecoverMessageSigner recovers the address that produced sig over the
// EIP-191 digest of msg.
func RecoverMessageSigner(msg, sig []byte) (common.Address, error) {
	return RecoverSigner(MessageHash(msg), sig)
}

// RecoverSigner recovers the signer address from a 32-byte digest and a
// 65-byte signature. V may be 0/1 or 27/28. High-S signatures are rejected so
// that a transaction has exactly one valid encoding.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, ErrSignatureLength
	}
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, ErrInvalidV
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !gethcrypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, ErrMalleable
	}

	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	normalized[64] = v

	pub, err := gethcrypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrRecoverFailed, err)
	}
	return gethcrypto.PubkeyToAddress(*pub), nil
}

// PubkeyToAddress derives the Ethereum address of a public key.
func PubkeyToAddress(p ecdsa.PublicKey) common.Address {
	return gethcrypto.PubkeyToAddress(p)
}

// GenerateKey creates a fresh secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return gethcrypto.GenerateKey()
}

// HexToECDSA parses a hex-encoded secp256k1 private key, with or without the
// 0x prefix.
func HexToECDSA(s string) (*ecdsa.PrivateKey, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return gethcrypto.HexToECDSA(s)
}
