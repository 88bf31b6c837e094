// Package crypto holds the hashing and secp256k1 signature helpers used by
// the rollup: Keccak digests, EIP-191 personal-message signing, signer
// recovery with malleability checks, and a recovery cache.
package crypto

import (
	"hash"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Keccak256 calculates the Keccak-256 hash of the given data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates Keccak-256 and returns it as a common.Hash.
func Keccak256Hash(data ...[]byte) common.Hash {
	return common.BytesToHash(Keccak256(data...))
}

// NewKeccakState returns a streaming Keccak-256 hasher.
func NewKeccakState() hash.Hash {
	return sha3.NewLegacyKeccak256()
}
