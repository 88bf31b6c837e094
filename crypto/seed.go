package crypto

import (
	"crypto/ecdsa"
	"encoding/binary"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// seedDomain separates seed-derived keys from any other use of the digest.
var seedDomain = []byte("example-l2/seed-key")

// DeterministicKey derives a secp256k1 private key from a small integer
// seed. The same seed always yields the same key, which lets demo
// identities be reproduced on every node without distributing key files.
// These keys are public knowledge and must never hold real funds.
func DeterministicKey(seed uint64) *ecdsa.PrivateKey {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seed)
	d := Keccak256(seedDomain, buf[:])
	for {
		// ToECDSA rejects zero and values >= N; rehash in that case.
		if key, err := gethcrypto.ToECDSA(d); err == nil {
			return key
		}
		d = Keccak256(d)
	}
}
