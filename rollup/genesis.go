package rollup

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/example-l2/crypto"
	"github.com/eth2030/example-l2/sequencer"
)

// InitialBalance is the genesis balance of every seed identity.
const InitialBalance Amount = 9999

// SeedIdentity names a demo account whose key is derived from a fixed seed.
type SeedIdentity uint64

// Demo identities present at genesis.
const (
	Bob SeedIdentity = iota
	Alice
	Charlie
)

// SeedIdentities lists every genesis identity.
var SeedIdentities = []SeedIdentity{Bob, Alice, Charlie}

// Key returns the identity's private key. These keys are public and exist
// only for demos and tests.
func (id SeedIdentity) Key() *ecdsa.PrivateKey {
	return crypto.DeterministicKey(uint64(id))
}

// Address returns the identity's account address.
func (id SeedIdentity) Address() common.Address {
	return crypto.PubkeyToAddress(id.Key().PublicKey)
}

// String implements fmt.Stringer.
func (id SeedIdentity) String() string {
	switch id {
	case Bob:
		return "Bob"
	case Alice:
		return "Alice"
	case Charlie:
		return "Charlie"
	}
	return fmt.Sprintf("SeedIdentity(%d)", uint64(id))
}

// ParseSeedIdentity looks an identity up by name.
func ParseSeedIdentity(name string) (SeedIdentity, bool) {
	for _, id := range SeedIdentities {
		if id.String() == name {
			return id, true
		}
	}
	return 0, false
}

// GenesisBalances returns the initial ledger balances: InitialBalance for
// each seed identity.
func GenesisBalances() map[common.Address]Amount {
	out := make(map[common.Address]Amount, len(SeedIdentities))
	for _, id := range SeedIdentities {
		out[id.Address()] = InitialBalance
	}
	return out
}

// NewGenesisLedger creates the genesis ledger for namespace.
func NewGenesisLedger(namespace sequencer.NamespaceID) *Ledger {
	return NewLedger(namespace, GenesisBalances())
}
