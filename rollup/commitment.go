package rollup

import (
	"encoding/binary"
	"hash"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/eth2030/example-l2/crypto"
)

// CommitmentLength is the byte size of a state commitment.
const CommitmentLength = 32

// Commitment is the 32-byte digest of a ledger state. The settlement
// contract stores it as a uint256.
type Commitment [CommitmentLength]byte

// BytesToCommitment converts b to a Commitment, left-padding or keeping the
// trailing 32 bytes like common.BytesToHash.
func BytesToCommitment(b []byte) Commitment {
	return Commitment(common.BytesToHash(b))
}

// CommitmentFromUint256 converts a contract word to a Commitment.
func CommitmentFromUint256(v *uint256.Int) Commitment {
	return v.Bytes32()
}

// CommitmentFromBig converts a contract word decoded as *big.Int.
func CommitmentFromBig(v *big.Int) Commitment {
	var c Commitment
	v.FillBytes(c[:])
	return c
}

// Bytes returns a copy of the commitment bytes.
func (c Commitment) Bytes() []byte { return append([]byte(nil), c[:]...) }

// Hex returns the 0x-prefixed hex encoding.
func (c Commitment) Hex() string { return hexutil.Encode(c[:]) }

// String implements fmt.Stringer.
func (c Commitment) String() string { return c.Hex() }

// Uint256 returns the commitment as a big-endian 256-bit word.
func (c Commitment) Uint256() *uint256.Int {
	return new(uint256.Int).SetBytes32(c[:])
}

// Big returns the commitment as a *big.Int, the form abi bindings expect.
func (c Commitment) Big() *big.Int {
	return new(big.Int).SetBytes(c[:])
}

// MarshalText implements encoding.TextMarshaler.
func (c Commitment) MarshalText() ([]byte, error) {
	return hexutil.Bytes(c[:]).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Commitment) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Commitment", input, c[:])
}

// commitmentBuilder hashes a tagged sequence of named, length-framed fields.
// Framing every field keeps distinct field sequences from colliding even
// when their concatenated bytes agree.
type commitmentBuilder struct {
	h hash.Hash
}

func newCommitmentBuilder(tag string) *commitmentBuilder {
	b := &commitmentBuilder{h: crypto.NewKeccakState()}
	b.frame([]byte(tag))
	return b
}

func (b *commitmentBuilder) frame(data []byte) {
	b.h.Write(binary.BigEndian.AppendUint64(nil, uint64(len(data))))
	b.h.Write(data)
}

// field writes a named variable-length field.
func (b *commitmentBuilder) field(name string, data []byte) *commitmentBuilder {
	b.frame([]byte(name))
	b.frame(data)
	return b
}

// u64 writes a named integer field.
func (b *commitmentBuilder) u64(name string, v uint64) *commitmentBuilder {
	return b.field(name, binary.BigEndian.AppendUint64(nil, v))
}

// array writes a named array field: the element count followed by each
// element. Optional values are arrays of length zero or one.
func (b *commitmentBuilder) array(name string, elems ...[]byte) *commitmentBuilder {
	b.frame([]byte(name))
	b.h.Write(binary.BigEndian.AppendUint64(nil, uint64(len(elems))))
	for _, e := range elems {
		b.frame(e)
	}
	return b
}

func (b *commitmentBuilder) finalize() Commitment {
	var c Commitment
	b.h.Sum(c[:0])
	return c
}
