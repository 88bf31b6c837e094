package store

import "encoding/binary"

// Key layout. Block numbers are big-endian so LevelDB's key order is block
// order.
var (
	snapshotPrefix   = []byte("s") // s + num (8 bytes BE) -> ledger snapshot RLP
	commitmentPrefix = []byte("c") // c + num (8 bytes BE) -> state commitment
	headKey          = []byte("LastSnapshot")
)

func encodeBlockNumber(number uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, number)
}

func decodeBlockNumber(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}

// snapshotKey = snapshotPrefix + num
func snapshotKey(number uint64) []byte {
	return append(append([]byte{}, snapshotPrefix...), encodeBlockNumber(number)...)
}

// commitmentKey = commitmentPrefix + num
func commitmentKey(number uint64) []byte {
	return append(append([]byte{}, commitmentPrefix...), encodeBlockNumber(number)...)
}
