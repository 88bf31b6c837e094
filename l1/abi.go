// Package l1 binds the settlement-layer contracts the executor talks to: the
// example rollup contract that verifies batch proofs, the HotShot contract
// that records sequenced block commitments, and the light client whose state
// updates announce newly sequenced blocks.
package l1

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// RollupABIJSON is the ABI of the example rollup contract.
const RollupABIJSON = `[
{"type":"constructor","stateMutability":"nonpayable","inputs":[
	{"name":"lightClientAddress","type":"address","internalType":"address"},
	{"name":"initialState","type":"uint256","internalType":"uint256"}]},
{"type":"function","name":"lightClient","stateMutability":"view","inputs":[],
	"outputs":[{"name":"","type":"address","internalType":"contract LightClient"}]},
{"type":"function","name":"numVerifiedBlocks","stateMutability":"view","inputs":[],
	"outputs":[{"name":"","type":"uint256","internalType":"uint256"}]},
{"type":"function","name":"stateCommitment","stateMutability":"view","inputs":[],
	"outputs":[{"name":"","type":"uint256","internalType":"uint256"}]},
{"type":"function","name":"verifyBlocks","stateMutability":"nonpayable","outputs":[],"inputs":[
	{"name":"count","type":"uint64","internalType":"uint64"},
	{"name":"nextStateCommitment","type":"uint256","internalType":"uint256"},
	{"name":"proof","type":"tuple","internalType":"struct ExampleRollup.BatchProof","components":[
		{"name":"firstBlock","type":"uint256","internalType":"uint256"},
		{"name":"lastBlock","type":"uint256","internalType":"uint256"},
		{"name":"oldState","type":"uint256","internalType":"uint256"},
		{"name":"newState","type":"uint256","internalType":"uint256"}]}]},
{"type":"event","name":"StateUpdate","anonymous":false,"inputs":[
	{"name":"blockHeight","type":"uint256","indexed":false,"internalType":"uint256"},
	{"name":"stateCommitment","type":"uint256","indexed":false,"internalType":"uint256"}]},
{"type":"error","name":"InvalidProof","inputs":[
	{"name":"firstBlock","type":"uint256","internalType":"uint256"},
	{"name":"lastBlock","type":"uint256","internalType":"uint256"},
	{"name":"oldState","type":"uint256","internalType":"uint256"},
	{"name":"newState","type":"uint256","internalType":"uint256"},
	{"name":"proof","type":"tuple","internalType":"struct ExampleRollup.BatchProof","components":[
		{"name":"firstBlock","type":"uint256","internalType":"uint256"},
		{"name":"lastBlock","type":"uint256","internalType":"uint256"},
		{"name":"oldState","type":"uint256","internalType":"uint256"},
		{"name":"newState","type":"uint256","internalType":"uint256"}]}]},
{"type":"error","name":"NoBlocks","inputs":[]},
{"type":"error","name":"NotYetSequenced","inputs":[
	{"name":"numVerifiedBlocks","type":"uint256","internalType":"uint256"},
	{"name":"count","type":"uint64","internalType":"uint64"},
	{"name":"blockHeight","type":"uint256","internalType":"uint256"}]}
]`

// HotShotABIJSON is the subset of the HotShot contract ABI the executor uses.
const HotShotABIJSON = `[
{"type":"function","name":"commitments","stateMutability":"view","inputs":[
	{"name":"blockHeight","type":"uint256","internalType":"uint256"}],
	"outputs":[{"name":"commitment","type":"uint256","internalType":"uint256"}]},
{"type":"function","name":"blockHeight","stateMutability":"view","inputs":[],
	"outputs":[{"name":"","type":"uint256","internalType":"uint256"}]},
{"type":"event","name":"NewBlocks","anonymous":false,"inputs":[
	{"name":"firstBlockNumber","type":"uint256","indexed":false,"internalType":"uint256"},
	{"name":"numBlocks","type":"uint256","indexed":false,"internalType":"uint256"}]}
]`

// LightClientABIJSON is the subset of the light client ABI the executor uses.
const LightClientABIJSON = `[
{"type":"event","name":"NewState","anonymous":false,"inputs":[
	{"name":"viewNum","type":"uint64","indexed":true,"internalType":"uint64"},
	{"name":"blockHeight","type":"uint64","indexed":true,"internalType":"uint64"},
	{"name":"blockCommRoot","type":"uint256","indexed":false,"internalType":"BN254.ScalarField"}]}
]`

var (
	rollupABI      = mustParseABI(RollupABIJSON)
	hotShotABI     = mustParseABI(HotShotABIJSON)
	lightClientABI = mustParseABI(LightClientABIJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("l1: invalid contract ABI: " + err.Error())
	}
	return parsed
}

// RollupABI returns the parsed rollup contract ABI.
func RollupABI() abi.ABI { return rollupABI }
