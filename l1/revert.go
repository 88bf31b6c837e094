package l1

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Names of the rollup contract's custom errors.
const (
	RevertInvalidProof    = "InvalidProof"
	RevertNoBlocks        = "NoBlocks"
	RevertNotYetSequenced = "NotYetSequenced"
	// RevertReason marks a plain Error(string) or Panic(uint256) revert.
	RevertReason = "Error"
)

// RevertError is a decoded contract revert. Name is one of the Revert*
// constants, or empty when the revert data matched nothing known.
type RevertError struct {
	Name   string
	Reason string
	Args   map[string]interface{}
	Data   []byte
}

func (e *RevertError) Error() string {
	switch {
	case e.Name == RevertReason:
		return fmt.Sprintf("l1: execution reverted: %s", e.Reason)
	case e.Name == "":
		return fmt.Sprintf("l1: execution reverted with unknown data %s", hexutil.Encode(e.Data))
	case len(e.Args) == 0:
		return fmt.Sprintf("l1: execution reverted: %s()", e.Name)
	}
	keys := make([]string, 0, len(e.Args))
	for k := range e.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, e.Args[k])
	}
	return fmt.Sprintf("l1: execution reverted: %s(%s)", e.Name, b.String())
}

// NotYetSequenced returns the fields of a NotYetSequenced revert.
func (e *RevertError) NotYetSequenced() (numVerified *big.Int, count uint64, blockHeight *big.Int, ok bool) {
	if e.Name != RevertNotYetSequenced {
		return nil, 0, nil, false
	}
	numVerified, ok1 := e.Args["numVerifiedBlocks"].(*big.Int)
	count, ok2 := e.Args["count"].(uint64)
	blockHeight, ok3 := e.Args["blockHeight"].(*big.Int)
	return numVerified, count, blockHeight, ok1 && ok2 && ok3
}

// DecodeRevert decodes revert data returned by the rollup contract.
func DecodeRevert(data []byte) *RevertError {
	e := &RevertError{Data: data}
	if len(data) < 4 {
		return e
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		e.Name, e.Reason = RevertReason, reason
		return e
	}
	for name, abiErr := range rollupABI.Errors {
		if !bytes.Equal(data[:4], abiErr.ID[:4]) {
			continue
		}
		args := make(map[string]interface{})
		if err := abiErr.Inputs.UnpackIntoMap(args, data[4:]); err != nil {
			return e
		}
		e.Name, e.Args = name, args
		return e
	}
	return e
}

// dataError is implemented by JSON-RPC errors that carry revert data.
type dataError interface {
	error
	ErrorData() interface{}
}

// revertFromError extracts and decodes revert data carried by an RPC error.
func revertFromError(err error) (*RevertError, bool) {
	var de dataError
	if !errors.As(err, &de) {
		return nil, false
	}
	var data []byte
	switch v := de.ErrorData().(type) {
	case string:
		b, decErr := hexutil.Decode(v)
		if decErr != nil {
			return nil, false
		}
		data = b
	case []byte:
		data = v
	default:
		return nil, false
	}
	return DecodeRevert(data), true
}
