package l1

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/eth2030/example-l2/log"
	"github.com/eth2030/example-l2/rollup"
)

// Settlement errors.
var (
	ErrTxFailed     = errors.New("l1: transaction mined but failed")
	ErrNoTransactor = errors.New("l1: contract bound without transaction signer")
	ErrCountRange   = errors.New("l1: value does not fit in uint64")
)

// Backend is the L1 client a contract binding needs: calls, transactions,
// log queries and receipt lookups. *ethclient.Client implements it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// BatchProofArg is the ABI form of rollup.BatchProof. The contract
// identifies the batch by the hashes of its first and last blocks.
type BatchProofArg struct {
	FirstBlock *big.Int
	LastBlock  *big.Int
	OldState   *big.Int
	NewState   *big.Int
}

// NewBatchProofArg converts a batch proof to its ABI form.
func NewBatchProofArg(p *rollup.BatchProof) BatchProofArg {
	return BatchProofArg{
		FirstBlock: p.FirstBlockHash.Big(),
		LastBlock:  p.LastBlockHash.Big(),
		OldState:   p.OldState.Big(),
		NewState:   p.NewState.Big(),
	}
}

// RollupContract is a binding to a deployed example rollup contract.
type RollupContract struct {
	address  common.Address
	backend  Backend
	contract *bind.BoundContract
	auth     *bind.TransactOpts
	log      *log.Logger
}

// NewRollupContract binds the rollup contract at address. auth signs
// verifyBlocks transactions; it may be nil for a read-only binding.
func NewRollupContract(address common.Address, backend Backend, auth *bind.TransactOpts) *RollupContract {
	return &RollupContract{
		address:  address,
		backend:  backend,
		contract: bind.NewBoundContract(address, rollupABI, backend, backend, backend),
		auth:     auth,
		log:      log.Default().Module("l1"),
	}
}

// Address returns the contract address.
func (c *RollupContract) Address() common.Address { return c.address }

func (c *RollupContract) callUint(ctx context.Context, method string) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method); err != nil {
		return nil, fmt.Errorf("l1: %s: %w", method, err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// StateCommitment returns the last state commitment the contract accepted.
func (c *RollupContract) StateCommitment(ctx context.Context) (rollup.Commitment, error) {
	v, err := c.callUint(ctx, "stateCommitment")
	if err != nil {
		return rollup.Commitment{}, err
	}
	return rollup.CommitmentFromBig(v), nil
}

// NumVerifiedBlocks returns how many sequenced blocks the contract has
// verified so far.
func (c *RollupContract) NumVerifiedBlocks(ctx context.Context) (uint64, error) {
	v, err := c.callUint(ctx, "numVerifiedBlocks")
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, ErrCountRange
	}
	return v.Uint64(), nil
}

// LightClient returns the light client address the contract was deployed
// with.
func (c *RollupContract) LightClient(ctx context.Context) (common.Address, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "lightClient"); err != nil {
		return common.Address{}, fmt.Errorf("l1: lightClient: %w", err)
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// VerifyBlocks submits a batch proof advancing the contract by count blocks
// to next. The call is simulated first so that a revert comes back as a
// decoded *RevertError without spending gas. It returns once the
// transaction is mined.
func (c *RollupContract) VerifyBlocks(ctx context.Context, count uint64, next rollup.Commitment, proof *rollup.BatchProof) error {
	if c.auth == nil {
		return ErrNoTransactor
	}
	arg := NewBatchProofArg(proof)
	input, err := rollupABI.Pack("verifyBlocks", count, next.Big(), arg)
	if err != nil {
		return fmt.Errorf("l1: pack verifyBlocks: %w", err)
	}
	msg := ethereum.CallMsg{From: c.auth.From, To: &c.address, Data: input}
	if _, err := c.backend.CallContract(ctx, msg, nil); err != nil {
		if rev, ok := revertFromError(err); ok {
			return rev
		}
		return fmt.Errorf("l1: simulate verifyBlocks: %w", err)
	}

	opts := *c.auth
	opts.Context = ctx
	tx, err := c.contract.Transact(&opts, "verifyBlocks", count, next.Big(), arg)
	if err != nil {
		if rev, ok := revertFromError(err); ok {
			return rev
		}
		return fmt.Errorf("l1: send verifyBlocks: %w", err)
	}
	c.log.Debug("submitted batch proof", "tx", tx.Hash(), "first", proof.FirstBlock, "last", proof.LastBlock, "count", count)

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return fmt.Errorf("l1: wait for verifyBlocks %s: %w", tx.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s", ErrTxFailed, tx.Hash())
	}
	c.log.Info("batch proof accepted", "tx", tx.Hash(), "block", receipt.BlockNumber, "gas", receipt.GasUsed)
	return nil
}

// StateUpdate is a decoded StateUpdate event.
type StateUpdate struct {
	BlockHeight     *big.Int
	StateCommitment *big.Int
	Raw             types.Log
}

// ParseStateUpdate decodes a StateUpdate log emitted by the contract.
func (c *RollupContract) ParseStateUpdate(l types.Log) (*StateUpdate, error) {
	ev := new(StateUpdate)
	if err := c.contract.UnpackLog(ev, "StateUpdate", l); err != nil {
		return nil, fmt.Errorf("l1: parse StateUpdate: %w", err)
	}
	ev.Raw = l
	return ev, nil
}
