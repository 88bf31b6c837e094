package l1

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/eth2030/example-l2/rollup"
)

// rollupBytecode is the creation code of the example rollup contract. Its
// verifier accepts every proof, which is what the rollup's mock proofs need.
var rollupBytecode = hexutil.MustDecode("0x608060405234801561001057600080fd5b506040516101d63803806101d683398101604081905261002f9161005a565b600080546001600160a01b0319166001600160a01b0393909316929092178255600155600255610094565b6000806040838503121561006d57600080fd5b82516001600160a01b038116811461008457600080fd5b6020939093015192949293505050565b610133806100a36000396000f3fe6080604052348015600f57600080fd5b506004361060465760003560e01c8063032571a914604b578063412cc8fe14605d578063b5700e68146078578063d800741e1460a1575b600080fd5b605b605636600460a9565b505050565b005b606560025481565b6040519081526020015b60405180910390f35b600054608a906001600160a01b031681565b6040516001600160a01b039091168152602001606f565b606560015481565b600080600083850360c081121560be57600080fd5b843567ffffffffffffffff8116811460d557600080fd5b9350602085013592506080603f198201121560ef57600080fd5b50604084019050925092509256fea26469706673582212203de110a466478db759b4b7524d5b02d7540dfea4d32a3ed9b23299446891fc6864736f6c63430008140033")

// NewTransactor creates transaction options signing with key for chainID.
func NewTransactor(key *ecdsa.PrivateKey, chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("l1: create transactor: %w", err)
	}
	return opts, nil
}

// DeployRollup deploys the rollup contract pointing at lightClient with
// initialState as its first accepted commitment, waits for it to be mined
// and returns a binding to it.
func DeployRollup(ctx context.Context, auth *bind.TransactOpts, backend Backend, lightClient common.Address, initialState rollup.Commitment) (*RollupContract, error) {
	opts := *auth
	opts.Context = ctx
	addr, tx, _, err := bind.DeployContract(&opts, rollupABI, rollupBytecode, backend, lightClient, initialState.Big())
	if err != nil {
		return nil, fmt.Errorf("l1: deploy rollup contract: %w", err)
	}
	deployed, err := bind.WaitDeployed(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("l1: wait for rollup deployment %s: %w", tx.Hash(), err)
	}
	if deployed != addr {
		return nil, fmt.Errorf("l1: rollup deployed at %s, expected %s", deployed, addr)
	}
	return NewRollupContract(addr, backend, auth), nil
}
