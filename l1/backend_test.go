package l1

import (
	"context"
	"math/big"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// fakeBackend is an in-memory L1 node: calls are answered by a callback,
// sent transactions are recorded and always mined, and logs are served from
// a fixed history plus a live feed the test pushes into.
type fakeBackend struct {
	mu       sync.Mutex
	call     func(msg ethereum.CallMsg) ([]byte, error)
	sent     []*types.Transaction
	status   uint64
	history  []types.Log
	live     []chan<- types.Log
	liveSubs chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		status:   types.ReceiptStatusSuccessful,
		liveSubs: make(chan struct{}, 16),
	}
}

func (b *fakeBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if b.call == nil {
		return nil, nil
	}
	return b.call(msg)
}

func (b *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: big.NewInt(1)}, nil
}

func (b *fakeBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (b *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (b *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{
		Status:          b.status,
		TxHash:          txHash,
		BlockNumber:     big.NewInt(2),
		GasUsed:         21_000,
		ContractAddress: common.HexToAddress("0xc0ffee"),
	}, nil
}

func (b *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []types.Log
	for _, l := range b.history {
		if q.FromBlock == nil || l.BlockNumber >= q.FromBlock.Uint64() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (b *fakeBackend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	b.mu.Lock()
	b.live = append(b.live, ch)
	b.mu.Unlock()
	b.liveSubs <- struct{}{}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	}), nil
}

// push delivers l to every live subscriber.
func (b *fakeBackend) push(l types.Log) {
	b.mu.Lock()
	subs := append([]chan<- types.Log(nil), b.live...)
	b.mu.Unlock()
	for _, ch := range subs {
		ch <- l
	}
}

func (b *fakeBackend) sentTxs() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

// rpcDataError mimics a JSON-RPC error carrying revert data.
type rpcDataError struct {
	data string
}

func (e *rpcDataError) Error() string          { return "execution reverted" }
func (e *rpcDataError) ErrorData() interface{} { return e.data }
