package chain

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// Well-known development key; never funded outside local chains.
const testKeyHex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

// fakeBackend is an in-memory node.
type fakeBackend struct {
	mu sync.Mutex

	chainID    *big.Int
	head       uint64
	headErr    error
	logs       []types.Log
	filterErr  error
	queries    []ethereum.FilterQuery
	callOutput []byte
	callErr    error
	calls      []ethereum.CallMsg
	nonceErr   error
	sendErr    error
	sent       [][]byte
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, f.headErr
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nonceErr != nil {
		return 0, f.nonceErr
	}
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msg)
	return f.callOutput, f.callErr
}

func (f *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber >= q.FromBlock.Uint64() && l.BlockNumber <= q.ToBlock.Uint64() && l.Topics[0] == q.Topics[0][0] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeBackend) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	f.sent = append(f.sent, raw)
	return crypto.Keccak256Hash(raw), nil
}

func (f *fakeBackend) setHead(h uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = h
}

func testABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := LoadABI("testdata/abi.json")
	require.NoError(t, err)
	return parsed
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSigner(t *testing.T) *KeySigner {
	t.Helper()
	s, err := NewKeySigner(testKeyHex, big.NewInt(1337))
	require.NoError(t, err)
	return s
}

func newTestGateway(t *testing.T, backend *fakeBackend) *Gateway {
	t.Helper()
	return NewGateway(backend, testABI(t), testSigner(t), Options{
		ContractAddress: testContract,
		ChainID:         big.NewInt(1337),
		GasLimit:        3_000_000,
		GasPrice:        GasPriceFromGwei(20),
		FallbackCID:     "QmYv32Di2u9Pqn8aNkrKoTPgokNPZX5LeEiteSqCfxnmAy",
	}, testLogger())
}
