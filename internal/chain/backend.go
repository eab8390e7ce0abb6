package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Backend is the subset of the JSON-RPC surface the game master uses.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
}

// RPCBackend talks to a node over JSON-RPC.
type RPCBackend struct {
	*ethclient.Client
	rpc *rpc.Client
}

var _ Backend = (*RPCBackend)(nil)

// Dial connects to the node at url.
func Dial(ctx context.Context, url string) (*RPCBackend, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return &RPCBackend{Client: ethclient.NewClient(rc), rpc: rc}, nil
}

// SendRawTransaction broadcasts already-signed transaction bytes.
func (b *RPCBackend) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	if err := b.rpc.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// Ping checks that the node answers.
func (b *RPCBackend) Ping(ctx context.Context) error {
	_, err := b.BlockNumber(ctx)
	return err
}
