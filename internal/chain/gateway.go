package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"

	"github.com/jwebster45206/nexus-gamemaster/pkg/adventure"
)

const ipfsScheme = "ipfs://"

var ErrUnexpectedOutput = errors.New("unexpected contract output")

// Options describes the contract target and transaction parameters.
type Options struct {
	ContractAddress common.Address
	ChainID         *big.Int
	GasLimit        uint64
	GasPrice        *big.Int
	FallbackCID     string
}

// GasPriceFromGwei converts a gwei amount to wei.
func GasPriceFromGwei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(params.GWei))
}

// HeroReader reads character records.
type HeroReader interface {
	Hero(ctx context.Context, tokenID *big.Int) (adventure.HeroState, error)
}

// Committer writes resolutions back to the contract.
type Committer interface {
	Commit(ctx context.Context, tokenID *big.Int, result adventure.ResolutionResult, cid string) (common.Hash, error)
}

// Gateway reads hero state from the contract and commits resolutions.
type Gateway struct {
	backend Backend
	abi     abi.ABI
	signer  Signer
	opts    Options
	logger  *slog.Logger

	// mu serializes nonce lookup through broadcast.
	mu sync.Mutex
}

var (
	_ HeroReader = (*Gateway)(nil)
	_ Committer  = (*Gateway)(nil)
)

// NewGateway creates a gateway bound to one contract.
func NewGateway(backend Backend, contractABI abi.ABI, signer Signer, opts Options, logger *slog.Logger) *Gateway {
	return &Gateway{
		backend: backend,
		abi:     contractABI,
		signer:  signer,
		opts:    opts,
		logger:  logger,
	}
}

// Hero reads the character record for tokenID. Only the name, xp and story
// outputs are used.
func (g *Gateway) Hero(ctx context.Context, tokenID *big.Int) (adventure.HeroState, error) {
	input, err := g.abi.Pack(MethodCharacters, tokenID)
	if err != nil {
		return adventure.HeroState{}, fmt.Errorf("failed to pack %s: %w", MethodCharacters, err)
	}

	to := g.opts.ContractAddress
	output, err := g.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return adventure.HeroState{}, fmt.Errorf("failed to call %s(%s): %w", MethodCharacters, tokenID, err)
	}

	values, err := g.abi.Unpack(MethodCharacters, output)
	if err != nil {
		return adventure.HeroState{}, fmt.Errorf("failed to unpack %s: %w", MethodCharacters, err)
	}
	if len(values) < 3 {
		return adventure.HeroState{}, fmt.Errorf("%w: %s returned %d values", ErrUnexpectedOutput, MethodCharacters, len(values))
	}

	name, ok := values[0].(string)
	if !ok {
		return adventure.HeroState{}, fmt.Errorf("%w: name is %T", ErrUnexpectedOutput, values[0])
	}
	xp, ok := values[1].(*big.Int)
	if !ok {
		return adventure.HeroState{}, fmt.Errorf("%w: xp is %T", ErrUnexpectedOutput, values[1])
	}
	story, ok := values[2].(string)
	if !ok {
		return adventure.HeroState{}, fmt.Errorf("%w: story is %T", ErrUnexpectedOutput, values[2])
	}

	hero := adventure.HeroState{Name: name, StoryContext: story, XP: math.MaxUint64}
	if xp.IsUint64() {
		hero.XP = xp.Uint64()
	} else {
		g.logger.Warn("Hero xp exceeds uint64, clamping", "token_id", tokenID.String(), "xp", xp.String())
	}
	return hero, nil
}

// URI returns the token URI for a pinned CID, or the fallback URI when cid is empty.
func (g *Gateway) URI(cid string) string {
	if cid == "" {
		cid = g.opts.FallbackCID
	}
	return ipfsScheme + cid
}

// Commit signs and broadcasts resolveAdventure. It makes exactly one attempt.
func (g *Gateway) Commit(ctx context.Context, tokenID *big.Int, result adventure.ResolutionResult, cid string) (common.Hash, error) {
	uri := g.URI(cid)
	xp := big.NewInt(int64(result.XP))
	if xp.Sign() < 0 {
		xp.SetInt64(0)
	}

	data, err := g.abi.Pack(MethodResolveAdventure, tokenID, result.Story, xp, uri)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack %s: %w", MethodResolveAdventure, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	from := g.signer.Address()
	nonce, err := g.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce for %s: %w", from.Hex(), err)
	}

	to := g.opts.ContractAddress
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      g.opts.GasLimit,
		GasPrice: g.opts.GasPrice,
		Data:     data,
	})

	signed, err := g.signer.Sign(tx)
	if err != nil {
		return common.Hash{}, err
	}
	raw, err := RawTransaction(signed)
	if err != nil {
		return common.Hash{}, err
	}

	hash, err := g.backend.SendRawTransaction(ctx, raw)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to broadcast %s: %w", MethodResolveAdventure, err)
	}

	g.logger.Info("Resolution broadcast",
		"token_id", tokenID.String(),
		"tx_hash", hash.Hex(),
		"nonce", nonce,
		"xp", xp.String(),
		"uri", uri,
	)
	return hash, nil
}

// VerifyChainID compares the node's chain id with the configured one.
func (g *Gateway) VerifyChainID(ctx context.Context) (remote *big.Int, match bool, err error) {
	remote, err = g.backend.ChainID(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read chain id: %w", err)
	}
	return remote, g.opts.ChainID != nil && remote.Cmp(g.opts.ChainID) == 0, nil
}
