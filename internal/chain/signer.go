package chain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs transactions for the game master account.
type Signer interface {
	Address() common.Address
	Sign(tx *types.Transaction) (SignedTx, error)
}

// KeySigner signs locally with an in-memory private key (EIP-155).
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	signer  types.Signer
}

// NewKeySigner parses a hex private key, with or without 0x prefix.
func NewKeySigner(hexKey string, chainID *big.Int) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		signer:  types.NewEIP155Signer(chainID),
	}, nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) Sign(tx *types.Transaction) (SignedTx, error) {
	signed, err := types.SignTx(tx, s.signer, s.key)
	if err != nil {
		return SignedTx{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return SignedTx{Shape: ShapeAttribute, Tx: signed}, nil
}
