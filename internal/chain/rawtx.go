package chain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrRawTransactionUnavailable = errors.New("signed transaction exposes no raw bytes")

// TxShape identifies how a signing backend returned its signed transaction.
type TxShape int

const (
	// ShapeAttribute is a typed transaction object.
	ShapeAttribute TxShape = iota + 1
	// ShapeMap is a keyed record holding "rawTransaction" or "raw".
	ShapeMap
	// ShapeSequence is a tuple whose first element holds the raw bytes.
	ShapeSequence
)

func (s TxShape) String() string {
	switch s {
	case ShapeAttribute:
		return "attribute"
	case ShapeMap:
		return "map"
	case ShapeSequence:
		return "sequence"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// SignedTx is a signed transaction in whichever shape the signer produced.
type SignedTx struct {
	Shape  TxShape
	Tx     *types.Transaction
	Fields map[string]any
	Items  []any
}

// rawKeys are looked up in order for ShapeMap.
var rawKeys = []string{"rawTransaction", "raw"}

// RawTransaction extracts the broadcastable bytes from a signed transaction.
func RawTransaction(s SignedTx) ([]byte, error) {
	switch s.Shape {
	case ShapeAttribute:
		if s.Tx == nil {
			return nil, ErrRawTransactionUnavailable
		}
		raw, err := s.Tx.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to encode transaction: %w", err)
		}
		return raw, nil
	case ShapeMap:
		for _, key := range rawKeys {
			if v, ok := s.Fields[key]; ok {
				return toBytes(v)
			}
		}
	case ShapeSequence:
		if len(s.Items) > 0 {
			return toBytes(s.Items[0])
		}
	}
	return nil, fmt.Errorf("%w (shape %s)", ErrRawTransactionUnavailable, s.Shape)
}

func toBytes(v any) ([]byte, error) {
	var raw []byte
	switch val := v.(type) {
	case []byte:
		raw = val
	case hexutil.Bytes:
		raw = val
	case string:
		b, err := hexutil.Decode(val)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRawTransactionUnavailable, err)
		}
		raw = b
	case *types.Transaction:
		return RawTransaction(SignedTx{Shape: ShapeAttribute, Tx: val})
	}
	if len(raw) == 0 {
		return nil, ErrRawTransactionUnavailable
	}
	return raw, nil
}
