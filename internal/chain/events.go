package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/jwebster45206/nexus-gamemaster/pkg/adventure"
)

const (
	argTokenID = "tokenId"
	argAction  = "action"
)

// EventSource polls one contract event and turns new logs into requests.
// It is not safe for concurrent use.
type EventSource struct {
	backend Backend
	address common.Address
	event   abi.Event
	indexed abi.Arguments
	kind    adventure.RequestKind
	logger  *slog.Logger

	cursor  uint64
	started bool
}

// NewHeroSource watches NewHeroRequested.
func NewHeroSource(backend Backend, contractABI abi.ABI, address common.Address, logger *slog.Logger) (*EventSource, error) {
	return newEventSource(backend, contractABI, address, EventNewHeroRequested, adventure.KindNewHero, logger)
}

// NewAdventureSource watches AdventureRequested.
func NewAdventureSource(backend Backend, contractABI abi.ABI, address common.Address, logger *slog.Logger) (*EventSource, error) {
	return newEventSource(backend, contractABI, address, EventAdventureRequest, adventure.KindActionTaken, logger)
}

func newEventSource(backend Backend, contractABI abi.ABI, address common.Address, name string, kind adventure.RequestKind, logger *slog.Logger) (*EventSource, error) {
	event, ok := contractABI.Events[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrABIMissingMember, name)
	}

	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	return &EventSource{
		backend: backend,
		address: address,
		event:   event,
		indexed: indexed,
		kind:    kind,
		logger:  logger.With("event", name),
	}, nil
}

// Name returns the watched event name.
func (s *EventSource) Name() string {
	return s.event.Name
}

// Poll returns requests from blocks mined since the previous successful poll.
// The first call only records the current head. The cursor does not move
// when the log query fails, so the same range is retried next time.
func (s *EventSource) Poll(ctx context.Context) ([]adventure.AdventureRequest, error) {
	head, err := s.backend.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read block number: %w", err)
	}

	if !s.started {
		s.cursor = head
		s.started = true
		s.logger.Debug("Event source started", "block", head)
		return nil, nil
	}
	if head <= s.cursor {
		return nil, nil
	}

	logs, err := s.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(s.cursor + 1),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{s.address},
		Topics:    [][]common.Hash{{s.event.ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter %s logs: %w", s.event.Name, err)
	}

	requests := make([]adventure.AdventureRequest, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		req, err := s.decode(l)
		if err != nil {
			s.logger.Warn("Skipping undecodable log", "tx_hash", l.TxHash.Hex(), "block", l.BlockNumber, "error", err)
			continue
		}
		requests = append(requests, req)
	}

	s.cursor = head
	return requests, nil
}

func (s *EventSource) decode(l types.Log) (adventure.AdventureRequest, error) {
	if len(l.Topics) == 0 || l.Topics[0] != s.event.ID {
		return adventure.AdventureRequest{}, fmt.Errorf("log is not a %s event", s.event.Name)
	}

	args := make(map[string]any)
	if len(s.indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(args, s.indexed, l.Topics[1:]); err != nil {
			return adventure.AdventureRequest{}, fmt.Errorf("failed to decode topics: %w", err)
		}
	}
	if len(l.Data) > 0 {
		if err := s.event.Inputs.UnpackIntoMap(args, l.Data); err != nil {
			return adventure.AdventureRequest{}, fmt.Errorf("failed to decode data: %w", err)
		}
	}

	tokenID, ok := args[argTokenID].(*big.Int)
	if !ok {
		return adventure.AdventureRequest{}, fmt.Errorf("%w: %s is %T", ErrUnexpectedOutput, argTokenID, args[argTokenID])
	}

	var req adventure.AdventureRequest
	if s.kind == adventure.KindNewHero {
		req = adventure.NewHeroRequest(tokenID)
	} else {
		action, _ := args[argAction].(string)
		req = adventure.NewActionRequest(tokenID, action)
	}
	req.BlockNumber = l.BlockNumber
	req.TxHash = l.TxHash.Hex()
	req.LogIndex = l.Index
	return req, nil
}
