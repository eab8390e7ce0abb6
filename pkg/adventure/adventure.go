package adventure

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// RequestKind distinguishes the two on-chain event streams the game master watches.
type RequestKind string

const (
	KindNewHero     RequestKind = "new_hero"
	KindActionTaken RequestKind = "action_taken"
)

// DefaultAction is used when an AdventureRequested event carries no action text.
const DefaultAction = "explores"

// AdventureRequest is one pending unit of work detected on-chain.
type AdventureRequest struct {
	RequestID   string      `json:"request_id"`
	TokenID     *big.Int    `json:"token_id"`
	Kind        RequestKind `json:"kind"`
	Action      string      `json:"action,omitempty"`
	BlockNumber uint64      `json:"block_number"`
	TxHash      string      `json:"tx_hash,omitempty"`
	LogIndex    uint        `json:"log_index"`
}

// NewHeroRequest builds a request for a freshly minted hero.
func NewHeroRequest(tokenID *big.Int) AdventureRequest {
	return AdventureRequest{
		RequestID: uuid.New().String(),
		TokenID:   tokenID,
		Kind:      KindNewHero,
	}
}

// NewActionRequest builds a request for a player action. An empty action
// becomes DefaultAction.
func NewActionRequest(tokenID *big.Int, action string) AdventureRequest {
	if action == "" {
		action = DefaultAction
	}
	return AdventureRequest{
		RequestID: uuid.New().String(),
		TokenID:   tokenID,
		Kind:      KindActionTaken,
		Action:    action,
	}
}

func (r AdventureRequest) String() string {
	if r.Kind == KindActionTaken {
		return fmt.Sprintf("%s token=%s action=%q", r.Kind, r.TokenID, r.Action)
	}
	return fmt.Sprintf("%s token=%s", r.Kind, r.TokenID)
}

// HeroState is a snapshot of the character record stored by the contract.
type HeroState struct {
	Name         string `json:"name"`
	XP           uint64 `json:"xp"`
	StoryContext string `json:"story_context"`
}

// Level is the hero level shown to the model.
func (h HeroState) Level() uint64 {
	return h.XP / 100
}

// PlaceholderHero stands in for a hero whose record could not be read.
func PlaceholderHero(tokenID *big.Int) HeroState {
	return HeroState{Name: fmt.Sprintf("Hero #%s", tokenID)}
}

// ResolutionResult is the outcome committed on-chain for one request.
type ResolutionResult struct {
	Story       string `json:"story"`
	ImagePrompt string `json:"image_prompt"`
	XP          int    `json:"xp"`
	// Fallback is set when the narrative came from a hardcoded substitute.
	Fallback bool `json:"-"`
}

// MediaArtifact is a rendered illustration and, once pinned, its CID.
type MediaArtifact struct {
	Data        []byte
	ContentType string
	CID         string
}

// Pinned reports whether the artifact has a content identifier.
func (m *MediaArtifact) Pinned() bool {
	return m != nil && m.CID != ""
}
