package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/nexus-gamemaster/pkg/adventure"
	"github.com/jwebster45206/nexus-gamemaster/pkg/chat"
)

// maxContextLength bounds the previous story echoed back to the model.
const maxContextLength = 2000

// Builder constructs the messages for one narrative request.
type Builder struct {
	hero   adventure.HeroState
	action string
	lore   string
	style  string
}

// New creates a builder with the default campaign and art style.
func New() *Builder {
	return &Builder{
		lore:  CampaignLore,
		style: ArtStyle,
	}
}

// WithHero sets the hero snapshot.
func (b *Builder) WithHero(h adventure.HeroState) *Builder {
	b.hero = h
	return b
}

// WithAction sets the player's action text.
func (b *Builder) WithAction(action string) *Builder {
	b.action = action
	return b
}

// WithLore overrides the campaign lore. Empty keeps the default.
func (b *Builder) WithLore(lore string) *Builder {
	if lore != "" {
		b.lore = lore
	}
	return b
}

// WithArtStyle overrides the art style. Empty keeps the default.
func (b *Builder) WithArtStyle(style string) *Builder {
	if style != "" {
		b.style = style
	}
	return b
}

// BuildPrologue returns the messages for a new hero's opening scene.
func (b *Builder) BuildPrologue() []chat.ChatMessage {
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: fmt.Sprintf(GameMasterSystemPrompt, b.lore)},
		{Role: chat.ChatRoleUser, Content: fmt.Sprintf(PrologueTemplate, b.hero.Name, b.hero.Name, b.style)},
	}
}

// BuildAction returns the messages for resolving a player action.
func (b *Builder) BuildAction() []chat.ChatMessage {
	content := fmt.Sprintf(ActionTemplate,
		b.hero.Name,
		b.hero.Level(),
		sanitize(b.hero.StoryContext, maxContextLength),
		sanitize(b.action, maxContextLength),
		b.hero.Name,
		b.hero.Name,
		b.style,
	)
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: fmt.Sprintf(GameMasterSystemPrompt, b.lore)},
		{Role: chat.ChatRoleUser, Content: content},
	}
}

// ArtStyle returns the configured art style.
func (b *Builder) ArtStyle() string {
	return b.style
}

// sanitize keeps quoted player text from closing the surrounding quotes.
func sanitize(s string, limit int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), `"`, `'`)
	if r := []rune(s); len(r) > limit {
		s = string(r[len(r)-limit:])
	}
	return s
}
