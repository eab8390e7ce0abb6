package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/nexus-gamemaster/internal/services"
	"github.com/jwebster45206/nexus-gamemaster/pkg/adventure"
	"github.com/jwebster45206/nexus-gamemaster/pkg/chat"
	"github.com/jwebster45206/nexus-gamemaster/pkg/prompts"
	"github.com/jwebster45206/nexus-gamemaster/pkg/textfilter"
)

// Narrator produces the next scene for a hero. Implementations never fail;
// a broken model reply becomes a fallback result.
type Narrator interface {
	Prologue(ctx context.Context, heroName string) adventure.ResolutionResult
	Resolve(ctx context.Context, hero adventure.HeroState, action string) adventure.ResolutionResult
}

// Engine asks a text model for a proposal and applies the game rules to it.
type Engine struct {
	llm      services.LLMService
	lore     string
	artStyle string
	filter   *textfilter.Filter
	logger   *slog.Logger
}

var _ Narrator = (*Engine)(nil)

// NewEngine creates an engine. Empty lore or art style keep the built-in campaign.
func NewEngine(llm services.LLMService, lore string, artStyle string, logger *slog.Logger) *Engine {
	return &Engine{
		llm:      llm,
		lore:     lore,
		artStyle: artStyle,
		logger:   logger,
	}
}

// WithContentFilter cleans every generated story and image prompt before it
// is committed. A nil filter disables cleaning.
func (e *Engine) WithContentFilter(f *textfilter.Filter) *Engine {
	e.filter = f
	return e
}

func (e *Engine) builder(hero adventure.HeroState) *prompts.Builder {
	return prompts.New().WithHero(hero).WithLore(e.lore).WithArtStyle(e.artStyle)
}

// Prologue writes the opening scene for a new hero. XP is always 0.
func (e *Engine) Prologue(ctx context.Context, heroName string) adventure.ResolutionResult {
	e.logger.Info("Generating prologue", "hero", heroName)
	b := e.builder(adventure.HeroState{Name: heroName})

	proposal, err := e.propose(ctx, b.BuildPrologue())
	if err != nil {
		e.logger.Warn("Prologue generation failed, using fallback", "hero", heroName, "error", err)
		return PrologueFallback(heroName, b.ArtStyle())
	}

	imagePrompt := proposal.ImagePrompt
	if imagePrompt == "" {
		imagePrompt = fmt.Sprintf(prompts.FallbackPrologueImagePrompt, heroName, b.ArtStyle())
	}
	return e.clean(adventure.ResolutionResult{
		Story:       adventure.EnsureEnding(stripMarkers(proposal.Story)),
		ImagePrompt: imagePrompt,
		XP:          0,
	})
}

// Resolve narrates the outcome of a player action.
func (e *Engine) Resolve(ctx context.Context, hero adventure.HeroState, action string) adventure.ResolutionResult {
	e.logger.Info("Resolving action", "hero", hero.Name, "xp", hero.XP, "action", action)

	b := e.builder(hero).WithAction(action)
	proposal, err := e.propose(ctx, b.BuildAction())
	if err != nil {
		e.logger.Warn("Action resolution failed, using fallback", "hero", hero.Name, "error", err)
		return ActionFallback(hero.Name)
	}

	result := Judge(*proposal, hero.Name, action, b.ArtStyle())
	if result.XP != int(proposal.XP) {
		e.logger.Info("Overrode model xp", "hero", hero.Name, "proposed", int(proposal.XP), "committed", result.XP)
	}
	return e.clean(result)
}

func (e *Engine) clean(r adventure.ResolutionResult) adventure.ResolutionResult {
	if e.filter == nil {
		return r
	}
	var changed bool
	if r.Story, changed = e.filter.Clean(r.Story); changed {
		e.logger.Info("Filtered generated story")
	}
	r.ImagePrompt, _ = e.filter.Clean(r.ImagePrompt)
	return r
}

// Judge turns an untrusted proposal into the result that will be committed.
func Judge(p adventure.Proposal, heroName string, action string, artStyle string) adventure.ResolutionResult {
	story := adventure.EnsureEnding(p.Story)
	imagePrompt := p.ImagePrompt

	switch {
	case adventure.IsGameOver(story):
		imagePrompt = fmt.Sprintf(prompts.GameOverImagePrompt, heroName)
	case adventure.IsVictory(story):
		imagePrompt = fmt.Sprintf(prompts.VictoryImagePrompt, heroName)
	case imagePrompt == "":
		imagePrompt = fmt.Sprintf("Isometric view of %s, %s", heroName, artStyle)
	}

	return adventure.ResolutionResult{
		Story:       story,
		ImagePrompt: imagePrompt,
		XP:          adventure.ApplyXPRules(int(p.XP), action, story),
	}
}

// propose calls the model and parses its reply. Panics inside a provider are
// turned into errors so a fallback is still produced.
func (e *Engine) propose(ctx context.Context, messages []chat.ChatMessage) (p *adventure.Proposal, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("model call panicked: %v", r)
		}
	}()

	resp, err := e.llm.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	if resp == nil || resp.Message == "" {
		return nil, fmt.Errorf("model returned an empty response")
	}
	e.logger.Debug("Model replied", "model", resp.Model, "length", len(resp.Message))

	return adventure.ParseProposal(resp.Message)
}

// PrologueFallback is committed when the prologue cannot be generated.
func PrologueFallback(heroName string, artStyle string) adventure.ResolutionResult {
	return adventure.ResolutionResult{
		Story:       prompts.FallbackPrologueStory,
		ImagePrompt: fmt.Sprintf(prompts.FallbackPrologueImagePrompt, heroName, artStyle),
		XP:          0,
		Fallback:    true,
	}
}

// ActionFallback is committed when an action cannot be resolved.
func ActionFallback(heroName string) adventure.ResolutionResult {
	return adventure.ResolutionResult{
		Story:       prompts.FallbackActionStory,
		ImagePrompt: fmt.Sprintf(prompts.FallbackActionImagePrompt, heroName),
		XP:          0,
		Fallback:    true,
	}
}

// stripMarkers removes terminal markers; a prologue can never end the game.
func stripMarkers(story string) string {
	for _, m := range []string{adventure.GameOverMarker, adventure.VictoryMarker} {
		story = strings.ReplaceAll(story, m, "")
	}
	return story
}
