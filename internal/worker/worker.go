package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/nexus-gamemaster/internal/chain"
	"github.com/jwebster45206/nexus-gamemaster/internal/logger"
	"github.com/jwebster45206/nexus-gamemaster/internal/narrative"
	"github.com/jwebster45206/nexus-gamemaster/internal/services"
	"github.com/jwebster45206/nexus-gamemaster/internal/services/events"
	"github.com/jwebster45206/nexus-gamemaster/pkg/adventure"
	"github.com/jwebster45206/nexus-gamemaster/pkg/prompts"
)

const defaultPollInterval = 2 * time.Second

var ErrUnknownKind = errors.New("unknown request kind")

// RequestSource yields adventure requests detected since its previous poll.
type RequestSource interface {
	Name() string
	Poll(ctx context.Context) ([]adventure.AdventureRequest, error)
}

// Chain reads hero records and commits resolutions.
type Chain interface {
	chain.HeroReader
	chain.Committer
	URI(cid string) string
}

// Dependencies are the collaborators of one Worker. Sources are polled in order.
type Dependencies struct {
	Sources  []RequestSource
	Chain    Chain
	Narrator narrative.Narrator
	Images   services.ImageGenerator
	Pinner   services.ContentPinner
	Events   events.Publisher
	Metrics  *Metrics
}

// Worker is the adventure orchestrator. It polls the event sources and runs
// each detected request through narrative, media, pinning and commit.
type Worker struct {
	id       string
	deps     Dependencies
	interval time.Duration
	log      *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new worker instance
func New(deps Dependencies, interval time.Duration, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("gamemaster-%s", uuid.New().String()[:8])
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}

	return &Worker{
		id:       workerID,
		deps:     deps,
		interval: interval,
		log:      log.With("worker_id", workerID),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start polls until Stop is called. It never returns early on a pipeline error.
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "interval", w.interval.String(), "sources", len(w.deps.Sources))

	for {
		w.PollOnce()

		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		case <-time.After(w.interval):
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
}

// PollOnce runs one iteration: every source in order, each of its requests
// to completion before the next source is polled.
func (w *Worker) PollOnce() {
	for _, src := range w.deps.Sources {
		if w.ctx.Err() != nil {
			return
		}

		requests, err := w.poll(src)
		if err != nil {
			w.deps.Metrics.stageFailures.WithLabelValues(StagePoll).Inc()
			w.log.Error("Error polling events", "source", src.Name(), "error", err)
			continue
		}

		for _, req := range requests {
			if err := w.processRequest(req); err != nil {
				w.log.Error("Error processing request", "request_id", req.RequestID, "token_id", req.TokenID.String(), "error", err)
			}
		}
	}
}

func (w *Worker) poll(src RequestSource) (requests []adventure.AdventureRequest, err error) {
	defer func() {
		if r := recover(); r != nil {
			requests, err = nil, fmt.Errorf("poll panicked: %v", r)
		}
	}()
	return src.Poll(w.ctx)
}

// processRequest runs one request through the pipeline. Every stage before
// the commit degrades instead of failing, panics included, so each request
// reaches exactly one commit attempt.
func (w *Worker) processRequest(req adventure.AdventureRequest) (err error) {
	log := logger.WithRequest(w.log, req.RequestID, req.TokenID.String())
	start := time.Now()
	kind := string(req.Kind)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("request panicked: %v", r)
			w.publishFailed(req, err)
		}
	}()

	log.Info("Processing request", "kind", kind, "action", req.Action, "block", req.BlockNumber, "tx_hash", req.TxHash)
	w.deps.Metrics.requestsDetected.WithLabelValues(kind).Inc()
	if err := w.deps.Events.PublishDetected(w.ctx, req); err != nil {
		log.Error("Failed to publish detected event", "error", err)
	}

	hero := w.readHero(log, req.TokenID)

	if req.Kind != adventure.KindNewHero && req.Kind != adventure.KindActionTaken {
		err := fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
		w.publishFailed(req, err)
		return err
	}

	result := w.narrate(log, req, hero)
	if result.Fallback {
		w.deps.Metrics.fallbacks.WithLabelValues(StageNarrative).Inc()
	}

	cid := w.renderAndPin(log, req.TokenID, result.ImagePrompt)

	txHash, err := w.deps.Chain.Commit(w.ctx, req.TokenID, result, cid)
	w.deps.Metrics.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		w.deps.Metrics.commitFailures.WithLabelValues(kind).Inc()
		w.deps.Metrics.stageFailures.WithLabelValues(StageCommit).Inc()
		w.publishFailed(req, err)
		return fmt.Errorf("failed to commit resolution: %w", err)
	}

	w.deps.Metrics.requestsCommitted.WithLabelValues(kind).Inc()
	uri := w.deps.Chain.URI(cid)
	log.Info("Request resolved",
		"xp", result.XP,
		"uri", uri,
		"tx_hash", txHash.Hex(),
		"fallback", result.Fallback,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err := w.deps.Events.PublishResolved(w.ctx, req, result, uri, txHash.Hex()); err != nil {
		log.Error("Failed to publish resolved event", "error", err)
	}
	return nil
}

// readHero falls back to a placeholder so the request still gets committed.
func (w *Worker) readHero(log *slog.Logger, tokenID *big.Int) (hero adventure.HeroState) {
	defer func() {
		if r := recover(); r != nil {
			w.deps.Metrics.stageFailures.WithLabelValues(StageHeroRead).Inc()
			log.Error("Hero read panicked, using placeholder", "panic", r)
			hero = adventure.PlaceholderHero(tokenID)
		}
	}()

	hero, err := w.deps.Chain.Hero(w.ctx, tokenID)
	if err != nil {
		w.deps.Metrics.stageFailures.WithLabelValues(StageHeroRead).Inc()
		log.Warn("Failed to read hero, using placeholder", "error", err)
		return adventure.PlaceholderHero(tokenID)
	}
	return hero
}

// narrate substitutes the hardcoded fallback when the narrator panics.
func (w *Worker) narrate(log *slog.Logger, req adventure.AdventureRequest, hero adventure.HeroState) (result adventure.ResolutionResult) {
	defer func() {
		if r := recover(); r != nil {
			w.deps.Metrics.stageFailures.WithLabelValues(StageNarrative).Inc()
			log.Error("Narrator panicked, using fallback story", "panic", r)
			if req.Kind == adventure.KindNewHero {
				result = narrative.PrologueFallback(hero.Name, prompts.ArtStyle)
			} else {
				result = narrative.ActionFallback(hero.Name)
			}
		}
	}()

	if req.Kind == adventure.KindNewHero {
		return w.deps.Narrator.Prologue(w.ctx, hero.Name)
	}
	return w.deps.Narrator.Resolve(w.ctx, hero, req.Action)
}

// renderAndPin returns the pinned CID, or "" when either stage fails.
func (w *Worker) renderAndPin(log *slog.Logger, tokenID *big.Int, prompt string) string {
	art, ok := w.generate(log, tokenID, prompt)
	if !ok {
		w.deps.Metrics.fallbacks.WithLabelValues(StageImage).Inc()
		log.Warn("Image generation failed, committing fallback image")
		return ""
	}

	cid, ok := w.pin(log, art.Data, fmt.Sprintf("hero_%s.png", tokenID))
	if !ok {
		w.deps.Metrics.fallbacks.WithLabelValues(StagePin).Inc()
		log.Warn("Pinning failed, committing fallback image")
		return ""
	}
	return cid
}

func (w *Worker) generate(log *slog.Logger, tokenID *big.Int, prompt string) (art *adventure.MediaArtifact, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Image generation panicked", "panic", r)
			art, ok = nil, false
		}
	}()
	return w.deps.Images.Generate(w.ctx, prompt, tokenID)
}

func (w *Worker) pin(log *slog.Logger, data []byte, filename string) (cid string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Pinning panicked", "panic", r)
			cid, ok = "", false
		}
	}()
	return w.deps.Pinner.Pin(w.ctx, data, filename)
}

func (w *Worker) publishFailed(req adventure.AdventureRequest, err error) {
	if pubErr := w.deps.Events.PublishFailed(w.ctx, req, err.Error()); pubErr != nil {
		w.log.Error("Failed to publish failure event", "error", pubErr)
	}
}
