package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/nexus-gamemaster/pkg/adventure"
)

// FeedChannel receives every event; HeroChannel narrows to a single token.
const (
	FeedChannel       = "gamemaster-events"
	heroChannelPrefix = "hero-events:"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeAdventureDetected EventType = "adventure.detected"
	EventTypeAdventureResolved EventType = "adventure.resolved"
	EventTypeAdventureFailed   EventType = "adventure.failed"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType              `json:"type"`
	RequestID string                 `json:"request_id,omitempty"`
	TokenID   string                 `json:"token_id,omitempty"`
	Kind      string                 `json:"kind,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// HeroChannel returns the per-hero channel name.
func HeroChannel(tokenID string) string {
	return heroChannelPrefix + tokenID
}

// Publisher is what the orchestrator needs from a progress feed.
type Publisher interface {
	PublishDetected(ctx context.Context, req adventure.AdventureRequest) error
	PublishResolved(ctx context.Context, req adventure.AdventureRequest, result adventure.ResolutionResult, uri string, txHash string) error
	PublishFailed(ctx context.Context, req adventure.AdventureRequest, errorMsg string) error
}

// Broadcaster publishes events to Redis Pub/Sub
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Ping checks the redis connection.
func (b *Broadcaster) Ping(ctx context.Context) error {
	if err := b.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// PublishDetected publishes an adventure.detected event
func (b *Broadcaster) PublishDetected(ctx context.Context, req adventure.AdventureRequest) error {
	data := map[string]interface{}{
		"block_number": req.BlockNumber,
	}
	if req.Action != "" {
		data["action"] = req.Action
	}
	return b.publish(ctx, newEvent(EventTypeAdventureDetected, req, data))
}

// PublishResolved publishes an adventure.resolved event
func (b *Broadcaster) PublishResolved(ctx context.Context, req adventure.AdventureRequest, result adventure.ResolutionResult, uri string, txHash string) error {
	return b.publish(ctx, newEvent(EventTypeAdventureResolved, req, map[string]interface{}{
		"story":    result.Story,
		"xp":       result.XP,
		"uri":      uri,
		"tx_hash":  txHash,
		"fallback": result.Fallback,
	}))
}

// PublishFailed publishes an adventure.failed event
func (b *Broadcaster) PublishFailed(ctx context.Context, req adventure.AdventureRequest, errorMsg string) error {
	return b.publish(ctx, newEvent(EventTypeAdventureFailed, req, map[string]interface{}{
		"error": errorMsg,
	}))
}

func newEvent(t EventType, req adventure.AdventureRequest, data map[string]interface{}) Event {
	tokenID := ""
	if req.TokenID != nil {
		tokenID = req.TokenID.String()
	}
	return Event{
		Type:      t,
		RequestID: req.RequestID,
		TokenID:   tokenID,
		Kind:      string(req.Kind),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// publish sends the event to the feed channel and the hero's own channel
func (b *Broadcaster) publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channels := []string{FeedChannel}
	if event.TokenID != "" {
		channels = append(channels, HeroChannel(event.TokenID))
	}

	for _, channel := range channels {
		if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
			b.logger.Error("Failed to publish event", "error", err, "channel", channel)
			return fmt.Errorf("failed to publish event: %w", err)
		}
	}

	b.logger.Debug("Event published",
		"event_type", event.Type,
		"request_id", event.RequestID,
		"token_id", event.TokenID,
	)
	return nil
}

// Subscribe streams decoded feed events until ctx is cancelled. Malformed
// payloads are skipped.
func Subscribe(ctx context.Context, redisClient *redis.Client, channel string, logger *slog.Logger) (<-chan Event, error) {
	sub := redisClient.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Warn("Skipping malformed event", "error", err, "channel", msg.Channel)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// NopPublisher drops every event. Used when REDIS_URL is not configured.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) PublishDetected(context.Context, adventure.AdventureRequest) error { return nil }

func (NopPublisher) PublishResolved(context.Context, adventure.AdventureRequest, adventure.ResolutionResult, string, string) error {
	return nil
}

func (NopPublisher) PublishFailed(context.Context, adventure.AdventureRequest, string) error {
	return nil
}
