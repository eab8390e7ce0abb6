package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/nexus-gamemaster/internal/services/events"
)

// ConsoleConfig is read from the environment; the console needs none of the
// bot's secrets.
type ConsoleConfig struct {
	RedisURL string `env:"REDIS_URL" env-default:"localhost:6379"`
	TokenID  string `env:"CONSOLE_TOKEN_ID"`
}

// Channel returns the feed channel, narrowed to one hero when TokenID is set.
func (c ConsoleConfig) Channel() string {
	if c.TokenID != "" {
		return events.HeroChannel(c.TokenID)
	}
	return events.FeedChannel
}

func main() {
	_ = godotenv.Load()

	var cfg ConsoleConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read configuration: %v\n", err)
		os.Exit(1)
	}

	var client *redis.Client
	if opts, err := redis.ParseURL(cfg.RedisURL); err == nil {
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The alt screen owns stdout, so subscription warnings are discarded.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	feed, err := events.Subscribe(ctx, client, cfg.Channel(), quiet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not subscribe to %s: %v\nIs Redis running and REDIS_URL set?\n", cfg.Channel(), err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, feed),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
