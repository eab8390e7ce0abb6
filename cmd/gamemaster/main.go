package main

import (
	"context"
	"errors"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/nexus-gamemaster/internal/chain"
	"github.com/jwebster45206/nexus-gamemaster/internal/config"
	"github.com/jwebster45206/nexus-gamemaster/internal/handlers"
	"github.com/jwebster45206/nexus-gamemaster/internal/logger"
	"github.com/jwebster45206/nexus-gamemaster/internal/narrative"
	"github.com/jwebster45206/nexus-gamemaster/internal/services"
	"github.com/jwebster45206/nexus-gamemaster/internal/services/events"
	"github.com/jwebster45206/nexus-gamemaster/internal/worker"
	"github.com/jwebster45206/nexus-gamemaster/pkg/textfilter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Nexus Game Master",
		"environment", cfg.Environment,
		"rpc_url", cfg.Chain.RPCURL,
		"contract", cfg.Chain.ContractAddress,
		"llm_provider", cfg.LLM.Provider)

	contractABI, err := chain.LoadABI(cfg.Chain.ABIPath)
	if err != nil {
		log.Error("Failed to load contract ABI", "error", err, "path", cfg.Chain.ABIPath)
		os.Exit(1)
	}

	if !common.IsHexAddress(cfg.Chain.ContractAddress) {
		log.Error("CONTRACT_ADDRESS is not a valid address", "contract", cfg.Chain.ContractAddress)
		os.Exit(1)
	}
	contract := common.HexToAddress(cfg.Chain.ContractAddress)
	chainID := big.NewInt(cfg.Chain.ChainID)

	signer, err := chain.NewKeySigner(cfg.Chain.PrivateKey, chainID)
	if err != nil {
		log.Error("Failed to load signing key", "error", err)
		os.Exit(1)
	}
	log.Info("Signing account loaded", "address", signer.Address().Hex())

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer dialCancel()

	backend, err := chain.Dial(dialCtx, cfg.Chain.RPCURL)
	if err != nil {
		log.Error("Failed to connect to RPC", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	gateway := chain.NewGateway(backend, contractABI, signer, chain.Options{
		ContractAddress: contract,
		ChainID:         chainID,
		GasLimit:        cfg.Chain.GasLimit,
		GasPrice:        chain.GasPriceFromGwei(cfg.Chain.GasPriceGwei),
		FallbackCID:     cfg.Chain.FallbackCID,
	}, log)

	remoteID, match, err := gateway.VerifyChainID(dialCtx)
	if err != nil {
		log.Error("RPC endpoint is unreachable", "error", err)
		os.Exit(1)
	}
	if !match {
		log.Warn("Chain id mismatch, transactions may be rejected", "configured", chainID.String(), "remote", remoteID.String())
	}
	log.Info("Connected to chain", "chain_id", remoteID.String())

	heroSource, err := chain.NewHeroSource(backend, contractABI, contract, log)
	if err != nil {
		log.Error("Failed to create hero event source", "error", err)
		os.Exit(1)
	}
	adventureSource, err := chain.NewAdventureSource(backend, contractABI, contract, log)
	if err != nil {
		log.Error("Failed to create adventure event source", "error", err)
		os.Exit(1)
	}

	// Initialize LLM service
	var llmService services.LLMService
	switch cfg.LLM.Provider {
	case config.ProviderAnthropic:
		llmService = services.NewAnthropicService(cfg.LLM.AnthropicAPIKey, cfg.LLM.ModelName, log)
	case config.ProviderOpenAI:
		llmService = services.NewOpenAIService(cfg.LLM.OpenAIAPIKey, cfg.LLM.ModelName, log)
	default:
		llmService = services.NewGeminiService(cfg.LLM.GeminiAPIKey, cfg.LLM.ModelName, log)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), time.Minute)
	defer initCancel()
	if err := llmService.InitModel(initCtx, cfg.LLM.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.LLM.ModelName)
		os.Exit(1)
	}
	log.Info("LLM service initialized successfully", "provider", cfg.LLM.Provider)

	if cfg.Pinning.JWT == "" {
		log.Warn("PINATA_JWT is empty, every image will fall back to the default URI")
	}

	components := map[string]handlers.Pinger{"rpc": backend}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RedisURL != "" {
		redisClient := newRedisClient(cfg.RedisURL)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("Redis unavailable, progress events will be dropped until it recovers", "error", err)
		}
		pingCancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close Redis client", "error", err)
			}
		}()

		broadcaster := events.NewBroadcaster(redisClient, log)
		publisher = broadcaster
		components["redis"] = broadcaster
		log.Info("Publishing progress events", "channel", events.FeedChannel)
	}

	engine := narrative.NewEngine(llmService, cfg.Narrative.CampaignLore, cfg.Narrative.ArtStyle, log)
	if textfilter.AppliesTo(cfg.Narrative.ContentRating) {
		engine.WithContentFilter(textfilter.New())
		log.Info("Content filter enabled", "rating", cfg.Narrative.ContentRating)
	}

	metrics := worker.NewMetrics()
	w := worker.New(worker.Dependencies{
		Sources:  []worker.RequestSource{heroSource, adventureSource},
		Chain:    gateway,
		Narrator: engine,
		Images: services.NewImageGenService(cfg.Image.BaseURL, services.ImageGenOptions{
			Timeout:     cfg.Image.Timeout,
			MaxAttempts: cfg.Image.MaxAttempts,
			RetryDelay:  cfg.Image.RetryDelay,
		}, log),
		Pinner:  services.NewPinataService(cfg.Pinning.BaseURL, cfg.Pinning.JWT, cfg.Pinning.Timeout, log),
		Events:  publisher,
		Metrics: metrics,
	}, cfg.PollInterval, log, os.Getenv("WORKER_ID"))

	server := handlers.NewStatusServer(cfg.StatusAddr, handlers.NewHealthHandler(components, log), metrics.Registry, log)
	go func() {
		log.Info("Status server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Status server failed", "error", err)
		}
	}()

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Listening for adventure requests...")

	<-quit
	log.Info("Shutdown signal received")

	w.Stop()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Worker did not finish the current request in time")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Status server forced to shutdown", "error", err)
	}

	log.Info("Game master exited")
}

// newRedisClient accepts either a redis:// URL or a bare host:port.
func newRedisClient(redisURL string) *redis.Client {
	if opts, err := redis.ParseURL(redisURL); err == nil {
		return redis.NewClient(opts)
	}
	return redis.NewClient(&redis.Options{Addr: redisURL})
}
