package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config is built once at startup and handed to every component.
type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" env-default:"info"`
	LogLevel    slog.Level
	StatusAddr  string `env:"STATUS_ADDR" env-default:":8081"`
	RedisURL    string `env:"REDIS_URL"`

	Chain     ChainConfig
	LLM       LLMConfig
	Image     ImageConfig
	Pinning   PinningConfig
	Narrative NarrativeConfig

	PollInterval time.Duration `env:"POLL_INTERVAL" env-default:"2s"`
}

// ChainConfig holds the RPC endpoint, signing key and contract target.
type ChainConfig struct {
	RPCURL          string `env:"WEB3_PROVIDER_URI" env-default:"http://127.0.0.1:7545"`
	PrivateKey      string `env:"PRIVATE_KEY" env-required:"true"`
	ContractAddress string `env:"CONTRACT_ADDRESS" env-required:"true"`
	ABIPath         string `env:"ABI_PATH" env-default:"abi.json"`
	ChainID         int64  `env:"CHAIN_ID" env-default:"1337"`
	GasLimit        uint64 `env:"GAS_LIMIT" env-default:"3000000"`
	GasPriceGwei    int64  `env:"GAS_PRICE_GWEI" env-default:"20"`
	FallbackCID     string `env:"FALLBACK_CID" env-default:"QmYv32Di2u9Pqn8aNkrKoTPgokNPZX5LeEiteSqCfxnmAy"`
}

// LLMConfig selects and configures the text model provider.
type LLMConfig struct {
	Provider        string `env:"LLM_PROVIDER" env-default:"gemini"`
	ModelName       string `env:"LLM_MODEL"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
}

// ImageConfig configures the Media Generator.
type ImageConfig struct {
	BaseURL     string        `env:"IMAGE_API_URL" env-default:"https://image.pollinations.ai"`
	Timeout     time.Duration `env:"IMAGE_TIMEOUT" env-default:"60s"`
	MaxAttempts int           `env:"IMAGE_MAX_ATTEMPTS" env-default:"2"`
	RetryDelay  time.Duration `env:"IMAGE_RETRY_DELAY" env-default:"2s"`
}

// PinningConfig configures the Storage Publisher.
type PinningConfig struct {
	BaseURL string        `env:"PINATA_API_URL" env-default:"https://api.pinata.cloud"`
	JWT     string        `env:"PINATA_JWT"`
	Timeout time.Duration `env:"PINATA_TIMEOUT" env-default:"60s"`
}

// NarrativeConfig overrides the built-in campaign text.
type NarrativeConfig struct {
	CampaignLore string `env:"CAMPAIGN_LORE"`
	ArtStyle     string `env:"ART_STYLE"`

	// ContentRating of G, PG or PG13 cleans profanity from committed stories.
	ContentRating string `env:"CONTENT_RATING" env-default:"PG13"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings cleanenv cannot express.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=%s", c.LLM.Provider)
		}
	case ProviderAnthropic:
		if c.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=%s", c.LLM.Provider)
		}
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=%s", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q (supported: gemini, anthropic, openai)", c.LLM.Provider)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.Image.MaxAttempts < 1 {
		return fmt.Errorf("IMAGE_MAX_ATTEMPTS must be at least 1, got %d", c.Image.MaxAttempts)
	}
	if c.Chain.FallbackCID == "" {
		return fmt.Errorf("FALLBACK_CID must not be empty")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
