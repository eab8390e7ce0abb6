package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jwebster45206/nexus-gamemaster/pkg/adventure"
)

const (
	imageWidth  = 512
	imageHeight = 512

	DefaultImageTimeout     = 60 * time.Second
	DefaultImageMaxAttempts = 2
	DefaultImageRetryDelay  = 2 * time.Second
)

// ImageGenerator renders one illustration per prompt. ok=false means every
// attempt failed; callers fall back instead of treating it as an error.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, tokenID *big.Int) (*adventure.MediaArtifact, bool)
}

// ImageGenService calls a Pollinations-style GET endpoint
type ImageGenService struct {
	baseURL     string
	maxAttempts int
	retryDelay  time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ ImageGenerator = (*ImageGenService)(nil)

// ImageGenOptions tune the retry policy. Zero values use the defaults.
type ImageGenOptions struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

func NewImageGenService(baseURL string, opts ImageGenOptions, logger *slog.Logger) *ImageGenService {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultImageTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultImageMaxAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = DefaultImageRetryDelay
	}
	return &ImageGenService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger: logger,
	}
}

// ImageURL builds the request URL. The seed is the token id so a hero's
// render is reproducible for the same prompt.
func (s *ImageGenService) ImageURL(prompt string, tokenID *big.Int) string {
	q := url.Values{}
	q.Set("width", fmt.Sprint(imageWidth))
	q.Set("height", fmt.Sprint(imageHeight))
	q.Set("seed", tokenID.String())
	q.Set("nologo", "true")
	return fmt.Sprintf("%s/prompt/%s?%s", s.baseURL, url.PathEscape(prompt), q.Encode())
}

func (s *ImageGenService) Generate(ctx context.Context, prompt string, tokenID *big.Int) (*adventure.MediaArtifact, bool) {
	endpoint := s.ImageURL(prompt, tokenID)
	s.logger.Info("Painting scene", "token_id", tokenID.String(), "prompt", truncate(prompt, 30))

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		artifact, err := s.fetch(ctx, endpoint)
		if err == nil {
			s.logger.Info("Image rendered", "token_id", tokenID.String(), "attempt", attempt, "size_bytes", len(artifact.Data))
			return artifact, true
		}

		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			s.logger.Warn("Image attempt timed out", "token_id", tokenID.String(), "attempt", attempt, "error", err)
		} else {
			s.logger.Warn("Image attempt failed", "token_id", tokenID.String(), "attempt", attempt, "error", err)
		}

		if attempt == s.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			s.logger.Warn("Image generation cancelled", "token_id", tokenID.String(), "error", ctx.Err())
			return nil, false
		case <-time.After(s.retryDelay):
		}
	}

	s.logger.Error("Image generation failed after retries, using fallback", "token_id", tokenID.String(), "attempts", s.maxAttempts)
	return nil, false
}

func (s *ImageGenService) fetch(ctx context.Context, endpoint string) (*adventure.MediaArtifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("server busy: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("server returned an empty image")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &adventure.MediaArtifact{Data: data, ContentType: contentType}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
