package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const DefaultPinataURL = "https://api.pinata.cloud"

// ContentPinner uploads bytes to content-addressed storage. ok=false is the
// expected failure signal; no error is raised.
type ContentPinner interface {
	Pin(ctx context.Context, data []byte, filename string) (cid string, ok bool)
}

// PinataService pins files through Pinata's pinFileToIPFS endpoint
type PinataService struct {
	baseURL    string
	jwt        string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ContentPinner = (*PinataService)(nil)

type pinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

func NewPinataService(baseURL string, jwt string, timeout time.Duration, logger *slog.Logger) *PinataService {
	if baseURL == "" {
		baseURL = DefaultPinataURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PinataService{
		baseURL: strings.TrimRight(baseURL, "/"),
		jwt:     jwt,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Pin makes a single upload attempt.
func (p *PinataService) Pin(ctx context.Context, data []byte, filename string) (string, bool) {
	p.logger.Info("Uploading to Pinata", "filename", filename, "size_bytes", len(data))

	cid, err := p.upload(ctx, data, filename)
	if err != nil {
		p.logger.Error("Pinata upload failed", "filename", filename, "error", err)
		return "", false
	}

	p.logger.Info("Pinned", "cid", cid)
	return cid, true
}

func (p *PinataService) upload(ctx context.Context, data []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.jwt)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pinata returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var pinResp pinataResponse
	if err := json.Unmarshal(respBody, &pinResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if pinResp.IpfsHash == "" {
		return "", fmt.Errorf("response has no IpfsHash: %s", string(respBody))
	}
	return pinResp.IpfsHash, nil
}
