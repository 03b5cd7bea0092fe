package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lyricat/goutils/structs"
)

const (
	DefaultEndpoint = "https://ai.hackclub.com/proxy/v1/chat/completions"
	DefaultModel    = "google/gemini-2.5-flash"
	DefaultTimeout  = 15 * time.Second

	maxErrorBodyChars = 512
)

type HTTPConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HTTPBackend posts a single-message chat completion request with bearer auth.
type HTTPBackend struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

func NewHTTPBackend(cfg HTTPConfig) *HTTPBackend {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPBackend{
		endpoint: endpoint,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		model:    model,
		http:     client,
	}
}

func (b *HTTPBackend) Complete(ctx context.Context, prompt string) ([]byte, error) {
	payload := structs.JSONMap{
		"model": b.model,
		"messages": []structs.JSONMap{
			{"role": "user", "content": prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("read generation response: %w", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := strings.TrimSpace(string(raw))
		if len(text) > maxErrorBodyChars {
			text = text[:maxErrorBodyChars]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: text}
	}
	return raw, nil
}
