package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tobyhearn/newshound/internal/config"
	"github.com/tobyhearn/newshound/internal/types"
)

// Provider selects the language-model backend wire format.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
	ProviderCustom Provider = "custom"
)

// Client talks to a language-model backend over HTTP.
type Client struct {
	cfg    *config.LLMConfig
	httpc  *http.Client
	logger *slog.Logger
}

// NewClient creates a backend client from config.
func NewClient(cfg *config.LLMConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: timeout},
		logger: logger.With("component", "llm_client"),
	}
}

// Generate sends a prompt and returns the raw completion. maxTokens
// overrides the configured default when positive.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	switch Provider(c.cfg.Provider) {
	case ProviderOllama:
		return c.generateOllama(ctx, prompt, maxTokens)
	case ProviderOpenAI:
		return c.generateOpenAI(ctx, prompt, maxTokens)
	case ProviderCustom:
		return c.generateCustom(ctx, prompt)
	default:
		return "", &types.EnrichError{Op: "generate", Err: fmt.Errorf("unsupported provider %q", c.cfg.Provider)}
	}
}

func (c *Client) generateOllama(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload := map[string]any{
		"model":  c.cfg.Model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"num_predict": maxTokens,
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &types.EnrichError{Op: "ollama request", Err: err}
	}
	defer resp.Body.Close()

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &types.EnrichError{Op: "decode ollama response", Err: err}
	}
	return result.Response, nil
}

func (c *Client) generateOpenAI(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxTokens,
		"temperature": c.cfg.Temperature,
	}

	body, _ := json.Marshal(payload)
	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &types.EnrichError{Op: "openai request", Err: err}
	}
	defer resp.Body.Close()

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &types.EnrichError{Op: "decode openai response", Err: err}
	}
	if len(result.Choices) == 0 {
		return "", &types.EnrichError{Op: "openai response", Err: fmt.Errorf("no choices returned")}
	}
	return result.Choices[0].Message.Content, nil
}

func (c *Client) generateCustom(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"prompt": prompt,
		"model":  c.cfg.Model,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &types.EnrichError{Op: "custom request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &types.EnrichError{Op: "read custom response", Err: err}
	}
	return string(respBody), nil
}

// TestConnection issues a trivial prompt to verify the backend is
// reachable.
func (c *Client) TestConnection(ctx context.Context) bool {
	resp, err := c.Generate(ctx, "Hello, please respond with 'OK' if you can see this message.", 10)
	if err != nil {
		c.logger.Error("backend connection test failed", "error", err)
		return false
	}
	return bytes.Contains(bytes.ToLower([]byte(resp)), []byte("ok"))
}
