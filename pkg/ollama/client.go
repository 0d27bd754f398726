package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/omozharovskyi/llmvm/pkg/clock"
)

const (
	defaultTimeout       = 5 * time.Second
	defaultCheckRetries  = 7
	defaultCheckInterval = 30 * time.Second
)

// Config holds settings for the Ollama API client.
type Config struct {
	Port          int           // API port; DefaultPort unless overridden
	Timeout       time.Duration // per-request timeout
	CheckRetries  int           // availability check attempts
	CheckInterval time.Duration // pause between availability attempts

	BaseURL string // Optional, for testing; overrides host-derived URLs

	Clock  clock.Clock
	Logger *slog.Logger
}

// Client talks to an Ollama server's REST API.
type Client struct {
	port          int
	baseURL       string
	client        *http.Client
	checkRetries  int
	checkInterval time.Duration
	clk           clock.Clock
	logger        *slog.Logger
}

// Model is one entry from the server's model list.
type Model struct {
	Name string `json:"name"`
}

func New(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CheckRetries == 0 {
		cfg.CheckRetries = defaultCheckRetries
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = defaultCheckInterval
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		port:          cfg.Port,
		baseURL:       cfg.BaseURL,
		client:        &http.Client{Timeout: cfg.Timeout},
		checkRetries:  cfg.CheckRetries,
		checkInterval: cfg.CheckInterval,
		clk:           clk,
		logger:        logger,
	}
}

func (c *Client) hostURL(host string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.port))
}

// Tags lists the models the server holds locally.
func (c *Client) Tags(ctx context.Context, host string) ([]Model, error) {
	url := c.hostURL(host) + "/api/tags"
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tagsResp tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return tagsResp.Models, nil
}

// Generate runs a one-shot completion, mostly useful as a smoke test.
func (c *Client) Generate(ctx context.Context, host, model, prompt string) (string, error) {
	reqBody := generateRequest{Model: model, Prompt: prompt, Stream: false}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.hostURL(host) + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return genResp.Response, nil
}

// WaitModelAvailable polls the model list until the pulled model shows up.
// Reachability failures are retried, since the firewall rule and the service
// restart race the first check. A reachable server that does not list the
// model is definitive: the pull either happened or it did not.
func (c *Client) WaitModelAvailable(ctx context.Context, host, model string) bool {
	for attempt := 1; attempt <= c.checkRetries; attempt++ {
		models, err := c.Tags(ctx, host)
		if err == nil {
			if hasModel(models, model) {
				c.logger.Info("model available",
					slog.String("host", host),
					slog.String("model", model),
				)
				return true
			}
			c.logger.Error("model not present on server",
				slog.String("host", host),
				slog.String("model", model),
				slog.Int("models", len(models)),
			)
			return false
		}

		c.logger.Warn("availability check failed",
			slog.String("host", host),
			slog.Int("attempt", attempt),
			slog.Int("retries", c.checkRetries),
			slog.String("error", err.Error()),
		)

		if attempt == c.checkRetries {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-c.clk.After(c.checkInterval):
		}
	}
	return false
}

// hasModel matches either the exact name or a tagged variant of it, since
// pulling "llama2" yields "llama2:latest" in the list.
func hasModel(models []Model, model string) bool {
	for _, m := range models {
		if m.Name == model || strings.HasPrefix(m.Name, model+":") {
			return true
		}
	}
	return false
}

type tagsResponse struct {
	Models []Model `json:"models"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}
