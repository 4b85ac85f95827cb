package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prometheux/docschat/pkg/llm"
)

const (
	// DefaultMaxTokens caps the completion length.
	DefaultMaxTokens = 1500

	// DefaultTemperature keeps code answers close to the documentation.
	DefaultTemperature = 0.3

	// NoResponseText replaces an empty completion.
	NoResponseText = "No response"
)

// Completion is the result of a single provider call.
type Completion struct {
	Text string

	// TokensUsed is the provider's total token count. It is only meaningful
	// when HasUsage is true.
	TokensUsed int
	HasUsage   bool
}

// TokensUsedValue returns the token count, or "unknown" when the provider did
// not report usage.
func (c *Completion) TokensUsedValue() any {
	if !c.HasUsage {
		return "unknown"
	}
	return c.TokensUsed
}

// Client issues chat-completion calls. It holds no per-request state and is
// safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	logger      *zap.Logger
	maxTokens   int
	temperature float64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithGeneration overrides max_tokens and temperature.
func WithGeneration(maxTokens int, temperature float64) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
		c.temperature = temperature
	}
}

// NewClient creates a Client. The default HTTP client sets no timeout of its
// own; the request context bounds the call.
func NewClient(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		logger:      logger,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends messages to the backend chosen by d and returns the
// completion text. It makes exactly one attempt.
func (c *Client) Complete(ctx context.Context, d Decision, messages []llm.Message) (*Completion, error) {
	if !d.Available() {
		return nil, ErrNoProvider
	}

	chatReq := llm.ChatRequest{
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if d.Active == KindPrimary {
		chatReq.Model = d.ModelID
	}

	reqBody, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint, err := completionURL(d)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.Active == KindSecondary {
		httpReq.Header.Set("api-key", d.Credential)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+d.Credential)
	}

	c.logger.Debug("forwarding request to provider",
		zap.String("provider", d.Name),
		zap.String("model", d.ModelID),
		zap.Int("message_count", len(messages)),
		zap.Int("body_size", len(reqBody)),
	)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.logger.Error("provider returned error",
			zap.String("provider", d.Name),
			zap.Int("status", httpResp.StatusCode),
			zap.String("message", upstreamMessage(body)),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, &ProviderError{Provider: d.Name, StatusCode: httpResp.StatusCode, Body: string(body)}
	}

	var chatResp llm.ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &ProviderError{
			Provider:   d.Name,
			StatusCode: httpResp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("unmarshal response: %w", err),
		}
	}

	completion := &Completion{Text: chatResp.Content()}
	if completion.Text == "" {
		completion.Text = NoResponseText
	}
	if chatResp.Usage != nil && chatResp.Usage.TotalTokens > 0 {
		completion.TokensUsed = chatResp.Usage.TotalTokens
		completion.HasUsage = true
	}

	c.logger.Debug("received response from provider",
		zap.String("provider", d.Name),
		zap.Int("tokens", completion.TokensUsed),
		zap.Duration("duration", time.Since(start)),
	)

	return completion, nil
}

// completionURL builds the chat-completions URL for the selected backend.
func completionURL(d Decision) (string, error) {
	base := strings.TrimRight(d.Endpoint, "/")
	if base == "" {
		return "", fmt.Errorf("%s endpoint is not configured", d.Name)
	}

	if d.Active == KindPrimary {
		return base + "/chat/completions", nil
	}

	q := url.Values{}
	q.Set("api-version", d.APIVersion)
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?%s",
		base, url.PathEscape(d.ModelID), q.Encode()), nil
}

// upstreamMessage extracts the provider's error message for logging, falling
// back to the raw body.
func upstreamMessage(body []byte) string {
	var errResp llm.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(body)
}
