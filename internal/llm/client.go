// Package llm is a minimal OpenRouter chat-completions client.
//
// The completion endpoint can fail two ways: a transport/HTTP error, or a
// 200 response whose body carries an error field. The orchestration
// protocol treats both as retryable failures of the call, so Complete
// applies one uniform fixed-interval retry policy to both and reports a
// single error after the attempts are exhausted.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tallybi/tallybi/internal/log"
)

// DefaultEndpoint is the OpenRouter chat-completions URL.
const DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

const (
	requestTimeout = 60 * time.Second
	maxTokens      = 2000
	temperature    = 0.1
)

// ErrExhausted indicates every retry attempt failed. The orchestrator maps
// it (and any other Complete error) to its fixed overloaded message.
var ErrExhausted = errors.New("completion attempts exhausted")

// Message is one turn of a chat-completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config configures a Client.
type Config struct {
	APIKey   string
	Model    string
	Endpoint string        // defaults to DefaultEndpoint
	Attempts int           // total attempts, defaults to 3
	Wait     time.Duration // fixed interval between attempts, defaults to 2s
}

// Client calls a chat-completion endpoint with bounded retry. A single rate
// limiter gates every attempt so retries cannot amplify load on the
// provider.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	attempts int
	wait     time.Duration
	http     *http.Client
	limiter  *rate.Limiter
	logger   log.Logger
}

// New creates a Client.
func New(cfg Config, logger log.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 2 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		attempts: cfg.Attempts,
		wait:     cfg.Wait,
		http:     &http.Client{Timeout: requestTimeout},
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		logger:   logger,
	}
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Complete sends the full message list and returns the model's reply text.
// Transport failures and in-band error fields are retried alike, with a
// fixed interval between attempts; context cancellation aborts the wait.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}

		text, err := c.complete(ctx, messages)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.logger.Warn("completion attempt failed",
			"attempt", attempt,
			"attempts", c.attempts,
			"error", err,
		)

		if attempt == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(c.wait):
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %v", ErrExhausted, c.attempts, lastErr)
}

func (c *Client) complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion endpoint returned HTTP %d", resp.StatusCode)
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	// Some providers report errors inside a 200 body.
	if parsed.Error != nil {
		return "", fmt.Errorf("completion error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
