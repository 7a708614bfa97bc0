// Package llm provides a provider-agnostic chat completion client used
// by the extractor and the annotator.
//
// Both supported providers (OpenAI and xAI Grok) speak the OpenAI chat
// completion protocol, so a single implementation backed by the
// go-openai client covers both; the Grok constructor only swaps the
// API base URL.
package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"pyqbank/internal/logger"
)

// GrokBaseURL is the xAI endpoint, protocol-compatible with OpenAI.
const GrokBaseURL = "https://api.x.ai/v1"

// Request describes one completion call. Model, temperature, token
// budget and timeout are configured per call site.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Client is the minimal completion capability the pipeline depends on.
type Client interface {
	// Complete sends the prompt and returns the raw completion text.
	Complete(ctx context.Context, req Request) (string, error)
}

// RetryConfig bounds the retry loop around transient failures.
type RetryConfig struct {
	MaxAttempts int
	Backoffs    []time.Duration
}

// DefaultRetryConfig retries up to four times with growing pauses.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 4,
		Backoffs:    []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second},
	}
}

// withDefaults fills unset fields from DefaultRetryConfig, so callers
// can override just the attempt count.
func (r RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = def.MaxAttempts
	}
	if len(r.Backoffs) == 0 {
		r.Backoffs = def.Backoffs
	}
	return r
}

// OpenAIClient implements Client on top of the go-openai SDK.
type OpenAIClient struct {
	client *openai.Client
	retry  RetryConfig
	log    zerolog.Logger
}

// NewOpenAI creates a client for the OpenAI API.
func NewOpenAI(apiKey string, retry RetryConfig) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		retry:  retry.withDefaults(),
		log:    logger.WithComponent("llm-openai"),
	}
}

// NewGrok creates a client for the xAI API using the OpenAI protocol.
func NewGrok(apiKey string, retry RetryConfig) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = GrokBaseURL
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		retry:  retry.withDefaults(),
		log:    logger.WithComponent("llm-grok"),
	}
}

// NewWithClient creates a client with an explicit SDK client and retry
// configuration (for testing).
func NewWithClient(client *openai.Client, retry RetryConfig) *OpenAIClient {
	return &OpenAIClient{
		client: client,
		retry:  retry,
		log:    logger.WithComponent("llm"),
	}
}

// Complete sends the prompt, enforcing the per-request timeout and
// retrying timeouts, transport errors and HTTP 5xx. HTTP 4xx is fatal.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	const op = "Complete"

	messages := []openai.ChatCompletionMessage{}
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if req.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		}

		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       req.Model,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Messages:    messages,
		})
		if cancel != nil {
			cancel()
		}

		if err != nil {
			// Parent cancellation is not retried.
			if ctx.Err() != nil {
				return "", &ClientError{Op: op, Err: ctx.Err(), Model: req.Model, Attempts: attempt}
			}

			classified := classifyError(err)
			if errors.Is(classified, ErrRequestRejected) {
				return "", &ClientError{Op: op, Err: classified, Model: req.Model, Attempts: attempt}
			}

			lastErr = classified
			c.log.Warn().
				Err(err).
				Str("model", req.Model).
				Int("attempt", attempt).
				Int("max_attempts", c.retry.MaxAttempts).
				Msg("LLM request failed, retrying")

			if attempt < c.retry.MaxAttempts {
				c.sleep(ctx, attempt-1)
			}
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = ErrEmptyCompletion
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}

	return "", &ClientError{
		Op:       op,
		Err:      errors.Join(ErrUnavailable, lastErr),
		Model:    req.Model,
		Attempts: c.retry.MaxAttempts,
	}
}

func (c *OpenAIClient) sleep(ctx context.Context, idx int) {
	if len(c.retry.Backoffs) == 0 {
		return
	}
	if idx >= len(c.retry.Backoffs) {
		idx = len(c.retry.Backoffs) - 1
	}
	select {
	case <-time.After(c.retry.Backoffs[idx]):
	case <-ctx.Done():
	}
}

// classifyError maps SDK errors onto the package sentinels.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return err // 5xx, transient
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return err // rate limited, transient
		case apiErr.HTTPStatusCode >= http.StatusBadRequest:
			return errors.Join(ErrRequestRejected, err)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= http.StatusBadRequest && reqErr.HTTPStatusCode < http.StatusInternalServerError &&
			reqErr.HTTPStatusCode != http.StatusTooManyRequests {
			return errors.Join(ErrRequestRejected, err)
		}
	}
	return err
}
