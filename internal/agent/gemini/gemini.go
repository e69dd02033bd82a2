// Package gemini implements agent.Model over the Gemini generateContent REST
// endpoint.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/healthline/healthline/internal/agent"
	"github.com/healthline/healthline/internal/platform/metrics"
)

// RetryPolicy retries with delay initial × base^(attempt-1), capped at Max.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	ExpBase      float64
	MaxDelay     time.Duration
	StatusCodes  []int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     5,
		InitialDelay: time.Second,
		ExpBase:      7,
		MaxDelay:     60 * time.Second,
		StatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// Delay is the wait after the given failed attempt, counting from 1.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.ExpBase, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

func (p RetryPolicy) retryable(code int) bool {
	for _, c := range p.StatusCodes {
		if c == code {
			return true
		}
	}
	return false
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Retry   RetryPolicy
}

type Client struct {
	http  *resty.Client
	model string
	retry RetryPolicy
}

// New builds a client whose retries are driven by resty: only the policy's
// status codes are retried, transport errors are returned at once.
func New(cfg Config) *Client {
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry.Attempts = 1
	}
	maxWait := cfg.Retry.MaxDelay
	if maxWait <= 0 {
		maxWait = time.Duration(math.MaxInt64)
	}

	c := &Client{model: cfg.Model, retry: cfg.Retry}
	c.http = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey).
		SetRetryCount(cfg.Retry.Attempts - 1).
		SetRetryWaitTime(cfg.Retry.InitialDelay).
		SetRetryMaxWaitTime(maxWait).
		AddRetryCondition(c.shouldRetry).
		SetRetryAfter(c.retryAfter)
	return c
}

func (c *Client) shouldRetry(resp *resty.Response, err error) bool {
	return err == nil && resp != nil && c.retry.retryable(resp.StatusCode())
}

// retryAfter runs only when another attempt will be made.
func (c *Client) retryAfter(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
	delay := c.retry.Delay(resp.Request.Attempt)
	metrics.RecordLLMRetry(c.model, resp.StatusCode())
	zerolog.Ctx(resp.Request.Context()).Warn().
		Int("status", resp.StatusCode()).
		Int("attempt", resp.Request.Attempt).
		Dur("delay", delay).
		Msg("gemini call failed, retrying")
	return delay, nil
}

func (c *Client) Name() string { return c.model }

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %s", e.Code, e.Message)
}

type wireRequest struct {
	SystemInstruction *agent.Content `json:"systemInstruction,omitempty"`
	Contents          []agent.Content `json:"contents"`
	Tools             []wireTool      `json:"tools,omitempty"`
}

type wireTool struct {
	FunctionDeclarations []agent.FunctionDeclaration `json:"functionDeclarations"`
}

type wireResponse struct {
	Candidates []struct {
		Content      agent.Content `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type wireError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) Generate(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	body := wireRequest{Contents: req.Contents}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &agent.Content{Parts: []agent.Part{{Text: req.SystemInstruction}}}
	}
	if len(req.Tools) > 0 {
		body.Tools = []wireTool{{FunctionDeclarations: req.Tools}}
	}

	resp, err := c.generate(ctx, &body)
	metrics.RecordLLMCall(c.model, err)
	return resp, err
}

func (c *Client) generate(ctx context.Context, body *wireRequest) (*agent.Response, error) {
	var out wireResponse
	var apiErr wireError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("model", c.model).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return nil, &StatusError{Code: resp.StatusCode(), Message: msg}
	}
	if len(out.Candidates) == 0 {
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("gemini: prompt blocked: %s", out.PromptFeedback.BlockReason)
		}
		return nil, errors.New("gemini: response has no candidates")
	}
	cand := out.Candidates[0]
	return &agent.Response{Content: cand.Content, FinishReason: cand.FinishReason}, nil
}
