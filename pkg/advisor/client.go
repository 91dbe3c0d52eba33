package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/netpulse/netpulse/pkg/types"
)

// Defaults for an unset Config field.
const (
	DefaultBaseURL      = "https://api.aimlapi.com"
	DefaultModel        = "meta-llama/Llama-3.2-3B-Instruct-Turbo"
	DefaultAPIKeyEnv    = "AIML_API_KEY"
	DefaultTimeout      = 30 * time.Second
	DefaultSystemPrompt = "You are a network optimization AI. You are tasked with optimizing device " +
		"performance by reducing latency and packet loss while balancing bandwidth usage."

	completionsPath = "/v1/chat/completions"
	maxErrorBody    = 4 << 10
)

// Config holds the connection settings for the suggestion endpoint.
// The API key itself is never stored; it is read from the APIKeyEnv
// environment variable on every call.
type Config struct {
	BaseURL      string
	Model        string
	APIKeyEnv    string
	Timeout      time.Duration
	SystemPrompt string
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
}

// Client calls the chat-completion endpoint. It is safe for concurrent use.
type Client struct {
	cfg    Config
	client *http.Client
	group  singleflight.Group
}

// New returns a Client for cfg with unset fields defaulted.
func New(cfg Config) *Client {
	cfg.defaults()
	c := &Client{cfg: cfg}
	c.client = &http.Client{
		Transport: &bearerRoundTripper{base: http.DefaultTransport, token: c.apiKey},
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

func (c *Client) apiKey() string { return os.Getenv(c.cfg.APIKeyEnv) }

// bearerRoundTripper injects the API key into every outgoing request.
type bearerRoundTripper struct {
	base  http.RoundTripper
	token func() string
}

func (t *bearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token())
	return t.base.RoundTrip(req)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Suggest sends prompt as the user message and returns the first choice's
// content. The call is bounded by Config.Timeout and by ctx.
func (c *Client) Suggest(ctx context.Context, prompt string) (string, error) {
	const op = "chat completion"

	if c.apiKey() == "" {
		return "", &ExternalServiceError{Op: op, Err: fmt.Errorf("environment variable %s is not set", c.cfg.APIKeyEnv)}
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", &ExternalServiceError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return "", &ExternalServiceError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &ExternalServiceError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ExternalServiceError{Op: op, StatusCode: resp.StatusCode, Err: errorMessage(resp.Body)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ExternalServiceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Choices) == 0 {
		return "", &ExternalServiceError{Op: op, StatusCode: resp.StatusCode, Err: errors.New("response has no choices")}
	}
	content := out.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &ExternalServiceError{Op: op, StatusCode: resp.StatusCode, Err: errors.New("response content is empty")}
	}
	return content, nil
}

// errorMessage extracts a readable reason from a non-2xx body.
func errorMessage(r io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var ae apiError
	if json.Unmarshal(raw, &ae) == nil && ae.Error.Message != "" {
		return errors.New(ae.Error.Message)
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return errors.New(msg)
	}
	return errors.New("empty response body")
}

// SuggestBatch asks for a suggestion about batch. Concurrent calls for the
// same batch ID share a single request. The shared request is detached from
// any one caller's cancellation; each caller still returns as soon as its
// own ctx is done.
func (c *Client) SuggestBatch(ctx context.Context, batch *types.Batch) (string, error) {
	if batch == nil || len(batch.Devices) == 0 {
		return "", &ExternalServiceError{Op: "suggest batch", Err: errors.New("batch has no devices")}
	}
	prompt := BuildPrompt(batch.Devices)
	shared := context.WithoutCancel(ctx)

	ch := c.group.DoChan(batch.ID, func() (interface{}, error) {
		return c.Suggest(shared, prompt)
	})
	select {
	case <-ctx.Done():
		return "", &ExternalServiceError{Op: "suggest batch", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
