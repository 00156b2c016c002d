package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"defi-chat/internal/domain"
)

const completionsPath = "/v1/chat/completions"

// ErrNoContent is returned when a successful response carries no usable
// message content.
var ErrNoContent = errors.New("deepseek: no content in response")

// chatRequest is the request shape for the Chat Completions endpoint.
type chatRequest struct {
	Model       string                 `json:"model"`
	Temperature float64                `json:"temperature"`
	MaxTokens   int                    `json:"max_tokens"`
	Messages    []domain.PromptMessage `json:"messages"`
}

// chatResponse is the minimal response shape returned by the Chat Completions endpoint.
type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Request describes a single completion call.
type Request struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []domain.PromptMessage
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	body := e.Body
	if body == "" {
		body = "unknown"
	}
	return fmt.Sprintf("DeepSeek request failed (%d): %s", e.StatusCode, body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused client for the DeepSeek (OpenAI-compatible) chat
// completions API. Credentials and endpoint travel with each Request, so one
// Client is shared by all invocations.
type Client struct {
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client. Deadlines come from the caller's context, so the
// default HTTP client has no timeout of its own.
func NewClient(opts ...Option) *Client {
	c := &Client{httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return http.DefaultClient
}

// EndpointURL strips a single trailing slash from baseURL and appends the
// completions path.
func EndpointURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + completionsPath
}

// Complete issues one chat completion and returns the trimmed content of the
// first choice.
func (c *Client) Complete(ctx context.Context, in Request) (string, error) {
	if in.APIKey == "" {
		return "", errors.New("deepseek: api key must not be empty")
	}

	body, err := json.Marshal(chatRequest{
		Model:       in.Model,
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
		Messages:    in.Messages,
	})
	if err != nil {
		return "", fmt.Errorf("deepseek: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, EndpointURL(in.BaseURL), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("deepseek: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+in.APIKey)

	raw, err := c.doJSONRequest(req)
	if err != nil {
		return "", err
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("deepseek: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", ErrNoContent
	}
	msg := payload.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return "", ErrNoContent
	}
	content := strings.TrimSpace(*msg.Content)
	if content == "" {
		return "", ErrNoContent
	}
	return content, nil
}

func (c *Client) doJSONRequest(req *http.Request) ([]byte, error) {
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("deepseek: read response body: %w", err)
	}
	return buf, nil
}
