// Package client provides the explanation service client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Explainer sends extracted text and receives an explanation.
type Explainer interface {
	Explain(ctx context.Context, text, prompt string) (*Explanation, error)
}

// ResponseFormat specifies how the service response body is interpreted.
type ResponseFormat string

const (
	// ResponseFormatText returns the body verbatim.
	ResponseFormatText ResponseFormat = "text"
	// ResponseFormatOllama decodes {"response": "..."} from the body.
	ResponseFormatOllama ResponseFormat = "ollama"
)

// Request defaults.
const (
	DefaultURL       = "http://127.0.0.1:11434/v1/complete"
	DefaultModel     = "llama2"
	DefaultMaxTokens = 512
)

// Preamble is prepended to every prompt.
const Preamble = "You are an assistant. Explain the following screenshot text in a concise, user-friendly way:\n\n"

var (
	// ErrConnectionFailed is returned when the service cannot be reached. This
	// is the usual failure when the local model service is not running.
	ErrConnectionFailed = errors.New("explanation service unreachable")
	// ErrResponseDecodeFailed is returned when the response body cannot be read
	// or decoded.
	ErrResponseDecodeFailed = errors.New("explanation response decode failed")
)

// ServiceError is returned when the service answers with a non-success status.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("explanation service error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("explanation service error: status %d: %s", e.StatusCode, e.Body)
}

// OllamaClient implements Explainer against a local Ollama-style endpoint.
// Each call makes exactly one attempt.
type OllamaClient struct {
	url        string
	model      string
	maxTokens  int
	httpClient *http.Client
	format     ResponseFormat
}

// Option configures the OllamaClient.
type Option func(*OllamaClient)

// WithTimeout sets the HTTP request timeout. The default is no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *OllamaClient) {
		c.httpClient.Timeout = d
	}
}

// WithResponseFormat sets how the response body is interpreted.
func WithResponseFormat(format ResponseFormat) Option {
	return func(c *OllamaClient) {
		if format != "" {
			c.format = format
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *OllamaClient) {
		c.httpClient = client
	}
}

// WithModel sets the model name sent in the payload.
func WithModel(model string) Option {
	return func(c *OllamaClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens sets the generation length cap.
func WithMaxTokens(n int) Option {
	return func(c *OllamaClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// NewOllamaClient creates a client posting to url. An empty url uses DefaultURL.
func NewOllamaClient(url string, opts ...Option) *OllamaClient {
	if url == "" {
		url = DefaultURL
	}
	c := &OllamaClient{
		url:        url,
		model:      DefaultModel,
		maxTokens:  DefaultMaxTokens,
		httpClient: &http.Client{},
		format:     ResponseFormatText,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BuildPrompt returns the full prompt for text and an optional user prompt.
func BuildPrompt(text, prompt string) string {
	var b strings.Builder
	b.WriteString(Preamble)
	b.WriteString(text)
	if prompt != "" {
		b.WriteString("\n\nUser prompt: ")
		b.WriteString(prompt)
	}
	return b.String()
}

// Explanation is the model's answer for one piece of extracted text.
type Explanation struct {
	SourceText string
	Text       string
}

// Explain sends text (and an optional user prompt) to the service and returns
// its explanation.
func (c *OllamaClient) Explain(ctx context.Context, text, prompt string) (*Explanation, error) {
	payload, err := json.Marshal(completionRequest{
		Model:     c.model,
		Prompt:    BuildPrompt(text, prompt),
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrConnectionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ServiceError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	out, err := c.parseResponse(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Explanation{SourceText: text, Text: out}, nil
}

func (c *OllamaClient) parseResponse(body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrResponseDecodeFailed, err)
	}

	if c.format == ResponseFormatText {
		return string(data), nil
	}

	var resp completionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrResponseDecodeFailed, err)
	}
	return resp.Response, nil
}

type completionRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

// completionResponse is the JSON body returned by Ollama's generate endpoints.
type completionResponse struct {
	Response string `json:"response"`
}
