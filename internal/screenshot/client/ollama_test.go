package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewOllamaClient(t *testing.T) {
	t.Run("default options", func(t *testing.T) {
		c := NewOllamaClient("")
		if c.url != DefaultURL {
			t.Errorf("url = %q, want %q", c.url, DefaultURL)
		}
		if c.model != DefaultModel {
			t.Errorf("model = %q, want %q", c.model, DefaultModel)
		}
		if c.maxTokens != DefaultMaxTokens {
			t.Errorf("maxTokens = %d, want %d", c.maxTokens, DefaultMaxTokens)
		}
		if c.format != ResponseFormatText {
			t.Errorf("format = %q, want %q", c.format, ResponseFormatText)
		}
		if c.httpClient.Timeout != 0 {
			t.Errorf("timeout = %v, want none", c.httpClient.Timeout)
		}
	})

	t.Run("with custom timeout", func(t *testing.T) {
		c := NewOllamaClient("http://localhost:11434", WithTimeout(30*time.Second))
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
	})

	t.Run("with ollama response format", func(t *testing.T) {
		c := NewOllamaClient("http://localhost:11434", WithResponseFormat(ResponseFormatOllama))
		if c.format != ResponseFormatOllama {
			t.Errorf("format = %q, want %q", c.format, ResponseFormatOllama)
		}
	})

	t.Run("with model and max tokens", func(t *testing.T) {
		c := NewOllamaClient("http://localhost:11434", WithModel("mistral"), WithMaxTokens(128))
		if c.model != "mistral" || c.maxTokens != 128 {
			t.Errorf("got model=%q maxTokens=%d", c.model, c.maxTokens)
		}
	})
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		prompt string
		want   string
	}{
		{
			name: "text only",
			text: "Error 404",
			want: Preamble + "Error 404",
		},
		{
			name:   "with user prompt",
			text:   "Error 404",
			prompt: "what does it mean?",
			want:   Preamble + "Error 404\n\nUser prompt: what does it mean?",
		},
		{
			name: "empty text",
			text: "",
			want: Preamble,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildPrompt(tt.text, tt.prompt); got != tt.want {
				t.Errorf("BuildPrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOllamaClient_Explain(t *testing.T) {
	t.Run("successful text response", func(t *testing.T) {
		var got completionRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %q, want POST", r.Method)
			}
			if r.URL.Path != "/v1/complete" {
				t.Errorf("path = %q, want /v1/complete", r.URL.Path)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decode body: %v", err)
			}
			w.Write([]byte("It is a not-found page."))
		}))
		defer server.Close()

		c := NewOllamaClient(server.URL + "/v1/complete")
		out, err := c.Explain(context.Background(), "Error 404", "")
		if err != nil {
			t.Fatalf("Explain() error = %v", err)
		}
		if out.Text != "It is a not-found page." {
			t.Errorf("Explain() = %q", out.Text)
		}
		if out.SourceText != "Error 404" {
			t.Errorf("SourceText = %q, want %q", out.SourceText, "Error 404")
		}
		if got.Model != DefaultModel {
			t.Errorf("model = %q, want %q", got.Model, DefaultModel)
		}
		if got.MaxTokens != DefaultMaxTokens {
			t.Errorf("max_tokens = %d, want %d", got.MaxTokens, DefaultMaxTokens)
		}
		if got.Prompt != Preamble+"Error 404" {
			t.Errorf("prompt = %q", got.Prompt)
		}
	})

	t.Run("user prompt appended", func(t *testing.T) {
		var got completionRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		c := NewOllamaClient(server.URL)
		if _, err := c.Explain(context.Background(), "text", "why?"); err != nil {
			t.Fatalf("Explain() error = %v", err)
		}
		if !strings.HasSuffix(got.Prompt, "\n\nUser prompt: why?") {
			t.Errorf("prompt = %q", got.Prompt)
		}
	})

	t.Run("ollama json response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"model":"llama2","response":"A login form.","done":true}`))
		}))
		defer server.Close()

		c := NewOllamaClient(server.URL, WithResponseFormat(ResponseFormatOllama))
		out, err := c.Explain(context.Background(), "Username Password", "")
		if err != nil {
			t.Fatalf("Explain() error = %v", err)
		}
		if out.Text != "A login form." {
			t.Errorf("Explain() = %q", out.Text)
		}
	})

	t.Run("ollama malformed response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		c := NewOllamaClient(server.URL, WithResponseFormat(ResponseFormatOllama))
		out, err := c.Explain(context.Background(), "x", "")
		if out != nil {
			t.Errorf("expected no explanation on decode failure, got %+v", out)
		}
		if !errors.Is(err, ErrResponseDecodeFailed) {
			t.Errorf("expected ErrResponseDecodeFailed, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("model not loaded"))
		}))
		defer server.Close()

		c := NewOllamaClient(server.URL)
		_, err := c.Explain(context.Background(), "x", "")

		var svcErr *ServiceError
		if !errors.As(err, &svcErr) {
			t.Fatalf("expected *ServiceError, got %v", err)
		}
		if svcErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("StatusCode = %d, want 500", svcErr.StatusCode)
		}
		if !strings.Contains(svcErr.Error(), "model not loaded") {
			t.Errorf("error should contain body, got %q", svcErr.Error())
		}
	})

	t.Run("single attempt on failure", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewOllamaClient(server.URL)
		c.Explain(context.Background(), "x", "")
		if calls != 1 {
			t.Errorf("expected exactly 1 request, got %d", calls)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		c := NewOllamaClient(url)
		_, err := c.Explain(context.Background(), "x", "")
		if !errors.Is(err, ErrConnectionFailed) {
			t.Errorf("expected ErrConnectionFailed, got %v", err)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		c := NewOllamaClient(server.URL)
		_, err := c.Explain(ctx, "x", "")
		if err == nil {
			t.Error("expected error for cancelled context")
		}
	})

	t.Run("timeout option applies", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer server.Close()

		c := NewOllamaClient(server.URL, WithTimeout(20*time.Millisecond))
		_, err := c.Explain(context.Background(), "x", "")
		if !errors.Is(err, ErrConnectionFailed) {
			t.Errorf("expected ErrConnectionFailed on timeout, got %v", err)
		}
	})
}

func TestOllamaClient_parseResponse(t *testing.T) {
	c := NewOllamaClient("")
	out, err := c.parseResponse(io.NopCloser(strings.NewReader("  raw body\n")))
	if err != nil {
		t.Fatalf("parseResponse() error = %v", err)
	}
	if out != "  raw body\n" {
		t.Errorf("text format must return body verbatim, got %q", out)
	}
}
