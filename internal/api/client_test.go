package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"thinkchat/internal/config"
)

func TestNewClient(t *testing.T) {
	cfg := &config.Config{
		Server: "https://api.example.com/",
		APIKey: "sk-my-key",
		Model:  "gpt-4o",
	}
	c := NewClient(cfg)
	if c.baseURL != "https://api.example.com" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
	}
	if c.apiKey != "sk-my-key" {
		t.Errorf("apiKey = %q, want %q", c.apiKey, "sk-my-key")
	}
	if c.model != "gpt-4o" {
		t.Errorf("model = %q, want %q", c.model, "gpt-4o")
	}
}

func TestNormalizeServerURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare host", "https://api.example.com", "https://api.example.com"},
		{"trailing slash", "https://api.example.com/", "https://api.example.com"},
		{"versioned base", "https://api.example.com/v1", "https://api.example.com"},
		{"versioned base slash", "https://api.example.com/v1/", "https://api.example.com"},
		{"localhost", "http://localhost:8080", "http://localhost:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeServerURL(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeServerURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSetHeaders(t *testing.T) {
	t.Run("with key", func(t *testing.T) {
		c := &Client{apiKey: "sk-test"}
		req, _ := http.NewRequest("POST", "http://example.com", nil)
		c.setHeaders(req)

		if got := req.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want %q", got, "application/json")
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer sk-test")
		}
	})

	t.Run("no key", func(t *testing.T) {
		c := &Client{}
		req, _ := http.NewRequest("GET", "http://example.com", nil)
		c.setHeaders(req)

		if got := req.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want empty when no key", got)
		}
	})
}

func TestComplete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != "POST" {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if r.URL.Path != "/v1/chat/completions" {
				t.Errorf("path = %s, want /v1/chat/completions", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer sk-tok" {
				t.Errorf("Authorization = %q, want %q", got, "Bearer sk-tok")
			}
			body, _ := io.ReadAll(r.Body)
			var req ChatRequest
			if err := json.Unmarshal(body, &req); err != nil {
				t.Fatalf("unmarshal request: %v", err)
			}
			if req.Model != "gpt-4o-mini" {
				t.Errorf("Model = %q, want %q", req.Model, "gpt-4o-mini")
			}
			if req.Stream {
				t.Error("Stream = true, want false for Complete")
			}
			if len(req.Messages) != 1 || req.Messages[0].Content != "hi" {
				t.Errorf("Messages = %+v, want single user message", req.Messages)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"Thinking: greeting\nAnswer: hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":9,"total_tokens":14}}`)
		}))
		defer srv.Close()

		c := &Client{baseURL: srv.URL, httpClient: srv.Client(), apiKey: "sk-tok", model: "gpt-4o-mini"}
		resp, err := c.Complete([]ChatMessage{{Role: "user", Content: "hi"}})
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if got := resp.Choices[0].Message.Content; got != "Thinking: greeting\nAnswer: hello" {
			t.Errorf("content = %q", got)
		}
		if resp.Usage == nil || resp.Usage.TotalTokens != 14 {
			t.Errorf("Usage = %+v, want total 14", resp.Usage)
		}
	})

	t.Run("error payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{"error":{"message":"model not found","type":"invalid_request_error"}}`)
		}))
		defer srv.Close()

		c := &Client{baseURL: srv.URL, httpClient: srv.Client(), model: "nope"}
		_, err := c.Complete([]ChatMessage{{Role: "user", Content: "hi"}})
		if err == nil {
			t.Fatal("expected error for error payload")
		}
		if !strings.Contains(err.Error(), "model not found") {
			t.Errorf("error = %q, expected to contain server message", err.Error())
		}
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{"choices":[]}`)
		}))
		defer srv.Close()

		c := &Client{baseURL: srv.URL, httpClient: srv.Client()}
		_, err := c.Complete([]ChatMessage{{Role: "user", Content: "hi"}})
		if err == nil {
			t.Fatal("expected error for empty choices")
		}
	})

	t.Run("HTTP error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = fmt.Fprint(w, "invalid api key")
		}))
		defer srv.Close()

		c := &Client{baseURL: srv.URL, httpClient: srv.Client(), apiKey: "bad"}
		_, err := c.Complete([]ChatMessage{{Role: "user", Content: "hi"}})
		if err == nil {
			t.Fatal("expected error for 401 response")
		}
		if !strings.Contains(err.Error(), "401") {
			t.Errorf("error = %q, expected to contain 401", err.Error())
		}
	})
}

func TestCompleteStream(t *testing.T) {
	t.Run("snapshots accumulate", func(t *testing.T) {
		ssePayload := `data: {"choices":[{"index":0,"delta":{"role":"assistant"}}]}

data: {"choices":[{"index":0,"delta":{"content":"Thinking: a"}}]}

data: {"choices":[{"index":0,"delta":{"content":"b"}}]}

data: {"choices":[{"index":0,"delta":{"content":"\nAnswer: c"},"finish_reason":"stop"}]}

data: {"choices":[],"usage":{"prompt_tokens":10,"completion_tokens":8,"total_tokens":18}}

data: [DONE]

`
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			var req ChatRequest
			if err := json.Unmarshal(body, &req); err != nil {
				t.Fatalf("unmarshal request: %v", err)
			}
			if !req.Stream {
				t.Error("Stream = false, want true")
			}
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, ssePayload)
		}))
		defer srv.Close()

		c := &Client{baseURL: srv.URL, httpClient: srv.Client(), apiKey: "tok", model: "m"}

		var snapshots []string
		final, usage, err := c.CompleteStream([]ChatMessage{{Role: "user", Content: "q"}}, func(s string) {
			snapshots = append(snapshots, s)
		})
		if err != nil {
			t.Fatalf("CompleteStream() error = %v", err)
		}

		want := []string{"Thinking: a", "Thinking: ab", "Thinking: ab\nAnswer: c"}
		if len(snapshots) != len(want) {
			t.Fatalf("got %d snapshots %v, want %d", len(snapshots), snapshots, len(want))
		}
		for i := range want {
			if snapshots[i] != want[i] {
				t.Errorf("snapshot[%d] = %q, want %q", i, snapshots[i], want[i])
			}
		}
		if final != "Thinking: ab\nAnswer: c" {
			t.Errorf("final = %q", final)
		}
		if usage == nil || usage.TotalTokens != 18 {
			t.Errorf("usage = %+v, want total 18", usage)
		}
	})

	t.Run("skips keepalive and unparseable lines", func(t *testing.T) {
		ssePayload := `: keepalive

data: not json

data: {"choices":[{"index":0,"delta":{"content":"ok"},"finish_reason":"stop"}]}

data: [DONE]

`
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, ssePayload)
		}))
		defer srv.Close()

		c := &Client{baseURL: srv.URL, httpClient: srv.Client()}

		var snapshots []string
		final, _, err := c.CompleteStream([]ChatMessage{{Role: "user", Content: "q"}}, func(s string) {
			snapshots = append(snapshots, s)
		})
		if err != nil {
			t.Fatalf("CompleteStream() error = %v", err)
		}
		if len(snapshots) != 1 || snapshots[0] != "ok" {
			t.Errorf("snapshots = %v, want [ok]", snapshots)
		}
		if final != "ok" {
			t.Errorf("final = %q, want %q", final, "ok")
		}
	})

	t.Run("mid-stream error payload", func(t *testing.T) {
		ssePayload := `data: {"choices":[{"index":0,"delta":{"content":"partial"}}]}

data: {"error":{"message":"rate limited"}}

`
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, ssePayload)
		}))
		defer srv.Close()

		c := &Client{baseURL: srv.URL, httpClient: srv.Client()}

		final, _, err := c.CompleteStream([]ChatMessage{{Role: "user", Content: "q"}}, func(string) {})
		if err == nil {
			t.Fatal("expected error for mid-stream error payload")
		}
		if !strings.Contains(err.Error(), "rate limited") {
			t.Errorf("error = %q, expected server message", err.Error())
		}
		if final != "partial" {
			t.Errorf("final = %q, want text accumulated before the error", final)
		}
	})

	t.Run("HTTP error response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = fmt.Fprint(w, "unauthorized")
		}))
		defer srv.Close()

		c := &Client{baseURL: srv.URL, httpClient: srv.Client(), apiKey: "bad"}

		_, _, err := c.CompleteStream([]ChatMessage{{Role: "user", Content: "q"}}, func(string) {})
		if err == nil {
			t.Fatal("expected error for 401 response")
		}
		if !strings.Contains(err.Error(), "401") {
			t.Errorf("error = %q, expected to contain 401", err.Error())
		}
	})
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/v1/models" {
			t.Errorf("path = %s, want /v1/models", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"data":[{"id":"gpt-4o","owned_by":"openai"},{"id":"gpt-4o-mini","owned_by":"openai"}]}`)
	}))
	defer srv.Close()

	c := &Client{baseURL: srv.URL, httpClient: srv.Client(), apiKey: "tok"}
	resp, err := c.ListModels()
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("got %d models, want 2", len(resp.Data))
	}
	if resp.Data[0].ID != "gpt-4o" {
		t.Errorf("Data[0].ID = %q, want %q", resp.Data[0].ID, "gpt-4o")
	}
}

func TestBuildMessages(t *testing.T) {
	history := []ChatMessage{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}

	t.Run("with chain of thought", func(t *testing.T) {
		msgs := BuildMessages(true, history, "new question")
		if len(msgs) != 4 {
			t.Fatalf("got %d messages, want 4", len(msgs))
		}
		if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "Thinking:") {
			t.Errorf("msgs[0] = %+v, want system prompt with marker instructions", msgs[0])
		}
		if msgs[3].Role != "user" || msgs[3].Content != "new question" {
			t.Errorf("msgs[3] = %+v, want new user prompt last", msgs[3])
		}
	})

	t.Run("without chain of thought", func(t *testing.T) {
		msgs := BuildMessages(false, history, "new question")
		if len(msgs) != 3 {
			t.Fatalf("got %d messages, want 3", len(msgs))
		}
		if msgs[0].Role != "user" || msgs[0].Content != "earlier question" {
			t.Errorf("msgs[0] = %+v, want history first with no system prompt", msgs[0])
		}
	})

	t.Run("no history", func(t *testing.T) {
		msgs := BuildMessages(false, nil, "q")
		if len(msgs) != 1 || msgs[0].Content != "q" {
			t.Errorf("msgs = %+v, want single user message", msgs)
		}
	})
}

// Verify *Client implements ChatAPI at compile time.
var _ ChatAPI = (*Client)(nil)
