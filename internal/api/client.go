package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"thinkchat/internal/config"
)

// ChainOfThoughtPrompt asks the model to structure replies with the marker
// protocol the response classifier understands.
const ChainOfThoughtPrompt = `When answering, first explain your reasoning on a line starting with "Thinking:" and then give your final answer on a line starting with "Answer:".`

type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	model      string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: NormalizeServerURL(cfg.Server),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

// NormalizeServerURL trims trailing slashes and a trailing /v1 so configs
// can hold either the bare host or the versioned base.
func NormalizeServerURL(server string) string {
	s := strings.TrimRight(server, "/")
	s = strings.TrimSuffix(s, "/v1")
	return s
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// --- Chat Completions ---

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

type ChatResponse struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends a non-streaming chat request and returns the full reply.
func (c *Client) Complete(messages []ChatMessage) (*ChatResponse, error) {
	reqBody := ChatRequest{
		Model:    c.model,
		Messages: messages,
	}
	var resp ChatResponse
	if err := c.doJSON("POST", "/v1/chat/completions", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("server error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("server returned no choices")
	}
	return &resp, nil
}

// --- Streaming ---

type streamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

type streamChunk struct {
	Choices []streamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SnapshotCallback receives the full accumulated reply text after every
// chunk, not the delta. Downstream classification re-evaluates the whole
// snapshot each time.
type SnapshotCallback func(snapshot string)

// CompleteStream sends a streaming chat request. Each SSE delta is appended
// to the running text and the callback sees the accumulated snapshot. The
// final text and token usage (when the server reports it) are returned.
func (c *Client) CompleteStream(messages []ChatMessage, cb SnapshotCallback) (string, *Usage, error) {
	reqBody := ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return "", nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(errBody))
	}

	scanner := bufio.NewScanner(resp.Body)
	// Increase buffer for large streamed chunks
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var accumulated strings.Builder
	var usage *Usage

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// Skip unparseable lines
			continue
		}
		if chunk.Error != nil {
			return accumulated.String(), usage, fmt.Errorf("server error: %s", chunk.Error.Message)
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta != "" {
			accumulated.WriteString(delta)
			cb(accumulated.String())
		}
		if chunk.Choices[0].FinishReason == "stop" {
			// Usage may still follow on a trailing chunk, keep scanning
			// until [DONE].
			continue
		}
	}

	if err := scanner.Err(); err != nil {
		return accumulated.String(), usage, err
	}
	return accumulated.String(), usage, nil
}

// --- Model List ---

type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
}

type ModelListResponse struct {
	Data []ModelInfo `json:"data"`
}

func (c *Client) ListModels() (*ModelListResponse, error) {
	var resp ModelListResponse
	if err := c.doJSON("GET", "/v1/models", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Generic JSON helper ---

func (c *Client) doJSON(method, path string, reqBody interface{}, result interface{}) error {
	var bodyReader io.Reader
	if reqBody != nil && method != "GET" {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

// BuildMessages assembles the request message list: the optional
// chain-of-thought system prompt, the prior conversation turns, then the
// new user prompt.
func BuildMessages(chainOfThought bool, history []ChatMessage, prompt string) []ChatMessage {
	var messages []ChatMessage
	if chainOfThought {
		messages = append(messages, ChatMessage{Role: "system", Content: ChainOfThoughtPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, ChatMessage{Role: "user", Content: prompt})
	return messages
}
