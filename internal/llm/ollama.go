// Package llm calls a local or remote Ollama server through its
// OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient talks to one Ollama host and model.
type OllamaClient struct {
	HTTPClient *http.Client
	Host       string
	Model      string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// NewOllamaClient returns a client for the given host (e.g.
// "http://localhost:11434") and model name.
func NewOllamaClient(host, model string) *OllamaClient {
	return &OllamaClient{
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		Host:       strings.TrimRight(host, "/"),
		Model:      model,
	}
}

// Generate runs one completion. systemPrompt and instructions become system
// messages; userInput is the user message. Any failure is returned wrapped;
// callers decide whether the turn survives.
func (c *OllamaClient) Generate(ctx context.Context, systemPrompt, instructions, userInput string) (string, error) {
	if c.Host == "" {
		return "", fmt.Errorf("ollama host missing")
	}
	endpoint := c.Host + "/v1/chat/completions"

	var messages []chatMessage
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	if instructions != "" {
		messages = append(messages, chatMessage{Role: "system", Content: instructions})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userInput})

	reqBody, _ := json.Marshal(chatCompletionsRequest{Model: c.Model, Messages: messages})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error: status=%d body=%s", resp.StatusCode, string(b))
	}
	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("ollama: empty choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
