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

// Client generates free-form conversational replies through an OpenAI-style
// chat completions endpoint. It handles only the utterances the rule-based
// parser could not; structured actions never reach it.
type Client struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	BaseURL    string
	Language   string
}

const defaultBaseURL = "https://api.cerebras.ai/v1"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// NewClient builds a chat client for the given two-letter language tag.
func NewClient(apiKey, model, language string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    defaultBaseURL,
		Language:   language,
	}
}

func (c *Client) systemPrompt() string {
	base := "You are a concise voice assistant for a freelancer finance app. " +
		"You help with expenses, income, clients, projects, taxes and savings. " +
		"Answer briefly, in one or two spoken sentences, with no formatting."
	if c.Language == "es" {
		return base + " Always reply in Spanish."
	}
	return base + " Always reply in English."
}

// Generate produces one reply. contextSummary may be empty; when present it
// carries the recent conversation so follow-ups resolve against prior turns.
func (c *Client) Generate(ctx context.Context, contextSummary, userText string) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("llm: api key missing")
	}

	messages := []chatMessage{{Role: "system", Content: c.systemPrompt()}}
	if contextSummary != "" {
		messages = append(messages, chatMessage{Role: "system", Content: contextSummary})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userText})

	reqBody, _ := json.Marshal(chatCompletionsRequest{Model: c.Model, Messages: messages})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("llm: status=%d body=%s", resp.StatusCode, string(b))
	}

	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
