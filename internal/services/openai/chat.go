package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// chat runs one completion and returns the assistant message content.
func (c *Client) chat(ctx context.Context, req chatRequest) (string, error) {
	if req.Model == "" {
		req.Model = c.cfg.ChatModel
	}
	body, err := c.postJSON(ctx, "/chat/completions", req)
	if err != nil {
		return "", err
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("chat response contained no choices")
	}

	c.recordUsage(ctx, req.Model,
		decoded.Usage.PromptTokens,
		decoded.Usage.CompletionTokens,
		decoded.Usage.TotalTokens,
	)

	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

// decodeJSONResponse unmarshals model output that may arrive wrapped in
// markdown fences or surrounded by prose.
func decodeJSONResponse(raw string, target any) error {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return errors.New("empty response payload")
	}
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	if !strings.HasPrefix(cleaned, "{") {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start == -1 || end == -1 || end <= start {
			return fmt.Errorf("no JSON object in payload %q", summarizePayloadSnippet(raw))
		}
		cleaned = cleaned[start : end+1]
	}
	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
