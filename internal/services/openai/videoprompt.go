package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lantern/internal/services"
)

// VideoPrompt is the structured scene description the chat model
// produces before video generation.
type VideoPrompt struct {
	Description string   `json:"description"`
	Style       string   `json:"style"`
	Camera      string   `json:"camera"`
	Lighting    string   `json:"lighting"`
	Environment string   `json:"environment"`
	Elements    []string `json:"elements"`
	Motion      string   `json:"motion"`
	Ending      string   `json:"ending"`
	Text        string   `json:"text"`
	Keywords    []string `json:"keywords"`
}

// FormatForVeo flattens the structured prompt into the narrative text
// the video model consumes.
func (p VideoPrompt) FormatForVeo() string {
	parts := []string{p.Description}
	parts = append(parts, "Visual style: "+p.Style+".")
	parts = append(parts, "Camera: "+p.Camera+".")
	parts = append(parts, "Lighting: "+p.Lighting+".")
	if p.Environment != "" {
		parts = append(parts, "Setting: "+p.Environment+".")
	}
	if len(p.Elements) > 0 {
		shown := p.Elements
		if len(shown) > 5 {
			shown = shown[:5]
		}
		elements := "The scene includes " + strings.Join(shown, ", ")
		if extra := len(p.Elements) - len(shown); extra > 0 {
			elements += fmt.Sprintf(", and %d more detailed elements", extra)
		}
		parts = append(parts, elements+".")
	}
	parts = append(parts, "Motion: "+p.Motion+".")
	parts = append(parts, "The video ends with "+p.Ending+".")
	if len(p.Keywords) > 0 {
		parts = append(parts, "Keywords: "+strings.Join(p.Keywords, ", ")+".")
	}
	if strings.EqualFold(strings.TrimSpace(p.Text), "none") || strings.TrimSpace(p.Text) == "" {
		parts = append(parts, "No text overlays.")
	}
	return strings.Join(parts, " ")
}

// BuildVideoPrompt generates a structured scene description from the
// summary and returns it formatted for the video model. The related
// image prompt and a transcript excerpt give the model extra grounding
// when available.
func (c *Client) BuildVideoPrompt(ctx context.Context, summary, imagePrompt, transcriptExcerpt string) (string, error) {
	userParts := []string{
		"Create a cinematic 8-second video prompt based on this content:",
		"\nAudio Summary: " + summary,
	}
	if imagePrompt != "" {
		userParts = append(userParts, "\nRelated Visual Concept: "+imagePrompt)
	}
	if transcriptExcerpt != "" {
		userParts = append(userParts, "\nTranscript excerpt: "+truncateRunes(transcriptExcerpt, 200)+"...")
	}
	userParts = append(userParts,
		"\nTransform this into an engaging, cinematic video narrative with rich visual details. "+
			"The video should capture the emotional essence and key themes of the audio.")

	temperature := 0.8
	raw, err := c.chat(ctx, chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: videoPromptSystem},
			{Role: "user", Content: strings.Join(userParts, "\n")},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    &temperature,
		MaxTokens:      1500,
	})
	if err != nil {
		return "", providerError("build video prompt", err)
	}

	var prompt VideoPrompt
	if err := decodeJSONResponse(raw, &prompt); err != nil {
		// Malformed generations usually succeed on a second attempt.
		return "", services.NewProviderError("build video prompt", err, true)
	}
	if strings.TrimSpace(prompt.Description) == "" {
		return "", services.NewProviderError("build video prompt", errors.New("scene description missing"), true)
	}
	return prompt.FormatForVeo(), nil
}

func truncateRunes(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
