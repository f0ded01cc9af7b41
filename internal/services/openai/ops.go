package openai

import (
	"context"
	"encoding/base64"
	"strings"
)

// Summarize condenses a transcript into two or three sentences. Very
// short transcripts short-circuit to a fixed summary without an API
// call.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	if len(strings.TrimSpace(transcript)) < 5 {
		return briefTranscriptSummary, nil
	}
	summary, err := c.chat(ctx, chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: summaryInstructions},
			{Role: "user", Content: transcript},
		},
	})
	if err != nil {
		return "", providerError("summarize", err)
	}
	return summary, nil
}

// DeriveImagePrompt turns a summary into an image generation prompt.
func (c *Client) DeriveImagePrompt(ctx context.Context, summary string) (string, error) {
	prompt, err := c.chat(ctx, chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: imagePromptInstructions},
			{Role: "user", Content: summary},
		},
	})
	if err != nil {
		return "", providerError("derive image prompt", err)
	}
	return prompt, nil
}

// GenerateTitle produces a short title from the summary, grounding on
// the generated image when one exists.
func (c *Client) GenerateTitle(ctx context.Context, summary string, imagePNG []byte) (string, error) {
	var request chatRequest
	if len(imagePNG) > 0 {
		dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imagePNG)
		request = chatRequest{
			Messages: []chatMessage{
				{
					Role: "user",
					Content: []contentPart{
						{Type: "text", Text: titleVisionInstructions + "\n\nSummary: " + summary},
						{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
					},
				},
			},
		}
	} else {
		request = chatRequest{
			Messages: []chatMessage{
				{Role: "system", Content: titleInstructions},
				{Role: "user", Content: "Summary: " + summary},
			},
		}
	}

	title, err := c.chat(ctx, request)
	if err != nil {
		return "", providerError("generate title", err)
	}
	return cleanTitle(title), nil
}

// cleanTitle strips quoting and stray newlines models like to add.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	return strings.TrimSpace(title)
}
