package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
	Usage struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
		TotalTokens  int64 `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateImage renders the prompt and returns PNG bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	body, err := c.postJSON(ctx, "/images/generations", imageRequest{
		Model:  c.cfg.ImageModel,
		Prompt: prompt,
		N:      1,
		Size:   "1024x1024",
	})
	if err != nil {
		return nil, providerError("generate image", err)
	}

	var decoded imageResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, providerError("generate image", fmt.Errorf("decode image response: %w", err))
	}
	if len(decoded.Data) == 0 {
		return nil, providerError("generate image", errors.New("image response contained no data"))
	}

	c.recordUsage(ctx, c.cfg.ImageModel,
		decoded.Usage.InputTokens,
		decoded.Usage.OutputTokens,
		decoded.Usage.TotalTokens,
	)

	if encoded := decoded.Data[0].B64JSON; encoded != "" {
		image, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, providerError("generate image", fmt.Errorf("decode image payload: %w", err))
		}
		return image, nil
	}
	if url := decoded.Data[0].URL; url != "" {
		return c.downloadImage(ctx, url)
	}
	return nil, providerError("generate image", errors.New("image response had neither payload nor url"))
}

func (c *Client) downloadImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, providerError("generate image", fmt.Errorf("build download request: %w", err))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providerError("generate image", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, providerError("generate image", &httpStatusError{StatusCode: resp.StatusCode})
	}
	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providerError("generate image", fmt.Errorf("download image: %w", err))
	}
	return image, nil
}
