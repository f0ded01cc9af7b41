package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// Transcribe uploads the audio file and returns the transcript text.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", providerError("transcribe", fmt.Errorf("open audio: %w", err))
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", providerError("transcribe", fmt.Errorf("build form: %w", err))
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", providerError("transcribe", fmt.Errorf("copy audio: %w", err))
	}
	if err := writer.WriteField("model", c.cfg.TranscribeModel); err != nil {
		return "", providerError("transcribe", fmt.Errorf("build form: %w", err))
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", providerError("transcribe", fmt.Errorf("build form: %w", err))
	}
	if err := writer.Close(); err != nil {
		return "", providerError("transcribe", fmt.Errorf("finish form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", providerError("transcribe", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := c.do(req)
	if err != nil {
		return "", providerError("transcribe", err)
	}

	var decoded struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", providerError("transcribe", fmt.Errorf("decode transcription: %w", err))
	}
	return decoded.Text, nil
}
