package veo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"lantern/internal/services"
)

const opRenderVideo = "render video"

// RenderVideo generates a video for the prompt and returns the raw payload.
// A non-empty frame seeds the first frame of the clip. The call blocks
// while the remote operation runs, polling every Config.PollInterval until
// Config.PollTimeout is spent; an operation still pending at that point is
// reported as retryable so the caller can pick the wait back up.
func (c *Client) RenderVideo(ctx context.Context, prompt string, frame []byte, frameMIME string) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, services.NewProviderError(opRenderVideo, errors.New("video prompt is empty"), false)
	}

	var image *genai.Image
	if len(frame) > 0 {
		if frameMIME == "" {
			frameMIME = "image/png"
		}
		image = &genai.Image{ImageBytes: frame, MIMEType: frameMIME}
	}

	op, err := c.start(ctx, prompt, image)
	if err != nil {
		return nil, providerError(opRenderVideo, err)
	}

	op, err = c.awaitOperation(ctx, op)
	if err != nil {
		return nil, err
	}

	video, err := firstVideo(op)
	if err != nil {
		return nil, err
	}
	if len(video.VideoBytes) > 0 {
		return video.VideoBytes, nil
	}
	if video.URI == "" {
		return nil, services.NewProviderError(opRenderVideo, errors.New("video had neither payload nor uri"), false)
	}
	return c.download(ctx, video.URI)
}

// awaitOperation polls until the operation reports done or the poll budget
// runs out. Transient status-check failures do not abort the wait.
func (c *Client) awaitOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	attempts := int(c.cfg.PollTimeout / c.cfg.PollInterval)
	if attempts < 1 {
		attempts = 1
	}

	var lastStatusErr error
	for i := 0; !op.Done && i < attempts; i++ {
		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return nil, providerError(opRenderVideo, err)
		}
		next, err := c.fetch(ctx, op)
		if err != nil {
			if ctx.Err() != nil {
				return nil, providerError(opRenderVideo, ctx.Err())
			}
			lastStatusErr = err
			continue
		}
		op = next
	}

	if !op.Done {
		err := fmt.Errorf("video generation still pending after %s", c.cfg.PollTimeout)
		if lastStatusErr != nil {
			err = fmt.Errorf("video generation still pending after %s (last status error: %w)", c.cfg.PollTimeout, lastStatusErr)
		}
		return nil, services.NewProviderError(opRenderVideo, err, true)
	}
	if msg, failed := operationFailure(op); failed {
		return nil, services.NewProviderError(opRenderVideo, errors.New(msg), false)
	}
	return op, nil
}

// operationFailure extracts the failure message from a completed operation.
func operationFailure(op *genai.GenerateVideosOperation) (string, bool) {
	if len(op.Error) == 0 {
		return "", false
	}
	if msg, ok := op.Error["message"].(string); ok && msg != "" {
		return msg, true
	}
	return fmt.Sprintf("operation failed: %v", op.Error), true
}

// firstVideo pulls the first rendered clip out of a completed operation.
func firstVideo(op *genai.GenerateVideosOperation) (*genai.Video, error) {
	resp := op.Response
	if resp == nil || len(resp.GeneratedVideos) == 0 || resp.GeneratedVideos[0].Video == nil {
		return nil, services.NewProviderError(opRenderVideo, errors.New("operation completed without a video"), false)
	}
	return resp.GeneratedVideos[0].Video, nil
}

// download fetches the rendered clip from the file endpoint the operation
// points at. The endpoint expects the API key as a header, not a bearer
// token.
func (c *Client) download(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, providerError(opRenderVideo, fmt.Errorf("build download request: %w", err))
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providerError(opRenderVideo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, providerError(opRenderVideo, &httpStatusError{StatusCode: resp.StatusCode})
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providerError(opRenderVideo, fmt.Errorf("download video: %w", err))
	}
	if len(payload) == 0 {
		return nil, services.NewProviderError(opRenderVideo, errors.New("video download was empty"), true)
	}
	return payload, nil
}
