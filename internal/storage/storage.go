// Package storage lays out uploaded audio and generated artifacts on the
// local filesystem.
//
// Uploads land in a flat working directory keyed by job ID. Published
// artifacts live under the media root in one directory per job and are
// addressed by references relative to that root ("<job-id>/image.png"),
// which keeps stored results valid when the media root moves between
// hosts. The HTTP layer maps references onto /media/ URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"lantern/internal/config"
	"lantern/internal/services"
)

const (
	// ImageFileName is the artifact name for the generated cover image.
	ImageFileName = "image.png"
	// VideoFileName is the artifact name for the rendered clip.
	VideoFileName = "video.mp4"
)

// Store writes and resolves files under the configured roots.
type Store struct {
	mediaDir   string
	uploadsDir string
}

// New prepares the media and upload roots and returns a store over them.
func New(cfg *config.Config) (*Store, error) {
	mediaDir := filepath.Clean(cfg.Paths.MediaDir)
	uploadsDir := filepath.Clean(cfg.UploadsDir())
	for _, dir := range []string{mediaDir, uploadsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
		}
	}
	return &Store{mediaDir: mediaDir, uploadsDir: uploadsDir}, nil
}

// MediaDir returns the artifact root.
func (s *Store) MediaDir() string {
	return s.mediaDir
}

// UploadsDir returns the upload working directory.
func (s *Store) UploadsDir() string {
	return s.uploadsDir
}

// SaveUpload streams an uploaded audio payload into the working directory,
// named after the job with the original extension. It returns the absolute
// path and the number of bytes written.
func (s *Store) SaveUpload(jobID, originalName string, r io.Reader) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".bin"
	}
	path := filepath.Join(s.uploadsDir, jobID+ext)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}
	written, err := io.Copy(out, r)
	if err != nil {
		out.Close()
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write upload file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("close upload file: %w", err)
	}
	return path, written, nil
}

// SaveImage publishes the generated image for a job and returns its media
// reference.
func (s *Store) SaveImage(jobID string, payload []byte) (string, error) {
	return s.saveArtifact(jobID, ImageFileName, payload)
}

// SaveVideo publishes the rendered clip for a job and returns its media
// reference.
func (s *Store) SaveVideo(jobID string, payload []byte) (string, error) {
	return s.saveArtifact(jobID, VideoFileName, payload)
}

func (s *Store) saveArtifact(jobID, name string, payload []byte) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", errors.New("job id is required")
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("artifact %s payload is empty", name)
	}
	dir := filepath.Join(s.mediaDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), payload, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	return filepath.Join(jobID, name), nil
}

// Resolve turns a media reference back into an absolute path, rejecting
// references that escape the media root.
func (s *Store) Resolve(ref string) (string, error) {
	cleaned := filepath.Clean(strings.Trim(strings.TrimSpace(ref), "/"))
	if cleaned == "" || cleaned == "." {
		return "", errors.New("media reference is empty")
	}
	path := filepath.Join(s.mediaDir, cleaned)
	if !strings.HasPrefix(path, s.mediaDir+string(filepath.Separator)) {
		return "", fmt.Errorf("media reference %q escapes the media root", ref)
	}
	return path, nil
}

// CheckHealth verifies both roots exist and are writable, and reports the
// free space left on the media filesystem.
func (s *Store) CheckHealth(ctx context.Context) services.Health {
	for _, dir := range []string{s.mediaDir, s.uploadsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return services.Unhealthy("storage", fmt.Sprintf("%s: %v", dir, err))
		}
		if !info.IsDir() {
			return services.Unhealthy("storage", fmt.Sprintf("%s is not a directory", dir))
		}
		if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
			return services.Unhealthy("storage", fmt.Sprintf("%s: insufficient permissions: %v", dir, err))
		}
	}
	detail := "media and upload directories writable"
	if free, err := freeSpace(s.mediaDir); err == nil {
		detail = fmt.Sprintf("%s, %.1f GiB free", detail, float64(free)/(1<<30))
	}
	return services.Healthy("storage", detail)
}

// freeSpace reports the bytes available to unprivileged writers on the
// filesystem holding path.
func freeSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
