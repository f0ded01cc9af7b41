package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lantern/internal/logging"
)

// CleanupResult contains the outcome of a cleanup sweep.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStaleUploads removes uploaded audio files older than maxAge. It
// returns the list of removed files and any errors encountered.
func CleanStaleUploads(ctx context.Context, uploadsDir string, maxAge time.Duration, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}

	uploadsDir = strings.TrimSpace(uploadsDir)
	if uploadsDir == "" {
		return result
	}

	entries, err := os.ReadDir(uploadsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: uploadsDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(uploadsDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
				if logger != nil {
					logger.Warn("failed to remove stale upload",
						logging.String("path", path),
						logging.Error(err),
						logging.String(logging.FieldEventType, "upload_cleanup_failed"),
						logging.String(logging.FieldErrorHint, "check upload directory permissions"),
						logging.String(logging.FieldImpact, "disk space not reclaimed"),
					)
				}
			} else {
				result.Removed = append(result.Removed, path)
				if logger != nil {
					logger.Info("removed stale upload",
						logging.String("path", path),
						logging.Duration("age", time.Since(info.ModTime())),
						logging.String(logging.FieldEventType, "upload_cleanup"),
					)
				}
			}
		}
	}

	return result
}

// CleanOrphanedMedia removes artifact directories that don't belong to any
// known job. It returns the list of removed directories and any errors
// encountered.
func CleanOrphanedMedia(ctx context.Context, mediaDir string, knownJobs map[string]struct{}, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}

	mediaDir = strings.TrimSpace(mediaDir)
	if mediaDir == "" {
		return result
	}

	entries, err := os.ReadDir(mediaDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: mediaDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, known := knownJobs[entry.Name()]; known {
			continue
		}

		dirPath := filepath.Join(mediaDir, entry.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove orphaned media directory",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "media_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check media directory permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
		} else {
			result.Removed = append(result.Removed, dirPath)
			if logger != nil {
				logger.Info("removed orphaned media directory",
					logging.String("path", dirPath),
					logging.String(logging.FieldEventType, "media_cleanup"),
				)
			}
		}
	}

	return result
}
