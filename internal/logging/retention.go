package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget names a directory and filename pattern to prune.
// Exclude lists paths that must survive pruning, such as the current
// log pointer.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the targets whose modification
// time is older than retentionDays. A retentionDays of 0 disables
// pruning entirely.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	keep := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			if trimmed := strings.TrimSpace(path); trimmed != "" {
				if abs, err := filepath.Abs(trimmed); err == nil {
					keep[abs] = struct{}{}
				}
			}
		}
	}

	for _, target := range targets {
		pruneTarget(logger, target, cutoff, keep)
	}
}

func pruneTarget(logger *slog.Logger, target RetentionTarget, cutoff time.Time, keep map[string]struct{}) {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	pattern := strings.TrimSpace(target.Pattern)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if pattern != "" {
			matched, err := filepath.Match(pattern, name)
			if err != nil || !matched {
				continue
			}
		}
		path := filepath.Join(dir, name)
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, skip := keep[path]; skip {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			logger.Warn("log retention remove failed; file remains",
				String("path", path),
				Error(err),
				String(FieldEventType, "log_retention_failed"),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
			)
			continue
		}
		logger.Info("log pruned",
			String("path", path),
			String(FieldEventType, "log_pruned"),
		)
	}
}
