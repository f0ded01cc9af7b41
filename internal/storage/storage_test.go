package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lantern/internal/logging"
	"lantern/internal/testsupport"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(testsupport.NewConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestSaveUploadKeepsLoweredExtension(t *testing.T) {
	store := newStore(t)

	path, size, err := store.SaveUpload("job-1", "Recording.WAV", strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if filepath.Base(path) != "job-1.wav" {
		t.Fatalf("unexpected upload name %s", filepath.Base(path))
	}
	if size != int64(len("audio-bytes")) {
		t.Fatalf("unexpected size %d", size)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read upload: %v", err)
	}
	if string(payload) != "audio-bytes" {
		t.Fatalf("unexpected payload %q", payload)
	}
}

func TestSaveArtifactsRoundTripThroughResolve(t *testing.T) {
	store := newStore(t)

	imageRef, err := store.SaveImage("job-2", []byte{0x89, 0x50, 0x4e, 0x47})
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if imageRef != filepath.Join("job-2", ImageFileName) {
		t.Fatalf("unexpected image ref %q", imageRef)
	}

	videoRef, err := store.SaveVideo("job-2", []byte("mp4-bytes"))
	if err != nil {
		t.Fatalf("SaveVideo: %v", err)
	}
	if videoRef != filepath.Join("job-2", VideoFileName) {
		t.Fatalf("unexpected video ref %q", videoRef)
	}

	for _, ref := range []string{imageRef, videoRef} {
		path, err := store.Resolve(ref)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", ref, err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("artifact missing at %s: %v", path, err)
		}
	}
}

func TestSaveArtifactRejectsEmptyPayload(t *testing.T) {
	store := newStore(t)
	if _, err := store.SaveImage("job-3", nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestResolveRejectsEscapingReferences(t *testing.T) {
	store := newStore(t)
	for _, ref := range []string{"", "   ", "..", "../outside", "job/../../etc/passwd"} {
		if _, err := store.Resolve(ref); err == nil {
			t.Errorf("expected error for reference %q", ref)
		}
	}
}

func TestCheckHealth(t *testing.T) {
	store := newStore(t)
	if health := store.CheckHealth(context.Background()); !health.Ready {
		t.Fatalf("expected healthy, got %+v", health)
	}

	if err := os.RemoveAll(store.MediaDir()); err != nil {
		t.Fatalf("remove media dir: %v", err)
	}
	health := store.CheckHealth(context.Background())
	if health.Ready {
		t.Fatalf("expected unhealthy after removing media dir, got %+v", health)
	}
}

func TestCleanStaleUploadsRemovesOldFiles(t *testing.T) {
	store := newStore(t)

	oldPath, _, err := store.SaveUpload("old-job", "old.wav", strings.NewReader("old"))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldPath, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	recentPath, _, err := store.SaveUpload("recent-job", "recent.wav", strings.NewReader("recent"))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}

	result := CleanStaleUploads(context.Background(), store.UploadsDir(), time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != oldPath {
		t.Fatalf("unexpected removals %v", result.Removed)
	}
	if _, err := os.Stat(recentPath); err != nil {
		t.Error("recent upload should still exist")
	}
}

func TestCleanStaleUploadsInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStaleUploads(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanOrphanedMediaKeepsKnownJobs(t *testing.T) {
	store := newStore(t)

	if _, err := store.SaveImage("known-job", []byte("png")); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if _, err := store.SaveImage("orphan-job", []byte("png")); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}

	known := map[string]struct{}{"known-job": {}}
	result := CleanOrphanedMedia(context.Background(), store.MediaDir(), known, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removal, got %v", result.Removed)
	}

	if _, err := os.Stat(filepath.Join(store.MediaDir(), "known-job")); err != nil {
		t.Error("known job media should still exist")
	}
	if _, err := os.Stat(filepath.Join(store.MediaDir(), "orphan-job")); !os.IsNotExist(err) {
		t.Error("orphan media should have been removed")
	}
}
