package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lantern/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close log: %v", err)
	}
}

func TestReadLastReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lanternd.log")
	writeLog(t, path, "a\nb\nc\nd\ne\n")

	lines, offset, err := logs.ReadLast(path, 3)
	if err != nil {
		t.Fatalf("ReadLast: %v", err)
	}
	if len(lines) != 3 || lines[0] != "c" || lines[1] != "d" || lines[2] != "e" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset == 0 {
		t.Fatal("expected offset to advance")
	}
}

func TestReadLastShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lanternd.log")
	writeLog(t, path, "only\n")

	lines, _, err := logs.ReadLast(path, 10)
	if err != nil {
		t.Fatalf("ReadLast: %v", err)
	}
	if len(lines) != 1 || lines[0] != "only" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
}

func TestReadLastMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lanternd.log")

	lines, offset, err := logs.ReadLast(path, 5)
	if err != nil {
		t.Fatalf("ReadLast: %v", err)
	}
	if len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %#v offset %d", lines, offset)
	}
}

func TestReadFromReturnsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lanternd.log")
	writeLog(t, path, "start\n")

	_, offset, err := logs.ReadLast(path, 1)
	if err != nil {
		t.Fatalf("ReadLast: %v", err)
	}

	appendLog(t, path, "later\nmore\n")

	lines, next, err := logs.ReadFrom(path, offset)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(lines) != 2 || lines[0] != "later" || lines[1] != "more" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if next <= offset {
		t.Fatalf("expected offset to advance past %d, got %d", offset, next)
	}
}

func TestReadFromRestartsAfterRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lanternd.log")
	writeLog(t, path, "fresh run\n")

	// An offset from the previous, longer run log lands past EOF.
	lines, _, err := logs.ReadFrom(path, 4096)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(lines) != 1 || lines[0] != "fresh run" {
		t.Fatalf("expected restart from top, got %#v", lines)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lanternd.log")
	writeLog(t, path, "start\n")

	_, offset, err := logs.ReadLast(path, 1)
	if err != nil {
		t.Fatalf("ReadLast: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, func(line string) { got <- line })
	}()

	appendLog(t, path, "later\n")

	select {
	case line := <-got:
		if line != "later" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not emit appended line")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop after cancel")
	}
}
