package services_test

import (
	"errors"
	"strings"
	"testing"

	"lantern/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrLedgerWrite, "summarize", "append", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrLedgerWrite) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"summarize", "append", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "transcribe", "", "upstream unavailable", nil)
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected nil marker to default to ErrProvider, got %v", err)
	}
}

func TestProviderErrorClassification(t *testing.T) {
	cause := errors.New("http 503")
	err := services.NewProviderError("generate_image", cause, true)

	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider marker match, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap, got %v", err)
	}
	if !services.IsRetryable(err) {
		t.Fatal("expected retryable classification")
	}

	permanent := services.NewProviderError("transcribe", errors.New("http 400"), false)
	if services.IsRetryable(permanent) {
		t.Fatal("expected permanent classification")
	}
}

func TestIsRetryableIgnoresOtherErrors(t *testing.T) {
	if services.IsRetryable(errors.New("plain")) {
		t.Fatal("plain errors must not be retryable")
	}
	if services.IsRetryable(services.Wrap(services.ErrResultWrite, "storing", "write", "conflict", nil)) {
		t.Fatal("result write errors must not be retryable")
	}
}

func TestFailureMessage(t *testing.T) {
	if got := services.FailureMessage(nil); got != "failed without error detail" {
		t.Fatalf("unexpected nil message: %q", got)
	}
	err := services.NewProviderError("generate_video", errors.New("operation expired"), true)
	if got := services.FailureMessage(err); !strings.Contains(got, "generate_video") {
		t.Fatalf("expected stage in message, got %q", got)
	}
}
