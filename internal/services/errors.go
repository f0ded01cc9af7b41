package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProvider      = errors.New("provider error")
	ErrLedgerWrite   = errors.New("ledger write error")
	ErrResultWrite   = errors.New("result write error")
	ErrCancelled     = errors.New("cancelled")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrProvider
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ProviderError reports a failed external provider call. Retryable marks
// failures the pipeline may attempt again within its retry budget.
type ProviderError struct {
	Stage     string
	Err       error
	Retryable bool
}

// NewProviderError tags an external call failure with its stage and retry class.
func NewProviderError(stage string, err error, retryable bool) *ProviderError {
	return &ProviderError{Stage: stage, Err: err, Retryable: retryable}
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	if e.Err == nil {
		return fmt.Sprintf("provider error: %s: %s failure", e.Stage, kind)
	}
	return fmt.Sprintf("provider error: %s: %s: %v", e.Stage, kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrProvider) match wrapped provider failures.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// IsRetryable reports whether err is a provider failure eligible for bounded retry.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// IsProviderError reports whether err carries a provider failure.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// FailureMessage derives the human-readable cause recorded in the ledger and
// surfaced to clients. Provider payloads are already summarized by the callers,
// so the error text itself is safe to expose.
func FailureMessage(err error) string {
	if err == nil {
		return "failed without error detail"
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "failed without error detail"
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
