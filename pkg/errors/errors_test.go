package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOfThroughWrapping(t *testing.T) {
	base := New(CodeEntryNotFound, "no entry for metric")
	wrapped := fmt.Errorf("move: %w", base)

	if got := CodeOf(wrapped); got != CodeEntryNotFound {
		t.Fatalf("expected %s, got %s", CodeEntryNotFound, got)
	}
	if !IsCode(wrapped, CodeEntryNotFound) {
		t.Fatalf("expected IsCode to match through fmt wrapping")
	}
	if CodeOf(errors.New("plain")) != CodeUnknown {
		t.Fatalf("plain errors should report unknown")
	}
}

func TestRetryable(t *testing.T) {
	err := Wrap(errors.New("connection reset"), CodeUpstreamUnavailable, "persist layout failed")
	if !Retryable(err) {
		t.Fatalf("upstream failures must be retryable")
	}
	if Retryable(New(CodeInvalidName, "metric name is required")) {
		t.Fatalf("validation failures must not be retryable")
	}
	if err.Error() != "upstream_unavailable: persist layout failed: connection reset" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWithMeta(t *testing.T) {
	err := New(CodeReplayUnavailable, "no snapshot").WithMeta("date", "2026-01-02")
	if err.Meta["date"] != "2026-01-02" {
		t.Fatalf("meta not attached: %v", err.Meta)
	}
}
