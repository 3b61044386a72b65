package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewScanErrorNilOnNilCause(t *testing.T) {
	if err := newScanError(KindIO, "op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestScanErrorUnwrapsToCause(t *testing.T) {
	cause := errors.New("disk full")
	err := newScanError(KindIO, "write file", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}

func TestScanErrorErrorStringIncludesKindAndOp(t *testing.T) {
	err := newScanError(KindScan, "read key file app.py", errors.New("path traversal detected"))
	msg := err.Error()
	if !strings.Contains(msg, "Scan") || !strings.Contains(msg, "read key file app.py") || !strings.Contains(msg, "path traversal detected") {
		t.Fatalf("unexpected error string: %q", msg)
	}
}

func TestKindOfFindsTaggedCauseThroughWrapping(t *testing.T) {
	tagged := newScanError(KindProvider, "chat request", errors.New("HTTP 500"))
	wrapped := fmt.Errorf("runAnalysis: %w", tagged)

	kind, ok := KindOf(wrapped)
	if !ok {
		t.Fatal("expected KindOf to find a tagged ScanError through fmt.Errorf wrapping")
	}
	if kind != KindProvider {
		t.Fatalf("got kind %q, want %q", kind, KindProvider)
	}
}

func TestKindOfFalseForPlainError(t *testing.T) {
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatal("expected ok=false for an untagged error")
	}
}

