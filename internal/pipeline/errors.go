package pipeline

import (
	"errors"
	"fmt"
)

// Kind tags a ScanError with the §7 error taxonomy. Errors are tagged at the
// boundary where they cross into the pipeline's control flow, not by the
// concrete Go type of the underlying failure.
type Kind string

const (
	// KindIO covers filesystem operations on the repository or the
	// response cache.
	KindIO Kind = "Io"
	// KindScan covers invariant violations in repository traversal,
	// including path-traversal attempts. Always fatal, always logged with
	// the offending input already sanitized by the caller.
	KindScan Kind = "Scan"
	// KindRedaction covers redaction pattern-engine failures. Reserved;
	// the engine has no failure mode in normal operation.
	KindRedaction Kind = "Redaction"
	// KindProvider covers any failure originating from an LLM call:
	// transport, timeout, non-2xx, malformed JSON, unparseable schema.
	// Demoted to a blocker in Phase B; never fatal to the scan.
	KindProvider Kind = "Provider"
	// KindConfig covers an invalid profile, a missing API key paired with
	// a non-local base URL, an invalid base URL, or invalid headers.
	KindConfig Kind = "Config"
	// KindIntegrity covers a system-prompt hash mismatch. Fatal: the scan
	// aborts before any LLM call is made.
	KindIntegrity Kind = "Integrity"
	// KindRateLimitExceeded is surfaced only by a non-blocking admission
	// check; the blocking Acquire path waits instead of returning this.
	KindRateLimitExceeded Kind = "RateLimitExceeded"
	// KindValidation covers per-input failures in the prompt runner.
	KindValidation Kind = "Validation"
)

// ScanError is the structured, causally-chained error every pipeline phase
// returns across its boundary (spec.md §7, §9 "tagged variants for
// evidence and errors"). Op names the operation that failed; Err is the
// wrapped cause.
type ScanError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ScanError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pipeline: %s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("pipeline: %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// newScanError tags err with kind at the named operation boundary. Returns
// nil if err is nil, so call sites can wrap unconditionally.
func newScanError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ScanError{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind tagged onto err, walking its cause chain via
// errors.As. The second return is false when err carries no ScanError.
func KindOf(err error) (Kind, bool) {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}
