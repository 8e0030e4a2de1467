package trends

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trends-go/pkg/identity"
)

// Phase names a step of one identity cycle.
type Phase string

const (
	PhaseBootstrap Phase = "bootstrap"
	PhaseToken     Phase = "token"
	PhaseWidget    Phase = "widget"
)

// FailureKind tells why a single attempt failed. Every kind is retryable
// within its phase.
type FailureKind string

const (
	KindTransport  FailureKind = "transport"
	KindStatus     FailureKind = "status"
	KindDecode     FailureKind = "decode"
	KindIncomplete FailureKind = "incomplete"
	KindClassify   FailureKind = "classify"
)

var (
	ErrInvalidOptions   = errors.New("invalid fetch options")
	ErrUnknownIdentity  = identity.ErrUnknownIdentity
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrPhaseFailed      = errors.New("phase failed")
	ErrFetchFailed      = errors.New("trends fetch failed")

	errMissingToken    = errors.New("no RELATED_QUERIES token in explore response")
	errMissingRequest  = errors.New("no RELATED_QUERIES request in explore response")
	errEmptyRankedList = errors.New("no ranked list in widget response")
	errShortBody       = errors.New("response shorter than its guard prefix")
)

// AttemptError is one failed try inside a phase.
type AttemptError struct {
	Phase       Phase
	Attempt     int
	MaxAttempts int
	Kind        FailureKind
	StatusCode  int
	Err         error
}

func (e *AttemptError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s attempt %d/%d: %s", e.Phase, e.Attempt, e.MaxAttempts, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// PhaseError ends one identity cycle. The orchestrator answers a token or
// widget PhaseError by rotating identity while switches remain; a bootstrap
// PhaseError ends the fetch.
type PhaseError struct {
	Phase    Phase
	Identity identity.Identity
	Attempts int
	Last     error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed under %s after %d attempt(s): %v", e.Phase, e.Identity, e.Attempts, e.Last)
}

func (e *PhaseError) Unwrap() []error {
	return []error{ErrPhaseFailed, e.Last}
}

// FetchError is the terminal outcome once every identity cycle failed.
type FetchError struct {
	Cycles     int
	Identities []identity.Identity
	Last       error
}

func (e *FetchError) Error() string {
	names := make([]string, len(e.Identities))
	for i, id := range e.Identities {
		names[i] = string(id)
	}
	return fmt.Sprintf("%v: %d identity cycle(s) exhausted [%s]: %v",
		ErrFetchFailed, e.Cycles, strings.Join(names, ","), e.Last)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Last}
}

// Severity is what the caller of a failing step should do next.
type Severity int

const (
	SeverityRetryable Severity = iota // try the same step again
	SeverityRotate                    // abandon this identity
	SeverityFatal                     // stop the whole fetch
)

func (s Severity) String() string {
	switch s {
	case SeverityRetryable:
		return "retryable"
	case SeverityRotate:
		return "rotate"
	case SeverityFatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ClassifyError maps an error from any layer onto a Severity.
func ClassifyError(err error) Severity {
	if err == nil {
		return SeverityRetryable
	}

	if isContextError(err) {
		return SeverityFatal
	}
	if errors.Is(err, ErrInvalidOptions) || errors.Is(err, ErrUnknownIdentity) {
		return SeverityFatal
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return SeverityFatal
	}
	var phaseErr *PhaseError
	if errors.As(err, &phaseErr) {
		if phaseErr.Phase == PhaseBootstrap {
			return SeverityFatal
		}
		return SeverityRotate
	}

	// Transport, status, decode, incomplete and classification failures, and
	// anything unrecognised, are treated as transient provider flakiness.
	return SeverityRetryable
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ShouldRotate reports whether err ends the current identity cycle.
func ShouldRotate(err error) bool {
	return ClassifyError(err) == SeverityRotate
}
