package domain

import "errors"

// ─── Submission Error Taxonomy ──────────────────────────────────────────────
// Every failure of the submission path is classified into exactly one kind,
// and each kind carries a fixed user-facing message. Validation failures are
// resolved at the step boundary and never produce a network call.

// ErrorKind classifies a submission failure.
type ErrorKind string

const (
	KindValidationFailed ErrorKind = "VALIDATION_FAILED"
	KindNotConfigured    ErrorKind = "NOT_CONFIGURED"
	KindRateLimited      ErrorKind = "RATE_LIMITED"
	KindUnauthorized     ErrorKind = "UNAUTHORIZED"
	KindNetworkError     ErrorKind = "NETWORK_ERROR"
	KindUnknown          ErrorKind = "UNKNOWN"
)

// Retryable reports whether a failure of this kind is transient and worth
// retrying automatically.
func (k ErrorKind) Retryable() bool {
	return k == KindRateLimited || k == KindNetworkError
}

// UserMessage returns the message shown to the end user for this kind.
func (k ErrorKind) UserMessage() string {
	switch k {
	case KindValidationFailed:
		return "Please correct the highlighted fields and try again."
	case KindNotConfigured:
		return "System configuration error. Please contact support."
	case KindRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case KindUnauthorized:
		return "Authentication error. Please contact support."
	case KindNetworkError:
		return "Network error. Please check your connection and try again."
	default:
		return "Failed to submit referral. Please try again."
	}
}

// SubmissionError is a classified submission failure.
type SubmissionError struct {
	Kind   ErrorKind
	Err    error       // underlying cause, may be nil
	Fields FieldErrors // populated only for KindValidationFailed
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *SubmissionError) Unwrap() error { return e.Err }

// NewSubmissionError wraps cause with a classification.
func NewSubmissionError(kind ErrorKind, cause error) *SubmissionError {
	return &SubmissionError{Kind: kind, Err: cause}
}

// ClassifySubmission extracts the kind from err, defaulting to KindUnknown.
func ClassifySubmission(err error) ErrorKind {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// ─── Wizard Sentinels ───────────────────────────────────────────────────────

var (
	// ErrSubmitInFlight is returned when Submit is called while a previous
	// submission is still outstanding.
	ErrSubmitInFlight = errors.New("submission already in progress")

	// ErrNotAtFinalStep is returned when Submit is called before step 3.
	ErrNotAtFinalStep = errors.New("submission only allowed from the final step")

	// ErrAlreadyComplete is returned for transitions out of the terminal state.
	ErrAlreadyComplete = errors.New("referral already submitted; reset to start over")

	// ErrNoBackFromFirstStep is returned for Back on step 1.
	ErrNoBackFromFirstStep = errors.New("already at the first step")

	// ErrSessionNotFound is returned when a referral session id is unknown.
	ErrSessionNotFound = errors.New("referral session not found")
)
