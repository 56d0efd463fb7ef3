package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/letwinventory/harnessgraph/internal/model"
	"github.com/letwinventory/harnessgraph/internal/validate"
)

// ErrorCode categorizes command failures.
type ErrorCode string

const (
	// ErrCodeNotFound: missing or inactive harness, sub-harness target or history entry.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeValidationFailed: the document has findings; all are attached.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// ErrCodeCycleRejected: the embedding would create a cycle.
	ErrCodeCycleRejected ErrorCode = "CYCLE_REJECTED"

	// ErrCodeIllegalTransition: the command is not valid from the current state.
	ErrCodeIllegalTransition ErrorCode = "ILLEGAL_TRANSITION"

	// ErrCodeStillReferenced: deactivation blocked by active parents.
	ErrCodeStillReferenced ErrorCode = "STILL_REFERENCED"

	// ErrCodeRevertUnavailable: non-draft target or snapshot-less entry.
	ErrCodeRevertUnavailable ErrorCode = "REVERT_UNAVAILABLE"

	// ErrCodeInternal: storage or other unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Error is the typed failure every command returns.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// HarnessID identifies the affected harness, when there is one.
	HarnessID string

	// Details contains additional context (current/expected state, ids).
	Details map[string]string

	// Validation holds every finding for VALIDATION_FAILED and CYCLE_REJECTED.
	Validation []validate.ValidationError

	// Err is the underlying cause for INTERNAL errors.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.HarnessID != "" {
		msg += fmt.Sprintf(" (harness=%s)", e.HarnessID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of err, INTERNAL for foreign errors and "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsNotFound returns true for NOT_FOUND errors.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsValidationFailed returns true for VALIDATION_FAILED errors.
func IsValidationFailed(err error) bool { return hasCode(err, ErrCodeValidationFailed) }

// IsCycleRejected returns true for CYCLE_REJECTED errors.
func IsCycleRejected(err error) bool { return hasCode(err, ErrCodeCycleRejected) }

// IsIllegalTransition returns true for ILLEGAL_TRANSITION errors.
func IsIllegalTransition(err error) bool { return hasCode(err, ErrCodeIllegalTransition) }

// IsStillReferenced returns true for STILL_REFERENCED errors.
func IsStillReferenced(err error) bool { return hasCode(err, ErrCodeStillReferenced) }

// IsRevertUnavailable returns true for REVERT_UNAVAILABLE errors.
func IsRevertUnavailable(err error) bool { return hasCode(err, ErrCodeRevertUnavailable) }

// IsInternal returns true for INTERNAL errors.
func IsInternal(err error) bool { return hasCode(err, ErrCodeInternal) }

// NewNotFoundError creates a NOT_FOUND error for a kind of record.
func NewNotFoundError(kind, id string) *Error {
	e := &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %s not found", kind, id),
		Details: map[string]string{"kind": kind, "id": id},
	}
	if kind == "harness" {
		e.HarnessID = id
	}
	return e
}

// NewValidationError wraps validator findings. When every finding is a cycle
// finding the code is CYCLE_REJECTED; otherwise VALIDATION_FAILED.
func NewValidationError(harnessID string, findings []validate.ValidationError) *Error {
	code := ErrCodeCycleRejected
	for _, f := range findings {
		if f.Code != validate.ErrSubHarnessCycle {
			code = ErrCodeValidationFailed
			break
		}
	}
	msg := fmt.Sprintf("document has %d validation error(s)", len(findings))
	if code == ErrCodeCycleRejected {
		msg = "sub-harness reference would create a cycle"
	}
	return &Error{
		Code:       code,
		Message:    msg,
		HarnessID:  harnessID,
		Validation: findings,
	}
}

// NewCycleError creates a CYCLE_REJECTED error outside document validation,
// e.g. a cascade that exceeds its depth bound on corrupted stored data.
func NewCycleError(harnessID, message string) *Error {
	return &Error{
		Code:      ErrCodeCycleRejected,
		Message:   message,
		HarnessID: harnessID,
	}
}

// NewIllegalTransitionError names the command, the current state and the
// state(s) it requires.
func NewIllegalTransitionError(harnessID, command string, current model.ReleaseState, expected ...model.ReleaseState) *Error {
	want := make([]string, len(expected))
	for i, s := range expected {
		want[i] = string(s)
	}
	return &Error{
		Code: ErrCodeIllegalTransition,
		Message: fmt.Sprintf("cannot %s harness in state %s (requires %s)",
			command, current, strings.Join(want, " or ")),
		HarnessID: harnessID,
		Details: map[string]string{
			"command":  command,
			"current":  string(current),
			"expected": strings.Join(want, ","),
		},
	}
}

// NewStillReferencedError names the active parents blocking deactivation.
func NewStillReferencedError(harnessID string, parents []model.HarnessRef) *Error {
	names := make([]string, len(parents))
	ids := make([]string, len(parents))
	for i, p := range parents {
		names[i] = p.Name
		ids[i] = p.ID
	}
	return &Error{
		Code:      ErrCodeStillReferenced,
		Message:   fmt.Sprintf("harness is used as a sub-assembly by: %s", strings.Join(names, ", ")),
		HarnessID: harnessID,
		Details:   map[string]string{"parents": strings.Join(ids, ",")},
	}
}

// NewRevertUnavailableError explains why a revert cannot run.
func NewRevertUnavailableError(harnessID, reason string) *Error {
	return &Error{
		Code:      ErrCodeRevertUnavailable,
		Message:   reason,
		HarnessID: harnessID,
	}
}

// newInternalError wraps an unexpected failure.
func newInternalError(op string, err error) *Error {
	return &Error{
		Code:    ErrCodeInternal,
		Message: op + " failed",
		Err:     err,
	}
}
