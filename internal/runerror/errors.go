// Package runerror defines the error types a run can end with and a classifier
// the shells use to pick a response.
package runerror

import (
	"errors"
	"fmt"
	"strings"
)

// InputError reports missing or unusable run input.
type InputError struct {
	Fields []string
	Reason string
}

func (e *InputError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid input: missing %s", strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// ParseError reports input bytes that no reader could parse.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse input as CSV or spreadsheet: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EmptyResultError reports that normalization produced no records.
type EmptyResultError struct {
	Dropped int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no valid records found in input (%d rows dropped)", e.Dropped)
}

// NavigationError reports that the target budget could not be opened.
type NavigationError struct {
	Budget     string
	Candidates int
	Err        error
}

func (e *NavigationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not open budget %q: %v", e.Budget, e.Err)
	}
	return fmt.Sprintf("budget %q not found among %d candidate links", e.Budget, e.Candidates)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// StepFailure reports a failed synchronization step for one record.
type StepFailure struct {
	Step     string
	Group    string
	Category string
	Reason   string
	Err      error
}

func (e *StepFailure) Error() string {
	msg := fmt.Sprintf("%s step failed for %s/%s: %s", e.Step, e.Group, e.Category, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StepFailure) Unwrap() error {
	return e.Err
}

// VerificationMismatch reports an amount that still differs after the retry.
type VerificationMismatch struct {
	Category string
	Expected string
	Actual   string
}

func (e *VerificationMismatch) Error() string {
	return fmt.Sprintf("amount for %s is %q after retry, expected %q", e.Category, e.Actual, e.Expected)
}

// UnexpectedFault wraps anything that escaped the normal error paths, panics included.
type UnexpectedFault struct {
	Err error
}

func (e *UnexpectedFault) Error() string {
	return fmt.Sprintf("unexpected fault: %v", e.Err)
}

func (e *UnexpectedFault) Unwrap() error {
	return e.Err
}

// Kind is the classification of a run error.
type Kind string

const (
	KindNone         Kind = ""
	KindInput        Kind = "input"
	KindParse        Kind = "parse"
	KindEmpty        Kind = "empty"
	KindNavigation   Kind = "navigation"
	KindStep         Kind = "step"
	KindVerification Kind = "verification"
	KindFault        Kind = "fault"
)

// KindOf classifies err. Unknown errors are faults.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		inputErr *InputError
		parseErr *ParseError
		emptyErr *EmptyResultError
		navErr   *NavigationError
		mismatch *VerificationMismatch
		stepErr  *StepFailure
	)
	switch {
	case errors.As(err, &inputErr):
		return KindInput
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &emptyErr):
		return KindEmpty
	case errors.As(err, &navErr):
		return KindNavigation
	case errors.As(err, &mismatch):
		return KindVerification
	case errors.As(err, &stepErr):
		return KindStep
	default:
		return KindFault
	}
}

// IsClientError reports whether the error came from the caller's input.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindInput, KindParse, KindEmpty:
		return true
	}
	return false
}
