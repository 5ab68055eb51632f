package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredential = errors.New("GEMINI_API_KEY is not defined or invalid. Set it in the server environment or provide a custom key in Settings.")
	ErrQuotaExceeded     = errors.New("API Quota Exhausted. The Free Tier has limits (RPM/RPD). Please wait a few minutes or check your Google AI Studio dashboard.")
	ErrCooldownActive    = errors.New("API is in cooldown due to previous quota error")
	ErrParse             = errors.New("response did not match the expected shape")
	ErrRefreshInProgress = errors.New("market data refresh already in progress")
	ErrBusy              = errors.New("another analysis is already running")
	ErrDuplicateTicker   = errors.New("ticker is already on the watchlist")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
)

// RemoteError is a failed call to the generative AI API. Status is the HTTP
// status when the transport reported one.
type RemoteError struct {
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote call failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("remote call failed: %v", e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// FailureKind groups failures by what the caller should do about them.
type FailureKind string

const (
	FailureCredential FailureKind = "credential"
	FailureCooldown   FailureKind = "cooldown"
	FailureQuota      FailureKind = "quota"
	FailureRemote     FailureKind = "remote"
	FailureParse      FailureKind = "parse"
	FailureBusy       FailureKind = "busy"
	FailureInput      FailureKind = "input"
	FailureConflict   FailureKind = "conflict"
	FailureNotFound   FailureKind = "not_found"
)

// Failure is a classified error with the message shown to the user. Err keeps
// the underlying cause for logs and errors.Is.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure builds a Failure.
func NewFailure(kind FailureKind, message string, cause error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: cause}
}

// AsFailure extracts a Failure from err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
