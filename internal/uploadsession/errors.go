package uploadsession

import (
	"errors"
	"fmt"
)

// Kind classifies a surfaced failure so the UI can pick a message.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindUpload           Kind = "upload"
	KindParseFailed      Kind = "parse_failed"
	KindPollingExhausted Kind = "polling_exhausted"
	KindSessionFetch     Kind = "session_fetch"
)

// Error is the discriminated failure surfaced to callers.
type Error struct {
	Kind     Kind
	Job      JobID
	Document DocumentID
	Detail   string
	Err      error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	switch e.Kind {
	case KindValidation:
		msg = "invalid file"
	case KindUpload:
		msg = "upload failed"
	case KindParseFailed:
		msg = "parse failed"
	case KindPollingExhausted:
		msg = "polling exhausted"
	case KindSessionFetch:
		msg = "session fetch failed"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil && (e.Detail == "" || e.Detail != e.Err.Error()) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Detail == "" && t.Err == nil && t.Job == "" && t.Document == ""
}

// Retryable reports whether retrying the same file could succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindUpload || e.Kind == KindPollingExhausted || e.Kind == KindSessionFetch
}

var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrUpload           = &Error{Kind: KindUpload}
	ErrParseFailed      = &Error{Kind: KindParseFailed}
	ErrPollingExhausted = &Error{Kind: KindPollingExhausted}
	ErrSessionFetch     = &Error{Kind: KindSessionFetch}
)

var (
	// ErrBusy is returned when an upload or fetch is already in flight.
	ErrBusy = errors.New("upload session busy")
	// ErrClosed is returned after Teardown.
	ErrClosed = errors.New("upload session closed")
	// ErrSuperseded is returned when Reset or another subject replaced the
	// one a blocking call was working on.
	ErrSuperseded = errors.New("upload session superseded")
)

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

var errMissingJobID = errors.New("upload response missing job id")

func mismatchError(what, got, want string) error {
	return fmt.Errorf("%s for %s returned for %s", what, got, want)
}
