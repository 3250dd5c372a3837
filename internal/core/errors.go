package core

import "errors"

// Error kinds. Every error produced by the ledger wraps exactly one of them.
var (
	ErrValidation = errors.New("validation error")
	ErrParse      = errors.New("parse error")
	ErrAuth       = errors.New("auth error")
	ErrStore      = errors.New("store error")
)

// Error carries a user-facing message, its kind and an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Validation reports malformed or missing input. Never retried.
func Validation(msg string) error {
	return &Error{Kind: ErrValidation, Msg: msg}
}

// Parse reports a malformed request body.
func Parse(msg string, err error) error {
	return &Error{Kind: ErrParse, Msg: msg, Err: err}
}

// Auth reports a credential or authorization failure reaching the store.
func Auth(msg string, err error) error {
	return &Error{Kind: ErrAuth, Msg: msg, Err: err}
}

// Store reports a transient or permanent failure of a store call.
func Store(msg string, err error) error {
	return &Error{Kind: ErrStore, Msg: msg, Err: err}
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrParse)
}
