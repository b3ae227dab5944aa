package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("no active session for account")
	ErrAuthFailed      = errors.New("session authentication failed")
	ErrSendValidation  = errors.New("invalid outbound message")
	ErrInitTimeout     = errors.New("session initialization timed out")
)

func NewValidationError(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrSendValidation, field, reason)
}

// SendFailedError reports that every dispatch attempt failed. It wraps the
// error from the last attempt.
type SendFailedError struct {
	AccountID string
	Target    string
	Attempts  int
	Last      error
}

func (e *SendFailedError) Error() string {
	return fmt.Sprintf("send to %s failed after %d attempts: %v", e.Target, e.Attempts, e.Last)
}

func (e *SendFailedError) Unwrap() error {
	return e.Last
}
