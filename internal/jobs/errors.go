package jobs

import (
	"errors"
	"net"
)

type permanentError struct {
	err error
}

func (e permanentError) Error() string {
	return e.err.Error()
}

func (e permanentError) Unwrap() error {
	return e.err
}

// Permanent marks an error that retrying cannot fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

type retryError struct {
	err error
}

func (e retryError) Error() string {
	return e.err.Error()
}

func (e retryError) Unwrap() error {
	return e.err
}

// Retry marks an error that may go away if the job runs again later.
func Retry(err error) error {
	if err == nil {
		return nil
	}
	return retryError{err: err}
}

// IsRetryable reports whether a failed job should run again: connection
// errors, soft time limits, errors marked with Retry and errors that say so
// through a Retryable() method. Errors marked with Permanent never are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var permanent permanentError
	if errors.As(err, &permanent) {
		return false
	}
	if errors.Is(err, ErrSoftTimeLimit) {
		return true
	}
	var retry retryError
	if errors.As(err, &retry) {
		return true
	}
	var retryable interface{ Retryable() bool }
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
