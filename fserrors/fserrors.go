// Package fserrors defines the error kinds used across the import
// workflow and a retry classification for the copy executor.
package fserrors

import (
	"github.com/pkg/errors"
)

// Sentinel error kinds. Callers wrap these with context and test for
// them with errors.Is (pkg/errors.Cause unwraps compatibly).
var (
	// ErrPathNotFound means a configured root does not exist.
	ErrPathNotFound = errors.New("path not found")

	// ErrNotWritable means a configured root is not writable.
	ErrNotWritable = errors.New("path not writable")

	// ErrPathTooLong means no viable canonical path fits within the
	// filesystem limit, even truncated.
	ErrPathTooLong = errors.New("path too long")

	// ErrCopyFailed means the external bulk copy exhausted its retries.
	ErrCopyFailed = errors.New("copy failed")

	// ErrChecksumMismatch means post-copy content diverged from the
	// before-snapshot.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrNameCollisionUnresolved means the reorganizer could not find a
	// free disambiguated name within the configured bound.
	ErrNameCollisionUnresolved = errors.New("name collision unresolved")

	// ErrUnsupported means a requested mode is not implemented, e.g.
	// list-based copy combined with dry-run.
	ErrUnsupported = errors.New("operation not supported")
)

// Retrier is an optional interface for errors to report whether the
// operation that produced them is worth retrying.
type Retrier interface {
	error
	Retry() bool
}

type retryError struct {
	error
}

func (e retryError) Retry() bool { return true }

func (e retryError) Unwrap() error { return e.error }

var _ Retrier = retryError{}

// RetryError wraps err so it reports itself as retryable.
func RetryError(err error) error {
	return retryError{err}
}

// IsRetryable reports whether err is marked retryable anywhere in its
// cause chain.
func IsRetryable(err error) bool {
	for err != nil {
		if r, ok := err.(Retrier); ok {
			return r.Retry()
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = cause.Cause()
	}
	return false
}
