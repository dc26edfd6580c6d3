package kraken

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the failure classes handled by the harvester and the
// extraction pipeline.
var (
	ErrTransientFetch = errors.New("transient fetch error")
	ErrFetch          = errors.New("fetch error")
	ErrNotFound       = errors.New("not found")
	ErrParse          = errors.New("parse error")
	ErrStorage        = errors.New("storage error")
	ErrConfiguration  = errors.New("configuration error")
)

// TransientFetchError is a network or remote failure that may succeed on retry.
type TransientFetchError struct {
	Op         string
	StatusCode int
	// RetryAfter is the server-requested delay, zero when none was given.
	RetryAfter time.Duration
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransientFetchError) Unwrap() error { return e.Err }

// Is matches ErrTransientFetch.
func (e *TransientFetchError) Is(target error) bool { return target == ErrTransientFetch }

// ParseError marks a record that could not be decoded into the expected shape.
type ParseError struct {
	MatchID string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse match %s: %v", e.MatchID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// StorageError is a disk I/O failure. It is always fatal.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error { return e.Err }

// Is matches ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ConfigurationError reports a missing input or invalid option combination.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configf builds a ConfigurationError for field.
func Configf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrTransientFetch)
}

// IsFatal reports whether err must stop a run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrConfiguration)
}

// RetryAfter extracts a server-requested delay from err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var tf *TransientFetchError
	if errors.As(err, &tf) && tf.RetryAfter > 0 {
		return tf.RetryAfter, true
	}
	return 0, false
}
