package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrKeyNotFound       = errors.New("backstop: key not found")
	ErrMissingHost       = errors.New("backstop: endpoint host is required")
	ErrMissingCredential = errors.New("backstop: credential is required for access key auth")
	ErrUnknownAuthMode   = errors.New("backstop: unknown auth mode")
	ErrAttemptTimeout    = errors.New("backstop: connection attempt timed out")
	ErrInvalidKey        = errors.New("backstop: invalid key")
	ErrClosed            = errors.New("backstop: client closed")
)

// ConfigError reports invalid or missing configuration. It is always
// produced before any network activity.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{
		Field: field,
		Err:   err,
	}
}

// AttemptError records the failure of one connection attempt against one
// endpoint.
type AttemptError struct {
	Role string
	Host string
	Err  error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Role, e.Host, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// UnavailableError is the terminal establishment failure: every candidate
// endpoint was attempted and none produced a healthy connection. Attempts
// holds each failure in the order it happened.
type UnavailableError struct {
	Attempts []*AttemptError
}

func (e *UnavailableError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	return "no endpoint available: " + strings.Join(parts, "; ")
}

// Unwrap exposes every attempt failure, so errors.Is and errors.As reach
// each underlying cause.
func (e *UnavailableError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a
	}
	return errs
}

// ExhaustedError reports that an operation kept failing with transient
// errors until the retry budget ran out. Err is the last failure.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// CommandError wraps a command failure with the operation and key it
// happened on.
type CommandError struct {
	Op  string
	Key string
	Err error
}

func (e *CommandError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func NewCommandError(op, key string, err error) *CommandError {
	return &CommandError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

func IsInvalidKey(err error) bool {
	return errors.Is(err, ErrInvalidKey)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

func IsAttemptTimeout(err error) bool {
	return errors.Is(err, ErrAttemptTimeout)
}

func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}
