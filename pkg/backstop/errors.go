package backstop

import (
	"github.com/LavishGent/backstop/internal/resilience"
	"github.com/LavishGent/backstop/internal/types"
)

type (
	// ConfigError reports invalid configuration, produced before any
	// network activity.
	ConfigError = types.ConfigError
	// AttemptError records one failed connection attempt.
	AttemptError = types.AttemptError
	// UnavailableError means every candidate endpoint was attempted and
	// none produced a healthy connection.
	UnavailableError = types.UnavailableError
	// ExhaustedError means a command kept failing transiently until the
	// retry budget ran out.
	ExhaustedError = types.ExhaustedError
	// CommandError wraps a command failure with its operation and key.
	CommandError = types.CommandError
)

var (
	// ErrKeyNotFound indicates a requested key is absent.
	ErrKeyNotFound = types.ErrKeyNotFound
	// ErrMissingHost indicates an endpoint without a host.
	ErrMissingHost = types.ErrMissingHost
	// ErrMissingCredential indicates access key auth without a credential.
	ErrMissingCredential = types.ErrMissingCredential
	// ErrUnknownAuthMode indicates an unrecognized auth mode.
	ErrUnknownAuthMode = types.ErrUnknownAuthMode
	// ErrAttemptTimeout indicates a connection attempt exceeded its budget.
	ErrAttemptTimeout = types.ErrAttemptTimeout
	// ErrInvalidKey indicates a malformed cache key.
	ErrInvalidKey = types.ErrInvalidKey
	// ErrClosed indicates the client has been closed.
	ErrClosed = types.ErrClosed
)

// IsKeyNotFound reports whether err is a cache miss.
func IsKeyNotFound(err error) bool {
	return types.IsKeyNotFound(err)
}

// IsInvalidKey reports whether err is a key validation failure.
func IsInvalidKey(err error) bool {
	return types.IsInvalidKey(err)
}

// IsClosed reports whether err means the client was already closed.
func IsClosed(err error) bool {
	return types.IsClosed(err)
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool {
	return types.IsConfig(err)
}

// IsUnavailable reports whether err means no endpoint could be reached.
func IsUnavailable(err error) bool {
	return types.IsUnavailable(err)
}

// IsExhausted reports whether err means the retry budget ran out.
func IsExhausted(err error) bool {
	return types.IsExhausted(err)
}

// IsAttemptTimeout reports whether err was caused by an attempt deadline.
func IsAttemptTimeout(err error) bool {
	return types.IsAttemptTimeout(err)
}

// IsRetryable reports whether a command failure would have been retried.
func IsRetryable(err error) bool {
	return resilience.IsRetryable(err)
}
