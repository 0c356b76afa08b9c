package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/LavishGent/backstop/internal/types"
)

// transientReplyPrefixes are Redis server replies that mean the server is up
// but momentarily unable to serve: dataset loading, replica promotion,
// cluster reconfiguration.
var transientReplyPrefixes = []string{
	"LOADING",
	"READONLY",
	"CLUSTERDOWN",
	"TRYAGAIN",
	"MASTERDOWN",
}

// transientPatterns match error strings from drivers that wrap the network
// cause without errors.Is support. Matched case-insensitively.
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"connection pool timeout",
}

// IsRetryable reports whether an operation failure is transient, meaning a
// retry against the same connection has a chance of succeeding. Anything not
// positively identified as transient is fatal and must not be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Caller gave up, or the failure repeats identically on every attempt.
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, types.ErrKeyNotFound) ||
		errors.Is(err, types.ErrInvalidKey) ||
		errors.Is(err, types.ErrClosed) {
		return false
	}

	// Operation deadlines: the next attempt gets a fresh one.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	// A connection dropped mid-reply surfaces as EOF from the protocol reader.
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := err.Error()
	for _, prefix := range transientReplyPrefixes {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	lower := strings.ToLower(msg)
	for _, pattern := range transientPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}

	return false
}
