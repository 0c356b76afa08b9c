// Package types provides shared types for the backstop access layer.
// This package breaks import cycles between pkg/backstop and internal/cache.
package types

import (
	"fmt"
	"log/slog"
)

type AuthMode int

// AuthWorkloadIdentity is the zero value: endpoints that don't name a mode
// authenticate with the ambient workload identity.
const (
	AuthWorkloadIdentity AuthMode = iota
	AuthAccessKey
)

func (m AuthMode) String() string {
	switch m {
	case AuthWorkloadIdentity:
		return "workload_identity"
	case AuthAccessKey:
		return "access_key"
	default:
		return "unknown"
	}
}

// ParseAuthMode maps a config string to an AuthMode. The empty string
// selects AuthWorkloadIdentity.
func ParseAuthMode(s string) (AuthMode, error) {
	switch s {
	case "", "workload_identity", "workload-identity":
		return AuthWorkloadIdentity, nil
	case "access_key", "access-key":
		return AuthAccessKey, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAuthMode, s)
	}
}

// Endpoint describes one cache server instance. Immutable once constructed.
type Endpoint struct {
	Host       string
	Credential Secret
	AuthMode   AuthMode
}

// Validate checks that the endpoint can be dialed with its auth mode. It
// performs no network activity. Under AuthWorkloadIdentity a populated
// Credential is ignored, not rejected.
func (e Endpoint) Validate() error {
	if e.Host == "" {
		return ErrMissingHost
	}
	switch e.AuthMode {
	case AuthAccessKey:
		if e.Credential.IsEmpty() {
			return fmt.Errorf("%w: endpoint %s", ErrMissingCredential, e.Host)
		}
	case AuthWorkloadIdentity:
	default:
		return fmt.Errorf("%w: %d", ErrUnknownAuthMode, int(e.AuthMode))
	}
	return nil
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s (%s)", e.Host, e.AuthMode)
}

// LogValue renders the endpoint for structured logs without the credential.
func (e Endpoint) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", e.Host),
		slog.String("auth_mode", e.AuthMode.String()),
	)
}
