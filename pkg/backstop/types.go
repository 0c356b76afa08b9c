package backstop

import (
	"github.com/LavishGent/backstop/internal/config"
	"github.com/LavishGent/backstop/internal/resilience"
	"github.com/LavishGent/backstop/internal/types"
)

type (
	// Config is the full client configuration.
	Config = config.Config
	// EndpointConfig names one endpoint and its access key.
	EndpointConfig = config.EndpointConfig
	// RetryConfig bounds the per-command retry loop.
	RetryConfig = config.RetryConfig
	// EstablishConfig bounds connection establishment.
	EstablishConfig = config.EstablishConfig

	// Endpoint describes one cache server instance.
	Endpoint = types.Endpoint
	// AuthMode selects how an endpoint authenticates.
	AuthMode = types.AuthMode
	// Secret holds a credential that never appears in logs or output.
	Secret = types.Secret
	// Conn is an open connection to one endpoint.
	Conn = types.Conn
	// Backend opens connections for a class of servers.
	Backend = types.Backend
	// MetricsRecorder receives attempt, command, and retry events.
	MetricsRecorder = types.MetricsRecorder

	// State describes where connection establishment stands.
	State = resilience.State
)

const (
	// AuthWorkloadIdentity authenticates with the ambient Entra ID
	// workload identity. This is the default.
	AuthWorkloadIdentity = types.AuthWorkloadIdentity
	// AuthAccessKey authenticates with a pre-shared access key.
	AuthAccessKey = types.AuthAccessKey
)

const (
	StateTryingPrimary  = resilience.StateTryingPrimary
	StateTryingFailover = resilience.StateTryingFailover
	StateEstablished    = resilience.StateEstablished
	StateExhausted      = resilience.StateExhausted
)

// NewSecret wraps a credential value so it cannot leak through logging or
// formatting.
func NewSecret(value string) Secret {
	return types.NewSecret(value)
}

// ParseAuthMode maps a config string to an AuthMode. The empty string
// selects AuthWorkloadIdentity.
func ParseAuthMode(s string) (AuthMode, error) {
	return types.ParseAuthMode(s)
}
