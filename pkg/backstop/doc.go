// Package backstop provides resilient client access to a remote
// Redis-compatible cache.
//
// backstop establishes one health-validated connection against an ordered
// pair of endpoints (primary, then optional failover), funnels every
// command through bounded retry with binary error classification, and
// exposes plain byte-oriented Get/Set/Delete operations over the result.
//
// # Features
//
//   - Ordered Failover: one timed attempt per endpoint; the failover is
//     only tried after the primary attempt fails
//   - Fail-Fast Configuration: invalid endpoints are rejected before any
//     network activity
//   - Bounded Retry: transient failures are retried with exponential
//     backoff on the same connection; fatal failures surface immediately
//   - Workload Identity: Entra ID token authentication alongside classic
//     access keys
//   - Observability: pluggable metrics recording and publishing
//
// # Quick Start
//
// Connect with default configuration:
//
//	ctx := context.Background()
//	client, err := backstop.Connect(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// # Commands
//
// Values are opaque bytes; a zero TTL uses the configured default:
//
//	err := client.Set(ctx, "user:123", payload, 5*time.Minute)
//
//	data, err := client.Get(ctx, "user:123")
//	if backstop.IsKeyNotFound(err) {
//	    // miss, not a failure
//	}
//
//	existed, err := client.Delete(ctx, "user:123")
//
// # Endpoints and Failover
//
// Configure a failover endpoint to be attempted when the primary fails:
//
//	cfg := backstop.DefaultConfig()
//	cfg.Primary.Host = "cache-eastus.example.net:6380"
//	cfg.Failover.Host = "cache-westus.example.net:6380"
//	cfg.Auth.Mode = "access_key"
//	cfg.Primary.AccessKey = backstop.NewSecret(os.Getenv("CACHE_KEY"))
//	cfg.Failover.AccessKey = backstop.NewSecret(os.Getenv("CACHE_KEY_WEST"))
//	client, err := backstop.Connect(ctx, cfg)
//
// When both attempts fail, Connect returns an *UnavailableError carrying
// the cause of each attempt.
//
// # Configuration
//
// Load configuration from a JSON file with environment overrides:
//
//	client, err := backstop.ConnectFromFile(ctx, "config.json")
//
// For tests and local development, the in-process memory backend needs no
// server:
//
//	client, err := backstop.ConnectMemory(ctx)
//
// # Thread Safety
//
// The client is safe for concurrent use. Commands issued from different
// goroutines are independent and may complete in any order; Close is
// idempotent and releases the underlying connection exactly once.
package backstop
