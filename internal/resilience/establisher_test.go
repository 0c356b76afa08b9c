package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LavishGent/backstop/internal/types"
)

// stubConn is a test double for types.Conn that records lifecycle calls.
type stubConn struct {
	ep        types.Endpoint
	pingErr   error
	pingDelay time.Duration
	closes    atomic.Int32
}

func (c *stubConn) Endpoint() types.Endpoint { return c.ep }

func (c *stubConn) Ping(ctx context.Context) error {
	if c.pingDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pingDelay):
		}
	}
	return c.pingErr
}

func (c *stubConn) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }

func (c *stubConn) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (c *stubConn) Delete(ctx context.Context, key string) (bool, error) { return false, nil }

func (c *stubConn) Close() error {
	c.closes.Add(1)
	return nil
}

// stubBackend hands out stubConns and records every open in order.
type stubBackend struct {
	mu        sync.Mutex
	opens     []string
	conns     []*stubConn
	openErr   map[string]error
	pingErr   map[string]error
	pingDelay map[string]time.Duration
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		openErr:   make(map[string]error),
		pingErr:   make(map[string]error),
		pingDelay: make(map[string]time.Duration),
	}
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Open(ctx context.Context, ep types.Endpoint) (types.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.opens = append(b.opens, ep.Host)
	if err := b.openErr[ep.Host]; err != nil {
		return nil, err
	}

	conn := &stubConn{
		ep:        ep,
		pingErr:   b.pingErr[ep.Host],
		pingDelay: b.pingDelay[ep.Host],
	}
	b.conns = append(b.conns, conn)
	return conn, nil
}

func (b *stubBackend) openCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.opens)
}

var _ types.Backend = (*stubBackend)(nil)
var _ types.Conn = (*stubConn)(nil)

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateTryingPrimary, "trying-primary"},
		{StateTryingFailover, "trying-failover"},
		{StateEstablished, "established"},
		{StateExhausted, "exhausted"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("State.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEstablishPrimarySucceeds(t *testing.T) {
	backend := newStubBackend()
	e := NewEstablisher(backend, time.Second)

	primary := types.Endpoint{Host: "primary:6379"}
	failover := &types.Endpoint{Host: "failover:6379"}

	conn, err := e.Establish(context.Background(), primary, failover)
	if err != nil {
		t.Fatalf("Establish() error = %v", err)
	}
	if conn.Endpoint().Host != "primary:6379" {
		t.Errorf("endpoint = %s, want primary:6379", conn.Endpoint().Host)
	}

	// Failover must never be touched when the primary connects.
	if backend.openCount() != 1 {
		t.Errorf("opens = %d, want 1", backend.openCount())
	}
	if backend.opens[0] != "primary:6379" {
		t.Errorf("opened %s, want primary:6379", backend.opens[0])
	}
}

func TestEstablishFailsOverAfterPrimaryFailure(t *testing.T) {
	backend := newStubBackend()
	backend.openErr["primary:6379"] = errors.New("connection refused")
	e := NewEstablisher(backend, time.Second)

	primary := types.Endpoint{Host: "primary:6379"}
	failover := &types.Endpoint{Host: "failover:6379"}

	conn, err := e.Establish(context.Background(), primary, failover)
	if err != nil {
		t.Fatalf("Establish() error = %v", err)
	}
	if conn.Endpoint().Host != "failover:6379" {
		t.Errorf("endpoint = %s, want failover:6379", conn.Endpoint().Host)
	}

	if backend.openCount() != 2 {
		t.Fatalf("opens = %d, want 2", backend.openCount())
	}
	if backend.opens[0] != "primary:6379" || backend.opens[1] != "failover:6379" {
		t.Errorf("open order = %v, want primary then failover", backend.opens)
	}
}

func TestEstablishProbeFailureFailsOver(t *testing.T) {
	// The primary accepts the connection but its health probe fails. The
	// attempt counts as failed and the handle must be torn down.
	backend := newStubBackend()
	backend.pingErr["primary:6379"] = errors.New("LOADING Redis is loading the dataset in memory")
	e := NewEstablisher(backend, time.Second)

	primary := types.Endpoint{Host: "primary:6379"}
	failover := &types.Endpoint{Host: "failover:6379"}

	conn, err := e.Establish(context.Background(), primary, failover)
	if err != nil {
		t.Fatalf("Establish() error = %v", err)
	}
	if conn.Endpoint().Host != "failover:6379" {
		t.Errorf("endpoint = %s, want failover:6379", conn.Endpoint().Host)
	}

	if len(backend.conns) != 2 {
		t.Fatalf("conns handed out = %d, want 2", len(backend.conns))
	}
	if got := backend.conns[0].closes.Load(); got != 1 {
		t.Errorf("failed primary conn closes = %d, want 1 (leaked handle)", got)
	}
	if got := backend.conns[1].closes.Load(); got != 0 {
		t.Errorf("live failover conn closes = %d, want 0", got)
	}
}

func TestEstablishBothEndpointsFail(t *testing.T) {
	backend := newStubBackend()
	backend.openErr["primary:6379"] = errors.New("connection refused")
	backend.pingErr["failover:6379"] = errors.New("READONLY You can't write against a read only replica")
	e := NewEstablisher(backend, time.Second)

	primary := types.Endpoint{Host: "primary:6379"}
	failover := &types.Endpoint{Host: "failover:6379"}

	conn, err := e.Establish(context.Background(), primary, failover)
	if conn != nil {
		t.Fatal("Establish() conn != nil, want nil")
	}

	var unavailable *types.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Establish() error = %v, want UnavailableError", err)
	}
	if len(unavailable.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(unavailable.Attempts))
	}
	if unavailable.Attempts[0].Role != RolePrimary || unavailable.Attempts[1].Role != RoleFailover {
		t.Errorf("attempt roles = %s, %s, want primary, failover",
			unavailable.Attempts[0].Role, unavailable.Attempts[1].Role)
	}

	// The failover conn was opened but failed its probe; it must be closed.
	if len(backend.conns) != 1 {
		t.Fatalf("conns handed out = %d, want 1", len(backend.conns))
	}
	if got := backend.conns[0].closes.Load(); got != 1 {
		t.Errorf("failed conn closes = %d, want 1", got)
	}
}

func TestEstablishNoFailoverConfigured(t *testing.T) {
	backend := newStubBackend()
	backend.openErr["primary:6379"] = errors.New("connection refused")
	e := NewEstablisher(backend, time.Second)

	primary := types.Endpoint{Host: "primary:6379"}

	_, err := e.Establish(context.Background(), primary, nil)

	var unavailable *types.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Establish() error = %v, want UnavailableError", err)
	}
	if len(unavailable.Attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(unavailable.Attempts))
	}
	if backend.openCount() != 1 {
		t.Errorf("opens = %d, want 1", backend.openCount())
	}
}

func TestEstablishInvalidConfigMakesNoAttempt(t *testing.T) {
	t.Run("primary missing credential", func(t *testing.T) {
		backend := newStubBackend()
		e := NewEstablisher(backend, time.Second)

		primary := types.Endpoint{Host: "primary:6379", AuthMode: types.AuthAccessKey}

		_, err := e.Establish(context.Background(), primary, nil)
		if !types.IsConfig(err) {
			t.Fatalf("Establish() error = %v, want ConfigError", err)
		}
		if !errors.Is(err, types.ErrMissingCredential) {
			t.Errorf("error = %v, want ErrMissingCredential underneath", err)
		}
		if backend.openCount() != 0 {
			t.Errorf("opens = %d, want 0 before any network activity", backend.openCount())
		}
	})

	t.Run("failover invalid fails even with healthy primary", func(t *testing.T) {
		backend := newStubBackend()
		e := NewEstablisher(backend, time.Second)

		primary := types.Endpoint{Host: "primary:6379"}
		failover := &types.Endpoint{AuthMode: types.AuthAccessKey} // no host

		_, err := e.Establish(context.Background(), primary, failover)
		if !types.IsConfig(err) {
			t.Fatalf("Establish() error = %v, want ConfigError", err)
		}
		if backend.openCount() != 0 {
			t.Errorf("opens = %d, want 0", backend.openCount())
		}
	})
}

// recordingMetrics captures RecordAttempt calls for assertions.
type recordingMetrics struct {
	mu       sync.Mutex
	attempts []attemptRecord
}

type attemptRecord struct {
	role   string
	host   string
	failed bool
}

func (r *recordingMetrics) RecordAttempt(role, host string, latency time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attemptRecord{role: role, host: host, failed: err != nil})
}

func (r *recordingMetrics) RecordCommand(op string, latency time.Duration, err error) {}
func (r *recordingMetrics) RecordRetry(op string)                                     {}
func (r *recordingMetrics) RecordStateChange(from, to string)                         {}

var _ types.MetricsRecorder = (*recordingMetrics)(nil)

func TestEstablishRecordsBothAttemptsOnFailover(t *testing.T) {
	// A connection established through the failover must still leave a
	// record of the failed primary attempt behind.
	backend := newStubBackend()
	backend.openErr["primary:6379"] = errors.New("connection refused")
	rec := &recordingMetrics{}
	e := NewEstablisher(backend, time.Second, WithMetrics(rec))

	conn, err := e.Establish(context.Background(),
		types.Endpoint{Host: "primary:6379"},
		&types.Endpoint{Host: "failover:6379"})
	if err != nil {
		t.Fatalf("Establish() error = %v", err)
	}
	defer conn.Close()

	want := []attemptRecord{
		{role: RolePrimary, host: "primary:6379", failed: true},
		{role: RoleFailover, host: "failover:6379", failed: false},
	}
	if len(rec.attempts) != len(want) {
		t.Fatalf("recorded attempts = %d, want %d", len(rec.attempts), len(want))
	}
	for i, w := range want {
		if rec.attempts[i] != w {
			t.Errorf("attempt[%d] = %+v, want %+v", i, rec.attempts[i], w)
		}
	}
}

func TestEstablishAttemptTimeout(t *testing.T) {
	backend := newStubBackend()
	backend.pingDelay["primary:6379"] = time.Hour // never answers within budget
	e := NewEstablisher(backend, 50*time.Millisecond)

	primary := types.Endpoint{Host: "primary:6379"}

	start := time.Now()
	_, err := e.Establish(context.Background(), primary, nil)
	elapsed := time.Since(start)

	if !types.IsAttemptTimeout(err) {
		t.Fatalf("Establish() error = %v, want ErrAttemptTimeout underneath", err)
	}
	var unavailable *types.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Establish() error = %v, want UnavailableError wrapper", err)
	}
	if elapsed > time.Second {
		t.Errorf("Establish() took %v, want bounded by the attempt timeout", elapsed)
	}

	// The opened conn timed out during its probe; it must still be closed.
	if len(backend.conns) != 1 {
		t.Fatalf("conns handed out = %d, want 1", len(backend.conns))
	}
	if got := backend.conns[0].closes.Load(); got != 1 {
		t.Errorf("timed-out conn closes = %d, want 1", got)
	}
}

func TestEstablishWorstCaseLatencyIsBounded(t *testing.T) {
	backend := newStubBackend()
	backend.pingDelay["primary:6379"] = time.Hour
	backend.pingDelay["failover:6379"] = time.Hour
	e := NewEstablisher(backend, 50*time.Millisecond)

	primary := types.Endpoint{Host: "primary:6379"}
	failover := &types.Endpoint{Host: "failover:6379"}

	start := time.Now()
	_, err := e.Establish(context.Background(), primary, failover)
	elapsed := time.Since(start)

	if !types.IsUnavailable(err) {
		t.Fatalf("Establish() error = %v, want UnavailableError", err)
	}
	// Two candidates, one timed attempt each.
	if elapsed > 2*time.Second {
		t.Errorf("Establish() took %v, want roughly two attempt timeouts", elapsed)
	}
}

func TestEstablishStateTransitions(t *testing.T) {
	type change struct{ from, to State }

	collect := func() (*[]change, EstablisherOption) {
		var changes []change
		return &changes, WithOnTransition(func(from, to State) {
			changes = append(changes, change{from, to})
		})
	}

	t.Run("primary success", func(t *testing.T) {
		backend := newStubBackend()
		changes, opt := collect()
		e := NewEstablisher(backend, time.Second, opt)

		_, err := e.Establish(context.Background(), types.Endpoint{Host: "primary:6379"}, nil)
		if err != nil {
			t.Fatalf("Establish() error = %v", err)
		}

		want := []change{{StateTryingPrimary, StateEstablished}}
		if len(*changes) != len(want) || (*changes)[0] != want[0] {
			t.Errorf("transitions = %v, want %v", *changes, want)
		}
	})

	t.Run("failover success", func(t *testing.T) {
		backend := newStubBackend()
		backend.openErr["primary:6379"] = errors.New("connection refused")
		changes, opt := collect()
		e := NewEstablisher(backend, time.Second, opt)

		_, err := e.Establish(context.Background(),
			types.Endpoint{Host: "primary:6379"},
			&types.Endpoint{Host: "failover:6379"})
		if err != nil {
			t.Fatalf("Establish() error = %v", err)
		}

		want := []change{
			{StateTryingPrimary, StateTryingFailover},
			{StateTryingFailover, StateEstablished},
		}
		if len(*changes) != 2 || (*changes)[0] != want[0] || (*changes)[1] != want[1] {
			t.Errorf("transitions = %v, want %v", *changes, want)
		}
	})

	t.Run("exhaustion", func(t *testing.T) {
		backend := newStubBackend()
		backend.openErr["primary:6379"] = errors.New("connection refused")
		backend.openErr["failover:6379"] = errors.New("connection refused")
		changes, opt := collect()
		e := NewEstablisher(backend, time.Second, opt)

		_, err := e.Establish(context.Background(),
			types.Endpoint{Host: "primary:6379"},
			&types.Endpoint{Host: "failover:6379"})
		if !types.IsUnavailable(err) {
			t.Fatalf("Establish() error = %v, want UnavailableError", err)
		}

		want := []change{
			{StateTryingPrimary, StateTryingFailover},
			{StateTryingFailover, StateExhausted},
		}
		if len(*changes) != 2 || (*changes)[0] != want[0] || (*changes)[1] != want[1] {
			t.Errorf("transitions = %v, want %v", *changes, want)
		}
	})
}

func TestEstablishCallerCancellation(t *testing.T) {
	backend := newStubBackend()
	backend.pingDelay["primary:6379"] = time.Hour
	e := NewEstablisher(backend, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := e.Establish(ctx,
			types.Endpoint{Host: "primary:6379"},
			&types.Endpoint{Host: "failover:6379"})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Establish() error = %v, want context.Canceled", err)
		}
		// Cancellation must not move on to the failover candidate.
		if backend.openCount() != 1 {
			t.Errorf("opens = %d, want 1 after cancellation", backend.openCount())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Establish() did not return after cancellation")
	}
}
