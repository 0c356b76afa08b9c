package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/LavishGent/backstop/internal/config"
	"github.com/LavishGent/backstop/internal/types"
)

func newTestMemoryConn(t *testing.T) types.Conn {
	t.Helper()

	backend := NewMemoryBackend(config.ForTesting().Memory, nil)
	conn, err := backend.Open(context.Background(), types.Endpoint{Host: "memory"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestMemoryBackendName(t *testing.T) {
	backend := NewMemoryBackend(config.ForTesting().Memory, nil)
	if got := backend.Name(); got != "memory" {
		t.Errorf("Name() = %v, want memory", got)
	}
}

func TestMemoryConnRoundTrip(t *testing.T) {
	conn := newTestMemoryConn(t)
	ctx := context.Background()

	if err := conn.Set(ctx, "greeting", []byte("hello"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	data, err := conn.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Errorf("Get() = %q, want %q", data, "hello")
	}
}

func TestMemoryConnGetMissing(t *testing.T) {
	conn := newTestMemoryConn(t)

	_, err := conn.Get(context.Background(), "absent")
	if !errors.Is(err, types.ErrKeyNotFound) {
		t.Errorf("Get() error = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryConnSetOverwrites(t *testing.T) {
	conn := newTestMemoryConn(t)
	ctx := context.Background()

	if err := conn.Set(ctx, "key", []byte("first"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := conn.Set(ctx, "key", []byte("second"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	data, err := conn.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "second" {
		t.Errorf("Get() = %q, want %q", data, "second")
	}
}

func TestMemoryConnDelete(t *testing.T) {
	conn := newTestMemoryConn(t)
	ctx := context.Background()

	if err := conn.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	existed, err := conn.Delete(ctx, "key")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !existed {
		t.Error("Delete() existed = false, want true")
	}

	if _, err := conn.Get(ctx, "key"); !errors.Is(err, types.ErrKeyNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryConnDeleteMissing(t *testing.T) {
	conn := newTestMemoryConn(t)

	existed, err := conn.Delete(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if existed {
		t.Error("Delete() existed = true, want false for absent key")
	}
}

func TestMemoryConnPing(t *testing.T) {
	conn := newTestMemoryConn(t)

	if err := conn.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestMemoryConnClose(t *testing.T) {
	backend := NewMemoryBackend(config.ForTesting().Memory, nil)
	conn, err := backend.Open(context.Background(), types.Endpoint{Host: "memory"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	ctx := context.Background()
	if err := conn.Ping(ctx); !errors.Is(err, types.ErrClosed) {
		t.Errorf("Ping() after close error = %v, want ErrClosed", err)
	}
	if _, err := conn.Get(ctx, "key"); !errors.Is(err, types.ErrClosed) {
		t.Errorf("Get() after close error = %v, want ErrClosed", err)
	}
	if err := conn.Set(ctx, "key", []byte("v"), 0); !errors.Is(err, types.ErrClosed) {
		t.Errorf("Set() after close error = %v, want ErrClosed", err)
	}
	if _, err := conn.Delete(ctx, "key"); !errors.Is(err, types.ErrClosed) {
		t.Errorf("Delete() after close error = %v, want ErrClosed", err)
	}
}

func TestMemoryConnIsolation(t *testing.T) {
	// Two opens from the same backend must not share entries.
	backend := NewMemoryBackend(config.ForTesting().Memory, nil)
	ctx := context.Background()

	first, err := backend.Open(ctx, types.Endpoint{Host: "a"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer first.Close()

	second, err := backend.Open(ctx, types.Endpoint{Host: "b"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer second.Close()

	if err := first.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := second.Get(ctx, "key"); !errors.Is(err, types.ErrKeyNotFound) {
		t.Errorf("Get() on second conn error = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryConnConcurrentAccess(t *testing.T) {
	conn := newTestMemoryConn(t)
	ctx := context.Background()

	const workers = 10
	const iterations = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				key := fmt.Sprintf("w%d-k%d", id, i)
				if err := conn.Set(ctx, key, []byte("value"), 0); err != nil {
					t.Errorf("Set(%s) error = %v", key, err)
					return
				}
				if _, err := conn.Get(ctx, key); err != nil {
					t.Errorf("Get(%s) error = %v", key, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
}

func TestMemoryConnLargeValue(t *testing.T) {
	conn := newTestMemoryConn(t)
	ctx := context.Background()

	large := bytes.Repeat([]byte("x"), 64*1024)
	if err := conn.Set(ctx, "large", large, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	data, err := conn.Get(ctx, "large")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(data, large) {
		t.Errorf("Get() returned %d bytes, want %d", len(data), len(large))
	}
}

func TestMemoryConnEndpoint(t *testing.T) {
	backend := NewMemoryBackend(config.ForTesting().Memory, nil)
	ep := types.Endpoint{Host: "memory-local", AuthMode: types.AuthWorkloadIdentity}

	conn, err := backend.Open(context.Background(), ep)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	if got := conn.Endpoint().Host; got != "memory-local" {
		t.Errorf("Endpoint().Host = %v, want memory-local", got)
	}
}

func TestMemoryConnExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping expiry test in short mode")
	}

	cfg := config.ForTesting().Memory
	cfg.DefaultTTL = time.Second
	cfg.CleanupInterval = time.Second

	backend := NewMemoryBackend(cfg, nil)
	conn, err := backend.Open(context.Background(), types.Endpoint{Host: "memory"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := conn.Set(ctx, "fleeting", []byte("value"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := conn.Get(ctx, "fleeting"); errors.Is(err, types.ErrKeyNotFound) {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Error("entry did not expire within the life window")
}
