package client

import (
	"errors"
	"testing"
	"time"

	"github.com/yuoguoxianseng/hbase/internal/testserver"
	"github.com/yuoguoxianseng/hbase/ipcerr"
)

func testClientConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	cfg.PingInterval = 200 * time.Millisecond
	cfg.MaxIdleTime = 5 * time.Second
	return cfg
}

func TestCallRoundTrip(t *testing.T) {
	srv, err := testserver.Start(testserver.Echo)
	if err != nil {
		t.Fatalf("start test server: %v", err)
	}
	defer srv.Close()

	c := New("call-roundtrip", testClientConfig())
	defer c.Stop()

	resp, err := c.Call([]byte("ping"), srv.Addr())
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(resp) != "ping" {
		t.Fatalf("unexpected echo: %q", resp)
	}
}

func TestCallSurfacesRemoteError(t *testing.T) {
	handler := func(payload []byte) ([]byte, bool, string, string) {
		return nil, true, "org.apache.hadoop.hbase.DoNotRetryIOException", "bad request"
	}
	srv, err := testserver.Start(handler)
	if err != nil {
		t.Fatalf("start test server: %v", err)
	}
	defer srv.Close()

	c := New("call-remote-error", testClientConfig())
	defer c.Stop()

	_, err = c.Call([]byte("x"), srv.Addr())
	if err == nil {
		t.Fatalf("expected a remote error")
	}
	var ipcErr *ipcerr.Error
	if !errors.As(err, &ipcErr) || ipcErr.Kind != ipcerr.KindRemote {
		t.Fatalf("expected KindRemote, got %v", err)
	}
}

// TestCallManyPartialFailure covers S6: one peer is live, one is
// unreachable; CallMany must return a value for the live call and a nil
// slot for the failed one, without ever returning an error itself.
func TestCallManyPartialFailure(t *testing.T) {
	live, err := testserver.Start(testserver.Echo)
	if err != nil {
		t.Fatalf("start test server: %v", err)
	}
	defer live.Close()

	dead, err := testserver.Start(testserver.Echo)
	if err != nil {
		t.Fatalf("start test server: %v", err)
	}
	deadAddr := dead.Addr()
	dead.Close() // nothing listens here anymore

	c := New("call-many-partial", testClientConfig())
	defer c.Stop()

	results := c.CallMany(
		[][]byte{[]byte("alpha"), []byte("beta")},
		[]string{live.Addr(), deadAddr},
	)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if string(results[0]) != "alpha" {
		t.Fatalf("expected live call to echo its payload, got %q", results[0])
	}
	if results[1] != nil {
		t.Fatalf("expected nil result for the unreachable peer, got %q", results[1])
	}
}

func TestCallAfterStopReturnsClientStopped(t *testing.T) {
	srv, err := testserver.Start(testserver.Echo)
	if err != nil {
		t.Fatalf("start test server: %v", err)
	}
	defer srv.Close()

	c := New("call-after-stop", testClientConfig())
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	_, err = c.Call([]byte("x"), srv.Addr())
	if err == nil {
		t.Fatalf("expected ClientStopped error after Stop")
	}
	var ipcErr *ipcerr.Error
	if !errors.As(err, &ipcErr) || ipcErr.Kind != ipcerr.KindClientStopped {
		t.Fatalf("expected KindClientStopped, got %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c := New("stop-idempotent", testClientConfig())
	if err := c.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second Stop should be a no-op, got: %v", err)
	}
}

func TestReleaseStopsAtZeroRefs(t *testing.T) {
	srv, err := testserver.Start(testserver.Echo)
	if err != nil {
		t.Fatalf("start test server: %v", err)
	}
	defer srv.Close()

	c := New("release-refcount", testClientConfig())
	c.Retain()
	c.Retain()

	if err := c.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := c.Call([]byte("x"), srv.Addr()); err != nil {
		t.Fatalf("expected client to still be running after one of two releases: %v", err)
	}

	if err := c.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := c.Call([]byte("x"), srv.Addr()); err == nil {
		t.Fatalf("expected client to be stopped after the final release")
	}
}
