package pool

import (
	"testing"
	"time"

	"github.com/yuoguoxianseng/hbase/callslot"
	"github.com/yuoguoxianseng/hbase/conn"
	"github.com/yuoguoxianseng/hbase/identity"
	"github.com/yuoguoxianseng/hbase/internal/testserver"
	"github.com/yuoguoxianseng/hbase/wire"
)

func testConfig() conn.Config {
	return conn.Config{
		MaxIdleTime:  5 * time.Second,
		MaxRetries:   2,
		PingInterval: 200 * time.Millisecond,
		NewValue:     wire.NewBytesValue,
	}
}

func TestAcquireReusesExistingConnection(t *testing.T) {
	srv, err := testserver.Start(testserver.Echo)
	if err != nil {
		t.Fatalf("start test server: %v", err)
	}
	defer srv.Close()

	stopCh := make(chan struct{})
	defer close(stopCh)
	p := New(testConfig(), stopCh)

	key := conn.Key{Peer: srv.Addr(), Identity: identity.NewUUID()}

	slotA := callslot.New(1, nil)
	connA, err := p.Acquire(key, 1, slotA)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	slotB := callslot.New(2, nil)
	connB, err := p.Acquire(key, 2, slotB)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if connA != connB {
		t.Fatalf("expected the same pooled connection to be reused for one key")
	}
	if p.Size() != 1 {
		t.Fatalf("expected pool size 1, got %d", p.Size())
	}
}

func TestAcquireDistinctKeysGetDistinctConnections(t *testing.T) {
	srv, err := testserver.Start(testserver.Echo)
	if err != nil {
		t.Fatalf("start test server: %v", err)
	}
	defer srv.Close()

	stopCh := make(chan struct{})
	defer close(stopCh)
	p := New(testConfig(), stopCh)

	keyA := conn.Key{Peer: srv.Addr(), Identity: identity.NewUUID()}
	keyB := conn.Key{Peer: srv.Addr(), Identity: identity.NewUUID()}

	connA, err := p.Acquire(keyA, 1, callslot.New(1, nil))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	connB, err := p.Acquire(keyB, 1, callslot.New(1, nil))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if connA == connB {
		t.Fatalf("expected distinct identities to get distinct connections")
	}
	if p.Size() != 2 {
		t.Fatalf("expected pool size 2, got %d", p.Size())
	}
}

func TestRemoveIfSameIgnoresStaleConnection(t *testing.T) {
	srv, err := testserver.Start(testserver.Echo)
	if err != nil {
		t.Fatalf("start test server: %v", err)
	}
	defer srv.Close()

	stopCh := make(chan struct{})
	defer close(stopCh)
	p := New(testConfig(), stopCh)

	key := conn.Key{Peer: srv.Addr(), Identity: identity.NewUUID()}
	c, err := p.Acquire(key, 1, callslot.New(1, nil))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	stale := conn.New(key, testConfig(), p, stopCh)
	if p.RemoveIfSame(key, stale) {
		t.Fatalf("RemoveIfSame should not evict a connection the pool doesn't currently map to")
	}
	if p.Size() != 1 {
		t.Fatalf("pool should be unaffected by a stale RemoveIfSame")
	}

	if !p.RemoveIfSame(key, c) {
		t.Fatalf("RemoveIfSame should evict the connection the pool currently maps to")
	}
	if p.Size() != 0 {
		t.Fatalf("expected pool empty after RemoveIfSame, got %d", p.Size())
	}
}

// TestAcquireConcurrentJoinersWaitForSetup drives many goroutines acquiring
// the same brand-new key at once: every one of them must observe a
// connection whose SetupIO has already run to completion (never a
// half-connected socket), since Acquire calls SetupIO itself rather than
// trusting the creator to have finished first.
func TestAcquireConcurrentJoinersWaitForSetup(t *testing.T) {
	srv, err := testserver.Start(testserver.Echo)
	if err != nil {
		t.Fatalf("start test server: %v", err)
	}
	defer srv.Close()

	stopCh := make(chan struct{})
	defer close(stopCh)
	p := New(testConfig(), stopCh)

	key := conn.Key{Peer: srv.Addr(), Identity: identity.NewUUID()}

	const joiners = 8
	errs := make(chan error, joiners)
	for i := 0; i < joiners; i++ {
		i := i
		go func() {
			slot := callslot.New(int32(i), nil)
			c, err := p.Acquire(key, int32(i), slot)
			if err != nil {
				errs <- err
				return
			}
			errs <- c.Send(int32(i), []byte("hi"))
		}()
	}

	for i := 0; i < joiners; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("joiner failed: %v", err)
		}
	}
	if p.Size() != 1 {
		t.Fatalf("expected exactly one pooled connection for the shared key, got %d", p.Size())
	}
}

func TestSnapshotListsAllConnections(t *testing.T) {
	srv, err := testserver.Start(testserver.Echo)
	if err != nil {
		t.Fatalf("start test server: %v", err)
	}
	defer srv.Close()

	stopCh := make(chan struct{})
	defer close(stopCh)
	p := New(testConfig(), stopCh)

	for i := 0; i < 3; i++ {
		key := conn.Key{Peer: srv.Addr(), Identity: identity.NewUUID()}
		if _, err := p.Acquire(key, int32(i), callslot.New(int32(i), nil)); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
	}

	snapshot := p.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 connections in snapshot, got %d", len(snapshot))
	}
}
