package client

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yuoguoxianseng/hbase/callslot"
	"github.com/yuoguoxianseng/hbase/conn"
	"github.com/yuoguoxianseng/hbase/identity"
	"github.com/yuoguoxianseng/hbase/ipcerr"
	"github.com/yuoguoxianseng/hbase/metrics"
	"github.com/yuoguoxianseng/hbase/pool"
)

// stopPollInterval is how often Stop checks whether the pool has fully
// drained while waiting for every connection's own close path to unwind.
const stopPollInterval = 100 * time.Millisecond

func pollSleep() {
	time.Sleep(stopPollInterval)
}

// Client is the public entry point: it allocates call ids, routes calls
// through the connection pool, and blocks callers until their response (or
// a terminal error) arrives.
type Client struct {
	cfg    Config
	p      *pool.Pool
	stopCh chan struct{}
	m      *metrics.Metrics
	name   string

	running  atomic.Bool
	refCount atomic.Int64

	idMu   sync.Mutex
	nextID int32
}

// New builds a running Client identified by name (used as the metrics
// namespace; distinct clients in one process should use distinct names).
// Callers that share a Client across multiple owners should pair each
// acquisition with Retain/Release so the last owner's Release can Stop it;
// a single owner may just defer Stop.
func New(name string, cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		name:   name,
		stopCh: make(chan struct{}),
	}
	c.p = pool.New(cfg.toConnConfig(), c.stopCh)
	c.m = metrics.New(name, c.p)
	c.p.SetPingRecorder(c.m)
	c.running.Store(true)
	return c
}

// Retain increments the advisory reference count. It does not affect
// Stop's behavior: Stop always tears the client down unconditionally if
// it is still running, regardless of the reference count's value.
func (c *Client) Retain() {
	c.refCount.Add(1)
}

// Release decrements the advisory reference count and stops the client
// once it reaches zero.
func (c *Client) Release() error {
	if c.refCount.Add(-1) <= 0 {
		return c.Stop()
	}
	return nil
}

// Metrics exposes the client's instrumentation, for operator surfaces
// that print or export it (e.g. the CLI's --stats output).
func (c *Client) Metrics() *metrics.Metrics {
	return c.m
}

func (c *Client) nextCallID() int32 {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	id := c.nextID
	c.nextID++
	return id
}

// Call is a convenience wrapper for CallIdentity with no identity token.
func (c *Client) Call(param []byte, addr string) ([]byte, error) {
	return c.CallIdentity(param, addr, nil)
}

// CallIdentity sends param to addr over the connection keyed by
// (addr, id), blocks for the response, and returns it. Remote errors are
// returned unwrapped so callers can inspect their class/message; local
// errors are tagged with the peer address and classified by ipcerr.
func (c *Client) CallIdentity(param []byte, addr string, id *identity.Token) ([]byte, error) {
	if !c.running.Load() {
		return nil, ipcerr.ClientStopped(addr)
	}

	c.m.CallStarted()
	started := time.Now()

	callID := c.nextCallID()
	key := conn.Key{Peer: addr, Identity: id}
	slot := callslot.New(callID, param)

	connection, err := c.p.Acquire(key, callID, slot)
	if err != nil {
		c.m.CallFailed()
		return nil, ipcerr.Classify(addr, err)
	}

	if err := connection.Send(callID, param); err != nil {
		c.m.CallFailed()
		return nil, ipcerr.Classify(addr, err)
	}

	outcome := slot.Await()
	c.m.ObserveLatency(time.Since(started))
	if outcome.Err != nil {
		var ipcErr *ipcerr.Error
		if errors.As(outcome.Err, &ipcErr) && ipcErr.Kind == ipcerr.KindRemote {
			c.m.CallRemoteError()
		} else {
			c.m.CallFailed()
		}
	}
	return outcome.Value, outcome.Err
}

// CallMany fans param[i] out to addrs[i] in parallel and blocks until
// every call that started has completed. Failed or timed-out calls leave
// a nil entry at their index rather than raising: this path never
// returns an error, only logs one per failed call.
func (c *Client) CallMany(params [][]byte, addrs []string) [][]byte {
	n := len(params)
	results := newParallelResults(n)

	if !c.running.Load() {
		for i := 0; i < n; i++ {
			results.abandon()
		}
		return results.wait()
	}

	for i := 0; i < n; i++ {
		i := i
		go func() {
			callID := c.nextCallID()
			key := conn.Key{Peer: addrs[i], Identity: nil}
			call := newParallelCall(i, results)

			connection, err := c.p.Acquire(key, callID, call)
			if err != nil {
				log.Debugf("parallel call %d: acquire %s failed: %v", i, addrs[i], err)
				results.abandon()
				return
			}
			if err := connection.Send(callID, params[i]); err != nil {
				// Acquire already registered this call, so the connection's
				// own cleanup completes it through the coordinator as a nil
				// slot; abandoning it here as well would shrink the wait by
				// two completions for one failure.
				log.Debugf("parallel call %d: send to %s failed: %v", i, addrs[i], err)
				return
			}
		}()
	}

	return results.wait()
}

// Stop tears the client down unconditionally, unless it has already
// stopped: it snapshots every pooled connection, shuts each down with a
// ClientStopped cause tagged with its peer (closing its socket if one is
// open, which unblocks a goroutine blocked in a read; a dial already in
// progress is not interrupted and runs until it completes or times out),
// then waits for the pool to drain. There is no hard shutdown timeout; every connection's own close
// path removes itself from the pool as it unwinds.
func (c *Client) Stop() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}

	log.Infof("stopping IPC client %s", c.name)
	close(c.stopCh)

	for _, connection := range c.p.Snapshot() {
		connection.Shutdown(ipcerr.ClientStopped(connection.Key().Peer))
	}

	for c.p.Size() > 0 {
		pollSleep()
	}
	c.m.Unregister()
	return nil
}
