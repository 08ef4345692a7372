package pool

import (
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/yuoguoxianseng/hbase/callslot"
	"github.com/yuoguoxianseng/hbase/conn"
)

// Pool is a (conn.Key) -> *conn.Connection directory with create-on-miss,
// reuse-on-hit, and safe concurrent insertion/removal. It holds at most one
// Connection per key at any time.
type Pool struct {
	connections *xsync.MapOf[conn.Key, *conn.Connection]
	cfg         conn.Config
	stopCh      <-chan struct{}
}

// New creates an empty pool. Every connection it creates is configured
// with cfg and shares stopCh, so a single close of stopCh drives every
// connection's idle/closing checks toward shutdown.
func New(cfg conn.Config, stopCh <-chan struct{}) *Pool {
	return &Pool{
		connections: xsync.NewMapOf[conn.Key, *conn.Connection](),
		cfg:         cfg,
		stopCh:      stopCh,
	}
}

// Acquire returns a Connection registered to accept completable under id,
// creating and connecting a fresh one if none exists for key yet, and
// retrying against a replacement connection if the one it found loses a
// race against closing. Every acquiring goroutine calls SetupIO on the
// connection it finds, not just the one that created it: SetupIO is
// idempotent and serialized on the connection's own setup mutex, so a
// concurrent joiner blocks there until the creator's connect-retry cycle
// finishes instead of registering against a socket that isn't open yet.
// That block runs outside any pool-wide lock, since a full connect-retry
// cycle can take tens of seconds and must not stall unrelated callers.
func (p *Pool) Acquire(key conn.Key, id int32, completable callslot.Completable) (*conn.Connection, error) {
	for {
		candidate, _ := p.connections.LoadOrStore(key, conn.New(key, p.cfg, p, p.stopCh))

		if err := candidate.SetupIO(); err != nil {
			p.RemoveIfSame(key, candidate)
			return nil, err
		}

		if candidate.Register(id, completable) {
			return candidate, nil
		}

		// candidate lost the race against closing between LoadOrStore and
		// Register; it has already removed (or is about to remove) itself
		// via RemoveIfSame, so looping retries against whatever comes next.
	}
}

// RemoveIfSame removes key's mapping iff it still points to c, guarding
// against a racing replacement connection being evicted by a stale close.
func (p *Pool) RemoveIfSame(key conn.Key, c *conn.Connection) bool {
	var removed bool
	p.connections.Compute(key, func(existing *conn.Connection, loaded bool) (*conn.Connection, bool) {
		if loaded && existing == c {
			removed = true
			return nil, true // delete
		}
		return existing, false // leave untouched (no-op if not loaded)
	})
	if removed {
		log.Debugf("removed connection for %s from pool", key)
	}
	return removed
}

// Snapshot returns every connection currently in the pool, for Stop to
// shut down.
func (p *Pool) Snapshot() []*conn.Connection {
	var out []*conn.Connection
	p.connections.Range(func(_ conn.Key, c *conn.Connection) bool {
		out = append(out, c)
		return true
	})
	return out
}

// Size reports the number of connections currently pooled.
func (p *Pool) Size() int {
	return p.connections.Size()
}

// SetPingRecorder installs the ping recorder every connection created from
// this point on will report to. It's set after New because the recorder
// (the client's metrics instance) is itself constructed from the pool.
func (p *Pool) SetPingRecorder(r conn.PingRecorder) {
	p.cfg.PingRecorder = r
}
