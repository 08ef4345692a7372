// Package conn implements a single multiplexed connection to one peer: a
// connect-with-retry setup, a reader goroutine that demultiplexes
// out-of-order responses by call id, idle eviction, a read-timeout-driven
// heartbeat, and coordinated close with pending-call cleanup.
package conn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/yuoguoxianseng/hbase/callslot"
	"github.com/yuoguoxianseng/hbase/ipcerr"
	"github.com/yuoguoxianseng/hbase/wire"
)

var log = logger.GetLogger("ipc/conn")

// Connect-retry tuning. These are fixed, not user-configurable: a 20s
// per-attempt connect timeout, a 1s backoff between attempts, and a cap of
// 45 specifically for the connect-timeout counter (as opposed to the
// configurable cap for other I/O failures). The retry loop gives up once a
// counter exceeds its cap, so 46 timed-out attempts exhaust it.
const (
	connectTimeout     = 20 * time.Second
	connectBackoff     = 1 * time.Second
	maxConnectTimeouts = 45
)

// state is the connection's explicit lifecycle tag.
type state int32

const (
	stateConnecting state = iota
	stateOpen
	stateClosing
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateOpen:
		return "open"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Dialer opens a transport-level connection to addr, bounded by timeout.
type Dialer func(addr string, timeout time.Duration) (net.Conn, error)

// DefaultDialer dials plain TCP.
func DefaultDialer(addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, timeout)
}

// PingRecorder observes every heartbeat ping a connection emits. It is
// satisfied by *metrics.Metrics without conn importing the metrics package.
type PingRecorder interface {
	PingSent()
}

// Config carries the per-connection behavior knobs sourced from the
// client-wide configuration (see client.Config for the recognized keys).
type Config struct {
	MaxIdleTime  time.Duration
	MaxRetries   int
	TCPNoDelay   bool
	PingInterval time.Duration
	NewValue     wire.ValueFactory
	Dial         Dialer
	PingRecorder PingRecorder
}

func (c Config) dialer() Dialer {
	if c.Dial != nil {
		return c.Dial
	}
	return DefaultDialer
}

// Connection owns one socket to one peer and the reader goroutine that
// demultiplexes its responses.
type Connection struct {
	key    Key
	cfg    Config
	pool   Deregisterer
	stopCh <-chan struct{}

	setupMu   sync.Mutex
	setupDone bool
	setupErr  error

	connMu sync.Mutex
	sock   net.Conn

	writeMu sync.Mutex

	// pending maps an in-flight call id to its completion hook. It is a
	// lock-free xsync.MapOf rather than a plain mutex-guarded map: the
	// reader and every sending caller touch it concurrently on the hot
	// path, and mu/cond below exist only to let the reader block
	// efficiently when it is empty.
	pending *xsync.MapOf[int32, callslot.Completable]

	mu   sync.Mutex
	cond *sync.Cond

	lastActivity atomic.Int64 // unix nanos
	state        atomic.Int32
	shouldClose  atomic.Bool
	closeRan     atomic.Bool
	closeCause   error // guarded by mu; written at most once, before shouldClose is ever observed true
}

// New creates a Connection in the Connecting state. SetupIO must be called
// before the connection is usable; the pool is responsible for calling it
// outside its own lock.
func New(key Key, cfg Config, pool Deregisterer, stopCh <-chan struct{}) *Connection {
	c := &Connection{
		key:     key,
		cfg:     cfg,
		pool:    pool,
		stopCh:  stopCh,
		pending: xsync.NewMapOf[int32, callslot.Completable](),
	}
	c.cond = sync.NewCond(&c.mu)
	c.state.Store(int32(stateConnecting))
	c.touchActivity()
	return c
}

// Key returns the connection's pool key.
func (c *Connection) Key() Key { return c.key }

// RemoteAddress reports the peer address for diagnostics, using the live
// socket's reported address once connected.
func (c *Connection) RemoteAddress() string {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.sock != nil {
		return c.sock.RemoteAddr().String()
	}
	return c.key.Peer
}

func (c *Connection) touchActivity() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Connection) lastActivityTime() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

func (c *Connection) clientStopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Setup / connect-retry
// --------------------------------------------------------------------------

// SetupIO performs the connect-retry loop and, on success, writes the
// header and starts the reader goroutine. It is idempotent: subsequent
// calls return the outcome of the first. It must be invoked outside the
// pool's lock, since a full connect-retry cycle can take tens of seconds.
func (c *Connection) SetupIO() error {
	c.setupMu.Lock()
	defer c.setupMu.Unlock()

	if c.setupDone {
		return c.setupErr
	}
	c.setupDone = true

	if err := checkResolvable(c.key.Peer); err != nil {
		wrapped := ipcerr.UnknownHost(c.key.Peer, err)
		c.setupErr = wrapped
		c.markClosed(wrapped)
		return wrapped
	}

	sock, err := c.connectWithRetry()
	if err != nil {
		c.setupErr = err
		c.markClosed(err)
		return err
	}

	c.connMu.Lock()
	c.sock = sock
	c.connMu.Unlock()
	c.state.Store(int32(stateOpen))

	var identityBytes []byte
	if c.key.Identity != nil {
		identityBytes = c.key.Identity.Bytes
	}

	c.writeMu.Lock()
	err = wire.WriteHeader(sock, identityBytes)
	c.writeMu.Unlock()
	if err != nil {
		wrapped := ipcerr.Classify(c.key.Peer, err)
		c.setupErr = wrapped
		c.markClosed(wrapped)
		return wrapped
	}

	c.touchActivity()
	go c.readerLoop()
	return nil
}

// checkResolvable rejects a peer address whose host can't be resolved
// before a single connect attempt is spent on it, mirroring a resolvability
// check performed once at connection construction. The lookup is bounded
// by connectTimeout, the same ceiling applied to the dial itself, so a
// hung resolver can't block every goroutine acquiring this peer forever.
func checkResolvable(peer string) error {
	host, _, err := net.SplitHostPort(peer)
	if err != nil {
		return err
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	_, err = (&net.Resolver{}).LookupHost(ctx, host)
	return err
}

// connectWithRetry implements the two-counter retry policy: up to
// maxConnectTimeouts+1 connect-timeout attempts, and up to cfg.MaxRetries+1
// other I/O failures, each attempt bounded by a fixed 20s dial timeout and
// separated by a 1s backoff. The whole loop runs under setupMu (held by the
// caller), which is deliberate: it prevents parallel reconnect storms
// against one peer.
func (c *Connection) connectWithRetry() (net.Conn, error) {
	dial := c.cfg.dialer()
	var timeoutCount, ioCount int

	for {
		if c.clientStopped() {
			return nil, ipcerr.ClientStopped(c.key.Peer)
		}

		sock, err := dial(c.key.Peer, connectTimeout)
		if err == nil {
			if tcpConn, ok := sock.(*net.TCPConn); ok {
				if err := tcpConn.SetNoDelay(c.cfg.TCPNoDelay); err != nil {
					sock.Close()
					return nil, ipcerr.Classify(c.key.Peer, err)
				}
			}
			if err := sock.SetReadDeadline(time.Now().Add(c.cfg.PingInterval)); err != nil {
				sock.Close()
				return nil, ipcerr.Classify(c.key.Peer, err)
			}
			return sock, nil
		}

		wrapped := ipcerr.Classify(c.key.Peer, err)

		if wrapped.Kind == ipcerr.KindTimeout {
			timeoutCount++
			if timeoutCount > maxConnectTimeouts {
				return nil, wrapped
			}
		} else {
			ioCount++
			if ioCount > c.cfg.MaxRetries {
				return nil, wrapped
			}
		}

		select {
		case <-time.After(connectBackoff):
		case <-c.stopCh:
			return nil, ipcerr.ClientStopped(c.key.Peer)
		}
	}
}

// --------------------------------------------------------------------------
// Register / Send (the facade's contract)
// --------------------------------------------------------------------------

// Register atomically inserts completable into the pending map under id and
// wakes the reader. It returns false iff the connection is already
// closing, in which case the caller must retry against a fresh connection.
func (c *Connection) Register(id int32, completable callslot.Completable) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shouldClose.Load() {
		return false
	}
	c.pending.Store(id, completable)
	c.cond.Signal()
	return true
}

// Send serializes and writes a request frame under the connection's write
// lock. An I/O failure marks the connection closed with the failure as
// cause.
func (c *Connection) Send(id int32, payload []byte) error {
	c.connMu.Lock()
	sock := c.sock
	c.connMu.Unlock()
	if sock == nil {
		return ipcerr.LocalIO(c.key.Peer, errors.New("connection has no socket"))
	}

	c.writeMu.Lock()
	err := wire.WriteRequest(sock, id, payload)
	c.writeMu.Unlock()

	if err != nil {
		wrapped := ipcerr.Classify(c.key.Peer, err)
		c.markClosed(wrapped)
		return wrapped
	}
	c.touchActivity()
	return nil
}

// sendPing writes the bare ping frame, but only if the connection has been
// silent for at least a full PingInterval - this coalesces redundant pings
// when multiple read-timeouts fire back to back.
func (c *Connection) sendPing() {
	if time.Since(c.lastActivityTime()) < c.cfg.PingInterval {
		return
	}

	c.connMu.Lock()
	sock := c.sock
	c.connMu.Unlock()
	if sock == nil {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if time.Since(c.lastActivityTime()) < c.cfg.PingInterval {
		return // another goroutine pinged while we waited for the lock
	}

	if err := wire.WritePing(sock); err != nil {
		c.markClosed(ipcerr.Classify(c.key.Peer, err))
		return
	}
	c.touchActivity()
	if c.cfg.PingRecorder != nil {
		c.cfg.PingRecorder.PingSent()
	}
}

// --------------------------------------------------------------------------
// Reader goroutine
// --------------------------------------------------------------------------

func (c *Connection) readerLoop() {
	for c.readerIteration() {
	}
	c.close()
}

func (c *Connection) readerIteration() bool {
	if !c.waitForWork() {
		return false
	}
	return c.receiveResponse()
}

// waitForWork blocks until there is a call to read a response for, the
// connection starts closing, the idle window elapses with nothing
// pending, or the client is stopping. It returns true only in the first
// case.
func (c *Connection) waitForWork() bool {
	c.mu.Lock()
	for {
		if c.pending.Size() > 0 {
			c.mu.Unlock()
			return true
		}
		if c.shouldClose.Load() {
			c.mu.Unlock()
			return false
		}

		remaining := c.cfg.MaxIdleTime - time.Since(c.lastActivityTime())
		if remaining <= 0 {
			c.mu.Unlock()
			c.markClosed(nil) // idle eviction: no cause
			return false
		}
		if c.clientStopped() {
			c.mu.Unlock()
			c.markClosed(ipcerr.ClientStopped(c.key.Peer))
			return false
		}

		timer := time.AfterFunc(remaining, func() {
			c.mu.Lock()
			c.cond.Broadcast()
			c.mu.Unlock()
		})
		c.cond.Wait()
		timer.Stop()
	}
}

// receiveResponse reads exactly one response frame and completes the
// matching call slot, transparently retrying through read-timeouts by
// emitting a ping (the heartbeat). It returns false once the connection
// has been marked closed.
func (c *Connection) receiveResponse() bool {
	c.connMu.Lock()
	sock := c.sock
	c.connMu.Unlock()
	if sock == nil {
		return false
	}

	for {
		if err := sock.SetReadDeadline(time.Now().Add(c.cfg.PingInterval)); err != nil {
			c.markClosed(ipcerr.Classify(c.key.Peer, err))
			return false
		}

		id, isErrFlag, err := wire.ReadResponseHeader(sock)
		if err != nil {
			if isReadTimeout(err) {
				if c.shouldClose.Load() || c.clientStopped() {
					c.markClosed(ipcerr.Timeout(c.key.Peer, err))
					return false
				}
				c.sendPing()
				continue
			}
			c.markClosed(ipcerr.Classify(c.key.Peer, err))
			return false
		}
		c.touchActivity()

		completable, ok := c.pending.LoadAndDelete(id)

		if !ok {
			// A response with no registered caller is a server protocol
			// bug; close rather than silently drop or crash the reader.
			c.markClosed(ipcerr.LocalIO(c.key.Peer, fmt.Errorf("response for unregistered call id %d", id)))
			return false
		}

		if isErrFlag {
			class, message, err := wire.ReadErrorBody(sock)
			if err != nil {
				c.markClosed(ipcerr.Classify(c.key.Peer, err))
				return false
			}
			completable.CompleteError(ipcerr.Remote(class, message))
			return true
		}

		value := c.cfg.NewValue()
		if err := value.ReadFrom(sock); err != nil {
			c.markClosed(ipcerr.Classify(c.key.Peer, err))
			return false
		}
		completable.CompleteValue(value.Bytes())
		return true
	}
}

func isReadTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// --------------------------------------------------------------------------
// Close / shutdown
// --------------------------------------------------------------------------

// Shutdown marks the connection closed with cause and closes its socket if
// one is open, so a blocked read unwinds. A dial already in progress is not
// interrupted; the connect-retry loop checks the client's stop channel
// between attempts. It is called by the client facade's Stop; internal
// failure paths call markClosed directly.
func (c *Connection) Shutdown(cause error) {
	c.markClosed(cause)
}

// markClosed is the sole false->true transition of shouldClose. The first
// caller to win it stores cause (subsequent causes are dropped), force-
// closes the socket, and wakes every waiter.
func (c *Connection) markClosed(cause error) bool {
	c.mu.Lock()
	if c.shouldClose.Load() {
		c.mu.Unlock()
		return false
	}
	c.closeCause = cause
	c.shouldClose.Store(true)
	c.mu.Unlock()

	c.state.Store(int32(stateClosing))

	c.connMu.Lock()
	if c.sock != nil {
		_ = c.sock.Close()
	}
	c.connMu.Unlock()

	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()

	return true
}

// close runs exactly once, after shouldClose has transitioned true: it
// deregisters from the pool, tears down the socket, and completes every
// still-pending call with the close cause (synthesizing a generic one if
// none was recorded).
func (c *Connection) close() {
	if !c.shouldClose.Load() {
		log.Warningf("close called on %s before it was marked for closing", c.key)
		return
	}
	if !c.closeRan.CompareAndSwap(false, true) {
		log.Infof("close called again on already-closed connection %s", c.key)
		return
	}

	if c.pool != nil {
		c.pool.RemoveIfSame(c.key, c)
	}

	c.connMu.Lock()
	if c.sock != nil {
		_ = c.sock.Close()
	}
	c.connMu.Unlock()

	c.mu.Lock()
	cause := c.closeCause
	c.mu.Unlock()
	hasPending := c.pending.Size() > 0

	if cause == nil && hasPending {
		cause = ipcerr.LocalIO(c.key.Peer, errors.New("unexpected closed connection"))
	}
	if cause != nil {
		c.cleanupCalls(cause)
	}

	c.state.Store(int32(stateClosed))
}

// cleanupCalls completes every still-pending call with cause and empties
// the pending map, releasing every blocked waiter with an error.
func (c *Connection) cleanupCalls(cause error) {
	var ids []int32
	c.pending.Range(func(id int32, completable callslot.Completable) bool {
		ids = append(ids, id)
		return true
	})

	for _, id := range ids {
		if completable, ok := c.pending.LoadAndDelete(id); ok {
			log.Debugf("failing pending call %d on %s: %v", id, c.key, cause)
			completable.CompleteError(cause)
		}
	}
}
