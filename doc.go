// Package hbase implements the core of a multiplexed request/response IPC
// client used to talk to the region servers of a distributed table store:
// one long-lived connection per (peer, identity), many in-flight calls
// interleaved on it by numeric id, idle eviction, keepalive pings folded
// into read-timeout recovery, bounded connect retries, and fan-out
// parallel invocation across multiple peers.
//
// The module is organized into several subpackages:
//
//   - wire: length-prefixed frame codec - header, request, ping, and
//     response frames, plus the self-delimiting Value contract payloads
//     are read and written through.
//
//   - identity: opaque credential tokens carried once per connection,
//     compared by pointer identity rather than content.
//
//   - callslot: the completable rendezvous cell between a caller blocked
//     in Call and the connection's reader goroutine.
//
//   - ipcerr: typed error envelopes (connect-refused, timeout, local I/O,
//     remote, client-stopped, unknown-host) with cause-chain preservation.
//
//   - conn: a single socket to one peer, its reader goroutine, connect-retry,
//     heartbeat, idle eviction, and close/cleanup of pending calls.
//
//   - pool: the (peer, identity) -> *conn.Connection directory with
//     create-on-miss and reuse-on-hit.
//
//   - client: the public facade - Call, CallIdentity, CallMany, Stop -
//     plus the parallel fan-out coordinator.
//
//   - metrics: call counters, connection gauges, and latency timers.
//
//   - cmd/regionipc: an operator CLI that drives the facade against a real
//     or test endpoint.
//
//   - internal/testserver: a minimal in-repo peer used only to exercise
//     the client in tests.
package hbase
