package ipcerr

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Kind classifies an Error without tying callers to a concrete error type.
type Kind int

const (
	// KindConnectRefused: peer reachable but refused the connection.
	KindConnectRefused Kind = iota
	// KindTimeout: a blocking socket operation timed out.
	KindTimeout
	// KindLocalIO: any other transport failure (including protocol errors
	// detected locally, such as an unknown call id).
	KindLocalIO
	// KindRemote: the server responded with is_error=true.
	KindRemote
	// KindClientStopped: the call could not proceed because Stop() ran.
	KindClientStopped
	// KindUnknownHost: the peer address failed to resolve.
	KindUnknownHost
)

func (k Kind) String() string {
	switch k {
	case KindConnectRefused:
		return "connect-refused"
	case KindTimeout:
		return "timeout"
	case KindLocalIO:
		return "local-io"
	case KindRemote:
		return "remote"
	case KindClientStopped:
		return "client-stopped"
	case KindUnknownHost:
		return "unknown-host"
	default:
		return "unknown"
	}
}

// Error is the envelope type for every error this module raises to a
// caller. For KindRemote, RemoteClass/RemoteMessage carry the server's
// reported exception; for the local kinds, Cause carries the underlying
// transport error and Peer names the address involved.
type Error struct {
	Kind          Kind
	Peer          string
	Cause         error
	RemoteClass   string
	RemoteMessage string
}

func (e *Error) Error() string {
	if e.Kind == KindRemote {
		return fmt.Sprintf("remote exception: %s: %s", e.RemoteClass, e.RemoteMessage)
	}
	if e.Peer == "" {
		return fmt.Sprintf("ipc %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("ipc %s to %s: %v", e.Kind, e.Peer, e.Cause)
}

// Unwrap exposes the underlying cause so errors.Is/errors.As keep working
// through the envelope.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets callers match by kind: errors.Is(err, &ipcerr.Error{Kind: ipcerr.KindTimeout}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// ConnectRefused wraps cause as a connect-refused envelope tagged with peer.
func ConnectRefused(peer string, cause error) *Error {
	return &Error{Kind: KindConnectRefused, Peer: peer, Cause: cause}
}

// Timeout wraps cause as a timeout envelope tagged with peer.
func Timeout(peer string, cause error) *Error {
	return &Error{Kind: KindTimeout, Peer: peer, Cause: cause}
}

// LocalIO wraps cause as a generic transport-failure envelope tagged with peer.
func LocalIO(peer string, cause error) *Error {
	return &Error{Kind: KindLocalIO, Peer: peer, Cause: cause}
}

// Remote builds a pass-through remote exception from the server's reported
// class and message.
func Remote(class, message string) *Error {
	return &Error{Kind: KindRemote, RemoteClass: class, RemoteMessage: message}
}

// ClientStopped builds the cause used to fail calls that can't proceed
// because the client is shutting down or has shut down.
func ClientStopped(peer string) *Error {
	return &Error{Kind: KindClientStopped, Peer: peer, Cause: errors.New("client stopped")}
}

// UnknownHost wraps a DNS/address-resolution failure.
func UnknownHost(peer string, cause error) *Error {
	return &Error{Kind: KindUnknownHost, Peer: peer, Cause: cause}
}

// Classify inspects a raw transport error observed against peer and wraps
// it in the matching envelope: connect-refused, timeout, or a generic
// local-io catch-all. Remote errors are never produced here; they are
// constructed directly by the reader from the wire's error frame.
func Classify(peer string, err error) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout(peer, err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ConnectRefused(peer, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return ConnectRefused(peer, err)
	}

	return LocalIO(peer, err)
}
