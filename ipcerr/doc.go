// Package ipcerr defines the error taxonomy surfaced by the IPC client to
// its callers: typed envelopes for connect-refused, timeout and generic
// local I/O failures, a pass-through remote error carrying the server's
// exception class and message, a client-stopped kind and an unknown-host
// kind.
//
// Local envelopes wrap their cause with Unwrap, so callers can still use
// errors.Is/errors.As against the underlying net error; the Error type
// itself is matched by kind via Is(target error) or the Kind field.
package ipcerr
