// Package wire implements the on-the-wire framing for the IPC client: the
// one-time connection header, request/response/ping frames, and the
// self-delimiting Value contract payloads are read and written through.
//
// Byte order is big-endian throughout. Strings (used only in the remote
// error frame) are encoded as an int32 length followed by UTF-8 bytes.
package wire
