package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PingCallID is the reserved sentinel call id used for keepalive pings. It
// is never assigned to a real call.
const PingCallID int32 = -1

var magic = [4]byte{'H', 'I', 'P', 'C'}

const version byte = 1

// Value is the Serializable contract payloads are read and written
// through. Unlike the request frame, whose payload length is carried by
// the codec, a Value's wire encoding is self-delimiting: ReadFrom must
// consume exactly the bytes WriteTo produced, no more and no less, since
// the response frame carries no length prefix around it.
type Value interface {
	WriteTo(w io.Writer) error
	ReadFrom(r io.Reader) error
	// Bytes returns the materialized payload handed back to the caller.
	// Interpreting those bytes further (e.g. into a richer response type)
	// is left to callers, per the Serialization-is-out-of-scope boundary.
	Bytes() []byte
}

// ValueFactory builds a fresh, zero Value to deserialize a response into.
type ValueFactory func() Value

// WriteHeader writes the one-time connection header: magic bytes, version,
// then a length-prefixed identity block. identity may be nil, which is
// encoded as a length of -1.
func WriteHeader(w io.Writer, identity []byte) error {
	buf := make([]byte, 0, len(magic)+1+4+len(identity))
	buf = append(buf, magic[:]...)
	buf = append(buf, version)

	idLen := int32(-1)
	if identity != nil {
		idLen = int32(len(identity))
	}
	buf = appendInt32(buf, idLen)
	if identity != nil {
		buf = append(buf, identity...)
	}

	_, err := w.Write(buf)
	return err
}

// ReadHeader reads and validates the header written by WriteHeader,
// returning the identity block (nil if the connection carried no identity).
func ReadHeader(r io.Reader) ([]byte, error) {
	var hdr [5]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if hdr[0] != magic[0] || hdr[1] != magic[1] || hdr[2] != magic[2] || hdr[3] != magic[3] {
		return nil, fmt.Errorf("wire: bad magic bytes")
	}
	if hdr[4] != version {
		return nil, fmt.Errorf("wire: unsupported version %d", hdr[4])
	}

	idLen, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	if idLen < 0 {
		return nil, nil
	}
	identity := make([]byte, idLen)
	if idLen > 0 {
		if _, err := io.ReadFull(r, identity); err != nil {
			return nil, err
		}
	}
	return identity, nil
}

// WriteRequest writes a request frame: call id, mandatory payload length,
// then the already-serialized payload bytes.
func WriteRequest(w io.Writer, callID int32, payload []byte) error {
	buf := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(callID))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(payload)))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads either a ping frame or a request frame from the server
// side of the connection, distinguishing the two by call id before
// deciding whether a length/payload follows. isPing is true iff the frame
// was the bare ping sentinel.
func ReadFrame(r io.Reader) (callID int32, payload []byte, isPing bool, err error) {
	callID, err = readInt32(r)
	if err != nil {
		return 0, nil, false, err
	}
	if callID == PingCallID {
		return callID, nil, true, nil
	}
	length, err := readInt32(r)
	if err != nil {
		return 0, nil, false, err
	}
	if length < 0 {
		return 0, nil, false, fmt.Errorf("wire: negative payload length %d", length)
	}
	payload = make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, false, err
		}
	}
	return callID, payload, false, nil
}

// WritePing writes the bare ping frame: a single int32 sentinel, no length,
// no payload.
func WritePing(w io.Writer) error {
	return writeInt32(w, PingCallID)
}

// ReadResponseHeader reads the call id and error flag that begin every
// response frame. Callers then either read the error body (ReadErrorBody)
// or deserialize the payload through a Value (value.ReadFrom(r)).
func ReadResponseHeader(r io.Reader) (callID int32, isError bool, err error) {
	callID, err = readInt32(r)
	if err != nil {
		return 0, false, err
	}
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, false, err
	}
	return callID, b[0] != 0, nil
}

// WriteResponseValue writes a successful response frame: call id, a false
// error flag, then the value's own self-delimiting encoding.
func WriteResponseValue(w io.Writer, callID int32, value Value) error {
	if err := writeInt32(w, callID); err != nil {
		return err
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	return value.WriteTo(w)
}

// WriteResponseError writes an error response frame: call id, a true error
// flag, then the exception class and message as UTF strings.
func WriteResponseError(w io.Writer, callID int32, class, message string) error {
	if err := writeInt32(w, callID); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1}); err != nil {
		return err
	}
	if err := writeUTFString(w, class); err != nil {
		return err
	}
	return writeUTFString(w, message)
}

// ReadErrorBody reads the exception class and message following a response
// frame whose error flag was set.
func ReadErrorBody(r io.Reader) (class, message string, err error) {
	class, err = readUTFString(r)
	if err != nil {
		return "", "", err
	}
	message, err = readUTFString(r)
	if err != nil {
		return "", "", err
	}
	return class, message, nil
}

// --------------------------------------------------------------------------
// primitive helpers
// --------------------------------------------------------------------------

func appendInt32(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

func writeInt32(w io.Writer, v int32) error {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	_, err := w.Write(tmp[:])
	return err
}

func readInt32(r io.Reader) (int32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(tmp[:])), nil
}

func writeUTFString(w io.Writer, s string) error {
	b := []byte(s)
	if err := writeInt32(w, int32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readUTFString(r io.Reader) (string, error) {
	n, err := readInt32(r)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("wire: negative string length %d", n)
	}
	if n == 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
