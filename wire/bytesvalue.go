package wire

import (
	"encoding/binary"
	"io"
)

// BytesValue is the reference Value implementation: an opaque byte blob
// that self-delimits with its own int32 length prefix, used by the CLI and
// by tests that don't care about a richer response schema.
type BytesValue struct {
	Data []byte
}

// NewBytesValue is a ValueFactory for BytesValue, suitable for
// client.Config.NewValue.
func NewBytesValue() Value {
	return &BytesValue{}
}

func (v *BytesValue) WriteTo(w io.Writer) error {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(v.Data)))
	if _, err := w.Write(tmp[:]); err != nil {
		return err
	}
	if len(v.Data) == 0 {
		return nil
	}
	_, err := w.Write(v.Data)
	return err
}

func (v *BytesValue) Bytes() []byte {
	return v.Data
}

func (v *BytesValue) ReadFrom(r io.Reader) error {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(tmp[:])
	if n == 0 {
		v.Data = nil
		return nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	v.Data = buf
	return nil
}
