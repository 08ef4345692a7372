package wire

import (
	"bytes"
	"testing"
)

func TestHeaderRoundTripWithIdentity(t *testing.T) {
	var buf bytes.Buffer
	identity := []byte("credential-blob")
	if err := WriteHeader(&buf, identity); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	got, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if !bytes.Equal(got, identity) {
		t.Fatalf("identity mismatch: got %q want %q", got, identity)
	}
}

func TestHeaderRoundTripNoIdentity(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHeader(&buf, nil); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	got, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil identity, got %q", got)
	}
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("XXXX")
	buf.WriteByte(version)
	_ = writeInt32(&buf, -1)
	if _, err := ReadHeader(&buf); err == nil {
		t.Fatalf("expected error for bad magic bytes")
	}
}

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello region server")
	if err := WriteRequest(&buf, 42, payload); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	id, got, isPing, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if isPing {
		t.Fatalf("request frame misread as a ping")
	}
	if id != 42 {
		t.Fatalf("call id mismatch: got %d want 42", id)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %q want %q", got, payload)
	}
}

func TestPingSentinelNeverRealCallID(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePing(&buf); err != nil {
		t.Fatalf("WritePing: %v", err)
	}
	id, err := readInt32(&buf)
	if err != nil {
		t.Fatalf("readInt32: %v", err)
	}
	if id != PingCallID {
		t.Fatalf("ping sentinel mismatch: got %d want %d", id, PingCallID)
	}
	if PingCallID >= 0 {
		t.Fatalf("ping sentinel must be negative")
	}
}

func TestReadFrameDiscriminatesPing(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePing(&buf); err != nil {
		t.Fatalf("WritePing: %v", err)
	}
	_ = WriteRequest(&buf, 5, []byte("after ping"))

	_, _, isPing, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !isPing {
		t.Fatalf("expected the first frame to be a ping")
	}

	id, payload, isPing, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if isPing || id != 5 || string(payload) != "after ping" {
		t.Fatalf("unexpected frame after ping: id=%d isPing=%v payload=%q", id, isPing, payload)
	}
}

func TestResponseValueRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := &BytesValue{Data: []byte("echoed value")}
	if err := WriteResponseValue(&buf, 7, want); err != nil {
		t.Fatalf("WriteResponseValue: %v", err)
	}

	id, isErr, err := ReadResponseHeader(&buf)
	if err != nil {
		t.Fatalf("ReadResponseHeader: %v", err)
	}
	if id != 7 || isErr {
		t.Fatalf("unexpected header: id=%d isErr=%v", id, isErr)
	}

	got := &BytesValue{}
	if err := got.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if !bytes.Equal(got.Data, want.Data) {
		t.Fatalf("value mismatch: got %q want %q", got.Data, want.Data)
	}
}

func TestResponseErrorRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponseError(&buf, 9, "org.example.BoomException", "boom"); err != nil {
		t.Fatalf("WriteResponseError: %v", err)
	}

	id, isErr, err := ReadResponseHeader(&buf)
	if err != nil {
		t.Fatalf("ReadResponseHeader: %v", err)
	}
	if id != 9 || !isErr {
		t.Fatalf("unexpected header: id=%d isErr=%v", id, isErr)
	}

	class, message, err := ReadErrorBody(&buf)
	if err != nil {
		t.Fatalf("ReadErrorBody: %v", err)
	}
	if class != "org.example.BoomException" || message != "boom" {
		t.Fatalf("unexpected error body: class=%q message=%q", class, message)
	}
}

// Two back-to-back frames on the same stream must not interfere with each
// other: responses can complete out of order relative to requests, but a
// single reader still consumes them as a strict byte stream.
func TestMultipleFramesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteResponseValue(&buf, 1, &BytesValue{Data: []byte("first")})
	_ = WriteResponseValue(&buf, 2, &BytesValue{Data: []byte("second")})

	id1, _, _ := ReadResponseHeader(&buf)
	v1 := &BytesValue{}
	_ = v1.ReadFrom(&buf)

	id2, _, _ := ReadResponseHeader(&buf)
	v2 := &BytesValue{}
	_ = v2.ReadFrom(&buf)

	if id1 != 1 || string(v1.Data) != "first" {
		t.Fatalf("first frame mismatch: id=%d data=%q", id1, v1.Data)
	}
	if id2 != 2 || string(v2.Data) != "second" {
		t.Fatalf("second frame mismatch: id=%d data=%q", id2, v2.Data)
	}
}
