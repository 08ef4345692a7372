package identity

import "testing"

func TestTokenIdentityEquality(t *testing.T) {
	a := New([]byte("same-bytes"))
	b := New([]byte("same-bytes"))

	if a == b {
		t.Fatalf("expected distinct tokens with equal content to be distinct pointers")
	}
	if a != a {
		t.Fatalf("expected a token to equal itself")
	}
}

func TestNewUUIDProducesDistinctTokens(t *testing.T) {
	a := NewUUID()
	b := NewUUID()
	if string(a.Bytes) == string(b.Bytes) {
		t.Fatalf("expected two generated tokens to have different bytes")
	}
}
