// Package identity defines the opaque credential token carried once per
// connection at setup time. Two tokens with identical bytes are still
// distinct identities unless they are the same *Token pointer - this is a
// deliberate choice (see Token doc) that isolates credentials obtained
// through different acquisition paths.
package identity

import "github.com/google/uuid"

// Token is an opaque credential sent once in a connection's header. Equality
// of a Token is always pointer equality: a ConnectionKey that embeds a
// *Token compares by address, never by content, so two distinct Tokens with
// equal Bytes are different principals for pooling purposes.
type Token struct {
	Bytes []byte
}

// New wraps an arbitrary credential blob in a Token.
func New(b []byte) *Token {
	return &Token{Bytes: append([]byte(nil), b...)}
}

// NewUUID mints a fresh random credential, useful for demos and tests where
// a real credential acquisition path isn't available.
func NewUUID() *Token {
	id := uuid.New()
	return &Token{Bytes: id[:]}
}
