package conn

import (
	"fmt"

	"github.com/yuoguoxianseng/hbase/identity"
)

// Key identifies a pooled Connection by peer address and identity. It is
// used directly as a Go map key: Identity is carried as a pointer, so two
// Keys compare equal only when they share the exact same *identity.Token -
// two tokens with identical bytes but different acquisition paths produce
// different Keys, by design.
type Key struct {
	Peer     string
	Identity *identity.Token
}

func (k Key) String() string {
	if k.Identity == nil {
		return fmt.Sprintf("%s (no identity)", k.Peer)
	}
	return fmt.Sprintf("%s (identity %p)", k.Peer, k.Identity)
}

// Deregisterer is the narrow handle a Connection holds back to its owning
// pool, used solely during close() to self-deregister. It avoids a direct
// Connection<->Pool cyclic dependency between the two packages.
type Deregisterer interface {
	RemoveIfSame(key Key, c *Connection) bool
}
