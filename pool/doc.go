// Package pool maintains the (peer, identity) -> *conn.Connection directory
// shared by every caller of the client facade, creating connections on
// miss and reusing them on hit.
package pool

import "github.com/lni/dragonboat/v4/logger"

var log = logger.GetLogger("ipc/pool")
