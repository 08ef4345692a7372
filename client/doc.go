// Package client exposes the public operations applications call: a
// single request/response Call, a CallMany parallel fan-out across peers,
// and a reference-counted Stop that tears down every pooled connection.
package client

import "github.com/lni/dragonboat/v4/logger"

var log = logger.GetLogger("ipc/client")
