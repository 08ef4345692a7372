package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/yuoguoxianseng/hbase/conn"
	"github.com/yuoguoxianseng/hbase/wire"
)

// Config carries every knob the client facade and its pooled connections
// need. The zero value is not directly usable; build one with
// DefaultConfig and override fields, or populate it from the CLI's
// viper-bound flags.
type Config struct {
	// MaxIdleTime is how long a connection may sit with no pending calls
	// before it evicts itself.
	MaxIdleTime time.Duration
	// MaxRetries bounds non-timeout connect failures; connect timeouts use
	// their own fixed internal cap.
	MaxRetries int
	// TCPNoDelay disables Nagle's algorithm on every socket the client opens.
	TCPNoDelay bool
	// PingInterval is both the read-timeout/heartbeat cadence.
	PingInterval time.Duration
	// NewValue builds a fresh Value to deserialize each response payload
	// into.
	NewValue wire.ValueFactory
	// Dial overrides how sockets are opened; nil uses conn.DefaultDialer.
	Dial conn.Dialer
}

// DefaultConfig returns the recognized defaults: 10s idle eviction, 10
// non-timeout connect retries, Nagle left enabled, a 60s ping interval,
// and wire.BytesValue as the response payload type.
func DefaultConfig() Config {
	return Config{
		MaxIdleTime:  10 * time.Second,
		MaxRetries:   10,
		TCPNoDelay:   false,
		PingInterval: 60 * time.Second,
		NewValue:     wire.NewBytesValue,
	}
}

func (c Config) toConnConfig() conn.Config {
	return conn.Config{
		MaxIdleTime:  c.MaxIdleTime,
		MaxRetries:   c.MaxRetries,
		TCPNoDelay:   c.TCPNoDelay,
		PingInterval: c.PingInterval,
		NewValue:     c.NewValue,
		Dial:         c.Dial,
	}
}

// String formats the configuration for startup logging.
func (c Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("IPC Client Configuration")
	addField("Max Idle Time", c.MaxIdleTime.String())
	addField("Max Retries", fmt.Sprintf("%d", c.MaxRetries))
	addField("TCP No Delay", fmt.Sprintf("%t", c.TCPNoDelay))
	addField("Ping Interval", c.PingInterval.String())

	return sb.String()
}
