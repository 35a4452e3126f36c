package emulation

import (
	"fmt"

	"github.com/docker/go-units"

	"github.com/inference-sim/hostsim/sim"
)

// App types.
const (
	AppIdle       = "idle"
	AppEchoServer = "echo-server"
	AppEchoClient = "echo-client"
	AppGossip     = "gossip"
)

var validAppTypes = map[string]bool{
	AppIdle:       true,
	AppEchoServer: true,
	AppEchoClient: true,
	AppGossip:     true,
	"":            true, // empty defaults to idle
}

// IsValidAppType reports whether name is a known application type.
func IsValidAppType(name string) bool {
	return validAppTypes[name]
}

const defaultMessageSize = 512

// AppConfig is the app section of a host in a scenario file. It is what
// sim.HostSpec.App carries for this emulator.
type AppConfig struct {
	Type string `yaml:"type"`
	// Peer is the echo-client's server.
	Peer string `yaml:"peer,omitempty"`
	// Peers are gossip targets. Empty means every other host.
	Peers []string `yaml:"peers,omitempty"`
	// MessageSize is the payload size ("512", "4KiB").
	MessageSize string `yaml:"message_size,omitempty"`
	// Interval is the client send period, or the gossip mean think time.
	Interval sim.SimTime `yaml:"interval,omitempty"`
	// Count bounds the requests an echo-client sends. 0 means unbounded.
	Count int `yaml:"count,omitempty"`
	// Fanout is the gossip mean burst size.
	Fanout float64 `yaml:"fanout,omitempty"`
	// Work is the CPU work units charged per handled event.
	Work int64 `yaml:"work,omitempty"`
	// FailAt injects a crash of the host at this simulated time. 0 disables it.
	FailAt sim.SimTime `yaml:"fail_at,omitempty"`
}

// Validate checks the fields the app type needs. Peer names are resolved
// later, by the Emulator.
func (c *AppConfig) Validate() error {
	if !IsValidAppType(c.Type) {
		return fmt.Errorf("unknown app type %q; valid: idle, echo-server, echo-client, gossip", c.Type)
	}
	if _, err := c.messageSize(); err != nil {
		return err
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must be non-negative, got %v", c.Interval)
	}
	if c.Count < 0 {
		return fmt.Errorf("count must be non-negative, got %d", c.Count)
	}
	if c.Work < 0 {
		return fmt.Errorf("work must be non-negative, got %d", c.Work)
	}
	if c.FailAt < 0 {
		return fmt.Errorf("fail_at must be non-negative, got %v", c.FailAt)
	}
	switch c.Type {
	case AppEchoClient:
		if c.Peer == "" {
			return fmt.Errorf("echo-client requires a peer")
		}
		if c.Interval <= 0 {
			return fmt.Errorf("echo-client requires a positive interval")
		}
	case AppGossip:
		if c.Interval <= 0 {
			return fmt.Errorf("gossip requires a positive interval")
		}
		if c.Fanout < 0 {
			return fmt.Errorf("fanout must be non-negative, got %v", c.Fanout)
		}
	}
	return nil
}

func (c *AppConfig) messageSize() (uint64, error) {
	if c.MessageSize == "" {
		return defaultMessageSize, nil
	}
	n, err := units.RAMInBytes(c.MessageSize)
	if err != nil {
		return 0, fmt.Errorf("message_size: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("message_size must be positive, got %q", c.MessageSize)
	}
	return uint64(n), nil
}
