// Package emulation is a synthetic emulation layer for sim.Manager. Each
// host runs a small deterministic guest application (echo client/server,
// gossip, idle) whose activity becomes work items and resource records.
// Randomness comes from per-host streams of a sim.PartitionedRNG, so a run
// does not depend on how hosts are spread across workers.
package emulation

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/hostsim/sim"
)

// Network times packet deliveries. *network.Topology implements it.
type Network interface {
	TransferTime(src, dst sim.HostID, size uint64) sim.SimTime
}

// Emulator creates the guest application for every host.
type Emulator struct {
	net   Network
	rng   *sim.PartitionedRNG
	names []string
	ids   map[string]sim.HostID
	apps  map[sim.HostID]guest
}

// New creates an Emulator for hosts named in id order.
func New(net Network, hostNames []string, seed int64) *Emulator {
	ids := make(map[string]sim.HostID, len(hostNames))
	for i, name := range hostNames {
		ids[name] = sim.HostID(i)
	}
	return &Emulator{
		net:   net,
		rng:   sim.NewPartitionedRNG(seed),
		names: hostNames,
		ids:   ids,
		apps:  make(map[sim.HostID]guest, len(hostNames)),
	}
}

// NewApplication implements sim.Emulator. spec.App must be an *AppConfig
// or nil (idle).
func (e *Emulator) NewApplication(host sim.HostInfo, spec sim.HostSpec) (sim.Application, error) {
	cfg := &AppConfig{}
	switch app := spec.App.(type) {
	case nil:
	case *AppConfig:
		cfg = app
	case AppConfig:
		cfg = &app
	default:
		return nil, fmt.Errorf("unsupported app description %T", spec.App)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	size, _ := cfg.messageSize()
	b := base{
		net:  e.net,
		id:   host.ID,
		size: size,
		work: cfg.Work,
		stats: HostStats{
			Host: host.Name,
			App:  cfg.Type,
		},
	}
	if b.stats.App == "" {
		b.stats.App = AppIdle
	}

	var g guest
	switch cfg.Type {
	case "", AppIdle:
		g = &idle{base: b}
	case AppEchoServer:
		g = &echoServer{base: b}
	case AppEchoClient:
		peer, ok := e.ids[cfg.Peer]
		if !ok {
			return nil, fmt.Errorf("echo-client peer %q is not a host", cfg.Peer)
		}
		if peer == host.ID {
			return nil, fmt.Errorf("echo-client peer %q is the client itself", cfg.Peer)
		}
		g = &echoClient{base: b, peer: peer, interval: cfg.Interval, count: uint64(cfg.Count)}
	case AppGossip:
		peers, err := e.gossipPeers(host.ID, cfg.Peers)
		if err != nil {
			return nil, err
		}
		g = newGossip(b, peers, cfg.Interval, cfg.Fanout, e.rng, host.ID)
	}
	e.apps[host.ID] = g
	logrus.Debugf("host %s (%d) runs %s on worker %d", host.Name, host.ID, b.stats.App, host.Worker)

	if cfg.FailAt > 0 {
		return &crashing{Application: g, at: cfg.FailAt}, nil
	}
	return g, nil
}

func (e *Emulator) gossipPeers(self sim.HostID, names []string) ([]sim.HostID, error) {
	var peers []sim.HostID
	if len(names) == 0 {
		for i := range e.names {
			if id := sim.HostID(i); id != self {
				peers = append(peers, id)
			}
		}
		return peers, nil
	}
	for _, name := range names {
		id, ok := e.ids[name]
		if !ok {
			return nil, fmt.Errorf("gossip peer %q is not a host", name)
		}
		if id == self {
			return nil, fmt.Errorf("gossip peer %q is the host itself", name)
		}
		peers = append(peers, id)
	}
	return peers, nil
}

// Report returns per-host application counters in host id order. Call it
// only after the run has finished.
func (e *Emulator) Report() []HostStats {
	out := make([]HostStats, 0, len(e.apps))
	for i := range e.names {
		if g, ok := e.apps[sim.HostID(i)]; ok {
			out = append(out, g.report())
		}
	}
	return out
}

// HostStats are the application-level counters of one host.
type HostStats struct {
	Host          string      `json:"host"`
	App           string      `json:"app"`
	PacketsSent   uint64      `json:"packets_sent"`
	PacketsRecv   uint64      `json:"packets_received"`
	BytesSent     uint64      `json:"bytes_sent"`
	BytesReceived uint64      `json:"bytes_received"`
	Replies       uint64      `json:"replies"`
	RTTTotal      sim.SimTime `json:"rtt_total_ns"`
}

// MeanRTT is the average echo round trip, 0 without replies.
func (s HostStats) MeanRTT() sim.SimTime {
	if s.Replies == 0 {
		return 0
	}
	return s.RTTTotal / sim.SimTime(s.Replies)
}
