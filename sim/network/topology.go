// Package network provides the static latency topology that sim.Manager
// validates its lookahead against and that the emulation layer uses to
// time packet deliveries.
package network

import (
	"fmt"
	"math"

	"github.com/docker/go-units"

	"github.com/inference-sim/hostsim/sim"
)

// Config is the network section of a scenario file.
type Config struct {
	// DefaultLatency applies to every pair of distinct hosts without an
	// explicit link.
	DefaultLatency sim.SimTime `yaml:"default_latency"`
	// DefaultBandwidth is bytes per simulated second ("100MB", "1GiB").
	// Empty means unlimited.
	DefaultBandwidth string `yaml:"default_bandwidth,omitempty"`
	Links            []Link `yaml:"links,omitempty"`
}

// Link overrides latency and bandwidth between two hosts, both directions.
type Link struct {
	A         string      `yaml:"a"`
	B         string      `yaml:"b"`
	Latency   sim.SimTime `yaml:"latency"`
	Bandwidth string      `yaml:"bandwidth,omitempty"`
}

type pair struct{ src, dst sim.HostID }

type path struct {
	latency   sim.SimTime
	bandwidth float64 // bytes per second, 0 = unlimited
}

// Topology answers latency queries between hosts. It is read-only after
// New and safe for concurrent use.
type Topology struct {
	def        path
	links      map[pair]path
	minLatency sim.SimTime
}

// New builds a Topology for hosts named in id order.
func New(cfg Config, hostNames []string) (*Topology, error) {
	if cfg.DefaultLatency <= 0 {
		return nil, fmt.Errorf("network.default_latency: must be positive, got %v", cfg.DefaultLatency)
	}
	defBW, err := parseBandwidth(cfg.DefaultBandwidth)
	if err != nil {
		return nil, fmt.Errorf("network.default_bandwidth: %w", err)
	}
	ids := make(map[string]sim.HostID, len(hostNames))
	for i, name := range hostNames {
		ids[name] = sim.HostID(i)
	}

	t := &Topology{
		def:        path{latency: cfg.DefaultLatency, bandwidth: defBW},
		links:      make(map[pair]path, 2*len(cfg.Links)),
		minLatency: cfg.DefaultLatency,
	}
	for i, l := range cfg.Links {
		a, okA := ids[l.A]
		b, okB := ids[l.B]
		switch {
		case !okA:
			return nil, fmt.Errorf("network.links[%d]: unknown host %q", i, l.A)
		case !okB:
			return nil, fmt.Errorf("network.links[%d]: unknown host %q", i, l.B)
		case a == b:
			return nil, fmt.Errorf("network.links[%d]: link from %q to itself", i, l.A)
		case l.Latency <= 0:
			return nil, fmt.Errorf("network.links[%d]: latency must be positive, got %v", i, l.Latency)
		}
		bw := defBW
		if l.Bandwidth != "" {
			if bw, err = parseBandwidth(l.Bandwidth); err != nil {
				return nil, fmt.Errorf("network.links[%d].bandwidth: %w", i, err)
			}
		}
		if _, dup := t.links[pair{a, b}]; dup {
			return nil, fmt.Errorf("network.links[%d]: duplicate link %s <-> %s", i, l.A, l.B)
		}
		p := path{latency: l.Latency, bandwidth: bw}
		t.links[pair{a, b}] = p
		t.links[pair{b, a}] = p
		t.minLatency = min(t.minLatency, l.Latency)
	}
	return t, nil
}

// MinLatency implements sim.LatencyModel.
func (t *Topology) MinLatency() sim.SimTime {
	return t.minLatency
}

// Latency returns the one-way propagation delay from src to dst. A host
// reaches itself instantly.
func (t *Topology) Latency(src, dst sim.HostID) sim.SimTime {
	if src == dst {
		return 0
	}
	return t.lookup(src, dst).latency
}

// TransferTime is latency plus serialization of size bytes on the
// src->dst path.
func (t *Topology) TransferTime(src, dst sim.HostID, size uint64) sim.SimTime {
	if src == dst {
		return 0
	}
	p := t.lookup(src, dst)
	if p.bandwidth <= 0 || size == 0 {
		return p.latency
	}
	ns := math.Ceil(float64(size) * float64(sim.SimTimeSecond) / p.bandwidth)
	if ns >= float64(sim.SimTimeMax) {
		return sim.SimTimeMax
	}
	return p.latency.SaturatingAdd(sim.SimTime(ns))
}

func (t *Topology) lookup(src, dst sim.HostID) path {
	if p, ok := t.links[pair{src, dst}]; ok {
		return p
	}
	return t.def
}

func parseBandwidth(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := units.FromHumanSize(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %q", s)
	}
	return float64(n), nil
}
