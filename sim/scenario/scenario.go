// Package scenario loads hostsim scenario files: the scheduler settings,
// the network topology and the host list, in one YAML document.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/hostsim/sim"
	"github.com/inference-sim/hostsim/sim/emulation"
	"github.com/inference-sim/hostsim/sim/network"
	"github.com/inference-sim/hostsim/sim/trace"
)

// Scenario is a complete run description.
type Scenario struct {
	Seed      int64          `yaml:"seed"`
	Scheduler Scheduler      `yaml:"scheduler"`
	Network   network.Config `yaml:"network"`
	Hosts     []HostGroup    `yaml:"hosts"`
}

// Scheduler holds the Manager settings.
type Scheduler struct {
	// WorkerCount defaults to 1 when absent. An explicit 0 is an error.
	WorkerCount *int `yaml:"worker_count,omitempty"`
	// Lookahead defaults to the network minimum latency.
	Lookahead         sim.SimTime `yaml:"lookahead,omitempty"`
	EndTime           sim.SimTime `yaml:"end_time"`
	AssignmentPolicy  string      `yaml:"host_assignment_policy,omitempty"`
	HeartbeatInterval sim.SimTime `yaml:"heartbeat_interval,omitempty"`
	// StallWarning is a wall-clock duration ("30s").
	StallWarning string `yaml:"stall_warning,omitempty"`
	TraceLevel   string `yaml:"trace_level,omitempty"`
}

// HostGroup describes Count identical hosts. With Count > 1 the hosts are
// named <name>-0 .. <name>-(Count-1).
type HostGroup struct {
	Name   string              `yaml:"name"`
	Count  int                 `yaml:"count,omitempty"`
	Weight float64             `yaml:"weight,omitempty"`
	CPU    sim.CPUConfig       `yaml:"cpu,omitempty"`
	App    emulation.AppConfig `yaml:"app,omitempty"`
}

func configErrorf(field, format string, args ...any) error {
	return &sim.ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Load reads and parses a scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configErrorf("scenario", "reading %s: %v", path, err)
	}
	return Parse(data)
}

// Parse decodes a scenario document with strict field checking.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, configErrorf("scenario", "parsing: %v", err)
	}
	return &s, nil
}

// Validate checks the fields that do not need the built topology. Build
// runs it again and adds the checks that do.
func (s *Scenario) Validate() error {
	if s.Scheduler.EndTime <= 0 {
		return configErrorf("scheduler.end_time", "must be positive, got %v", s.Scheduler.EndTime)
	}
	if !sim.IsValidAssignmentPolicy(s.Scheduler.AssignmentPolicy) {
		return configErrorf("scheduler.host_assignment_policy", "unknown policy %q; valid: round-robin, weighted", s.Scheduler.AssignmentPolicy)
	}
	if !trace.IsValidTraceLevel(s.Scheduler.TraceLevel) {
		return configErrorf("scheduler.trace_level", "unknown level %q; valid: none, events", s.Scheduler.TraceLevel)
	}
	if _, err := s.stallWarning(); err != nil {
		return err
	}
	if len(s.Hosts) == 0 {
		return configErrorf("hosts", "at least one host is required")
	}
	seen := make(map[string]bool)
	for i, g := range s.Hosts {
		field := fmt.Sprintf("hosts[%d]", i)
		if g.Name == "" {
			return configErrorf(field+".name", "must not be empty")
		}
		if g.Count < 0 {
			return configErrorf(field+".count", "must be non-negative, got %d", g.Count)
		}
		if g.Weight < 0 {
			return configErrorf(field+".weight", "must be non-negative, got %v", g.Weight)
		}
		if g.CPU.Capacity < 0 {
			return configErrorf(field+".cpu.capacity", "must be non-negative, got %v", g.CPU.Capacity)
		}
		if err := g.App.Validate(); err != nil {
			return configErrorf(field+".app", "%v", err)
		}
		for _, name := range g.names() {
			if seen[name] {
				return configErrorf(field+".name", "duplicate host name %q", name)
			}
			seen[name] = true
		}
	}
	return nil
}

func (g HostGroup) names() []string {
	if g.Count <= 1 {
		return []string{g.Name}
	}
	out := make([]string, g.Count)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", g.Name, i)
	}
	return out
}

// HostNames returns every host name in id order.
func (s *Scenario) HostNames() []string {
	var names []string
	for _, g := range s.Hosts {
		names = append(names, g.names()...)
	}
	return names
}

func (s *Scenario) stallWarning() (time.Duration, error) {
	if s.Scheduler.StallWarning == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Scheduler.StallWarning)
	if err != nil {
		return 0, configErrorf("scheduler.stall_warning", "%v", err)
	}
	if d < 0 {
		return 0, configErrorf("scheduler.stall_warning", "must be non-negative, got %v", d)
	}
	return d, nil
}

// Run is everything needed to start a sim.Manager.
type Run struct {
	Config   sim.Config
	Specs    []sim.HostSpec
	Topology *network.Topology
	Emulator *emulation.Emulator
}

// Build validates the scenario and assembles its run inputs. The returned
// Config is also checked against the topology's minimum latency.
func (s *Scenario) Build() (*Run, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	names := s.HostNames()
	topo, err := network.New(s.Network, names)
	if err != nil {
		return nil, configErrorf("network", "%v", err)
	}
	stall, _ := s.stallWarning()

	cfg := sim.Config{
		WorkerCount:       1,
		Lookahead:         s.Scheduler.Lookahead,
		EndTime:           s.Scheduler.EndTime,
		AssignmentPolicy:  sim.AssignmentPolicy(s.Scheduler.AssignmentPolicy),
		HeartbeatInterval: s.Scheduler.HeartbeatInterval,
		StallWarning:      stall,
		Seed:              s.Seed,
		TraceLevel:        trace.TraceLevel(s.Scheduler.TraceLevel),
	}
	if n := s.Scheduler.WorkerCount; n != nil {
		cfg.WorkerCount = *n
	}
	if cfg.Lookahead == 0 {
		cfg.Lookahead = topo.MinLatency()
	}
	if err := cfg.Validate(topo); err != nil {
		return nil, err
	}

	var specs []sim.HostSpec
	for _, g := range s.Hosts {
		for _, name := range g.names() {
			app := g.App
			specs = append(specs, sim.HostSpec{
				Name:   name,
				Weight: g.Weight,
				CPU:    g.CPU,
				App:    &app,
			})
		}
	}
	return &Run{
		Config:   cfg,
		Specs:    specs,
		Topology: topo,
		Emulator: emulation.New(topo, names, s.Seed),
	}, nil
}
