// Package testutil provides shared test infrastructure for the hostsim
// engine: a scripted emulator whose hosts run caller-supplied handlers and
// record every execution, plus small constructors for host specs and
// latency models.
package testutil

import (
	"fmt"
	"slices"
	"sync"

	"github.com/inference-sim/hostsim/sim"
)

// Msg is the action every scripted host exchanges.
type Msg struct {
	From sim.HostID
	Hop  int
	Tag  string
}

// Kind returns Tag, or "msg" when Tag is empty.
func (m Msg) Kind() string {
	if m.Tag != "" {
		return m.Tag
	}
	return "msg"
}

// Handler reacts to one message delivered to host at now.
type Handler func(host sim.HostInfo, now sim.SimTime, msg Msg) (sim.ExecutionResult, []sim.FollowUp, error)

// Execution is one recorded Execute call.
type Execution struct {
	Time   sim.SimTime
	Worker sim.WorkerID
	Msg    Msg
}

// Emulator is a scripted sim.Emulator. Configure the exported fields
// before the run; they are read concurrently by workers afterwards.
type Emulator struct {
	// Boot lists each host's initial events.
	Boot map[sim.HostID][]sim.FollowUp
	// Handle is the default handler. A nil handler executes messages with
	// no follow-ups.
	Handle Handler
	// Handlers override Handle per host.
	Handlers map[sim.HostID]Handler
	// BootErr and ShutdownErr inject lifecycle failures per host.
	BootErr     map[sim.HostID]error
	ShutdownErr map[sim.HostID]error
	// CreateErr makes NewApplication fail for the named host.
	CreateErr map[string]error

	mu         sync.Mutex
	executions map[sim.HostID][]Execution
	shutdowns  []sim.HostID
}

// NewApplication implements sim.Emulator.
func (e *Emulator) NewApplication(host sim.HostInfo, spec sim.HostSpec) (sim.Application, error) {
	if err := e.CreateErr[spec.Name]; err != nil {
		return nil, err
	}
	return &app{emu: e}, nil
}

// Executions returns what host executed, in execution order.
func (e *Emulator) Executions(host sim.HostID) []Execution {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.executions[host])
}

// Times returns the execution times of host.
func (e *Emulator) Times(host sim.HostID) []sim.SimTime {
	var out []sim.SimTime
	for _, ex := range e.Executions(host) {
		out = append(out, ex.Time)
	}
	return out
}

// Shutdowns returns the hosts whose Shutdown was called, sorted.
func (e *Emulator) Shutdowns() []sim.HostID {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := slices.Clone(e.shutdowns)
	slices.Sort(out)
	return out
}

func (e *Emulator) record(host sim.HostInfo, now sim.SimTime, msg Msg) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.executions == nil {
		e.executions = make(map[sim.HostID][]Execution)
	}
	e.executions[host.ID] = append(e.executions[host.ID], Execution{Time: now, Worker: host.Worker, Msg: msg})
}

type app struct {
	emu *Emulator
}

func (a *app) Boot(host sim.HostInfo, now sim.SimTime) ([]sim.FollowUp, error) {
	if err := a.emu.BootErr[host.ID]; err != nil {
		return nil, err
	}
	return slices.Clone(a.emu.Boot[host.ID]), nil
}

func (a *app) Execute(host sim.HostInfo, now sim.SimTime, action sim.Action) (sim.ExecutionResult, []sim.FollowUp, error) {
	msg, ok := action.(Msg)
	if !ok {
		return sim.ExecutionResult{}, nil, fmt.Errorf("unexpected action %T", action)
	}
	a.emu.record(host, now, msg)
	handle := a.emu.Handle
	if h, ok := a.emu.Handlers[host.ID]; ok {
		handle = h
	}
	if handle == nil {
		return sim.ExecutionResult{}, nil, nil
	}
	return handle(host, now, msg)
}

func (a *app) Shutdown(host sim.HostInfo, now sim.SimTime) error {
	a.emu.mu.Lock()
	a.emu.shutdowns = append(a.emu.shutdowns, host.ID)
	a.emu.mu.Unlock()
	return a.emu.ShutdownErr[host.ID]
}

// Relay returns a handler that forwards each message to the next host of a
// ring of n hosts, after delay, until it has travelled hops times. Every
// hop charges work units and moves 100 bytes each way.
func Relay(n, hops int, delay sim.SimTime, work int64) Handler {
	return func(host sim.HostInfo, now sim.SimTime, msg Msg) (sim.ExecutionResult, []sim.FollowUp, error) {
		res := sim.ExecutionResult{
			WorkUnits:     work,
			BytesSent:     100,
			BytesReceived: 100,
			Syscalls:      map[string]uint64{"sendto": 1, "recvfrom": 1},
		}
		if msg.Hop >= hops {
			return res, nil, nil
		}
		next := sim.FollowUp{
			Time:   now + delay,
			Host:   sim.HostID((int(host.ID) + 1) % n),
			Action: Msg{From: host.ID, Hop: msg.Hop + 1, Tag: msg.Tag},
		}
		return res, []sim.FollowUp{next}, nil
	}
}

// Start returns one boot event per host at time at.
func Start(n int, at sim.SimTime) map[sim.HostID][]sim.FollowUp {
	boot := make(map[sim.HostID][]sim.FollowUp, n)
	for i := 0; i < n; i++ {
		id := sim.HostID(i)
		boot[id] = []sim.FollowUp{{Time: at, Host: id, Action: Msg{From: id}}}
	}
	return boot
}

// Hosts returns n host specs named host0..host(n-1) sharing cpu.
func Hosts(n int, cpu sim.CPUConfig) []sim.HostSpec {
	specs := make([]sim.HostSpec, n)
	for i := range specs {
		specs[i] = sim.HostSpec{Name: fmt.Sprintf("host%d", i), CPU: cpu}
	}
	return specs
}

// Latency is a LatencyModel with a fixed minimum.
type Latency sim.SimTime

// MinLatency implements sim.LatencyModel.
func (l Latency) MinLatency() sim.SimTime { return sim.SimTime(l) }
