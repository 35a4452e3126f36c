package sim

import (
	"github.com/inference-sim/hostsim/sim/trace"
)

// HostID identifies a host. IDs are dense and follow configuration order.
type HostID uint32

// WorkerID identifies a worker thread.
type WorkerID int

// Host is a simulated machine. All mutable state belongs to the worker the
// host is assigned to; no other goroutine may touch it during a round.
type Host struct {
	id     HostID
	name   string
	weight float64
	worker WorkerID

	cpu   *CPU
	usage *ResourceUsage
	app   Application

	now     SimTime // time of the last executed event
	nextSeq uint64
	digest  *trace.Digest

	dead     bool
	deathErr error
}

func newHost(id HostID, spec HostSpec) *Host {
	return &Host{
		id:     id,
		name:   spec.Name,
		weight: spec.Weight,
		cpu:    NewCPU(spec.CPU),
		usage:  NewResourceUsage(id),
		digest: trace.NewDigest(uint32(id)),
	}
}

// ID returns the host id.
func (h *Host) ID() HostID { return h.id }

// Name returns the configured host name.
func (h *Host) Name() string { return h.name }

// Worker returns the worker the host is assigned to.
func (h *Host) Worker() WorkerID { return h.worker }

// Dead reports whether the host was killed by a HostFatalError.
func (h *Host) Dead() bool { return h.dead }

// Usage returns a copy of the host's cumulative counters.
func (h *Host) Usage() Usage { return h.usage.Totals() }

func (h *Host) info() HostInfo {
	return HostInfo{ID: h.id, Name: h.name, Worker: h.worker}
}

// allocSeq hands out the next sequence number for an event this host
// produces.
func (h *Host) allocSeq() uint64 {
	h.nextSeq++
	return h.nextSeq
}
