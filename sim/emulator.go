package sim

// This file defines the boundary with the emulation layer, the subsystem
// that runs guest application code for a host and turns its activity into
// work items. Implementations live outside this package (see sim/emulation).

// HostSpec describes one host to create.
type HostSpec struct {
	Name   string
	Weight float64 // used by the weighted assignment policy; 0 counts as 1
	CPU    CPUConfig
	// App is handed to Emulator.NewApplication untouched.
	App any
}

// HostInfo is the read-only identity an Application sees.
type HostInfo struct {
	ID     HostID
	Name   string
	Worker WorkerID
}

// ExecutionResult reports what an action consumed.
type ExecutionResult struct {
	WorkUnits     int64 // charged against the host CPU model
	BytesSent     uint64
	BytesReceived uint64
	// Syscalls maps syscall name to number of emulated calls.
	Syscalls map[string]uint64
}

// FollowUp is an event requested by an Application. The worker may move
// Time later (CPU delay, lookahead) but never earlier.
type FollowUp struct {
	Time   SimTime
	Host   HostID
	Action Action
}

// Application is the emulation-layer state of one host. Only the worker
// owning that host calls it, one call at a time.
type Application interface {
	// Boot starts the guest application and returns its initial events.
	Boot(host HostInfo, now SimTime) ([]FollowUp, error)
	// Execute runs action at now.
	Execute(host HostInfo, now SimTime, action Action) (ExecutionResult, []FollowUp, error)
	// Shutdown releases emulated resources (sockets, descriptors) at the end
	// of the run.
	Shutdown(host HostInfo, now SimTime) error
}

// Emulator creates per-host Applications. NewApplication is called from the
// Manager goroutine during initialization, in host id order.
type Emulator interface {
	NewApplication(host HostInfo, spec HostSpec) (Application, error)
}

// LatencyModel is what the core needs from the network model: the minimum
// simulated delay before any host can affect another.
type LatencyModel interface {
	MinLatency() SimTime
}
