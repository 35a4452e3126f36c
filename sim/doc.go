// Package sim provides the parallel discrete-event scheduling core of
// hostsim.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - event.go: Event ordering (time, seq, origin, host)
//   - worker.go: per-event processing, CPU charging and follow-up routing
//   - manager.go: lifecycle states, the round loop and the horizon
//
// # Architecture
//
// Hosts are partitioned across a fixed pool of workers (assign.go). Each
// worker owns a Scheduler holding the events of its hosts and runs on its
// own OS thread. The Manager drives conservative rounds: every worker
// executes the events due at or before the published horizon, then all of
// them meet at a barrier where the Manager collects usage snapshots
// (stats.go) and computes the next horizon. Events for hosts owned by
// another worker travel through handoff mailboxes (handoff.go) and are
// picked up after the barrier.
//
// The sim package defines the collaborator interfaces; implementations
// live in sub-packages:
//   - sim/emulation/: synthetic guest applications (Emulator, Application)
//   - sim/network/: latency topology (LatencyModel)
//   - sim/scenario/: YAML scenario files
//   - sim/trace/: executed-event records and the run fingerprint
//
// # Key Interfaces
//
//   - Emulator: creates one Application per host
//   - Application: Boot, Execute and Shutdown a host's guest code
//   - LatencyModel: declares the minimum inter-host latency
//   - Action: opaque event payload, only Kind is used by the core
package sim
