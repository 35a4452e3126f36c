package sim

import (
	"time"

	"github.com/inference-sim/hostsim/sim/trace"
)

// AssignmentPolicy selects how hosts are partitioned across workers.
type AssignmentPolicy string

const (
	// AssignRoundRobin deals hosts to workers in id order.
	AssignRoundRobin AssignmentPolicy = "round-robin"
	// AssignWeighted balances the sum of host weights per worker.
	AssignWeighted AssignmentPolicy = "weighted"
)

var validAssignmentPolicies = map[AssignmentPolicy]bool{
	AssignRoundRobin: true,
	AssignWeighted:   true,
	"":               true, // empty defaults to round-robin
}

// IsValidAssignmentPolicy reports whether name is a recognized policy.
func IsValidAssignmentPolicy(name string) bool {
	return validAssignmentPolicies[AssignmentPolicy(name)]
}

// Config groups the Manager's run parameters.
type Config struct {
	WorkerCount int     // number of worker threads
	Lookahead   SimTime // minimum delay between causally dependent cross-host events
	EndTime     SimTime // events at or after EndTime are never executed

	AssignmentPolicy AssignmentPolicy

	// HeartbeatInterval is the simulated-time period of progress logs.
	// 0 disables heartbeats.
	HeartbeatInterval SimTime
	// StallWarning is the wall-clock time the Manager waits at a barrier
	// before logging the workers that have not arrived. 0 disables it.
	StallWarning time.Duration

	Seed       int64
	TraceLevel trace.TraceLevel
}

// Validate checks c against the network's declared minimum latency. Every
// returned error wraps ErrConfiguration.
func (c Config) Validate(network LatencyModel) error {
	if c.WorkerCount < 1 {
		return configErrorf("worker_count", "must be >= 1, got %d", c.WorkerCount)
	}
	if c.Lookahead <= 0 {
		return configErrorf("lookahead_bound", "must be positive, got %v", c.Lookahead)
	}
	if network != nil {
		if minLatency := network.MinLatency(); c.Lookahead < minLatency {
			return configErrorf("lookahead_bound", "%v is smaller than the network minimum latency %v", c.Lookahead, minLatency)
		}
	}
	if c.EndTime <= 0 {
		return configErrorf("end_time", "must be positive, got %v", c.EndTime)
	}
	if !validAssignmentPolicies[c.AssignmentPolicy] {
		return configErrorf("host_assignment_policy", "unknown policy %q; valid: round-robin, weighted", c.AssignmentPolicy)
	}
	if c.HeartbeatInterval < 0 {
		return configErrorf("heartbeat_interval", "must be non-negative, got %v", c.HeartbeatInterval)
	}
	if c.StallWarning < 0 {
		return configErrorf("stall_warning", "must be non-negative, got %v", c.StallWarning)
	}
	if !trace.IsValidTraceLevel(string(c.TraceLevel)) {
		return configErrorf("trace_level", "unknown level %q; valid: none, events", c.TraceLevel)
	}
	return nil
}
