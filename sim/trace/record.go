// Package trace provides executed-event recording and the determinism
// fingerprint for a simulation run.
// It has no dependencies on sim/ and stores pure data types.
package trace

// EventRecord captures one executed event.
type EventRecord struct {
	Round  uint64 `json:"round"`
	Worker int    `json:"worker"`
	Host   uint32 `json:"host"`
	Time   int64  `json:"time_ns"`
	Seq    uint64 `json:"seq"`
	Origin uint32 `json:"origin"`
	Kind   string `json:"kind"`
	// Delay is the CPU delay charged for the event (ns).
	Delay int64 `json:"cpu_delay_ns,omitempty"`
}

// Before orders records the way the scheduler orders events, with the
// target host as the final tie-breaker.
func (r EventRecord) Before(o EventRecord) bool {
	if r.Time != o.Time {
		return r.Time < o.Time
	}
	if r.Seq != o.Seq {
		return r.Seq < o.Seq
	}
	if r.Origin != o.Origin {
		return r.Origin < o.Origin
	}
	return r.Host < o.Host
}

// HostFailure captures a host killed by an emulation-layer error.
type HostFailure struct {
	Host   uint32 `json:"host"`
	Name   string `json:"name"`
	Time   int64  `json:"time_ns"`
	Reason string `json:"reason"`
}
