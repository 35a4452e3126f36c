package sim

import "maps"

// ResourceKind selects a Resource Usage counter.
type ResourceKind int

const (
	ResourceCPUTime ResourceKind = iota // simulated nanoseconds of CPU consumed
	ResourceBytesSent
	ResourceBytesReceived
	ResourceSyscalls
	ResourceEvents
)

var resourceKindNames = map[ResourceKind]string{
	ResourceCPUTime:       "cpu_time",
	ResourceBytesSent:     "bytes_sent",
	ResourceBytesReceived: "bytes_received",
	ResourceSyscalls:      "syscalls",
	ResourceEvents:        "events",
}

func (k ResourceKind) String() string {
	if name, ok := resourceKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Usage is a set of resource counters. It is used both for cumulative
// totals and for deltas.
type Usage struct {
	CPUTime       SimTime           `json:"cpu_time_ns"`
	BytesSent     uint64            `json:"bytes_sent"`
	BytesReceived uint64            `json:"bytes_received"`
	Syscalls      uint64            `json:"syscalls"`
	Events        uint64            `json:"events"`
	SyscallCounts map[string]uint64 `json:"syscall_counts,omitempty"`
}

// IsZero reports whether no counter is set.
func (u Usage) IsZero() bool {
	return u.CPUTime == 0 && u.BytesSent == 0 && u.BytesReceived == 0 &&
		u.Syscalls == 0 && u.Events == 0 && len(u.SyscallCounts) == 0
}

// Add accumulates o into u.
func (u *Usage) Add(o Usage) {
	u.CPUTime = u.CPUTime.SaturatingAdd(o.CPUTime)
	u.BytesSent += o.BytesSent
	u.BytesReceived += o.BytesReceived
	u.Syscalls += o.Syscalls
	u.Events += o.Events
	if len(o.SyscallCounts) > 0 && u.SyscallCounts == nil {
		u.SyscallCounts = make(map[string]uint64, len(o.SyscallCounts))
	}
	for name, n := range o.SyscallCounts {
		u.SyscallCounts[name] += n
	}
}

func (u Usage) clone() Usage {
	c := u
	if u.SyscallCounts != nil {
		c.SyscallCounts = maps.Clone(u.SyscallCounts)
	}
	return c
}

func (u *Usage) record(kind ResourceKind, amount uint64) {
	switch kind {
	case ResourceCPUTime:
		u.CPUTime = u.CPUTime.SaturatingAdd(SimTime(min(amount, uint64(SimTimeMax))))
	case ResourceBytesSent:
		u.BytesSent += amount
	case ResourceBytesReceived:
		u.BytesReceived += amount
	case ResourceSyscalls:
		u.Syscalls += amount
	case ResourceEvents:
		u.Events += amount
	}
}

// Snapshot is the delta a host accumulated since its previous flush.
type Snapshot struct {
	Host  HostID `json:"host"`
	Delta Usage  `json:"delta"`
}

// ResourceUsage tracks one host's counters. Only the owning worker calls
// Record and Flush; flushes happen at barrier points.
type ResourceUsage struct {
	host  HostID
	total Usage
	delta Usage
}

// NewResourceUsage creates zeroed counters for host.
func NewResourceUsage(host HostID) *ResourceUsage {
	return &ResourceUsage{host: host}
}

// Record adds amount to both the cumulative and delta counter of kind.
func (r *ResourceUsage) Record(kind ResourceKind, amount uint64) {
	if amount == 0 {
		return
	}
	r.total.record(kind, amount)
	r.delta.record(kind, amount)
}

// RecordSyscall counts n emulated calls of the named syscall.
func (r *ResourceUsage) RecordSyscall(name string, n uint64) {
	if n == 0 {
		return
	}
	r.Record(ResourceSyscalls, n)
	for _, u := range []*Usage{&r.total, &r.delta} {
		if u.SyscallCounts == nil {
			u.SyscallCounts = make(map[string]uint64)
		}
		u.SyscallCounts[name] += n
	}
}

// Flush returns the delta counters and resets them. Totals are kept.
func (r *ResourceUsage) Flush() Snapshot {
	snap := Snapshot{Host: r.host, Delta: r.delta}
	r.delta = Usage{}
	return snap
}

// Totals returns a copy of the cumulative counters.
func (r *ResourceUsage) Totals() Usage {
	return r.total.clone()
}
