package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceUsage_Flush_ReturnsAndClearsDelta(t *testing.T) {
	// GIVEN a tracker with some recorded activity
	r := NewResourceUsage(3)
	r.Record(ResourceCPUTime, 100)
	r.Record(ResourceBytesSent, 64)
	r.RecordSyscall("write", 2)

	// WHEN flushing
	snap := r.Flush()

	// THEN the snapshot carries the delta and the next flush is empty
	assert.Equal(t, HostID(3), snap.Host)
	assert.Equal(t, SimTime(100), snap.Delta.CPUTime)
	assert.Equal(t, uint64(64), snap.Delta.BytesSent)
	assert.Equal(t, uint64(2), snap.Delta.Syscalls)
	assert.Equal(t, uint64(2), snap.Delta.SyscallCounts["write"])
	assert.True(t, r.Flush().Delta.IsZero())

	// AND totals survive the flush
	r.Record(ResourceBytesSent, 1)
	assert.Equal(t, uint64(65), r.Totals().BytesSent)
	assert.Equal(t, uint64(1), r.Flush().Delta.BytesSent)
}

func TestResourceUsage_Record_ZeroIsNoOp(t *testing.T) {
	r := NewResourceUsage(0)
	r.Record(ResourceEvents, 0)
	r.RecordSyscall("read", 0)
	assert.True(t, r.Totals().IsZero())
}

func TestUsage_Add_MergesSyscallCounts(t *testing.T) {
	var total Usage
	total.Add(Usage{Syscalls: 1, SyscallCounts: map[string]uint64{"read": 1}})
	total.Add(Usage{Syscalls: 3, SyscallCounts: map[string]uint64{"read": 1, "write": 2}})
	assert.Equal(t, uint64(4), total.Syscalls)
	assert.Equal(t, map[string]uint64{"read": 2, "write": 2}, total.SyscallCounts)
}

func TestUsage_Totals_IsACopy(t *testing.T) {
	r := NewResourceUsage(0)
	r.RecordSyscall("read", 1)
	got := r.Totals()
	got.SyscallCounts["read"] = 99
	assert.Equal(t, uint64(1), r.Totals().SyscallCounts["read"])
}

func TestResourceKind_String(t *testing.T) {
	assert.Equal(t, "cpu_time", ResourceCPUTime.String())
	assert.Equal(t, "events", ResourceEvents.String())
	assert.Equal(t, "unknown", ResourceKind(42).String())
}
