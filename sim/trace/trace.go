package trace

import "sort"

// TraceLevel controls the verbosity of event tracing.
type TraceLevel string

const (
	// TraceLevelNone disables record collection. Digests are still kept.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEvents records every executed event.
	TraceLevelEvents TraceLevel = "events"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelEvents: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// SimulationTrace collects records for one worker, or for a whole run
// after Merge.
type SimulationTrace struct {
	Level    TraceLevel
	Events   []EventRecord
	Failures []HostFailure
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(level TraceLevel) *SimulationTrace {
	return &SimulationTrace{
		Level:    level,
		Events:   make([]EventRecord, 0),
		Failures: make([]HostFailure, 0),
	}
}

// Enabled reports whether event records are kept.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Level == TraceLevelEvents
}

// RecordEvent appends an event record when tracing is enabled.
func (st *SimulationTrace) RecordEvent(record EventRecord) {
	if !st.Enabled() {
		return
	}
	st.Events = append(st.Events, record)
}

// RecordFailure appends a host failure. Failures are kept at every level.
func (st *SimulationTrace) RecordFailure(failure HostFailure) {
	st.Failures = append(st.Failures, failure)
}

// Merge combines per-worker traces into one, ordered by event order so the
// result does not depend on how hosts were spread across workers.
func Merge(level TraceLevel, parts ...*SimulationTrace) *SimulationTrace {
	merged := NewSimulationTrace(level)
	for _, p := range parts {
		if p == nil {
			continue
		}
		merged.Events = append(merged.Events, p.Events...)
		merged.Failures = append(merged.Failures, p.Failures...)
	}
	sort.Slice(merged.Events, func(i, j int) bool {
		return merged.Events[i].Before(merged.Events[j])
	})
	sort.Slice(merged.Failures, func(i, j int) bool {
		if merged.Failures[i].Time != merged.Failures[j].Time {
			return merged.Failures[i].Time < merged.Failures[j].Time
		}
		return merged.Failures[i].Host < merged.Failures[j].Host
	})
	return merged
}
