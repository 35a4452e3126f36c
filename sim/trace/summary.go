package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalEvents      int
	UniqueHosts      int
	Failures         int
	FirstEventTime   int64
	LastEventTime    int64
	KindDistribution map[string]int // action kind → count of executed events
	HostDistribution map[uint32]int // host id → count of executed events
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		KindDistribution: make(map[string]int),
		HostDistribution: make(map[uint32]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalEvents = len(st.Events)
	summary.Failures = len(st.Failures)
	for i, e := range st.Events {
		summary.KindDistribution[e.Kind]++
		summary.HostDistribution[e.Host]++
		if i == 0 || e.Time < summary.FirstEventTime {
			summary.FirstEventTime = e.Time
		}
		if e.Time > summary.LastEventTime {
			summary.LastEventTime = e.Time
		}
	}
	summary.UniqueHosts = len(summary.HostDistribution)

	return summary
}
