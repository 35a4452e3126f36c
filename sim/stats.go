package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/docker/go-units"

	"github.com/inference-sim/hostsim/sim/trace"
)

// WorkerStats are the per-worker counters reported at each barrier.
type WorkerStats struct {
	Worker            WorkerID      `json:"worker"`
	Hosts             int           `json:"hosts"`
	Rounds            uint64        `json:"rounds"`
	EventsProcessed   uint64        `json:"events_processed"`
	EventsDiscarded   uint64        `json:"events_discarded"`
	EventsCreated     uint64        `json:"events_created"`
	HandoffsSent      uint64        `json:"handoffs_sent"`
	DeliveriesClamped uint64        `json:"deliveries_clamped"`
	HostFailures      uint64        `json:"host_failures"`
	Busy              time.Duration `json:"busy_wall_ns"`
}

// Add accumulates o's counters (not its identity) into s.
func (s *WorkerStats) Add(o WorkerStats) {
	s.Rounds += o.Rounds
	s.EventsProcessed += o.EventsProcessed
	s.EventsDiscarded += o.EventsDiscarded
	s.EventsCreated += o.EventsCreated
	s.HandoffsSent += o.HandoffsSent
	s.DeliveriesClamped += o.DeliveriesClamped
	s.HostFailures += o.HostFailures
	s.Busy += o.Busy
}

// DeadHost describes a host killed by a HostFatalError.
type DeadHost struct {
	ID     HostID  `json:"id"`
	Name   string  `json:"name"`
	Time   SimTime `json:"time_ns"`
	Reason string  `json:"reason"`
}

// HostUsage is the cumulative usage of one host.
type HostUsage struct {
	ID    HostID `json:"id"`
	Name  string `json:"name"`
	Usage Usage  `json:"usage"`
}

// Summary is the final record of a run.
type Summary struct {
	RunID        string        `json:"run_id"`
	Workers      int           `json:"workers"`
	Hosts        int           `json:"hosts"`
	Rounds       uint64        `json:"rounds"`
	SimEndTime   SimTime       `json:"sim_end_time_ns"`
	WallDuration time.Duration `json:"wall_duration_ns"`

	Totals Usage `json:"totals"`

	EventsCreated       uint64 `json:"events_created"`
	EventsProcessed     uint64 `json:"events_processed"`
	EventsDiscarded     uint64 `json:"events_discarded"`
	EventsPending       uint64 `json:"events_pending"`
	DeliveriesClamped   uint64 `json:"deliveries_clamped"`
	CrossWorkerHandoffs uint64 `json:"cross_worker_handoffs"`

	PerHost     []HostUsage   `json:"per_host"`
	DeadHosts   []DeadHost    `json:"dead_hosts"`
	PerWorker   []WorkerStats `json:"per_worker"`
	Fingerprint string        `json:"fingerprint"`

	Trace *trace.SimulationTrace `json:"-"`
}

// Print displays the summary in a human-readable form.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Summary ===")
	fmt.Fprintf(w, "Run ID               : %s\n", s.RunID)
	fmt.Fprintf(w, "Workers / Hosts      : %d / %d\n", s.Workers, s.Hosts)
	fmt.Fprintf(w, "Rounds               : %d\n", s.Rounds)
	fmt.Fprintf(w, "Simulated Time       : %v\n", s.SimEndTime)
	fmt.Fprintf(w, "Wall Duration        : %v (%s)\n", s.WallDuration.Round(time.Microsecond), units.HumanDuration(s.WallDuration))
	fmt.Fprintf(w, "Events Processed     : %d\n", s.EventsProcessed)
	fmt.Fprintf(w, "Events Discarded     : %d\n", s.EventsDiscarded)
	fmt.Fprintf(w, "Events Pending       : %d\n", s.EventsPending)
	fmt.Fprintf(w, "Clamped Deliveries   : %d\n", s.DeliveriesClamped)
	fmt.Fprintf(w, "Cross-Worker Events  : %d\n", s.CrossWorkerHandoffs)
	fmt.Fprintf(w, "CPU Time Simulated   : %v\n", s.Totals.CPUTime)
	fmt.Fprintf(w, "Bytes Sent           : %s\n", units.HumanSize(float64(s.Totals.BytesSent)))
	fmt.Fprintf(w, "Bytes Received       : %s\n", units.HumanSize(float64(s.Totals.BytesReceived)))
	fmt.Fprintf(w, "Syscalls             : %d\n", s.Totals.Syscalls)
	if len(s.Totals.SyscallCounts) > 0 {
		names := make([]string, 0, len(s.Totals.SyscallCounts))
		for name := range s.Totals.SyscallCounts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-19s: %d\n", name, s.Totals.SyscallCounts[name])
		}
	}
	if len(s.PerHost) > 0 {
		fmt.Fprintln(w, "Per-Host Usage       :")
		for _, hu := range s.PerHost {
			fmt.Fprintf(w, "  %-19s: %d events, cpu %v, sent %s, recv %s\n", hu.Name, hu.Usage.Events, hu.Usage.CPUTime,
				units.HumanSize(float64(hu.Usage.BytesSent)), units.HumanSize(float64(hu.Usage.BytesReceived)))
		}
	}
	fmt.Fprintf(w, "Dead Hosts           : %d\n", len(s.DeadHosts))
	for _, d := range s.DeadHosts {
		fmt.Fprintf(w, "  %s at %v: %s\n", d.Name, d.Time, d.Reason)
	}
	fmt.Fprintf(w, "Fingerprint          : %s\n", s.Fingerprint)
}

// SaveJSON writes the summary as indented JSON to path.
func (s *Summary) SaveJSON(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// StatsAggregator merges per-host snapshots into process-wide totals. All
// merges happen on the Manager goroutine at barrier points; sums make the
// merge order irrelevant.
type StatsAggregator struct {
	totals    Usage
	round     Usage
	perHost   map[HostID]*Usage
	owner     map[HostID]WorkerID
	perWorker map[WorkerID]*WorkerStats
	started   time.Time
	now       func() time.Time
}

// NewStatsAggregator creates an empty aggregator and starts its wall clock.
func NewStatsAggregator() *StatsAggregator {
	a := &StatsAggregator{
		perHost:   make(map[HostID]*Usage),
		owner:     make(map[HostID]WorkerID),
		perWorker: make(map[WorkerID]*WorkerStats),
		now:       time.Now,
	}
	a.started = a.now()
	return a
}

// BeginRound clears the per-round delta.
func (a *StatsAggregator) BeginRound() {
	a.round = Usage{}
}

// Merge accumulates one host snapshot flushed by worker.
func (a *StatsAggregator) Merge(worker WorkerID, snap Snapshot) {
	if snap.Delta.IsZero() {
		return
	}
	a.totals.Add(snap.Delta)
	a.round.Add(snap.Delta)
	hu, ok := a.perHost[snap.Host]
	if !ok {
		hu = &Usage{}
		a.perHost[snap.Host] = hu
	}
	hu.Add(snap.Delta)
	if owner, seen := a.owner[snap.Host]; seen && owner != worker {
		panic(fmt.Sprintf("StatsAggregator: host %d reported by workers %d and %d", snap.Host, owner, worker))
	}
	a.owner[snap.Host] = worker
}

// MergeWorker accumulates a worker's barrier counters.
func (a *StatsAggregator) MergeWorker(stats WorkerStats) {
	ws, ok := a.perWorker[stats.Worker]
	if !ok {
		ws = &WorkerStats{Worker: stats.Worker, Hosts: stats.Hosts}
		a.perWorker[stats.Worker] = ws
	}
	ws.Add(stats)
}

// RoundDelta returns what was merged since the last BeginRound.
func (a *StatsAggregator) RoundDelta() Usage {
	return a.round.clone()
}

// Totals returns everything merged so far.
func (a *StatsAggregator) Totals() Usage {
	return a.totals.clone()
}

// HostTotals returns everything merged for one host.
func (a *StatsAggregator) HostTotals(host HostID) Usage {
	if hu, ok := a.perHost[host]; ok {
		return hu.clone()
	}
	return Usage{}
}

// Report produces the counter part of the Summary. The Manager fills in
// run identity, simulated end time, dead hosts and the fingerprint.
func (a *StatsAggregator) Report() Summary {
	s := Summary{
		Totals:       a.totals.clone(),
		WallDuration: a.now().Sub(a.started),
	}
	workers := make([]WorkerID, 0, len(a.perWorker))
	for id := range a.perWorker {
		workers = append(workers, id)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i] < workers[j] })
	for _, id := range workers {
		ws := *a.perWorker[id]
		s.PerWorker = append(s.PerWorker, ws)
		s.EventsCreated += ws.EventsCreated
		s.EventsProcessed += ws.EventsProcessed
		s.EventsDiscarded += ws.EventsDiscarded
		s.DeliveriesClamped += ws.DeliveriesClamped
		s.CrossWorkerHandoffs += ws.HandoffsSent
	}
	return s
}

func formatFingerprint(v uint64) string {
	return strconv.FormatUint(v, 16)
}
