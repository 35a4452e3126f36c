package sim

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/hostsim/sim/trace"
)

// ManagerState is the lifecycle state of a Manager.
type ManagerState int32

const (
	StateInitializing ManagerState = iota
	StateRunning
	StateDraining
	StateTerminated
)

func (s ManagerState) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateTerminated:
		return "Terminated"
	}
	return fmt.Sprintf("ManagerState(%d)", int32(s))
}

// Manager owns a run: it builds hosts, partitions them across workers,
// drives the round loop and produces the Summary.
//
// Rounds are conservative. After each barrier the Manager computes the
// earliest pending event time T over all workers and publishes the horizon
// min(T+lookahead-1, endTime-1). Workers execute events up to and
// including the horizon. A cross-host event created at time t is never
// scheduled before t+lookahead >= T+lookahead, so it always lands beyond
// the horizon of the round that created it.
type Manager struct {
	config   Config
	network  LatencyModel
	emulator Emulator
	specs    []HostSpec

	state   atomic.Int32
	started atomic.Bool
	runID   string

	hosts   []*Host
	workers []*Worker
	mail    *handoff
	horizon atomic.Int64
	reports chan workerReport
	stats   *StatsAggregator

	rounds        uint64
	globalMin     SimTime
	hasNext       bool
	pending       int
	nextHeartbeat SimTime

	// afterRound, when set, sees every round's reports once they are merged.
	// Workers are parked at the barrier while it runs.
	afterRound func(round uint64, reports []workerReport)
}

// NewManager creates a Manager. Nothing is validated or started until Run.
func NewManager(config Config, network LatencyModel, emulator Emulator, specs []HostSpec) *Manager {
	if emulator == nil {
		panic("NewManager: emulator must not be nil")
	}
	m := &Manager{
		config:   config,
		network:  network,
		emulator: emulator,
		specs:    specs,
		runID:    uuid.NewString(),
	}
	m.state.Store(int32(StateInitializing))
	return m
}

// State returns the current lifecycle state. Safe to call from any goroutine.
func (m *Manager) State() ManagerState {
	return ManagerState(m.state.Load())
}

// RunID identifies this run in logs and in the Summary.
func (m *Manager) RunID() string {
	return m.runID
}

func (m *Manager) setState(next ManagerState) {
	prev := ManagerState(m.state.Swap(int32(next)))
	logrus.WithField("run_id", m.runID).Infof("manager: %v -> %v", prev, next)
}

// Run executes the simulation to completion. Configuration problems are
// reported before any worker starts and wrap ErrConfiguration. Once
// workers were started the returned Summary is non-nil, even when the run
// ends with an invariant violation or a cancellation. Cancellation of ctx
// is observed at the next barrier and returns an error wrapping
// ErrCanceled.
//
// Run may be called only once.
func (m *Manager) Run(ctx context.Context) (*Summary, error) {
	if !m.started.CompareAndSwap(false, true) {
		panic("Manager.Run called more than once")
	}
	if err := m.initialize(); err != nil {
		m.setState(StateTerminated)
		return nil, err
	}
	for _, w := range m.workers {
		w.start()
	}

	runErr := m.absorb(m.broadcast(cmdBoot))
	if runErr == nil {
		m.setState(StateRunning)
		runErr = m.loop(ctx)
	}

	m.setState(StateDraining)
	if err := m.absorb(m.broadcast(cmdDrain)); err != nil && runErr == nil {
		runErr = err
	}
	m.stop()
	m.setState(StateTerminated)

	summary := m.summarize()
	m.checkLeaks(summary)
	return summary, runErr
}

func (m *Manager) initialize() error {
	cfg := m.config
	if err := cfg.Validate(m.network); err != nil {
		return err
	}
	if len(m.specs) == 0 {
		return configErrorf("hosts", "at least one host is required")
	}
	names := make(map[string]bool, len(m.specs))
	weights := make([]float64, len(m.specs))
	for i, spec := range m.specs {
		if spec.Name == "" {
			return configErrorf(fmt.Sprintf("hosts[%d].name", i), "must not be empty")
		}
		if names[spec.Name] {
			return configErrorf(fmt.Sprintf("hosts[%d].name", i), "duplicate host name %q", spec.Name)
		}
		names[spec.Name] = true
		if spec.Weight < 0 {
			return configErrorf(fmt.Sprintf("hosts[%d].weight", i), "must be non-negative, got %v", spec.Weight)
		}
		if spec.CPU.Capacity < 0 {
			return configErrorf(fmt.Sprintf("hosts[%d].cpu.capacity", i), "must be non-negative, got %v", spec.CPU.Capacity)
		}
		weights[i] = spec.Weight
	}

	workers := cfg.WorkerCount
	if workers > len(m.specs) {
		logrus.Warnf("worker_count %d exceeds host count %d; using %d workers", workers, len(m.specs), len(m.specs))
		workers = len(m.specs)
	}
	assignment, err := AssignHosts(cfg.AssignmentPolicy, weights, workers)
	if err != nil {
		return err
	}

	m.hosts = make([]*Host, len(m.specs))
	owned := make([][]*Host, workers)
	for i, spec := range m.specs {
		h := newHost(HostID(i), spec)
		h.worker = assignment[i]
		app, err := m.emulator.NewApplication(h.info(), spec)
		if err != nil {
			return configErrorf(fmt.Sprintf("hosts[%d]", i), "host %q: %v", spec.Name, err)
		}
		h.app = app
		m.hosts[i] = h
		owned[h.worker] = append(owned[h.worker], h)
	}

	m.mail = newHandoff(workers)
	m.reports = make(chan workerReport, workers)
	m.stats = NewStatsAggregator()
	m.workers = make([]*Worker, workers)
	for i := range m.workers {
		m.workers[i] = newWorker(WorkerID(i), owned[i], assignment, m.mail, &m.horizon,
			cfg.Lookahead, cfg.TraceLevel, m.reports)
	}
	m.nextHeartbeat = cfg.HeartbeatInterval

	logrus.WithFields(logrus.Fields{
		"run_id":    m.runID,
		"hosts":     len(m.hosts),
		"workers":   workers,
		"lookahead": cfg.Lookahead,
		"end_time":  cfg.EndTime,
		"policy":    cfg.AssignmentPolicy,
	}).Infof("hosts per worker: %s", describeAssignment(assignment, workers))
	return nil
}

// loop runs rounds until no event remains before the end time.
func (m *Manager) loop(ctx context.Context) error {
	cfg := m.config
	for m.hasNext && m.globalMin < cfg.EndTime {
		if err := ctx.Err(); err != nil {
			logrus.Warnf("run canceled at barrier after %d rounds", m.rounds)
			return fmt.Errorf("%w after %d rounds: %v", ErrCanceled, m.rounds, err)
		}
		horizon := min(m.globalMin.SaturatingAdd(cfg.Lookahead-1), cfg.EndTime-1)
		m.horizon.Store(int64(horizon))
		m.stats.BeginRound()
		m.rounds++

		reports := m.broadcast(cmdRound)
		err := m.absorb(reports)
		if m.afterRound != nil {
			m.afterRound(m.rounds, reports)
		}
		if err != nil {
			return err
		}
		logrus.Debugf("round %d: horizon %v, next %v, %d queued, delta %d events",
			m.rounds, horizon, m.globalMin, m.pending, m.stats.RoundDelta().Events)
		m.heartbeat(horizon)
	}
	return nil
}

// broadcast sends cmd to every worker and waits for all reports. This is
// the barrier.
func (m *Manager) broadcast(cmd workerCommand) []workerReport {
	for _, w := range m.workers {
		w.cmds <- cmd
	}
	reports := make([]workerReport, len(m.workers))
	arrived := make([]bool, len(m.workers))

	var stall <-chan time.Time
	var timer *time.Timer
	if m.config.StallWarning > 0 {
		timer = time.NewTimer(m.config.StallWarning)
		defer timer.Stop()
		stall = timer.C
	}
	waited := time.Duration(0)
	for n := 0; n < len(m.workers); {
		select {
		case r := <-m.reports:
			reports[r.worker] = r
			arrived[r.worker] = true
			n++
		case <-stall:
			waited += m.config.StallWarning
			var missing []WorkerID
			for i, ok := range arrived {
				if !ok {
					missing = append(missing, WorkerID(i))
				}
			}
			logrus.WithFields(logrus.Fields{
				"command": cmd,
				"round":   m.rounds,
				"waited":  waited,
			}).Warnf("barrier stalled, waiting on workers %v", missing)
			timer.Reset(m.config.StallWarning)
		}
	}
	return reports
}

// absorb merges barrier reports and recomputes the global minimum. The
// first error in worker order is returned.
func (m *Manager) absorb(reports []workerReport) error {
	var firstErr error
	m.globalMin, m.hasNext, m.pending = SimTimeMax, false, 0
	for _, r := range reports {
		for _, snap := range r.snapshots {
			m.stats.Merge(r.worker, snap)
		}
		m.stats.MergeWorker(r.stats)
		m.pending += r.queued
		if r.hasNext && r.minNext < m.globalMin {
			m.globalMin, m.hasNext = r.minNext, true
		}
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
	}
	if firstErr != nil {
		logrus.WithField("run_id", m.runID).Errorf("aborting run: %v", firstErr)
	}
	return firstErr
}

func (m *Manager) heartbeat(horizon SimTime) {
	interval := m.config.HeartbeatInterval
	if interval <= 0 || horizon < m.nextHeartbeat {
		return
	}
	totals := m.stats.Totals()
	dead := 0
	for _, h := range m.hosts {
		if h.dead {
			dead++
		}
	}
	logrus.WithField("run_id", m.runID).Infof(
		"heartbeat: simulated %v, %d rounds, %d events, %s sent, %d dead hosts",
		horizon+1, m.rounds, totals.Events, units.HumanSize(float64(totals.BytesSent)), dead)
	m.nextHeartbeat = (horizon/interval + 1) * interval
}

func (m *Manager) stop() {
	for _, w := range m.workers {
		w.cmds <- cmdStop
		close(w.cmds)
	}
	for _, w := range m.workers {
		<-w.done
	}
}

func (m *Manager) summarize() *Summary {
	s := m.stats.Report()
	s.RunID = m.runID
	s.Workers = len(m.workers)
	s.Hosts = len(m.hosts)
	s.Rounds = m.rounds
	s.EventsPending = uint64(m.pending + m.mail.pending())

	digests := make([]*trace.Digest, len(m.hosts))
	for i, h := range m.hosts {
		digests[i] = h.digest
		s.SimEndTime = max(s.SimEndTime, h.now)
		s.PerHost = append(s.PerHost, HostUsage{ID: h.id, Name: h.name, Usage: m.stats.HostTotals(h.id)})
		if fatal, ok := hostFatal(h); ok {
			s.DeadHosts = append(s.DeadHosts, DeadHost{
				ID:     h.id,
				Name:   h.name,
				Time:   fatal.Time,
				Reason: fatal.Err.Error(),
			})
		}
	}
	s.Fingerprint = formatFingerprint(trace.Fingerprint(digests))

	parts := make([]*trace.SimulationTrace, len(m.workers))
	for i, w := range m.workers {
		parts[i] = w.trace
	}
	s.Trace = trace.Merge(m.config.TraceLevel, parts...)
	return &s
}

// checkLeaks compares events created against events accounted for.
func (m *Manager) checkLeaks(s *Summary) {
	accounted := s.EventsProcessed + s.EventsDiscarded + s.EventsPending
	if s.EventsCreated != accounted {
		logrus.WithFields(logrus.Fields{
			"created":   s.EventsCreated,
			"processed": s.EventsProcessed,
			"discarded": s.EventsDiscarded,
			"pending":   s.EventsPending,
		}).Warn("event leak: created events do not match processed + discarded + pending")
		return
	}
	logrus.Debugf("event accounting ok: %d created", s.EventsCreated)
}
