package sim

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/hostsim/sim/trace"
)

type workerCommand int

const (
	cmdBoot workerCommand = iota
	cmdRound
	cmdDrain
	cmdStop
)

func (c workerCommand) String() string {
	switch c {
	case cmdBoot:
		return "boot"
	case cmdRound:
		return "round"
	case cmdDrain:
		return "drain"
	case cmdStop:
		return "stop"
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// workerReport is what a Worker hands back at the barrier.
type workerReport struct {
	worker WorkerID
	// minNext is the earliest event the worker knows about: its queue head
	// or anything it deposited for another worker this round.
	minNext   SimTime
	hasNext   bool
	queued    int
	snapshots []Snapshot
	stats     WorkerStats
	err       error
}

// Worker executes the events of the hosts assigned to it, one round at a
// time, on its own OS thread.
type Worker struct {
	id         WorkerID
	hosts      []*Host // owned, in id order
	local      map[HostID]*Host
	assignment []WorkerID // host id -> worker, read-only
	sched      *Scheduler

	mail      *handoff
	horizon   *atomic.Int64
	lookahead SimTime

	trace  *trace.SimulationTrace
	round  uint64
	stats  WorkerStats // since the last report
	outMin SimTime

	cmds    chan workerCommand
	reports chan<- workerReport
	done    chan struct{}
}

func newWorker(id WorkerID, hosts []*Host, assignment []WorkerID, mail *handoff,
	horizon *atomic.Int64, lookahead SimTime, level trace.TraceLevel, reports chan<- workerReport) *Worker {
	ids := make([]HostID, len(hosts))
	local := make(map[HostID]*Host, len(hosts))
	for i, h := range hosts {
		ids[i] = h.id
		local[h.id] = h
	}
	return &Worker{
		id:         id,
		hosts:      hosts,
		local:      local,
		assignment: assignment,
		sched:      NewScheduler(id, ids),
		mail:       mail,
		horizon:    horizon,
		lookahead:  lookahead,
		trace:      trace.NewSimulationTrace(level),
		outMin:     SimTimeMax,
		cmds:       make(chan workerCommand, 1),
		reports:    reports,
		done:       make(chan struct{}),
	}
}

// ID returns the worker id.
func (w *Worker) ID() WorkerID { return w.id }

// Hosts returns the hosts owned by the worker, in id order.
func (w *Worker) Hosts() []*Host { return w.hosts }

func (w *Worker) start() {
	go w.loop()
}

// loop blocks on the command channel between rounds; that wait is the
// worker's side of the barrier.
func (w *Worker) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	for cmd := range w.cmds {
		var r workerReport
		switch cmd {
		case cmdBoot:
			r = w.boot()
		case cmdRound:
			r = w.runRound()
		case cmdDrain:
			r = w.drain()
		case cmdStop:
			return
		default:
			panic(fmt.Sprintf("worker %d: unknown command %v", w.id, cmd))
		}
		w.reports <- r
	}
}

// boot starts every owned host's application at time zero.
func (w *Worker) boot() workerReport {
	for _, h := range w.hosts {
		var followUps []FollowUp
		err := guard(func() error {
			var err error
			followUps, err = h.app.Boot(h.info(), 0)
			return err
		})
		if err != nil {
			w.kill(h, 0, fmt.Errorf("boot: %w", err))
			continue
		}
		if err := w.route(h, 0, 0, followUps); err != nil {
			return w.report(err)
		}
	}
	logrus.Debugf("worker %d booted %d hosts, %d events queued", w.id, len(w.hosts), w.sched.Len())
	return w.report(nil)
}

// runRound executes every queued event due at or before the current
// horizon.
func (w *Worker) runRound() workerReport {
	started := time.Now()
	horizon := SimTime(w.horizon.Load())
	w.round++
	w.stats.Rounds++

	if err := w.collectMail(w.round - 1); err != nil {
		return w.report(err)
	}
	for {
		ev := w.sched.NextDue(horizon)
		if ev == nil {
			break
		}
		if err := w.execute(ev, horizon); err != nil {
			w.stats.Busy += time.Since(started)
			return w.report(err)
		}
	}
	w.stats.Busy += time.Since(started)
	return w.report(nil)
}

// drain moves the last round's mail into the queue, shuts down live hosts
// and flushes their final usage.
func (w *Worker) drain() workerReport {
	if err := w.collectMail(w.round); err != nil {
		return w.report(err)
	}
	for _, h := range w.hosts {
		if h.dead {
			continue
		}
		err := guard(func() error { return h.app.Shutdown(h.info(), h.now) })
		if err != nil {
			w.kill(h, h.now, fmt.Errorf("shutdown: %w", err))
		}
	}
	return w.report(nil)
}

// collectMail enqueues the events other workers deposited for w during
// phase.
func (w *Worker) collectMail(phase uint64) error {
	for _, ev := range w.mail.drain(phase, w.id) {
		if err := w.sched.Enqueue(ev); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) execute(ev *Event, horizon SimTime) error {
	now := ev.Time()
	if now > horizon {
		return invariantErrorf(w.id, ev.Host(), now, "event dequeued beyond horizon %v", horizon)
	}
	h := w.local[ev.Host()]
	if h == nil {
		return invariantErrorf(w.id, ev.Host(), now, "queued event for a host the worker does not own")
	}
	if h.dead {
		w.stats.EventsDiscarded++
		return nil
	}
	if now < h.now {
		return invariantErrorf(w.id, h.id, now, "event precedes last executed time %v", h.now)
	}
	h.now = now
	w.stats.EventsProcessed++
	h.usage.Record(ResourceEvents, 1)

	var (
		result    ExecutionResult
		followUps []FollowUp
	)
	err := guard(func() error {
		var err error
		result, followUps, err = h.app.Execute(h.info(), now, ev.Action())
		return err
	})
	if err != nil {
		w.kill(h, now, err)
		return nil
	}

	before := h.cpu.NextAvailable()
	delay := h.cpu.Charge(now, result.WorkUnits)
	after := h.cpu.NextAvailable()
	if after < before {
		return invariantErrorf(w.id, h.id, now, "cpu next-available moved backwards from %v to %v", before, after)
	}
	if after > before {
		h.usage.Record(ResourceCPUTime, uint64(after-max(before, now)))
	}
	h.usage.Record(ResourceBytesSent, result.BytesSent)
	h.usage.Record(ResourceBytesReceived, result.BytesReceived)
	for name, n := range result.Syscalls {
		h.usage.RecordSyscall(name, n)
	}

	record := trace.EventRecord{
		Round:  w.round,
		Worker: int(w.id),
		Host:   uint32(h.id),
		Time:   int64(now),
		Seq:    ev.Seq(),
		Origin: uint32(ev.Origin()),
		Kind:   actionKind(ev.Action()),
		Delay:  int64(delay),
	}
	h.digest.Fold(record)
	w.trace.RecordEvent(record)
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Tracef("[w%d] %v delay=%v followups=%d", w.id, ev, delay, len(followUps))
	}

	return w.route(h, now, delay, followUps)
}

// route turns follow-ups produced by h at now into events. Every follow-up
// is delayed to at least now+delay; cross-host ones also to now+lookahead.
// A follow-up naming an unknown host kills h and drops the whole batch.
func (w *Worker) route(h *Host, now, delay SimTime, followUps []FollowUp) error {
	for _, f := range followUps {
		if int(f.Host) >= len(w.assignment) {
			w.kill(h, now, fmt.Errorf("follow-up %s targets unknown host %d", actionKind(f.Action), f.Host))
			return nil
		}
	}
	ready := now.SaturatingAdd(delay)
	for _, f := range followUps {
		at := max(f.Time, ready)
		if f.Host != h.id {
			if earliest := now.SaturatingAdd(w.lookahead); at < earliest {
				at = earliest
				w.stats.DeliveriesClamped++
			}
		}
		ev := NewEvent(at, h.allocSeq(), h.id, f.Host, f.Action)
		w.stats.EventsCreated++

		dst := w.assignment[f.Host]
		if dst == w.id {
			if err := w.sched.Enqueue(ev); err != nil {
				return err
			}
			continue
		}
		w.mail.deposit(w.round, w.id, dst, ev)
		w.stats.HandoffsSent++
		w.outMin = min(w.outMin, at)
	}
	return nil
}

// kill marks h dead and discards its queued events. The run goes on.
func (w *Worker) kill(h *Host, at SimTime, cause error) {
	fatal := &HostFatalError{Host: h.id, Name: h.name, Time: at, Err: cause}
	h.dead = true
	h.deathErr = fatal
	discarded := w.sched.DiscardHost(h.id)
	w.stats.EventsDiscarded += uint64(discarded)
	w.stats.HostFailures++
	w.trace.RecordFailure(trace.HostFailure{
		Host:   uint32(h.id),
		Name:   h.name,
		Time:   int64(at),
		Reason: cause.Error(),
	})
	logrus.WithFields(logrus.Fields{
		"worker":    w.id,
		"host":      h.name,
		"sim_time":  at,
		"discarded": discarded,
	}).Errorf("host failed: %v", cause)
}

func (w *Worker) report(err error) workerReport {
	r := workerReport{worker: w.id, err: err, queued: w.sched.Len()}
	r.minNext, r.hasNext = w.sched.PeekMinTime()
	if w.outMin < r.minNext {
		r.minNext, r.hasNext = w.outMin, true
	}
	w.outMin = SimTimeMax
	for _, h := range w.hosts {
		if snap := h.usage.Flush(); !snap.Delta.IsZero() {
			r.snapshots = append(r.snapshots, snap)
		}
	}
	r.stats = w.stats
	r.stats.Worker = w.id
	r.stats.Hosts = len(w.hosts)
	w.stats = WorkerStats{}
	return r
}

// guard runs fn and converts an emulator panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("emulator panic: %v", r)
		}
	}()
	return fn()
}

func actionKind(a Action) string {
	if a == nil {
		return "<nil>"
	}
	return a.Kind()
}

// hostFatal extracts the HostFatalError stored on a dead host.
func hostFatal(h *Host) (*HostFatalError, bool) {
	var fatal *HostFatalError
	if !errors.As(h.deathErr, &fatal) {
		return nil, false
	}
	return fatal, true
}
