package sim

// handoff carries events between workers. Every (src, dst) pair has two
// buffers selected by round parity. During phase p (boot is phase 0, round
// r is phase r) worker src appends only to buffer p%2, and worker dst
// empties only buffer (p-1)%2, which its sources filled in the previous
// phase and no longer touch. The barrier between phases orders the
// accesses, so no buffer is ever used by two goroutines at once.
type handoff struct {
	slots [2][][][]*Event // [parity][src][dst]
}

func newHandoff(workers int) *handoff {
	h := &handoff{}
	for p := range h.slots {
		h.slots[p] = make([][][]*Event, workers)
		for i := range h.slots[p] {
			h.slots[p][i] = make([][]*Event, workers)
		}
	}
	return h
}

// deposit queues ev from worker src for worker dst during phase.
func (h *handoff) deposit(phase uint64, src, dst WorkerID, ev *Event) {
	buf := h.slots[phase%2]
	buf[src][dst] = append(buf[src][dst], ev)
}

// drain removes and returns everything deposited for dst during phase, in
// source worker order. The destination scheduler re-orders events, so the
// order here only matters for reproducible logging.
func (h *handoff) drain(phase uint64, dst WorkerID) []*Event {
	buf := h.slots[phase%2]
	var out []*Event
	for src := range buf {
		slot := buf[src][dst]
		if len(slot) == 0 {
			continue
		}
		out = append(out, slot...)
		buf[src][dst] = slot[:0]
	}
	return out
}

// pending counts events deposited but not yet drained, across both
// parities. Only call it while no worker is running a phase.
func (h *handoff) pending() int {
	n := 0
	for p := range h.slots {
		for src := range h.slots[p] {
			for dst := range h.slots[p][src] {
				n += len(h.slots[p][src][dst])
			}
		}
	}
	return n
}
