package sim

import (
	"container/heap"
	"fmt"
)

// eventHeap is a min-heap of events under Event.Before.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventHeap []*Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].Before(h[j]) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Scheduler is the per-worker time-ordered queue holding the events of
// every host the worker owns. It is not safe for concurrent use; only the
// owning worker touches it during a round.
type Scheduler struct {
	worker WorkerID
	owned  map[HostID]struct{}
	queue  eventHeap
}

// NewScheduler creates an empty Scheduler owning the given hosts.
func NewScheduler(worker WorkerID, hosts []HostID) *Scheduler {
	owned := make(map[HostID]struct{}, len(hosts))
	for _, id := range hosts {
		owned[id] = struct{}{}
	}
	s := &Scheduler{
		worker: worker,
		owned:  owned,
		queue:  make(eventHeap, 0),
	}
	heap.Init(&s.queue)
	return s
}

// Owns reports whether host is assigned to this Scheduler's worker.
func (s *Scheduler) Owns(host HostID) bool {
	_, ok := s.owned[host]
	return ok
}

// Enqueue inserts ev. Events for hosts owned by another worker must travel
// through the handoff mailboxes; inserting them here is ErrInvalidAssignment.
func (s *Scheduler) Enqueue(ev *Event) error {
	if !s.Owns(ev.Host()) {
		return &InvariantError{
			Worker: s.worker,
			Host:   ev.Host(),
			Time:   ev.Time(),
			Reason: fmt.Sprintf("host %d is not owned by worker %d", ev.Host(), s.worker),
			Err:    ErrInvalidAssignment,
		}
	}
	heap.Push(&s.queue, ev)
	return nil
}

// NextDue pops and returns the minimum event if it is due at or before
// horizon. Otherwise it returns nil and leaves the queue untouched.
func (s *Scheduler) NextDue(horizon SimTime) *Event {
	if len(s.queue) == 0 || s.queue[0].Time() > horizon {
		return nil
	}
	return heap.Pop(&s.queue).(*Event)
}

// PeekMinTime returns the time of the earliest queued event.
func (s *Scheduler) PeekMinTime() (SimTime, bool) {
	if len(s.queue) == 0 {
		return SimTimeMax, false
	}
	return s.queue[0].Time(), true
}

// Len returns the number of queued events.
func (s *Scheduler) Len() int {
	return len(s.queue)
}

// DiscardHost drops every queued event targeting host and returns how many
// were removed.
func (s *Scheduler) DiscardHost(host HostID) int {
	kept := s.queue[:0]
	removed := 0
	for _, ev := range s.queue {
		if ev.Host() == host {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	for i := len(kept); i < len(s.queue); i++ {
		s.queue[i] = nil
	}
	s.queue = kept
	if removed > 0 {
		heap.Init(&s.queue)
	}
	return removed
}
