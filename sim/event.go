package sim

import "fmt"

// Action is the opaque payload an Event carries to the emulation layer
// (timer fire, packet arrival, signal delivery, ...). The scheduling core
// only reads Kind, for tracing. Replaying the same Action at the same
// simulated time must produce the same follow-ups.
type Action interface {
	Kind() string
}

// Event is one schedulable work item. Events are immutable once created.
//
// Ordering is total: time, then seq, then origin, then host. seq comes from
// the origin host's own counter, so it does not depend on which worker
// thread created the event.
type Event struct {
	time   SimTime
	seq    uint64
	origin HostID
	host   HostID
	action Action
}

// NewEvent creates an event for host at time t. origin is the host whose
// execution produced it and seq the origin's next sequence number.
func NewEvent(t SimTime, seq uint64, origin, host HostID, action Action) *Event {
	return &Event{time: t, seq: seq, origin: origin, host: host, action: action}
}

// Time returns the simulated time the event is due.
func (e *Event) Time() SimTime { return e.time }

// Seq returns the tie-breaking sequence number.
func (e *Event) Seq() uint64 { return e.seq }

// Origin returns the host that produced the event.
func (e *Event) Origin() HostID { return e.origin }

// Host returns the target host.
func (e *Event) Host() HostID { return e.host }

// Action returns the payload.
func (e *Event) Action() Action { return e.action }

// Before reports whether e is dispatched before o.
func (e *Event) Before(o *Event) bool {
	if e.time != o.time {
		return e.time < o.time
	}
	if e.seq != o.seq {
		return e.seq < o.seq
	}
	if e.origin != o.origin {
		return e.origin < o.origin
	}
	return e.host < o.host
}

func (e *Event) String() string {
	kind := "<nil>"
	if e.action != nil {
		kind = e.action.Kind()
	}
	return fmt.Sprintf("event{t=%v seq=%d origin=%d host=%d kind=%s}", e.time, e.seq, e.origin, e.host, kind)
}
