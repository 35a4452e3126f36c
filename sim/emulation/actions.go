package emulation

import "github.com/inference-sim/hostsim/sim"

// Packet is a datagram arriving at Dst.
type Packet struct {
	Src    sim.HostID
	Dst    sim.HostID
	Size   uint64
	Seq    uint64
	SentAt sim.SimTime
	Reply  bool
}

// Kind implements sim.Action.
func (p Packet) Kind() string {
	if p.Reply {
		return "packet.reply"
	}
	return "packet"
}

// Timer is a host-local timer expiry.
type Timer struct {
	Name string
}

// Kind implements sim.Action.
func (t Timer) Kind() string { return "timer." + t.Name }

const (
	timerSend  = "send"
	timerCrash = "crash"
)
