package emulation

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inference-sim/hostsim/sim"
)

type guest interface {
	sim.Application
	report() HostStats
}

// base is the state every guest shares: identity, packet size, CPU cost
// per event and counters.
type base struct {
	net   Network
	id    sim.HostID
	size  uint64
	work  int64
	stats HostStats
}

func (b *base) report() HostStats { return b.stats }

func (b *base) Shutdown(sim.HostInfo, sim.SimTime) error { return nil }

func (b *base) send(now sim.SimTime, dst sim.HostID, size, seq uint64, sentAt sim.SimTime, reply bool) sim.FollowUp {
	p := Packet{Src: b.id, Dst: dst, Size: size, Seq: seq, SentAt: sentAt, Reply: reply}
	b.stats.PacketsSent++
	b.stats.BytesSent += size
	return sim.FollowUp{
		Time:   now.SaturatingAdd(b.net.TransferTime(b.id, dst, size)),
		Host:   dst,
		Action: p,
	}
}

func (b *base) receive(p Packet) {
	b.stats.PacketsRecv++
	b.stats.BytesReceived += p.Size
}

// result builds the resource record of one event.
func (b *base) result(sent, received uint64, syscalls ...string) sim.ExecutionResult {
	res := sim.ExecutionResult{
		WorkUnits:     b.work,
		BytesSent:     sent,
		BytesReceived: received,
	}
	if len(syscalls) > 0 {
		res.Syscalls = make(map[string]uint64, len(syscalls))
		for _, name := range syscalls {
			res.Syscalls[name]++
		}
	}
	return res
}

func unexpected(action sim.Action) error {
	if action == nil {
		return fmt.Errorf("unexpected nil action")
	}
	return fmt.Errorf("unexpected action %T (%s)", action, action.Kind())
}

// idle absorbs whatever it receives.
type idle struct {
	base
}

func (a *idle) Boot(sim.HostInfo, sim.SimTime) ([]sim.FollowUp, error) { return nil, nil }

func (a *idle) Execute(_ sim.HostInfo, _ sim.SimTime, action sim.Action) (sim.ExecutionResult, []sim.FollowUp, error) {
	switch act := action.(type) {
	case Packet:
		a.receive(act)
		return a.result(0, act.Size, "recvfrom"), nil, nil
	case Timer:
		return a.result(0, 0), nil, nil
	}
	return sim.ExecutionResult{}, nil, unexpected(action)
}

// echoServer answers every request with a reply of the same size.
type echoServer struct {
	base
}

func (a *echoServer) Boot(sim.HostInfo, sim.SimTime) ([]sim.FollowUp, error) { return nil, nil }

func (a *echoServer) Execute(_ sim.HostInfo, now sim.SimTime, action sim.Action) (sim.ExecutionResult, []sim.FollowUp, error) {
	p, ok := action.(Packet)
	if !ok {
		return sim.ExecutionResult{}, nil, unexpected(action)
	}
	a.receive(p)
	if p.Reply {
		return a.result(0, p.Size, "recvfrom"), nil, nil
	}
	reply := a.send(now, p.Src, p.Size, p.Seq, p.SentAt, true)
	return a.result(p.Size, p.Size, "recvfrom", "sendto"), []sim.FollowUp{reply}, nil
}

// echoClient sends a request every interval and measures round trips.
type echoClient struct {
	base
	peer     sim.HostID
	interval sim.SimTime
	count    uint64
	seq      uint64
}

func (a *echoClient) Boot(_ sim.HostInfo, now sim.SimTime) ([]sim.FollowUp, error) {
	return []sim.FollowUp{a.nextTimer(now)}, nil
}

func (a *echoClient) nextTimer(now sim.SimTime) sim.FollowUp {
	return sim.FollowUp{Time: now.SaturatingAdd(a.interval), Host: a.id, Action: Timer{Name: timerSend}}
}

func (a *echoClient) Execute(_ sim.HostInfo, now sim.SimTime, action sim.Action) (sim.ExecutionResult, []sim.FollowUp, error) {
	switch act := action.(type) {
	case Timer:
		if act.Name != timerSend {
			return sim.ExecutionResult{}, nil, unexpected(action)
		}
		a.seq++
		out := []sim.FollowUp{a.send(now, a.peer, a.size, a.seq, now, false)}
		if a.count == 0 || a.seq < a.count {
			out = append(out, a.nextTimer(now))
		}
		return a.result(a.size, 0, "sendto", "clock_nanosleep"), out, nil
	case Packet:
		a.receive(act)
		if act.Reply {
			a.stats.Replies++
			a.stats.RTTTotal += now - act.SentAt
		}
		return a.result(0, act.Size, "recvfrom"), nil, nil
	}
	return sim.ExecutionResult{}, nil, unexpected(action)
}

// gossip wakes after exponentially distributed think times and sends a
// Poisson-sized burst to random peers.
type gossip struct {
	base
	peers  []sim.HostID
	fanout float64
	think  distuv.Exponential
	burst  distuv.Poisson
	pick   *rand.Rand
	seq    uint64
}

func newGossip(b base, peers []sim.HostID, interval sim.SimTime, fanout float64, rng *sim.PartitionedRNG, id sim.HostID) *gossip {
	stream := sim.SubsystemHost(id)
	return &gossip{
		base:   b,
		peers:  peers,
		fanout: fanout,
		think:  distuv.Exponential{Rate: 1 / interval.Seconds(), Src: rng.Source(stream + "/think")},
		burst:  distuv.Poisson{Lambda: fanout, Src: rng.Source(stream + "/burst")},
		pick:   rng.ForSubsystem(stream + "/peers"),
	}
}

func (a *gossip) Boot(_ sim.HostInfo, now sim.SimTime) ([]sim.FollowUp, error) {
	if len(a.peers) == 0 {
		return nil, nil
	}
	return []sim.FollowUp{a.wake(now)}, nil
}

func (a *gossip) wake(now sim.SimTime) sim.FollowUp {
	wait := max(sim.SimTime(math.Ceil(a.think.Rand()*float64(sim.SimTimeSecond))), 1)
	return sim.FollowUp{Time: now.SaturatingAdd(wait), Host: a.id, Action: Timer{Name: timerSend}}
}

func (a *gossip) burstSize() int {
	if a.fanout <= 0 {
		return 1
	}
	return max(int(a.burst.Rand()), 1)
}

func (a *gossip) Execute(_ sim.HostInfo, now sim.SimTime, action sim.Action) (sim.ExecutionResult, []sim.FollowUp, error) {
	switch act := action.(type) {
	case Timer:
		if act.Name != timerSend {
			return sim.ExecutionResult{}, nil, unexpected(action)
		}
		n := a.burstSize()
		out := make([]sim.FollowUp, 0, n+1)
		syscalls := []string{"clock_nanosleep"}
		for i := 0; i < n; i++ {
			a.seq++
			peer := a.peers[a.pick.IntN(len(a.peers))]
			out = append(out, a.send(now, peer, a.size, a.seq, now, false))
			syscalls = append(syscalls, "sendto")
		}
		out = append(out, a.wake(now))
		return a.result(uint64(n)*a.size, 0, syscalls...), out, nil
	case Packet:
		a.receive(act)
		return a.result(0, act.Size, "recvfrom"), nil, nil
	}
	return sim.ExecutionResult{}, nil, unexpected(action)
}

// crashing makes its host fail at a fixed simulated time.
type crashing struct {
	sim.Application
	at sim.SimTime
}

func (c *crashing) Boot(host sim.HostInfo, now sim.SimTime) ([]sim.FollowUp, error) {
	out, err := c.Application.Boot(host, now)
	if err != nil {
		return nil, err
	}
	return append(out, sim.FollowUp{Time: c.at, Host: host.ID, Action: Timer{Name: timerCrash}}), nil
}

func (c *crashing) Execute(host sim.HostInfo, now sim.SimTime, action sim.Action) (sim.ExecutionResult, []sim.FollowUp, error) {
	if t, ok := action.(Timer); ok && t.Name == timerCrash {
		return sim.ExecutionResult{}, nil, fmt.Errorf("injected crash at %v", now)
	}
	return c.Application.Execute(host, now, action)
}
