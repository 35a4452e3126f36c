package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pingApp bounces a message to the next host until until. Host 0 serves
// the first ping at boot.
type pingApp struct {
	hosts int
	until SimTime
}

func (a pingApp) Boot(host HostInfo, now SimTime) ([]FollowUp, error) {
	if host.ID != 0 {
		return nil, nil
	}
	return []FollowUp{{Time: now, Host: 1 % HostID(a.hosts), Action: testAction("ping")}}, nil
}

func (a pingApp) Execute(host HostInfo, now SimTime, _ Action) (ExecutionResult, []FollowUp, error) {
	res := ExecutionResult{WorkUnits: 2, BytesSent: 64, BytesReceived: 64, Syscalls: map[string]uint64{"sendto": 1}}
	if now >= a.until {
		return res, nil, nil
	}
	next := (host.ID + 1) % HostID(a.hosts)
	return res, []FollowUp{{Time: now, Host: next, Action: testAction("ping")}}, nil
}

func (pingApp) Shutdown(HostInfo, SimTime) error { return nil }

type pingEmulator struct{ app pingApp }

func (e pingEmulator) NewApplication(HostInfo, HostSpec) (Application, error) { return e.app, nil }

func pingSpecs(n int) []HostSpec {
	specs := make([]HostSpec, n)
	for i := range specs {
		specs[i] = HostSpec{Name: string(rune('a' + i)), CPU: CPUConfig{Capacity: 1000}}
	}
	return specs
}

func workersJoined(t *testing.T, m *Manager) {
	t.Helper()
	for _, w := range m.workers {
		select {
		case <-w.done:
		default:
			t.Errorf("worker %d still running", w.id)
		}
	}
}

func TestManager_RoundDelta_EqualsSumOfHostSnapshots(t *testing.T) {
	// GIVEN four hosts passing a ping around a ring on two workers
	cfg := Config{WorkerCount: 2, Lookahead: SimTimeMillisecond, EndTime: 100 * SimTimeMillisecond}
	m := NewManager(cfg, fixedLatency(SimTimeMillisecond), pingEmulator{pingApp{hosts: 4, until: 80 * SimTimeMillisecond}}, pingSpecs(4))

	var (
		rounds    int
		allRounds Usage
	)
	m.afterRound = func(round uint64, reports []workerReport) {
		rounds++
		var sum Usage
		for _, r := range reports {
			for _, snap := range r.snapshots {
				sum.Add(snap.Delta)
			}
		}
		// THEN every round's aggregated delta is exactly the sum of the
		// per-host deltas flushed at that barrier
		assert.Equal(t, sum, m.stats.RoundDelta(), "round %d", round)
		allRounds.Add(m.stats.RoundDelta())
	}

	// WHEN the run completes
	s, err := m.Run(context.Background())

	// THEN the rounds add up to the run totals
	require.NoError(t, err)
	require.NotZero(t, rounds)
	assert.Equal(t, s.Totals, allRounds)
	assert.Equal(t, s.EventsProcessed, s.Totals.Events)

	var perHost Usage
	for _, hu := range s.PerHost {
		perHost.Add(hu.Usage)
	}
	assert.Equal(t, s.Totals, perHost)
}

func TestManager_InvariantViolation_AbortsRun(t *testing.T) {
	// GIVEN two hosts on two workers, and a routing table corrupted after the
	// first round so worker 0 believes it owns host 1
	cfg := Config{WorkerCount: 2, Lookahead: SimTimeMillisecond, EndTime: SimTimeSecond}
	m := NewManager(cfg, fixedLatency(SimTimeMillisecond), pingEmulator{pingApp{hosts: 2, until: SimTimeSecond}}, pingSpecs(2))
	m.afterRound = func(round uint64, _ []workerReport) {
		if round == 1 {
			m.workers[0].assignment[1] = 0
		}
	}

	// WHEN host 0 routes its next ping
	s, err := m.Run(context.Background())

	// THEN the run stops with an invalid-assignment invariant violation
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariantViolation))
	assert.True(t, errors.Is(err, ErrInvalidAssignment))
	assert.Equal(t, 3, ExitCode(err))

	// AND the run was still drained and reported
	require.NotNil(t, s)
	assert.Equal(t, StateTerminated, m.State())
	workersJoined(t, m)
	assert.Less(t, s.Rounds, uint64(10))
	assert.Empty(t, s.DeadHosts, "an invariant violation is not a host failure")
}
