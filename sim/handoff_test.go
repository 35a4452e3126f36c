package sim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoff_Drain_CollectsAllSourcesForDestination(t *testing.T) {
	// GIVEN three workers, two of which mail worker 2 during phase 1
	h := newHandoff(3)
	a := NewEvent(10, 1, 0, 5, nil)
	b := NewEvent(20, 1, 1, 5, nil)
	c := NewEvent(30, 2, 1, 6, nil)
	h.deposit(1, 1, 2, b)
	h.deposit(1, 0, 2, a)
	h.deposit(1, 1, 0, c)
	assert.Equal(t, 3, h.pending())

	// WHEN worker 2 drains phase 1
	got := h.drain(1, 2)

	// THEN it receives its events in source order and nothing else
	assert.Equal(t, []*Event{a, b}, got)
	assert.Equal(t, 1, h.pending())
	assert.Empty(t, h.drain(1, 2))
	assert.Equal(t, []*Event{c}, h.drain(1, 0))
	assert.Equal(t, 0, h.pending())
}

func TestHandoff_Parity_SeparatesConsecutivePhases(t *testing.T) {
	// GIVEN mail deposited in phase 0 and phase 1
	h := newHandoff(2)
	early := NewEvent(10, 1, 0, 1, nil)
	late := NewEvent(20, 2, 0, 1, nil)
	h.deposit(0, 0, 1, early)
	h.deposit(1, 0, 1, late)

	// WHEN the destination drains phase 0
	// THEN only the phase 0 event comes out; phase 1 is still pending
	assert.Equal(t, []*Event{early}, h.drain(0, 1))
	assert.Equal(t, 1, h.pending())

	// AND phase 2 reuses the phase 0 buffer without touching phase 1
	h.deposit(2, 0, 1, early)
	assert.Equal(t, []*Event{late}, h.drain(1, 1))
	assert.Equal(t, []*Event{early}, h.drain(2, 1))
}

// Run with -race: within one phase every worker deposits into the current
// buffer while draining the previous one, which is the access pattern of a
// round.
func TestHandoff_ConcurrentPhases_NoLostEvents(t *testing.T) {
	const (
		workers = 4
		phases  = 50
		perPair = 8
	)
	h := newHandoff(workers)
	received := make([]int, workers)

	for phase := uint64(0); phase <= phases; phase++ {
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(id WorkerID) {
				defer wg.Done()
				if phase > 0 {
					received[id] += len(h.drain(phase-1, id))
				}
				if phase == phases {
					return
				}
				for dst := 0; dst < workers; dst++ {
					if WorkerID(dst) == id {
						continue
					}
					for i := 0; i < perPair; i++ {
						h.deposit(phase, id, WorkerID(dst), NewEvent(SimTime(phase), uint64(i), HostID(id), HostID(dst), nil))
					}
				}
			}(WorkerID(w))
		}
		wg.Wait()
	}

	require.Equal(t, 0, h.pending())
	for w, n := range received {
		assert.Equal(t, phases*perPair*(workers-1), n, "worker %d", w)
	}
}
