package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAction string

func (a testAction) Kind() string { return string(a) }

func drainAll(s *Scheduler, horizon SimTime) []*Event {
	var out []*Event
	for ev := s.NextDue(horizon); ev != nil; ev = s.NextDue(horizon) {
		out = append(out, ev)
	}
	return out
}

func TestEvent_Before_TotalOrder(t *testing.T) {
	tests := []struct {
		name string
		a, b *Event
	}{
		{"time first", NewEvent(1, 9, 9, 9, nil), NewEvent(2, 0, 0, 0, nil)},
		{"seq breaks time ties", NewEvent(5, 1, 9, 9, nil), NewEvent(5, 2, 0, 0, nil)},
		{"origin breaks seq ties", NewEvent(5, 1, 0, 9, nil), NewEvent(5, 1, 1, 0, nil)},
		{"host breaks origin ties", NewEvent(5, 1, 1, 0, nil), NewEvent(5, 1, 1, 1, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.a.Before(tt.b))
			assert.False(t, tt.b.Before(tt.a))
		})
	}
}

func TestEvent_String_NilAction(t *testing.T) {
	ev := NewEvent(10, 1, 2, 3, nil)
	assert.Contains(t, ev.String(), "kind=<nil>")
	assert.Contains(t, NewEvent(10, 1, 2, 3, testAction("timer")).String(), "kind=timer")
}

func TestScheduler_NextDue_PopsInOrderUpToHorizon(t *testing.T) {
	// GIVEN events for two owned hosts enqueued out of order
	s := NewScheduler(0, []HostID{0, 1})
	for _, ev := range []*Event{
		NewEvent(30, 1, 0, 0, nil),
		NewEvent(10, 2, 1, 1, nil),
		NewEvent(20, 1, 1, 1, nil),
		NewEvent(10, 1, 0, 1, nil),
	} {
		require.NoError(t, s.Enqueue(ev))
	}

	// WHEN draining with horizon 20 (inclusive)
	got := drainAll(s, 20)

	// THEN only events at or before 20 come out, in total order
	require.Len(t, got, 3)
	assert.Equal(t, SimTime(10), got[0].Time())
	assert.Equal(t, uint64(1), got[0].Seq())
	assert.Equal(t, uint64(2), got[1].Seq())
	assert.Equal(t, SimTime(20), got[2].Time())
	assert.Equal(t, 1, s.Len())

	minTime, ok := s.PeekMinTime()
	assert.True(t, ok)
	assert.Equal(t, SimTime(30), minTime)
}

func TestScheduler_NextDue_BeyondHorizon_LeavesQueueUntouched(t *testing.T) {
	s := NewScheduler(0, []HostID{0})
	require.NoError(t, s.Enqueue(NewEvent(100, 1, 0, 0, nil)))

	assert.Nil(t, s.NextDue(99))
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_PeekMinTime_Empty(t *testing.T) {
	s := NewScheduler(0, nil)
	minTime, ok := s.PeekMinTime()
	assert.False(t, ok)
	assert.Equal(t, SimTimeMax, minTime)
	assert.Nil(t, s.NextDue(SimTimeMax))
}

func TestScheduler_Enqueue_ForeignHost_InvalidAssignment(t *testing.T) {
	// GIVEN a scheduler owning host 0 only
	s := NewScheduler(3, []HostID{0})

	// WHEN an event for host 7 is enqueued
	err := s.Enqueue(NewEvent(5, 1, 0, 7, nil))

	// THEN it is rejected as an invariant violation and not queued
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidAssignment))
	assert.True(t, errors.Is(err, ErrInvariantViolation))
	var inv *InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, WorkerID(3), inv.Worker)
	assert.Equal(t, HostID(7), inv.Host)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_DiscardHost_RemovesOnlyThatHost(t *testing.T) {
	s := NewScheduler(0, []HostID{0, 1})
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Enqueue(NewEvent(SimTime(i*10), uint64(i+1), 0, HostID(i%2), nil)))
	}

	removed := s.DiscardHost(0)

	assert.Equal(t, 3, removed)
	got := drainAll(s, SimTimeMax)
	require.Len(t, got, 2)
	for i, ev := range got {
		assert.Equal(t, HostID(1), ev.Host())
		if i > 0 {
			assert.True(t, got[i-1].Before(ev), "heap order must survive DiscardHost")
		}
	}
	assert.Equal(t, 0, s.DiscardHost(5))
}

func TestScheduler_Owns(t *testing.T) {
	s := NewScheduler(0, []HostID{2, 4})
	assert.True(t, s.Owns(2))
	assert.True(t, s.Owns(4))
	assert.False(t, s.Owns(3))
}
