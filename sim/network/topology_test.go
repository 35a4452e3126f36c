package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/hostsim/sim"
)

const ms = sim.SimTimeMillisecond

var names = []string{"client", "server", "cache"}

func TestNew_MinLatency_IncludesLinks(t *testing.T) {
	// GIVEN a 10ms default and one faster link
	topo, err := New(Config{
		DefaultLatency: 10 * ms,
		Links:          []Link{{A: "client", B: "cache", Latency: 2 * ms}},
	}, names)
	require.NoError(t, err)

	// THEN the declared minimum is the fastest path
	assert.Equal(t, 2*ms, topo.MinLatency())
	assert.Equal(t, 2*ms, topo.Latency(0, 2))
	assert.Equal(t, 2*ms, topo.Latency(2, 0), "links are symmetric")
	assert.Equal(t, 10*ms, topo.Latency(0, 1))
	assert.Equal(t, sim.SimTime(0), topo.Latency(1, 1))
}

func TestTopology_TransferTime_AddsSerialization(t *testing.T) {
	// GIVEN 1MB/s by default and an unlimited link
	topo, err := New(Config{
		DefaultLatency:   ms,
		DefaultBandwidth: "1MB",
		Links:            []Link{{A: "server", B: "cache", Latency: ms, Bandwidth: "1GB"}},
	}, names)
	require.NoError(t, err)

	// 1000 bytes at 1e6 B/s = 1ms on the wire
	assert.Equal(t, 2*ms, topo.TransferTime(0, 1, 1000))
	assert.Equal(t, ms, topo.TransferTime(0, 1, 0))
	// 1000 bytes at 1e9 B/s = 1us
	assert.Equal(t, ms+sim.SimTimeMicrosecond, topo.TransferTime(1, 2, 1000))
	assert.Equal(t, sim.SimTime(0), topo.TransferTime(2, 2, 1000))
}

func TestTopology_TransferTime_UnlimitedBandwidth(t *testing.T) {
	topo, err := New(Config{DefaultLatency: 3 * ms}, names)
	require.NoError(t, err)
	assert.Equal(t, 3*ms, topo.TransferTime(0, 1, 1<<30))
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero default latency", Config{}},
		{"bad default bandwidth", Config{DefaultLatency: ms, DefaultBandwidth: "fast"}},
		{"unknown host", Config{DefaultLatency: ms, Links: []Link{{A: "client", B: "nope", Latency: ms}}}},
		{"self link", Config{DefaultLatency: ms, Links: []Link{{A: "client", B: "client", Latency: ms}}}},
		{"zero link latency", Config{DefaultLatency: ms, Links: []Link{{A: "client", B: "server"}}}},
		{"duplicate link", Config{DefaultLatency: ms, Links: []Link{
			{A: "client", B: "server", Latency: ms},
			{A: "server", B: "client", Latency: 2 * ms},
		}}},
		{"bad link bandwidth", Config{DefaultLatency: ms, Links: []Link{{A: "client", B: "server", Latency: ms, Bandwidth: "-5MB"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, names)
			assert.Error(t, err)
		})
	}
}

func TestTopology_ImplementsLatencyModel(t *testing.T) {
	var _ sim.LatencyModel = (*Topology)(nil)
}
