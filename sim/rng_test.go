package sim

import (
	"math"
	"testing"
)

// === PartitionedRNG Tests ===

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// BDD: Same seed+name produces same sequence
	rng1 := NewPartitionedRNG(42)
	rng2 := NewPartitionedRNG(42)

	for i := 0; i < 3; i++ {
		a := rng1.ForSubsystem(SubsystemHost(3)).Float64()
		b := rng2.ForSubsystem(SubsystemHost(3)).Float64()
		if a != b {
			t.Errorf("Value %d: got %v and %v, want identical", i, a, b)
		}
	}
}

func TestPartitionedRNG_SubsystemIsolation(t *testing.T) {
	// BDD: Drawing from host 0 doesn't affect host 1
	rngA := NewPartitionedRNG(42)
	rngB := NewPartitionedRNG(42)

	for i := 0; i < 10; i++ {
		rngA.ForSubsystem(SubsystemHost(0)).Float64()
	}
	for i := 0; i < 5; i++ {
		rngB.ForSubsystem(SubsystemHost(1)).Float64()
	}

	aFirst := rngA.ForSubsystem(SubsystemHost(1)).Float64()
	bSixth := rngB.ForSubsystem(SubsystemHost(1)).Float64()

	fresh := NewPartitionedRNG(42)
	expectedFirst := fresh.ForSubsystem(SubsystemHost(1)).Float64()

	if aFirst != expectedFirst {
		t.Errorf("host 1 stream affected by host 0 draws: got %v, want %v", aFirst, expectedFirst)
	}
	if bSixth == expectedFirst {
		t.Errorf("6th value equals 1st value, stream not advancing")
	}
}

func TestPartitionedRNG_CachesInstance(t *testing.T) {
	rng := NewPartitionedRNG(42)
	if rng.ForSubsystem(SubsystemHost(3)) != rng.ForSubsystem(SubsystemHost(3)) {
		t.Error("ForSubsystem should return the cached instance")
	}
}

func TestPartitionedRNG_Source_RestartsStream(t *testing.T) {
	// GIVEN a cached stream that has already been drawn from
	rng := NewPartitionedRNG(7)
	cached := rng.ForSubsystem(SubsystemHost(2))
	first := cached.Uint64()
	cached.Uint64()

	// WHEN a fresh Source is taken for the same name
	src := rng.Source(SubsystemHost(2))

	// THEN it starts from the beginning of the stream
	if got := src.Uint64(); got != first {
		t.Errorf("Source().Uint64() = %d, want first stream value %d", got, first)
	}
}

func TestPartitionedRNG_SeedsDiffer(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
	}{
		{"adjacent", 1, 2},
		{"zero vs negative", 0, -1},
		{"extremes", math.MaxInt64, math.MinInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			va := NewPartitionedRNG(tt.a).ForSubsystem(SubsystemHost(3)).Uint64()
			vb := NewPartitionedRNG(tt.b).ForSubsystem(SubsystemHost(3)).Uint64()
			if va == vb {
				t.Errorf("seeds %d and %d produced the same first value %d", tt.a, tt.b, va)
			}
		})
	}
}

func TestPartitionedRNG_Seed(t *testing.T) {
	if got := NewPartitionedRNG(-9).Seed(); got != -9 {
		t.Errorf("Seed() = %d, want -9", got)
	}
}

func TestFnv1a64_Deterministic(t *testing.T) {
	if fnv1a64("host_1") != fnv1a64("host_1") {
		t.Error("fnv1a64 should be deterministic")
	}
	if fnv1a64("host_1") == fnv1a64("host_2") {
		t.Error("fnv1a64 should separate adjacent host names")
	}
}

func TestSubsystemHost(t *testing.T) {
	tests := []struct {
		id   HostID
		want string
	}{
		{0, "host_0"},
		{1, "host_1"},
		{99, "host_99"},
	}
	for _, tt := range tests {
		if got := SubsystemHost(tt.id); got != tt.want {
			t.Errorf("SubsystemHost(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
