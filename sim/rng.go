package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// === Subsystem Names ===

// SubsystemHost returns the subsystem name for host N. Each host draws from
// its own stream, so results do not depend on which worker runs the host.
func SubsystemHost(id HostID) string {
	return fmt.Sprintf("host_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG streams per subsystem.
//
// Derivation formula: a PCG source seeded with (masterSeed XOR
// fnv1a64(subsystemName), fnv1a64(subsystemName)).
//
// Thread-safety: NOT thread-safe. Derive every stream from one goroutine
// before handing them out; each returned *rand.Rand then belongs to a
// single host and its worker.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(p.Source(name))
	p.subsystems[name] = rng
	return rng
}

// Source returns a fresh PCG source for name, positioned at the start of
// the subsystem's stream. Use it where a library wants a rand.Source.
func (p *PartitionedRNG) Source(name string) *rand.PCG {
	h := fnv1a64(name)
	return rand.NewPCG(uint64(p.seed)^h, h)
}

// Seed returns the master seed.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
