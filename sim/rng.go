package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey seeds a sweep. A non-zero key makes every series' random
// source a pure function of the key and the series identity, so a sweep can
// be replayed. The zero key requests fresh, non-reproducible sources.
type SimulationKey uint64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Reproducible reports whether the key derives deterministic sources.
func (k SimulationKey) Reproducible() bool {
	return k != 0
}

// === Subsystem names ===

// SubsystemSeries returns the subsystem name for one series of a cell.
func SubsystemSeries(model ModelDescription, series int) string {
	return fmt.Sprintf("series/%s/%d", model, series)
}

// === PartitionedRNG ===

// PartitionedRNG hands out isolated PCG sources per subsystem.
//
// Derivation formula for a non-zero key:
//   - seed1 = key XOR fnv1a64(name)
//   - seed2 = fnv1a64(name)
//
// Thread-safety: NOT thread-safe. Derive every source from one goroutine and
// then hand each to the single goroutine that will draw from it.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.PCG
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.PCG),
	}
}

// ForSubsystem returns the source for the named subsystem.
// The same name always returns the same *rand.PCG instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.PCG {
	if src, ok := p.subsystems[name]; ok {
		return src
	}

	var src *rand.PCG
	if p.key.Reproducible() {
		h := fnv1a64(name)
		src = rand.NewPCG(uint64(p.key)^h, h)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	p.subsystems[name] = src
	return src
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
