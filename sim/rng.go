package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible replication. The same key and the
// same line model always produce identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// ReplicationKey derives the key of replication i (0-based) from a base seed.
// Each replication advances the seed by one.
func ReplicationKey(baseSeed int64, i int) SimulationKey {
	return SimulationKey(baseSeed + int64(i) + 1)
}

// SubsystemStation returns the stream name for station id. Stations draw
// their interarrival and phase durations from it, so adding a station never
// shifts the draws of another one.
func SubsystemStation(id string) string {
	return fmt.Sprintf("station_%s", id)
}

// PartitionedRNG hands out one independent *rand.Rand per named stream.
// A stream is seeded with key XOR fnv1a64(name).
//
// Not safe for concurrent use; the engine runs on a single goroutine.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream called name, creating it on first use.
// Repeated calls return the same instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	rng, ok := p.streams[name]
	if !ok {
		rng = rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
		p.streams[name] = rng
	}
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
