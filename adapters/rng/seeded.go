// Package rng provides the seeded random streams used for pseudo-data.
package rng

import (
	"math/rand/v2"

	"sxfit/ports"
)

// Seeded implements ports.RNGPort. Each (name, experiment) pair gets its own
// PCG stream derived from one master seed, so results do not depend on the
// order in which consumers run.
type Seeded struct {
	seed uint64
}

var _ ports.RNGPort = (*Seeded)(nil)

// NewSeeded creates a stream source from a master seed
func NewSeeded(seed uint64) *Seeded {
	return &Seeded{seed: seed}
}

// Seed returns the master seed.
func (s *Seeded) Seed() uint64 {
	return s.seed
}

// Stream returns a generator for one named consumer and experiment index.
func (s *Seeded) Stream(name string, experiment int) *rand.Rand {
	return rand.New(rand.NewPCG(s.seed, uint64(hashString(name))<<32|uint64(uint32(experiment))))
}

func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2
	}
	return hash
}
