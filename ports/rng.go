package ports

import (
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream creates a deterministic generator for a named consumer, so that
	// every signal and every pseudo-experiment draws from its own sequence
	// regardless of scheduling order.
	Stream(name string, experiment int) *rand.Rand
}
