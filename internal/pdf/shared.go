package pdf

import (
	"fmt"
	"sync"

	"sxfit/domain/core"
)

// SharedState is the parameter and normalization storage shared by every
// evaluator taking part in one fit. Parameters are laid out as nsets
// consecutive blocks of stride values; norms hold one value per (set, slot).
// Each evaluator writes only to the slot it claimed, so concurrent writers
// never touch the same element.
type SharedState struct {
	mu      sync.Mutex
	params  []float64
	stride  int
	nsets   int
	norms   []float64
	nslots  int
	claimed []bool
}

// NewSharedState creates storage for nsets parameter sets of stride values
// and nslots normalization slots.
func NewSharedState(stride, nsets, nslots int) (*SharedState, error) {
	if stride < 0 || nsets < 1 || nslots < 0 {
		return nil, core.NewConfigError("shared state", fmt.Sprintf("bad shape stride=%d sets=%d slots=%d", stride, nsets, nslots))
	}
	return &SharedState{
		params:  make([]float64, stride*nsets),
		stride:  stride,
		nsets:   nsets,
		norms:   make([]float64, nsets*nslots),
		nslots:  nslots,
		claimed: make([]bool, nslots),
	}, nil
}

// Stride returns the number of parameters per set.
func (s *SharedState) Stride() int { return s.stride }

// NSets returns the number of parameter sets.
func (s *SharedState) NSets() int { return s.nsets }

// NSlots returns the number of normalization slots.
func (s *SharedState) NSlots() int { return s.nslots }

// SetParameters overwrites parameter set `set` with values.
func (s *SharedState) SetParameters(set int, values []float64) error {
	if set < 0 || set >= s.nsets {
		return core.NewDimensionMismatchError("parameter set index", s.nsets, set)
	}
	if len(values) != s.stride {
		return core.NewDimensionMismatchError("parameter set length", s.stride, len(values))
	}
	copy(s.params[set*s.stride:(set+1)*s.stride], values)
	return nil
}

// Parameters returns a read view of parameter set `set`.
func (s *SharedState) Parameters(set int) []float64 {
	return s.params[set*s.stride : (set+1)*s.stride]
}

// Norm returns the normalization written by the owner of slot for set.
func (s *SharedState) Norm(set, slot int) float64 {
	return s.norms[set*s.nslots+slot]
}

// Slot claims normalization slot i. A slot can be claimed once.
func (s *SharedState) Slot(i int) (*NormSlot, error) {
	if i < 0 || i >= s.nslots {
		return nil, fmt.Errorf("%w: %d of %d", core.ErrSlotRange, i, s.nslots)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed[i] {
		return nil, fmt.Errorf("%w: %d", core.ErrSlotClaimed, i)
	}
	s.claimed[i] = true
	return &NormSlot{state: s, index: i}, nil
}

// NormSlot is write access to a single normalization slot.
type NormSlot struct {
	state *SharedState
	index int
}

// Release returns the slot to the state so it can be claimed again.
func (n *NormSlot) Release() {
	n.state.mu.Lock()
	defer n.state.mu.Unlock()
	n.state.claimed[n.index] = false
}

// Index returns the slot number.
func (n *NormSlot) Index() int { return n.index }

// Write stores v as this slot's normalization for parameter set `set`.
func (n *NormSlot) Write(set int, v float64) error {
	if set < 0 || set >= n.state.nsets {
		return core.NewDimensionMismatchError("parameter set index", n.state.nsets, set)
	}
	n.state.norms[set*n.state.nslots+n.index] = v
	return nil
}
