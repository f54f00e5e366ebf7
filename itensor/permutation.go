package itensor

import "fmt"

// unassigned marks a permutation entry that has not been given a destination.
const unassigned = -1

// A Permutation maps source axis positions to destination axis positions
// over a fixed rank. Entries start out unassigned.
type Permutation []int

// NewPermutation returns a permutation of the given rank with all entries
// unassigned.
func NewPermutation(rank int) Permutation {
	p := make(Permutation, rank)
	for i := range p {
		p[i] = unassigned
	}
	return p
}

// SetFromTo assigns source axis from the destination axis to.
func (p Permutation) SetFromTo(from, to int) { p[from] = to }

// Dest returns the destination of source axis from, or -1 if unassigned.
func (p Permutation) Dest(from int) int { return p[from] }

// Validate checks that p is a bijection on [0, rank).
func (p Permutation) Validate() error {
	seen := make([]bool, len(p))
	for from, to := range p {
		if to < 0 || to >= len(p) {
			return fmt.Errorf("axis %d maps to %d, rank %d", from, to, len(p))
		}
		if seen[to] {
			return fmt.Errorf("axis %d is a duplicate destination", to)
		}
		seen[to] = true
	}
	return nil
}

// permuteDims returns the dimensions after applying p, so that
// out[p.Dest(j)] = dims[j].
func (p Permutation) permuteDims(dims []int) []int {
	out := make([]int, len(p))
	for from, to := range p {
		out[to] = dims[from]
	}
	return out
}

// transposeAxes converts p into the axis list consumed by
// tensor.Dense.Transpose, where the k-th argument names the source axis of
// destination k.
func (p Permutation) transposeAxes() []int {
	axes := make([]int, len(p))
	for from, to := range p {
		axes[to] = from
	}
	return axes
}
