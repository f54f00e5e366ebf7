// Package itensor implements tensors whose axes carry identity-bearing
// indices, in the spirit of the intelligent tensor formalism.
//
// References:
//   - The ITensor Software Library for Tensor Network Calculations, Matthew Fishman, Steven R. White, E. Miles Stoudenmire
package itensor

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// indexID is the source of index identities.
// Every call to NewIndex draws a fresh value.
var indexID atomic.Uint64

// An Index is an immutable labeled tensor dimension.
// Two Index values compare equal only if they originate from the same
// NewIndex call and carry the same prime level; the dimension alone never
// identifies an Index.
type Index struct {
	id    uint64
	dim   int
	prime int
	name  string
}

// NewIndex creates an index of the given dimension with a fresh identity.
func NewIndex(dim int, name string) Index {
	if dim < 1 {
		panic(fmt.Sprintf("index %q dimension %d", name, dim))
	}
	return Index{id: indexID.Add(1), dim: dim, name: name}
}

// Dim returns the dimension of the index.
func (i Index) Dim() int { return i.dim }

// Name returns the name tag of the index.
func (i Index) Name() string { return i.name }

// PrimeLevel returns the prime level of the index.
func (i Index) PrimeLevel() int { return i.prime }

// Prime returns a copy of the index with its prime level increased by inc.
func (i Index) Prime(inc int) Index {
	i.prime += inc
	return i
}

// NoPrime returns a copy of the index with prime level zero.
func (i Index) NoPrime() Index {
	i.prime = 0
	return i
}

// Eq reports whether j is the same index at the same prime level.
func (i Index) Eq(j Index) bool {
	return i.id == j.id && i.prime == j.prime
}

func (i Index) String() string {
	return fmt.Sprintf("(%s=%d|%d%s)", i.name, i.dim, i.id, strings.Repeat("'", i.prime))
}

// An IndexSet is the ordered sequence of indices of a tensor.
type IndexSet []Index

// IndexOf returns the position of j in s, or -1 if absent.
func (s IndexSet) IndexOf(j Index) int {
	for k, i := range s {
		if i.Eq(j) {
			return k
		}
	}
	return -1
}

// Contains reports whether j is in s.
func (s IndexSet) Contains(j Index) bool { return s.IndexOf(j) >= 0 }

// Dims returns the dimensions of s in order.
func (s IndexSet) Dims() []int {
	dims := make([]int, 0, len(s))
	for _, i := range s {
		dims = append(dims, i.dim)
	}
	return dims
}

// Dim returns the product of all dimensions in s.
func (s IndexSet) Dim() int {
	d := 1
	for _, i := range s {
		d *= i.dim
	}
	return d
}

// Prime returns a copy of s with every index primed by inc.
func (s IndexSet) Prime(inc int) IndexSet {
	p := make(IndexSet, 0, len(s))
	for _, i := range s {
		p = append(p, i.Prime(inc))
	}
	return p
}

// NoPrime returns a copy of s with every prime level reset to zero.
func (s IndexSet) NoPrime() IndexSet {
	p := make(IndexSet, 0, len(s))
	for _, i := range s {
		p = append(p, i.NoPrime())
	}
	return p
}

func (s IndexSet) String() string {
	ss := make([]string, 0, len(s))
	for _, i := range s {
		ss = append(ss, i.String())
	}
	return strings.Join(ss, " ")
}
