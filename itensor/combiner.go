package itensor

import (
	"fmt"

	"github.com/fumin/tensor"
)

// NewCombiner creates a combiner tensor grouping the given indices.
// Its first index is the fresh composite index whose dimension is the
// product of the constituents; contracting the combiner with a dense tensor
// merges the constituents into the composite, and contracting again splits
// the composite back.
func NewCombiner(inds ...Index) *Tensor {
	if len(inds) == 0 {
		panic("combiner with no indices")
	}
	is := IndexSet(inds)
	cind := NewIndex(is.Dim(), "cmb")
	return &Tensor{
		inds:  append(IndexSet{cind}, is...),
		store: &storage{kind: KindCombiner},
	}
}

// CombinedIndex returns the composite index of a combiner.
func (t *Tensor) CombinedIndex() Index {
	if t.store.kind != KindCombiner {
		panic(fmt.Sprintf("CombinedIndex on %v storage", t.store.kind))
	}
	return t.inds[0]
}

// combine contracts the dense tensor d with a combiner whose index set is
// cis. If d carries the composite index cis[0], the composite is split back
// into the constituents in place of data movement. Otherwise the
// constituents of d are merged into the composite: when they already sit
// contiguously in combiner order this is a free reshape aliasing d's
// buffer, and only the scrambled case pays for a permuted copy.
func combine(d *Tensor, cis IndexSet) *Tensor {
	dis := d.inds
	cind := cis[0]

	if jc := dis.IndexOf(cind); jc >= 0 {
		// Uncombining: replace the composite with the constituents.
		// The composite's layout is defined as the row-major flattening
		// of the constituents, so this is a pure reinterpretation.
		newInds := make(IndexSet, 0, len(dis)+len(cis)-2)
		newInds = append(newInds, dis[:jc]...)
		newInds = append(newInds, cis[1:]...)
		newInds = append(newInds, dis[jc+1:]...)
		return &Tensor{
			inds:  newInds,
			store: &storage{kind: KindDense, data: d.store.data.Reshape(newInds.Dims()...), aliased: true},
		}
	}

	j1 := dis.IndexOf(cis[1])
	if j1 < 0 {
		panic(fmt.Sprintf("no contracted indices in combiner-tensor product\ndense tensor: %v\ncombiner: %v", dis, cis))
	}

	// Check whether cis[1], cis[2], ... sit in d contiguously and in
	// combiner order.
	contig := true
	c := 2
	for j := j1 + 1; c < len(cis) && j < len(dis); j, c = j+1, c+1 {
		if !dis[j].Eq(cis[c]) {
			contig = false
			break
		}
	}
	if c != len(cis) {
		contig = false
	}

	if contig {
		newInds := make(IndexSet, 0, len(dis)+2-len(cis))
		newInds = append(newInds, dis[:j1]...)
		newInds = append(newInds, cind)
		newInds = append(newInds, dis[j1+len(cis)-1:]...)
		return &Tensor{
			inds:  newInds,
			store: &storage{kind: KindDense, data: d.store.data.Reshape(newInds.Dims()...), aliased: true},
		}
	}

	// Scrambled constituents: permute them to the front in combiner order,
	// keeping the remaining axes in their original relative order.
	p := NewPermutation(len(dis))
	ni := 0
	for _, ci := range cis[1:] {
		j := dis.IndexOf(ci)
		if j < 0 {
			panic(fmt.Sprintf("combiner: missing index %v\ndense tensor: %v\ncombiner: %v", ci, dis, cis))
		}
		p.SetFromTo(j, ni)
		ni++
	}
	newInds := make(IndexSet, 0, len(dis)+2-len(cis))
	newInds = append(newInds, cind)
	for j := range dis {
		if p.Dest(j) == unassigned {
			p.SetFromTo(j, ni)
			ni++
			newInds = append(newInds, dis[j])
		}
	}
	if err := p.Validate(); err != nil {
		panic(fmt.Sprintf("%v\ndense tensor: %v\ncombiner: %v", err, dis, cis))
	}

	dst := tensor.Zeros(p.permuteDims(dis.Dims())...)
	resetCopy(dst, d.store.data.Transpose(p.transposeAxes()...))
	return &Tensor{
		inds:  newInds,
		store: &storage{kind: KindDense, data: dst.Reshape(newInds.Dims()...)},
	}
}
