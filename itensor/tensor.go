package itensor

import (
	"fmt"
	"io"

	"github.com/fumin/tensor"
)

// A Tensor is a dense buffer or a structural combiner, together with the
// ordered set of indices labeling its axes.
type Tensor struct {
	inds  IndexSet
	store *storage
}

// New creates a dense tensor of zeros over the given indices.
func New(inds ...Index) *Tensor {
	if len(inds) == 0 {
		panic("tensor with no indices")
	}
	is := IndexSet(inds)
	return &Tensor{
		inds:  is,
		store: &storage{kind: KindDense, data: tensor.Zeros(is.Dims()...)},
	}
}

// FromDense wraps an existing dense buffer.
// The buffer's shape must match the index dimensions exactly.
func FromDense(d *tensor.Dense, inds ...Index) *Tensor {
	is := IndexSet(inds)
	shape := d.Shape()
	if len(shape) != len(is) {
		panic(fmt.Sprintf("rank %d buffer, %d indices", len(shape), len(is)))
	}
	for k, dim := range is.Dims() {
		if shape[k] != dim {
			panic(fmt.Sprintf("axis %d: buffer %d, index %v", k, shape[k], is[k]))
		}
	}
	return &Tensor{inds: is, store: &storage{kind: KindDense, data: d}}
}

// Inds returns the index set of t.
func (t *Tensor) Inds() IndexSet { return t.inds }

// Rank returns the number of indices of t.
func (t *Tensor) Rank() int { return len(t.inds) }

// Kind returns the storage kind of t.
func (t *Tensor) Kind() StorageKind { return t.store.kind }

// At returns the element at digits, given in the order of t's index set.
// On combiner storage, At() with no digits is the multiplicative identity
// and anything else is a usage error.
func (t *Tensor) At(digits ...int) complex64 { return t.store.elem(digits) }

// SetAt sets the element at digits. If the buffer is aliased with another
// tensor, it is copied first so the alias stays untouched.
func (t *Tensor) SetAt(digits []int, v complex64) {
	if t.store.kind != KindDense {
		panic(fmt.Sprintf("SetAt on %v storage", t.store.kind))
	}
	if t.store.aliased {
		t.store.data = resetCopy(tensor.Zeros(1), t.store.data)
		t.store.aliased = false
	}
	t.store.data.SetAt(digits, v)
}

// Prime returns a view of t with every index primed by inc.
// The dense buffer is shared.
func (t *Tensor) Prime(inc int) *Tensor {
	return &Tensor{inds: t.inds.Prime(inc), store: t.share()}
}

// NoPrime returns a view of t with all prime levels reset to zero.
func (t *Tensor) NoPrime() *Tensor {
	return &Tensor{inds: t.inds.NoPrime(), store: t.share()}
}

// PrimeIndex returns a view of t with every occurrence of index j primed
// by inc and all other indices untouched.
func (t *Tensor) PrimeIndex(j Index, inc int) *Tensor {
	inds := make(IndexSet, 0, len(t.inds))
	for _, i := range t.inds {
		if i.Eq(j) {
			i = i.Prime(inc)
		}
		inds = append(inds, i)
	}
	return &Tensor{inds: inds, store: t.share()}
}

// Conj returns the complex conjugate of t.
// Conjugation of a combiner is a no-op.
func (t *Tensor) Conj() *Tensor {
	return &Tensor{inds: t.inds, store: t.store.conj()}
}

// Norm returns the Frobenius norm of t.
// A combiner contributes zero norm.
func (t *Tensor) Norm() float32 { return t.store.norm() }

// IsComplex reports whether t has any element with a nonzero imaginary part.
// A combiner is never complex.
func (t *Tensor) IsComplex() bool { return t.store.isComplex() }

// Div returns the quantum number divergence of t, which is always neutral.
func (t *Tensor) Div() QN { return t.store.div() }

// WriteTo serializes t. A combiner writes only its type tag and index set.
func (t *Tensor) WriteTo(w io.Writer) error { return t.store.write(w, t.inds) }

// Copy returns a deep copy of t. Combiners carry no buffer and share.
func (t *Tensor) Copy() *Tensor {
	if t.store.kind == KindCombiner {
		return &Tensor{inds: t.inds, store: t.store}
	}
	return &Tensor{
		inds:  t.inds,
		store: &storage{kind: KindDense, data: resetCopy(tensor.Zeros(1), t.store.data)},
	}
}

// share returns t's storage marked as aliased, so that writes through
// either holder copy first.
func (t *Tensor) share() *storage {
	if t.store.kind == KindCombiner {
		return t.store
	}
	return &storage{kind: KindDense, data: t.store.data, aliased: true}
}

// Contract contracts a and b over every pair of indices with matching
// identity and prime level. The result's indices are a's uncontracted
// indices followed by b's, in their original orders.
//
// If either operand is a combiner, the contraction is the combine operation:
// the dense operand's index group is merged into the composite index, or
// split back if the composite is present. When no data movement is needed
// the result aliases the dense operand's buffer.
func Contract(a, b *Tensor) *Tensor {
	switch {
	case a.store.kind == KindDense && b.store.kind == KindDense:
		return contractDense(a, b)
	case a.store.kind == KindCombiner && b.store.kind == KindDense:
		return combine(b, a.inds)
	case a.store.kind == KindDense && b.store.kind == KindCombiner:
		return combine(a, b.inds)
	default:
		panic("contraction of two combiners")
	}
}

func contractDense(a, b *Tensor) *Tensor {
	axes := make([][2]int, 0, len(a.inds))
	resInds := make(IndexSet, 0, len(a.inds)+len(b.inds))
	for ai, ia := range a.inds {
		bi := b.inds.IndexOf(ia)
		if bi >= 0 {
			axes = append(axes, [2]int{ai, bi})
		} else {
			resInds = append(resInds, ia)
		}
	}
	for _, ib := range b.inds {
		if !a.inds.Contains(ib) {
			resInds = append(resInds, ib)
		}
	}
	if len(axes) == 0 {
		panic(fmt.Sprintf("no common indices: %v and %v", a.inds, b.inds))
	}
	if len(resInds) == 0 {
		panic(fmt.Sprintf("full contraction of %v, use Dot", a.inds))
	}

	d := tensor.Contract(tensor.Zeros(1), a.store.data, b.store.data, axes)
	return &Tensor{inds: resInds, store: &storage{kind: KindDense, data: d}}
}

// Dot fully contracts a and b, which must carry the same indices in any
// order, and returns the resulting scalar. No conjugation is applied.
func Dot(a, b *Tensor) complex64 {
	if len(a.inds) != len(b.inds) {
		panic(fmt.Sprintf("%v and %v", a.inds, b.inds))
	}
	aa := a
	if a.store.aliased {
		aa = a.Copy()
	}
	bb := b.ToOrder(a.inds)
	var sum complex64
	for digits, v := range aa.store.data.All() {
		sum += v * bb.store.data.At(digits...)
	}
	return sum
}

// ToOrder returns a copy of t whose indices appear in the given order.
// The order must be a rearrangement of t's index set.
func (t *Tensor) ToOrder(inds IndexSet) *Tensor {
	if t.store.kind != KindDense {
		panic(fmt.Sprintf("ToOrder on %v storage", t.store.kind))
	}
	p := NewPermutation(len(t.inds))
	for to, i := range inds {
		from := t.inds.IndexOf(i)
		if from < 0 {
			panic(fmt.Sprintf("index %v not in %v", i, t.inds))
		}
		p.SetFromTo(from, to)
	}
	if err := p.Validate(); err != nil {
		panic(fmt.Sprintf("%v: %v of %v", err, inds, t.inds))
	}

	src := t.store.data
	if t.store.aliased {
		src = resetCopy(tensor.Zeros(1), src)
	}
	dst := tensor.Zeros(p.permuteDims(t.inds.Dims())...)
	resetCopy(dst, src.Transpose(p.transposeAxes()...))
	out := make(IndexSet, len(inds))
	copy(out, inds)
	return &Tensor{inds: out, store: &storage{kind: KindDense, data: dst}}
}

// Dense returns the underlying dense buffer of t.
// The buffer is shared; use Copy for an independent tensor.
func (t *Tensor) Dense() *tensor.Dense {
	if t.store.kind != KindDense {
		panic(fmt.Sprintf("Dense on %v storage", t.store.kind))
	}
	return t.store.data
}

func (t *Tensor) String() string {
	return fmt.Sprintf("%v %v", t.store.kind, t.inds)
}

func resetCopy(dst, src *tensor.Dense) *tensor.Dense {
	shape := src.Shape()
	zeroDigit := make([]int, len(shape))
	dst.Reset(shape...).Set(zeroDigit, src)
	return dst
}
