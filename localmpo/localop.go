package localmpo

import (
	"fmt"

	"github.com/fumin/tensor"

	"github.com/fumin/tensornet/itensor"
)

// A LocalOp is the local effective operator at an established position: a
// matrix-free view over the two boundary environments and the two exposed
// chain-operator tensors,
//
//	L --- op1 --- op2 --- R
//	|      |       |      |
//
// It is refreshed wholly on every window move and never owns its tensors.
type LocalOp struct {
	op1, op2 *itensor.Tensor
	l, r     *itensor.Tensor

	// bond caches L*op1*op2*R between window moves.
	bond *itensor.Tensor
}

func (o *LocalOp) update(op1, op2, l, r *itensor.Tensor) {
	o.op1, o.op2 = op1, op2
	o.l, o.r = l, r
	o.bond = nil
}

// IsNull reports whether the operator has not been set up by a window move.
func (o *LocalOp) IsNull() bool { return o.op1 == nil }

// BondTensor returns the full contraction of the two environments with the
// two exposed operator tensors. Ket indices are unprimed, bra indices carry
// one prime.
func (o *LocalOp) BondTensor() *itensor.Tensor {
	if o.IsNull() {
		panic("LocalOp is null")
	}
	if o.bond == nil {
		b := o.op1
		if o.l != nil {
			b = itensor.Contract(o.l, b)
		}
		b = itensor.Contract(b, o.op2)
		if o.r != nil {
			b = itensor.Contract(b, o.r)
		}
		o.bond = b
	}
	return o.bond
}

// Apply applies the operator to the two-site wavefunction phi, whose
// indices must be the unprimed ket indices of the bond tensor.
func (o *LocalOp) Apply(phi *itensor.Tensor) *itensor.Tensor {
	return itensor.Contract(o.BondTensor(), phi).NoPrime()
}

// Expect returns the expectation value <phi|H|phi> of a normalized phi.
func (o *LocalOp) Expect(phi *itensor.Tensor) float32 {
	hphi := o.Apply(phi).ToOrder(phi.Inds())
	return real(itensor.Dot(phi.Conj(), hphi))
}

// ketInds returns the unprimed indices of the bond tensor, the index set of
// wavefunctions the operator acts on.
func (o *LocalOp) ketInds() itensor.IndexSet {
	ket := make(itensor.IndexSet, 0)
	for _, i := range o.BondTensor().Inds() {
		if i.PrimeLevel() == 0 {
			ket = append(ket, i)
		}
	}
	return ket
}

// Size returns the dimension of the local problem.
func (o *LocalOp) Size() int { return o.ketInds().Dim() }

// Matrix returns the operator as a square matrix over the flattened ket
// space, row-major in the returned index order. Rows are bra, columns ket,
// so that Matrix @ vec(phi) = vec(Apply(phi)).
func (o *LocalOp) Matrix() (*tensor.Dense, itensor.IndexSet) {
	ket := o.ketInds()
	ordered := make(itensor.IndexSet, 0, 2*len(ket))
	ordered = append(ordered, ket.Prime(1)...)
	ordered = append(ordered, ket...)

	b := o.BondTensor().ToOrder(ordered)
	dim := ket.Dim()
	return b.Dense().Reshape(dim, dim), ket
}

// Diag returns the diagonal of the operator as a tensor over the ket
// indices.
func (o *LocalOp) Diag() *itensor.Tensor {
	h, ket := o.Matrix()
	d := itensor.New(ket...)
	dims := ket.Dims()
	digits := make([]int, len(dims))
	for i := range ket.Dim() {
		flat := i
		for k := len(dims) - 1; k >= 0; k-- {
			digits[k] = flat % dims[k]
			flat /= dims[k]
		}
		d.SetAt(digits, h.At(i, i))
	}
	return d
}

func (o *LocalOp) String() string {
	if o.IsNull() {
		return "LocalOp(null)"
	}
	return fmt.Sprintf("LocalOp(%v, %v)", o.op1.Inds(), o.op2.Inds())
}
