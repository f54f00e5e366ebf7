// Package mps implements matrix product states over labeled tensors.
//
// A state over n sites is stored as a train of site tensors
//
//	A_1 (s_1, l_1), A_2 (l_1, s_2, l_2), ..., A_n (l_{n-1}, s_n)
//
// where s_i are the physical site indices and l_i the virtual links
// connecting neighbouring sites.
// For more details, see Ulrich Schollwock, The density-matrix renormalization
// group in the age of matrix product states.
package mps

import (
	"fmt"
	"math/rand/v2"

	"github.com/fumin/tensor"
	"github.com/fumin/tensornet/itensor"
	"github.com/fumin/tensornet/localmpo"
)

// MPS is a matrix product state.
type MPS struct {
	sites    []*itensor.Tensor
	siteInds []itensor.Index
	linkInds []itensor.Index
}

// SiteIndices returns n fresh physical indices of dimension d.
func SiteIndices(n, d int) []itensor.Index {
	inds := make([]itensor.Index, 0, n)
	for i := 1; i <= n; i++ {
		inds = append(inds, itensor.NewIndex(d, fmt.Sprintf("s%d", i)))
	}
	return inds
}

// RandMPS returns a random matrix product state on the given site indices,
// with link dimensions capped at maxD.
func RandMPS(siteInds []itensor.Index, maxD int) *MPS {
	n := len(siteInds)
	if n < 2 {
		panic(fmt.Sprintf("%d sites", n))
	}

	p := &MPS{siteInds: siteInds}
	p.linkInds = make([]itensor.Index, 0, n-1)
	for i := 1; i <= n-1; i++ {
		p.linkInds = append(p.linkInds, itensor.NewIndex(linkDim(siteInds, i, maxD), fmt.Sprintf("l%d", i)))
	}

	p.sites = make([]*itensor.Tensor, 0, n)
	for i := 1; i <= n; i++ {
		var t *itensor.Tensor
		switch i {
		case 1:
			t = itensor.New(siteInds[0], p.linkInds[0])
		case n:
			t = itensor.New(p.linkInds[n-2], siteInds[n-1])
		default:
			t = itensor.New(p.linkInds[i-2], siteInds[i-1], p.linkInds[i-1])
		}
		fillRand(t)
		p.sites = append(p.sites, t)
	}
	return p
}

// linkDim is the dimension of the i-th link, the lesser of maxD and the
// Hilbert space dimensions to the left and right of the link.
func linkDim(siteInds []itensor.Index, i, maxD int) int {
	left, right := 1, 1
	for j, s := range siteInds {
		if j < i {
			if left <= maxD {
				left *= s.Dim()
			}
		} else if right <= maxD {
			right *= s.Dim()
		}
	}
	d := maxD
	if left < d {
		d = left
	}
	if right < d {
		d = right
	}
	return d
}

func fillRand(t *itensor.Tensor) {
	dims := t.Inds().Dims()
	digits := make([]int, len(dims))
	for {
		t.SetAt(digits, complex(rand.Float32()-0.5, rand.Float32()-0.5))
		j := len(digits) - 1
		for ; j >= 0; j-- {
			digits[j]++
			if digits[j] < dims[j] {
				break
			}
			digits[j] = 0
		}
		if j < 0 {
			break
		}
	}
}

// NumSites returns the number of sites.
func (p *MPS) NumSites() int { return len(p.sites) }

// Site returns the tensor at site i, numbered from 1.
func (p *MPS) Site(i int) *itensor.Tensor { return p.sites[i-1] }

// SiteIndex returns the physical index of site i.
func (p *MPS) SiteIndex(i int) itensor.Index { return p.siteInds[i-1] }

// LinkIndex returns the link index between sites i and i+1.
func (p *MPS) LinkIndex(i int) itensor.Index { return p.linkInds[i-1] }

// ProjectOp contracts env with the site tensor, the operator tensor, and the
// conjugated bra site tensor, growing the environment by one site.
// A nil env starts a new environment at a chain end.
func (p *MPS) ProjectOp(site int, dir localmpo.Direction, env, op *itensor.Tensor) *itensor.Tensor {
	_ = dir
	a := p.sites[site-1]
	ne := a
	if env != nil {
		ne = itensor.Contract(env, a)
	}
	ne = itensor.Contract(ne, op)
	return itensor.Contract(ne, a.Prime(1).Conj())
}

// InnerProduct returns <x|y>. The two states must share site indices.
func InnerProduct(x, y *MPS) complex64 {
	n := len(x.sites)
	if len(y.sites) != n {
		panic(fmt.Sprintf("%d sites, expected %d", len(y.sites), n))
	}
	var f *itensor.Tensor
	for i := 1; i <= n; i++ {
		t := y.sites[i-1]
		if f != nil {
			t = itensor.Contract(f, t)
		}
		// Prime the bra links so that only the site index is contracted.
		bra := x.sites[i-1].Conj()
		if i >= 2 {
			bra = bra.PrimeIndex(x.linkInds[i-2], 1)
		}
		if i <= n-1 {
			bra = bra.PrimeIndex(x.linkInds[i-1], 1)
		}
		if i == n {
			return itensor.Dot(bra, t)
		}
		f = itensor.Contract(bra, t)
	}
	panic("unreachable")
}

// Expectation returns <p|op|p> for a matrix product operator op.
func (p *MPS) Expectation(op []*itensor.Tensor) complex64 {
	n := len(p.sites)
	if len(op) != n {
		panic(fmt.Sprintf("%d operator sites, expected %d", len(op), n))
	}
	var env *itensor.Tensor
	for i := 1; i <= n-1; i++ {
		env = p.ProjectOp(i, localmpo.FromLeft, env, op[i-1])
	}
	a := p.sites[n-1]
	t := itensor.Contract(env, a)
	t = itensor.Contract(t, op[n-1])
	return itensor.Dot(t, a.Prime(1).Conj())
}

// RightNormalizeAll brings every site except the first into right canonical
// form, placing the orthogonality center at site 1.
func (p *MPS) RightNormalizeAll() {
	for i := len(p.sites); i >= 2; i-- {
		p.rightNormalize(i)
	}
}

// rightNormalize right-normalizes site i via an LQ decomposition and absorbs
// the L factor into site i-1.
func (p *MPS) rightNormalize(i int) {
	n := len(p.sites)
	colInds := itensor.IndexSet{p.siteInds[i-1]}
	if i < n {
		colInds = append(colInds, p.linkInds[i-1])
	}
	row := p.linkInds[i-2]

	cmb := itensor.NewCombiner(colInds...)
	m := itensor.Contract(p.sites[i-1], cmb).ToOrder(itensor.IndexSet{row, cmb.CombinedIndex()})

	q := tensor.Zeros(1)
	bufs := [2]*tensor.Dense{tensor.Zeros(1), tensor.Zeros(1)}
	l := lq(q, m.Dense(), bufs)

	newLink := itensor.NewIndex(l.Shape()[1], fmt.Sprintf("l%d", i-1))
	lt := itensor.FromDense(copyDense(l), row, newLink)
	qt := itensor.FromDense(copyDense(q.H()), newLink, cmb.CombinedIndex())

	p.sites[i-1] = itensor.Contract(qt, cmb)
	p.sites[i-2] = itensor.Contract(p.sites[i-2], lt)
	p.linkInds[i-2] = newLink
}

// splitBond factorizes the two-site wavefunction theta over bond b back into
// site tensors b and b+1. For FromLeft the left factor is an isometry and the
// orthogonality center moves to site b+1, and vice versa for FromRight.
func (p *MPS) splitBond(b int, theta *itensor.Tensor, dir localmpo.Direction) {
	n := len(p.sites)
	rowInds := itensor.IndexSet{}
	if b > 1 {
		rowInds = append(rowInds, p.linkInds[b-2])
	}
	rowInds = append(rowInds, p.siteInds[b-1])
	colInds := itensor.IndexSet{p.siteInds[b]}
	if b < n-1 {
		colInds = append(colInds, p.linkInds[b])
	}

	rcmb := itensor.NewCombiner(rowInds...)
	ccmb := itensor.NewCombiner(colInds...)
	m := itensor.Contract(itensor.Contract(theta, rcmb), ccmb).
		ToOrder(itensor.IndexSet{rcmb.CombinedIndex(), ccmb.CombinedIndex()})

	q := tensor.Zeros(1)
	bufs := [2]*tensor.Dense{tensor.Zeros(1), tensor.Zeros(1)}
	var left, right *itensor.Tensor
	var newLink itensor.Index
	switch dir {
	case localmpo.FromLeft:
		r := tensor.QR(q, m.Dense(), bufs)
		newLink = itensor.NewIndex(r.Shape()[0], fmt.Sprintf("l%d", b))
		left = itensor.FromDense(copyDense(q), rcmb.CombinedIndex(), newLink)
		right = itensor.FromDense(copyDense(r), newLink, ccmb.CombinedIndex())
	case localmpo.FromRight:
		l := lq(q, m.Dense(), bufs)
		newLink = itensor.NewIndex(l.Shape()[1], fmt.Sprintf("l%d", b))
		left = itensor.FromDense(copyDense(l), rcmb.CombinedIndex(), newLink)
		right = itensor.FromDense(copyDense(q.H()), newLink, ccmb.CombinedIndex())
	default:
		panic(fmt.Sprintf("direction %v", dir))
	}

	p.sites[b-1] = itensor.Contract(left, rcmb)
	p.sites[b] = itensor.Contract(right, ccmb)
	p.linkInds[b-1] = newLink
}

// lq computes the decomposition a = l*q.H() where q has orthonormal columns.
func lq(q, a *tensor.Dense, bufs [2]*tensor.Dense) *tensor.Dense {
	r := tensor.QR(q, a.H(), bufs)
	return r.H()
}

func copyDense(src *tensor.Dense) *tensor.Dense {
	dst := tensor.Zeros(1)
	dst.Reset(src.Shape()...).Set(make([]int, len(src.Shape())), src)
	return dst
}
