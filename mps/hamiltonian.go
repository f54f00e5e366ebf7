package mps

import (
	"fmt"

	"github.com/fumin/tensornet/itensor"
	"github.com/fumin/tensornet/mat"
)

var (
	zero = [][]complex64{
		{0, 0},
		{0, 0},
	}
	identity = [][]complex64{
		{1, 0},
		{0, 1},
	}
)

// Ising returns the transverse field Ising Hamiltonian
// -Sum_{i} Z_i*Z_{i+1} - h*Sum_{i} X_i
// as a matrix product operator on the given site indices.
func Ising(siteInds []itensor.Index, h complex64) []*itensor.Tensor {
	mul := func(c complex64, x [][]complex64) [][]complex64 {
		y := [][]complex64{{0, 0}, {0, 0}}
		for i := range x {
			for j := range x[i] {
				y[i][j] = c * x[i][j]
			}
		}
		return y
	}
	w := [][][][]complex64{
		{identity, zero, zero},
		{mat.PauliZ, zero, zero},
		{mul(-h, mat.PauliX), mul(-1, mat.PauliZ), identity},
	}
	return newMPO(w, siteInds)
}

// MagnetizationZ returns the order parameter Sum_{i} Z_i as a matrix product
// operator on the given site indices.
func MagnetizationZ(siteInds []itensor.Index) []*itensor.Tensor {
	w := [][][][]complex64{
		{identity, zero},
		{mat.PauliZ, identity},
	}
	return newMPO(w, siteInds)
}

// newMPO builds a matrix product operator from the bulk tensor w, whose
// indices are (left link, right link, bra, ket). The first site carries the
// last row w[-1] and the last site the first column w[:, 0].
func newMPO(w [][][][]complex64, siteInds []itensor.Index) []*itensor.Tensor {
	n := len(siteInds)
	dw := len(w)
	links := make([]itensor.Index, 0, n-1)
	for i := 1; i <= n-1; i++ {
		links = append(links, itensor.NewIndex(dw, fmt.Sprintf("m%d", i)))
	}

	mpo := make([]*itensor.Tensor, 0, n)
	for i := 1; i <= n; i++ {
		bra, ket := siteInds[i-1].Prime(1), siteInds[i-1]
		var t *itensor.Tensor
		switch i {
		case 1:
			t = itensor.New(links[0], bra, ket)
			for b := range dw {
				setBlock(t, []int{b}, w[dw-1][b])
			}
		case n:
			t = itensor.New(links[n-2], bra, ket)
			for a := range dw {
				setBlock(t, []int{a}, w[a][0])
			}
		default:
			t = itensor.New(links[i-2], links[i-1], bra, ket)
			for a := range dw {
				for b := range dw {
					setBlock(t, []int{a, b}, w[a][b])
				}
			}
		}
		mpo = append(mpo, t)
	}
	return mpo
}

// setBlock writes the single site operator x into t at the link digits.
func setBlock(t *itensor.Tensor, digits []int, x [][]complex64) {
	for u := range x {
		for d := range x[u] {
			t.SetAt(append(append([]int{}, digits...), u, d), x[u][d])
		}
	}
}
