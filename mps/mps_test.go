package mps

import (
	"fmt"
	"math"
	"math/cmplx"
	"testing"

	"github.com/fumin/tensornet/itensor"
	"github.com/fumin/tensornet/localmpo"
	"github.com/fumin/tensornet/mat"
)

func TestRightNormalizeAll(t *testing.T) {
	t.Parallel()
	sites := SiteIndices(4, 2)
	psi := RandMPS(sites, 3)
	before := InnerProduct(psi, psi)

	psi.RightNormalizeAll()

	after := InnerProduct(psi, psi)
	if abs(after-before) > 1e-3*abs(before) {
		t.Fatalf("%v, expected %v", after, before)
	}

	// Every site except the first must be a right isometry.
	for i := 2; i <= psi.NumSites(); i++ {
		a := psi.Site(i)
		bra := a.Conj().PrimeIndex(psi.LinkIndex(i-1), 1)
		m := itensor.Contract(a, bra)

		d := psi.LinkIndex(i - 1).Dim()
		for r := 0; r < d; r++ {
			for c := 0; c < d; c++ {
				var expected complex64
				if r == c {
					expected = 1
				}
				if abs(m.At(r, c)-expected) > 1e-4 {
					t.Fatalf("site %d (%d, %d): %v, expected %v", i, r, c, m.At(r, c), expected)
				}
			}
		}
	}
}

func TestSplitBond(t *testing.T) {
	t.Parallel()
	for _, dir := range []localmpo.Direction{localmpo.FromLeft, localmpo.FromRight} {
		t.Run(dir.String(), func(t *testing.T) {
			t.Parallel()
			sites := SiteIndices(4, 2)
			psi := RandMPS(sites, 4)
			for b := 1; b <= 3; b++ {
				theta := itensor.Contract(psi.Site(b), psi.Site(b+1))
				psi.splitBond(b, theta, dir)

				got := itensor.Contract(psi.Site(b), psi.Site(b+1)).ToOrder(theta.Inds())
				dims := theta.Inds().Dims()
				digits := make([]int, len(dims))
				for {
					if abs(got.At(digits...)-theta.At(digits...)) > 1e-4 {
						t.Fatalf("bond %d %v: %v, expected %v", b, digits, got.At(digits...), theta.At(digits...))
					}
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
		})
	}
}

func TestIsing(t *testing.T) {
	t.Parallel()
	const n = 3
	const h complex64 = 0.7
	sites := SiteIndices(n, 2)
	mpo := Ising(sites, h)

	// Contract the operator train into a full matrix.
	full := mpo[0]
	for i := 1; i < n; i++ {
		full = itensor.Contract(full, mpo[i])
	}
	order := itensor.IndexSet{}
	for _, s := range sites {
		order = append(order, s.Prime(1))
	}
	for _, s := range sites {
		order = append(order, s)
	}
	full = full.ToOrder(order)

	expected := mat.TransverseFieldIsing(n, h).Dense()
	for r := 0; r < 1<<n; r++ {
		for c := 0; c < 1<<n; c++ {
			digits := append(basisDigits(r, n), basisDigits(c, n)...)
			if abs(full.At(digits...)-expected[r][c]) > 1e-5 {
				t.Fatalf("(%d, %d): %v, expected %v", r, c, full.At(digits...), expected[r][c])
			}
		}
	}
}

func TestExpectation(t *testing.T) {
	t.Parallel()
	const n = 4
	const h complex64 = 0.7
	sites := SiteIndices(n, 2)
	psi := RandMPS(sites, 4)

	// Flatten the state into a full vector.
	v := psi.Site(1)
	for i := 2; i <= n; i++ {
		v = itensor.Contract(v, psi.Site(i))
	}
	v = v.ToOrder(itensor.IndexSet(sites))
	vec := make([]complex64, 1<<n)
	for r := range vec {
		vec[r] = v.At(basisDigits(r, n)...)
	}
	var den complex64
	for _, x := range vec {
		den += conj(x) * x
	}

	ip := InnerProduct(psi, psi)
	if abs(ip-den) > 1e-3*abs(den) {
		t.Fatalf("%v, expected %v", ip, den)
	}

	tests := []struct {
		name  string
		mpo   []*itensor.Tensor
		exact *mat.COO
	}{
		{name: "ising", mpo: Ising(sites, h), exact: mat.TransverseFieldIsing(n, h)},
		{name: "magnetization", mpo: MagnetizationZ(sites), exact: mat.Magnetization(n)},
	}
	for _, test := range tests {
		dense := test.exact.Dense()
		var num complex64
		for r := range vec {
			for c := range vec {
				num += conj(vec[r]) * dense[r][c] * vec[c]
			}
		}
		expected := num / den

		got := psi.Expectation(test.mpo) / ip
		if abs(got-expected) > 1e-3*abs(expected) {
			t.Fatalf("%s: %v, expected %v", test.name, got, expected)
		}
	}
}

func TestSearchGroundState(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n int
		h complex64
	}{
		{n: 4, h: 0.031623},
		{n: 4, h: 1},
		{n: 6, h: 0.5},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d %v", test.n, test.h), func(t *testing.T) {
			t.Parallel()
			sites := SiteIndices(test.n, 2)
			mpo := Ising(sites, test.h)
			psi := RandMPS(sites, 2)

			energy, err := SearchGroundState(mpo, psi)
			if err != nil {
				t.Fatalf("%+v", err)
			}

			exact := real(mat.TransverseFieldIsing(test.n, test.h).Eigen()[0].Val)
			if math.Abs(float64(energy)-exact) > 1e-3*math.Max(math.Abs(exact), 1) {
				t.Fatalf("%f, expected %f", energy, exact)
			}
		})
	}
}

func TestSearchGroundStateStore(t *testing.T) {
	t.Parallel()
	const n = 4
	const h complex64 = 1
	sites := SiteIndices(n, 2)
	mpo := Ising(sites, h)
	psi := RandMPS(sites, 2)

	opt := NewSearchGroundStateOptions().StoreDir(t.TempDir())
	energy, err := SearchGroundState(mpo, psi, opt)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	exact := real(mat.TransverseFieldIsing(n, h).Eigen()[0].Val)
	if math.Abs(float64(energy)-exact) > 1e-3*math.Abs(exact) {
		t.Fatalf("%f, expected %f", energy, exact)
	}
}

func basisDigits(i, n int) []int {
	digits := make([]int, n)
	for j := 0; j < n; j++ {
		digits[j] = (i >> (n - 1 - j)) & 1
	}
	return digits
}

func conj(x complex64) complex64 {
	return complex(real(x), -imag(x))
}

func abs(x complex64) float64 {
	return cmplx.Abs(complex128(x))
}
