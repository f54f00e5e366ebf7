package itensor

import (
	"bytes"
	"math"
	"testing"
)

func TestContract(t *testing.T) {
	t.Parallel()
	i := NewIndex(2, "i")
	j := NewIndex(3, "j")
	k := NewIndex(2, "k")

	// a_{ij} b_{jk}: an ordinary matrix product, contracted by identity.
	a := arange(New(i, j))
	b := arange(New(j, k))
	got := Contract(a, b)

	wantInds := IndexSet{i, k}
	if !indsEqual(got.Inds(), wantInds) {
		t.Fatalf("%v, expected %v", got.Inds(), wantInds)
	}
	for ii := range 2 {
		for kk := range 2 {
			var want complex64
			for jj := range 3 {
				want += a.At(ii, jj) * b.At(jj, kk)
			}
			if v := got.At(ii, kk); !close64(v, want) {
				t.Fatalf("[%d %d]: %v, expected %v", ii, kk, v, want)
			}
		}
	}
}

func TestContractByPrimeLevel(t *testing.T) {
	t.Parallel()
	i := NewIndex(2, "i")
	j := NewIndex(2, "j")

	// w carries (j', j), phi carries (i, j): only j contracts, never j'.
	w := arange(New(j.Prime(1), j))
	phi := arange(New(i, j))
	got := Contract(w, phi)

	wantInds := IndexSet{j.Prime(1), i}
	if !indsEqual(got.Inds(), wantInds) {
		t.Fatalf("%v, expected %v", got.Inds(), wantInds)
	}

	// Unpriming recovers an index set contractable with phi's.
	unprimed := got.NoPrime()
	if unprimed.Inds().IndexOf(j) != 0 {
		t.Fatalf("%v, expected %v first", unprimed.Inds(), j)
	}
}

func TestDot(t *testing.T) {
	t.Parallel()
	i := NewIndex(2, "i")
	j := NewIndex(3, "j")

	a := arange(New(i, j))
	b := a.ToOrder(IndexSet{j, i})

	var want complex64
	for _, v := range a.Dense().All() {
		want += v * v
	}
	if got := Dot(a, b); !close64(got, want) {
		t.Fatalf("%v, expected %v", got, want)
	}
}

func TestConjNorm(t *testing.T) {
	t.Parallel()
	i := NewIndex(2, "i")
	a := New(i)
	a.SetAt([]int{0}, 3+4i)

	if !a.IsComplex() {
		t.Fatalf("expected complex")
	}
	if v := a.Conj().At(0); v != 3-4i {
		t.Fatalf("%v, expected (3-4i)", v)
	}
	if v := a.Norm(); math.Abs(float64(v)-5) > 1e-6 {
		t.Fatalf("%v, expected 5", v)
	}
}

func TestSetAtCopiesAlias(t *testing.T) {
	t.Parallel()
	i := NewIndex(2, "i")
	j := NewIndex(2, "j")

	a := arange(New(i, j))
	view := a.Prime(1)
	view.SetAt([]int{0, 0}, -1)

	if v := a.At(0, 0); v == -1 {
		t.Fatalf("write through a view leaked into the original")
	}
	if v := view.At(0, 0); v != -1 {
		t.Fatalf("%v, expected -1", v)
	}
}

func TestWrite(t *testing.T) {
	t.Parallel()
	a := NewIndex(2, "a")
	b := NewIndex(3, "b")

	cmb := NewCombiner(a, b)
	buf := &bytes.Buffer{}
	if err := cmb.WriteTo(buf); err != nil {
		t.Fatalf("%+v", err)
	}
	// Type tag, rank, and three int64 fields per index. No payload.
	want := 8 + 8 + 3*3*8
	if buf.Len() != want {
		t.Fatalf("%d, expected %d", buf.Len(), want)
	}

	dense := arange(New(a, b))
	buf.Reset()
	if err := dense.WriteTo(buf); err != nil {
		t.Fatalf("%+v", err)
	}
	want = 8 + 8 + 2*3*8 + 6*8
	if buf.Len() != want {
		t.Fatalf("%d, expected %d", buf.Len(), want)
	}
}

func TestPermutationValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		dest []int
		ok   bool
	}{
		{name: "identity", dest: []int{0, 1, 2}, ok: true},
		{name: "cycle", dest: []int{2, 0, 1}, ok: true},
		{name: "unassigned", dest: []int{0, unassigned, 2}, ok: false},
		{name: "duplicate", dest: []int{0, 0, 2}, ok: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			p := NewPermutation(len(test.dest))
			for from, to := range test.dest {
				p.SetFromTo(from, to)
			}
			if err := p.Validate(); (err == nil) != test.ok {
				t.Fatalf("%v, expected ok=%v", err, test.ok)
			}
		})
	}
}

func close64(a, b complex64) bool {
	d := a - b
	return math.Abs(float64(real(d)))+math.Abs(float64(imag(d))) < 1e-4
}
