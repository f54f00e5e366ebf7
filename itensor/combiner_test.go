package itensor

import (
	"fmt"
	"testing"
)

func TestCombineContiguous(t *testing.T) {
	t.Parallel()
	a := NewIndex(2, "a")
	b := NewIndex(3, "b")
	x := NewIndex(4, "x")

	d := arange(New(x, a, b))
	cmb := NewCombiner(a, b)
	cind := cmb.CombinedIndex()

	got := Contract(d, cmb)
	wantInds := IndexSet{x, cind}
	if !indsEqual(got.Inds(), wantInds) {
		t.Fatalf("%v, expected %v", got.Inds(), wantInds)
	}

	// The constituents are contiguous and in combiner order, so no data
	// may move: writes through the original must be visible in the result.
	d.SetAt([]int{1, 1, 2}, 42)
	if v := got.At(1, 1*3+2); v != 42 {
		t.Fatalf("%v, expected shared buffer", v)
	}
}

func TestCombineReordered(t *testing.T) {
	t.Parallel()
	a := NewIndex(2, "a")
	b := NewIndex(3, "b")
	x := NewIndex(4, "x")

	// b precedes a, so combining (a, b) must permute.
	d := arange(New(x, b, a))
	cmb := NewCombiner(a, b)
	cind := cmb.CombinedIndex()

	got := Contract(d, cmb)
	wantInds := IndexSet{cind, x}
	if !indsEqual(got.Inds(), wantInds) {
		t.Fatalf("%v, expected %v", got.Inds(), wantInds)
	}
	for ia := range 2 {
		for ib := range 3 {
			for ix := range 4 {
				want := d.At(ix, ib, ia)
				if v := got.At(ia*3+ib, ix); v != want {
					t.Fatalf("[%d %d %d]: %v, expected %v", ia, ib, ix, v, want)
				}
			}
		}
	}
}

func TestCombineNonContiguous(t *testing.T) {
	t.Parallel()
	a := NewIndex(2, "a")
	b := NewIndex(3, "b")
	x := NewIndex(4, "x")

	d := arange(New(a, x, b))
	cmb := NewCombiner(a, b)
	cind := cmb.CombinedIndex()

	got := Contract(cmb, d)
	wantInds := IndexSet{cind, x}
	if !indsEqual(got.Inds(), wantInds) {
		t.Fatalf("%v, expected %v", got.Inds(), wantInds)
	}
	for ic := range 6 {
		for ix := range 4 {
			want := d.At(ic/3, ix, ic%3)
			if v := got.At(ic, ix); v != want {
				t.Fatalf("[%d %d]: %v, expected %v", ic, ix, v, want)
			}
		}
	}
}

func TestCombineRoundTrip(t *testing.T) {
	t.Parallel()
	a := NewIndex(2, "a")
	b := NewIndex(3, "b")
	x := NewIndex(4, "x")
	y := NewIndex(2, "y")

	tests := []struct {
		name string
		d    *Tensor
	}{
		{name: "contiguous", d: arange(New(y, a, b, x))},
		{name: "reordered", d: arange(New(y, b, a, x))},
		{name: "noncontiguous", d: arange(New(a, x, b, y))},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			cmb := NewCombiner(a, b)

			combined := Contract(test.d, cmb)
			split := Contract(combined, cmb)

			if len(split.Inds()) != len(test.d.Inds()) {
				t.Fatalf("%v, expected %v", split.Inds(), test.d.Inds())
			}
			back := split.ToOrder(test.d.Inds())
			for digits, want := range test.d.Dense().All() {
				if v := back.At(digits...); v != want {
					t.Fatalf("%v: %v, expected %v", digits, v, want)
				}
			}
		})
	}
}

func TestUncombineNoCopy(t *testing.T) {
	t.Parallel()
	a := NewIndex(2, "a")
	b := NewIndex(3, "b")

	d := arange(New(a, b))
	cmb := NewCombiner(a, b)
	combined := Contract(d, cmb)
	split := Contract(combined, cmb)

	d.SetAt([]int{0, 1}, -7i)
	if v := split.At(0, 1); v != -7i {
		t.Fatalf("%v, expected shared buffer", v)
	}
}

func TestCombineMissingIndex(t *testing.T) {
	t.Parallel()
	a := NewIndex(2, "a")
	b := NewIndex(3, "b")
	x := NewIndex(4, "x")

	tests := []struct {
		name string
		d    *Tensor
	}{
		// No constituent at all.
		{name: "none", d: arange(New(x, x.Prime(1)))},
		// First constituent present, second missing: permutation path.
		{name: "second", d: arange(New(x, a))},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			cmb := NewCombiner(a, b)
			if !panics(func() { Contract(test.d, cmb) }) {
				t.Fatalf("expected failure combining %v", test.d.Inds())
			}
		})
	}
}

func TestCombinerStorageBehaviors(t *testing.T) {
	t.Parallel()
	a := NewIndex(2, "a")
	b := NewIndex(3, "b")
	cmb := NewCombiner(a, b)

	if v := cmb.At(); v != 1 {
		t.Fatalf("%v, expected 1", v)
	}
	if !panics(func() { cmb.At(0) }) {
		t.Fatalf("expected failure on non-scalar element access")
	}
	if v := cmb.Norm(); v != 0 {
		t.Fatalf("%v, expected 0", v)
	}
	if c := cmb.Conj(); c.store != cmb.store {
		t.Fatalf("conjugation must be a no-op")
	}
	if cmb.IsComplex() {
		t.Fatalf("combiner is never complex")
	}
	if q := cmb.Div(); q != (QN{}) {
		t.Fatalf("%v, expected neutral divergence", q)
	}
}

// arange fills a dense tensor with distinct values.
func arange(t *Tensor) *Tensor {
	v := complex64(1)
	for digits := range t.Dense().All() {
		t.SetAt(digits, v)
		v += 1 + 0.5i
	}
	return t
}

func indsEqual(a, b IndexSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !a[k].Eq(b[k]) {
			return false
		}
	}
	return true
}

func panics(f func()) (panicked bool) {
	defer func() {
		if recover() != nil {
			panicked = true
		}
	}()
	f()
	return false
}

func ExampleNewCombiner() {
	a := NewIndex(2, "a")
	b := NewIndex(2, "b")
	x := NewIndex(2, "x")

	d := New(a, x, b)
	d.SetAt([]int{1, 0, 1}, 5)

	cmb := NewCombiner(a, b)
	combined := Contract(d, cmb)
	fmt.Println(combined.Rank(), combined.At(1*2+1, 0))
	// Output:
	// 2 (5+0i)
}
