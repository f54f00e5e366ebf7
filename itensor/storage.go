package itensor

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
)

// StorageKind tags the closed set of storage variants.
type StorageKind int

const (
	// KindDense is numeric storage backed by a tensor.Dense buffer.
	KindDense StorageKind = iota
	// KindCombiner is structural storage carrying no buffer of its own.
	// Its identity is entirely the index set of the enclosing tensor.
	KindCombiner
)

func (k StorageKind) String() string {
	switch k {
	case KindDense:
		return "Dense"
	case KindCombiner:
		return "Combiner"
	default:
		return fmt.Sprintf("StorageKind(%d)", int(k))
	}
}

// QN is the quantum number divergence of a tensor.
// Only the trivial, neutral value is supported.
type QN struct{}

// storage is the payload of a Tensor. The variant set is closed; every
// operation dispatches on the kind tag.
type storage struct {
	kind StorageKind

	// data is the dense buffer, nil for KindCombiner.
	data *tensor.Dense
	// aliased records that data is shared with another tensor, as happens
	// after a no-copy combine. Writes must copy first.
	aliased bool
}

// elem returns the element at digits in the order of inds.
// For combiner storage, an empty digit list yields the multiplicative
// identity and anything else is a usage error.
func (s *storage) elem(digits []int) complex64 {
	switch s.kind {
	case KindCombiner:
		if len(digits) != 0 {
			panic(fmt.Sprintf("element access with %d indices not defined for non-scalar combiner storage", len(digits)))
		}
		return 1
	default:
		return s.data.At(digits...)
	}
}

// norm returns the Frobenius norm contribution of the storage.
func (s *storage) norm() float32 {
	switch s.kind {
	case KindCombiner:
		return 0
	default:
		var sum float64
		for _, v := range s.data.All() {
			re, im := float64(real(v)), float64(imag(v))
			sum += re*re + im*im
		}
		return float32(math.Sqrt(sum))
	}
}

// conj returns storage holding the complex conjugate.
// Conjugation is a no-op on combiner storage and eager on dense storage.
func (s *storage) conj() *storage {
	switch s.kind {
	case KindCombiner:
		return s
	default:
		d := tensor.Zeros(1)
		shape := s.data.Shape()
		d.Reset(shape...).Set(make([]int, len(shape)), s.data.Conj())
		return &storage{kind: KindDense, data: d}
	}
}

// isComplex reports whether the storage holds any nonzero imaginary part.
func (s *storage) isComplex() bool {
	switch s.kind {
	case KindCombiner:
		return false
	default:
		for _, v := range s.data.All() {
			if imag(v) != 0 {
				return true
			}
		}
		return false
	}
}

// div returns the quantum number divergence, which is always neutral.
func (s *storage) div() QN { return QN{} }

// write serializes the storage type tag, the index set, and for dense
// storage the payload. Combiner storage writes no payload.
func (s *storage) write(w io.Writer, inds IndexSet) error {
	if err := binary.Write(w, binary.LittleEndian, int64(s.kind)); err != nil {
		return errors.Wrap(err, "")
	}
	if err := binary.Write(w, binary.LittleEndian, int64(len(inds))); err != nil {
		return errors.Wrap(err, "")
	}
	for _, i := range inds {
		for _, v := range []int64{int64(i.id), int64(i.dim), int64(i.prime)} {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return errors.Wrap(err, "")
			}
		}
	}
	if s.kind == KindCombiner {
		return nil
	}
	for _, v := range s.data.All() {
		if err := binary.Write(w, binary.LittleEndian, []float32{real(v), imag(v)}); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}
