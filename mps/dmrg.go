package mps

import (
	"math"

	"github.com/fumin/tensor"
	"github.com/fumin/tensornet/itensor"
	"github.com/fumin/tensornet/localmpo"
	"github.com/pkg/errors"
)

// SearchGroundStateOptions are options for SearchGroundState.
type SearchGroundStateOptions struct {
	maxIterations int
	tol           float32
	storeDir      string
}

// NewSearchGroundStateOptions returns the default options for
// SearchGroundState.
func NewSearchGroundStateOptions() SearchGroundStateOptions {
	opt := SearchGroundStateOptions{}
	opt.maxIterations = 32
	opt.tol = 1e-6
	return opt
}

// MaxIterations sets the maximum number of sweeps.
func (opt SearchGroundStateOptions) MaxIterations(i int) SearchGroundStateOptions {
	opt.maxIterations = i
	return opt
}

// Tol sets the relative energy tolerance between sweeps below which the
// search is considered converged.
func (opt SearchGroundStateOptions) Tol(tol float32) SearchGroundStateOptions {
	opt.tol = tol
	return opt
}

// StoreDir sets the directory holding environments paged out to disk.
// If empty, all environments are kept in memory.
func (opt SearchGroundStateOptions) StoreDir(dir string) SearchGroundStateOptions {
	opt.storeDir = dir
	return opt
}

// SearchGroundState optimizes psi in place towards the ground state of the
// matrix product operator mpo, and returns the ground state energy.
// The optimization sweeps over bonds with the two-site density matrix
// renormalization group algorithm.
func SearchGroundState(mpo []*itensor.Tensor, psi *MPS, options ...SearchGroundStateOptions) (float32, error) {
	opt := NewSearchGroundStateOptions()
	if len(options) == 1 {
		opt = options[0]
	}

	env, err := localmpo.New(mpo, localmpo.NewOptions().StoreDir(opt.storeDir))
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	defer env.Close()

	psi.RightNormalizeAll()
	n := psi.NumSites()

	var energy float32
	prev := float32(math.Inf(1))
	for range opt.maxIterations {
		for b := 1; b <= n-1; b++ {
			if energy, err = optimizeBond(env, psi, b, localmpo.FromLeft); err != nil {
				return 0, errors.Wrap(err, "")
			}
		}
		for b := n - 1; b >= 1; b-- {
			if energy, err = optimizeBond(env, psi, b, localmpo.FromRight); err != nil {
				return 0, errors.Wrap(err, "")
			}
		}

		diff := float64(energy - prev)
		scale := math.Max(math.Abs(float64(energy)), 1)
		if math.Abs(diff) < float64(opt.tol)*scale {
			return energy, nil
		}
		prev = energy
	}
	return 0, errors.Errorf("not converged after %d sweeps, energy %f", opt.maxIterations, energy)
}

// optimizeBond minimizes the energy of the two-site wavefunction over bond b
// and splits the optimum back into the site tensors.
func optimizeBond(env *localmpo.LocalMPO, psi *MPS, b int, dir localmpo.Direction) (float32, error) {
	env.Position(b, psi)
	h, ket := env.Matrix()

	eigvals, eigvecs := tensor.Zeros(1), tensor.Zeros(1)
	var bufs [7]*tensor.Dense
	for i := range bufs {
		bufs[i] = tensor.Zeros(1)
	}
	if err := tensor.Arnoldi(eigvals, eigvecs, h, 1, bufs); err != nil {
		return 0, errors.Wrap(err, "")
	}
	ground := itensor.FromDense(copyDense(eigvecs.Reshape(ket.Dims()...)), ket...)

	nrm := ground.Norm()
	energy := env.Expect(ground) / (nrm * nrm)

	psi.splitBond(b, ground, dir)
	return energy, nil
}
