// Command run computes ground states of transverse field Ising chains with
// the density matrix renormalization group, and prints the ground energy and
// magnetization for each configuration as CSV. Small chains are cross checked
// against exact diagonalization.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/fumin/tensornet/mat"
	"github.com/fumin/tensornet/mps"
)

var (
	runDir  = flag.String("d", "", "directory for paging environments to disk, kept in memory if empty")
	maxL    = flag.Int("l", 16, "maximum chain length")
	bondDim = flag.Int("b", 8, "initial bond dimension")
)

// exactMax is the longest chain that is exactly diagonalized for comparison.
const exactMax = 10

type result struct {
	n int
	h complex64

	energy        float32
	magnetization float32
	exact         float64
}

func solve(n int, h complex64) (result, error) {
	res := result{n: n, h: h, exact: math.NaN()}

	sites := mps.SiteIndices(n, 2)
	mpo := mps.Ising(sites, h)
	psi := mps.RandMPS(sites, *bondDim)

	opt := mps.NewSearchGroundStateOptions().StoreDir(*runDir)
	energy, err := mps.SearchGroundState(mpo, psi, opt)
	if err != nil {
		return result{}, errors.Wrap(err, fmt.Sprintf("%d %f", n, real(h)))
	}
	res.energy = energy

	norm := mps.InnerProduct(psi, psi)
	mz := psi.Expectation(mps.MagnetizationZ(sites)) / norm
	res.magnetization = real(mz) / float32(n)

	if n <= exactMax {
		res.exact = real(mat.TransverseFieldIsing(n, h).Eigen()[0].Val)
	}
	return res, nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if *runDir != "" {
		if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
			return errors.Wrap(err, "")
		}
	}

	type config struct {
		n int
		h complex64
	}
	configs := make([]config, 0)
	for n := 4; n <= *maxL; n += 2 {
		for _, hl := range []float64{-1, -0.5, -0.1, 0, 0.1, 0.5, 1} {
			configs = append(configs, config{n: n, h: complex(float32(math.Pow(10, hl)), 0)})
		}
	}

	fmt.Printf("n,h,e0,e0_exact,m\n")
	for _, c := range configs {
		res, err := solve(c.n, c.h)
		if err != nil {
			return errors.Wrap(err, "")
		}
		log.Printf("%d %f", c.n, real(c.h))
		fmt.Printf("%d,%f,%f,%f,%f\n", res.n, real(res.h), res.energy, res.exact, res.magnetization)
	}
	return nil
}
