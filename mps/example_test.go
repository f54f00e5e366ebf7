package mps_test

import (
	"fmt"
	"log"

	"github.com/fumin/tensornet/mps"
)

func Example() {
	// Create an Ising chain of length n and transverse field strength h.
	const n = 4
	const h = 0.031623
	sites := mps.SiteIndices(n, 2)
	mpo := mps.Ising(sites, h)

	// Search for the ground state.
	const bondDim = 2
	state := mps.RandMPS(sites, bondDim)
	energy, err := mps.SearchGroundState(mpo, state)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	fmt.Printf("Ground energy %.4f\n", energy)

	// Output:
	// Ground energy -3.0015
}
