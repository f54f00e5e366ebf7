package mat

var identity = COOIdentity(2)

// TransverseFieldIsing returns the full 2^n dimensional Hamiltonian
// -Sum_{i} Z_i*Z_{i+1} - h*Sum_{i} X_i
// of the transverse field Ising chain over n spins.
func TransverseFieldIsing(n int, h complex64) *COO {
	hamiltonian := COOZeros(1<<n, 1<<n)
	buf := M([][]complex64{{0}})

	for i := 0; i < n; i++ {
		if i >= 1 {
			coupling(hamiltonian, n, i-1, i, buf)
		}
		magnetic(hamiltonian, n, i, h, buf)
	}
	return hamiltonian
}

// Magnetization returns the order parameter Sum_{i} Z_i over n spins.
func Magnetization(n int) *COO {
	magnetization := COOZeros(1<<n, 1<<n)
	buf := M([][]complex64{{0}})

	for i := 0; i < n; i++ {
		buf.Scalar(1)
		for j := 0; j < n; j++ {
			switch j {
			case i:
				buf.Kron(M(PauliZ))
			default:
				buf.Kron(identity)
			}
		}
		magnetization.Add(1, buf)
	}
	return magnetization
}

func coupling(hamiltonian *COO, n, i, j int, system *COO) {
	system.Scalar(1)
	for k := 0; k < n; k++ {
		switch {
		case k == i || k == j:
			system.Kron(M(PauliZ))
		default:
			system.Kron(identity)
		}
	}

	hamiltonian.Add(-1, system)
}

func magnetic(hamiltonian *COO, n, i int, h complex64, system *COO) {
	system.Scalar(1)
	for k := 0; k < n; k++ {
		switch k {
		case i:
			system.Kron(M(PauliX))
		default:
			system.Kron(identity)
		}
	}

	hamiltonian.Add(-h, system)
}
