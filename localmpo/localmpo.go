// Package localmpo projects a matrix product operator into the reduced
// Hilbert space spanned by a window of sites of a matrix product state.
//
//	.----...---                ----...--.
//	|  |     |      |      |     |      |
//	W1-W2-..Wb-1 - Wb - Wb+1 -- Wb+2..-WN
//	|  |     |      |      |     |      |
//	'----...---                ----...--'
//
// The W's are the site tensors of the chain operator. After Position(b, psi)
// the operator tensors at sites b..b+numCenter-1 are exposed, and everything
// to either side is absorbed into two cached environment tensors. A sweep
// that moves b one bond at a time therefore costs one site absorption per
// step instead of a contraction over the whole chain.
//
// References:
//   - The density-matrix renormalization group in the age of matrix product states, Ulrich Schollwock, Section 6.3.
package localmpo

import (
	"fmt"
	"path/filepath"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"github.com/fumin/tensornet/itensor"
)

// Direction tells which side of the window an absorption extends.
type Direction int

const (
	// FromLeft grows the left environment rightward.
	FromLeft Direction = iota
	// FromRight grows the right environment leftward.
	FromRight
)

func (d Direction) String() string {
	switch d {
	case FromLeft:
		return "FromLeft"
	case FromRight:
		return "FromRight"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ErrPositionNotSet is returned by CurrentBond when the exposed window does
// not have the width of an established position.
var ErrPositionNotSet = errors.New("position not set")

// A State is the chain state against which environments are built.
// ProjectOp absorbs one site into env: it contracts env with the state
// tensor at site, the given chain-operator tensor, and the conjugated,
// primed state tensor, returning the extended environment. A nil env is
// the trivial boundary environment. ProjectOp must be deterministic and
// must not modify its arguments.
type State interface {
	ProjectOp(site int, dir Direction, env, op *itensor.Tensor) *itensor.Tensor
}

// Options are options for a LocalMPO.
type Options struct {
	numCenter int
	storeDir  string
}

// NewOptions returns the default LocalMPO options.
func NewOptions() Options {
	opt := Options{}
	opt.numCenter = 2
	return opt
}

// NumCenter sets the number of exposed center sites.
func (opt Options) NumCenter(nc int) Options {
	opt.numCenter = nc
	return opt
}

// StoreDir makes the cache page environments outside the active window to a
// database under dir, bounding resident memory for long chains.
func (opt Options) StoreDir(dir string) Options {
	opt.storeDir = dir
	return opt
}

// A LocalMPO caches the partial contractions of a chain operator against a
// chain state. Slot ph[k] holds the environment for sites [1, k] when k is
// at or left of the window, and for sites [k, N] when at or right of it;
// slots 0 and N+1 stay nil as the trivial boundary environments. Slots
// strictly inside (lhLim, rhLim) are stale until the window moves past them.
//
// The zero value is the null cache; it must be bound with New before use.
// The chain operator is borrowed and must outlive the cache.
type LocalMPO struct {
	op           []*itensor.Tensor
	ph           []*itensor.Tensor
	lhLim, rhLim int
	nc           int

	lop LocalOp

	store *envStore
	// meta keeps the index sets of paged-out slots; the payload lives in
	// the store.
	meta map[int]itensor.IndexSet
}

// New binds a cache to the chain operator op, whose sites are numbered
// 1..len(op).
func New(op []*itensor.Tensor, options ...Options) (*LocalMPO, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}

	m := &LocalMPO{op: op, ph: make([]*itensor.Tensor, len(op)+2)}
	m.SetNumCenter(opt.numCenter)
	m.Reset()

	if opt.storeDir != "" {
		store, err := newEnvStore(filepath.Join(opt.storeDir, "envcache.db"))
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		m.store = store
		m.meta = make(map[int]itensor.IndexSet)
	}
	return m, nil
}

// IsNull reports whether the cache is not bound to a chain operator.
func (m *LocalMPO) IsNull() bool { return m == nil || m.op == nil }

// NumSites returns the chain length N.
func (m *LocalMPO) NumSites() int { return len(m.op) }

// LeftLimit returns the left cursor: sites [1, LeftLimit] are absorbed into
// the left environment.
func (m *LocalMPO) LeftLimit() int { return m.lhLim }

// RightLimit returns the right cursor: sites [RightLimit, N] are absorbed
// into the right environment.
func (m *LocalMPO) RightLimit() int { return m.rhLim }

// NumCenter returns the number of exposed center sites.
func (m *LocalMPO) NumCenter() int { return m.nc }

// SetNumCenter sets the number of exposed center sites.
func (m *LocalMPO) SetNumCenter(nc int) {
	if nc < 1 {
		panic(fmt.Sprintf("numCenter must be >= 1: %d", nc))
	}
	m.nc = nc
}

// Reset widens the window to the whole chain, invalidating all cached
// environments.
func (m *LocalMPO) Reset() {
	m.lhLim = 0
	m.rhLim = len(m.op) + 1
}

// Op returns the chain-operator tensor at site j.
func (m *LocalMPO) Op(j int) *itensor.Tensor { return m.op[j-1] }

// Position moves the window so that the operator tensors at sites
// b..b+numCenter-1 are exposed, absorbing one site at a time through
// psi.ProjectOp. Cursors only ever extend toward the target; a cursor
// already past the target is clamped back onto a previously built slot,
// which is how reverse sweeps reuse the cache. Requesting a bond whose
// clamped slot was never built is an unchecked precondition violation.
func (m *LocalMPO) Position(b int, psi State) {
	if m.IsNull() {
		panic("LocalMPO is null")
	}
	n := len(m.op)
	if b < 1 || b+m.nc-1 > n {
		panic(fmt.Sprintf("bond %d, %d sites, numCenter %d", b, n, m.nc))
	}

	m.loadSlot(b - 1)
	m.loadSlot(b + m.nc)
	m.makeL(psi, b-1)
	m.makeR(psi, b+m.nc)

	// Not redundant: lhLim could be > b-1, and rhLim < b+nc.
	m.lhLim = b - 1
	m.rhLim = b + m.nc

	if m.nc == 2 {
		m.lop.update(m.Op(b), m.Op(b+1), m.L(), m.R())
	}
	m.spill()
}

// Shift absorbs exactly one more site into an environment after a local
// update, the common fast path of a sweep. For FromLeft, j must be the site
// just right of the left cursor; for FromRight, just left of the right
// cursor. a is the updated state tensor at site j. The far cursor collapses
// to a window of width numCenter+1 around the new boundary; environments
// beyond it become stale and must be rebuilt by a later Position.
func (m *LocalMPO) Shift(j int, dir Direction, a *itensor.Tensor) {
	if m.IsNull() {
		panic("LocalMPO is null")
	}
	n := len(m.op)

	switch dir {
	case FromLeft:
		if j-1 != m.lhLim {
			panic(fmt.Sprintf("can only shift at the left limit: site %d, limit %d", j, m.lhLim))
		}
		if j+m.nc > n {
			panic(fmt.Sprintf("site %d, %d sites, numCenter %d", j, n, m.nc))
		}
		m.ph[j] = m.absorb(m.ph[m.lhLim], j, a)
		m.lhLim = j
		m.rhLim = j + m.nc + 1
		m.loadSlot(m.rhLim)
		if m.nc == 2 {
			m.lop.update(m.Op(j+1), m.Op(j+2), m.L(), m.R())
		}
	case FromRight:
		if j+1 != m.rhLim {
			panic(fmt.Sprintf("can only shift at the right limit: site %d, limit %d", j, m.rhLim))
		}
		if j-m.nc < 1 {
			panic(fmt.Sprintf("site %d, numCenter %d", j, m.nc))
		}
		m.ph[j] = m.absorb(m.ph[m.rhLim], j, a)
		m.rhLim = j
		m.lhLim = j - m.nc - 1
		m.loadSlot(m.lhLim)
		if m.nc == 2 {
			m.lop.update(m.Op(j-2), m.Op(j-1), m.L(), m.R())
		}
	default:
		panic(fmt.Sprintf("%v", dir))
	}
	m.spill()
}

// absorb contracts env with the state tensor a, the operator at site j, and
// the conjugated primed a, the same primitive as one Position step.
func (m *LocalMPO) absorb(env *itensor.Tensor, j int, a *itensor.Tensor) *itensor.Tensor {
	ne := a
	if env != nil {
		ne = itensor.Contract(env, a)
	}
	ne = itensor.Contract(ne, m.Op(j))
	return itensor.Contract(ne, a.Prime(1).Conj())
}

// L returns the left boundary environment, nil when trivial.
func (m *LocalMPO) L() *itensor.Tensor { return m.ph[m.lhLim] }

// R returns the right boundary environment, nil when trivial.
func (m *LocalMPO) R() *itensor.Tensor { return m.ph[m.rhLim] }

// SetL replaces the left environment at the current cursor.
func (m *LocalMPO) SetL(nl *itensor.Tensor) { m.ph[m.lhLim] = nl }

// SetR replaces the right environment at the current cursor.
func (m *LocalMPO) SetR(nr *itensor.Tensor) { m.ph[m.rhLim] = nr }

// SetLAt replaces the left environment bordering site j, so that nl covers
// sites < j. The cursor moves left if needed to admit j; the valid region
// never shrinks.
func (m *LocalMPO) SetLAt(j int, nl *itensor.Tensor) {
	if m.lhLim > j-1 {
		m.lhLim = j - 1
	}
	m.ph[m.lhLim] = nl
}

// SetRAt replaces the right environment bordering site j, so that nr covers
// sites > j.
func (m *LocalMPO) SetRAt(j int, nr *itensor.Tensor) {
	if m.rhLim < j+1 {
		m.rhLim = j + 1
	}
	m.ph[m.rhLim] = nr
}

// CurrentBond returns the left exposed site of an established window.
func (m *LocalMPO) CurrentBond() (int, error) {
	if m.rhLim-m.lhLim != m.nc+1 {
		return 0, errors.Wrap(ErrPositionNotSet, fmt.Sprintf("window (%d, %d), numCenter %d", m.lhLim, m.rhLim, m.nc))
	}
	return m.lhLim + 1, nil
}

// Apply applies the local effective operator to phi. See LocalOp.Apply.
func (m *LocalMPO) Apply(phi *itensor.Tensor) *itensor.Tensor { return m.lop.Apply(phi) }

// Expect returns the expectation value of the local effective operator.
func (m *LocalMPO) Expect(phi *itensor.Tensor) float32 { return m.lop.Expect(phi) }

// Diag returns the diagonal of the local effective operator.
func (m *LocalMPO) Diag() *itensor.Tensor { return m.lop.Diag() }

// Matrix returns the local effective operator as a square matrix.
// See LocalOp.Matrix.
func (m *LocalMPO) Matrix() (*tensor.Dense, itensor.IndexSet) { return m.lop.Matrix() }

// Size returns the dimension of the local problem.
func (m *LocalMPO) Size() int { return m.lop.Size() }

// Close releases the paging store, if any.
func (m *LocalMPO) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

func (m *LocalMPO) makeL(psi State, k int) {
	for m.lhLim < k {
		ll := m.lhLim
		m.ph[ll+1] = psi.ProjectOp(ll+1, FromLeft, m.ph[ll], m.Op(ll+1))
		m.lhLim++
	}
}

func (m *LocalMPO) makeR(psi State, k int) {
	for m.rhLim > k {
		rl := m.rhLim
		m.ph[rl-1] = psi.ProjectOp(rl-1, FromRight, m.ph[rl], m.Op(rl-1))
		m.rhLim--
	}
}

// spill pages every valid interior slot except the two boundaries out to
// the store.
func (m *LocalMPO) spill() {
	if m.store == nil {
		return
	}
	for j := 1; j <= len(m.op); j++ {
		if j == m.lhLim || j == m.rhLim || m.ph[j] == nil {
			continue
		}
		if err := m.store.put(j, m.ph[j]); err != nil {
			panic(fmt.Sprintf("%+v", err))
		}
		m.meta[j] = m.ph[j].Inds()
		m.ph[j] = nil
	}
}

// loadSlot pages slot j back in if it was spilled.
func (m *LocalMPO) loadSlot(j int) {
	if m.store == nil || j < 1 || j > len(m.op) || m.ph[j] != nil {
		return
	}
	inds, ok := m.meta[j]
	if !ok {
		return
	}
	t, err := m.store.get(j, inds)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	m.ph[j] = t
	delete(m.meta, j)
}
