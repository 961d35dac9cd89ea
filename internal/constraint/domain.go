package constraint

import "math/big"

// domain is the signed-range approximation of a variable's feasible values,
// refined by the single-variable linear constraints the solver can solve
// exactly. It is intentionally coarser than a full decision procedure: the
// final arbiter of satisfiability is always a concrete evaluation of every
// constraint (see Solver.Check), domains only narrow the search.
type domain struct {
	lo, hi   *big.Int // inclusive, signed
	excluded []*big.Int
}

func fullDomain() *domain {
	return &domain{
		lo: new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), Width-1)),
		hi: new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), Width-1), big.NewInt(1)),
	}
}

func (d *domain) empty() bool {
	return d.lo.Cmp(d.hi) > 0
}

func (d *domain) tightenLo(v *big.Int) {
	if v.Cmp(d.lo) > 0 {
		d.lo = v
	}
}

func (d *domain) tightenHi(v *big.Int) {
	if v.Cmp(d.hi) < 0 {
		d.hi = v
	}
}

func (d *domain) tightenEq(v *big.Int) {
	d.tightenLo(v)
	d.tightenHi(v)
}

func (d *domain) exclude(v *big.Int) {
	d.excluded = append(d.excluded, new(big.Int).Set(v))
}

func (d *domain) isExcluded(v *big.Int) bool {
	for _, e := range d.excluded {
		if e.Cmp(v) == 0 {
			return true
		}
	}
	return false
}

// pick returns a value in the domain, preferring 0, then lo, then the first
// few integers above lo, skipping excluded values. Returns ok=false if no
// value within a small search window satisfies the exclusion set (the
// caller then falls back to the general search).
func (d *domain) pick() (*big.Int, bool) {
	if d.empty() {
		return nil, false
	}
	zero := big.NewInt(0)
	if zero.Cmp(d.lo) >= 0 && zero.Cmp(d.hi) <= 0 && !d.isExcluded(zero) {
		return zero, true
	}
	const window = 256
	v := new(big.Int).Set(d.lo)
	for i := 0; i < window && v.Cmp(d.hi) <= 0; i++ {
		if !d.isExcluded(v) {
			return new(big.Int).Set(v), true
		}
		v.Add(v, big.NewInt(1))
	}
	return nil, false
}
