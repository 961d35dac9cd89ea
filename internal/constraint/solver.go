package constraint

import (
	"math/big"
	"math/rand"
	"sort"
)

// Result is the outcome of a feasibility query.
type Result int

const (
	Unsat Result = iota
	Sat
	Unknown
)

func (r Result) String() string {
	switch r {
	case Unsat:
		return "unsat"
	case Sat:
		return "sat"
	default:
		return "unknown"
	}
}

// searchBudget bounds the bounded-search fallback used when domain
// propagation alone cannot produce (or refute) a witness. Exhausting the
// budget yields Unknown, which callers must treat as Sat per §4.2.
const searchBudget = 4000

// Solver holds one state's accumulated path constraints (§4.2). It has no
// connection to any other Solver; forking a State clones its Solver.
type Solver struct {
	constraints []Pred
	rng         *rand.Rand
}

// New returns an empty solver context. The search fallback's RNG is seeded
// deterministically so that Check/Model are reproducible for a fixed
// constraint history, independent of wall-clock time.
func New() *Solver {
	return &Solver{rng: rand.New(rand.NewSource(1))}
}

// Clone deep-copies the solver for a forked state. The two resulting
// solvers share no mutable state.
func (s *Solver) Clone() *Solver {
	cp := make([]Pred, len(s.constraints))
	copy(cp, s.constraints)
	return &Solver{constraints: cp, rng: rand.New(rand.NewSource(int64(len(cp)) + 1))}
}

// Add appends a constraint with no feasibility check, per §4.2.
func (s *Solver) Add(p Pred) {
	s.constraints = append(s.constraints, p)
}

// Push returns a mark that Pop can later truncate back to, the scoping
// primitive §4.2 allows for fork-efficient backends.
func (s *Solver) Push() int { return len(s.constraints) }

// Pop truncates the constraint list back to a mark obtained from Push.
func (s *Solver) Pop(mark int) { s.constraints = s.constraints[:mark] }

// Len reports the number of asserted constraints.
func (s *Solver) Len() int { return len(s.constraints) }

// Check returns Sat, Unsat, or Unknown for the current constraint set.
func (s *Solver) Check() Result {
	res, _ := s.solve(nil)
	return res
}

// Model returns a concrete assignment for vars if the constraint set is
// Sat (or Unknown, best-effort). An unconstrained variable is 0 when the
// first candidate assignment already satisfies the constraints; once the
// randomized search has run, it holds whatever value the search last drew.
func (s *Solver) Model(vars []string) (map[string]*big.Int, Result) {
	res, env := s.solve(vars)
	out := make(map[string]*big.Int, len(vars))
	for _, v := range vars {
		if val, ok := env[v]; ok {
			out[v] = toSigned(val)
		} else {
			out[v] = big.NewInt(0)
		}
	}
	return out, res
}

// solve is the whole oracle: narrow a per-variable signed domain from every
// single-variable linear constraint it can extract, try the resulting
// default assignment, and if that fails, randomize within the narrowed
// domains until the full constraint conjunction evaluates true or the
// budget runs out.
func (s *Solver) solve(want []string) (Result, map[string]*big.Int) {
	allVars := map[string]bool{}
	for _, p := range s.constraints {
		predVars(p, allVars)
	}
	for _, v := range want {
		allVars[v] = true
	}

	for _, p := range s.constraints {
		vs := map[string]bool{}
		predVars(p, vs)
		if len(vs) == 0 && !EvalPred(p, nil) {
			return Unsat, nil
		}
	}

	domains := map[string]*domain{}
	for v := range allVars {
		domains[v] = fullDomain()
	}

	for _, p := range s.constraints {
		cmp, ok := p.(Cmp)
		if !ok {
			continue
		}
		diff, ok := linearize(Bin{Op: OpSub, L: cmp.L, R: cmp.R})
		if !ok {
			continue
		}
		var only string
		count := 0
		for n, c := range diff.coeffs {
			if c.Sign() != 0 {
				only = n
				count++
			}
		}
		if count == 1 {
			refineSingleVar(domains[only], diff.coeffs[only], diff.k, cmp.Op)
		}
	}

	for _, d := range domains {
		if d.empty() {
			return Unsat, nil
		}
	}

	names := make([]string, 0, len(allVars))
	for v := range allVars {
		names = append(names, v)
	}
	sort.Strings(names)

	env := map[string]*big.Int{}
	for _, n := range names {
		v, ok := domains[n].pick()
		if !ok {
			v = new(big.Int).Set(domains[n].lo)
		}
		env[n] = wrap(v)
	}

	if evalAll(s.constraints, env) {
		return Sat, env
	}

	for i := 0; i < searchBudget; i++ {
		for _, n := range names {
			env[n] = wrap(randomIn(s.rng, domains[n]))
		}
		if evalAll(s.constraints, env) {
			return Sat, env
		}
	}

	return Unknown, env
}

func refineSingleVar(d *domain, coeff, k *big.Int, op CmpOp) {
	// coeff*var + k OP 0
	if coeff.Sign() == 0 {
		return
	}
	// Only exact when |coeff| == 1, which covers every constraint the
	// interpreter itself emits (plain subtraction/negation forms). Larger
	// coefficients are left to concrete search.
	if coeff.CmpAbs(big.NewInt(1)) != 0 {
		return
	}
	neg := coeff.Sign() < 0
	bound := new(big.Int).Neg(k)
	if neg {
		bound.Neg(bound)
	}
	bound = toSigned(bound)
	effOp := op
	if neg {
		effOp = flip(op)
	}
	switch effOp {
	case CmpEq:
		d.tightenEq(bound)
	case CmpNe:
		d.exclude(bound)
	case CmpSlt:
		d.tightenHi(new(big.Int).Sub(bound, big.NewInt(1)))
	case CmpSle:
		d.tightenHi(bound)
	case CmpSgt:
		d.tightenLo(new(big.Int).Add(bound, big.NewInt(1)))
	case CmpSge:
		d.tightenLo(bound)
	}
}

func flip(op CmpOp) CmpOp {
	switch op {
	case CmpSlt:
		return CmpSgt
	case CmpSle:
		return CmpSge
	case CmpSgt:
		return CmpSlt
	case CmpSge:
		return CmpSle
	default:
		return op
	}
}

func evalAll(ps []Pred, env map[string]*big.Int) bool {
	for _, p := range ps {
		if !EvalPred(p, env) {
			return false
		}
	}
	return true
}

func randomIn(r *rand.Rand, d *domain) *big.Int {
	span := new(big.Int).Sub(d.hi, d.lo)
	if span.Sign() < 0 {
		return new(big.Int).Set(d.lo)
	}
	if !span.IsInt64() || span.Int64() > 1<<30 {
		// Span too large to sample densely; bias toward the boundaries
		// and zero, where the interpreter's own constraints (subtraction
		// against small constants, equality/disequality checks) concentrate
		// solutions.
		choices := []*big.Int{d.lo, d.hi, big.NewInt(0)}
		return choices[r.Intn(len(choices))]
	}
	off := r.Int63n(span.Int64() + 1)
	return new(big.Int).Add(d.lo, big.NewInt(off))
}
