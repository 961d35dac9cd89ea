// Package constraint implements the solver context of §4.2: a small
// bitvector constraint language and a hand-rolled feasibility/model oracle.
//
// No Go SMT or SAT solver appears anywhere in the reference corpus this
// repository was grown from, so the oracle below is built from domain
// propagation plus a bounded search instead of binding an external solver.
// See DESIGN.md for the grounding note.
package constraint

import (
	"math/big"
	"sort"
)

// Width is the uniform bitvector width W used for every symbolic value.
// All arithmetic is performed modulo 2^Width, matching §3's Value model.
const Width = 32

var (
	modulus  = new(big.Int).Lsh(big.NewInt(1), Width)
	signBit  = new(big.Int).Lsh(big.NewInt(1), Width-1)
	maxUint  = new(big.Int).Sub(modulus, big.NewInt(1))
)

// wrap reduces v into the unsigned representation range [0, 2^Width).
func wrap(v *big.Int) *big.Int {
	r := new(big.Int).Mod(v, modulus)
	if r.Sign() < 0 {
		r.Add(r, modulus)
	}
	return r
}

// toSigned reinterprets an unsigned bit pattern in [0, 2^Width) as a signed
// two's-complement integer in [-2^(Width-1), 2^(Width-1)).
func toSigned(v *big.Int) *big.Int {
	u := wrap(v)
	if u.Cmp(signBit) >= 0 {
		return new(big.Int).Sub(u, modulus)
	}
	return new(big.Int).Set(u)
}

// Expr is a bitvector-valued expression node.
type Expr interface {
	isExpr()
}

// Const is a literal bitvector value, always stored wrapped into
// [0, 2^Width).
type Const struct{ Val *big.Int }

func (Const) isExpr() {}

// ConstI builds a Const from an int64, wrapping into range.
func ConstI(n int64) Const { return Const{Val: wrap(big.NewInt(n))} }

// Var is a free symbolic variable, identified by name. Two Vars with the
// same Name refer to the same symbol.
type Var struct{ Name string }

func (Var) isExpr() {}

// BinOp enumerates the arithmetic operators over Expr.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpSDiv
	OpSMod
)

// Bin is a binary arithmetic expression.
type Bin struct {
	Op   BinOp
	L, R Expr
}

func (Bin) isExpr() {}

// Ite is "if cond then t else f", used by the symbolic heap model (§4.3) to
// fold a log of stores into a single value expression.
type Ite struct {
	Cond Pred
	T, F Expr
}

func (Ite) isExpr() {}

// Mask extracts the low Bits bits of X, unsigned. It is how OutChar's
// truncate8 is expressed over the uniform Width-bit Value representation.
type Mask struct {
	X    Expr
	Bits int
}

func (Mask) isExpr() {}

// Pred is a boolean-valued predicate over Expr, the unit of a path
// constraint.
type Pred interface {
	isPred()
}

// BoolConst is a literal true/false predicate.
type BoolConst bool

func (BoolConst) isPred() {}

// CmpOp enumerates comparison predicates.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpSlt
	CmpSle
	CmpSgt
	CmpSge
)

// Cmp is a comparison between two expressions.
type Cmp struct {
	Op   CmpOp
	L, R Expr
}

func (Cmp) isPred() {}

// Not negates a predicate.
type Not struct{ X Pred }

func (Not) isPred() {}

// And is conjunction.
type And struct{ L, R Pred }

func (And) isPred() {}

// Or is disjunction.
type Or struct{ L, R Pred }

func (Or) isPred() {}

// Eval evaluates e concretely under the given variable assignment. Every
// Var referenced by e must have an entry in env; Eval panics otherwise,
// since an unresolved Eval indicates a solver bug, not a user error.
func Eval(e Expr, env map[string]*big.Int) *big.Int {
	switch x := e.(type) {
	case Const:
		return new(big.Int).Set(x.Val)
	case Var:
		v, ok := env[x.Name]
		if !ok {
			panic("constraint: unbound variable " + x.Name + " in Eval")
		}
		return new(big.Int).Set(v)
	case Bin:
		l := Eval(x.L, env)
		r := Eval(x.R, env)
		switch x.Op {
		case OpAdd:
			return wrap(new(big.Int).Add(l, r))
		case OpSub:
			return wrap(new(big.Int).Sub(l, r))
		case OpMul:
			return wrap(new(big.Int).Mul(l, r))
		case OpSDiv:
			return wrap(floorDiv(toSigned(l), toSigned(r)))
		case OpSMod:
			return wrap(floorMod(toSigned(l), toSigned(r)))
		}
	case Ite:
		if EvalPred(x.Cond, env) {
			return Eval(x.T, env)
		}
		return Eval(x.F, env)
	case Mask:
		v := wrap(Eval(x.X, env))
		m := new(big.Int).Lsh(big.NewInt(1), uint(x.Bits))
		return new(big.Int).Mod(v, m)
	}
	panic("constraint: unhandled Expr in Eval")
}

// EvalPred evaluates a predicate concretely under env.
func EvalPred(p Pred, env map[string]*big.Int) bool {
	switch x := p.(type) {
	case BoolConst:
		return bool(x)
	case Cmp:
		l := Eval(x.L, env)
		r := Eval(x.R, env)
		switch x.Op {
		case CmpEq:
			return wrap(l).Cmp(wrap(r)) == 0
		case CmpNe:
			return wrap(l).Cmp(wrap(r)) != 0
		case CmpSlt:
			return toSigned(l).Cmp(toSigned(r)) < 0
		case CmpSle:
			return toSigned(l).Cmp(toSigned(r)) <= 0
		case CmpSgt:
			return toSigned(l).Cmp(toSigned(r)) > 0
		case CmpSge:
			return toSigned(l).Cmp(toSigned(r)) >= 0
		}
	case Not:
		return !EvalPred(x.X, env)
	case And:
		return EvalPred(x.L, env) && EvalPred(x.R, env)
	case Or:
		return EvalPred(x.L, env) || EvalPred(x.R, env)
	}
	panic("constraint: unhandled Pred in EvalPred")
}

// floorDiv implements truncation toward negative infinity, matching
// Whitespace's Div convention (§3).
func floorDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int), new(big.Int)
	q.QuoRem(a, b, r)
	if r.Sign() != 0 && (r.Sign() < 0) != (b.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

// floorMod is the remainder consistent with floorDiv: a == floorDiv(a,b)*b + floorMod(a,b).
func floorMod(a, b *big.Int) *big.Int {
	r := new(big.Int).Mod(a, b)
	if r.Sign() != 0 && (r.Sign() < 0) != (b.Sign() < 0) {
		r.Add(r, b)
	}
	return r
}

// ToSigned reinterprets a wrapped unsigned bitvector value as its signed
// two's-complement integer, for callers outside this package that need to
// print or compare a solver result (e.g. OutNum's decimal rendering).
func ToSigned(u *big.Int) *big.Int { return toSigned(u) }

// Vars returns the sorted set of variable names e references, for building
// a Model() query over exactly the symbols an expression depends on.
func Vars(e Expr) []string {
	set := map[string]bool{}
	exprVars(e, set)
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// exprVars collects the set of Var names referenced transitively by e.
func exprVars(e Expr, out map[string]bool) {
	switch x := e.(type) {
	case Var:
		out[x.Name] = true
	case Bin:
		exprVars(x.L, out)
		exprVars(x.R, out)
	case Ite:
		predVars(x.Cond, out)
		exprVars(x.T, out)
		exprVars(x.F, out)
	case Mask:
		exprVars(x.X, out)
	}
}

func predVars(p Pred, out map[string]bool) {
	switch x := p.(type) {
	case Cmp:
		exprVars(x.L, out)
		exprVars(x.R, out)
	case Not:
		predVars(x.X, out)
	case And:
		predVars(x.L, out)
		predVars(x.R, out)
	case Or:
		predVars(x.L, out)
		predVars(x.R, out)
	}
}
