// Package symvalue is the symbolic value layer of §4.1: a thin wrapper over
// concrete integers and constraint.Expr bitvectors, with arithmetic that
// only drops into the symbolic domain when an operand actually is
// symbolic.
package symvalue

import (
	"fmt"
	"math/big"

	"whitesymex/internal/constraint"
)

// Width is the uniform bitvector width, re-exported from internal/constraint
// so callers never need to import both packages just for the constant.
const Width = constraint.Width

// Value is the sum type Concrete | Symbolic from §3.
type Value struct {
	concrete bool
	c        *big.Int        // valid iff concrete, always wrapped into [0, 2^Width)
	sym      constraint.Expr // valid iff !concrete
}

// FromInt64 builds a concrete Value.
func FromInt64(n int64) Value {
	return Value{concrete: true, c: wrap(big.NewInt(n))}
}

// FromBigInt builds a concrete Value from an arbitrary-precision integer,
// wrapping into the bitvector's range as §3 requires ("all arithmetic is
// mod 2^W").
func FromBigInt(n *big.Int) Value {
	return Value{concrete: true, c: wrap(n)}
}

// FromExpr builds a symbolic Value. If e happens to be a literal Const, the
// value is folded to Concrete immediately.
func FromExpr(e constraint.Expr) Value {
	if c, ok := e.(constraint.Const); ok {
		return Value{concrete: true, c: wrap(c.Val)}
	}
	return Value{concrete: false, sym: e}
}

// NewSymbol creates a fresh named symbolic variable.
func NewSymbol(name string) Value {
	return Value{concrete: false, sym: constraint.Var{Name: name}}
}

func wrap(v *big.Int) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), Width)
	r := new(big.Int).Mod(v, m)
	if r.Sign() < 0 {
		r.Add(r, m)
	}
	return r
}

// IsConcrete reports whether the value has a known concrete integer.
func (v Value) IsConcrete() bool { return v.concrete }

// AsConcrete returns the concrete value (signed) and true, or (nil, false)
// if v is symbolic.
func (v Value) AsConcrete() (*big.Int, bool) {
	if !v.concrete {
		return nil, false
	}
	return toSigned(v.c), true
}

// Expr lowers v into a constraint.Expr, wrapping a concrete value in a
// Const node when necessary. Every arithmetic op below goes through this so
// mixed concrete/symbolic operands compose uniformly.
func (v Value) Expr() constraint.Expr {
	if v.concrete {
		return constraint.Const{Val: v.c}
	}
	return v.sym
}

func toSigned(u *big.Int) *big.Int {
	half := new(big.Int).Lsh(big.NewInt(1), Width-1)
	if u.Cmp(half) >= 0 {
		full := new(big.Int).Lsh(big.NewInt(1), Width)
		return new(big.Int).Sub(u, full)
	}
	return new(big.Int).Set(u)
}

func (v Value) String() string {
	if v.concrete {
		return toSigned(v.c).String()
	}
	return fmt.Sprintf("%v", v.sym)
}

// binConcrete evaluates op on two concrete values without touching the
// solver at all — the common case for Whitespace programs with no symbolic
// input in play.
func binConcrete(op constraint.BinOp, a, b *big.Int) *big.Int {
	env := map[string]*big.Int{}
	return constraint.Eval(constraint.Bin{Op: op, L: constraint.Const{Val: a}, R: constraint.Const{Val: b}}, env)
}

func bin(op constraint.BinOp, a, b Value) Value {
	if a.concrete && b.concrete {
		return Value{concrete: true, c: binConcrete(op, a.c, b.c)}
	}
	return FromExpr(constraint.Bin{Op: op, L: a.Expr(), R: b.Expr()})
}

func Add(a, b Value) Value { return bin(constraint.OpAdd, a, b) }
func Sub(a, b Value) Value { return bin(constraint.OpSub, a, b) }
func Mul(a, b Value) Value { return bin(constraint.OpMul, a, b) }
func SDiv(a, b Value) Value { return bin(constraint.OpSDiv, a, b) }
func SMod(a, b Value) Value { return bin(constraint.OpSMod, a, b) }

// IsZero returns, without consulting a solver, true/false for a concrete
// value or nil for a symbolic one — callers fall back to the solver only
// when this returns nil.
func (v Value) IsZero() *bool {
	if !v.concrete {
		return nil
	}
	b := v.c.Sign() == 0
	return &b
}

// IsNegative mirrors IsZero for the sign check JumpNegative needs.
func (v Value) IsNegative() *bool {
	if !v.concrete {
		return nil
	}
	b := toSigned(v.c).Sign() < 0
	return &b
}

// Eq, Ne, Slt, Sle, Sgt, Sge build comparison predicates over the
// expression layer; the caller (interpreter or heap model) decides whether
// to resolve them concretely or hand them to the solver.
func Eq(a, b Value) constraint.Pred  { return constraint.Cmp{Op: constraint.CmpEq, L: a.Expr(), R: b.Expr()} }
func Ne(a, b Value) constraint.Pred  { return constraint.Cmp{Op: constraint.CmpNe, L: a.Expr(), R: b.Expr()} }
func Slt(a, b Value) constraint.Pred { return constraint.Cmp{Op: constraint.CmpSlt, L: a.Expr(), R: b.Expr()} }
func Sle(a, b Value) constraint.Pred { return constraint.Cmp{Op: constraint.CmpSle, L: a.Expr(), R: b.Expr()} }
func Sgt(a, b Value) constraint.Pred { return constraint.Cmp{Op: constraint.CmpSgt, L: a.Expr(), R: b.Expr()} }
func Sge(a, b Value) constraint.Pred { return constraint.Cmp{Op: constraint.CmpSge, L: a.Expr(), R: b.Expr()} }

// Ite builds "if cond then t else f" lazily: if cond is a literal
// constraint.BoolConst this folds immediately, otherwise it stays symbolic.
func Ite(cond constraint.Pred, t, f Value) Value {
	if bc, ok := cond.(constraint.BoolConst); ok {
		if bool(bc) {
			return t
		}
		return f
	}
	return FromExpr(constraint.Ite{Cond: cond, T: t.Expr(), F: f.Expr()})
}

// Truncate8 is OutChar's byte truncation: the low 8 bits of v, unsigned.
func Truncate8(v Value) Value {
	if v.concrete {
		m := big.NewInt(256)
		return Value{concrete: true, c: new(big.Int).Mod(v.c, m)}
	}
	return FromExpr(constraint.Mask{X: v.sym, Bits: 8})
}

// ZeroExtendByte lifts an 8-bit character code (ReadChar's natural width,
// §3) into a full Width-bit Value. Our uniform representation already
// stores everything at Width bits, so this is the identity — kept as a
// named entry point so call sites document the §3 requirement explicitly.
func ZeroExtendByte(v Value) Value { return v }
