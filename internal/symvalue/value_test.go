package symvalue

import (
	"math/big"
	"testing"

	"whitesymex/internal/constraint"
)

func TestConcreteArithmeticWraps(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		op   func(a, b Value) Value
		want int64
	}{
		{"add", 2, 3, Add, 5},
		{"sub-negative", 2, 3, Sub, -1},
		{"mul", 6, 7, Mul, 42},
		{"sdiv-floor", -7, 2, SDiv, -4},
		{"smod-floor", -7, 2, SMod, 1},
		{"add-overflow-wraps", (1 << 31) - 1, 1, Add, -(1 << 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op(FromInt64(tt.a), FromInt64(tt.b))
			c, ok := got.AsConcrete()
			if !ok {
				t.Fatalf("result not concrete")
			}
			if c.Int64() != tt.want {
				t.Errorf("got %d, want %d", c.Int64(), tt.want)
			}
		})
	}
}

func TestIsZeroAndIsNegative(t *testing.T) {
	zero := FromInt64(0)
	if z := zero.IsZero(); z == nil || !*z {
		t.Errorf("IsZero(0) = %v, want true", z)
	}
	neg := FromInt64(-5)
	if n := neg.IsNegative(); n == nil || !*n {
		t.Errorf("IsNegative(-5) = %v, want true", n)
	}
	sym := NewSymbol("x")
	if sym.IsZero() != nil {
		t.Errorf("IsZero on symbolic value should be nil")
	}
	if sym.IsNegative() != nil {
		t.Errorf("IsNegative on symbolic value should be nil")
	}
}

func TestTruncate8(t *testing.T) {
	got := Truncate8(FromInt64(321)) // 321 = 256 + 65
	c, ok := got.AsConcrete()
	if !ok || c.Int64() != 65 {
		t.Errorf("Truncate8(321) = %v, want 65", c)
	}
}

func TestEqBuildsEvaluablePredicate(t *testing.T) {
	p := Eq(FromInt64(4), FromInt64(4))
	if !constraint.EvalPred(p, map[string]*big.Int{}) {
		t.Errorf("Eq(4,4) should evaluate true")
	}
	np := Ne(FromInt64(4), FromInt64(5))
	if !constraint.EvalPred(np, map[string]*big.Int{}) {
		t.Errorf("Ne(4,5) should evaluate true")
	}
}
