package memory

import (
	"math/big"
	"testing"

	"whitesymex/internal/constraint"
	"whitesymex/internal/symvalue"
)

func TestHeapConcreteStoreRetrieve(t *testing.T) {
	h := NewHeap()
	addr := symvalue.FromInt64(42)
	h.Store(addr, symvalue.FromInt64(7))
	got := h.Retrieve(addr)
	c, ok := got.AsConcrete()
	if !ok || c.Int64() != 7 {
		t.Errorf("Retrieve(42) = %v, want 7", c)
	}
}

func TestHeapRetrieveUnstoredDefaultsToZero(t *testing.T) {
	h := NewHeap()
	got := h.Retrieve(symvalue.FromInt64(99))
	c, ok := got.AsConcrete()
	if !ok || c.Int64() != 0 {
		t.Errorf("Retrieve(unstored) = %v, want 0", c)
	}
}

// TestHeapSymbolicAddressFoldsToIte exercises §4.3's symbolic heap model:
// storing at a symbolic address and retrieving at a concrete one must fold
// to an expression whose value under a model depends on whether the model
// equates the two addresses.
func TestHeapSymbolicAddressFoldsToIte(t *testing.T) {
	h := NewHeap()
	x := symvalue.NewSymbol("x")
	h.Store(x, symvalue.FromInt64(7))

	got := h.Retrieve(symvalue.FromInt64(5))
	if got.IsConcrete() {
		t.Fatalf("expected a symbolic fold, got concrete %v", got)
	}

	matching := map[string]*big.Int{"x": big.NewInt(5)}
	if v := constraint.Eval(got.Expr(), matching); v.Int64() != 7 {
		t.Errorf("with x==5, retrieved value = %v, want 7", v)
	}

	distinct := map[string]*big.Int{"x": big.NewInt(6)}
	if v := constraint.Eval(got.Expr(), distinct); v.Int64() != 0 {
		t.Errorf("with x==6, retrieved value = %v, want 0", v)
	}
}

func TestHeapClone(t *testing.T) {
	h := NewHeap()
	h.Store(symvalue.FromInt64(1), symvalue.FromInt64(11))
	clone := h.Clone()
	clone.Store(symvalue.FromInt64(1), symvalue.FromInt64(99))

	orig := h.Retrieve(symvalue.FromInt64(1))
	oc, _ := orig.AsConcrete()
	if oc.Int64() != 11 {
		t.Errorf("original heap mutated by clone: got %v, want 11", oc)
	}
}
