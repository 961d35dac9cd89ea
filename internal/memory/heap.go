package memory

import (
	"whitesymex/internal/constraint"
	"whitesymex/internal/symvalue"
)

// symEntry is one (addr, value) pair recorded when Store sees a symbolic
// address, per §4.3.
type symEntry struct {
	addr symvalue.Value
	val  symvalue.Value
}

// Heap is the mapping from address Value to Value of §3, split into a
// point-wise table for concrete addresses and an append-only log for
// symbolic ones, folded lazily by Retrieve (§4.3).
type Heap struct {
	concrete map[string]symvalue.Value
	symLog   []symEntry
}

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{concrete: map[string]symvalue.Value{}}
}

// Clone deep-copies the heap for a forked state.
func (h *Heap) Clone() *Heap {
	cp := &Heap{concrete: make(map[string]symvalue.Value, len(h.concrete))}
	for k, v := range h.concrete {
		cp.concrete[k] = v
	}
	cp.symLog = append(cp.symLog, h.symLog...)
	return cp
}

func concreteKey(addr symvalue.Value) (string, bool) {
	c, ok := addr.AsConcrete()
	if !ok {
		return "", false
	}
	return c.String(), true
}

// Store records v at addr. A concrete address updates the point-wise map;
// a symbolic address appends to the log (§4.3).
func (h *Heap) Store(addr, v symvalue.Value) {
	if key, ok := concreteKey(addr); ok {
		h.concrete[key] = v
		return
	}
	h.symLog = append(h.symLog, symEntry{addr: addr, val: v})
}

// Retrieve returns the modelled value at addr. A concrete address with a
// point-wise entry returns it directly; otherwise the symbolic log is
// folded newest-to-oldest into an ITE chain with a Concrete(0) default
// (§4.3) — and a concrete address that was never stored to also checks the
// symbolic log, since an earlier symbolic store could have aliased it.
func (h *Heap) Retrieve(addr symvalue.Value) symvalue.Value {
	if key, ok := concreteKey(addr); ok {
		if v, found := h.concrete[key]; found {
			return v
		}
	}
	return h.foldLog(addr, symvalue.FromInt64(0))
}

func (h *Heap) foldLog(addr, base symvalue.Value) symvalue.Value {
	result := base
	for _, e := range h.symLog {
		cond := symvalue.Eq(addr, e.addr)
		if bc, ok := boolConst(cond); ok {
			if bc {
				result = e.val
			}
			continue
		}
		result = symvalue.Ite(cond, e.val, result)
	}
	return result
}

// boolConst reports whether p is trivially decidable without a solver
// (both sides concrete), avoiding an Ite node for the common case where a
// concrete address is compared against another concrete address already
// recorded in the log.
func boolConst(p constraint.Pred) (bool, bool) {
	cmp, ok := p.(constraint.Cmp)
	if !ok || cmp.Op != constraint.CmpEq {
		return false, false
	}
	l, lok := constAsInt(cmp.L)
	r, rok := constAsInt(cmp.R)
	if !lok || !rok {
		return false, false
	}
	return l == r, true
}

func constAsInt(e constraint.Expr) (string, bool) {
	c, ok := e.(constraint.Const)
	if !ok {
		return "", false
	}
	return c.Val.String(), true
}
