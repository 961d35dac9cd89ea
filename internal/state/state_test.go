package state

import (
	"testing"

	"whitesymex/internal/ir"
	"whitesymex/internal/symvalue"
)

func TestCreateEntryStateBuildsLabelTable(t *testing.T) {
	program := []ir.Instruction{
		{Op: ir.OpMark, Label: "L"},
		{Op: ir.OpExit},
	}
	s := CreateEntryState(program, nil)
	if s.Labels["L"] != 0 {
		t.Errorf("Labels[L] = %d, want 0", s.Labels["L"])
	}
	if s.Status != Active {
		t.Errorf("Status = %v, want Active", s.Status)
	}
}

func TestForkIsIndependent(t *testing.T) {
	s := CreateEntryState(nil, []symvalue.Value{symvalue.FromInt64(1)})
	s.Stack.Push(symvalue.FromInt64(42))

	clone := s.Fork()
	clone.Stack.Push(symvalue.FromInt64(99))
	clone.Solver.Add(symvalue.Eq(symvalue.FromInt64(1), symvalue.FromInt64(1)))

	if s.ID == clone.ID {
		t.Errorf("fork shares ID with parent")
	}
	if s.Stack.Len() != 1 {
		t.Errorf("parent stack mutated by fork: Len() = %d, want 1", s.Stack.Len())
	}
	if clone.Stack.Len() != 2 {
		t.Errorf("clone stack Len() = %d, want 2", clone.Stack.Len())
	}
}

func TestForkAppendsLineage(t *testing.T) {
	entry := CreateEntryState(nil, nil)
	child := entry.Fork()
	grandchild := child.Fork()

	trail := grandchild.Trail()
	if len(trail) != 3 {
		t.Fatalf("Trail() = %v, want length 3", trail)
	}
	if trail[0] != entry.ID || trail[1] != child.ID || trail[2] != grandchild.ID {
		t.Errorf("Trail() = %v, want [entry child grandchild]", trail)
	}
}

func TestConcretizeResolvesSymbolicStdinUnderModel(t *testing.T) {
	stdin := []symvalue.Value{symvalue.NewSymbol("c0"), symvalue.FromInt64('!')}
	s := CreateEntryState(nil, stdin)
	s.Solver.Add(symvalue.Eq(stdin[0], symvalue.FromInt64('x')))

	got := s.Concretize(nil)
	if len(got) != 2 || got[0] != 'x' || got[1] != '!' {
		t.Errorf("Concretize() = %v, want [x !]", got)
	}
}

func TestStdoutBytesFalseOnSymbolicByte(t *testing.T) {
	s := CreateEntryState(nil, nil)
	s.Stdout = append(s.Stdout, symvalue.NewSymbol("x"))
	if _, ok := s.StdoutBytes(); ok {
		t.Errorf("StdoutBytes() ok = true, want false for a symbolic byte")
	}
}
