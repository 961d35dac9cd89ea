package pathgroup

import (
	"fmt"
	"testing"

	"github.com/kr/pretty"

	"whitesymex/internal/ir"
	"whitesymex/internal/state"
	"whitesymex/internal/symvalue"
)

func explore(program []ir.Instruction, stdin []symvalue.Value, opts Options) *PathGroup {
	entry := state.CreateEntryState(program, stdin)
	return New(entry).Explore(opts)
}

// Scenario 1 (§8): Hello output.
func TestHelloOutputFindsExactMatch(t *testing.T) {
	program := []ir.Instruction{
		{Op: ir.OpPush, Num: 'H'},
		{Op: ir.OpOutChar},
		{Op: ir.OpPush, Num: 'i'},
		{Op: ir.OpOutChar},
		{Op: ir.OpExit},
	}
	pg := explore(program, nil, Options{Find: []byte("Hi"), Strategy: BFS, StopWhenFound: true})
	if len(pg.Found()) != 1 {
		t.Fatalf("Found() has %d states, want 1", len(pg.Found()))
	}
	witness := pg.Found()[0].Concretize(nil)
	if len(witness) != 0 {
		t.Errorf("Concretize() = %v, want empty (no stdin consumed)", witness)
	}
}

// Scenario 2 (§8): password checker, shortened to a 2-byte password to keep
// the branch factor small while exercising the same per-byte compare-and-
// fork structure.
func TestPasswordCheckerFindsPassword(t *testing.T) {
	const password = "pw"
	var program []ir.Instruction
	for i, ch := range []byte(password) {
		cont := ir.Label(fmt.Sprintf("cont%d", i))
		program = append(program,
			ir.Instruction{Op: ir.OpPush, Num: int64(i)},
			ir.Instruction{Op: ir.OpReadChar},
			ir.Instruction{Op: ir.OpPush, Num: int64(i)},
			ir.Instruction{Op: ir.OpRetrieve},
			ir.Instruction{Op: ir.OpPush, Num: int64(ch)},
			ir.Instruction{Op: ir.OpSub},
			ir.Instruction{Op: ir.OpJumpZero, Label: cont},
			ir.Instruction{Op: ir.OpJump, Label: "NOPE"},
			ir.Instruction{Op: ir.OpMark, Label: cont},
		)
	}
	for _, c := range []byte("Correct!") {
		program = append(program, ir.Instruction{Op: ir.OpPush, Num: int64(c)}, ir.Instruction{Op: ir.OpOutChar})
	}
	program = append(program, ir.Instruction{Op: ir.OpJump, Label: "END"})
	program = append(program, ir.Instruction{Op: ir.OpMark, Label: "NOPE"})
	for _, c := range []byte("Nope.") {
		program = append(program, ir.Instruction{Op: ir.OpPush, Num: int64(c)}, ir.Instruction{Op: ir.OpOutChar})
	}
	program = append(program, ir.Instruction{Op: ir.OpMark, Label: "END"})
	program = append(program, ir.Instruction{Op: ir.OpExit})

	stdin := []symvalue.Value{symvalue.NewSymbol("c0"), symvalue.NewSymbol("c1")}
	pg := explore(program, stdin, Options{
		Find: []byte("Correct!"), Avoid: []byte("Nope."), Strategy: BFS, StopWhenFound: true,
	})
	if len(pg.Found()) == 0 {
		t.Fatalf("no Found state; expected the %q path to be reachable", password)
	}
	witness := pg.Found()[0].Concretize(nil)
	if string(witness) != password {
		t.Errorf("Concretize() = %q, want %q", witness, password)
	}
}

// Scenario 3 (§8): branch pruning.
func TestBranchPruningSeparatesZeroFromNonzero(t *testing.T) {
	program := []ir.Instruction{
		{Op: ir.OpPush, Num: 0},
		{Op: ir.OpReadChar},
		{Op: ir.OpPush, Num: 0},
		{Op: ir.OpRetrieve},
		{Op: ir.OpJumpZero, Label: "Z"},
		{Op: ir.OpPush, Num: 'N'},
		{Op: ir.OpOutChar},
		{Op: ir.OpJump, Label: "END"},
		{Op: ir.OpMark, Label: "Z"},
		{Op: ir.OpPush, Num: 'Z'},
		{Op: ir.OpOutChar},
		{Op: ir.OpMark, Label: "END"},
		{Op: ir.OpExit},
	}
	stdin := []symvalue.Value{symvalue.NewSymbol("a")}
	pg := explore(program, stdin, Options{
		Find: []byte("Z"), Avoid: []byte("N"), Strategy: BFS, StopWhenFound: false,
	})
	if len(pg.Found()) != 1 {
		t.Fatalf("Found() has %d states, want 1", len(pg.Found()))
	}
	if len(pg.Avoided()) != 1 {
		t.Fatalf("Avoided() has %d states, want 1", len(pg.Avoided()))
	}
	witness := pg.Found()[0].Concretize(nil)
	if len(witness) != 1 || witness[0] != 0 {
		t.Errorf("Concretize() = %v, want a single 0 byte", witness)
	}
}

// Scenario 4 (§8): loop bound.
func TestLoopBoundDrainsActiveSet(t *testing.T) {
	program := []ir.Instruction{
		{Op: ir.OpMark, Label: "L"},
		{Op: ir.OpPush, Num: 1},
		{Op: ir.OpDiscard},
		{Op: ir.OpJump, Label: "L"},
	}
	pg := explore(program, nil, Options{Strategy: BFS, LoopLimit: 5, StopWhenFound: false})
	if len(pg.Active()) != 0 {
		t.Errorf("Active() has %d states, want 0", len(pg.Active()))
	}
	if len(pg.Deadended()) != 1 {
		t.Errorf("Deadended() has %d states, want 1", len(pg.Deadended()))
	}
}

// Scenario 5 (§8): div-by-zero fork.
func TestDivByZeroForkProducesTwoTerminalStates(t *testing.T) {
	program := []ir.Instruction{
		{Op: ir.OpPush, Num: 0},
		{Op: ir.OpReadChar}, // heap[0] = a
		{Op: ir.OpPush, Num: 1},
		{Op: ir.OpReadChar}, // heap[1] = b
		{Op: ir.OpPush, Num: 0},
		{Op: ir.OpRetrieve}, // push a
		{Op: ir.OpPush, Num: 1},
		{Op: ir.OpRetrieve}, // push b
		{Op: ir.OpDiv},
		{Op: ir.OpExit},
	}
	stdin := []symvalue.Value{symvalue.NewSymbol("a"), symvalue.NewSymbol("b")}
	pg := explore(program, stdin, Options{Strategy: BFS, StopWhenFound: false})
	if len(pg.Errored()) != 1 {
		t.Errorf("Errored() has %d states, want 1", len(pg.Errored()))
	}
	if len(pg.Deadended()) != 1 {
		t.Errorf("Deadended() has %d states, want 1", len(pg.Deadended()))
	}
}

// Scenario 6 (§8): symbolic heap.
func TestSymbolicHeapAliasingDefaultsToSeven(t *testing.T) {
	program := []ir.Instruction{
		{Op: ir.OpPush, Num: 0},
		{Op: ir.OpReadChar}, // heap[0] = x
		{Op: ir.OpPush, Num: 0},
		{Op: ir.OpRetrieve}, // push x
		{Op: ir.OpPush, Num: 7},
		{Op: ir.OpStore}, // heap.Store(x, 7)
		{Op: ir.OpPush, Num: 1},
		{Op: ir.OpReadChar}, // heap[1] = y
		{Op: ir.OpPush, Num: 1},
		{Op: ir.OpRetrieve}, // push y
		{Op: ir.OpRetrieve}, // push heap.Retrieve(y)
		{Op: ir.OpOutNum},
		{Op: ir.OpExit},
	}
	stdin := []symvalue.Value{symvalue.NewSymbol("x"), symvalue.NewSymbol("y")}
	pg := explore(program, stdin, Options{Strategy: BFS, StopWhenFound: false})
	term := append(append([]*state.State{}, pg.Deadended()...), pg.Errored()...)
	if len(term) != 1 {
		t.Fatalf("expected exactly 1 terminal state, got %d", len(term))
	}
	stdout, ok := term[0].StdoutBytes()
	if !ok {
		t.Fatalf("expected concrete stdout after OutNum's eager concretization")
	}
	if string(stdout) != "7" {
		t.Errorf("stdout = %q, want %q (default model has x==y)", stdout, "7")
	}
}

func TestSymbolicHeapWithDisequalityDefaultsToZero(t *testing.T) {
	program := []ir.Instruction{
		{Op: ir.OpPush, Num: 0},
		{Op: ir.OpReadChar},
		{Op: ir.OpPush, Num: 0},
		{Op: ir.OpRetrieve},
		{Op: ir.OpPush, Num: 7},
		{Op: ir.OpStore},
		{Op: ir.OpPush, Num: 1},
		{Op: ir.OpReadChar},
		{Op: ir.OpPush, Num: 1},
		{Op: ir.OpRetrieve},
		{Op: ir.OpRetrieve},
		{Op: ir.OpOutNum},
		{Op: ir.OpExit},
	}
	stdin := []symvalue.Value{symvalue.NewSymbol("x"), symvalue.NewSymbol("y")}
	entry := state.CreateEntryState(program, stdin)
	entry.Solver.Add(symvalue.Ne(stdin[0], stdin[1]))

	pg := New(entry).Explore(Options{Strategy: BFS, StopWhenFound: false})
	term := append(append([]*state.State{}, pg.Deadended()...), pg.Errored()...)
	if len(term) != 1 {
		t.Fatalf("expected exactly 1 terminal state, got %d", len(term))
	}
	stdout, ok := term[0].StdoutBytes()
	if !ok {
		t.Fatalf("expected concrete stdout after OutNum's eager concretization")
	}
	if string(stdout) != "0" {
		t.Errorf("stdout = %q, want %q (x != y asserted)", stdout, "0")
	}
}

// Boundary behaviors (§8).
func TestEmptyProgramDeadends(t *testing.T) {
	pg := explore(nil, nil, Options{Strategy: BFS})
	if len(pg.Deadended()) != 1 {
		t.Fatalf("Deadended() has %d states, want 1", len(pg.Deadended()))
	}
	stdout, ok := pg.Deadended()[0].StdoutBytes()
	if !ok || len(stdout) != 0 {
		t.Errorf("stdout = %v, want empty", stdout)
	}
}

func TestImmediateExitDeadendsAfterOneStep(t *testing.T) {
	program := []ir.Instruction{{Op: ir.OpExit}}
	pg := explore(program, nil, Options{Strategy: BFS})
	if len(pg.Deadended()) != 1 {
		t.Fatalf("Deadended() has %d states, want 1", len(pg.Deadended()))
	}
	if pg.Steps != 1 {
		t.Errorf("Steps = %d, want 1", pg.Steps)
	}
}

func TestJumpToUnmarkedLabelErrors(t *testing.T) {
	program := []ir.Instruction{{Op: ir.OpJump, Label: "ghost"}}
	pg := explore(program, nil, Options{Strategy: BFS})
	if len(pg.Errored()) != 1 {
		t.Fatalf("Errored() has %d states, want 1", len(pg.Errored()))
	}
}

func TestBFSAndDFSAgreeOnTerminalClassifications(t *testing.T) {
	program := []ir.Instruction{
		{Op: ir.OpPush, Num: 0},
		{Op: ir.OpReadChar},
		{Op: ir.OpPush, Num: 0},
		{Op: ir.OpRetrieve},
		{Op: ir.OpJumpZero, Label: "Z"},
		{Op: ir.OpPush, Num: 'N'},
		{Op: ir.OpOutChar},
		{Op: ir.OpJump, Label: "END"},
		{Op: ir.OpMark, Label: "Z"},
		{Op: ir.OpPush, Num: 'Z'},
		{Op: ir.OpOutChar},
		{Op: ir.OpMark, Label: "END"},
		{Op: ir.OpExit},
	}
	newStdin := func() []symvalue.Value { return []symvalue.Value{symvalue.NewSymbol("a")} }

	bfs := explore(program, newStdin(), Options{Strategy: BFS, StopWhenFound: false})
	dfs := explore(program, newStdin(), Options{Strategy: DFS, StopWhenFound: false})

	counts := func(pg *PathGroup) (found, avoided, deadended, errored, unsat int) {
		return len(pg.Found()), len(pg.Avoided()), len(pg.Deadended()), len(pg.Errored()), len(pg.Unsat())
	}
	bf, ba, bd, be, bu := counts(bfs)
	df, da, dd, de, du := counts(dfs)
	if bf != df || ba != da || bd != dd || be != de || bu != du {
		t.Errorf("BFS and DFS disagree on terminal classification counts:\nbfs: %s\ndfs: %s",
			pretty.Sprint(struct{ Found, Avoided, Deadended, Errored, Unsat int }{bf, ba, bd, be, bu}),
			pretty.Sprint(struct{ Found, Avoided, Deadended, Errored, Unsat int }{df, da, dd, de, du}))
	}
}
