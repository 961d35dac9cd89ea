// Package state implements the State snapshot of §3: the complete machine
// state an Interpreter step advances, and the only place instructions,
// memory, and a solver context come together.
package state

import (
	"github.com/google/uuid"

	"whitesymex/internal/constraint"
	"whitesymex/internal/ir"
	"whitesymex/internal/memory"
	"whitesymex/internal/symvalue"
	"whitesymex/internal/wserr"
)

// State is the complete machine snapshot of §3. A PathGroup exclusively
// owns its states; a state exclusively owns its Stack/Heap/CallStack/
// Stdin/Stdout/Solver (§3 Ownership).
type State struct {
	ID uuid.UUID
	// Lineage holds every ancestor ID this state descends from, oldest
	// first, appended to on Fork. It is the trail a diagnostic line walks
	// to show how a terminal state was reached (reporting's sample error).
	Lineage []uuid.UUID

	PC         int
	Stack      *memory.Stack
	Heap       *memory.Heap
	CallStack  []int
	Labels     map[ir.Label]int
	Program    []ir.Instruction

	Stdin       []symvalue.Value
	StdinCursor int
	Stdout      []symvalue.Value

	Solver     *constraint.Solver
	LoopCounts map[int]int

	Status Status
	Err    *wserr.RuntimeError

	// stepCount is the total number of interpreter steps this lineage has
	// taken.
	stepCount int
}

// CreateEntryState builds the initial state for a program, per §3
// Lifecycle: every field empty except labels (pre-scanned from Mark
// instructions) and stdin.
func CreateEntryState(program []ir.Instruction, stdin []symvalue.Value) *State {
	return &State{
		ID:         uuid.New(),
		PC:         0,
		Stack:      memory.NewStack(),
		Heap:       memory.NewHeap(),
		CallStack:  nil,
		Labels:     buildLabelTable(program),
		Program:    program,
		Stdin:      stdin,
		Solver:     constraint.New(),
		LoopCounts: map[int]int{},
		Status:     Active,
	}
}

func buildLabelTable(program []ir.Instruction) map[ir.Label]int {
	labels := map[ir.Label]int{}
	for i, instr := range program {
		if instr.Op == ir.OpMark {
			labels[instr.Label] = i
		}
	}
	return labels
}

// Fork clones the state into an independent owner: a deep copy of stack,
// heap, call stack, stdin/stdout slices, and solver, with a fresh ID. Both
// the original and the fork are safe to mutate independently afterward
// (§3 Ownership, §5 "forking is deep-copy").
func (s *State) Fork() *State {
	cs := make([]int, len(s.CallStack))
	copy(cs, s.CallStack)
	stdin := make([]symvalue.Value, len(s.Stdin))
	copy(stdin, s.Stdin)
	stdout := make([]symvalue.Value, len(s.Stdout))
	copy(stdout, s.Stdout)
	loopCounts := make(map[int]int, len(s.LoopCounts))
	for k, v := range s.LoopCounts {
		loopCounts[k] = v
	}
	lineage := make([]uuid.UUID, len(s.Lineage)+1)
	copy(lineage, s.Lineage)
	lineage[len(s.Lineage)] = s.ID
	return &State{
		ID:          uuid.New(),
		Lineage:     lineage,
		PC:          s.PC,
		Stack:       s.Stack.Clone(),
		Heap:        s.Heap.Clone(),
		CallStack:   cs,
		Labels:      s.Labels, // immutable after entry; shared is safe
		Program:     s.Program,
		Stdin:       stdin,
		StdinCursor: s.StdinCursor,
		Stdout:      stdout,
		Solver:      s.Solver.Clone(),
		LoopCounts:  loopCounts,
		Status:      s.Status,
		stepCount:   s.stepCount,
	}
}

// StepCount reports how many interpreter steps this state's lineage has
// executed. PathGroup's step budget (§5) counts its own Steps field, not
// this value.
func (s *State) StepCount() int { return s.stepCount }

// Trail returns the full fork chain from the entry state down to this one,
// oldest first, ending with s.ID itself.
func (s *State) Trail() []uuid.UUID {
	trail := make([]uuid.UUID, len(s.Lineage)+1)
	copy(trail, s.Lineage)
	trail[len(s.Lineage)] = s.ID
	return trail
}

// RecordStep increments the step counter. Called once per Interpreter.Step.
func (s *State) RecordStep() { s.stepCount++ }

// Fail transitions the state to Errored with the given cause.
func (s *State) Fail(err *wserr.RuntimeError) {
	s.Status = Errored
	s.Err = err
}

// StdoutBytes returns stdout as bytes when every byte so far is concrete;
// ok is false the moment a symbolic byte appears. The goal/avoid matcher in
// PathGroup does not use it: it always matches through solver queries.
func (s *State) StdoutBytes() ([]byte, bool) {
	out := make([]byte, 0, len(s.Stdout))
	for _, v := range s.Stdout {
		c, ok := v.AsConcrete()
		if !ok {
			return nil, false
		}
		out = append(out, byte(c.Int64()))
	}
	return out, true
}

// Concretize implements §6's programmatic surface `State::concretize(vars?)
// -> Vec<u8>`: it resolves s.Stdin under one model of the state's
// accumulated path constraints and returns it as bytes, the witness input
// that drives this state down the path it actually took. With no vars
// given, every symbolic stdin byte's own variable is queried.
func (s *State) Concretize(vars []string) []byte {
	if len(vars) == 0 {
		seen := map[string]bool{}
		for _, v := range s.Stdin {
			if v.IsConcrete() {
				continue
			}
			for _, name := range constraint.Vars(v.Expr()) {
				if !seen[name] {
					seen[name] = true
					vars = append(vars, name)
				}
			}
		}
	}
	model, _ := s.Solver.Model(vars)

	out := make([]byte, 0, len(s.Stdin))
	for _, v := range s.Stdin {
		if c, ok := v.AsConcrete(); ok {
			out = append(out, byte(c.Int64()))
			continue
		}
		n := constraint.ToSigned(constraint.Eval(v.Expr(), model))
		out = append(out, byte(n.Int64()))
	}
	return out
}
