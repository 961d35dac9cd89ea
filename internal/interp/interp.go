// Package interp advances one State by exactly one instruction, per §4.4,
// producing 0 or more successor states. It is the only package that knows
// the semantics of every Whitespace opcode.
package interp

import (
	"strconv"

	"whitesymex/internal/constraint"
	"whitesymex/internal/ir"
	"whitesymex/internal/state"
	"whitesymex/internal/symvalue"
	"whitesymex/internal/wserr"
)

// Config carries the parameters Step needs beyond the state itself.
type Config struct {
	LoopLimit int
}

// Step executes one instruction on s and returns its successors. Without a
// fork, s itself (possibly mutated in place) is the only returned state. At
// a symbolic fork (conditional jump or div/mod), one branch continues in s
// and the other in a Fork of s; a branch the solver finds Unsat is dropped,
// so at most two states are returned. The caller (PathGroup) is responsible
// for replacing s with the returned slice in its frontier.
func Step(s *state.State, cfg Config) []*state.State {
	if s.Status != state.Active {
		return []*state.State{s}
	}
	if s.PC < 0 || s.PC >= len(s.Program) {
		s.Status = state.Deadended
		return []*state.State{s}
	}
	s.RecordStep()
	instr := s.Program[s.PC]
	op := instr.Op.String()

	switch instr.Op {
	case ir.OpPush:
		s.Stack.Push(symvalue.FromInt64(instr.Num))
		s.PC++

	case ir.OpDuplicate:
		if err := s.Stack.Duplicate(s.PC, op); err != nil {
			s.Fail(err.(*wserr.RuntimeError))
			return []*state.State{s}
		}
		s.PC++

	case ir.OpCopy:
		if err := s.Stack.Copy(int(instr.Num), s.PC, op); err != nil {
			s.Fail(err.(*wserr.RuntimeError))
			return []*state.State{s}
		}
		s.PC++

	case ir.OpSwap:
		if err := s.Stack.Swap(s.PC, op); err != nil {
			s.Fail(err.(*wserr.RuntimeError))
			return []*state.State{s}
		}
		s.PC++

	case ir.OpDiscard:
		if err := s.Stack.Discard(s.PC, op); err != nil {
			s.Fail(err.(*wserr.RuntimeError))
			return []*state.State{s}
		}
		s.PC++

	case ir.OpSlide:
		if err := s.Stack.Slide(int(instr.Num), s.PC, op); err != nil {
			s.Fail(err.(*wserr.RuntimeError))
			return []*state.State{s}
		}
		s.PC++

	case ir.OpAdd, ir.OpSub, ir.OpMul:
		return stepArith(s, cfg, instr.Op, op)

	case ir.OpDiv, ir.OpMod:
		return stepDivMod(s, cfg, instr.Op, op)

	case ir.OpStore:
		v, err := s.Stack.Pop(s.PC, op)
		if err != nil {
			s.Fail(err.(*wserr.RuntimeError))
			return []*state.State{s}
		}
		addr, err := s.Stack.Pop(s.PC, op)
		if err != nil {
			s.Fail(err.(*wserr.RuntimeError))
			return []*state.State{s}
		}
		s.Heap.Store(addr, v)
		s.PC++

	case ir.OpRetrieve:
		addr, err := s.Stack.Pop(s.PC, op)
		if err != nil {
			s.Fail(err.(*wserr.RuntimeError))
			return []*state.State{s}
		}
		s.Stack.Push(s.Heap.Retrieve(addr))
		s.PC++

	case ir.OpMark:
		s.PC++

	case ir.OpCall:
		target, ok := s.Labels[instr.Label]
		if !ok {
			s.Fail(wserr.New(wserr.BadLabel, s.PC, op, "call to undefined label %q", string(instr.Label)))
			return []*state.State{s}
		}
		s.CallStack = append(s.CallStack, s.PC+1)
		setPC(s, cfg, target)

	case ir.OpJump:
		target, ok := s.Labels[instr.Label]
		if !ok {
			s.Fail(wserr.New(wserr.BadLabel, s.PC, op, "jump to undefined label %q", string(instr.Label)))
			return []*state.State{s}
		}
		setPC(s, cfg, target)

	case ir.OpJumpZero, ir.OpJumpNegative:
		return stepCondJump(s, cfg, instr, op)

	case ir.OpReturn:
		if len(s.CallStack) == 0 {
			s.Fail(wserr.New(wserr.BadReturn, s.PC, op, "return with empty call stack"))
			return []*state.State{s}
		}
		target := s.CallStack[len(s.CallStack)-1]
		s.CallStack = s.CallStack[:len(s.CallStack)-1]
		setPC(s, cfg, target)

	case ir.OpExit:
		s.Status = state.Deadended

	case ir.OpOutChar:
		v, err := s.Stack.Pop(s.PC, op)
		if err != nil {
			s.Fail(err.(*wserr.RuntimeError))
			return []*state.State{s}
		}
		s.Stdout = append(s.Stdout, symvalue.Truncate8(v))
		s.PC++

	case ir.OpOutNum:
		v, err := s.Stack.Pop(s.PC, op)
		if err != nil {
			s.Fail(err.(*wserr.RuntimeError))
			return []*state.State{s}
		}
		emitNum(s, v)
		s.PC++

	case ir.OpReadChar:
		addr, err := s.Stack.Pop(s.PC, op)
		if err != nil {
			s.Fail(err.(*wserr.RuntimeError))
			return []*state.State{s}
		}
		if s.StdinCursor >= len(s.Stdin) {
			s.Fail(wserr.New(wserr.EOFStdin, s.PC, op, "read past end of stdin"))
			return []*state.State{s}
		}
		v := symvalue.ZeroExtendByte(s.Stdin[s.StdinCursor])
		s.StdinCursor++
		s.Heap.Store(addr, v)
		s.PC++

	case ir.OpReadNum:
		addr, err := s.Stack.Pop(s.PC, op)
		if err != nil {
			s.Fail(err.(*wserr.RuntimeError))
			return []*state.State{s}
		}
		n, ferr := readNum(s, op)
		if ferr != nil {
			s.Fail(ferr)
			return []*state.State{s}
		}
		s.Heap.Store(addr, symvalue.FromInt64(n))
		s.PC++

	default:
		s.Fail(wserr.New(wserr.InvalidInstruction, s.PC, op, "unknown opcode %v", instr.Op))
	}

	return []*state.State{s}
}

// setPC assigns the program counter and applies §4.4's loop bounding: every
// backward jump increments loop_counts[target]; exceeding LoopLimit
// deadends the state without further steps. "Exceeding" per §4.4 means the
// (LoopLimit+1)th backward jump to a target is the one that deadends, not
// the LoopLimit-th — intentional, matching the wording there rather than
// scenario 4's looser prose.
func setPC(s *state.State, cfg Config, target int) {
	if target <= s.PC {
		s.LoopCounts[target]++
		if cfg.LoopLimit > 0 && s.LoopCounts[target] > cfg.LoopLimit {
			s.Status = state.Deadended
			s.PC = target
			return
		}
	}
	s.PC = target
}

func stepArith(s *state.State, cfg Config, op ir.Op, opName string) []*state.State {
	b, err := s.Stack.Pop(s.PC, opName)
	if err != nil {
		s.Fail(err.(*wserr.RuntimeError))
		return []*state.State{s}
	}
	a, err := s.Stack.Pop(s.PC, opName)
	if err != nil {
		s.Fail(err.(*wserr.RuntimeError))
		return []*state.State{s}
	}
	var res symvalue.Value
	switch op {
	case ir.OpAdd:
		res = symvalue.Add(a, b)
	case ir.OpSub:
		res = symvalue.Sub(a, b)
	case ir.OpMul:
		res = symvalue.Mul(a, b)
	}
	s.Stack.Push(res)
	s.PC++
	return []*state.State{s}
}

// stepDivMod implements §4.1's divide-by-zero feasibility fork: if the
// divisor can be zero under current constraints, an Errored(DivByZero)
// successor is produced along the zero branch in addition to the normal
// division branch; infeasible branches are discarded.
func stepDivMod(s *state.State, cfg Config, op ir.Op, opName string) []*state.State {
	b, err := s.Stack.Pop(s.PC, opName)
	if err != nil {
		s.Fail(err.(*wserr.RuntimeError))
		return []*state.State{s}
	}
	a, err := s.Stack.Pop(s.PC, opName)
	if err != nil {
		s.Fail(err.(*wserr.RuntimeError))
		return []*state.State{s}
	}

	if isZero := b.IsZero(); isZero != nil {
		if *isZero {
			s.Fail(wserr.New(wserr.DivByZero, s.PC, opName, "division by concrete zero"))
			return []*state.State{s}
		}
		s.Stack.Push(divOp(op, a, b))
		s.PC++
		return []*state.State{s}
	}

	zero := symvalue.FromInt64(0)
	zeroState := s.Fork()
	nonzeroState := s

	zeroState.Solver.Add(symvalue.Eq(b, zero))
	nonzeroState.Solver.Add(symvalue.Ne(b, zero))

	var out []*state.State
	if zeroState.Solver.Check() != constraint.Unsat {
		zeroState.Fail(wserr.New(wserr.DivByZero, zeroState.PC, opName, "division by feasibly-zero divisor"))
		out = append(out, zeroState)
	}
	if nonzeroState.Solver.Check() != constraint.Unsat {
		nonzeroState.Stack.Push(divOp(op, a, b))
		nonzeroState.PC++
		out = append(out, nonzeroState)
	}
	return out
}

func divOp(op ir.Op, a, b symvalue.Value) symvalue.Value {
	if op == ir.OpDiv {
		return symvalue.SDiv(a, b)
	}
	return symvalue.SMod(a, b)
}

// stepCondJump implements JumpZero/JumpNegative, including the symbolic
// fork of §4.4: for each feasible branch, fork a state with the
// corresponding constraint added and PC set accordingly; infeasible
// branches are discarded. Taken-first ordering is used for reproducibility.
func stepCondJump(s *state.State, cfg Config, instr ir.Instruction, opName string) []*state.State {
	v, err := s.Stack.Pop(s.PC, opName)
	if err != nil {
		s.Fail(err.(*wserr.RuntimeError))
		return []*state.State{s}
	}

	target, ok := s.Labels[instr.Label]
	if !ok {
		s.Fail(wserr.New(wserr.BadLabel, s.PC, opName, "jump to undefined label %q", string(instr.Label)))
		return []*state.State{s}
	}

	var predicate *bool
	var takenPred, notTakenPred constraint.Pred
	if instr.Op == ir.OpJumpZero {
		predicate = v.IsZero()
		takenPred = symvalue.Eq(v, symvalue.FromInt64(0))
		notTakenPred = symvalue.Ne(v, symvalue.FromInt64(0))
	} else {
		predicate = v.IsNegative()
		takenPred = symvalue.Slt(v, symvalue.FromInt64(0))
		notTakenPred = symvalue.Sge(v, symvalue.FromInt64(0))
	}

	if predicate != nil {
		if *predicate {
			setPC(s, cfg, target)
		} else {
			s.PC++
		}
		return []*state.State{s}
	}

	takenState := s.Fork()
	notTakenState := s

	takenState.Solver.Add(takenPred)
	notTakenState.Solver.Add(notTakenPred)

	var out []*state.State
	if takenState.Solver.Check() != constraint.Unsat {
		setPC(takenState, cfg, target)
		out = append(out, takenState)
	}
	if notTakenState.Solver.Check() != constraint.Unsat {
		notTakenState.PC++
		out = append(out, notTakenState)
	}
	return out
}

// emitNum implements OutNum: if v is symbolic, it is concretized eagerly
// under the current model (§4.4's chosen reference behavior) and the
// concretization is asserted back as an equality so later branching in
// this state stays consistent with the digits actually printed.
func emitNum(s *state.State, v symvalue.Value) {
	var n int64
	if c, ok := v.AsConcrete(); ok {
		n = c.Int64()
	} else {
		names := constraint.Vars(v.Expr())
		model, _ := s.Solver.Model(names)
		n = constraint.ToSigned(constraint.Eval(v.Expr(), model)).Int64()
		s.Solver.Add(symvalue.Eq(v, symvalue.FromInt64(n)))
	}
	for _, c := range strconv.FormatInt(n, 10) {
		s.Stdout = append(s.Stdout, symvalue.FromInt64(int64(c)))
	}
}

func readNum(s *state.State, opName string) (int64, *wserr.RuntimeError) {
	const maxScan = 32
	digits := make([]byte, 0, maxScan)
	start := s.StdinCursor
	for i := 0; i < maxScan; i++ {
		idx := start + i
		if idx >= len(s.Stdin) {
			return 0, wserr.New(wserr.EOFStdin, s.PC, opName, "read_num ran past end of stdin before newline")
		}
		c, ok := s.Stdin[idx].AsConcrete()
		if !ok {
			return 0, wserr.New(wserr.EOFStdin, s.PC, opName, "read_num requires a concrete stdin window; byte %d is symbolic", idx)
		}
		b := byte(c.Int64())
		if b == '\n' {
			s.StdinCursor = idx + 1
			n, err := strconv.ParseInt(string(digits), 10, 64)
			if err != nil {
				return 0, wserr.New(wserr.EOFStdin, s.PC, opName, "read_num could not parse %q: %v", string(digits), err)
			}
			return n, nil
		}
		digits = append(digits, b)
	}
	return 0, wserr.New(wserr.EOFStdin, s.PC, opName, "read_num exceeded scan window without a newline")
}
