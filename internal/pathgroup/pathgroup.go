// Package pathgroup implements §4.5: a frontier of live states plus
// terminal buckets, scheduled by a Strategy, classifying each successor of
// a step as active, found, avoided, deadended, errored, or unsat.
package pathgroup

import (
	"math/rand"
	"time"

	"whitesymex/internal/constraint"
	"whitesymex/internal/interp"
	"whitesymex/internal/state"
	"whitesymex/internal/symvalue"
)

// PathGroup owns a set of states exclusively (§3 Ownership). A state is
// destroyed the moment it leaves every bucket it's in — in practice, once
// it is reclassified out of Active it is never stepped again.
type PathGroup struct {
	active    []*state.State
	found     []*state.State
	avoided   []*state.State
	deadended []*state.State
	errored   []*state.State
	unsat     []*state.State

	strategy Strategy
	rng      *rand.Rand

	Steps int
}

// New returns a PathGroup whose only active state is entry.
func New(entry *state.State) *PathGroup {
	return &PathGroup{active: []*state.State{entry}, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Active, Found, Avoided, Deadended, Errored, Unsat expose the current
// bucket contents. Callers must not mutate the returned slices.
func (pg *PathGroup) Active() []*state.State    { return pg.active }
func (pg *PathGroup) Found() []*state.State     { return pg.found }
func (pg *PathGroup) Avoided() []*state.State   { return pg.avoided }
func (pg *PathGroup) Deadended() []*state.State { return pg.deadended }
func (pg *PathGroup) Errored() []*state.State   { return pg.errored }
func (pg *PathGroup) Unsat() []*state.State     { return pg.unsat }

// Options configures Explore. A zero value is valid: it runs BFS with no
// loop bound and, since StopWhenFound is false, explores until Active is
// empty.
type Options struct {
	Find     []byte
	Avoid    []byte
	Strategy Strategy
	LoopLimit int

	// MaxSteps bounds the total number of interpreter steps across the
	// whole run; 0 means unbounded. This is the "per-call budget (step
	// count or wall time)" §5 requires Explore to check between steps.
	MaxSteps int
	// Deadline, if non-zero, stops Explore once time.Now() passes it.
	Deadline time.Time

	// Seed fixes the Random strategy's RNG for reproducibility (§5). 0
	// means derive a seed from the current time.
	Seed int64

	// StopWhenFound ends Explore as soon as any Found state appears.
	// DefaultOptions and the CLI set it (§6's CLI behavior: "exit code 0 if
	// a found state is produced"). Leave it false to keep exploring the full state space
	// (useful for the BFS/DFS terminal-set equivalence property, §8).
	StopWhenFound bool
}

// DefaultOptions returns the spec's documented defaults: bfs strategy,
// loop-limit 10, stop at first found.
func DefaultOptions() Options {
	return Options{Strategy: BFS, LoopLimit: 10, StopWhenFound: true}
}

// Explore advances the frontier until Active is empty, the stop predicate
// fires, or the step/time budget is exceeded.
func (pg *PathGroup) Explore(opts Options) *PathGroup {
	if opts.Seed != 0 {
		pg.rng = rand.New(rand.NewSource(opts.Seed))
	}
	pg.strategy = opts.Strategy

	// Reclassify whatever is currently active before stepping anything,
	// so a caller who asserted constraints on the entry state directly
	// (§6: "adding user constraints before exploration") gets an
	// immediate Unsat/Found/Avoided verdict instead of one wasted step.
	pending := pg.active
	pg.active = nil
	for _, s := range pending {
		pg.classify(s, opts.Find, opts.Avoid, true)
	}

	for len(pg.active) > 0 {
		if opts.MaxSteps > 0 && pg.Steps >= opts.MaxSteps {
			return pg
		}
		if !opts.Deadline.IsZero() && time.Now().After(opts.Deadline) {
			return pg
		}

		s := pg.pop()
		outLenBefore := len(s.Stdout)
		successors := interp.Step(s, interp.Config{LoopLimit: opts.LoopLimit})
		pg.Steps++

		for _, succ := range successors {
			grew := len(succ.Stdout) > outLenBefore
			pg.classify(succ, opts.Find, opts.Avoid, grew)
		}

		if opts.StopWhenFound && len(pg.found) > 0 {
			return pg
		}
	}
	return pg
}

// pop removes and returns the next state to step, per Strategy.
func (pg *PathGroup) pop() *state.State {
	n := len(pg.active)
	var idx int
	switch pg.strategy {
	case DFS:
		idx = n - 1
	case Random:
		idx = pg.rng.Intn(n)
	default: // BFS
		idx = 0
	}
	s := pg.active[idx]
	pg.active = append(pg.active[:idx], pg.active[idx+1:]...)
	return s
}

// classify buckets succ according to its terminal status and, for states
// still Active, §4.4's goal/avoid matching. grew reports whether this step
// appended to stdout, the trigger §4.4 specifies for re-scanning.
func (pg *PathGroup) classify(succ *state.State, find, avoid []byte, grew bool) {
	switch succ.Status {
	case state.Errored:
		pg.errored = append(pg.errored, succ)
		return
	case state.Deadended:
		pg.deadended = append(pg.deadended, succ)
		return
	case state.Avoided:
		pg.avoided = append(pg.avoided, succ)
		return
	case state.Found:
		pg.found = append(pg.found, succ)
		return
	case state.Unsat:
		pg.unsat = append(pg.unsat, succ)
		return
	}

	if grew {
		if len(avoid) > 0 && stdoutMayContain(succ, avoid) {
			succ.Status = state.Avoided
			pg.avoided = append(pg.avoided, succ)
			return
		}
		if len(find) > 0 && assertStdoutContains(succ, find) {
			succ.Status = state.Found
			pg.found = append(pg.found, succ)
			return
		}
	}

	if succ.Solver.Check() == constraint.Unsat {
		succ.Status = state.Unsat
		pg.unsat = append(pg.unsat, succ)
		return
	}

	pg.active = append(pg.active, succ)
}

// stdoutMayContain implements §4.4's avoid policy (a): concretize — check,
// without committing any constraint to succ's real solver, whether any
// model of the current path could make some window of stdout equal avoid.
// Any such model is treated as avoided, a conservative early termination.
func stdoutMayContain(succ *state.State, avoid []byte) bool {
	for start := 0; start+len(avoid) <= len(succ.Stdout); start++ {
		probe := succ.Solver.Clone()
		for i, b := range avoid {
			probe.Add(symvalue.Eq(succ.Stdout[start+i], symvalue.FromInt64(int64(b))))
		}
		if probe.Check() != constraint.Unsat {
			return true
		}
	}
	return false
}

// assertStdoutContains implements §4.4's find policy (b): assert the
// stdout window equals the literal and check SAT. The first satisfiable
// window's equality constraints are committed to succ's real solver so a
// later concretize() returns a witness consistent with the match.
func assertStdoutContains(succ *state.State, find []byte) bool {
	for start := 0; start+len(find) <= len(succ.Stdout); start++ {
		mark := succ.Solver.Push()
		for i, b := range find {
			succ.Solver.Add(symvalue.Eq(succ.Stdout[start+i], symvalue.FromInt64(int64(b))))
		}
		if succ.Solver.Check() != constraint.Unsat {
			return true
		}
		succ.Solver.Pop(mark)
	}
	return false
}
