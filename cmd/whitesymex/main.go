// Command whitesymex is the CLI surface of §6: it parses a Whitespace
// program, builds an entry state from stdin, and symbolically explores it
// looking for a path whose stdout contains --find and avoids --avoid.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"

	"whitesymex/internal/pathgroup"
	"whitesymex/internal/reporting"
	"whitesymex/internal/state"
	"whitesymex/internal/symvalue"
	"whitesymex/internal/wsparse"
)

const version = "0.1.0"

// cliOptions is the parsed form of §6's CLI surface plus the flags
// SPEC_FULL.md adds (--seed, --max-steps) to expose engine knobs the
// programmatic surface already has, and --symbolic to let the CLI drive a
// symbolic-stdin search rather than only ever replaying concrete bytes.
type cliOptions struct {
	file      string
	find      []byte
	avoid     []byte
	strategy  pathgroup.Strategy
	loopLimit int
	seed      int64
	maxSteps  int
	stdinPath string
	symbolicN int
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	for _, a := range args {
		switch a {
		case "--version":
			fmt.Printf("whitesymex %s\n", version)
			return
		case "-h", "--help":
			usage()
			return
		}
	}

	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "whitesymex: %v\n", err)
		os.Exit(2)
	}

	src, err := os.ReadFile(opts.file)
	if err != nil {
		log.Fatalf("whitesymex: reading %s: %v", opts.file, err)
	}
	program, err := wsparse.Parse(src)
	if err != nil {
		log.Fatalf("whitesymex: parsing %s: %v", opts.file, err)
	}

	stdin, err := readStdinValues(opts.stdinPath, opts.symbolicN)
	if err != nil {
		log.Fatalf("whitesymex: %v", err)
	}

	entry := state.CreateEntryState(program, stdin)
	pg := pathgroup.New(entry)

	start := time.Now()
	pg.Explore(pathgroup.Options{
		Find:          opts.find,
		Avoid:         opts.avoid,
		Strategy:      opts.strategy,
		LoopLimit:     opts.loopLimit,
		Seed:          opts.seed,
		MaxSteps:      opts.maxSteps,
		StopWhenFound: true,
	})
	elapsed := time.Since(start)

	summary := reporting.Summarize(pg, elapsed)
	summary.WriteTo(os.Stderr)

	found := pg.Found()
	tty := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if len(found) > 0 {
		printVerdict(tty, "found", true)
		witness := found[0].Concretize(nil)
		os.Stdout.Write(witness)
		os.Exit(0)
	}

	printVerdict(tty, "no solution", false)
	os.Exit(1)
}

// printVerdict prints the one-line pass/fail verdict, in color when stderr
// is a real terminal and plain otherwise — the teacher's isatty gate
// pattern, here deciding whether ANSI escapes are safe to emit at all.
func printVerdict(tty bool, msg string, ok bool) {
	if !tty {
		fmt.Fprintf(os.Stderr, "whitesymex: %s\n", msg)
		return
	}
	color := "\033[31m"
	if ok {
		color = "\033[32m"
	}
	fmt.Fprintf(os.Stderr, "%swhitesymex: %s\033[0m\n", color, msg)
}

func parseArgs(args []string) (cliOptions, error) {
	opts := cliOptions{strategy: pathgroup.BFS, loopLimit: 10}
	var positional []string

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "--find":
			v, err := flagValue(args, &i)
			if err != nil {
				return opts, err
			}
			opts.find = []byte(v)
		case "--avoid":
			v, err := flagValue(args, &i)
			if err != nil {
				return opts, err
			}
			opts.avoid = []byte(v)
		case "--strategy":
			v, err := flagValue(args, &i)
			if err != nil {
				return opts, err
			}
			strat, ok := pathgroup.ParseStrategy(v)
			if !ok {
				return opts, fmt.Errorf("unknown --strategy %q (want bfs, dfs, or random)", v)
			}
			opts.strategy = strat
		case "--loop-limit":
			v, err := flagValue(args, &i)
			if err != nil {
				return opts, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, fmt.Errorf("--loop-limit: %v", err)
			}
			opts.loopLimit = n
		case "--seed":
			v, err := flagValue(args, &i)
			if err != nil {
				return opts, err
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return opts, fmt.Errorf("--seed: %v", err)
			}
			opts.seed = n
		case "-o", "--max-steps":
			v, err := flagValue(args, &i)
			if err != nil {
				return opts, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, fmt.Errorf("--max-steps: %v", err)
			}
			opts.maxSteps = n
		case "--stdin":
			v, err := flagValue(args, &i)
			if err != nil {
				return opts, err
			}
			opts.stdinPath = v
		case "--symbolic":
			v, err := flagValue(args, &i)
			if err != nil {
				return opts, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, fmt.Errorf("--symbolic: %v", err)
			}
			opts.symbolicN = n
		default:
			positional = append(positional, a)
		}
	}

	if len(positional) == 0 {
		return opts, fmt.Errorf("missing program file")
	}
	opts.file = positional[0]

	if opts.seed == 0 {
		opts.seed = time.Now().UnixNano()
	}
	return opts, nil
}

// flagValue consumes the argument following a flag, advancing i. It errors
// if the flag is the last token.
func flagValue(args []string, i *int) (string, error) {
	if *i+1 >= len(args) {
		return "", fmt.Errorf("%s requires a value", args[*i])
	}
	*i++
	return args[*i], nil
}

// readStdinValues loads the entry state's input tape: --stdin FILE supplies
// leading concrete bytes, and --symbolic N appends N fresh symbolic bytes
// ("stdin0", "stdin1", ...) after them — the knob that lets the CLI reach
// the same symbolic-stdin search the programmatic surface performs (e.g.
// the password-checker scenario), instead of only ever exploring concrete
// input. With neither flag given, the tape is empty and any ReadChar/
// ReadNum immediately fails EOFStdin.
func readStdinValues(path string, symbolicN int) ([]symvalue.Value, error) {
	var out []symvalue.Value
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading --stdin file: %w", err)
		}
		out = make([]symvalue.Value, len(raw))
		for i, b := range raw {
			out[i] = symvalue.FromInt64(int64(b))
		}
	}
	for i := 0; i < symbolicN; i++ {
		out = append(out, symvalue.NewSymbol(fmt.Sprintf("stdin%d", i)))
	}
	return out, nil
}

func usage() {
	fmt.Println(`whitesymex: symbolic execution engine for Whitespace programs

Usage:
  whitesymex [flags] <file>

Flags:
  --find BYTES        goal substring: stop on a path whose stdout contains it
  --avoid BYTES       forbidden substring: abandon a path whose stdout contains it
  --strategy NAME      bfs, dfs, or random (default bfs)
  --loop-limit N       per-target backward-jump bound before a path deadends (default 10)
  --seed N             RNG seed for the random strategy
  -o, --max-steps N    stop exploring after N interpreter steps (default unbounded)
  --stdin FILE         concrete bytes fed to ReadChar/ReadNum (default empty)
  --symbolic N         append N fresh symbolic bytes after --stdin's bytes
  --version            print the version and exit
  -h, --help           print this message and exit`)
}
