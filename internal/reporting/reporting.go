// Package reporting formats a finished PathGroup.Explore run for the CLI,
// the one ambient concern this repo still owes its teacher's reporting
// package a home for: human-readable summary output, not a persisted
// report format.
package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"whitesymex/internal/pathgroup"
)

// Summary is a plain snapshot of one Explore run's bucket sizes, ready to
// print or to inspect from a test.
type Summary struct {
	Steps     int
	Active    int
	Found     int
	Avoided   int
	Deadended int
	Errored   int
	Unsat     int
	Elapsed   time.Duration

	// SampleErrorTrace and SampleErrorTrail describe the first Errored
	// state of the run, if any: the full stack-carrying cause (§7) and the
	// fork chain of IDs that led to it, so a failing run's report says
	// *which* path raised *what*, not just a bucket count.
	SampleErrorTrace string
	SampleErrorTrail []uuid.UUID
}

// Summarize reads a PathGroup's buckets into a Summary.
func Summarize(pg *pathgroup.PathGroup, elapsed time.Duration) Summary {
	s := Summary{
		Steps:     pg.Steps,
		Active:    len(pg.Active()),
		Found:     len(pg.Found()),
		Avoided:   len(pg.Avoided()),
		Deadended: len(pg.Deadended()),
		Errored:   len(pg.Errored()),
		Unsat:     len(pg.Unsat()),
		Elapsed:   elapsed,
	}
	if errored := pg.Errored(); len(errored) > 0 {
		first := errored[0]
		s.SampleErrorTrace = first.Err.Trace()
		s.SampleErrorTrail = first.Trail()
	}
	return s
}

// WriteTo prints a one-paragraph human summary, matching the teacher's
// plain fmt.Fprintf style (no templating engine, no structured logger).
func (s Summary) WriteTo(w io.Writer) {
	fmt.Fprintf(w, "explored %s step%s in %s\n",
		humanize.Comma(int64(s.Steps)), plural(s.Steps), s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  found=%s avoided=%s deadended=%s errored=%s unsat=%s active=%s\n",
		humanize.Comma(int64(s.Found)), humanize.Comma(int64(s.Avoided)),
		humanize.Comma(int64(s.Deadended)), humanize.Comma(int64(s.Errored)),
		humanize.Comma(int64(s.Unsat)), humanize.Comma(int64(s.Active)))
	if s.SampleErrorTrace != "" {
		fmt.Fprintf(w, "  sample error (lineage %s):\n%s\n", formatTrail(s.SampleErrorTrail), s.SampleErrorTrace)
	}
}

// formatTrail renders a fork chain as a short "parent>child" path of
// 8-character ID prefixes, cheap enough to print on every errored run.
func formatTrail(trail []uuid.UUID) string {
	parts := make([]string, len(trail))
	for i, id := range trail {
		parts[i] = id.String()[:8]
	}
	return strings.Join(parts, ">")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
