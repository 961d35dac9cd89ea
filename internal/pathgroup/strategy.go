package pathgroup

// Strategy selects which active state PathGroup.Explore steps next (§4.5).
type Strategy int

const (
	BFS Strategy = iota
	DFS
	Random
)

func (s Strategy) String() string {
	switch s {
	case BFS:
		return "bfs"
	case DFS:
		return "dfs"
	case Random:
		return "random"
	default:
		return "unknown"
	}
}

// ParseStrategy maps the CLI's --strategy flag values to a Strategy.
func ParseStrategy(name string) (Strategy, bool) {
	switch name {
	case "bfs":
		return BFS, true
	case "dfs":
		return DFS, true
	case "random":
		return Random, true
	default:
		return 0, false
	}
}
