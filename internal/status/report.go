package status

import (
	"github.com/temirov/gitp/internal/tree"
)

// State is the observed condition of one node.
type State string

// Supported states.
const (
	StateClean     State = "clean"
	StateAhead     State = "ahead"
	StateBehind    State = "behind"
	StateDiverged  State = "diverged"
	StateModified  State = "modified"
	StateUnaligned State = "unaligned"
	StateAbsent    State = "absent"
	StateUnlinked  State = "unlinked"
	StateOverlaid  State = "overlaid"
	StateError     State = "error"
)

// OrderedStates lists every state in rendering order.
var OrderedStates = []State{StateClean, StateOverlaid, StateAhead, StateBehind, StateDiverged, StateModified, StateUnaligned, StateUnlinked, StateAbsent, StateError}

// IsProblem reports whether the state needs attention.
func (state State) IsProblem() bool {
	switch state {
	case StateClean, StateOverlaid:
		return false
	default:
		return true
	}
}

// Report is the status of one node and, recursively, of its children.
type Report struct {
	Path        string
	Target      tree.Target
	State       State
	Branch      string
	Commit      string
	AheadCount  int
	BehindCount int
	LinkTarget  string
	IsLink      bool
	IsOverlay   bool
	Message     string
	Children    []*Report
}

// Walk visits the report and its descendants in pre-order.
func (report *Report) Walk(visit func(report *Report, depth int)) {
	report.walk(visit, 0)
}

func (report *Report) walk(visit func(report *Report, depth int), depth int) {
	visit(report, depth)
	for _, child := range report.Children {
		child.walk(visit, depth+1)
	}
}

// Summary counts nodes per state.
type Summary struct {
	Counts map[State]int
	Total  int
}

// Summary counts the states of the report tree.
func (report *Report) Summary() Summary {
	summary := Summary{Counts: make(map[State]int)}
	report.Walk(func(current *Report, _ int) {
		summary.Counts[current.State]++
		summary.Total++
	})
	return summary
}

// Problems returns the number of nodes whose state needs attention.
func (summary Summary) Problems() int {
	problems := 0
	for state, count := range summary.Counts {
		if state.IsProblem() {
			problems += count
		}
	}
	return problems
}
