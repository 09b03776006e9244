package sandclock

import (
	"fmt"
	"strconv"
	"time"
)

const (
	RunStarted EventKind = iota
	IterationStarted
	IterationFinished
	RunFinished
)

type (
	// EventKind tells which point of a timed run an Event reports.
	EventKind int

	// Event is one report emitted while a wrapped callable is timed.
	// Run identifies the invocation the event belongs to. Index is zero based,
	// Duration is set on IterationFinished, Total and Iterations are set on RunFinished.
	Event struct {
		Run        uint64
		Kind       EventKind
		Name       string
		Async      bool
		Args       []any
		Index      int
		Duration   time.Duration
		Total      time.Duration
		Iterations int
		Precision  int
	}
)

func (k EventKind) String() string {
	switch k {
	case RunStarted:
		return "run started"
	case IterationStarted:
		return "iteration started"
	case IterationFinished:
		return "iteration finished"
	case RunFinished:
		return "run finished"
	default:
		return "unknown"
	}
}

func (e Event) String() string {
	switch e.Kind {
	case RunStarted:
		kind := "function"
		if e.Async {
			kind = "async function"
		}
		return fmt.Sprintf("sandclock: %s %s with args %v", kind, e.Name, e.Args)
	case IterationStarted:
		return fmt.Sprintf("sandclock: iter: %d started, %s with args %v", e.Index, e.Name, e.Args)
	case IterationFinished:
		return fmt.Sprintf("sandclock: iter: %d finished, %s in %s second(s)",
			e.Index, e.Name, formatSeconds(e.Duration, e.Precision))
	case RunFinished:
		return fmt.Sprintf("sandclock: total time: %s second(s), total iterations: %d",
			formatSeconds(e.Total, e.Precision), e.Iterations)
	default:
		return fmt.Sprintf("sandclock: %s", e.Kind)
	}
}

func formatSeconds(d time.Duration, precision int) string {
	return strconv.FormatFloat(d.Seconds(), 'f', precision, 64)
}
