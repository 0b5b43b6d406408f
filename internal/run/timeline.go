package run

import (
	"fmt"
	"iter"
	"slices"
	"time"
)

type EventKind int

const (
	EventStarted EventKind = iota
	EventIteration
	EventPassed
	EventFailed
)

// Event is one step of a reconstructed timeline. Iteration events carry no
// timestamp: the backend only reports how many cycles completed. Started has
// none while the run is still pending.
type Event struct {
	Kind      EventKind
	Iteration int
	At        *time.Time
}

func (e Event) Title() string {
	switch e.Kind {
	case EventStarted:
		return "Started"
	case EventIteration:
		return fmt.Sprintf("Iteration %d", e.Iteration)
	case EventPassed:
		return "Pipeline Passed"
	case EventFailed:
		return "Pipeline Failed"
	default:
		return "Unknown"
	}
}

// Timeline lazily yields the events implied by the iteration counter. Each
// call to the returned sequence starts over from Started.
func Timeline(iteration int, status Status, start time.Time, end *time.Time, verdict Verdict) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		started := Event{Kind: EventStarted}
		if !start.IsZero() {
			startedAt := start
			started.At = &startedAt
		}
		if !yield(started) {
			return
		}
		for k := 1; k <= iteration; k++ {
			if !yield(Event{Kind: EventIteration, Iteration: k}) {
				return
			}
		}
		if !status.IsTerminal() {
			return
		}
		kind := EventFailed
		if verdict == VerdictPassed {
			kind = EventPassed
		}
		yield(Event{Kind: kind, At: end})
	}
}

// TimelineEvents collects Timeline into a slice.
func TimelineEvents(iteration int, status Status, start time.Time, end *time.Time, verdict Verdict) []Event {
	return slices.Collect(Timeline(iteration, status, start, end, verdict))
}
