package pipeline

import (
	"fmt"
	"time"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

// State is a step of one ingestion.
type State int

const (
	Idle State = iota
	Reading
	Summarizing
	Persisting
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reading:
		return "reading"
	case Summarizing:
		return "summarizing"
	case Persisting:
		return "persisting"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// CanTransition reports whether to directly follows s. Stages advance one
// at a time; any non-terminal state may fail.
func (s State) CanTransition(to State) bool {
	if s.Terminal() {
		return false
	}
	if to == Failed {
		return true
	}
	return to == s+1
}

// Ingestion records one run of the ingest pipeline.
type Ingestion struct {
	Name      string
	StartedAt time.Time
	Trail     []State
	Err       error
	Dataset   dataset.Dataset
}

func newIngestion(name string, now time.Time) *Ingestion {
	return &Ingestion{Name: name, StartedAt: now, Trail: []State{Idle}}
}

// State returns the current state.
func (in *Ingestion) State() State {
	return in.Trail[len(in.Trail)-1]
}

func (in *Ingestion) advance(to State) {
	from := in.State()
	if !from.CanTransition(to) {
		panic(fmt.Sprintf("pipeline: invalid transition %s -> %s", from, to))
	}
	in.Trail = append(in.Trail, to)
}

func (in *Ingestion) fail(err error) {
	in.Err = err
	in.advance(Failed)
}
