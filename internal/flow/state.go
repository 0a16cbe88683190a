package flow

import "errors"

type State int

const (
	StateEntry State = iota
	StatePlanning
	StateAnswering
	StateFinalizing
	StateDone
	StateImprovement
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEntry:
		return "entry"
	case StatePlanning:
		return "planning"
	case StateAnswering:
		return "answering"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateImprovement:
		return "improvement"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Busy reports whether a request is outstanding in this state.
func (s State) Busy() bool {
	return s == StatePlanning || s == StateFinalizing || s == StateImprovement
}

var (
	ErrBusy           = errors.New("a request is already in flight")
	ErrWrongState     = errors.New("not allowed in the current state")
	ErrEmptyIdea      = errors.New("tell me your idea first")
	ErrNoSelection    = errors.New("pick one of the choices first")
	ErrBadChoice      = errors.New("no such choice")
	ErrEmptyFeedback  = errors.New("say what you would like to change")
	ErrNothingToRetry = errors.New("nothing to retry")
)
