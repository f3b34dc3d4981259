package core

import "chesscoach/internal/puzzle"

// State is the lifecycle of a training as reported to clients
type State int

const (
	StateLoading State = iota
	StateReady
	StateInProgress
	StateComplete
	StateUnavailable // no puzzle could be loaded, retry with skip
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateInProgress:
		return "in_progress"
	case StateComplete:
		return "complete"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// StateOf maps a puzzle session state
func StateOf(s puzzle.State) State {
	switch s {
	case puzzle.StateReady:
		return StateReady
	case puzzle.StateInProgress:
		return StateInProgress
	case puzzle.StateComplete:
		return StateComplete
	default:
		return StateLoading
	}
}
