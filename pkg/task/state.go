package task

import (
	"github.com/quantfabric/fincore/pkg/faults"
)

// State is the lifecycle position of a task. A task starts Pending and
// moves exactly once to one of the three terminal states; terminal states
// never change afterwards.
type State int32

const (
	// StatePending means the task has not settled yet.
	StatePending State = iota
	// StateSucceeded means the task settled with a result.
	StateSucceeded
	// StateFaulted means the task settled with an error.
	StateFaulted
	// StateCancelled means the task settled through cancellation.
	StateCancelled
)

var stateNames = map[State]string{
	StatePending:   "pending",
	StateSucceeded: "succeeded",
	StateFaulted:   "faulted",
	StateCancelled: "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the state is one of the three settled states.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFaulted || s == StateCancelled
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, faults.Argumentf("%d is not a task state", int32(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState maps a state name to its State.
func ParseState(name string) (State, error) {
	for state, n := range stateNames {
		if n == name {
			return state, nil
		}
	}
	return 0, faults.Argumentf("%q is not a task state", name)
}
