package collection

// State is the per-domain lifecycle state.
type State string

// Lifecycle states.
const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateRebuilding    State = "rebuilding"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

// AllStates lists every state, in lifecycle order.
var AllStates = []State{StateUninitialized, StateLoading, StateRebuilding, StateReady, StateFailed}

var transitions = map[State][]State{
	StateUninitialized: {StateLoading},
	StateLoading:       {StateReady, StateRebuilding, StateFailed},
	StateRebuilding:    {StateReady, StateFailed},
	// READY only leaves through an explicit rebuild.
	StateReady: {StateRebuilding},
	// An explicit rebuild is the only way out of FAILED.
	StateFailed: {StateRebuilding},
}

// CanTransition reports whether s may move to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
