package txtracker

import (
	"errors"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

// State is an alias for domain.TxState for internal use.
type State = domain.TxState

// State constants re-exported for convenience.
const (
	StateIdle          = domain.TxStateIdle
	StatePending       = domain.TxStatePending
	StateSealedSuccess = domain.TxStateSealedSuccess
	StateSealedError   = domain.TxStateSealedError
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed state transitions.
// Pending -> Pending is a new submission superseding the tracked one.
var ValidTransitions = map[State][]State{
	StateIdle: {StatePending},
	StatePending: {
		StatePending,
		StateSealedSuccess,
		StateSealedError,
		StateIdle,
	},
	StateSealedSuccess: {StateIdle, StatePending},
	StateSealedError:   {StateIdle, StatePending},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// IsSealed reports whether s is a final on-chain outcome.
func IsSealed(s State) bool {
	return s == StateSealedSuccess || s == StateSealedError
}
