package riding

import "rideon-backend/internal/shared/apperr"

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Transition validates moving a session from one status to another.
//
//	ACTIVE  -> PAUSED | COMPLETED | CANCELLED
//	PAUSED  -> ACTIVE | COMPLETED | CANCELLED
//
// Requesting the current status is a no-op, terminal ones included.
func Transition(from, to Status) (Status, error) {
	if !to.Valid() {
		return from, apperr.Validation("unknown status %q", to)
	}
	if from == to {
		return from, nil
	}
	if from.Terminal() {
		return from, apperr.InvalidTransition(string(from), string(to))
	}
	switch {
	case from == StatusActive && to == StatusPaused:
	case from == StatusPaused && to == StatusActive:
	case to.Terminal():
	default:
		return from, apperr.InvalidTransition(string(from), string(to))
	}
	return to, nil
}
