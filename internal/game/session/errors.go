package session

import (
	"errors"
	"fmt"
)

// Errors for session operations. All are expected, recoverable conditions
// that handlers turn into user-facing replies.
var (
	ErrUnauthorized       = errors.New("admin rights required")
	ErrGameAlreadyActive  = errors.New("a game is already active")
	ErrNoActiveGame       = errors.New("no active game")
	ErrNoOpenRegistration = errors.New("registration is not open")
	ErrWrongPhase         = errors.New("operation not allowed in this game phase")
	ErrNotRegistered      = errors.New("user has no entries")
	ErrAlreadyVIP         = errors.New("user is already a VIP")
	ErrNotVIP             = errors.New("user is not a VIP")
	ErrAlreadyBonused     = errors.New("bonus already granted this game")
)

// QuotaExceededError is returned when a user already holds their maximum
// number of entries.
type QuotaExceededError struct {
	Max int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("entry quota of %d exceeded", e.Max)
}

// CountMismatchError is returned when the admin-declared roulette count does
// not match the roster size.
type CountMismatchError struct {
	Expected int
	Actual   int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("declared %d participants, roster has %d", e.Expected, e.Actual)
}
