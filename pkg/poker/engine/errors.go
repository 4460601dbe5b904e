package engine

import (
	"errors"
	"fmt"
)

// sentinel errors callers can test with errors.Is
var (
	// ErrHandNotFound is returned when the hand does not exist
	ErrHandNotFound = errors.New("hand not found")

	// ErrTableNotFound is returned when the table has no configuration
	ErrTableNotFound = errors.New("table not found")

	// ErrSeatNotFound is returned when the account has no seat in the hand
	ErrSeatNotFound = errors.New("seat not found")

	// ErrHandComplete is returned when acting on a completed hand
	ErrHandComplete = errors.New("hand is already complete")

	// ErrHandInProgress is returned when starting a hand while one is active
	ErrHandInProgress = errors.New("hand is already in progress")

	// ErrNotEnoughPlayers is returned when a hand cannot be started
	ErrNotEnoughPlayers = errors.New("not enough funded players")

	// ErrNotYourTurn is returned when a seat acts out of turn
	ErrNotYourTurn = errors.New("it is not your turn")

	// ErrAlreadyActed is returned when a folded or all-in seat tries to act
	ErrAlreadyActed = errors.New("you can no longer act in this hand")

	// ErrInvalidAmount is returned when an action's amount breaks the betting
	// rules. Wrapped errors carry the specific reason.
	ErrInvalidAmount = errors.New("invalid amount")
)

func invalidAmount(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidAmount, fmt.Sprintf(format, a...))
}
