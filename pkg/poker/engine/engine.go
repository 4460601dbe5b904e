// Package engine implements the no-limit hold'em betting state machine and
// hand settlement. Every player operation runs inside a single ledger
// transaction: either the action, its derived pot partition, and any
// settlement all commit together, or nothing does.
package engine

import (
	"context"
	"errors"

	"github.com/coder/quartz"
	"github.com/sirupsen/logrus"

	"cardroom-server/internal/rng"
	"cardroom-server/pkg/deck"
	"cardroom-server/pkg/events"
	"cardroom-server/pkg/ledger"
)

// Engine drives hands against a ledger store. All collaborators are
// injected; the zero-value defaults are only filled in by New.
type Engine struct {
	store    ledger.Store
	recorder events.Recorder
	clock    quartz.Clock
	seed     func() int64
	logger   logrus.FieldLogger
}

// Config configures an Engine. Store is required; everything else has a
// sensible default.
type Config struct {
	Store    ledger.Store
	Recorder events.Recorder
	Clock    quartz.Clock
	Seed     func() int64
	Logger   logrus.FieldLogger
}

// New returns a new Engine
func New(config Config) *Engine {
	if config.Store == nil {
		panic("engine requires a ledger store")
	}

	e := &Engine{
		store:    config.Store,
		recorder: config.Recorder,
		clock:    config.Clock,
		seed:     config.Seed,
		logger:   config.Logger,
	}

	if e.recorder == nil {
		e.recorder = events.Discard{}
	}
	if e.clock == nil {
		e.clock = quartz.NewReal()
	}
	if e.seed == nil {
		e.seed = rng.Seed
	}
	if e.logger == nil {
		e.logger = logrus.StandardLogger()
	}

	return e
}

// Outcome describes what a player action caused
type Outcome struct {
	// HandEnded is true when the action completed the hand
	HandEnded bool

	// RoundAdvanced is true when the action closed a betting round and new
	// community cards were dealt
	RoundAdvanced bool

	// State is the hand state after the action
	State ledger.State

	// WinnerSeats is the union of winning seats across all pots. Only set
	// when HandEnded is true.
	WinnerSeats []int

	// Pots is the pot partition after the action
	Pots []*ledger.Pot
}

// Fold folds the account's seat
func (e *Engine) Fold(ctx context.Context, handUUID, accountID string) (*Outcome, error) {
	return e.act(ctx, handUUID, accountID, request{op: opFold})
}

// Check checks. The seat's commitment must already match the current bet.
func (e *Engine) Check(ctx context.Context, handUUID, accountID string) (*Outcome, error) {
	return e.act(ctx, handUUID, accountID, request{op: opCheck})
}

// Call matches the current bet. A call the seat cannot cover becomes an
// all-in for the remaining stack.
func (e *Engine) Call(ctx context.Context, handUUID, accountID string) (*Outcome, error) {
	return e.act(ctx, handUUID, accountID, request{op: opCall})
}

// Bet opens the betting round at the given total amount
func (e *Engine) Bet(ctx context.Context, handUUID, accountID string, amount int64) (*Outcome, error) {
	return e.act(ctx, handUUID, accountID, request{op: opBet, amount: amount})
}

// Raise raises the current bet to the given total amount
func (e *Engine) Raise(ctx context.Context, handUUID, accountID string, amount int64) (*Outcome, error) {
	return e.act(ctx, handUUID, accountID, request{op: opRaise, amount: amount})
}

// AllIn commits the seat's entire remaining stack
func (e *Engine) AllIn(ctx context.Context, handUUID, accountID string) (*Outcome, error) {
	return e.act(ctx, handUUID, accountID, request{op: opAllIn})
}

// HandDetail is a read-only view of a hand. HoleCards holds only the
// requesting account's own cards; every other seat's stay hidden.
type HandDetail struct {
	Hand      *ledger.Hand         `json:"hand"`
	Seats     []*ledger.SeatPlayer `json:"seats"`
	Actions   []*ledger.Action     `json:"actions"`
	Pots      []*ledger.Pot        `json:"pots"`
	HoleCards deck.Hand            `json:"holeCards,omitempty"`
}

// Hand returns the hand with its seats, actions, and pots
func (e *Engine) Hand(ctx context.Context, handUUID string) (*HandDetail, error) {
	var detail *HandDetail
	err := e.store.InTransaction(ctx, func(tx ledger.Tx) error {
		hand, err := tx.Hand(ctx, handUUID)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return ErrHandNotFound
			}
			return err
		}

		seats, err := tx.SeatsByHand(ctx, handUUID)
		if err != nil {
			return err
		}

		actions, err := tx.ActionsByHand(ctx, handUUID)
		if err != nil {
			return err
		}

		pots, err := tx.PotsByHand(ctx, handUUID)
		if err != nil {
			return err
		}

		detail = &HandDetail{Hand: hand, Seats: seats, Actions: actions, Pots: pots}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return detail, nil
}

// HandForAccount returns the hand as seen by accountID: the public detail
// plus the account's own hole cards when it holds a seat
func (e *Engine) HandForAccount(ctx context.Context, handUUID, accountID string) (*HandDetail, error) {
	detail, err := e.Hand(ctx, handUUID)
	if err != nil {
		return nil, err
	}

	if seat := seatForAccount(detail.Seats, accountID); seat != nil {
		detail.HoleCards = seat.HoleCards
	}

	return detail, nil
}

// record delivers post-commit audit records. Failures are logged, never
// returned: the transaction already committed.
func (e *Engine) record(ctx context.Context, action *events.ActionRecord, completion *events.CompletionRecord) {
	if action != nil {
		if err := e.recorder.HandAction(ctx, action); err != nil {
			e.logger.WithError(err).WithField("hand", action.HandUUID).Warn("could not record hand action")
		}
	}

	if completion != nil {
		if err := e.recorder.HandCompleted(ctx, completion); err != nil {
			e.logger.WithError(err).WithField("hand", completion.HandUUID).Warn("could not record hand completion")
		}
	}
}
