package engine

import (
	"context"
	"errors"
	"time"

	"cardroom-server/pkg/events"
	"cardroom-server/pkg/ledger"
	"cardroom-server/pkg/poker/potengine"
)

type op int

const (
	opFold op = iota
	opCheck
	opCall
	opBet
	opRaise
	opAllIn
)

type request struct {
	op     op
	amount int64
}

// act runs a single player action inside one transaction: validate, apply,
// rebuild pots, then either pass the turn, advance the round, or settle.
func (e *Engine) act(ctx context.Context, handUUID, accountID string, req request) (*Outcome, error) {
	var outcome *Outcome
	var actionRecord *events.ActionRecord
	var completionRecord *events.CompletionRecord

	err := e.store.InTransaction(ctx, func(tx ledger.Tx) error {
		hand, err := tx.Hand(ctx, handUUID)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return ErrHandNotFound
			}
			return err
		}

		if hand.State == ledger.StateCompleted {
			return ErrHandComplete
		}

		seats, err := tx.SeatsByHand(ctx, handUUID)
		if err != nil {
			return err
		}

		seat := seatForAccount(seats, accountID)
		if seat == nil {
			return ErrSeatNotFound
		}

		if hand.CurrentActionSeat == nil || *hand.CurrentActionSeat != seat.Seat {
			return ErrNotYourTurn
		}

		if seat.Status != ledger.SeatActive {
			return ErrAlreadyActed
		}

		config, err := tx.TableConfig(ctx, hand.TableUUID)
		if err != nil {
			return err
		}

		action, err := applyAction(hand, seat, config, req, e.clock.Now())
		if err != nil {
			return err
		}

		if err := tx.UpdateSeat(ctx, seat); err != nil {
			return err
		}

		if err := tx.AppendAction(ctx, action); err != nil {
			return err
		}

		actions, err := tx.ActionsByHand(ctx, handUUID)
		if err != nil {
			return err
		}

		pots, err := potengine.Build(hand.UUID, seats, actions)
		if err != nil {
			var inconsistency *potengine.InconsistencyError
			if errors.As(err, &inconsistency) {
				e.logger.WithError(err).WithField("hand", hand.UUID).Error("pot partition broke chip conservation")
			}
			return err
		}

		if err := tx.ReplacePots(ctx, hand.UUID, pots); err != nil {
			return err
		}

		res, err := e.resolve(ctx, tx, hand, seats, actions, pots, config)
		if err != nil {
			return err
		}

		outcome = res.outcome
		completionRecord = res.completion
		actionRecord = &events.ActionRecord{
			TableUUID: hand.TableUUID,
			HandUUID:  hand.UUID,
			Seat:      seat.Seat,
			AccountID: seat.AccountID,
			Kind:      action.Kind,
			Amount:    action.Amount,
			State:     action.State,
			Time:      action.Created,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	e.record(ctx, actionRecord, completionRecord)
	return outcome, nil
}

// applyAction validates the request against the betting rules and mutates
// the hand and seat in place. The returned action records the incremental
// amount this seat added.
func applyAction(hand *ledger.Hand, seat *ledger.SeatPlayer, config *ledger.TableConfig, req request, now time.Time) (*ledger.Action, error) {
	action := &ledger.Action{
		HandUUID: hand.UUID,
		Seat:     seat.Seat,
		State:    hand.State,
		Created:  now,
	}

	switch req.op {
	case opFold:
		action.Kind = ledger.ActionFold
		seat.Status = ledger.SeatFolded
	case opCheck:
		if seat.RoundCommitted != hand.CurrentBet {
			return nil, invalidAmount("cannot check behind a bet of %d", hand.CurrentBet)
		}
		action.Kind = ledger.ActionCheck
	case opCall:
		if hand.CurrentBet == 0 {
			return nil, invalidAmount("there is no bet to call")
		}

		needed := hand.CurrentBet - seat.RoundCommitted
		if needed <= 0 {
			return nil, invalidAmount("the bet is already matched")
		}

		// a call beyond the stack is an all-in for the remainder
		amount := commit(seat, needed)
		action.Amount = &amount
		action.Kind = ledger.ActionCall
		if seat.Status == ledger.SeatAllIn {
			action.Kind = ledger.ActionAllIn
		}
	case opBet:
		if hand.CurrentBet != 0 {
			return nil, invalidAmount("a bet is already open; raise instead")
		}

		needed := req.amount - seat.RoundCommitted
		if needed <= 0 {
			return nil, invalidAmount("bet must put new chips in")
		}
		if needed > seat.Balance {
			return nil, invalidAmount("bet of %d exceeds remaining balance of %d", req.amount, seat.Balance)
		}

		// a bet below the big blind is only legal when it puts the whole
		// remaining stack in
		if req.amount < config.BigBlind && needed < seat.Balance {
			return nil, invalidAmount("bet must be at least the big blind of %d", config.BigBlind)
		}

		amount := commit(seat, needed)
		hand.CurrentBet = seat.RoundCommitted
		// a forced short open does not set the raise size
		if seat.RoundCommitted >= config.BigBlind {
			hand.LastRaise = seat.RoundCommitted
		}
		action.Amount = &amount
		action.Kind = ledger.ActionRaise
		if seat.Status == ledger.SeatAllIn {
			action.Kind = ledger.ActionAllIn
		}
	case opRaise:
		if hand.CurrentBet == 0 {
			return nil, invalidAmount("there is no bet to raise; bet instead")
		}
		if req.amount <= hand.CurrentBet {
			return nil, invalidAmount("raise must exceed the current bet of %d", hand.CurrentBet)
		}

		needed := req.amount - seat.RoundCommitted
		if needed > seat.Balance {
			return nil, invalidAmount("raise to %d exceeds remaining balance", req.amount)
		}

		minRaise := hand.LastRaise
		if minRaise == 0 {
			minRaise = config.BigBlind
		}

		// an all-in may fall short of a full raise. it reopens the action to
		// seats facing a larger bet, but does not reset the minimum raise.
		fullRaise := req.amount >= hand.CurrentBet+minRaise
		if !fullRaise && needed < seat.Balance {
			return nil, invalidAmount("raise must be to at least %d", hand.CurrentBet+minRaise)
		}

		if fullRaise {
			hand.LastRaise = req.amount - hand.CurrentBet
		}

		amount := commit(seat, needed)
		hand.CurrentBet = seat.RoundCommitted
		action.Amount = &amount
		action.Kind = ledger.ActionRaise
		if seat.Status == ledger.SeatAllIn {
			action.Kind = ledger.ActionAllIn
		}
	case opAllIn:
		amount := commit(seat, seat.Balance)
		action.Amount = &amount
		action.Kind = ledger.ActionAllIn

		if total := seat.RoundCommitted; total > hand.CurrentBet {
			minRaise := hand.LastRaise
			if minRaise == 0 {
				minRaise = config.BigBlind
			}
			if total >= hand.CurrentBet+minRaise {
				hand.LastRaise = total - hand.CurrentBet
			}
			hand.CurrentBet = total
		}
	default:
		return nil, invalidAmount("unknown action")
	}

	return action, nil
}

// commit moves up to amount from the seat's balance into its round
// commitment, flipping the seat to all-in when the balance is exhausted.
func commit(seat *ledger.SeatPlayer, amount int64) int64 {
	if amount >= seat.Balance {
		amount = seat.Balance
		seat.Status = ledger.SeatAllIn
	}

	seat.Balance -= amount
	seat.RoundCommitted += amount
	return amount
}

func seatForAccount(seats []*ledger.SeatPlayer, accountID string) *ledger.SeatPlayer {
	for _, seat := range seats {
		if seat.AccountID == accountID {
			return seat
		}
	}

	return nil
}
