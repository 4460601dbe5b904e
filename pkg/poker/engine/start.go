package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cardroom-server/pkg/deck"
	"cardroom-server/pkg/events"
	"cardroom-server/pkg/ledger"
	"cardroom-server/pkg/poker/potengine"
)

// CanStartHand returns true if the table has no active hand and enough
// funded players to deal
func (e *Engine) CanStartHand(ctx context.Context, tableUUID string) (bool, error) {
	var can bool
	err := e.store.InTransaction(ctx, func(tx ledger.Tx) error {
		config, err := tx.TableConfig(ctx, tableUUID)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return ErrTableNotFound
			}
			return err
		}

		if _, err := tx.ActiveHand(ctx, tableUUID); err == nil {
			return nil
		} else if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}

		accounts, err := tx.Accounts(ctx, tableUUID)
		if err != nil {
			return err
		}

		can = len(fundedAccounts(accounts, config)) >= minPlayers(config)
		return nil
	})
	if err != nil {
		return false, err
	}

	return can, nil
}

// StartHand deals a new hand for the table: it rotates the dealer button,
// posts the blinds, deals two hole cards to every funded seat, and puts the
// seat after the big blind on the clock.
func (e *Engine) StartHand(ctx context.Context, tableUUID string) (*ledger.Hand, error) {
	var hand *ledger.Hand
	var blinds []*events.ActionRecord

	err := e.store.InTransaction(ctx, func(tx ledger.Tx) error {
		config, err := tx.TableConfig(ctx, tableUUID)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return ErrTableNotFound
			}
			return err
		}

		if _, err := tx.ActiveHand(ctx, tableUUID); err == nil {
			return ErrHandInProgress
		} else if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}

		accounts, err := tx.Accounts(ctx, tableUUID)
		if err != nil {
			return err
		}

		funded := fundedAccounts(accounts, config)
		if len(funded) < minPlayers(config) {
			return ErrNotEnoughPlayers
		}

		dealer, err := e.nextDealer(ctx, tx, tableUUID, funded)
		if err != nil {
			return err
		}

		// heads-up the dealer posts the small blind
		var smallBlind, bigBlind int
		if len(funded) == 2 {
			smallBlind = dealer
			bigBlind = nextOccupiedSeat(funded, dealer)
		} else {
			smallBlind = nextOccupiedSeat(funded, dealer)
			bigBlind = nextOccupiedSeat(funded, smallBlind)
		}
		firstToAct := nextOccupiedSeat(funded, bigBlind)

		seed := e.seed()
		d := deck.New()
		d.Shuffle(seed)

		now := e.clock.Now()
		hand = &ledger.Hand{
			UUID:              uuid.New().String(),
			TableUUID:         tableUUID,
			State:             ledger.StatePreFlop,
			DealerSeat:        dealer,
			SmallBlindSeat:    smallBlind,
			BigBlindSeat:      bigBlind,
			CurrentBet:        config.BigBlind,
			LastRaise:         config.BigBlind,
			CurrentActionSeat: &firstToAct,
			TurnStartedAt:     now,
			Deck:              deck.Hand(d.Cards).Clone(),
			Seed:              seed,
		}

		seats := make([]*ledger.SeatPlayer, 0, len(funded))
		bySeat := make(map[int]*ledger.SeatPlayer)
		for _, account := range funded {
			seat := &ledger.SeatPlayer{
				HandUUID:  hand.UUID,
				Seat:      account.Seat,
				AccountID: account.AccountID,
				Status:    ledger.SeatActive,
				Balance:   account.Balance,
			}
			seats = append(seats, seat)
			bySeat[seat.Seat] = seat
		}

		// two passes, starting left of the dealer. the deck must cover two
		// hole cards per seat plus the full board
		if !d.CanDraw(len(seats)*2 + 5) {
			return fmt.Errorf("deck cannot deal %d seats", len(seats))
		}
		for round := 0; round < 2; round++ {
			seatNo := dealer
			for range seats {
				seatNo = nextOccupiedSeat(funded, seatNo)
				card, err := d.Draw()
				if err != nil {
					return err
				}

				bySeat[seatNo].HoleCards.AddCard(card)
				hand.DeckCursor++
			}
		}

		if err := tx.CreateHand(ctx, hand); err != nil {
			return err
		}

		for _, seat := range seats {
			if err := tx.CreateSeat(ctx, seat); err != nil {
				return err
			}
		}

		actions := make([]*ledger.Action, 0, 2)
		for _, blind := range []struct {
			seat   int
			amount int64
		}{
			{smallBlind, config.SmallBlind},
			{bigBlind, config.BigBlind},
		} {
			seat := bySeat[blind.seat]
			amount := commit(seat, blind.amount)
			action := &ledger.Action{
				HandUUID: hand.UUID,
				Seat:     seat.Seat,
				State:    ledger.StatePreFlop,
				Kind:     ledger.ActionPostBlind,
				Amount:   &amount,
				Created:  now,
			}

			if err := tx.UpdateSeat(ctx, seat); err != nil {
				return err
			}
			if err := tx.AppendAction(ctx, action); err != nil {
				return err
			}

			actions = append(actions, action)
			blinds = append(blinds, &events.ActionRecord{
				TableUUID: tableUUID,
				HandUUID:  hand.UUID,
				Seat:      seat.Seat,
				AccountID: seat.AccountID,
				Kind:      action.Kind,
				Amount:    action.Amount,
				State:     action.State,
				Time:      now,
			})
		}

		pots, err := potengine.Build(hand.UUID, seats, actions)
		if err != nil {
			return err
		}

		return tx.ReplacePots(ctx, hand.UUID, pots)
	})
	if err != nil {
		return nil, err
	}

	for _, blind := range blinds {
		e.record(ctx, blind, nil)
	}

	return hand, nil
}

// nextDealer rotates the button to the next funded seat after the previous
// hand's dealer, or seats it at the lowest funded seat for a fresh table
func (e *Engine) nextDealer(ctx context.Context, tx ledger.Tx, tableUUID string, funded []*ledger.Account) (int, error) {
	last, err := tx.LastCompletedHand(ctx, tableUUID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return funded[0].Seat, nil
		}
		return 0, err
	}

	return nextOccupiedSeat(funded, last.DealerSeat), nil
}

// nextOccupiedSeat returns the first funded seat after from, wrapping
func nextOccupiedSeat(funded []*ledger.Account, from int) int {
	for _, account := range funded {
		if account.Seat > from {
			return account.Seat
		}
	}

	return funded[0].Seat
}

func fundedAccounts(accounts []*ledger.Account, config *ledger.TableConfig) []*ledger.Account {
	funded := make([]*ledger.Account, 0, len(accounts))
	for _, account := range accounts {
		if account.Balance >= config.BigBlind {
			funded = append(funded, account)
		}
	}

	return funded
}

func minPlayers(config *ledger.TableConfig) int {
	if config.MinPlayers > 2 {
		return config.MinPlayers
	}

	return 2
}
