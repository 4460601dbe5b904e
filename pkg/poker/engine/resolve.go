package engine

import (
	"context"

	"cardroom-server/pkg/events"
	"cardroom-server/pkg/ledger"
)

type resolution struct {
	outcome    *Outcome
	completion *events.CompletionRecord
}

// resolve decides what follows an applied action: immediate settlement when
// only one seat remains, passing the turn when the round is still open, or
// advancing the betting round.
func (e *Engine) resolve(ctx context.Context, tx ledger.Tx, hand *ledger.Hand, seats []*ledger.SeatPlayer, actions []*ledger.Action, pots []*ledger.Pot, config *ledger.TableConfig) (*resolution, error) {
	remaining := nonFoldedSeats(seats)
	if len(remaining) == 1 {
		completion, winners, err := e.settle(ctx, tx, hand, seats, actions, pots, config, false)
		if err != nil {
			return nil, err
		}

		return &resolution{
			outcome: &Outcome{
				HandEnded:   true,
				State:       hand.State,
				WinnerSeats: winners,
				Pots:        pots,
			},
			completion: completion,
		}, nil
	}

	if !roundComplete(hand, seats, actions) {
		next, ok := nextActiveSeat(seats, *hand.CurrentActionSeat)
		if !ok {
			// an incomplete round always has an active seat still to act
			panic("no active seat to act")
		}

		hand.CurrentActionSeat = &next
		hand.TurnStartedAt = e.clock.Now()
		if err := tx.UpdateHand(ctx, hand); err != nil {
			return nil, err
		}

		return &resolution{outcome: &Outcome{State: hand.State, Pots: pots}}, nil
	}

	return e.advance(ctx, tx, hand, seats, actions, pots, config)
}

// advance closes the current betting round. It deals the next street and
// opens a new round, or keeps dealing to the river when nobody can act, and
// settles at showdown.
func (e *Engine) advance(ctx context.Context, tx ledger.Tx, hand *ledger.Hand, seats []*ledger.SeatPlayer, actions []*ledger.Action, pots []*ledger.Pot, config *ledger.TableConfig) (*resolution, error) {
	advanced := false

	for {
		if hand.State == ledger.StateRiver {
			completion, winners, err := e.settle(ctx, tx, hand, seats, actions, pots, config, true)
			if err != nil {
				return nil, err
			}

			return &resolution{
				outcome: &Outcome{
					HandEnded:     true,
					RoundAdvanced: advanced,
					State:         hand.State,
					WinnerSeats:   winners,
					Pots:          pots,
				},
				completion: completion,
			}, nil
		}

		hand.State++
		advanced = true

		deal := hand.State.CommunityCards()
		hand.Community = append(hand.Community, hand.Deck[hand.DeckCursor:hand.DeckCursor+deal]...)
		hand.DeckCursor += deal

		hand.CurrentBet = 0
		hand.LastRaise = 0
		for _, seat := range seats {
			if seat.RoundCommitted == 0 {
				continue
			}

			seat.RoundCommitted = 0
			if err := tx.UpdateSeat(ctx, seat); err != nil {
				return nil, err
			}
		}

		// when every non-folded seat is all-in the board runs out without
		// further betting
		first, ok := nextActiveSeat(seats, hand.DealerSeat)
		if !ok {
			continue
		}

		hand.CurrentActionSeat = &first
		hand.TurnStartedAt = e.clock.Now()
		if err := tx.UpdateHand(ctx, hand); err != nil {
			return nil, err
		}

		return &resolution{outcome: &Outcome{RoundAdvanced: true, State: hand.State, Pots: pots}}, nil
	}
}

// roundComplete reports whether every active seat has both matched the
// current bet and voluntarily acted this round. Posted blinds do not count
// as acting: the big blind keeps its option.
func roundComplete(hand *ledger.Hand, seats []*ledger.SeatPlayer, actions []*ledger.Action) bool {
	for _, seat := range seats {
		if seat.Status != ledger.SeatActive {
			continue
		}
		if seat.RoundCommitted < hand.CurrentBet {
			return false
		}
		if !actedThisRound(actions, hand.State, seat.Seat) {
			return false
		}
	}

	return true
}

func actedThisRound(actions []*ledger.Action, state ledger.State, seat int) bool {
	for _, action := range actions {
		if action.State == state && action.Seat == seat && action.Kind != ledger.ActionPostBlind {
			return true
		}
	}

	return false
}

func nonFoldedSeats(seats []*ledger.SeatPlayer) []*ledger.SeatPlayer {
	remaining := make([]*ledger.SeatPlayer, 0, len(seats))
	for _, seat := range seats {
		if seat.Status != ledger.SeatFolded {
			remaining = append(remaining, seat)
		}
	}

	return remaining
}

// nextActiveSeat returns the first active seat after from, wrapping around
// the table. from itself is only returned when it is the sole active seat.
func nextActiveSeat(seats []*ledger.SeatPlayer, from int) (int, bool) {
	var first, wrapped, self *ledger.SeatPlayer
	for _, seat := range seats {
		if seat.Status != ledger.SeatActive {
			continue
		}

		switch {
		case seat.Seat > from:
			if first == nil {
				first = seat
			}
		case seat.Seat < from:
			if wrapped == nil {
				wrapped = seat
			}
		default:
			self = seat
		}
	}

	if first != nil {
		return first.Seat, true
	}
	if wrapped != nil {
		return wrapped.Seat, true
	}
	if self != nil {
		return self.Seat, true
	}

	return 0, false
}
