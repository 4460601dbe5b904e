package engine

import (
	"context"
	"fmt"
	"sort"

	"cardroom-server/pkg/deck"
	"cardroom-server/pkg/events"
	"cardroom-server/pkg/ledger"
	"cardroom-server/pkg/poker/handrank"
	"cardroom-server/pkg/poker/potengine"
)

// settle pays out every pot, applies the deltas to the table accounts, and
// marks the hand completed. With showdown false the sole non-folded seat
// wins every pot uncontested and no cards are evaluated.
func (e *Engine) settle(ctx context.Context, tx ledger.Tx, hand *ledger.Hand, seats []*ledger.SeatPlayer, actions []*ledger.Action, pots []*ledger.Pot, config *ledger.TableConfig, showdown bool) (*events.CompletionRecord, []int, error) {
	ranked := make(map[int]*handrank.RankedHand)
	if showdown {
		for _, seat := range seats {
			if seat.Status == ledger.SeatFolded {
				continue
			}

			rank, err := handrank.Evaluate(seat.HoleCards, hand.Community)
			if err != nil {
				return nil, nil, fmt.Errorf("could not evaluate seat %d: %w", seat.Seat, err)
			}

			ranked[seat.Seat] = rank
		}
	}

	payouts := make(map[int]int64)
	winnerSet := make(map[int]bool)
	var rakeTotal int64

	for _, pot := range pots {
		winners := potWinners(pot, seats, ranked, showdown)
		pot.WinningSeats = winners

		rake := pot.Amount * config.RakeBasisPoints / 10000
		rakeTotal += rake

		payable := pot.Amount - rake
		share := payable / int64(len(winners))
		remainder := payable % int64(len(winners))

		// the odd chip goes to the lowest winning seat
		for i, seat := range winners {
			payout := share
			if i == 0 {
				payout += remainder
			}

			payouts[seat] += payout
			winnerSet[seat] = true
		}
	}

	if err := tx.ReplacePots(ctx, hand.UUID, pots); err != nil {
		return nil, nil, err
	}

	totals := potengine.Totals(actions)
	reason := fmt.Sprintf("hand %s settled", hand.UUID)
	for _, seat := range seats {
		if payout := payouts[seat.Seat]; payout > 0 {
			seat.Balance += payout
			if err := tx.UpdateSeat(ctx, seat); err != nil {
				return nil, nil, err
			}
		}

		delta := payouts[seat.Seat] - totals[seat.Seat]
		if delta == 0 {
			continue
		}

		if err := tx.AdjustAccountBalance(ctx, hand.TableUUID, seat.AccountID, delta, reason); err != nil {
			return nil, nil, err
		}
	}

	hand.State = ledger.StateCompleted
	hand.CurrentActionSeat = nil
	if err := tx.UpdateHand(ctx, hand); err != nil {
		return nil, nil, err
	}

	winners := make([]int, 0, len(winnerSet))
	for seat := range winnerSet {
		winners = append(winners, seat)
	}
	sort.Ints(winners)

	completion := &events.CompletionRecord{
		TableUUID:   hand.TableUUID,
		HandUUID:    hand.UUID,
		Seed:        hand.Seed,
		Deck:        hand.Deck.String(),
		DeckHash:    deck.FromCards(hand.Deck).HashCode(),
		Community:   hand.Community.String(),
		Pots:        pots,
		Actions:     actions,
		WinnerSeats: winners,
		Payouts:     payouts,
		Rake:        rakeTotal,
		Time:        e.clock.Now(),
	}

	return completion, winners, nil
}

// potWinners returns the winning seats for one pot in ascending seat order
func potWinners(pot *ledger.Pot, seats []*ledger.SeatPlayer, ranked map[int]*handrank.RankedHand, showdown bool) []int {
	if !showdown {
		// uncontested: the sole non-folded seat takes everything
		for _, seat := range seats {
			if seat.Status != ledger.SeatFolded {
				return []int{seat.Seat}
			}
		}

		return nil
	}

	var best *handrank.RankedHand
	for _, seat := range pot.EligibleSeats {
		rank := ranked[seat]
		if rank == nil {
			continue
		}
		if best == nil || rank.Compare(best) > 0 {
			best = rank
		}
	}

	var winners []int
	for _, seat := range pot.EligibleSeats {
		if rank := ranked[seat]; rank != nil && rank.Compare(best) == 0 {
			winners = append(winners, seat)
		}
	}

	sort.Ints(winners)
	return winners
}
