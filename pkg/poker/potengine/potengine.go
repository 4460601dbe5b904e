// Package potengine computes pot shapes from a hand's action history. Both
// modes are pure functions: the running total keeps a single pot while no
// all-in has split the field, and the partition carves the total into
// eligibility-scoped side pots when distinct all-in levels exist.
package potengine

import (
	"fmt"
	"sort"

	"cardroom-server/pkg/ledger"
)

// InconsistencyError is a fatal correctness failure: the partitioned pots do
// not sum to the wagered total. It must abort the enclosing transaction and
// never persist.
type InconsistencyError struct {
	HandUUID    string
	PotTotal    int64
	ActionTotal int64
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("pot partition for hand %s is inconsistent: pots total %d, actions total %d",
		e.HandUUID, e.PotTotal, e.ActionTotal)
}

// Totals returns each seat's cumulative commitment across all rounds of the
// hand: the sum of every non-fold, non-check action amount. Folded seats are
// included; their chips stay in the pot.
func Totals(actions []*ledger.Action) map[int]int64 {
	totals := make(map[int]int64)
	for _, action := range actions {
		if action.Amount == nil {
			continue
		}

		totals[action.Seat] += *action.Amount
	}

	return totals
}

// Build computes the pot shape for a hand. With no all-in among the seats a
// single running-total pot is produced; otherwise the total is partitioned
// by ascending all-in level. The returned pots always satisfy the
// conservation invariant or an InconsistencyError is returned.
func Build(handUUID string, seats []*ledger.SeatPlayer, actions []*ledger.Action) ([]*ledger.Pot, error) {
	totals := Totals(actions)

	var actionTotal int64
	for _, total := range totals {
		actionTotal += total
	}

	eligible := make([]int, 0, len(seats))
	allInLevels := make(map[int64]bool)
	for _, seat := range seats {
		if seat.Status == ledger.SeatFolded {
			continue
		}

		eligible = append(eligible, seat.Seat)
		if seat.Status == ledger.SeatAllIn {
			allInLevels[totals[seat.Seat]] = true
		}
	}
	sort.Ints(eligible)

	var pots []*ledger.Pot
	if len(allInLevels) == 0 {
		pots = []*ledger.Pot{{
			HandUUID:      handUUID,
			Index:         0,
			Amount:        actionTotal,
			EligibleSeats: eligible,
		}}
	} else {
		pots = partition(handUUID, seats, totals, allInLevels)
	}

	if potTotal := ledger.PotTotal(pots); potTotal != actionTotal {
		return nil, &InconsistencyError{
			HandUUID:    handUUID,
			PotTotal:    potTotal,
			ActionTotal: actionTotal,
		}
	}

	return pots, nil
}

// partition carves the wagered total at every distinct all-in level. Each
// level's pot collects the slice of every seat's total between the previous
// level and this one, so a folded seat's chips land in the pots it
// contributed to rather than vanishing.
func partition(handUUID string, seats []*ledger.SeatPlayer, totals map[int]int64, allInLevels map[int64]bool) []*ledger.Pot {
	var maxTotal int64
	for _, seat := range seats {
		if seat.Status == ledger.SeatFolded {
			continue
		}

		if total := totals[seat.Seat]; total > maxTotal {
			maxTotal = total
		}
	}

	levels := make([]int64, 0, len(allInLevels)+1)
	for level := range allInLevels {
		if level > 0 {
			levels = append(levels, level)
		}
	}

	// the top of the betting is a level even if nobody is all-in there
	if !allInLevels[maxTotal] && maxTotal > 0 {
		levels = append(levels, maxTotal)
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]*ledger.Pot, 0, len(levels))
	var prev int64
	for _, level := range levels {
		var amount int64
		eligible := make([]int, 0, len(seats))

		for _, seat := range seats {
			contributed := totals[seat.Seat]
			if contributed > level {
				contributed = level
			}

			if slice := contributed - prev; slice > 0 {
				amount += slice
			}

			if seat.Status != ledger.SeatFolded && totals[seat.Seat] >= level {
				eligible = append(eligible, seat.Seat)
			}
		}
		sort.Ints(eligible)

		pots = append(pots, &ledger.Pot{
			HandUUID:      handUUID,
			Index:         len(pots),
			Amount:        amount,
			EligibleSeats: eligible,
		})
		prev = level
	}

	return pots
}
