package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardroom-server/pkg/deck"
	"cardroom-server/pkg/ledger"
	"cardroom-server/pkg/ledger/memory"
)

func testEngine(t *testing.T, store *memory.Store) *Engine {
	t.Helper()
	return New(Config{
		Store: store,
		Clock: quartz.NewMock(t),
		Seed:  func() int64 { return 42 },
	})
}

// seedTable seats one account per balance, at seats 1..n, as player-1..player-n
func seedTable(store *memory.Store, tableUUID string, smallBlind, bigBlind, rakeBasisPoints int64, balances ...int64) {
	accounts := make([]*ledger.Account, len(balances))
	for i, balance := range balances {
		accounts[i] = &ledger.Account{
			TableUUID: tableUUID,
			AccountID: fmt.Sprintf("player-%d", i+1),
			Seat:      i + 1,
			Balance:   balance,
		}
	}

	store.SeedTable(&ledger.TableConfig{
		TableUUID:       tableUUID,
		SmallBlind:      smallBlind,
		BigBlind:        bigBlind,
		RakeBasisPoints: rakeBasisPoints,
		SeatCount:       10,
		MinPlayers:      2,
	}, accounts)
}

func journalSum(store *memory.Store) int64 {
	var sum int64
	for _, entry := range store.Journal() {
		sum += entry.Delta
	}

	return sum
}

func TestEngine_StartHand(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	seedTable(store, "table-1", 1, 2, 0, 100, 100, 100)
	e := testEngine(t, store)

	can, err := e.CanStartHand(ctx, "table-1")
	a.NoError(err)
	a.True(can)

	hand, err := e.StartHand(ctx, "table-1")
	require.NoError(t, err)
	a.Equal(ledger.StatePreFlop, hand.State)
	a.Equal(1, hand.DealerSeat)
	a.Equal(2, hand.SmallBlindSeat)
	a.Equal(3, hand.BigBlindSeat)
	a.EqualValues(2, hand.CurrentBet)
	a.EqualValues(2, hand.LastRaise)
	require.NotNil(t, hand.CurrentActionSeat)
	a.Equal(1, *hand.CurrentActionSeat)

	detail, err := e.Hand(ctx, hand.UUID)
	require.NoError(t, err)
	a.Len(detail.Actions, 2)
	a.Equal(ledger.ActionPostBlind, detail.Actions[0].Kind)
	a.EqualValues(3, ledger.PotTotal(detail.Pots))

	for _, seat := range detail.Seats {
		a.Len(seat.HoleCards, 2)
		a.Equal(ledger.SeatActive, seat.Status)
	}
	a.EqualValues(99, detail.Seats[1].Balance)
	a.EqualValues(98, detail.Seats[2].Balance)

	// no concurrent hand on the same table
	can, err = e.CanStartHand(ctx, "table-1")
	a.NoError(err)
	a.False(can)

	_, err = e.StartHand(ctx, "table-1")
	a.Equal(ErrHandInProgress, err)

	_, err = e.StartHand(ctx, "no-such-table")
	a.Equal(ErrTableNotFound, err)
}

func TestEngine_handForAccount(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	seedTable(store, "table-1", 1, 2, 0, 100, 100)
	e := testEngine(t, store)

	hand, err := e.StartHand(ctx, "table-1")
	require.NoError(t, err)

	// a seated account sees exactly its own two cards
	own, err := e.HandForAccount(ctx, hand.UUID, "player-1")
	require.NoError(t, err)
	require.Len(t, own.HoleCards, 2)
	a.Equal(own.Seats[0].HoleCards.String(), own.HoleCards.String())

	other, err := e.HandForAccount(ctx, hand.UUID, "player-2")
	require.NoError(t, err)
	a.NotEqual(own.HoleCards.String(), other.HoleCards.String())

	// an account with no seat sees no cards at all
	stranger, err := e.HandForAccount(ctx, hand.UUID, "stranger")
	require.NoError(t, err)
	a.Empty(stranger.HoleCards)
}

func TestEngine_StartHand_headsUp(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	seedTable(store, "table-1", 1, 2, 0, 100, 100)
	e := testEngine(t, store)

	hand, err := e.StartHand(ctx, "table-1")
	require.NoError(t, err)

	// heads-up the dealer posts the small blind and acts first pre-flop
	a.Equal(1, hand.DealerSeat)
	a.Equal(1, hand.SmallBlindSeat)
	a.Equal(2, hand.BigBlindSeat)
	a.Equal(1, *hand.CurrentActionSeat)
}

func TestEngine_StartHand_notEnoughPlayers(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	// only one account can cover the big blind
	seedTable(store, "table-1", 1, 2, 0, 100, 1)
	e := testEngine(t, store)

	can, err := e.CanStartHand(ctx, "table-1")
	a.NoError(err)
	a.False(can)

	_, err = e.StartHand(ctx, "table-1")
	a.Equal(ErrNotEnoughPlayers, err)
}

func TestEngine_blindsCallCheckToFlop(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	seedTable(store, "table-1", 1_000_000, 2_000_000, 0, 100_000_000, 100_000_000)
	e := testEngine(t, store)

	hand, err := e.StartHand(ctx, "table-1")
	require.NoError(t, err)

	// dealer completes the small blind
	outcome, err := e.Call(ctx, hand.UUID, "player-1")
	require.NoError(t, err)
	a.False(outcome.RoundAdvanced)
	a.Equal(ledger.StatePreFlop, outcome.State)

	// the big blind still has its option: a check closes the round
	outcome, err = e.Check(ctx, hand.UUID, "player-2")
	require.NoError(t, err)
	a.True(outcome.RoundAdvanced)
	a.False(outcome.HandEnded)
	a.Equal(ledger.StateFlop, outcome.State)
	a.EqualValues(4_000_000, ledger.PotTotal(outcome.Pots))

	detail, err := e.Hand(ctx, hand.UUID)
	require.NoError(t, err)
	a.Len(detail.Hand.Community, 3)
	a.EqualValues(0, detail.Hand.CurrentBet)
	// heads-up the big blind acts first after the flop
	a.Equal(2, *detail.Hand.CurrentActionSeat)

	// betting re-opens on the flop
	_, err = e.Bet(ctx, hand.UUID, "player-2", 1_000_000)
	a.ErrorIs(err, ErrInvalidAmount) // below the big blind

	outcome, err = e.Bet(ctx, hand.UUID, "player-2", 2_000_000)
	require.NoError(t, err)
	a.False(outcome.RoundAdvanced)

	_, err = e.Bet(ctx, hand.UUID, "player-1", 4_000_000)
	a.ErrorIs(err, ErrInvalidAmount) // a bet is already open

	_, err = e.Raise(ctx, hand.UUID, "player-1", 3_000_000)
	a.ErrorIs(err, ErrInvalidAmount) // below the minimum raise

	outcome, err = e.Raise(ctx, hand.UUID, "player-1", 4_000_000)
	require.NoError(t, err)
	a.False(outcome.RoundAdvanced)

	outcome, err = e.Call(ctx, hand.UUID, "player-2")
	require.NoError(t, err)
	a.True(outcome.RoundAdvanced)
	a.Equal(ledger.StateTurn, outcome.State)
	a.EqualValues(12_000_000, ledger.PotTotal(outcome.Pots))
}

func TestEngine_shortStackOpensAllIn(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	seedTable(store, "table-1", 1, 2, 0, 3, 100)
	e := testEngine(t, store)

	hand, err := e.StartHand(ctx, "table-1")
	require.NoError(t, err)

	// dealer completes the small blind, leaving a single chip behind
	_, err = e.Call(ctx, hand.UUID, "player-1")
	require.NoError(t, err)
	outcome, err := e.Check(ctx, hand.UUID, "player-2")
	require.NoError(t, err)
	a.Equal(ledger.StateFlop, outcome.State)

	// a below-big-blind bet with chips behind is still rejected
	_, err = e.Bet(ctx, hand.UUID, "player-2", 1)
	a.ErrorIs(err, ErrInvalidAmount)

	_, err = e.Check(ctx, hand.UUID, "player-2")
	require.NoError(t, err)

	// the last chip opens below the big blind as a forced all-in
	outcome, err = e.Bet(ctx, hand.UUID, "player-1", 1)
	require.NoError(t, err)
	a.False(outcome.RoundAdvanced)

	detail, err := e.Hand(ctx, hand.UUID)
	require.NoError(t, err)
	a.EqualValues(1, detail.Hand.CurrentBet)
	a.Equal(ledger.SeatAllIn, detail.Seats[0].Status)
	last := detail.Actions[len(detail.Actions)-1]
	a.Equal(ledger.ActionAllIn, last.Kind)

	// the short open does not shrink the minimum raise
	a.EqualValues(0, detail.Hand.LastRaise)
	_, err = e.Raise(ctx, hand.UUID, "player-2", 2)
	a.ErrorIs(err, ErrInvalidAmount)

	outcome, err = e.Call(ctx, hand.UUID, "player-2")
	require.NoError(t, err)
	a.True(outcome.RoundAdvanced)
	a.Equal(ledger.StateTurn, outcome.State)
	a.EqualValues(6, ledger.PotTotal(outcome.Pots))
}

func TestEngine_outOfTurnDoesNotMutate(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	seedTable(store, "table-1", 1, 2, 0, 100, 100, 100)
	e := testEngine(t, store)

	hand, err := e.StartHand(ctx, "table-1")
	require.NoError(t, err)

	before, err := e.Hand(ctx, hand.UUID)
	require.NoError(t, err)

	_, err = e.Call(ctx, hand.UUID, "player-2")
	a.Equal(ErrNotYourTurn, err)

	_, err = e.Raise(ctx, hand.UUID, "player-3", 10)
	a.Equal(ErrNotYourTurn, err)

	after, err := e.Hand(ctx, hand.UUID)
	require.NoError(t, err)
	a.Equal(before, after)
}

func TestEngine_errorTaxonomy(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	seedTable(store, "table-1", 1, 2, 0, 100, 100)
	e := testEngine(t, store)

	hand, err := e.StartHand(ctx, "table-1")
	require.NoError(t, err)

	_, err = e.Fold(ctx, "no-such-hand", "player-1")
	a.Equal(ErrHandNotFound, err)

	_, err = e.Fold(ctx, hand.UUID, "stranger")
	a.Equal(ErrSeatNotFound, err)

	_, err = e.Check(ctx, hand.UUID, "player-1")
	a.ErrorIs(err, ErrInvalidAmount) // cannot check behind the big blind

	_, err = e.Call(ctx, hand.UUID, "player-2")
	a.Equal(ErrNotYourTurn, err)

	// folding ends the hand heads-up
	outcome, err := e.Fold(ctx, hand.UUID, "player-1")
	require.NoError(t, err)
	a.True(outcome.HandEnded)
	a.Equal([]int{2}, outcome.WinnerSeats)

	_, err = e.Check(ctx, hand.UUID, "player-2")
	a.Equal(ErrHandComplete, err)
}

func TestEngine_foldAwardsPotAndRake(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	// 5% rake
	seedTable(store, "table-1", 1_000_000, 2_000_000, 500, 100_000_000, 100_000_000)
	e := testEngine(t, store)

	hand, err := e.StartHand(ctx, "table-1")
	require.NoError(t, err)

	outcome, err := e.Fold(ctx, hand.UUID, "player-1")
	require.NoError(t, err)
	a.True(outcome.HandEnded)
	a.Equal([]int{2}, outcome.WinnerSeats)

	// pot 3M, rake 150k: the winner nets 850k, the folder loses its blind
	journal := store.Journal()
	require.Len(t, journal, 2)
	deltas := map[string]int64{}
	for _, entry := range journal {
		deltas[entry.AccountID] = entry.Delta
	}
	a.EqualValues(-1_000_000, deltas["player-1"])
	a.EqualValues(850_000, deltas["player-2"])
	a.EqualValues(-150_000, journalSum(store))
}

func TestEngine_doubleAllInRunsOutBoard(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	seedTable(store, "table-1", 1, 2, 0, 50, 50)
	e := testEngine(t, store)

	hand, err := e.StartHand(ctx, "table-1")
	require.NoError(t, err)

	outcome, err := e.AllIn(ctx, hand.UUID, "player-1")
	require.NoError(t, err)
	a.False(outcome.HandEnded)

	// the calling all-in is a single step straight to showdown
	outcome, err = e.AllIn(ctx, hand.UUID, "player-2")
	require.NoError(t, err)
	a.True(outcome.HandEnded)
	a.True(outcome.RoundAdvanced)
	require.Len(t, outcome.Pots, 1)
	a.EqualValues(100, outcome.Pots[0].Amount)
	a.Equal([]int{1, 2}, outcome.Pots[0].EligibleSeats)
	a.NotEmpty(outcome.Pots[0].WinningSeats)

	detail, err := e.Hand(ctx, hand.UUID)
	require.NoError(t, err)
	a.Equal(ledger.StateCompleted, detail.Hand.State)
	a.Len(detail.Hand.Community, 5)
	a.Nil(detail.Hand.CurrentActionSeat)

	// chips are conserved with no rake
	a.EqualValues(0, journalSum(store))
}

func TestEngine_sidePots(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	seedTable(store, "table-1", 1, 2, 0, 100, 50, 50)
	e := testEngine(t, store)

	hand, err := e.StartHand(ctx, "table-1")
	require.NoError(t, err)

	_, err = e.AllIn(ctx, hand.UUID, "player-1")
	require.NoError(t, err)
	_, err = e.AllIn(ctx, hand.UUID, "player-2")
	require.NoError(t, err)
	outcome, err := e.AllIn(ctx, hand.UUID, "player-3")
	require.NoError(t, err)

	a.True(outcome.HandEnded)
	require.Len(t, outcome.Pots, 2)

	a.EqualValues(150, outcome.Pots[0].Amount)
	a.Equal([]int{1, 2, 3}, outcome.Pots[0].EligibleSeats)

	// seat 1's uncalled 50 comes back as a side pot only it can win
	a.EqualValues(50, outcome.Pots[1].Amount)
	a.Equal([]int{1}, outcome.Pots[1].EligibleSeats)
	a.Equal([]int{1}, outcome.Pots[1].WinningSeats)

	a.EqualValues(0, journalSum(store))
}

func TestEngine_shortAllInDoesNotResetMinimumRaise(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	seedTable(store, "table-1", 1, 2, 0, 100, 100, 3)
	e := testEngine(t, store)

	hand, err := e.StartHand(ctx, "table-1")
	require.NoError(t, err)

	_, err = e.Call(ctx, hand.UUID, "player-1")
	require.NoError(t, err)
	_, err = e.Call(ctx, hand.UUID, "player-2")
	require.NoError(t, err)

	// the big blind shoves for 3 total, one short of a full raise
	_, err = e.AllIn(ctx, hand.UUID, "player-3")
	require.NoError(t, err)

	detail, err := e.Hand(ctx, hand.UUID)
	require.NoError(t, err)
	a.EqualValues(3, detail.Hand.CurrentBet)
	a.EqualValues(2, detail.Hand.LastRaise)

	// a re-raise must still be a full raise over the shove
	_, err = e.Raise(ctx, hand.UUID, "player-1", 4)
	a.ErrorIs(err, ErrInvalidAmount)

	outcome, err := e.Raise(ctx, hand.UUID, "player-1", 5)
	require.NoError(t, err)
	a.False(outcome.RoundAdvanced)

	_, err = e.Fold(ctx, hand.UUID, "player-2")
	require.NoError(t, err)

	detail, err = e.Hand(ctx, hand.UUID)
	require.NoError(t, err)
	a.Equal(ledger.StateFlop, detail.Hand.State)
	a.EqualValues(10, ledger.PotTotal(detail.Pots))
}

// seedRiverHand installs a hand poised at the river with a board both seats
// play outright, so showdown always splits the pot
func seedRiverHand(t *testing.T, store *memory.Store, pot1, pot2 int64) string {
	t.Helper()

	seedTable(store, "table-1", 1, 2, 0, 100, 100)

	handUUID := "river-hand"
	firstToAct := 1
	err := store.InTransaction(context.Background(), func(tx ledger.Tx) error {
		hand := &ledger.Hand{
			UUID:              handUUID,
			TableUUID:         "table-1",
			State:             ledger.StateRiver,
			DealerSeat:        1,
			SmallBlindSeat:    1,
			BigBlindSeat:      2,
			CurrentActionSeat: &firstToAct,
			Community:         deck.Hand(deck.CardsFromString("14s,13s,12s,11s,10s")),
			Deck:              deck.Hand(deck.CardsFromString("2c,3c,2d,3d,14s,13s,12s,11s,10s")),
			DeckCursor:        9,
			Seed:              1,
		}
		if err := tx.CreateHand(context.Background(), hand); err != nil {
			return err
		}

		for seat, hole := range map[int]string{1: "2c,3c", 2: "2d,3d"} {
			err := tx.CreateSeat(context.Background(), &ledger.SeatPlayer{
				HandUUID:  handUUID,
				Seat:      seat,
				AccountID: fmt.Sprintf("player-%d", seat),
				HoleCards: deck.Hand(deck.CardsFromString(hole)),
				Status:    ledger.SeatActive,
			})
			if err != nil {
				return err
			}
		}

		for seat, amount := range map[int]int64{1: pot1, 2: pot2} {
			amount := amount
			err := tx.AppendAction(context.Background(), &ledger.Action{
				HandUUID: handUUID,
				Seat:     seat,
				State:    ledger.StatePreFlop,
				Kind:     ledger.ActionPostBlind,
				Amount:   &amount,
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	require.NoError(t, err)

	return handUUID
}

func TestEngine_splitPotOddChip(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	handUUID := seedRiverHand(t, store, 10, 11)
	e := testEngine(t, store)

	_, err := e.Check(ctx, handUUID, "player-1")
	require.NoError(t, err)
	outcome, err := e.Check(ctx, handUUID, "player-2")
	require.NoError(t, err)

	a.True(outcome.HandEnded)
	a.Equal([]int{1, 2}, outcome.WinnerSeats)

	// 21 does not split evenly: the odd unit goes to the lowest seat
	require.Len(t, outcome.Pots, 1)
	a.Equal([]int{1, 2}, outcome.Pots[0].WinningSeats)

	deltas := map[string]int64{}
	for _, entry := range store.Journal() {
		deltas[entry.AccountID] = entry.Delta
	}
	a.EqualValues(1, deltas["player-1"])  // paid 10, won 11
	a.EqualValues(-1, deltas["player-2"]) // paid 11, won 10
	a.EqualValues(0, journalSum(store))
}

func TestEngine_splitPotEven(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	handUUID := seedRiverHand(t, store, 10, 10)
	e := testEngine(t, store)

	_, err := e.Check(ctx, handUUID, "player-1")
	require.NoError(t, err)
	outcome, err := e.Check(ctx, handUUID, "player-2")
	require.NoError(t, err)

	a.True(outcome.HandEnded)
	a.Equal([]int{1, 2}, outcome.WinnerSeats)

	// an even split leaves every account where it started
	a.Empty(store.Journal())
}

func TestEngine_alreadyActed(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()

	store := memory.NewStore()
	handUUID := seedRiverHand(t, store, 10, 10)
	e := testEngine(t, store)

	// force the clock onto a folded seat to prove the guard holds even if
	// turn tracking is corrupted
	err := store.InTransaction(ctx, func(tx ledger.Tx) error {
		seats, err := tx.SeatsByHand(ctx, handUUID)
		if err != nil {
			return err
		}

		seats[0].Status = ledger.SeatFolded
		return tx.UpdateSeat(ctx, seats[0])
	})
	require.NoError(t, err)

	_, err = e.Check(ctx, handUUID, "player-1")
	a.Equal(ErrAlreadyActed, err)
}
