// Package postgres provides the production ledger.Store. Each transaction
// locks the hand row with SELECT ... FOR UPDATE, so concurrent actions on
// the same hand serialize and the loser of the race revalidates against the
// committed state.
package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"cardroom-server/pkg/deck"
	"cardroom-server/pkg/ledger"
)

// Store is a postgres-backed ledger.Store
type Store struct {
	db     *sql.DB
	logger logrus.FieldLogger
}

// New returns a Store backed by the provided database
func New(database *sql.DB, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Store{db: database, logger: logger}
}

// InTransaction implements ledger.Store
func (s *Store) InTransaction(ctx context.Context, fn func(tx ledger.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&tx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.WithError(rbErr).Error("could not rollback transaction")
		}

		return err
	}

	return sqlTx.Commit()
}

type tx struct {
	tx *sql.Tx
}

// scanner allows scanning from either *sql.Row or *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const handsColumns = `uuid, table_uuid, state, dealer_seat, small_blind_seat, big_blind_seat,
current_bet, last_raise, current_action_seat, turn_started_at, community, deck, deck_cursor, seed,
created, updated`

func handByRow(row scanner) (*ledger.Hand, error) {
	var hand ledger.Hand
	var currentActionSeat sql.NullInt64
	var community, deckCards string

	if err := row.Scan(&hand.UUID, &hand.TableUUID, &hand.State, &hand.DealerSeat,
		&hand.SmallBlindSeat, &hand.BigBlindSeat, &hand.CurrentBet, &hand.LastRaise,
		&currentActionSeat, &hand.TurnStartedAt, &community, &deckCards, &hand.DeckCursor,
		&hand.Seed, &hand.Created, &hand.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, err
	}

	if currentActionSeat.Valid {
		seat := int(currentActionSeat.Int64)
		hand.CurrentActionSeat = &seat
	}

	hand.Community = deck.CardsFromString(community)
	hand.Deck = deck.CardsFromString(deckCards)

	return &hand, nil
}

// Hand implements ledger.Tx. The row is locked for the duration of the
// transaction.
func (t *tx) Hand(ctx context.Context, handUUID string) (*ledger.Hand, error) {
	const query = `
SELECT ` + handsColumns + `
FROM hands
WHERE uuid = $1
FOR UPDATE`

	return handByRow(t.tx.QueryRowContext(ctx, query, handUUID))
}

// ActiveHand implements ledger.Tx
func (t *tx) ActiveHand(ctx context.Context, tableUUID string) (*ledger.Hand, error) {
	const query = `
SELECT ` + handsColumns + `
FROM hands
WHERE table_uuid = $1 AND state != $2
LIMIT 1
FOR UPDATE`

	return handByRow(t.tx.QueryRowContext(ctx, query, tableUUID, ledger.StateCompleted))
}

// LastCompletedHand implements ledger.Tx
func (t *tx) LastCompletedHand(ctx context.Context, tableUUID string) (*ledger.Hand, error) {
	const query = `
SELECT ` + handsColumns + `
FROM hands
WHERE table_uuid = $1 AND state = $2
ORDER BY updated DESC
LIMIT 1`

	return handByRow(t.tx.QueryRowContext(ctx, query, tableUUID, ledger.StateCompleted))
}

// CreateHand implements ledger.Tx
func (t *tx) CreateHand(ctx context.Context, hand *ledger.Hand) error {
	const query = `
INSERT INTO hands (uuid, table_uuid, state, dealer_seat, small_blind_seat, big_blind_seat,
current_bet, last_raise, current_action_seat, turn_started_at, community, deck, deck_cursor, seed)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING created, updated`

	row := t.tx.QueryRowContext(ctx, query, hand.UUID, hand.TableUUID, hand.State,
		hand.DealerSeat, hand.SmallBlindSeat, hand.BigBlindSeat, hand.CurrentBet, hand.LastRaise,
		nullableSeat(hand.CurrentActionSeat), hand.TurnStartedAt, hand.Community.String(),
		hand.Deck.String(), hand.DeckCursor, hand.Seed)

	return row.Scan(&hand.Created, &hand.Updated)
}

// UpdateHand implements ledger.Tx
func (t *tx) UpdateHand(ctx context.Context, hand *ledger.Hand) error {
	const query = `
UPDATE hands
SET state = $2, current_bet = $3, last_raise = $4, current_action_seat = $5,
    turn_started_at = $6, community = $7, deck_cursor = $8,
    updated = (NOW() AT TIME ZONE 'UTC')
WHERE uuid = $1
RETURNING updated`

	row := t.tx.QueryRowContext(ctx, query, hand.UUID, hand.State, hand.CurrentBet,
		hand.LastRaise, nullableSeat(hand.CurrentActionSeat), hand.TurnStartedAt,
		hand.Community.String(), hand.DeckCursor)

	if err := row.Scan(&hand.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.ErrNotFound
		}

		return err
	}

	return nil
}

const handSeatsColumns = `hand_uuid, seat, account_id, hole_cards, status, round_committed, balance, created, updated`

func seatByRow(row scanner) (*ledger.SeatPlayer, error) {
	var seat ledger.SeatPlayer
	var holeCards string

	if err := row.Scan(&seat.HandUUID, &seat.Seat, &seat.AccountID, &holeCards, &seat.Status,
		&seat.RoundCommitted, &seat.Balance, &seat.Created, &seat.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, err
	}

	seat.HoleCards = deck.CardsFromString(holeCards)
	return &seat, nil
}

// SeatsByHand implements ledger.Tx
func (t *tx) SeatsByHand(ctx context.Context, handUUID string) ([]*ledger.SeatPlayer, error) {
	const query = `
SELECT ` + handSeatsColumns + `
FROM hand_seats
WHERE hand_uuid = $1
ORDER BY seat`

	rows, err := t.tx.QueryContext(ctx, query, handUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []*ledger.SeatPlayer
	for rows.Next() {
		seat, err := seatByRow(rows)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	return seats, rows.Err()
}

// CreateSeat implements ledger.Tx
func (t *tx) CreateSeat(ctx context.Context, seat *ledger.SeatPlayer) error {
	const query = `
INSERT INTO hand_seats (hand_uuid, seat, account_id, hole_cards, status, round_committed, balance)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created, updated`

	row := t.tx.QueryRowContext(ctx, query, seat.HandUUID, seat.Seat, seat.AccountID,
		seat.HoleCards.String(), seat.Status, seat.RoundCommitted, seat.Balance)

	return row.Scan(&seat.Created, &seat.Updated)
}

// UpdateSeat implements ledger.Tx
func (t *tx) UpdateSeat(ctx context.Context, seat *ledger.SeatPlayer) error {
	const query = `
UPDATE hand_seats
SET status = $3, round_committed = $4, balance = $5, updated = (NOW() AT TIME ZONE 'UTC')
WHERE hand_uuid = $1 AND seat = $2
RETURNING updated`

	row := t.tx.QueryRowContext(ctx, query, seat.HandUUID, seat.Seat, seat.Status,
		seat.RoundCommitted, seat.Balance)

	if err := row.Scan(&seat.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.ErrNotFound
		}

		return err
	}

	return nil
}

const handActionsColumns = `id, hand_uuid, seat, state, kind, amount, created`

// ActionsByHand implements ledger.Tx
func (t *tx) ActionsByHand(ctx context.Context, handUUID string) ([]*ledger.Action, error) {
	const query = `
SELECT ` + handActionsColumns + `
FROM hand_actions
WHERE hand_uuid = $1
ORDER BY state, id`

	rows, err := t.tx.QueryContext(ctx, query, handUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*ledger.Action
	for rows.Next() {
		var action ledger.Action
		var amount sql.NullInt64

		if err := rows.Scan(&action.ID, &action.HandUUID, &action.Seat, &action.State,
			&action.Kind, &amount, &action.Created); err != nil {
			return nil, err
		}

		if amount.Valid {
			value := amount.Int64
			action.Amount = &value
		}

		actions = append(actions, &action)
	}

	return actions, rows.Err()
}

// AppendAction implements ledger.Tx
func (t *tx) AppendAction(ctx context.Context, action *ledger.Action) error {
	const query = `
INSERT INTO hand_actions (hand_uuid, seat, state, kind, amount)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created`

	var amount sql.NullInt64
	if action.Amount != nil {
		amount = sql.NullInt64{Int64: *action.Amount, Valid: true}
	}

	row := t.tx.QueryRowContext(ctx, query, action.HandUUID, action.Seat, action.State, action.Kind, amount)
	return row.Scan(&action.ID, &action.Created)
}

// PotsByHand implements ledger.Tx
func (t *tx) PotsByHand(ctx context.Context, handUUID string) ([]*ledger.Pot, error) {
	const query = `
SELECT hand_uuid, pot_index, amount, eligible_seats, winning_seats
FROM hand_pots
WHERE hand_uuid = $1
ORDER BY pot_index`

	rows, err := t.tx.QueryContext(ctx, query, handUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pots []*ledger.Pot
	for rows.Next() {
		var pot ledger.Pot
		var eligible, winning pq.Int64Array

		if err := rows.Scan(&pot.HandUUID, &pot.Index, &pot.Amount, &eligible, &winning); err != nil {
			return nil, err
		}

		pot.EligibleSeats = intSlice(eligible)
		pot.WinningSeats = intSlice(winning)
		pots = append(pots, &pot)
	}

	return pots, rows.Err()
}

// ReplacePots implements ledger.Tx
func (t *tx) ReplacePots(ctx context.Context, handUUID string, pots []*ledger.Pot) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM hand_pots WHERE hand_uuid = $1`, handUUID); err != nil {
		return err
	}

	const query = `
INSERT INTO hand_pots (hand_uuid, pot_index, amount, eligible_seats, winning_seats)
VALUES ($1, $2, $3, $4, $5)`

	for _, pot := range pots {
		_, err := t.tx.ExecContext(ctx, query, handUUID, pot.Index, pot.Amount,
			int64Array(pot.EligibleSeats), int64Array(pot.WinningSeats))
		if err != nil {
			return err
		}
	}

	return nil
}

// TableConfig implements ledger.Tx
func (t *tx) TableConfig(ctx context.Context, tableUUID string) (*ledger.TableConfig, error) {
	const query = `
SELECT table_uuid, small_blind, big_blind, rake_basis_points, seat_count, min_players
FROM table_configs
WHERE table_uuid = $1`

	var config ledger.TableConfig
	err := t.tx.QueryRowContext(ctx, query, tableUUID).Scan(&config.TableUUID, &config.SmallBlind,
		&config.BigBlind, &config.RakeBasisPoints, &config.SeatCount, &config.MinPlayers)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, err
	}

	return &config, nil
}

// Accounts implements ledger.Tx
func (t *tx) Accounts(ctx context.Context, tableUUID string) ([]*ledger.Account, error) {
	const query = `
SELECT table_uuid, account_id, seat, balance, updated
FROM table_accounts
WHERE table_uuid = $1
ORDER BY seat`

	rows, err := t.tx.QueryContext(ctx, query, tableUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*ledger.Account
	for rows.Next() {
		var account ledger.Account
		if err := rows.Scan(&account.TableUUID, &account.AccountID, &account.Seat,
			&account.Balance, &account.Updated); err != nil {
			return nil, err
		}

		accounts = append(accounts, &account)
	}

	return accounts, rows.Err()
}

// AdjustAccountBalance implements ledger.Tx. Every adjustment leaves a
// journal row for audit.
func (t *tx) AdjustAccountBalance(ctx context.Context, tableUUID, accountID string, delta int64, reason string) error {
	const query = `
UPDATE table_accounts
SET balance = balance + $3, updated = (NOW() AT TIME ZONE 'UTC')
WHERE table_uuid = $1 AND account_id = $2`

	result, err := t.tx.ExecContext(ctx, query, tableUUID, accountID, delta)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrNotFound
	}

	const journalQuery = `
INSERT INTO account_journal (table_uuid, account_id, delta, reason)
VALUES ($1, $2, $3, $4)`

	_, err = t.tx.ExecContext(ctx, journalQuery, tableUUID, accountID, delta, reason)
	return err
}

func nullableSeat(seat *int) sql.NullInt64 {
	if seat == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: int64(*seat), Valid: true}
}

func int64Array(seats []int) pq.Int64Array {
	array := make(pq.Int64Array, len(seats))
	for i, seat := range seats {
		array[i] = int64(seat)
	}

	return array
}

func intSlice(array pq.Int64Array) []int {
	if array == nil {
		return nil
	}

	seats := make([]int, len(array))
	for i, value := range array {
		seats[i] = int(value)
	}

	return seats
}
