package ledger

import "context"

// Store is the hand ledger. It is an injected capability: the engine never
// reaches for a process-wide handle, so tests can supply an isolated
// instance per run.
type Store interface {
	// InTransaction runs fn inside a single atomic transaction. If fn returns
	// an error the transaction is rolled back and the error is returned
	// unchanged. No caller may observe a partially-applied transaction.
	InTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// Tx provides atomic read/modify/write of ledger records. All reads observe
// the transaction's own writes.
type Tx interface {
	// Hand returns the hand by UUID, or ErrNotFound
	Hand(ctx context.Context, handUUID string) (*Hand, error)

	// ActiveHand returns the non-completed hand for the table, or ErrNotFound
	ActiveHand(ctx context.Context, tableUUID string) (*Hand, error)

	// LastCompletedHand returns the most recently completed hand for the
	// table, or ErrNotFound. Used for dealer rotation.
	LastCompletedHand(ctx context.Context, tableUUID string) (*Hand, error)

	// SeatsByHand returns the hand's seats in ascending seat-number order
	SeatsByHand(ctx context.Context, handUUID string) ([]*SeatPlayer, error)

	// ActionsByHand returns every action for the hand ordered by betting
	// round, then by time recorded. This is the sole source of truth for
	// cumulative commitment.
	ActionsByHand(ctx context.Context, handUUID string) ([]*Action, error)

	// PotsByHand returns the hand's pots in ascending index order
	PotsByHand(ctx context.Context, handUUID string) ([]*Pot, error)

	// TableConfig returns the table configuration, or ErrNotFound
	TableConfig(ctx context.Context, tableUUID string) (*TableConfig, error)

	// Accounts returns the table's accounts in ascending seat order
	Accounts(ctx context.Context, tableUUID string) ([]*Account, error)

	CreateHand(ctx context.Context, hand *Hand) error
	CreateSeat(ctx context.Context, seat *SeatPlayer) error
	UpdateHand(ctx context.Context, hand *Hand) error
	UpdateSeat(ctx context.Context, seat *SeatPlayer) error

	// AppendAction appends one immutable action record and populates its ID
	AppendAction(ctx context.Context, action *Action) error

	// ReplacePots atomically replaces the hand's pot rows
	ReplacePots(ctx context.Context, handUUID string, pots []*Pot) error

	// AdjustAccountBalance applies a settlement delta to a table account
	AdjustAccountBalance(ctx context.Context, tableUUID, accountID string, delta int64, reason string) error
}
