// Package events carries the audit records the engine emits after a player
// action commits. Recorders are best-effort collaborators: a recorder
// failure never unwinds the action that produced the record.
package events

import (
	"context"
	"time"

	"cardroom-server/pkg/ledger"
)

// ActionRecord is emitted once per player action
type ActionRecord struct {
	TableUUID string            `json:"tableUuid"`
	HandUUID  string            `json:"handUuid"`
	Seat      int               `json:"seat"`
	AccountID string            `json:"accountId"`
	Kind      ledger.ActionKind `json:"kind"`
	Amount    *int64            `json:"amount"`
	State     ledger.State      `json:"state"`
	Time      time.Time         `json:"time"`
}

// CompletionRecord is emitted once per hand completion. It contains enough
// for an external party to replay and verify the entire hand: every pot with
// its winners, every action, the revealed shuffle seed, and the full deck.
type CompletionRecord struct {
	TableUUID   string           `json:"tableUuid"`
	HandUUID    string           `json:"handUuid"`
	Seed        int64            `json:"seed"`
	Deck        string           `json:"deck"`
	DeckHash    string           `json:"deckHash"`
	Community   string           `json:"community"`
	Pots        []*ledger.Pot    `json:"pots"`
	Actions     []*ledger.Action `json:"actions"`
	WinnerSeats []int            `json:"winnerSeats"`
	Payouts     map[int]int64    `json:"payouts"`
	Rake        int64            `json:"rake"`
	Time        time.Time        `json:"time"`
}

// Recorder receives audit records after the producing transaction commits
type Recorder interface {
	HandAction(ctx context.Context, record *ActionRecord) error
	HandCompleted(ctx context.Context, record *CompletionRecord) error
}

// Discard is a Recorder that drops every record
type Discard struct{}

// HandAction implements Recorder
func (Discard) HandAction(context.Context, *ActionRecord) error {
	return nil
}

// HandCompleted implements Recorder
func (Discard) HandCompleted(context.Context, *CompletionRecord) error {
	return nil
}
