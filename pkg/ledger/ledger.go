// Package ledger defines the persistent records for a hand of poker and the
// transactional store the engine runs against. Every record is an explicit
// struct; mapping to and from storage happens once, at the store boundary.
package ledger

import (
	"encoding/json"
	"errors"
	"time"

	"cardroom-server/pkg/deck"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// State is the betting round a hand is in. States only move forward.
type State int

// state constants, in play order
const (
	StatePreFlop State = iota
	StateFlop
	StateTurn
	StateRiver
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StatePreFlop:
		return "pre-flop"
	case StateFlop:
		return "flop"
	case StateTurn:
		return "turn"
	case StateRiver:
		return "river"
	case StateCompleted:
		return "completed"
	}

	return "unknown"
}

// MarshalJSON encodes JSON
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}{
		ID:   int(s),
		Name: s.String(),
	})
}

// UnmarshalJSON decodes either the bare integer or the object form
func (s *State) UnmarshalJSON(b []byte) error {
	var id int
	if err := json.Unmarshal(b, &id); err == nil {
		*s = State(id)
		return nil
	}

	var obj struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}

	*s = State(obj.ID)
	return nil
}

// CommunityCards returns how many community cards are dealt entering the state
func (s State) CommunityCards() int {
	switch s {
	case StateFlop:
		return 3
	case StateTurn, StateRiver:
		return 1
	}

	return 0
}

// SeatStatus is the in-hand status of a seat
type SeatStatus string

// seat status constants
const (
	SeatActive SeatStatus = "active"
	SeatFolded SeatStatus = "folded"
	SeatAllIn  SeatStatus = "all_in"
)

// ActionKind identifies what a seat did
type ActionKind string

// action kind constants
const (
	ActionPostBlind ActionKind = "post_blind"
	ActionFold      ActionKind = "fold"
	ActionCheck     ActionKind = "check"
	ActionCall      ActionKind = "call"
	ActionRaise     ActionKind = "raise"
	ActionAllIn     ActionKind = "all_in"
)

// Hand is one playing round of the game at a table.
// It is owned exclusively by the engine for its lifetime and is immutable
// once the state reaches StateCompleted.
type Hand struct {
	UUID           string    `json:"uuid"`
	TableUUID      string    `json:"tableUuid"`
	State          State     `json:"state"`
	DealerSeat     int       `json:"dealerSeat"`
	SmallBlindSeat int       `json:"smallBlindSeat"`
	BigBlindSeat   int       `json:"bigBlindSeat"`
	// CurrentBet is the highest total commitment required this betting round
	CurrentBet int64 `json:"currentBet"`
	// LastRaise is the size of the last full raise, used for minimum-raise enforcement
	LastRaise int64 `json:"lastRaise"`
	// CurrentActionSeat is nil when no seat is on the clock
	CurrentActionSeat *int      `json:"currentActionSeat"`
	TurnStartedAt     time.Time `json:"turnStartedAt"`
	Community         deck.Hand `json:"community"`
	// Deck is the full ordered 52-card sequence; DeckCursor points at the next
	// undealt card
	Deck       deck.Hand `json:"-"`
	DeckCursor int       `json:"-"`
	// Seed is the shuffle seed. It must only be revealed once the hand is completed.
	Seed    int64     `json:"-"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// SeatPlayer is a per-hand participant
type SeatPlayer struct {
	HandUUID  string     `json:"handUuid"`
	Seat      int        `json:"seat"`
	AccountID string     `json:"accountId"`
	HoleCards deck.Hand  `json:"-"`
	Status    SeatStatus `json:"status"`
	// RoundCommitted is how much the seat has committed in the current betting
	// round only. It is a derived cache; Action history is authoritative.
	RoundCommitted int64 `json:"roundCommitted"`
	// Balance is the stack remaining behind the current round's commitment
	Balance int64     `json:"balance"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// Action is an immutable, append-only record of one event in the hand.
// Amount is the incremental amount added by this action; nil for fold/check.
type Action struct {
	ID       int64      `json:"id"`
	HandUUID string     `json:"handUuid"`
	Seat     int        `json:"seat"`
	State    State      `json:"state"`
	Kind     ActionKind `json:"kind"`
	Amount   *int64     `json:"amount"`
	Created  time.Time  `json:"created"`
}

// Pot is a partition of the total wagered value for a hand. Index 0 is the
// lowest eligibility tier. WinningSeats is nil until settlement.
type Pot struct {
	HandUUID      string `json:"handUuid"`
	Index         int    `json:"index"`
	Amount        int64  `json:"amount"`
	EligibleSeats []int  `json:"eligibleSeats"`
	WinningSeats  []int  `json:"winningSeats,omitempty"`
}

// Account is a per-table balance for a wallet/account identifier.
// The seat is fixed for as long as the account is joined to the table.
type Account struct {
	TableUUID string    `json:"tableUuid"`
	AccountID string    `json:"accountId"`
	Seat      int       `json:"seat"`
	Balance   int64     `json:"balance"`
	Updated   time.Time `json:"updated"`
}

// TableConfig is the read-only configuration for a table
type TableConfig struct {
	TableUUID       string `json:"tableUuid"`
	SmallBlind      int64  `json:"smallBlind"`
	BigBlind        int64  `json:"bigBlind"`
	RakeBasisPoints int64  `json:"rakeBasisPoints"`
	SeatCount       int    `json:"seatCount"`
	MinPlayers      int    `json:"minPlayers"`
}

// PotTotal returns the combined total of the provided pots
func PotTotal(pots []*Pot) int64 {
	var total int64
	for _, pot := range pots {
		total += pot.Amount
	}

	return total
}
