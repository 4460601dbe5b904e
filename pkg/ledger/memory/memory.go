// Package memory provides an in-memory ledger.Store. It backs the engine
// tests and local development; the postgres package is the production store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cardroom-server/pkg/ledger"
)

// JournalEntry records one account balance adjustment
type JournalEntry struct {
	TableUUID string
	AccountID string
	Delta     int64
	Reason    string
}

// Store is an in-memory ledger.Store. A single mutex serializes
// transactions; rollback restores a snapshot taken at transaction start.
type Store struct {
	mu sync.Mutex

	hands    map[string]*ledger.Hand
	seats    map[string][]*ledger.SeatPlayer
	actions  map[string][]*ledger.Action
	pots     map[string][]*ledger.Pot
	configs  map[string]*ledger.TableConfig
	accounts map[string][]*ledger.Account
	journal  []JournalEntry

	nextActionID int64
}

// NewStore returns an empty in-memory store
func NewStore() *Store {
	return &Store{
		hands:    make(map[string]*ledger.Hand),
		seats:    make(map[string][]*ledger.SeatPlayer),
		actions:  make(map[string][]*ledger.Action),
		pots:     make(map[string][]*ledger.Pot),
		configs:  make(map[string]*ledger.TableConfig),
		accounts: make(map[string][]*ledger.Account),
	}
}

// SeedTable installs a table configuration and its accounts
func (s *Store) SeedTable(config *ledger.TableConfig, accounts []*ledger.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configs[config.TableUUID] = copyConfig(config)
	for _, account := range accounts {
		s.accounts[config.TableUUID] = append(s.accounts[config.TableUUID], copyAccount(account))
	}
}

// Journal returns every balance adjustment applied so far
func (s *Store) Journal() []JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	journal := make([]JournalEntry, len(s.journal))
	copy(journal, s.journal)
	return journal
}

// InTransaction implements ledger.Store
func (s *Store) InTransaction(_ context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	if err := fn(&tx{store: s}); err != nil {
		s.restore(snapshot)
		return err
	}

	return nil
}

type snapshotState struct {
	hands        map[string]*ledger.Hand
	seats        map[string][]*ledger.SeatPlayer
	actions      map[string][]*ledger.Action
	pots         map[string][]*ledger.Pot
	accounts     map[string][]*ledger.Account
	journal      []JournalEntry
	nextActionID int64
}

func (s *Store) snapshot() *snapshotState {
	snap := &snapshotState{
		hands:        make(map[string]*ledger.Hand, len(s.hands)),
		seats:        make(map[string][]*ledger.SeatPlayer, len(s.seats)),
		actions:      make(map[string][]*ledger.Action, len(s.actions)),
		pots:         make(map[string][]*ledger.Pot, len(s.pots)),
		accounts:     make(map[string][]*ledger.Account, len(s.accounts)),
		journal:      make([]JournalEntry, len(s.journal)),
		nextActionID: s.nextActionID,
	}

	for uuid, hand := range s.hands {
		snap.hands[uuid] = copyHand(hand)
	}
	for uuid, seats := range s.seats {
		snap.seats[uuid] = copySeats(seats)
	}
	for uuid, actions := range s.actions {
		snap.actions[uuid] = copyActions(actions)
	}
	for uuid, pots := range s.pots {
		snap.pots[uuid] = copyPots(pots)
	}
	for uuid, accounts := range s.accounts {
		copied := make([]*ledger.Account, len(accounts))
		for i, account := range accounts {
			copied[i] = copyAccount(account)
		}
		snap.accounts[uuid] = copied
	}
	copy(snap.journal, s.journal)

	return snap
}

func (s *Store) restore(snap *snapshotState) {
	s.hands = snap.hands
	s.seats = snap.seats
	s.actions = snap.actions
	s.pots = snap.pots
	s.accounts = snap.accounts
	s.journal = snap.journal
	s.nextActionID = snap.nextActionID
}

// tx operates directly on the store. The store mutex is held for the whole
// transaction, so no additional locking happens here.
type tx struct {
	store *Store
}

// Hand implements ledger.Tx
func (t *tx) Hand(_ context.Context, handUUID string) (*ledger.Hand, error) {
	hand, ok := t.store.hands[handUUID]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	return copyHand(hand), nil
}

// ActiveHand implements ledger.Tx
func (t *tx) ActiveHand(_ context.Context, tableUUID string) (*ledger.Hand, error) {
	for _, hand := range t.store.hands {
		if hand.TableUUID == tableUUID && hand.State != ledger.StateCompleted {
			return copyHand(hand), nil
		}
	}

	return nil, ledger.ErrNotFound
}

// LastCompletedHand implements ledger.Tx
func (t *tx) LastCompletedHand(_ context.Context, tableUUID string) (*ledger.Hand, error) {
	var last *ledger.Hand
	for _, hand := range t.store.hands {
		if hand.TableUUID != tableUUID || hand.State != ledger.StateCompleted {
			continue
		}
		if last == nil || hand.Updated.After(last.Updated) {
			last = hand
		}
	}

	if last == nil {
		return nil, ledger.ErrNotFound
	}

	return copyHand(last), nil
}

// SeatsByHand implements ledger.Tx
func (t *tx) SeatsByHand(_ context.Context, handUUID string) ([]*ledger.SeatPlayer, error) {
	seats := copySeats(t.store.seats[handUUID])
	sort.Slice(seats, func(i, j int) bool { return seats[i].Seat < seats[j].Seat })
	return seats, nil
}

// ActionsByHand implements ledger.Tx
func (t *tx) ActionsByHand(_ context.Context, handUUID string) ([]*ledger.Action, error) {
	actions := copyActions(t.store.actions[handUUID])
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].State != actions[j].State {
			return actions[i].State < actions[j].State
		}
		return actions[i].ID < actions[j].ID
	})
	return actions, nil
}

// PotsByHand implements ledger.Tx
func (t *tx) PotsByHand(_ context.Context, handUUID string) ([]*ledger.Pot, error) {
	pots := copyPots(t.store.pots[handUUID])
	sort.Slice(pots, func(i, j int) bool { return pots[i].Index < pots[j].Index })
	return pots, nil
}

// TableConfig implements ledger.Tx
func (t *tx) TableConfig(_ context.Context, tableUUID string) (*ledger.TableConfig, error) {
	config, ok := t.store.configs[tableUUID]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	return copyConfig(config), nil
}

// Accounts implements ledger.Tx
func (t *tx) Accounts(_ context.Context, tableUUID string) ([]*ledger.Account, error) {
	accounts := make([]*ledger.Account, 0, len(t.store.accounts[tableUUID]))
	for _, account := range t.store.accounts[tableUUID] {
		accounts = append(accounts, copyAccount(account))
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Seat < accounts[j].Seat })
	return accounts, nil
}

// CreateHand implements ledger.Tx
func (t *tx) CreateHand(_ context.Context, hand *ledger.Hand) error {
	now := time.Now()
	hand.Created = now
	hand.Updated = now
	t.store.hands[hand.UUID] = copyHand(hand)
	return nil
}

// CreateSeat implements ledger.Tx
func (t *tx) CreateSeat(_ context.Context, seat *ledger.SeatPlayer) error {
	now := time.Now()
	seat.Created = now
	seat.Updated = now
	t.store.seats[seat.HandUUID] = append(t.store.seats[seat.HandUUID], copySeat(seat))
	return nil
}

// UpdateHand implements ledger.Tx
func (t *tx) UpdateHand(_ context.Context, hand *ledger.Hand) error {
	if _, ok := t.store.hands[hand.UUID]; !ok {
		return ledger.ErrNotFound
	}

	hand.Updated = time.Now()
	t.store.hands[hand.UUID] = copyHand(hand)
	return nil
}

// UpdateSeat implements ledger.Tx
func (t *tx) UpdateSeat(_ context.Context, seat *ledger.SeatPlayer) error {
	seats := t.store.seats[seat.HandUUID]
	for i, existing := range seats {
		if existing.Seat == seat.Seat {
			seat.Updated = time.Now()
			seats[i] = copySeat(seat)
			return nil
		}
	}

	return ledger.ErrNotFound
}

// AppendAction implements ledger.Tx
func (t *tx) AppendAction(_ context.Context, action *ledger.Action) error {
	t.store.nextActionID++
	action.ID = t.store.nextActionID
	t.store.actions[action.HandUUID] = append(t.store.actions[action.HandUUID], copyAction(action))
	return nil
}

// ReplacePots implements ledger.Tx
func (t *tx) ReplacePots(_ context.Context, handUUID string, pots []*ledger.Pot) error {
	t.store.pots[handUUID] = copyPots(pots)
	return nil
}

// AdjustAccountBalance implements ledger.Tx
func (t *tx) AdjustAccountBalance(_ context.Context, tableUUID, accountID string, delta int64, reason string) error {
	for _, account := range t.store.accounts[tableUUID] {
		if account.AccountID == accountID {
			account.Balance += delta
			account.Updated = time.Now()
			t.store.journal = append(t.store.journal, JournalEntry{
				TableUUID: tableUUID,
				AccountID: accountID,
				Delta:     delta,
				Reason:    reason,
			})
			return nil
		}
	}

	return ledger.ErrNotFound
}

func copyHand(hand *ledger.Hand) *ledger.Hand {
	copied := *hand
	copied.Community = hand.Community.Clone()
	copied.Deck = hand.Deck.Clone()
	if hand.CurrentActionSeat != nil {
		seat := *hand.CurrentActionSeat
		copied.CurrentActionSeat = &seat
	}

	return &copied
}

func copySeat(seat *ledger.SeatPlayer) *ledger.SeatPlayer {
	copied := *seat
	copied.HoleCards = seat.HoleCards.Clone()
	return &copied
}

func copySeats(seats []*ledger.SeatPlayer) []*ledger.SeatPlayer {
	copied := make([]*ledger.SeatPlayer, len(seats))
	for i, seat := range seats {
		copied[i] = copySeat(seat)
	}

	return copied
}

func copyAction(action *ledger.Action) *ledger.Action {
	copied := *action
	if action.Amount != nil {
		amount := *action.Amount
		copied.Amount = &amount
	}

	return &copied
}

func copyActions(actions []*ledger.Action) []*ledger.Action {
	copied := make([]*ledger.Action, len(actions))
	for i, action := range actions {
		copied[i] = copyAction(action)
	}

	return copied
}

func copyPots(pots []*ledger.Pot) []*ledger.Pot {
	copied := make([]*ledger.Pot, len(pots))
	for i, pot := range pots {
		p := *pot
		p.EligibleSeats = append([]int(nil), pot.EligibleSeats...)
		p.WinningSeats = append([]int(nil), pot.WinningSeats...)
		copied[i] = &p
	}

	return copied
}

func copyAccount(account *ledger.Account) *ledger.Account {
	copied := *account
	return &copied
}

func copyConfig(config *ledger.TableConfig) *ledger.TableConfig {
	copied := *config
	return &copied
}
