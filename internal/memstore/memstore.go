// Package memstore is an in-process implementation of every store
// interface the service defines. It backs package tests and single-node
// development runs; the Postgres implementations in internal/database
// are the production semantics it mirrors. Transactions serialize on one
// mutex and roll back by restoring a snapshot.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/classbank/internal/auth"
	"github.com/jason-s-yu/classbank/internal/ledger"
	"github.com/jason-s-yu/classbank/internal/market"
	"github.com/jason-s-yu/classbank/internal/models"
	"github.com/jason-s-yu/classbank/internal/score"
)

// MemStore holds accounts, the class bank, marketplace state and the
// transaction trail behind one mutex.
type MemStore struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]*models.Account
	emails    map[string]uuid.UUID
	bank      int64
	items     map[uuid.UUID]*models.Item
	inventory map[uuid.UUID]map[uuid.UUID]time.Time
	auctions  map[uuid.UUID]*models.Auction
	records   []models.TransactionRecord
}

// New returns an empty MemStore with a zero-balance class bank.
func New() *MemStore {
	return &MemStore{
		accounts:  make(map[uuid.UUID]*models.Account),
		emails:    make(map[string]uuid.UUID),
		items:     make(map[uuid.UUID]*models.Item),
		inventory: make(map[uuid.UUID]map[uuid.UUID]time.Time),
		auctions:  make(map[uuid.UUID]*models.Auction),
	}
}

// snapshot captures the rollback state for one transaction.
type snapshot struct {
	accounts  map[uuid.UUID]*models.Account
	bank      int64
	inventory map[uuid.UUID]map[uuid.UUID]time.Time
	auctions  map[uuid.UUID]*models.Auction
}

func (s *MemStore) capture() snapshot {
	snap := snapshot{
		accounts:  make(map[uuid.UUID]*models.Account, len(s.accounts)),
		bank:      s.bank,
		inventory: make(map[uuid.UUID]map[uuid.UUID]time.Time, len(s.inventory)),
		auctions:  make(map[uuid.UUID]*models.Auction, len(s.auctions)),
	}
	for id, a := range s.accounts {
		cp := *a
		snap.accounts[id] = &cp
	}
	for id, owned := range s.inventory {
		cp := make(map[uuid.UUID]time.Time, len(owned))
		for k, v := range owned {
			cp[k] = v
		}
		snap.inventory[id] = cp
	}
	for id, a := range s.auctions {
		cp := *a
		snap.auctions[id] = &cp
	}
	return snap
}

func (s *MemStore) restore(snap snapshot) {
	s.accounts = snap.accounts
	s.bank = snap.bank
	s.inventory = snap.inventory
	s.auctions = snap.auctions
}

// InTx runs fn atomically: the whole store is locked for the duration
// and every mutation is rolled back if fn errors.
func (s *MemStore) InTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.capture()
	if err := fn(&memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// GetAccount returns a copy of the account, ledger.ErrAccountNotFound
// if missing.
func (s *MemStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account(id)
}

func (s *MemStore) account(id uuid.UUID) (*models.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

// BankBalance returns the class-bank balance.
func (s *MemStore) BankBalance(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank, nil
}

// SeedBank pre-funds the class bank, for wiring and tests.
func (s *MemStore) SeedBank(amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bank += amount
}

// UpdateCourseCredits persists a recomputed course-credit value.
func (s *MemStore) UpdateCourseCredits(ctx context.Context, id uuid.UUID, credits float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	a.CourseCredits = credits
	return nil
}

// CreateAccount hashes the password and inserts the account with the
// signup baseline: credits and lifetime-earned both 20, entry rank.
func (s *MemStore) CreateAccount(ctx context.Context, a *models.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Password != "" {
		hash, err := auth.CreateHash(a.Password, auth.Params)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		a.Password = hash
	}
	a.Credits = ledger.SignupCredits
	a.EarnedLifetime = ledger.SignupCredits
	a.SpentLifetime = 0
	a.ReceivedLifetime = 0
	a.Rank = score.RankFor(a.EarnedLifetime)
	a.CourseCredits = score.Midpoint
	a.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Email != "" {
		if _, exists := s.emails[a.Email]; exists {
			return fmt.Errorf("email already registered")
		}
		s.emails[a.Email] = a.ID
	}
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

// AccountByEmail looks an account up for login.
func (s *MemStore) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return s.account(id)
}

// SetRestriction freezes/unfreezes an account or sets its timeout.
func (s *MemStore) SetRestriction(ctx context.Context, id uuid.UUID, frozen bool, timeoutUntil *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	a.Frozen = frozen
	a.TimeoutUntil = timeoutUntil
	return nil
}

// Append records a transaction-trail row.
func (s *MemStore) Append(ctx context.Context, rec models.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of the transaction trail, newest last.
func (s *MemStore) Records() []models.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TransactionRecord, len(s.records))
	copy(out, s.records)
	return out
}

// TotalCredits sums every account balance plus the bank, for
// conservation checks.
func (s *MemStore) TotalCredits() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.bank
	for _, a := range s.accounts {
		total += a.Credits
	}
	return total
}

// memTx mutates the already-locked store. The debits are conditional:
// check and write are one step under the store mutex.
type memTx struct {
	s *MemStore
}

func (t *memTx) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return t.s.account(id)
}

func (t *memTx) DebitAccount(ctx context.Context, id uuid.UUID, amount, spentDelta int64) error {
	a, ok := t.s.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	if a.Credits < amount {
		return ledger.ErrInsufficientBalance
	}
	a.Credits -= amount
	a.SpentLifetime += spentDelta
	return nil
}

func (t *memTx) CreditAccount(ctx context.Context, id uuid.UUID, amount, earnedDelta, receivedDelta int64, rank string) error {
	a, ok := t.s.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	a.Credits += amount
	a.EarnedLifetime += earnedDelta
	a.ReceivedLifetime += receivedDelta
	if rank != "" {
		a.Rank = rank
	}
	return nil
}

func (t *memTx) DebitBank(ctx context.Context, amount int64) error {
	if t.s.bank < amount {
		return ledger.ErrInsufficientBalance
	}
	t.s.bank -= amount
	return nil
}

func (t *memTx) CreditBank(ctx context.Context, amount int64) error {
	t.s.bank += amount
	return nil
}

func (t *memTx) MintAll(ctx context.Context, amount int64, rankFor func(earned int64) string) ([]ledger.ScoreShift, error) {
	shifts := make([]ledger.ScoreShift, 0, len(t.s.accounts))
	for _, a := range t.s.accounts {
		shifts = append(shifts, ledger.ScoreShift{
			AccountID: a.ID,
			OldEarned: a.EarnedLifetime,
			OldSpent:  a.SpentLifetime,
			NewEarned: a.EarnedLifetime + amount,
			NewSpent:  a.SpentLifetime,
		})
		a.Credits += amount
		a.EarnedLifetime += amount
		a.Rank = rankFor(a.EarnedLifetime)
	}
	return shifts, nil
}

// AddInventory grants the item, ledger.ErrAlreadyOwned if a prior
// purchase already granted it.
func (t *memTx) AddInventory(ctx context.Context, account, item uuid.UUID) error {
	owned := t.s.inventory[account]
	if owned == nil {
		owned = make(map[uuid.UUID]time.Time)
		t.s.inventory[account] = owned
	}
	if _, ok := owned[item]; ok {
		return ledger.ErrAlreadyOwned
	}
	owned[item] = time.Now().UTC()
	return nil
}

// CompleteAuction moves an active auction to completed, guarding
// re-entrant settlement.
func (t *memTx) CompleteAuction(ctx context.Context, id uuid.UUID) error {
	a, ok := t.s.auctions[id]
	if !ok {
		return market.ErrAuctionNotFound
	}
	if a.Status != models.AuctionActive {
		return ledger.ErrInvalidAuctionState
	}
	a.Status = models.AuctionCompleted
	now := time.Now().UTC()
	a.SettledAt = &now
	return nil
}

// --- market.Store ---

func (s *MemStore) Item(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, market.ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *MemStore) RankItems(ctx context.Context) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Item
	for _, it := range s.items {
		if it.Kind == models.ItemRank {
			out = append(out, *it)
		}
	}
	// Name breaks threshold ties so the prerequisite chain is stable.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Threshold != out[j].Threshold {
			return out[i].Threshold < out[j].Threshold
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemStore) Owns(ctx context.Context, account, item uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inventory[account][item]
	return ok, nil
}

func (s *MemStore) CreateItem(ctx context.Context, item *models.Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *MemStore) Auction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, market.ErrAuctionNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemStore) CreateAuction(ctx context.Context, a *models.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.auctions[a.ID] = &cp
	return nil
}

func (s *MemStore) PlaceBid(ctx context.Context, auction, bidder uuid.UUID, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[auction]
	if !ok {
		return market.ErrAuctionNotFound
	}
	if a.Status != models.AuctionActive {
		return ledger.ErrInvalidAuctionState
	}
	if a.CurrentBid != nil && amount <= *a.CurrentBid {
		return fmt.Errorf("bid must exceed current bid of %d", *a.CurrentBid)
	}
	a.CurrentBid = &amount
	a.HighestBidderID = &bidder
	return nil
}

func (s *MemStore) CancelAuction(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return market.ErrAuctionNotFound
	}
	if a.Status != models.AuctionActive {
		return ledger.ErrInvalidAuctionState
	}
	a.Status = models.AuctionCancelled
	return nil
}
