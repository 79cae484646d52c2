// internal/market/market.go
package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/classbank/internal/ledger"
	"github.com/jason-s-yu/classbank/internal/models"
	"github.com/jason-s-yu/classbank/internal/score"
	"github.com/jason-s-yu/classbank/internal/stats"
)

// ErrItemNotFound means the requested marketplace item does not exist.
var ErrItemNotFound = errors.New("item not found")

// ErrAuctionNotFound means the requested auction does not exist.
var ErrAuctionNotFound = errors.New("auction not found")

// Store is the marketplace's read side: items, ownership and auctions.
// Mutations that must be atomic with a payment run inside the ledger
// transaction instead (see inventoryTx / auctionTx).
type Store interface {
	Item(ctx context.Context, id uuid.UUID) (*models.Item, error)
	// RankItems returns all rank-badge items ordered by ascending
	// unlock threshold.
	RankItems(ctx context.Context) ([]models.Item, error)
	Owns(ctx context.Context, account, item uuid.UUID) (bool, error)
	Auction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	CreateItem(ctx context.Context, item *models.Item) error
	CreateAuction(ctx context.Context, a *models.Auction) error
	// PlaceBid records a higher bid on an active auction.
	PlaceBid(ctx context.Context, auction, bidder uuid.UUID, amount int64) error
	// CancelAuction moves an active auction to cancelled,
	// ledger.ErrInvalidAuctionState otherwise.
	CancelAuction(ctx context.Context, id uuid.UUID) error
}

// inventoryTx is implemented by ledger transactions whose backing store
// can grant items atomically with the payment.
type inventoryTx interface {
	AddInventory(ctx context.Context, account, item uuid.UUID) error
}

// auctionTx is implemented by ledger transactions whose backing store
// can close an auction atomically with the settlement transfer.
type auctionTx interface {
	CompleteAuction(ctx context.Context, id uuid.UUID) error
}

// Service applies purchase-eligibility rules and then drives the
// transfer engine. It owns no money-movement logic of its own.
type Service struct {
	engine  *ledger.Engine
	ledgers ledger.Store
	store   Store
	stats   stats.Store
	logger  *logrus.Logger
	now     func() time.Time
}

// NewService wires a marketplace over the transfer engine.
func NewService(engine *ledger.Engine, store Store, statsStore stats.Store, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		engine:  engine,
		ledgers: engine.Store(),
		store:   store,
		stats:   statsStore,
		logger:  logger,
		now:     time.Now,
	}
}

// PurchaseResult reports the outcome of a purchase. AlreadyOwned means
// the buyer had the item and nothing was charged.
type PurchaseResult struct {
	AlreadyOwned bool  `json:"already_owned"`
	Spent        int64 `json:"spent"`
}

// Purchase buys an item for the given account. Frozen or timed-out
// accounts are rejected; rank badges unlock sequentially by ascending
// threshold; re-buying an owned item is a no-op success. On success the
// cost routes to the class bank, the buyer's spentLifetime grows, and
// their course credits are recomputed against the post-purchase curve.
func (s *Service) Purchase(ctx context.Context, buyer, itemID uuid.UUID) (*PurchaseResult, error) {
	acct, err := s.ledgers.GetAccount(ctx, buyer)
	if err != nil {
		return nil, err
	}
	if acct.Restricted(s.now()) {
		return nil, ledger.ErrAccountRestricted
	}

	item, err := s.store.Item(ctx, itemID)
	if err != nil {
		return nil, err
	}

	// Fast path only: the authoritative ownership check is the inventory
	// grant inside the payment transaction, which fails the transfer with
	// ErrAlreadyOwned when a concurrent purchase won the race.
	owned, err := s.store.Owns(ctx, buyer, itemID)
	if err != nil {
		return nil, err
	}
	if owned {
		return &PurchaseResult{AlreadyOwned: true}, nil
	}

	if item.Kind == models.ItemRank {
		if err := s.checkRankPrerequisite(ctx, buyer, item); err != nil {
			return nil, err
		}
	}

	_, err = s.engine.Transfer(ctx,
		ledger.UserAccount(buyer), ledger.ClassBank(),
		item.Cost, ledger.ModeMarketplace, "purchase: "+item.Name,
		func(ctx context.Context, tx ledger.Tx) error {
			itx, ok := tx.(inventoryTx)
			if !ok {
				return fmt.Errorf("ledger store cannot record inventory")
			}
			return itx.AddInventory(ctx, buyer, itemID)
		},
	)
	if errors.Is(err, ledger.ErrAlreadyOwned) {
		return &PurchaseResult{AlreadyOwned: true}, nil
	}
	if err != nil {
		return nil, err
	}

	// The stats hook has already applied this purchase's delta, so the
	// buyer's curve reflects their own latest position.
	s.refreshCourseCredits(ctx, buyer, acct.EarnedLifetime, acct.SpentLifetime+item.Cost)

	return &PurchaseResult{Spent: item.Cost}, nil
}

// CreateItem adds an item to the catalog.
func (s *Service) CreateItem(ctx context.Context, item *models.Item) error {
	return s.store.CreateItem(ctx, item)
}

// checkRankPrerequisite enforces sequential unlocking: buying the badge
// at position k requires owning the badge at position k-1. The first
// badge is always purchasable.
func (s *Service) checkRankPrerequisite(ctx context.Context, buyer uuid.UUID, item *models.Item) error {
	ranks, err := s.store.RankItems(ctx)
	if err != nil {
		return err
	}
	var prev *models.Item
	for i := range ranks {
		if ranks[i].ID == item.ID {
			break
		}
		prev = &ranks[i]
	}
	if prev == nil {
		return nil
	}
	owned, err := s.store.Owns(ctx, buyer, prev.ID)
	if err != nil {
		return err
	}
	if !owned {
		return ledger.ErrPrerequisiteNotMet
	}
	return nil
}

// refreshCourseCredits recomputes and persists the account's course
// credits from the current global curve. Derived/reporting concern:
// failures are logged, the committed purchase stands.
func (s *Service) refreshCourseCredits(ctx context.Context, id uuid.UUID, earned, spent int64) {
	snap, err := s.stats.Read(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("account", id).Warn("failed to read global stats for course-credit refresh")
		return
	}
	cc := score.CourseCredits(float64(earned), float64(spent), snap.Mean(), snap.StdDev())
	if err := s.ledgers.UpdateCourseCredits(ctx, id, cc); err != nil {
		s.logger.WithError(err).WithField("account", id).Warn("failed to persist course credits")
	}
}
