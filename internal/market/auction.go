// internal/market/auction.go
package market

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jason-s-yu/classbank/internal/ledger"
	"github.com/jason-s-yu/classbank/internal/models"
)

// CreateAuction opens a new active auction. A nil seller means the
// proceeds can only route to the class bank.
func (s *Service) CreateAuction(ctx context.Context, seller *uuid.UUID, itemName string) (*models.Auction, error) {
	a := &models.Auction{
		ID:        uuid.New(),
		SellerID:  seller,
		ItemName:  itemName,
		Status:    models.AuctionActive,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateAuction(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Bid records a higher bid on an active auction. No credits move until
// settlement; bid-clock mechanics belong to the caller.
func (s *Service) Bid(ctx context.Context, auctionID, bidder uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ledger.ErrZeroAmount
	}
	acct, err := s.ledgers.GetAccount(ctx, bidder)
	if err != nil {
		return err
	}
	if acct.Restricted(s.now()) {
		return ledger.ErrAccountRestricted
	}
	return s.store.PlaceBid(ctx, auctionID, bidder, amount)
}

// Settle transfers the winning bid from the highest bidder to the
// seller, or to the class bank when routeToClassBank is set or the
// auction has no seller. The auction row moves to completed inside the
// same transaction, so settlement is not re-entrant: a second attempt
// fails with ErrInvalidAuctionState and moves no money.
func (s *Service) Settle(ctx context.Context, auctionID uuid.UUID, routeToClassBank bool) error {
	a, err := s.store.Auction(ctx, auctionID)
	if err != nil {
		return err
	}
	if a.Status != models.AuctionActive {
		return ledger.ErrInvalidAuctionState
	}
	if a.HighestBidderID == nil || a.CurrentBid == nil || *a.CurrentBid <= 0 {
		return ledger.ErrNoBids
	}

	dst := ledger.ClassBank()
	if !routeToClassBank && a.SellerID != nil {
		dst = ledger.UserAccount(*a.SellerID)
	}

	_, err = s.engine.Transfer(ctx,
		ledger.UserAccount(*a.HighestBidderID), dst,
		*a.CurrentBid, ledger.ModeAuction, "auction: "+a.ItemName,
		func(ctx context.Context, tx ledger.Tx) error {
			atx, ok := tx.(auctionTx)
			if !ok {
				return fmt.Errorf("ledger store cannot close auctions")
			}
			return atx.CompleteAuction(ctx, auctionID)
		},
	)
	return err
}

// Cancel moves an active auction to cancelled without moving credits.
func (s *Service) Cancel(ctx context.Context, auctionID uuid.UUID) error {
	return s.store.CancelAuction(ctx, auctionID)
}
