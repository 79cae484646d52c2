package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jason-s-yu/classbank/internal/ledger"
	"github.com/jason-s-yu/classbank/internal/market"
	"github.com/jason-s-yu/classbank/internal/models"
)

// Item loads one marketplace item.
func (s *PGStore) Item(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var it models.Item
	q := `SELECT id, name, cost, kind, threshold FROM items WHERE id = $1`
	err := s.pool.QueryRow(ctx, q, id).Scan(&it.ID, &it.Name, &it.Cost, &it.Kind, &it.Threshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, market.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	return &it, nil
}

// RankItems returns rank badges ordered by ascending unlock threshold,
// which is the sequential-unlock ordering. Name breaks threshold ties so
// the chain is stable.
func (s *PGStore) RankItems(ctx context.Context) ([]models.Item, error) {
	q := `SELECT id, name, cost, kind, threshold FROM items WHERE kind = $1 ORDER BY threshold ASC, name ASC`
	rows, err := s.pool.Query(ctx, q, models.ItemRank)
	if err != nil {
		return nil, fmt.Errorf("failed to query rank items: %w", err)
	}
	defer rows.Close()

	var out []models.Item
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Cost, &it.Kind, &it.Threshold); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Owns reports whether the account holds the item.
func (s *PGStore) Owns(ctx context.Context, account, item uuid.UUID) (bool, error) {
	var owned bool
	q := `SELECT EXISTS (SELECT 1 FROM inventory WHERE account_id = $1 AND item_id = $2)`
	if err := s.pool.QueryRow(ctx, q, account, item).Scan(&owned); err != nil {
		return false, fmt.Errorf("failed to check inventory: %w", err)
	}
	return owned, nil
}

// CreateItem inserts a marketplace item.
func (s *PGStore) CreateItem(ctx context.Context, item *models.Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	q := `INSERT INTO items (id, name, cost, kind, threshold) VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, q, item.ID, item.Name, item.Cost, item.Kind, item.Threshold); err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// Auction loads one auction.
func (s *PGStore) Auction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var a models.Auction
	q := `
	SELECT id, seller_id, item_name, status, current_bid, highest_bidder_id, created_at, settled_at
	FROM auctions WHERE id = $1
	`
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.SellerID, &a.ItemName, &a.Status,
		&a.CurrentBid, &a.HighestBidderID, &a.CreatedAt, &a.SettledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, market.ErrAuctionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load auction: %w", err)
	}
	return &a, nil
}

// CreateAuction inserts a new active auction.
func (s *PGStore) CreateAuction(ctx context.Context, a *models.Auction) error {
	q := `
	INSERT INTO auctions (id, seller_id, item_name, status, created_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.pool.Exec(ctx, q, a.ID, a.SellerID, a.ItemName, a.Status, a.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	return nil
}

// PlaceBid records a strictly higher bid on an active auction; the
// guard is part of the UPDATE condition so concurrent bids cannot
// regress the price.
func (s *PGStore) PlaceBid(ctx context.Context, auction, bidder uuid.UUID, amount int64) error {
	q := `
	UPDATE auctions
	SET current_bid = $1, highest_bidder_id = $2
	WHERE id = $3 AND status = $4 AND (current_bid IS NULL OR current_bid < $1)
	`
	tag, err := s.pool.Exec(ctx, q, amount, bidder, auction, models.AuctionActive)
	if err != nil {
		return fmt.Errorf("failed to place bid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the auction is not active or the bid was too low;
		// re-read to report the right failure.
		a, loadErr := s.Auction(ctx, auction)
		if loadErr != nil {
			return loadErr
		}
		if a.Status != models.AuctionActive {
			return ledger.ErrInvalidAuctionState
		}
		return fmt.Errorf("bid must exceed current bid of %d", *a.CurrentBid)
	}
	return nil
}

// CancelAuction moves an active auction to cancelled.
func (s *PGStore) CancelAuction(ctx context.Context, id uuid.UUID) error {
	q := `UPDATE auctions SET status = $1 WHERE id = $2 AND status = $3`
	tag, err := s.pool.Exec(ctx, q, models.AuctionCancelled, id, models.AuctionActive)
	if err != nil {
		return fmt.Errorf("failed to cancel auction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrInvalidAuctionState
	}
	return nil
}
