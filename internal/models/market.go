package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemKind classifies marketplace items. Rank badges unlock sequentially
// by ascending threshold; utility items have no prerequisite.
type ItemKind string

const (
	ItemRank    ItemKind = "rank"
	ItemUtility ItemKind = "utility"
)

// Item is a purchasable marketplace entry.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Cost      int64     `json:"cost"`
	Kind      ItemKind  `json:"kind"`
	Threshold int64     `json:"threshold"`
}

// AuctionStatus is the auction state machine: active -> completed or
// active -> cancelled, with no transitions out of a terminal state.
type AuctionStatus string

const (
	AuctionActive    AuctionStatus = "active"
	AuctionCompleted AuctionStatus = "completed"
	AuctionCancelled AuctionStatus = "cancelled"
)

// Auction holds the money-movement side of an auction. Bid-clock
// mechanics live with the callers; settlement only needs the final
// price and the winning bidder.
type Auction struct {
	ID              uuid.UUID     `json:"id"`
	SellerID        *uuid.UUID    `json:"seller_id,omitempty"`
	ItemName        string        `json:"item_name"`
	Status          AuctionStatus `json:"status"`
	CurrentBid      *int64        `json:"current_bid,omitempty"`
	HighestBidderID *uuid.UUID    `json:"highest_bidder_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	SettledAt       *time.Time    `json:"settled_at,omitempty"`
}
