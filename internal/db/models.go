package db

import (
	"time"

	"github.com/google/uuid"
)

type AuctionStatus string

const (
	AuctionStatusActive AuctionStatus = "active"
	AuctionStatusClosed AuctionStatus = "closed"
	// AuctionStatusSold is set by the payment collaborator after the winner
	// pays. The bidding core never writes this value.
	AuctionStatusSold AuctionStatus = "sold"
)

type Auction struct {
	ID            uuid.UUID     `json:"id"`
	SellerID      string        `json:"seller_id"`
	Title         string        `json:"title"`
	StartingPrice int64         `json:"starting_price"`
	BuyNowPrice   *int64        `json:"buy_now_price,omitempty"`
	CurrentPrice  int64         `json:"current_price"`
	TotalBids     int64         `json:"total_bids"`
	Status        AuctionStatus `json:"status"`
	WinningBidID  *uuid.UUID    `json:"winning_bid_id,omitempty"`
	EndTime       time.Time     `json:"end_time"`
	ActualEndTime *time.Time    `json:"actual_end_time,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// AuctionBid is immutable once created. Sequence is assigned by the server
// per auction, starting at 1 with no gaps; CreatedAt is server time.
type AuctionBid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	Sequence  int64     `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// AuctionWinner is written exactly once when an auction closes with at least
// one bid. Re-closing an already closed auction reads this row back instead
// of recomputing.
type AuctionWinner struct {
	AuctionID uuid.UUID `json:"auction_id"`
	BidID     uuid.UUID `json:"bid_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	DecidedAt time.Time `json:"decided_at"`
}
