package auction

import (
	"time"

	"github.com/google/uuid"
	db "github.com/nhattran/livebid-BE/internal/db"
)

// Close reasons carried by the terminal event.
const (
	CloseReasonTimeExpired = "time_expired"
	CloseReasonBuyNow      = "buy_now_price_reached"
)

// BidEventPayload is the data of a new_bid broadcast event.
type BidEventPayload struct {
	AuctionID      uuid.UUID     `json:"auction_id"`
	Bid            db.AuctionBid `json:"bid"`
	CurrentHighest int64         `json:"current_highest"`
	TotalBids      int64         `json:"total_bids"`
}

// ClosedEventPayload is the data of the terminal auction_closed event.
type ClosedEventPayload struct {
	AuctionID    uuid.UUID  `json:"auction_id"`
	FinalPrice   int64      `json:"final_price"`
	HasWinner    bool       `json:"has_winner"`
	WinningBidID *uuid.UUID `json:"winning_bid_id,omitempty"`
	WinnerID     *string    `json:"winner_id,omitempty"`
	Reason       string     `json:"reason"`
	LastSequence int64      `json:"last_sequence"`
	Timestamp    time.Time  `json:"timestamp"`
}

// Snapshot is a point-in-time read of one auction's ledger. LastSequence is
// the reconciliation baseline: live events at or below it are duplicates of
// bids already present in Bids.
type Snapshot struct {
	AuctionID      uuid.UUID        `json:"auction_id"`
	Bids           []db.AuctionBid  `json:"bids"`
	CurrentHighest int64            `json:"current_highest"`
	LastSequence   int64            `json:"last_sequence"`
	Status         db.AuctionStatus `json:"status"`
}
