package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Outcome describes the result of one auction for one bidder.
type Outcome struct {
	RecipientID  string    `json:"recipient_id"`
	AuctionID    uuid.UUID `json:"auction_id"`
	AuctionTitle string    `json:"auction_title"`
	Outcome      string    `json:"outcome"` // WIN or LOSE
	Amount       int64     `json:"amount"`  // final price of the auction
}

// Notifier delivers auction outcomes to bidders. Delivery mechanics are a
// collaborator concern; the bidding core only guarantees each participant is
// handed over exactly once per auction close.
type Notifier interface {
	NotifyOutcome(ctx context.Context, outcome Outcome) error
}

// LogNotifier writes outcomes to the application log. Used when no delivery
// backend is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyOutcome(ctx context.Context, outcome Outcome) error {
	log.Info().
		Str("recipient_id", outcome.RecipientID).
		Str("auction_id", outcome.AuctionID.String()).
		Str("auction_title", outcome.AuctionTitle).
		Str("outcome", outcome.Outcome).
		Int64("amount", outcome.Amount).
		Msg("auction outcome")
	return nil
}
