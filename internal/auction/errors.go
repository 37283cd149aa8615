package auction

import (
	"errors"
	"fmt"

	"github.com/nhattran/livebid-BE/internal/util"
)

var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrAuctionClosed    = errors.New("auction has already closed")
	ErrSellerOwnBid     = errors.New("seller cannot bid on their own auction")
	ErrAuctionNotClosed = errors.New("auction has not closed yet")

	// ErrBidTooLow is the errors.Is target for BidTooLowError. A bid that
	// lost a race to a concurrent higher bid surfaces as this same error;
	// callers cannot and should not distinguish the two cases.
	ErrBidTooLow = errors.New("bid amount too low")
)

// BidTooLowError carries the highest accepted amount (or the starting price
// on an empty ledger) so the client can retry meaningfully.
type BidTooLowError struct {
	CurrentHighest int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid amount too low, current highest is %s", util.FormatMoney(e.CurrentHighest))
}

func (e *BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}
