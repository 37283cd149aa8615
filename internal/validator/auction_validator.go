package validator

import (
	"fmt"
	"time"

	"github.com/nhattran/livebid-BE/internal/util"
)

const (
	minTitleLength = 3
	maxTitleLength = 200

	minAuctionDuration = 30 * time.Second
	maxAuctionDuration = 7 * 24 * time.Hour
)

// ValidateAuctionTitle checks the listing title length.
func ValidateAuctionTitle(title string) error {
	if n := len(title); n < minTitleLength || n > maxTitleLength {
		return fmt.Errorf("title must contain from %d to %d characters", minTitleLength, maxTitleLength)
	}
	return nil
}

// ValidateAuctionStartingPrice validates the minimum starting price.
func ValidateAuctionStartingPrice(price int64) error {
	if price <= 0 {
		return fmt.Errorf("starting_price must be greater than 0, provided: %s", util.FormatMoney(price))
	}
	return nil
}

// ValidateAuctionBuyNowPrice validates the buy now price if provided.
func ValidateAuctionBuyNowPrice(startingPrice int64, buyNowPrice *int64) error {
	if buyNowPrice == nil {
		return nil
	}
	if *buyNowPrice <= startingPrice {
		return fmt.Errorf("buy_now_price must be greater than starting_price %s, provided: %s",
			util.FormatMoney(startingPrice), util.FormatMoney(*buyNowPrice))
	}
	return nil
}

// ValidateAuctionDuration bounds how long a listing can stay open.
func ValidateAuctionDuration(duration time.Duration) error {
	if duration < minAuctionDuration || duration > maxAuctionDuration {
		return fmt.Errorf("auction duration must be between %s and %s, provided: %s",
			minAuctionDuration, maxAuctionDuration, duration)
	}
	return nil
}
