package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nhattran/livebid-BE/internal/auction"
)

// Machine-readable rejection reasons carried in bid rejection bodies.
const (
	ReasonAuctionNotFound = "AUCTION_NOT_FOUND"
	ReasonAuctionClosed   = "AUCTION_CLOSED"
	ReasonAmountTooLow    = "AMOUNT_TOO_LOW"
)

type rejectionResponse struct {
	Reason         string `json:"reason"`
	Error          string `json:"error"`
	CurrentHighest int64  `json:"current_highest,omitempty"`
}

func errorResponse(err error) gin.H {
	return gin.H{"error": err.Error()}
}

// rejectBid translates a bid gate error into the HTTP status and typed
// rejection body the bidding clients switch on. It reports false when the
// error is not a rejection but an internal failure.
func rejectBid(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, auction.ErrAuctionNotFound):
		c.JSON(http.StatusNotFound, rejectionResponse{
			Reason: ReasonAuctionNotFound,
			Error:  err.Error(),
		})
		return true
	case errors.Is(err, auction.ErrAuctionClosed):
		c.JSON(http.StatusUnprocessableEntity, rejectionResponse{
			Reason: ReasonAuctionClosed,
			Error:  err.Error(),
		})
		return true
	case errors.Is(err, auction.ErrBidTooLow):
		resp := rejectionResponse{
			Reason: ReasonAmountTooLow,
			Error:  err.Error(),
		}
		var tooLow *auction.BidTooLowError
		if errors.As(err, &tooLow) {
			resp.CurrentHighest = tooLow.CurrentHighest
		}
		c.JSON(http.StatusUnprocessableEntity, resp)
		return true
	case errors.Is(err, auction.ErrSellerOwnBid):
		c.JSON(http.StatusUnprocessableEntity, errorResponse(err))
		return true
	}
	return false
}
