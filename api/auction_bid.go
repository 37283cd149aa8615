package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nhattran/livebid-BE/internal/auction"
	"github.com/nhattran/livebid-BE/internal/token"
)

const idempotencyKeyHeader = "X-Idempotency-Key"

type placeBidRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// placeBid submits one bid through the acceptance gate. The response is the
// explicit ack for this submission: 201 with the accepted bid, or a typed
// rejection body. A retry carrying the same X-Idempotency-Key returns the
// originally accepted bid instead of a rejection.
func (server *Server) placeBid(c *gin.Context) {
	authPayload := c.MustGet(authorizationPayloadKey).(*token.Payload)
	bidderID := authPayload.Subject

	auctionID, err := uuid.Parse(c.Param("auctionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid auction ID format")))
		return
	}

	var req placeBidRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid request body: %w", err)))
		return
	}

	if req.Amount <= 0 {
		err = fmt.Errorf("bid amount must be greater than 0, provided: %d", req.Amount)
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	result, err := server.engine.PlaceBid(c, auction.PlaceBidParams{
		AuctionID:      auctionID,
		BidderID:       bidderID,
		Amount:         req.Amount,
		IdempotencyKey: c.GetHeader(idempotencyKeyHeader),
	})
	if err != nil {
		if rejectBid(c, err) {
			return
		}

		err = fmt.Errorf("failed to place bid: %w", err)
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	if result.Duplicate {
		// Replay of an already accepted submission.
		c.JSON(http.StatusOK, result)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// getAuctionBids returns a consistent snapshot of the ledger: its bids, the
// current highest amount, and the sequence number up to which the snapshot
// is complete.
func (server *Server) getAuctionBids(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("auctionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid auction ID format")))
		return
	}

	snap, err := server.engine.Snapshot(c, auctionID)
	if err != nil {
		if errors.Is(err, auction.ErrAuctionNotFound) {
			err = fmt.Errorf("auction ID %s not found", auctionID)
			c.JSON(http.StatusNotFound, errorResponse(err))
			return
		}

		err = fmt.Errorf("failed to get auction bids: %w", err)
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, snap)
}

type winnerResponse struct {
	IsWinner bool   `json:"is_winner"`
	BidPrice *int64 `json:"bid_price,omitempty"`
}

// getAuctionWinner reports the authenticated bidder's outcome for a closed
// auction.
func (server *Server) getAuctionWinner(c *gin.Context) {
	authPayload := c.MustGet(authorizationPayloadKey).(*token.Payload)
	userID := authPayload.Subject

	auctionID, err := uuid.Parse(c.Param("auctionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid auction ID format")))
		return
	}

	_, winner, err := server.engine.Winner(c, auctionID)
	if err != nil {
		switch {
		case errors.Is(err, auction.ErrAuctionNotFound):
			err = fmt.Errorf("auction ID %s not found", auctionID)
			c.JSON(http.StatusNotFound, errorResponse(err))
		case errors.Is(err, auction.ErrAuctionNotClosed):
			err = fmt.Errorf("auction ID %s has not ended yet", auctionID)
			c.JSON(http.StatusUnprocessableEntity, errorResponse(err))
		default:
			err = fmt.Errorf("failed to get auction winner: %w", err)
			c.JSON(http.StatusInternalServerError, errorResponse(err))
		}
		return
	}

	resp := winnerResponse{}
	if winner != nil && winner.BidderID == userID {
		resp.IsWinner = true
		resp.BidPrice = &winner.Amount
	}

	c.JSON(http.StatusOK, resp)
}
