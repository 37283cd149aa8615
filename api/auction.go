package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	db "github.com/nhattran/livebid-BE/internal/db"
	"github.com/nhattran/livebid-BE/internal/token"
	"github.com/nhattran/livebid-BE/internal/validator"
	"github.com/rs/zerolog/log"
)

type createAuctionRequest struct {
	Title           string `json:"title" binding:"required"`
	StartingPrice   int64  `json:"starting_price" binding:"required,gt=0"`
	BuyNowPrice     *int64 `json:"buy_now_price"`
	DurationSeconds int64  `json:"duration_seconds" binding:"required,gt=0"`
}

// createAuction opens a new auction owned by the authenticated seller. The
// auction is live immediately and its closing clock is armed before the
// response is written.
func (server *Server) createAuction(c *gin.Context) {
	authPayload := c.MustGet(authorizationPayloadKey).(*token.Payload)
	sellerID := authPayload.Subject

	var req createAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid request body: %w", err)))
		return
	}

	duration := time.Duration(req.DurationSeconds) * time.Second
	for _, err := range []error{
		validator.ValidateAuctionTitle(req.Title),
		validator.ValidateAuctionStartingPrice(req.StartingPrice),
		validator.ValidateAuctionBuyNowPrice(req.StartingPrice, req.BuyNowPrice),
		validator.ValidateAuctionDuration(duration),
	} {
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err))
			return
		}
	}

	now := time.Now().UTC()
	auctionRow := db.Auction{
		ID:            uuid.Must(uuid.NewV7()),
		SellerID:      sellerID,
		Title:         req.Title,
		StartingPrice: req.StartingPrice,
		BuyNowPrice:   req.BuyNowPrice,
		CurrentPrice:  req.StartingPrice,
		Status:        db.AuctionStatusActive,
		EndTime:       now.Add(duration),
		CreatedAt:     now,
	}

	created, err := server.dbStore.CreateAuction(c, auctionRow)
	if err != nil {
		err = fmt.Errorf("failed to create auction: %w", err)
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	if err = server.engine.Register(c, created); err != nil {
		err = fmt.Errorf("failed to register auction: %w", err)
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	log.Info().
		Str("auction_id", created.ID.String()).
		Str("seller_id", sellerID).
		Time("end_time", created.EndTime).
		Msg("auction opened")

	c.JSON(http.StatusCreated, created)
}

func (server *Server) listAuctions(c *gin.Context) {
	status := db.AuctionStatus(c.Query("status"))
	if status != "" {
		if status != db.AuctionStatusActive && status != db.AuctionStatusClosed && status != db.AuctionStatusSold {
			err := fmt.Errorf("invalid status: %s, allowed statuses: [active, closed, sold]", status)
			c.JSON(http.StatusBadRequest, errorResponse(err))
			return
		}

		auctions, err := server.dbStore.ListAuctionsByStatus(c, status)
		if err != nil {
			err = fmt.Errorf("failed to list auctions: %w", err)
			c.JSON(http.StatusInternalServerError, errorResponse(err))
			return
		}
		c.JSON(http.StatusOK, auctions)
		return
	}

	auctions, err := server.dbStore.ListAuctions(c)
	if err != nil {
		err = fmt.Errorf("failed to list auctions: %w", err)
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, auctions)
}

func (server *Server) getAuctionDetails(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("auctionID"))
	if err != nil {
		err = fmt.Errorf("invalid auction ID: %w", err)
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	auctionDetails, err := server.dbStore.GetAuctionByID(c, auctionID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			err = fmt.Errorf("auction ID %s not found", auctionID)
			c.JSON(http.StatusNotFound, errorResponse(err))
			return
		}

		err = fmt.Errorf("failed to get auction details: %w", err)
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, auctionDetails)
}
