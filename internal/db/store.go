package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type UpdateAuctionOnBidParams struct {
	AuctionID    uuid.UUID
	CurrentPrice int64
	WinningBidID uuid.UUID
	TotalBids    int64
}

type CloseAuctionParams struct {
	AuctionID     uuid.UUID
	ActualEndTime time.Time
}

// Store provides all functions to persist auctions, bids and winners.
type Store interface {
	CreateAuction(ctx context.Context, auction Auction) (Auction, error)
	GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (Auction, error)
	ListAuctions(ctx context.Context) ([]Auction, error)
	ListAuctionsByStatus(ctx context.Context, status AuctionStatus) ([]Auction, error)
	UpdateAuctionOnBid(ctx context.Context, arg UpdateAuctionOnBidParams) (Auction, error)
	CloseAuction(ctx context.Context, arg CloseAuctionParams) (Auction, error)

	CreateAuctionBid(ctx context.Context, bid AuctionBid) (AuctionBid, error)
	ListAuctionBids(ctx context.Context, auctionID uuid.UUID) ([]AuctionBid, error)
	ListAuctionBidders(ctx context.Context, auctionID uuid.UUID) ([]string, error)

	CreateAuctionWinner(ctx context.Context, winner AuctionWinner) (AuctionWinner, error)
	GetAuctionWinner(ctx context.Context, auctionID uuid.UUID) (AuctionWinner, error)

	Ping(ctx context.Context) error
}
