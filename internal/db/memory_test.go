package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seedAuction(t *testing.T, store *MemStore) Auction {
	t.Helper()

	now := time.Now().UTC()
	auction, err := store.CreateAuction(context.Background(), Auction{
		ID:            uuid.Must(uuid.NewV7()),
		SellerID:      "seller-1",
		Title:         "HG Barbatos kit",
		StartingPrice: 1000,
		CurrentPrice:  1000,
		Status:        AuctionStatusActive,
		EndTime:       now.Add(time.Hour),
		CreatedAt:     now,
	})
	require.NoError(t, err)
	return auction
}

func TestMemStoreCloseAuctionOnlyOnce(t *testing.T) {
	store := NewMemStore()
	auction := seedAuction(t, store)
	ctx := context.Background()

	firstEnd := time.Now().UTC()
	closed, err := store.CloseAuction(ctx, CloseAuctionParams{AuctionID: auction.ID, ActualEndTime: firstEnd})
	require.NoError(t, err)
	require.Equal(t, AuctionStatusClosed, closed.Status)
	require.Equal(t, firstEnd, *closed.ActualEndTime)

	// A second close must not move the recorded end time.
	again, err := store.CloseAuction(ctx, CloseAuctionParams{AuctionID: auction.ID, ActualEndTime: firstEnd.Add(time.Minute)})
	require.NoError(t, err)
	require.Equal(t, firstEnd, *again.ActualEndTime)

	_, err = store.CloseAuction(ctx, CloseAuctionParams{AuctionID: uuid.Must(uuid.NewV7()), ActualEndTime: firstEnd})
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMemStoreCreateAuctionWinnerIdempotent(t *testing.T) {
	store := NewMemStore()
	auction := seedAuction(t, store)
	ctx := context.Background()

	first := AuctionWinner{
		AuctionID: auction.ID,
		BidID:     uuid.Must(uuid.NewV7()),
		BidderID:  "bidder-1",
		Amount:    1500,
		DecidedAt: time.Now().UTC(),
	}
	committed, err := store.CreateAuctionWinner(ctx, first)
	require.NoError(t, err)
	require.Equal(t, first, committed)

	// A conflicting insert returns the committed row unchanged.
	conflicting := first
	conflicting.BidderID = "bidder-2"
	committed, err = store.CreateAuctionWinner(ctx, conflicting)
	require.NoError(t, err)
	require.Equal(t, "bidder-1", committed.BidderID)

	stored, err := store.GetAuctionWinner(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, first, stored)
}

func TestMemStoreListAuctionBidsOrdered(t *testing.T) {
	store := NewMemStore()
	auction := seedAuction(t, store)
	ctx := context.Background()

	// Insert out of order; the listing is canonical ledger order.
	for _, seq := range []int64{3, 1, 2} {
		_, err := store.CreateAuctionBid(ctx, AuctionBid{
			ID:        uuid.Must(uuid.NewV7()),
			AuctionID: auction.ID,
			BidderID:  "bidder-1",
			Amount:    1000 * seq,
			Sequence:  seq,
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	bids, err := store.ListAuctionBids(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	for i, bid := range bids {
		require.Equal(t, int64(i+1), bid.Sequence)
	}

	_, err = store.CreateAuctionBid(ctx, AuctionBid{
		ID:        uuid.Must(uuid.NewV7()),
		AuctionID: uuid.Must(uuid.NewV7()),
		BidderID:  "bidder-1",
		Amount:    100,
		Sequence:  1,
	})
	require.ErrorIs(t, err, ErrRecordNotFound)
}
