package db

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemStore is a concurrency-safe in-memory implementation of Store. It backs
// the test suite and the standalone dev mode; the bidding engine provides
// per-auction serialization on top of it, so a plain RWMutex is enough here.
type MemStore struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]Auction
	bids     map[uuid.UUID][]AuctionBid
	winners  map[uuid.UUID]AuctionWinner
}

func NewMemStore() *MemStore {
	return &MemStore{
		auctions: make(map[uuid.UUID]Auction),
		bids:     make(map[uuid.UUID][]AuctionBid),
		winners:  make(map[uuid.UUID]AuctionWinner),
	}
}

func (store *MemStore) Ping(ctx context.Context) error {
	return nil
}

func (store *MemStore) CreateAuction(ctx context.Context, auction Auction) (Auction, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.auctions[auction.ID] = auction
	return auction, nil
}

func (store *MemStore) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (Auction, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	auction, ok := store.auctions[auctionID]
	if !ok {
		return Auction{}, ErrRecordNotFound
	}
	return auction, nil
}

func (store *MemStore) ListAuctions(ctx context.Context) ([]Auction, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	auctions := make([]Auction, 0, len(store.auctions))
	for _, a := range store.auctions {
		auctions = append(auctions, a)
	}
	sort.Slice(auctions, func(i, j int) bool {
		return auctions[i].CreatedAt.After(auctions[j].CreatedAt)
	})
	return auctions, nil
}

func (store *MemStore) ListAuctionsByStatus(ctx context.Context, status AuctionStatus) ([]Auction, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	auctions := make([]Auction, 0)
	for _, a := range store.auctions {
		if a.Status == status {
			auctions = append(auctions, a)
		}
	}
	sort.Slice(auctions, func(i, j int) bool {
		return auctions[i].EndTime.Before(auctions[j].EndTime)
	})
	return auctions, nil
}

func (store *MemStore) UpdateAuctionOnBid(ctx context.Context, arg UpdateAuctionOnBidParams) (Auction, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	auction, ok := store.auctions[arg.AuctionID]
	if !ok {
		return Auction{}, ErrRecordNotFound
	}

	winningBidID := arg.WinningBidID
	auction.CurrentPrice = arg.CurrentPrice
	auction.WinningBidID = &winningBidID
	auction.TotalBids = arg.TotalBids
	store.auctions[arg.AuctionID] = auction
	return auction, nil
}

func (store *MemStore) CloseAuction(ctx context.Context, arg CloseAuctionParams) (Auction, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	auction, ok := store.auctions[arg.AuctionID]
	if !ok {
		return Auction{}, ErrRecordNotFound
	}

	if auction.Status == AuctionStatusActive {
		actualEndTime := arg.ActualEndTime
		auction.Status = AuctionStatusClosed
		auction.ActualEndTime = &actualEndTime
		store.auctions[arg.AuctionID] = auction
	}
	return auction, nil
}

func (store *MemStore) CreateAuctionBid(ctx context.Context, bid AuctionBid) (AuctionBid, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, ok := store.auctions[bid.AuctionID]; !ok {
		return AuctionBid{}, ErrRecordNotFound
	}

	store.bids[bid.AuctionID] = append(store.bids[bid.AuctionID], bid)
	return bid, nil
}

func (store *MemStore) ListAuctionBids(ctx context.Context, auctionID uuid.UUID) ([]AuctionBid, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	bids := append([]AuctionBid(nil), store.bids[auctionID]...)
	sort.Slice(bids, func(i, j int) bool {
		return bids[i].Sequence < bids[j].Sequence
	})
	return bids, nil
}

func (store *MemStore) ListAuctionBidders(ctx context.Context, auctionID uuid.UUID) ([]string, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	seen := make(map[string]bool)
	bidders := make([]string, 0)
	for _, b := range store.bids[auctionID] {
		if !seen[b.BidderID] {
			seen[b.BidderID] = true
			bidders = append(bidders, b.BidderID)
		}
	}
	return bidders, nil
}

func (store *MemStore) CreateAuctionWinner(ctx context.Context, winner AuctionWinner) (AuctionWinner, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if existing, ok := store.winners[winner.AuctionID]; ok {
		return existing, nil
	}
	store.winners[winner.AuctionID] = winner
	return winner, nil
}

func (store *MemStore) GetAuctionWinner(ctx context.Context, auctionID uuid.UUID) (AuctionWinner, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	winner, ok := store.winners[auctionID]
	if !ok {
		return AuctionWinner{}, ErrRecordNotFound
	}
	return winner, nil
}
