package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SQLStore struct {
	connPool *pgxpool.Pool
}

// NewStore creates a new Postgres-backed Store.
func NewStore(connPool *pgxpool.Pool) Store {
	return &SQLStore{
		connPool: connPool,
	}
}

// Ping checks if the database connection is alive.
func (store *SQLStore) Ping(ctx context.Context) error {
	return store.connPool.Ping(ctx)
}

const auctionColumns = `id, seller_id, title, starting_price, buy_now_price, current_price,
total_bids, status, winning_bid_id, end_time, actual_end_time, created_at`

func scanAuction(row pgx.Row) (Auction, error) {
	var a Auction
	err := row.Scan(
		&a.ID, &a.SellerID, &a.Title, &a.StartingPrice, &a.BuyNowPrice, &a.CurrentPrice,
		&a.TotalBids, &a.Status, &a.WinningBidID, &a.EndTime, &a.ActualEndTime, &a.CreatedAt,
	)
	return a, err
}

func (store *SQLStore) CreateAuction(ctx context.Context, auction Auction) (Auction, error) {
	row := store.connPool.QueryRow(ctx, `
		INSERT INTO auctions (id, seller_id, title, starting_price, buy_now_price, current_price, status, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+auctionColumns,
		auction.ID, auction.SellerID, auction.Title, auction.StartingPrice,
		auction.BuyNowPrice, auction.CurrentPrice, auction.Status, auction.EndTime,
	)
	return scanAuction(row)
}

func (store *SQLStore) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (Auction, error) {
	row := store.connPool.QueryRow(ctx, `
		SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, auctionID)
	return scanAuction(row)
}

func (store *SQLStore) ListAuctions(ctx context.Context) ([]Auction, error) {
	rows, err := store.connPool.Query(ctx, `
		SELECT `+auctionColumns+` FROM auctions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAuctions(rows)
}

func (store *SQLStore) ListAuctionsByStatus(ctx context.Context, status AuctionStatus) ([]Auction, error) {
	rows, err := store.connPool.Query(ctx, `
		SELECT `+auctionColumns+` FROM auctions WHERE status = $1 ORDER BY end_time`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAuctions(rows)
}

func collectAuctions(rows pgx.Rows) ([]Auction, error) {
	auctions := make([]Auction, 0)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

func (store *SQLStore) UpdateAuctionOnBid(ctx context.Context, arg UpdateAuctionOnBidParams) (Auction, error) {
	row := store.connPool.QueryRow(ctx, `
		UPDATE auctions
		SET current_price = $2, winning_bid_id = $3, total_bids = $4
		WHERE id = $1
		RETURNING `+auctionColumns,
		arg.AuctionID, arg.CurrentPrice, arg.WinningBidID, arg.TotalBids,
	)
	return scanAuction(row)
}

// CloseAuction flips an active auction to closed. The WHERE clause makes the
// transition happen at most once even if two closers race at the SQL level.
func (store *SQLStore) CloseAuction(ctx context.Context, arg CloseAuctionParams) (Auction, error) {
	row := store.connPool.QueryRow(ctx, `
		UPDATE auctions
		SET status = $2, actual_end_time = $3
		WHERE id = $1 AND status = $4
		RETURNING `+auctionColumns,
		arg.AuctionID, AuctionStatusClosed, arg.ActualEndTime, AuctionStatusActive,
	)
	auction, err := scanAuction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already closed; return the committed row.
			return store.GetAuctionByID(ctx, arg.AuctionID)
		}
		return Auction{}, err
	}
	return auction, nil
}

func (store *SQLStore) CreateAuctionBid(ctx context.Context, bid AuctionBid) (AuctionBid, error) {
	row := store.connPool.QueryRow(ctx, `
		INSERT INTO auction_bids (id, auction_id, bidder_id, amount, sequence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, auction_id, bidder_id, amount, sequence, created_at`,
		bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.Sequence, bid.CreatedAt,
	)

	var b AuctionBid
	err := row.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.Sequence, &b.CreatedAt)
	return b, err
}

func (store *SQLStore) ListAuctionBids(ctx context.Context, auctionID uuid.UUID) ([]AuctionBid, error) {
	rows, err := store.connPool.Query(ctx, `
		SELECT id, auction_id, bidder_id, amount, sequence, created_at
		FROM auction_bids
		WHERE auction_id = $1
		ORDER BY sequence`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := make([]AuctionBid, 0)
	for rows.Next() {
		var b AuctionBid
		if err = rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.Sequence, &b.CreatedAt); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (store *SQLStore) ListAuctionBidders(ctx context.Context, auctionID uuid.UUID) ([]string, error) {
	rows, err := store.connPool.Query(ctx, `
		SELECT DISTINCT bidder_id FROM auction_bids WHERE auction_id = $1`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bidders := make([]string, 0)
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		bidders = append(bidders, id)
	}
	return bidders, rows.Err()
}

// CreateAuctionWinner persists the winner exactly once. A conflicting insert
// reads back the first committed row so duplicate closers always see the
// same winner.
func (store *SQLStore) CreateAuctionWinner(ctx context.Context, winner AuctionWinner) (AuctionWinner, error) {
	tag, err := store.connPool.Exec(ctx, `
		INSERT INTO auction_winners (auction_id, bid_id, bidder_id, amount, decided_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (auction_id) DO NOTHING`,
		winner.AuctionID, winner.BidID, winner.BidderID, winner.Amount, winner.DecidedAt,
	)
	if err != nil {
		return AuctionWinner{}, fmt.Errorf("failed to insert auction winner: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return store.GetAuctionWinner(ctx, winner.AuctionID)
	}
	return winner, nil
}

func (store *SQLStore) GetAuctionWinner(ctx context.Context, auctionID uuid.UUID) (AuctionWinner, error) {
	row := store.connPool.QueryRow(ctx, `
		SELECT auction_id, bid_id, bidder_id, amount, decided_at
		FROM auction_winners WHERE auction_id = $1`, auctionID)

	var w AuctionWinner
	err := row.Scan(&w.AuctionID, &w.BidID, &w.BidderID, &w.Amount, &w.DecidedAt)
	return w, err
}
