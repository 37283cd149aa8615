package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nhattran/livebid-BE/internal/auction"
	db "github.com/nhattran/livebid-BE/internal/db"
	"github.com/nhattran/livebid-BE/internal/util"
	"resty.dev/v3"
)

const maxBidAttempts = 3

// Rejection is the body returned with a 4xx bid response.
type Rejection struct {
	Reason         string `json:"reason"`
	Error          string `json:"error"`
	CurrentHighest int64  `json:"current_highest,omitempty"`
}

// RejectedError is returned by PlaceBid when the server rejected the
// submission with a typed reason.
type RejectedError struct {
	Rejection Rejection
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("bid rejected: %s", e.Rejection.Reason)
}

// Client is a thin consumer of the bidding API.
type Client struct {
	http    *resty.Client
	baseURL string
}

func New(baseURL, accessToken string) *Client {
	httpClient := resty.New().SetBaseURL(baseURL)
	if accessToken != "" {
		httpClient.SetAuthToken(accessToken)
	}

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
	}
}

func (c *Client) GetAuction(ctx context.Context, auctionID uuid.UUID) (db.Auction, error) {
	var auctionDetails db.Auction
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&auctionDetails).
		Get(fmt.Sprintf("/v1/auctions/%s", auctionID))
	if err != nil {
		return db.Auction{}, err
	}
	if resp.IsError() {
		return db.Auction{}, fmt.Errorf("auction request failed: %s", resp.Status())
	}
	return auctionDetails, nil
}

// GetSnapshot fetches the ledger's current contents.
func (c *Client) GetSnapshot(ctx context.Context, auctionID uuid.UUID) (auction.Snapshot, error) {
	var snap auction.Snapshot
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&snap).
		Get(fmt.Sprintf("/v1/auctions/%s/bids", auctionID))
	if err != nil {
		return auction.Snapshot{}, err
	}
	if resp.IsError() {
		return auction.Snapshot{}, fmt.Errorf("snapshot request failed: %s", resp.Status())
	}
	return snap, nil
}

// PlaceBid submits a bid. Every attempt carries the same generated
// idempotency key, so retrying after a transport timeout cannot place the
// bid twice; a retry of an already accepted bid returns that bid.
func (c *Client) PlaceBid(ctx context.Context, auctionID uuid.UUID, amount int64) (auction.PlaceBidResult, error) {
	idemKey := util.NewIdempotencyKey()

	var lastErr error
	for attempt := 0; attempt < maxBidAttempts; attempt++ {
		var (
			result    auction.PlaceBidResult
			rejection Rejection
		)
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("X-Idempotency-Key", idemKey).
			SetBody(map[string]int64{"amount": amount}).
			SetResult(&result).
			SetError(&rejection).
			Post(fmt.Sprintf("/v1/auctions/%s/bids", auctionID))
		if err != nil {
			// The original attempt may have succeeded server-side; the
			// idempotency key makes the retry safe.
			lastErr = err
			if ctx.Err() != nil {
				return auction.PlaceBidResult{}, ctx.Err()
			}
			continue
		}
		if resp.IsError() {
			return auction.PlaceBidResult{}, &RejectedError{Rejection: rejection}
		}
		return result, nil
	}
	return auction.PlaceBidResult{}, fmt.Errorf("bid submission failed after %d attempts: %w", maxBidAttempts, lastErr)
}

// WinnerResult mirrors the winner endpoint's response.
type WinnerResult struct {
	IsWinner bool   `json:"is_winner"`
	BidPrice *int64 `json:"bid_price,omitempty"`
}

// GetWinner reports the caller's outcome; valid only once the auction is
// closed.
func (c *Client) GetWinner(ctx context.Context, auctionID uuid.UUID) (WinnerResult, error) {
	var result WinnerResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("/v1/auctions/%s/winner", auctionID))
	if err != nil {
		return WinnerResult{}, err
	}
	if resp.IsError() {
		return WinnerResult{}, errors.New("winner not available yet")
	}
	return result, nil
}
