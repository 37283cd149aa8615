package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	db "github.com/nhattran/livebid-BE/internal/db"
	"github.com/nhattran/livebid-BE/internal/event"
	"github.com/rs/zerolog/log"
)

// actor is the single writer for one auction. All state below is owned by
// the run goroutine and only touched from commands executed on it.
type actor struct {
	engine  *Engine
	auction db.Auction
	bids    []db.AuctionBid
	byIdem  map[string]db.AuctionBid
	winner  *db.AuctionWinner
	cmds    chan func()
	done    chan struct{}
}

func newActor(e *Engine, auction db.Auction, bids []db.AuctionBid) *actor {
	return &actor{
		engine:  e,
		auction: auction,
		bids:    bids,
		byIdem:  make(map[string]db.AuctionBid),
		cmds:    make(chan func()),
		done:    make(chan struct{}),
	}
}

func (a *actor) run() {
	for {
		select {
		case fn := <-a.cmds:
			fn()
		case <-a.done:
			return
		}
	}
}

// do executes fn on the actor goroutine and waits for it to finish. Once the
// command is queued it will run even if ctx is canceled while waiting; the
// caller cannot assume a timed-out submission did not commit.
func (a *actor) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case a.cmds <- func() { fn(); close(done) }:
	case <-a.done:
		// The actor was released after its auction closed; the engine serves
		// closed auctions from the store.
		return ErrAuctionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// expired reports whether the auction's scheduled end has passed. EndTime is
// immutable after registration, so reading it outside the actor is safe.
func (a *actor) expired() bool {
	return time.Now().After(a.auction.EndTime)
}

func (a *actor) currentHighest() int64 {
	// The ledger's amounts are strictly increasing, so the last bid is the
	// highest.
	if len(a.bids) > 0 {
		return a.bids[len(a.bids)-1].Amount
	}
	return a.auction.StartingPrice
}

func (a *actor) lastSequence() int64 {
	if len(a.bids) > 0 {
		return a.bids[len(a.bids)-1].Sequence
	}
	return 0
}

func (a *actor) placeBid(ctx context.Context, arg PlaceBidParams) (PlaceBidResult, error) {
	if arg.IdempotencyKey != "" {
		if bid, ok := a.byIdem[arg.IdempotencyKey]; ok {
			return PlaceBidResult{Bid: bid, Auction: a.auction, Duplicate: true}, nil
		}
	}

	if a.auction.Status != db.AuctionStatusActive {
		return PlaceBidResult{}, ErrAuctionClosed
	}

	now := time.Now().UTC()
	if now.After(a.auction.EndTime) {
		// The clock fires separately; any bid past the boundary is rejected
		// here even if it was in flight before it.
		return PlaceBidResult{}, ErrAuctionClosed
	}

	if a.auction.SellerID == arg.BidderID {
		return PlaceBidResult{}, ErrSellerOwnBid
	}

	if len(a.bids) == 0 {
		if arg.Amount < a.auction.StartingPrice {
			return PlaceBidResult{}, &BidTooLowError{CurrentHighest: a.auction.StartingPrice}
		}
	} else if arg.Amount <= a.currentHighest() {
		return PlaceBidResult{}, &BidTooLowError{CurrentHighest: a.currentHighest()}
	}

	bidID, err := uuid.NewV7()
	if err != nil {
		return PlaceBidResult{}, fmt.Errorf("failed to generate bid ID: %w", err)
	}

	bid := db.AuctionBid{
		ID:        bidID,
		AuctionID: a.auction.ID,
		BidderID:  arg.BidderID,
		Amount:    arg.Amount,
		Sequence:  a.lastSequence() + 1,
		CreatedAt: now,
	}
	if _, err = a.engine.store.CreateAuctionBid(ctx, bid); err != nil {
		return PlaceBidResult{}, fmt.Errorf("failed to persist bid: %w", err)
	}

	a.bids = append(a.bids, bid)
	if arg.IdempotencyKey != "" {
		a.byIdem[arg.IdempotencyKey] = bid
	}

	// current_price and total_bids are derived from the ledger; a failed
	// update is repaired by recovery, so it never fails an accepted bid.
	updated, err := a.engine.store.UpdateAuctionOnBid(ctx, db.UpdateAuctionOnBidParams{
		AuctionID:    a.auction.ID,
		CurrentPrice: bid.Amount,
		WinningBidID: bid.ID,
		TotalBids:    int64(len(a.bids)),
	})
	if err != nil {
		log.Err(err).Str("auction_id", a.auction.ID.String()).Msg("failed to update auction after bid")
		a.auction.CurrentPrice = bid.Amount
		a.auction.TotalBids = int64(len(a.bids))
		a.auction.WinningBidID = &bid.ID
	} else {
		a.auction = updated
	}

	a.engine.sender.Broadcast(event.Event{
		Topic: event.AuctionTopic(a.auction.ID),
		Type:  event.EventTypeNewBid,
		Data: BidEventPayload{
			AuctionID:      a.auction.ID,
			Bid:            bid,
			CurrentHighest: bid.Amount,
			TotalBids:      a.auction.TotalBids,
		},
	})

	log.Info().
		Str("auction_id", a.auction.ID.String()).
		Str("bidder_id", bid.BidderID).
		Int64("amount", bid.Amount).
		Int64("sequence", bid.Sequence).
		Msg("bid placed successfully")

	result := PlaceBidResult{Bid: bid, Auction: a.auction}

	if a.auction.BuyNowPrice != nil && bid.Amount >= *a.auction.BuyNowPrice {
		closed, err := a.close(ctx, CloseReasonBuyNow, true)
		if err != nil {
			log.Err(err).Str("auction_id", a.auction.ID.String()).Msg("failed to close auction on buy now")
		} else {
			result.Closed = &closed
			result.Auction = closed.Auction
		}
	}
	return result, nil
}

func (a *actor) snapshot() Snapshot {
	return Snapshot{
		AuctionID:      a.auction.ID,
		Bids:           append([]db.AuctionBid(nil), a.bids...),
		CurrentHighest: a.currentHighest(),
		LastSequence:   a.lastSequence(),
		Status:         a.auction.Status,
	}
}

func (a *actor) close(ctx context.Context, reason string, cancelTimer bool) (CloseResult, error) {
	if a.auction.Status != db.AuctionStatusActive {
		return CloseResult{Auction: a.auction, Winner: a.winner, AlreadyClosed: true}, nil
	}

	actualEndTime := time.Now().UTC()
	updated, err := a.engine.store.CloseAuction(ctx, db.CloseAuctionParams{
		AuctionID:     a.auction.ID,
		ActualEndTime: actualEndTime,
	})
	if err != nil {
		return CloseResult{}, fmt.Errorf("failed to close auction: %w", err)
	}
	a.auction = updated

	var winner *db.AuctionWinner
	if best := a.bestBid(); best != nil {
		committed, err := a.engine.store.CreateAuctionWinner(ctx, db.AuctionWinner{
			AuctionID: a.auction.ID,
			BidID:     best.ID,
			BidderID:  best.BidderID,
			Amount:    best.Amount,
			DecidedAt: actualEndTime,
		})
		if err != nil {
			return CloseResult{}, fmt.Errorf("failed to persist auction winner: %w", err)
		}
		winner = &committed
	}
	a.winner = winner

	payload := ClosedEventPayload{
		AuctionID:    a.auction.ID,
		FinalPrice:   a.currentHighest(),
		HasWinner:    winner != nil,
		Reason:       reason,
		LastSequence: a.lastSequence(),
		Timestamp:    actualEndTime,
	}
	if winner != nil {
		payload.WinningBidID = &winner.BidID
		payload.WinnerID = &winner.BidderID
	}
	a.engine.sender.Broadcast(event.Event{
		Topic: event.AuctionTopic(a.auction.ID),
		Type:  event.EventTypeAuctionClosed,
		Data:  payload,
	})

	if cancelTimer {
		if err = a.engine.scheduler.CancelClose(ctx, a.auction.ID); err != nil {
			log.Warn().Err(err).
				Str("auction_id", a.auction.ID.String()).
				Msg("failed to cancel scheduled close, duplicate fire is harmless")
		}
	}

	a.scheduleOutcomes(ctx, winner)

	log.Info().
		Str("auction_id", a.auction.ID.String()).
		Str("reason", reason).
		Bool("has_winner", winner != nil).
		Int64("final_price", payload.FinalPrice).
		Msg("auction closed")

	// A closed auction is served from the store; drop the actor and stop its
	// goroutine so finished auctions do not accumulate.
	a.engine.release(a.auction.ID)
	close(a.done)

	return CloseResult{Auction: a.auction, Winner: winner}, nil
}

// bestBid returns the highest-amount bid, ties broken by earliest sequence.
// Equal amounts cannot occur on a ledger built through placeBid, but a
// restored ledger is not trusted to hold that invariant.
func (a *actor) bestBid() *db.AuctionBid {
	var best *db.AuctionBid
	for i := range a.bids {
		if best == nil || a.bids[i].Amount > best.Amount {
			best = &a.bids[i]
		}
	}
	return best
}

// scheduleOutcomes enqueues one WIN/LOSE notification per distinct bidder.
// The scheduler deduplicates, so a re-close never notifies twice.
func (a *actor) scheduleOutcomes(ctx context.Context, winner *db.AuctionWinner) {
	if winner == nil {
		return
	}

	seen := make(map[string]bool)
	for _, bid := range a.bids {
		if seen[bid.BidderID] {
			continue
		}
		seen[bid.BidderID] = true

		outcome := OutcomeLose
		if bid.BidderID == winner.BidderID {
			outcome = OutcomeWin
		}
		if err := a.engine.scheduler.ScheduleOutcome(ctx, a.auction.ID, a.auction.Title, bid.BidderID, outcome, winner.Amount); err != nil {
			log.Warn().Err(err).
				Str("auction_id", a.auction.ID.String()).
				Str("bidder_id", bid.BidderID).
				Msg("failed to schedule outcome notification")
		}
	}
}
