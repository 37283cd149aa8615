package auction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	db "github.com/nhattran/livebid-BE/internal/db"
	"github.com/nhattran/livebid-BE/internal/event"
	"github.com/rs/zerolog/log"
)

// Engine owns the bid ledgers of all live auctions. Every mutation of one
// auction (bid acceptance, close) and every snapshot goes through that
// auction's single actor goroutine, so operations on one auction are
// strictly serialized while different auctions proceed in parallel.
type Engine struct {
	store     db.Store
	sender    event.Sender
	scheduler Scheduler

	mu     sync.RWMutex
	actors map[uuid.UUID]*actor
}

func NewEngine(store db.Store, sender event.Sender, scheduler Scheduler) *Engine {
	return &Engine{
		store:     store,
		sender:    sender,
		scheduler: scheduler,
		actors:    make(map[uuid.UUID]*actor),
	}
}

type PlaceBidParams struct {
	AuctionID uuid.UUID
	BidderID  string
	Amount    int64

	// IdempotencyKey is an opaque client-generated token. A retry carrying
	// the key of an already accepted bid returns that bid instead of being
	// rejected as too low or appended twice.
	IdempotencyKey string
}

type PlaceBidResult struct {
	Bid       db.AuctionBid `json:"bid"`
	Auction   db.Auction    `json:"updated_auction"`
	Duplicate bool          `json:"duplicate"`
	Closed    *CloseResult  `json:"closed,omitempty"`
}

type CloseResult struct {
	Auction       db.Auction        `json:"auction"`
	Winner        *db.AuctionWinner `json:"winner,omitempty"`
	AlreadyClosed bool              `json:"already_closed"`
}

// Register creates the empty ledger for an auction that just became active
// and arms its clock. Registering the same auction twice is a no-op.
func (e *Engine) Register(ctx context.Context, auction db.Auction) error {
	e.mu.Lock()
	if _, ok := e.actors[auction.ID]; ok {
		e.mu.Unlock()
		return nil
	}
	act := newActor(e, auction, nil)
	e.actors[auction.ID] = act
	go act.run()
	e.mu.Unlock()

	if err := e.scheduler.ScheduleClose(ctx, auction.ID, auction.EndTime); err != nil {
		return fmt.Errorf("failed to schedule auction close: %w", err)
	}
	return nil
}

// Recover reloads every active auction from the store after a restart,
// rebuilds its ledger, and re-arms its clock. Scheduling is deduplicated by
// auction id, so recovering an already armed auction is harmless.
func (e *Engine) Recover(ctx context.Context) error {
	auctions, err := e.store.ListAuctionsByStatus(ctx, db.AuctionStatusActive)
	if err != nil {
		return fmt.Errorf("failed to list active auctions: %w", err)
	}

	for _, auction := range auctions {
		bids, err := e.store.ListAuctionBids(ctx, auction.ID)
		if err != nil {
			return fmt.Errorf("failed to load bids for auction %s: %w", auction.ID, err)
		}

		e.mu.Lock()
		if _, ok := e.actors[auction.ID]; !ok {
			act := newActor(e, auction, bids)
			e.actors[auction.ID] = act
			go act.run()
		}
		e.mu.Unlock()

		if err = e.scheduler.ScheduleClose(ctx, auction.ID, auction.EndTime); err != nil {
			log.Warn().Err(err).
				Str("auction_id", auction.ID.String()).
				Msg("failed to re-arm auction close, relying on sweep")
		}
	}

	log.Info().Int("auctions", len(auctions)).Msg("active auctions recovered")
	return nil
}

// PlaceBid validates and admits (or rejects) a bid. All checks and the
// ledger append run inside the auction's actor; on success the accepted bid
// has already been broadcast when this returns.
//
// A context canceled while the command is queued does not guarantee the bid
// was discarded; callers must retry with the same idempotency key.
func (e *Engine) PlaceBid(ctx context.Context, arg PlaceBidParams) (PlaceBidResult, error) {
	act, err := e.liveActor(ctx, arg.AuctionID)
	if err != nil {
		return PlaceBidResult{}, err
	}

	var (
		result PlaceBidResult
		opErr  error
	)
	if err = act.do(ctx, func() {
		result, opErr = act.placeBid(ctx, arg)
	}); err != nil {
		return PlaceBidResult{}, err
	}
	return result, opErr
}

// Snapshot returns the ledger's contents at the moment of the call.
func (e *Engine) Snapshot(ctx context.Context, auctionID uuid.UUID) (Snapshot, error) {
	act, err := e.liveActor(ctx, auctionID)
	if errors.Is(err, ErrAuctionClosed) {
		return e.snapshotFromStore(ctx, auctionID)
	}
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	if err = act.do(ctx, func() {
		snap = act.snapshot()
	}); err != nil {
		// The actor was released between the lookup and the command.
		if errors.Is(err, ErrAuctionClosed) {
			return e.snapshotFromStore(ctx, auctionID)
		}
		return Snapshot{}, err
	}
	return snap, nil
}

// Close freezes the ledger, computes and persists the winner, and publishes
// the terminal event. It is idempotent: closing an already closed auction
// performs no writes and returns the committed winner unchanged.
func (e *Engine) Close(ctx context.Context, auctionID uuid.UUID) (CloseResult, error) {
	act, err := e.liveActor(ctx, auctionID)
	if errors.Is(err, ErrAuctionClosed) {
		return e.closedResultFromStore(ctx, auctionID)
	}
	if err != nil {
		return CloseResult{}, err
	}

	var (
		result CloseResult
		opErr  error
	)
	if err = act.do(ctx, func() {
		result, opErr = act.close(ctx, CloseReasonTimeExpired, false)
	}); err != nil {
		if errors.Is(err, ErrAuctionClosed) {
			return e.closedResultFromStore(ctx, auctionID)
		}
		return CloseResult{}, err
	}
	return result, opErr
}

// CloseExpired closes every registered auction whose end time has passed.
// Used by the periodic sweep to catch up after missed timers.
func (e *Engine) CloseExpired(ctx context.Context) {
	e.mu.RLock()
	expired := make([]uuid.UUID, 0)
	for id, act := range e.actors {
		if act.expired() {
			expired = append(expired, id)
		}
	}
	e.mu.RUnlock()

	for _, id := range expired {
		if _, err := e.Close(ctx, id); err != nil {
			log.Err(err).Str("auction_id", id.String()).Msg("sweep failed to close expired auction")
		}
	}
}

// Winner returns the closed auction and its committed winner, if any.
func (e *Engine) Winner(ctx context.Context, auctionID uuid.UUID) (db.Auction, *db.AuctionWinner, error) {
	auction, err := e.store.GetAuctionByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			return db.Auction{}, nil, ErrAuctionNotFound
		}
		return db.Auction{}, nil, fmt.Errorf("failed to get auction: %w", err)
	}

	if auction.Status == db.AuctionStatusActive {
		return db.Auction{}, nil, ErrAuctionNotClosed
	}

	winner, err := e.store.GetAuctionWinner(ctx, auctionID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			return auction, nil, nil
		}
		return db.Auction{}, nil, fmt.Errorf("failed to get auction winner: %w", err)
	}
	return auction, &winner, nil
}

// release forgets the actor of an auction that just closed. Snapshot and
// Close fall through to the store for unmapped closed auctions.
func (e *Engine) release(auctionID uuid.UUID) {
	e.mu.Lock()
	delete(e.actors, auctionID)
	e.mu.Unlock()
}

// liveActor returns the actor for an active auction, lazily restoring it
// from the store when the auction outlived the process that registered it.
func (e *Engine) liveActor(ctx context.Context, auctionID uuid.UUID) (*actor, error) {
	e.mu.RLock()
	act, ok := e.actors[auctionID]
	e.mu.RUnlock()
	if ok {
		return act, nil
	}

	auction, err := e.store.GetAuctionByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			return nil, ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	if auction.Status != db.AuctionStatusActive {
		return nil, ErrAuctionClosed
	}

	bids, err := e.store.ListAuctionBids(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bids for auction %s: %w", auctionID, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if act, ok = e.actors[auctionID]; ok {
		return act, nil
	}
	act = newActor(e, auction, bids)
	e.actors[auctionID] = act
	go act.run()
	return act, nil
}

func (e *Engine) snapshotFromStore(ctx context.Context, auctionID uuid.UUID) (Snapshot, error) {
	auction, err := e.store.GetAuctionByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			return Snapshot{}, ErrAuctionNotFound
		}
		return Snapshot{}, fmt.Errorf("failed to get auction: %w", err)
	}

	bids, err := e.store.ListAuctionBids(ctx, auctionID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load bids for auction %s: %w", auctionID, err)
	}

	snap := Snapshot{
		AuctionID:      auction.ID,
		Bids:           bids,
		CurrentHighest: auction.StartingPrice,
		Status:         auction.Status,
	}
	if len(bids) > 0 {
		snap.CurrentHighest = bids[len(bids)-1].Amount
		snap.LastSequence = bids[len(bids)-1].Sequence
	}
	return snap, nil
}

func (e *Engine) closedResultFromStore(ctx context.Context, auctionID uuid.UUID) (CloseResult, error) {
	auction, err := e.store.GetAuctionByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			return CloseResult{}, ErrAuctionNotFound
		}
		return CloseResult{}, fmt.Errorf("failed to get auction: %w", err)
	}

	result := CloseResult{Auction: auction, AlreadyClosed: true}
	winner, err := e.store.GetAuctionWinner(ctx, auctionID)
	if err == nil {
		result.Winner = &winner
	} else if !errors.Is(err, db.ErrRecordNotFound) {
		return CloseResult{}, fmt.Errorf("failed to get auction winner: %w", err)
	}
	return result, nil
}
