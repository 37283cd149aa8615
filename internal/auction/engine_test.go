package auction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	db "github.com/nhattran/livebid-BE/internal/db"
	"github.com/nhattran/livebid-BE/internal/event"
	"github.com/nhattran/livebid-BE/internal/util"
	"github.com/stretchr/testify/require"
)

// recordingSender captures broadcast events in order.
type recordingSender struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *recordingSender) Register(topic string, client chan event.Event)   {}
func (s *recordingSender) Unregister(topic string, client chan event.Event) {}
func (s *recordingSender) Run()                                             {}

func (s *recordingSender) Broadcast(ev event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSender) byType(eventType string) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]event.Event, 0)
	for _, ev := range s.events {
		if ev.Type == eventType {
			matched = append(matched, ev)
		}
	}
	return matched
}

// recordingScheduler counts scheduling calls, deduplicating the way the
// asynq-backed implementation does.
type recordingScheduler struct {
	mu           sync.Mutex
	closeArmed   map[uuid.UUID]int
	closeCancels map[uuid.UUID]int
	outcomes     map[string]Outcome
	outcomeCalls int
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{
		closeArmed:   make(map[uuid.UUID]int),
		closeCancels: make(map[uuid.UUID]int),
		outcomes:     make(map[string]Outcome),
	}
}

func (s *recordingScheduler) ScheduleClose(ctx context.Context, auctionID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeArmed[auctionID]++
	return nil
}

func (s *recordingScheduler) CancelClose(ctx context.Context, auctionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCancels[auctionID]++
	return nil
}

func (s *recordingScheduler) ScheduleOutcome(ctx context.Context, auctionID uuid.UUID, auctionTitle, bidderID string, outcome Outcome, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomeCalls++
	s.outcomes[auctionID.String()+":"+bidderID] = outcome
	return nil
}

type testEnv struct {
	store     *db.MemStore
	sender    *recordingSender
	scheduler *recordingScheduler
	engine    *Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:     db.NewMemStore(),
		sender:    &recordingSender{},
		scheduler: newRecordingScheduler(),
	}
	env.engine = NewEngine(env.store, env.sender, env.scheduler)
	return env
}

func (env *testEnv) openAuction(t *testing.T, startingPrice int64, buyNowPrice *int64, endsIn time.Duration) db.Auction {
	t.Helper()

	now := time.Now().UTC()
	auction := db.Auction{
		ID:            uuid.Must(uuid.NewV7()),
		SellerID:      "seller-1",
		Title:         "RX-78-2 kit",
		StartingPrice: startingPrice,
		BuyNowPrice:   buyNowPrice,
		CurrentPrice:  startingPrice,
		Status:        db.AuctionStatusActive,
		EndTime:       now.Add(endsIn),
		CreatedAt:     now,
	}

	created, err := env.store.CreateAuction(context.Background(), auction)
	require.NoError(t, err)
	require.NoError(t, env.engine.Register(context.Background(), created))
	return created
}

func TestPlaceBidRejections(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 1000, nil, time.Hour)

	// Seed one accepted bid so the too-low case compares against a live
	// highest rather than the starting price.
	_, err := env.engine.PlaceBid(context.Background(), PlaceBidParams{
		AuctionID: auction.ID,
		BidderID:  "bidder-1",
		Amount:    1200,
	})
	require.NoError(t, err)

	testCases := []struct {
		name       string
		params     PlaceBidParams
		checkError func(t *testing.T, err error)
	}{
		{
			name: "unknown_auction",
			params: PlaceBidParams{
				AuctionID: uuid.Must(uuid.NewV7()),
				BidderID:  "bidder-2",
				Amount:    5000,
			},
			checkError: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrAuctionNotFound)
			},
		},
		{
			name: "seller_own_auction",
			params: PlaceBidParams{
				AuctionID: auction.ID,
				BidderID:  "seller-1",
				Amount:    5000,
			},
			checkError: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrSellerOwnBid)
			},
		},
		{
			name: "equal_to_current_highest",
			params: PlaceBidParams{
				AuctionID: auction.ID,
				BidderID:  "bidder-2",
				Amount:    1200,
			},
			checkError: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrBidTooLow)

				var tooLow *BidTooLowError
				require.ErrorAs(t, err, &tooLow)
				require.Equal(t, int64(1200), tooLow.CurrentHighest)
			},
		},
		{
			name: "below_current_highest",
			params: PlaceBidParams{
				AuctionID: auction.ID,
				BidderID:  "bidder-2",
				Amount:    1100,
			},
			checkError: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrBidTooLow)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.engine.PlaceBid(context.Background(), tc.params)
			tc.checkError(t, err)
		})
	}

	// Rejections never grow the ledger.
	snap, err := env.engine.Snapshot(context.Background(), auction.ID)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
}

func TestPlaceBidEmptyLedgerAcceptsStartingPrice(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 1000, nil, time.Hour)

	// Below the starting price is rejected against it.
	_, err := env.engine.PlaceBid(context.Background(), PlaceBidParams{
		AuctionID: auction.ID,
		BidderID:  "bidder-1",
		Amount:    999,
	})
	var tooLow *BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	require.Equal(t, int64(1000), tooLow.CurrentHighest)

	// The first bid may equal the starting price.
	result, err := env.engine.PlaceBid(context.Background(), PlaceBidParams{
		AuctionID: auction.ID,
		BidderID:  "bidder-1",
		Amount:    1000,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Bid.Sequence)
}

func TestPlaceBidScenario(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 1000, nil, time.Hour)
	ctx := context.Background()

	first, err := env.engine.PlaceBid(ctx, PlaceBidParams{AuctionID: auction.ID, BidderID: "bidder-1", Amount: 1200})
	require.NoError(t, err)
	require.Equal(t, int64(1), first.Bid.Sequence)

	_, err = env.engine.PlaceBid(ctx, PlaceBidParams{AuctionID: auction.ID, BidderID: "bidder-2", Amount: 1100})
	require.ErrorIs(t, err, ErrBidTooLow)

	second, err := env.engine.PlaceBid(ctx, PlaceBidParams{AuctionID: auction.ID, BidderID: "bidder-3", Amount: 1500})
	require.NoError(t, err)
	require.Equal(t, int64(2), second.Bid.Sequence)

	snap, err := env.engine.Snapshot(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 2)
	require.Equal(t, int64(1500), snap.CurrentHighest)
	require.Equal(t, int64(2), snap.LastSequence)

	closed, err := env.engine.Close(ctx, auction.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.Winner)
	require.Equal(t, "bidder-3", closed.Winner.BidderID)
	require.Equal(t, int64(1500), closed.Winner.Amount)
}

func TestPlaceBidConcurrentEqualAmounts(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 500, nil, time.Hour)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []error
	)
	for _, bidder := range []string{"bidder-1", "bidder-2"} {
		wg.Add(1)
		go func(bidder string) {
			defer wg.Done()
			_, err := env.engine.PlaceBid(ctx, PlaceBidParams{
				AuctionID: auction.ID,
				BidderID:  bidder,
				Amount:    1000,
			})
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		}(bidder)
	}
	wg.Wait()

	// Exactly one submission won the race; the other sees the new highest.
	var accepted, rejected int
	for _, err := range results {
		if err == nil {
			accepted++
			continue
		}
		rejected++

		var tooLow *BidTooLowError
		require.ErrorAs(t, err, &tooLow)
		require.Equal(t, int64(1000), tooLow.CurrentHighest)
	}
	require.Equal(t, 1, accepted)
	require.Equal(t, 1, rejected)

	snap, err := env.engine.Snapshot(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
}

func TestLedgerMonotonicUnderConcurrentLoad(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 100, nil, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Overlapping amounts; many submissions must lose.
			_, err := env.engine.PlaceBid(ctx, PlaceBidParams{
				AuctionID: auction.ID,
				BidderID:  util.RandomString(8),
				Amount:    int64(100 + (i%10)*50),
			})
			if err != nil {
				require.ErrorIs(t, err, ErrBidTooLow)
			}
		}(i)
	}
	wg.Wait()

	snap, err := env.engine.Snapshot(ctx, auction.ID)
	require.NoError(t, err)
	require.NotEmpty(t, snap.Bids)

	for i, bid := range snap.Bids {
		require.Equal(t, int64(i+1), bid.Sequence, "sequences must be contiguous from 1")
		if i > 0 {
			require.Greater(t, bid.Amount, snap.Bids[i-1].Amount, "accepted amounts must strictly increase")
		}
	}
}

func TestPlaceBidAfterEndTime(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 1000, nil, -time.Minute)

	_, err := env.engine.PlaceBid(context.Background(), PlaceBidParams{
		AuctionID: auction.ID,
		BidderID:  "bidder-1",
		Amount:    2000,
	})
	require.ErrorIs(t, err, ErrAuctionClosed)
}

func TestPlaceBidIdempotencyKeyReplay(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 1000, nil, time.Hour)
	ctx := context.Background()
	idemKey := util.NewIdempotencyKey()

	first, err := env.engine.PlaceBid(ctx, PlaceBidParams{
		AuctionID:      auction.ID,
		BidderID:       "bidder-1",
		Amount:         1500,
		IdempotencyKey: idemKey,
	})
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	// A retry of the same submission is acked with the original bid even
	// though its amount no longer beats the current highest.
	replay, err := env.engine.PlaceBid(ctx, PlaceBidParams{
		AuctionID:      auction.ID,
		BidderID:       "bidder-1",
		Amount:         1500,
		IdempotencyKey: idemKey,
	})
	require.NoError(t, err)
	require.True(t, replay.Duplicate)
	require.Equal(t, first.Bid.ID, replay.Bid.ID)

	snap, err := env.engine.Snapshot(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
}

func TestCloseIdempotent(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 1000, nil, time.Hour)
	ctx := context.Background()

	for _, arg := range []PlaceBidParams{
		{AuctionID: auction.ID, BidderID: "bidder-1", Amount: 1200},
		{AuctionID: auction.ID, BidderID: "bidder-2", Amount: 1400},
	} {
		_, err := env.engine.PlaceBid(ctx, arg)
		require.NoError(t, err)
	}

	first, err := env.engine.Close(ctx, auction.ID)
	require.NoError(t, err)
	require.False(t, first.AlreadyClosed)
	require.NotNil(t, first.Winner)
	require.Equal(t, "bidder-2", first.Winner.BidderID)

	// A duplicate timer fire must not mutate anything or re-broadcast.
	second, err := env.engine.Close(ctx, auction.ID)
	require.NoError(t, err)
	require.True(t, second.AlreadyClosed)
	require.Equal(t, first.Winner, second.Winner)

	require.Len(t, env.sender.byType(event.EventTypeAuctionClosed), 1)

	// One outcome per distinct bidder, WIN for the winner, LOSE otherwise.
	require.Equal(t, 2, env.scheduler.outcomeCalls)
	require.Equal(t, OutcomeLose, env.scheduler.outcomes[auction.ID.String()+":bidder-1"])
	require.Equal(t, OutcomeWin, env.scheduler.outcomes[auction.ID.String()+":bidder-2"])

	// The store agrees with what the engine returned.
	stored, err := env.store.GetAuctionByID(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, db.AuctionStatusClosed, stored.Status)
}

func TestCloseWithoutBids(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 1000, nil, time.Hour)

	result, err := env.engine.Close(context.Background(), auction.ID)
	require.NoError(t, err)
	require.Nil(t, result.Winner)
	require.Equal(t, 0, env.scheduler.outcomeCalls)

	closedEvents := env.sender.byType(event.EventTypeAuctionClosed)
	require.Len(t, closedEvents, 1)

	payload, ok := closedEvents[0].Data.(ClosedEventPayload)
	require.True(t, ok)
	require.False(t, payload.HasWinner)
	require.Equal(t, int64(1000), payload.FinalPrice)
}

func TestBuyNowClosesImmediately(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 1000, util.Int64Pointer(5000), time.Hour)
	ctx := context.Background()

	result, err := env.engine.PlaceBid(ctx, PlaceBidParams{
		AuctionID: auction.ID,
		BidderID:  "bidder-1",
		Amount:    5000,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Closed)
	require.Equal(t, db.AuctionStatusClosed, result.Auction.Status)
	require.Equal(t, "bidder-1", result.Closed.Winner.BidderID)

	// The armed clock is released so it cannot fire for a dead auction.
	require.Equal(t, 1, env.scheduler.closeCancels[auction.ID])

	_, err = env.engine.PlaceBid(ctx, PlaceBidParams{
		AuctionID: auction.ID,
		BidderID:  "bidder-2",
		Amount:    6000,
	})
	require.ErrorIs(t, err, ErrAuctionClosed)
}

func TestWinnerLifecycle(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 1000, nil, time.Hour)
	ctx := context.Background()

	_, _, err := env.engine.Winner(ctx, auction.ID)
	require.ErrorIs(t, err, ErrAuctionNotClosed)

	_, _, err = env.engine.Winner(ctx, uuid.Must(uuid.NewV7()))
	require.ErrorIs(t, err, ErrAuctionNotFound)

	_, err = env.engine.PlaceBid(ctx, PlaceBidParams{AuctionID: auction.ID, BidderID: "bidder-1", Amount: 1300})
	require.NoError(t, err)
	_, err = env.engine.Close(ctx, auction.ID)
	require.NoError(t, err)

	closedAuction, winner, err := env.engine.Winner(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, db.AuctionStatusClosed, closedAuction.Status)
	require.NotNil(t, winner)
	require.Equal(t, "bidder-1", winner.BidderID)
	require.Equal(t, int64(1300), winner.Amount)
}

func TestWinnerTieBreakEarliestSequence(t *testing.T) {
	// A restored ledger may carry equal amounts; the earliest sequence wins.
	env := newTestEnv(t)
	ctx := context.Background()

	now := time.Now().UTC()
	auction := db.Auction{
		ID:            uuid.Must(uuid.NewV7()),
		SellerID:      "seller-1",
		Title:         "Zaku II kit",
		StartingPrice: 1000,
		CurrentPrice:  2000,
		Status:        db.AuctionStatusActive,
		EndTime:       now.Add(time.Hour),
		CreatedAt:     now,
	}
	_, err := env.store.CreateAuction(ctx, auction)
	require.NoError(t, err)

	for seq, bidder := range []string{"bidder-1", "bidder-2"} {
		_, err = env.store.CreateAuctionBid(ctx, db.AuctionBid{
			ID:        uuid.Must(uuid.NewV7()),
			AuctionID: auction.ID,
			BidderID:  bidder,
			Amount:    2000,
			Sequence:  int64(seq + 1),
			CreatedAt: now,
		})
		require.NoError(t, err)
	}

	require.NoError(t, env.engine.Recover(ctx))

	result, err := env.engine.Close(ctx, auction.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Winner)
	require.Equal(t, "bidder-1", result.Winner.BidderID)
}

func TestRecoverReArmsActiveAuctions(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 1000, nil, time.Hour)
	ctx := context.Background()

	_, err := env.engine.PlaceBid(ctx, PlaceBidParams{AuctionID: auction.ID, BidderID: "bidder-1", Amount: 1500})
	require.NoError(t, err)

	// A fresh engine over the same store simulates a restart.
	restarted := NewEngine(env.store, env.sender, env.scheduler)
	require.NoError(t, restarted.Recover(ctx))
	require.Equal(t, 2, env.scheduler.closeArmed[auction.ID])

	snap, err := restarted.Snapshot(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	require.Equal(t, int64(1500), snap.CurrentHighest)

	// The restored ledger keeps enforcing monotonicity.
	_, err = restarted.PlaceBid(ctx, PlaceBidParams{AuctionID: auction.ID, BidderID: "bidder-2", Amount: 1500})
	require.ErrorIs(t, err, ErrBidTooLow)
}

func TestSnapshotOfClosedAuctionFromStore(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 1000, nil, time.Hour)
	ctx := context.Background()

	_, err := env.engine.PlaceBid(ctx, PlaceBidParams{AuctionID: auction.ID, BidderID: "bidder-1", Amount: 1500})
	require.NoError(t, err)
	_, err = env.engine.Close(ctx, auction.ID)
	require.NoError(t, err)

	// A fresh engine has no actor for the closed auction and must serve the
	// snapshot from the store.
	restarted := NewEngine(env.store, env.sender, env.scheduler)
	snap, err := restarted.Snapshot(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, db.AuctionStatusClosed, snap.Status)
	require.Len(t, snap.Bids, 1)
	require.Equal(t, int64(1500), snap.CurrentHighest)
	require.Equal(t, int64(1), snap.LastSequence)
}

func TestCloseReleasesActor(t *testing.T) {
	env := newTestEnv(t)
	auction := env.openAuction(t, 1000, nil, time.Hour)
	ctx := context.Background()

	_, err := env.engine.PlaceBid(ctx, PlaceBidParams{AuctionID: auction.ID, BidderID: "bidder-1", Amount: 1500})
	require.NoError(t, err)
	_, err = env.engine.Close(ctx, auction.ID)
	require.NoError(t, err)

	env.engine.mu.RLock()
	_, retained := env.engine.actors[auction.ID]
	env.engine.mu.RUnlock()
	require.False(t, retained, "closed auction must not keep its actor")

	// The closed auction stays fully readable from the store.
	snap, err := env.engine.Snapshot(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, db.AuctionStatusClosed, snap.Status)
	require.Len(t, snap.Bids, 1)

	result, err := env.engine.Close(ctx, auction.ID)
	require.NoError(t, err)
	require.True(t, result.AlreadyClosed)
}

func TestEngineDoesNotAccumulateClosedAuctions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		auction := env.openAuction(t, 1000, nil, time.Hour)
		_, err := env.engine.PlaceBid(ctx, PlaceBidParams{AuctionID: auction.ID, BidderID: "bidder-1", Amount: 1500})
		require.NoError(t, err)
		_, err = env.engine.Close(ctx, auction.ID)
		require.NoError(t, err)
	}

	env.engine.mu.RLock()
	defer env.engine.mu.RUnlock()
	require.Empty(t, env.engine.actors)
}

func TestCloseExpiredSweep(t *testing.T) {
	env := newTestEnv(t)
	expired := env.openAuction(t, 1000, nil, -time.Minute)
	live := env.openAuction(t, 1000, nil, time.Hour)
	ctx := context.Background()

	env.engine.CloseExpired(ctx)

	expiredRow, err := env.store.GetAuctionByID(ctx, expired.ID)
	require.NoError(t, err)
	require.Equal(t, db.AuctionStatusClosed, expiredRow.Status)

	liveRow, err := env.store.GetAuctionByID(ctx, live.ID)
	require.NoError(t, err)
	require.Equal(t, db.AuctionStatusActive, liveRow.Status)
}
