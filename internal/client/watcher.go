package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nhattran/livebid-BE/internal/auction"
	"github.com/nhattran/livebid-BE/internal/db"
	"github.com/nhattran/livebid-BE/internal/event"
	"github.com/nhattran/livebid-BE/internal/reconciler"
	"github.com/rs/zerolog/log"
)

const reconnectDelay = 2 * time.Second

// Watcher maintains a live reconciled view of one auction. It subscribes to
// the event stream first, then fetches a snapshot, and merges both through a
// reconciler.View. On any transport error it drops the subscription,
// resubscribes, and re-fetches a fresh snapshot rather than patching a stale
// view.
type Watcher struct {
	client    *Client
	auctionID uuid.UUID
	view      *reconciler.View
	onUpdate  func(*reconciler.View)
}

func NewWatcher(c *Client, auctionID uuid.UUID, onUpdate func(*reconciler.View)) *Watcher {
	return &Watcher{
		client:    c,
		auctionID: auctionID,
		onUpdate:  onUpdate,
	}
}

// Run blocks until the auction closes or ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	auctionDetails, err := w.client.GetAuction(ctx, w.auctionID)
	if err != nil {
		return fmt.Errorf("failed to get auction details: %w", err)
	}
	w.view = reconciler.NewView(w.auctionID, auctionDetails.StartingPrice)

	for {
		err := w.watchOnce(ctx)
		if w.view.Closed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Transport blip: resynchronize silently.
		log.Warn().Err(err).Str("auction_id", w.auctionID.String()).Msg("stream dropped, reconnecting")
		w.view.Reset()

		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) watchOnce(ctx context.Context) error {
	// Subscribe before fetching the snapshot so the window between the two
	// is covered by the stream buffer, not lost.
	streamURL := fmt.Sprintf("%s/v1/auctions/%s/stream", strings.TrimRight(w.client.baseURL, "/"), w.auctionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream request failed: %s", resp.Status)
	}

	snap, err := w.client.GetSnapshot(ctx, w.auctionID)
	if err != nil {
		return err
	}
	w.view.ApplySnapshot(snap)
	w.notify()

	if w.view.Status() != db.AuctionStatusActive {
		// Joined after the end; surface the snapshot as the final state. The
		// ledger's amounts strictly increase, so its last bid is the winner.
		payload := auction.ClosedEventPayload{
			AuctionID:    w.auctionID,
			FinalPrice:   snap.CurrentHighest,
			LastSequence: snap.LastSequence,
		}
		if n := len(snap.Bids); n > 0 {
			last := snap.Bids[n-1]
			payload.HasWinner = true
			payload.WinningBidID = &last.ID
			payload.WinnerID = &last.BidderID
		}
		w.view.ApplyClosed(payload)
		w.notify()
		return nil
	}

	scanner := bufio.NewScanner(resp.Body)
	var eventType, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if eventType != "" {
				terminal := w.dispatch(eventType, data)
				if terminal {
					return nil
				}
			}
			eventType, data = "", ""
		}
	}
	if err = scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream closed by server")
}

// dispatch applies one stream event to the view and reports whether it was
// terminal.
func (w *Watcher) dispatch(eventType, data string) bool {
	switch eventType {
	case event.EventTypeNewBid:
		var payload auction.BidEventPayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			log.Warn().Err(err).Msg("failed to decode bid event")
			return false
		}
		if w.view.ApplyBid(payload.Bid) {
			w.notify()
		}
		return false

	case event.EventTypeAuctionClosed:
		var payload auction.ClosedEventPayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			log.Warn().Err(err).Msg("failed to decode close event")
			return false
		}
		w.view.ApplyClosed(payload)
		w.notify()
		return true

	default:
		return false
	}
}

func (w *Watcher) notify() {
	if w.onUpdate != nil {
		w.onUpdate(w.view)
	}
}
