package reconciler

import (
	"sort"

	"github.com/google/uuid"
	"github.com/nhattran/livebid-BE/internal/auction"
	db "github.com/nhattran/livebid-BE/internal/db"
)

// View merges one snapshot with a live event stream into a single ordered,
// deduplicated picture of an auction. Bids live in a map keyed by bid id for
// membership checks and are re-sorted into a canonical slice after every
// insertion.
//
// View is not safe for concurrent use; callers feed it from one goroutine,
// one event at a time.
type View struct {
	auctionID     uuid.UUID
	startingPrice int64
	baseline      int64 // last sequence covered by the snapshot
	byID          map[uuid.UUID]db.AuctionBid
	ordered       []db.AuctionBid
	status        db.AuctionStatus
	closed        *auction.ClosedEventPayload
}

func NewView(auctionID uuid.UUID, startingPrice int64) *View {
	return &View{
		auctionID:     auctionID,
		startingPrice: startingPrice,
		byID:          make(map[uuid.UUID]db.AuctionBid),
		status:        db.AuctionStatusActive,
	}
}

// ApplySnapshot seeds the view with the snapshot's bids. Applying the same
// snapshot twice, or applying it after live events already arrived, leaves
// the view unchanged beyond what the snapshot adds.
func (v *View) ApplySnapshot(snap auction.Snapshot) {
	for _, bid := range snap.Bids {
		if _, ok := v.byID[bid.ID]; !ok {
			v.byID[bid.ID] = bid
		}
	}
	if snap.LastSequence > v.baseline {
		v.baseline = snap.LastSequence
	}
	if v.closed == nil {
		v.status = snap.Status
	}
	v.resort()
}

// ApplyBid inserts a live bid event. Duplicates (replayed events, bids
// already covered by the snapshot) are discarded; the view never changes
// after the terminal close event. Reports whether the bid was inserted.
func (v *View) ApplyBid(bid db.AuctionBid) bool {
	if v.closed != nil {
		return false
	}
	if _, ok := v.byID[bid.ID]; ok {
		return false
	}
	if bid.Sequence <= v.baseline {
		// Sequences at or below the baseline are already covered by the
		// snapshot.
		return false
	}

	v.byID[bid.ID] = bid
	v.resort()
	return true
}

// ApplyClosed freezes the view with the terminal event. Later events of any
// kind are ignored.
func (v *View) ApplyClosed(payload auction.ClosedEventPayload) {
	if v.closed != nil {
		return
	}
	closed := payload
	v.closed = &closed
	v.status = db.AuctionStatusClosed
}

func (v *View) resort() {
	v.ordered = v.ordered[:0]
	for _, bid := range v.byID {
		v.ordered = append(v.ordered, bid)
	}
	sort.Slice(v.ordered, func(i, j int) bool {
		if v.ordered[i].Sequence != v.ordered[j].Sequence {
			return v.ordered[i].Sequence < v.ordered[j].Sequence
		}
		return v.ordered[i].CreatedAt.Before(v.ordered[j].CreatedAt)
	})
}

// Bids returns the canonical ordered bid list.
func (v *View) Bids() []db.AuctionBid {
	return append([]db.AuctionBid(nil), v.ordered...)
}

// CurrentHighest returns the highest amount in the view, or the starting
// price when the view is empty.
func (v *View) CurrentHighest() int64 {
	highest := v.startingPrice
	for _, bid := range v.ordered {
		if bid.Amount > highest {
			highest = bid.Amount
		}
	}
	return highest
}

func (v *View) AuctionID() uuid.UUID {
	return v.auctionID
}

func (v *View) Status() db.AuctionStatus {
	return v.status
}

func (v *View) Closed() bool {
	return v.closed != nil
}

// FinalResult returns the terminal event once the view is frozen.
func (v *View) FinalResult() (auction.ClosedEventPayload, bool) {
	if v.closed == nil {
		return auction.ClosedEventPayload{}, false
	}
	return *v.closed, true
}

// Reset clears everything but the auction identity, for a fresh
// snapshot-plus-stream cycle after a transport disconnect.
func (v *View) Reset() {
	v.baseline = 0
	v.byID = make(map[uuid.UUID]db.AuctionBid)
	v.ordered = nil
	if v.closed == nil {
		v.status = db.AuctionStatusActive
	}
}
