package event

import "fmt"

// Event represents one message on an auction's broadcast topic.
type Event struct {
	Topic string      // one topic per auction, e.g. "auction:0195..."
	Type  string      // new_bid, auction_closed
	Data  interface{} // event payload, depends on Type
}

const (
	EventTypeNewBid        = "new_bid"        // a bid was accepted into the ledger
	EventTypeAuctionClosed = "auction_closed" // terminal event, the topic produces nothing after it
)

// AuctionTopic returns the broadcast topic for one auction.
func AuctionTopic(auctionID fmt.Stringer) string {
	return fmt.Sprintf("auction:%s", auctionID.String())
}

// Sender is the server-side fan-out pushing events to subscribed clients.
// Broadcast must never block the caller; delivery is at-least-once and
// subscribers are expected to deduplicate.
type Sender interface {
	Register(topic string, client chan Event)
	Unregister(topic string, client chan Event)
	Broadcast(event Event)
	Run()
}
