package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nhattran/livebid-BE/internal/event"
)

// streamAuctionEvents establishes an SSE connection carrying the auction's
// live event feed. Events for one subscriber arrive in ledger order. The
// stream ends after the auction_closed event or when the client goes away.
func (server *Server) streamAuctionEvents(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("auctionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid auction ID format")))
		return
	}

	topic := event.AuctionTopic(auctionID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	clientChan := event.NewClientChan()
	server.eventSender.Register(topic, clientChan)
	defer server.eventSender.Unregister(topic, clientChan)

	for {
		select {
		case ev, ok := <-clientChan:
			if !ok {
				// Dropped as a slow consumer; the client reconnects and
				// re-fetches a snapshot.
				return
			}
			data, _ := json.Marshal(ev.Data)
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, data)
			c.Writer.Flush()

			if ev.Type == event.EventTypeAuctionClosed {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}
