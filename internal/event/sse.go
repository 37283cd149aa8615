package event

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	// Per-client buffer. A client that falls this far behind is dropped and
	// has to reconnect and re-fetch a snapshot.
	clientBufferSize = 32

	broadcastBufferSize = 256
)

type SSEServer struct {
	clients map[string]map[chan Event]bool
	events  chan Event
	mu      sync.Mutex
}

func NewSSEServer() *SSEServer {
	return &SSEServer{
		clients: make(map[string]map[chan Event]bool),
		events:  make(chan Event, broadcastBufferSize),
	}
}

// NewClientChan returns a channel suitable for Register.
func NewClientChan() chan Event {
	return make(chan Event, clientBufferSize)
}

// Register subscribes a client to a topic. The client only receives events
// broadcast after this call; history comes from the snapshot endpoint.
func (s *SSEServer) Register(topic string, client chan Event) {
	s.mu.Lock()
	if _, ok := s.clients[topic]; !ok {
		s.clients[topic] = make(map[chan Event]bool)
	}
	s.clients[topic][client] = true
	total := len(s.clients[topic])
	s.mu.Unlock()

	log.Info().Str("topic", topic).Int("total_clients", total).Msg("client registered")
}

// Unregister removes a client from a topic and releases its channel. The
// topic itself is torn down once the last client leaves.
func (s *SSEServer) Unregister(topic string, client chan Event) {
	s.mu.Lock()
	remaining := 0
	if clients, ok := s.clients[topic]; ok {
		if clients[client] {
			delete(clients, client)
			close(client)
		}
		remaining = len(clients)
		if remaining == 0 {
			delete(s.clients, topic)
		}
	}
	s.mu.Unlock()

	log.Info().Str("topic", topic).Int("remaining_clients", remaining).Msg("client unregistered")
}

// Broadcast queues an event for delivery to every subscriber of its topic.
// It never blocks: if the fan-out loop cannot keep up the event is dropped
// and subscribers recover through their next snapshot.
func (s *SSEServer) Broadcast(event Event) {
	select {
	case s.events <- event:
	default:
		log.Warn().Str("topic", event.Topic).Str("type", event.Type).Msg("event queue full, dropping event")
	}
}

// Run delivers queued events to subscribers. One goroutine drains the queue,
// so every subscriber of a topic observes events in broadcast order.
func (s *SSEServer) Run() {
	for event := range s.events {
		s.mu.Lock()
		for client := range s.clients[event.Topic] {
			select {
			case client <- event:
			default:
				// Slow client: drop it so it resubscribes with a fresh snapshot.
				delete(s.clients[event.Topic], client)
				close(client)
				log.Warn().Str("topic", event.Topic).Msg("client too slow, dropped")
			}
		}
		if len(s.clients[event.Topic]) == 0 {
			delete(s.clients, event.Topic)
		}
		s.mu.Unlock()
	}
}
