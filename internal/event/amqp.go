package event

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	publishTimeout = 5 * time.Second

	// Pending mirror publishes. The exchange is a mirror of the in-process
	// stream; overflow is dropped rather than stalling bid acceptance.
	publishBufferSize = 256
)

// amqpPublisher is the slice of *amqp.Channel the mirror uses.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPMirror wraps another Sender and additionally publishes every broadcast
// to a RabbitMQ topic exchange, keyed by the auction topic. External
// consumers (mobile push, analytics) subscribe there; the wrapped Sender
// keeps serving the in-process SSE clients.
type AMQPMirror struct {
	next      Sender
	channel   amqpPublisher
	exchange  string
	publishes chan Event
}

func NewAMQPMirror(next Sender, conn *amqp.Connection, exchange string) (*AMQPMirror, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	err = channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AMQPMirror{
		next:      next,
		channel:   channel,
		exchange:  exchange,
		publishes: make(chan Event, publishBufferSize),
	}, nil
}

func (m *AMQPMirror) Register(topic string, client chan Event) {
	m.next.Register(topic, client)
}

func (m *AMQPMirror) Unregister(topic string, client chan Event) {
	m.next.Unregister(topic, client)
}

func (m *AMQPMirror) Run() {
	go m.publishLoop()
	m.next.Run()
}

// Broadcast queues the event for the publish loop and forwards it to the
// wrapped Sender. It never blocks: a full queue drops the mirror copy and
// only external consumers miss it.
func (m *AMQPMirror) Broadcast(event Event) {
	select {
	case m.publishes <- event:
	default:
		log.Warn().Str("topic", event.Topic).Str("type", event.Type).Msg("amqp queue full, dropping mirror copy")
	}

	m.next.Broadcast(event)
}

// publishLoop drains queued events to the exchange, one at a time and in
// broadcast order. A publish failure is logged and never fails a broadcast.
func (m *AMQPMirror) publishLoop() {
	for event := range m.publishes {
		body, err := json.Marshal(event.Data)
		if err != nil {
			log.Err(err).Str("topic", event.Topic).Msg("failed to marshal event for amqp")
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = m.channel.PublishWithContext(ctx, m.exchange, event.Topic, false, false, amqp.Publishing{
			ContentType: "application/json",
			Type:        event.Type,
			Body:        body,
		})
		cancel()
		if err != nil {
			log.Err(err).Str("topic", event.Topic).Str("type", event.Type).Msg("failed to publish event to amqp")
		}
	}
}
