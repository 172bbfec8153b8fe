package frontend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Siroj42/heinzelmann/internal/actor"
	"github.com/Siroj42/heinzelmann/internal/infrastructure/mqtt"
	"github.com/Siroj42/heinzelmann/internal/script"
)

const defaultIngestQueue = 10

// BusClient is the part of *mqtt.Client the adapter uses.
type BusClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Event is a message received from the broker.
type Event struct {
	Topic   string
	Payload []byte
}

// BusAdapter implements actor.Bus on top of the MQTT client. Received
// messages are queued for Ingest; when the queue is full the broker's
// delivery goroutine blocks until Ingest catches up.
type BusAdapter struct {
	client BusClient
	events chan Event

	closeOnce sync.Once
	closed    chan struct{}
}

var _ actor.Bus = (*BusAdapter)(nil)

// NewBusAdapter creates an adapter with room for queue pending events.
func NewBusAdapter(client BusClient, queue int) *BusAdapter {
	if queue <= 0 {
		queue = defaultIngestQueue
	}
	return &BusAdapter{
		client: client,
		events: make(chan Event, queue),
		closed: make(chan struct{}),
	}
}

// Publish sends payload at QoS 1.
func (b *BusAdapter) Publish(topic string, payload []byte, retained bool) error {
	return b.client.Publish(topic, payload, mqtt.QoSAtLeastOnce, retained)
}

// Subscribe subscribes at QoS 0 and routes messages to Events.
func (b *BusAdapter) Subscribe(topic string) error {
	return b.client.Subscribe(topic, mqtt.QoSAtMostOnce, b.enqueue)
}

// Unsubscribe stops delivery for topic. Events already queued are still
// ingested.
func (b *BusAdapter) Unsubscribe(topic string) error {
	return b.client.Unsubscribe(topic)
}

func (b *BusAdapter) enqueue(topic string, payload []byte) error {
	select {
	case b.events <- Event{Topic: topic, Payload: payload}:
		return nil
	case <-b.closed:
		return fmt.Errorf("bus adapter closed, dropping message on %s", topic)
	}
}

// Events returns the queue of received messages.
func (b *BusAdapter) Events() <-chan Event {
	return b.events
}

// Close releases delivery goroutines blocked on a full queue.
func (b *BusAdapter) Close() {
	b.closeOnce.Do(func() { close(b.closed) })
}

// EventCode builds the handle-event call for a received message. Payload
// bytes that are not valid UTF-8 are replaced with U+FFFD.
func EventCode(topic string, payload []byte) string {
	text := string(payload)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	return fmt.Sprintf("(handle-event %s %s)", script.Quote(topic), script.Quote(text))
}

// Ingest evaluates one handle-event Command per received event, in order,
// waiting for each reply before taking the next event. It returns nil when
// ctx is cancelled and an error if the actor stops.
func Ingest(ctx context.Context, events <-chan Event, ev Evaluator, logger Logger) error {
	logger = orNoop(logger)

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			if !utf8.Valid(e.Payload) {
				logger.Warn("payload is not valid UTF-8", "topic", e.Topic)
			}
			resp, err := ev.Eval(ctx, actor.SourceBus, EventCode(e.Topic, e.Payload))
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("ingesting event on %s: %w", e.Topic, err)
			}
			if resp.Kind == actor.Error {
				logger.Debug("event hook failed", "topic", e.Topic, "error", resp.Text)
			}
		}
	}
}
