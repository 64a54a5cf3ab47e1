package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type PublisherOptions struct {
	Producer string
	Logger   *slog.Logger
}

// Publisher emits enveloped order events to the events exchange.
// It implements order.Notifier.
type Publisher struct {
	mu       sync.Mutex
	ch       Channel
	seq      Sequencer
	producer string
	logger   *slog.Logger
	now      func() time.Time
}

func NewPublisher(conn *amqp.Connection, seq Sequencer, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return newPublisher(ch, seq, opts), nil
}

func newPublisher(ch Channel, seq Sequencer, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = "storefront-service"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		ch:       ch,
		seq:      seq,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishOrderChange(ctx context.Context, change order.Change) error {
	routingKey, ok := routingKeys[change.Kind]
	if !ok {
		return fmt.Errorf("no routing key for order change %q", change.Kind)
	}

	partitionKey := change.Order.ID
	seq, err := p.seq.NextSequence(ctx, partitionKey)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := newOrderEnvelope(change, seq, p.producer, p.now())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.EventName, err)
	}

	return p.publishJSON(ctx, routingKey, change.CorrelationID, body)
}

// OrderChanged publishes and logs failures. Callers have already committed the change.
func (p *Publisher) OrderChanged(ctx context.Context, change order.Change) {
	if err := p.PublishOrderChange(ctx, change); err != nil {
		p.logger.Error("publish order event failed",
			"kind", change.Kind,
			"order_id", change.Order.ID,
			"error", err,
		)
	}
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, correlationID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: correlationID,
			Timestamp:     p.now(),
			Body:          body,
		},
	)
}

func newOrderEnvelope(change order.Change, seq int64, producer string, occurredAt time.Time) Envelope[OrderPayload] {
	routingKey := routingKeys[change.Kind]
	return Envelope[OrderPayload]{
		EventName:     eventNames[change.Kind],
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: change.CorrelationID,
		Producer:      producer,
		PartitionKey:  change.Order.ID,
		Sequence:      seq,
		OccurredAt:    occurredAt,
		Schema:        orderSchema(routingKey),
		Payload:       newOrderPayload(change.Order),
	}
}
