package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

// channel is the publishing half of *amqp.Channel.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	mu  sync.Mutex
	ch  channel
	now func() time.Time
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return newPublisher(ch), nil
}

func newPublisher(ch channel) *Publisher {
	return &Publisher{ch: ch, now: func() time.Time { return time.Now().UTC() }}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishLowStock(ctx context.Context, correlationID string, m inventory.Movement) error {
	payload := StockLowPayload{
		ProductID: m.ProductID,
		Name:      m.Name,
		Price:     m.Price,
		Remaining: m.Remaining,
		Quantity:  m.Quantity,
	}
	env, err := p.envelope(EventNameStockLow, stockLowSchema, m.ProductID, correlationID, payload)
	if err != nil {
		return err
	}
	return p.publishJSON(ctx, StockLowRoutingKey, env)
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, o *order.Order) error {
	payload := OrderPlacedPayload{
		OrderID:          o.ID,
		UserID:           o.UserID,
		PaymentReference: o.PaymentReference,
		Subtotal:         o.Subtotal,
		Tax:              o.Tax,
		Total:            o.Total,
		PlacedAt:         o.CreatedAt,
	}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, OrderPlacedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	env, err := p.envelope(EventNameOrderPlaced, orderPlacedSchema, o.ID, middleware.GetCorrelationID(ctx), payload)
	if err != nil {
		return err
	}
	return p.publishJSON(ctx, OrderPlacedRoutingKey, env)
}

func (p *Publisher) envelope(name, schema, partitionKey, correlationID string, payload any) (EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return EventEnvelope{
		EventName:     name,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		Producer:      serviceName,
		PartitionKey:  partitionKey,
		OccurredAt:    p.now(),
		Schema:        schema,
		Payload:       raw,
	}, nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, env EventEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.EventName, err)
	}

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
			MessageId:     env.EventID,
			CorrelationId: env.CorrelationID,
			Timestamp:     env.OccurredAt,
			Type:          env.EventName,
			Body:          body,
		},
	)
}
