package events

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange        = "ecommerce.events"
	StockLowRoutingKey    = "stock.low.v1"
	OrderPlacedRoutingKey = "order.placed.v1"
	serviceName           = "storefront-go"
)

func serviceQueue(routingKey string) string {
	return serviceName + "." + routingKey
}

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}

// declareBoundQueue declares the durable service queue for routingKey and
// binds it to the events exchange.
func declareBoundQueue(ch *amqp.Channel, routingKey string) (string, error) {
	if err := declareEventsExchange(ch); err != nil {
		return "", fmt.Errorf("declare events exchange: %w", err)
	}
	q, err := ch.QueueDeclare(serviceQueue(routingKey), true, false, false, false, nil)
	if err != nil {
		return "", fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, routingKey, EventsExchange, false, nil); err != nil {
		return "", fmt.Errorf("bind %s: %w", q.Name, err)
	}
	return q.Name, nil
}
