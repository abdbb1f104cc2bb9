package events

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// HandlerFunc processes one message body. A non-nil error nacks the
// delivery without requeue.
type HandlerFunc func(ctx context.Context, body []byte) error

// StartConsumer binds the service queue for routingKey and runs handler for
// each delivery in a goroutine until ctx is cancelled or the channel closes.
func StartConsumer(ctx context.Context, conn *amqp.Connection, routingKey string, handler HandlerFunc, logger *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	queue, err := declareBoundQueue(ch, routingKey)
	if err != nil {
		_ = ch.Close()
		return err
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("qos: %w", err)
	}

	msgs, err := ch.Consume(
		queue,
		serviceName, // consumer tag
		false,       // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume: %w", err)
	}

	go func() {
		defer func() { _ = ch.Close() }()
		consume(ctx, msgs, handler, logger.With("queue", queue))
	}()
	return nil
}

func consume(ctx context.Context, msgs <-chan amqp.Delivery, handler HandlerFunc, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Warn("messages channel closed")
				return
			}
			if err := handler(ctx, msg.Body); err != nil {
				logger.Error("handle message", "error", err, "messageId", msg.MessageId)
				_ = msg.Nack(false, false)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}
