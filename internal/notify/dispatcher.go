package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

// LowStockPublisher hands a low-stock movement to whatever delivers it:
// the event bus in production, the mailer directly when no broker is set up.
type LowStockPublisher interface {
	PublishLowStock(ctx context.Context, correlationID string, m inventory.Movement) error
}

type job struct {
	movement      inventory.Movement
	correlationID string
}

// Dispatcher moves low-stock signals off the request path. NotifyLowStock
// never blocks: when the buffer is full the signal is dropped and logged.
type Dispatcher struct {
	jobs         chan job
	pub          LowStockPublisher
	logger       *slog.Logger
	drainTimeout time.Duration
}

func NewDispatcher(pub LowStockPublisher, buffer int, logger *slog.Logger) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		jobs:         make(chan job, buffer),
		pub:          pub,
		logger:       logger,
		drainTimeout: 5 * time.Second,
	}
}

func (d *Dispatcher) NotifyLowStock(ctx context.Context, m inventory.Movement) {
	j := job{movement: m, correlationID: middleware.GetCorrelationID(ctx)}
	select {
	case d.jobs <- j:
	default:
		d.logger.Warn("low stock signal dropped, dispatcher queue full",
			"productId", m.ProductID, "remaining", m.Remaining)
	}
}

// Run publishes queued signals until ctx is cancelled, then flushes what is
// already queued within drainTimeout.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain(ctx)
			return
		case j := <-d.jobs:
			d.publish(ctx, j)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.drainTimeout)
	defer cancel()
	for {
		select {
		case j := <-d.jobs:
			d.publish(drainCtx, j)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, j job) {
	if err := d.pub.PublishLowStock(ctx, j.correlationID, j.movement); err != nil {
		d.logger.Error("publish low stock failed",
			"productId", j.movement.ProductID,
			"correlationId", j.correlationID,
			"error", err,
		)
	}
}

// MailPublisher delivers low-stock signals straight to the admin mailbox.
type MailPublisher struct {
	Mailer *Mailer
}

func (p MailPublisher) PublishLowStock(ctx context.Context, _ string, m inventory.Movement) error {
	return p.Mailer.SendLowStock(ctx, m)
}
