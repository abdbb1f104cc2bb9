package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cache"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
)

const dedupTTL = 24 * time.Hour

type LowStockMailer interface {
	SendLowStock(ctx context.Context, m inventory.Movement) error
}

// LowStockMailHandler mails the admin once per StockLow event. Event ids are
// claimed in the cache before sending; the claim is released when sending
// fails so a replay can try again.
func LowStockMailHandler(dedup cache.Cache, mailer LowStockMailer, logger *slog.Logger) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		env, err := parseEnvelope(body)
		if err != nil {
			return err
		}
		if err := env.Validate(EventNameStockLow, 1); err != nil {
			return err
		}

		var p StockLowPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal StockLow payload: %w", err)
		}

		key := dedup.GenerateKey("event", env.EventID)
		claimed, err := dedup.SetNX(ctx, key, "1", dedupTTL)
		if err != nil {
			logger.Warn("dedup unavailable, sending anyway", "eventId", env.EventID, "error", err)
			claimed = true
		}
		if !claimed {
			logger.Info("skip duplicate event", "eventId", env.EventID, "productId", p.ProductID)
			return nil
		}

		m := inventory.Movement{
			ProductID: p.ProductID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  p.Quantity,
			Remaining: p.Remaining,
			LowStock:  true,
		}
		if err := mailer.SendLowStock(ctx, m); err != nil {
			_ = dedup.Delete(ctx, key)
			return err
		}
		return nil
	}
}
