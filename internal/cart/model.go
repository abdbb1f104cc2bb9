package cart

import (
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

type Item struct {
	ID        string `json:"id"`
	CartID    string `json:"cartId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Line is a cart item joined with the product as it is right now.
type Line struct {
	Item
	Product catalog.Product `json:"product"`
}

type Cart struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Items     []Line    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WithTotals is a cart plus totals computed at read time. Totals are never
// stored.
type WithTotals struct {
	Cart
	pricing.Totals
}
