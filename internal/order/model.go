package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a purchased line. Price is the unit price copied at purchase time.
type Item struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"orderId"`
	ProductID    string          `json:"productId"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	ProductName  string          `json:"productName,omitempty"`
	ProductImage string          `json:"productImage,omitempty"`
}

type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	PaymentReference string          `json:"paymentReference"`
	Status           Status          `json:"status"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	CreatedAt        time.Time       `json:"createdAt"`
	Items            []Item          `json:"items"`
}

// CartLine is what the materializer reads from the cart.
type CartLine struct {
	ProductID string
	Quantity  int
}
