package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventNameStockLow    = "StockLow"
	EventNameOrderPlaced = "OrderPlaced"

	stockLowSchema    = "storefront.stock.low.v1"
	orderPlacedSchema = "storefront.order.placed.v1"
)

type StockLowPayload struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Remaining int             `json:"remaining"`
	Quantity  int             `json:"quantity"`
}

type OrderPlacedPayload struct {
	OrderID          string            `json:"orderId"`
	UserID           string            `json:"userId"`
	PaymentReference string            `json:"paymentReference"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	Tax              decimal.Decimal   `json:"tax"`
	Total            decimal.Decimal   `json:"total"`
	PlacedAt         time.Time         `json:"placedAt"`
	Items            []OrderPlacedItem `json:"items"`
}

type OrderPlacedItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
