package inventory

import "github.com/shopspring/decimal"

type StockItem struct {
	ProductID string `json:"productId"`
	Available int    `json:"available"`
}

// Movement records one stock decrement. LowStock is set when the remaining
// stock is at or below the ledger threshold.
type Movement struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Remaining int             `json:"remaining"`
	LowStock  bool            `json:"lowStock"`
}

func NewMovement(productID, name string, price decimal.Decimal, quantity, remaining, threshold int) Movement {
	return Movement{
		ProductID: productID,
		Name:      name,
		Price:     price,
		Quantity:  quantity,
		Remaining: remaining,
		LowStock:  remaining <= threshold,
	}
}
