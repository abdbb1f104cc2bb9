package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Image         string          `json:"image"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type Detail struct {
	Product Product   `json:"product"`
	Related []Product `json:"related"`
}

type Home struct {
	Bestsellers []Product `json:"bestsellers"`
	NewArrivals []Product `json:"newArrivals"`
}
