// Package pricing computes cart and order totals with fixed-point decimals.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/errs"
)

var (
	ErrNegativePrice    = fmt.Errorf("%w: negative price", errs.ErrInvalidInput)
	ErrNegativeQuantity = fmt.Errorf("%w: negative quantity", errs.ErrInvalidInput)
	ErrNegativeTaxRate  = errors.New("tax rate must not be negative")
)

var hundred = decimal.NewFromInt(100)

// Line is a unit price and the number of units bought at it.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Calculator applies a single tax rate, given as a percentage (8.5 means 8.5%).
type Calculator struct {
	rate decimal.Decimal
}

func NewCalculator(rate decimal.Decimal) (*Calculator, error) {
	if rate.IsNegative() {
		return nil, ErrNegativeTaxRate
	}
	return &Calculator{rate: rate}, nil
}

func (c *Calculator) Rate() decimal.Decimal { return c.rate }

// Calculate validates every line before doing any arithmetic.
// Tax and total are rounded to cents, half away from zero, which is half-up
// for the non-negative amounts accepted here.
func (c *Calculator) Calculate(lines []Line) (Totals, error) {
	for _, l := range lines {
		if l.UnitPrice.IsNegative() {
			return Totals{}, ErrNegativePrice
		}
		if l.Quantity < 0 {
			return Totals{}, ErrNegativeQuantity
		}
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	tax := subtotal.Mul(c.rate).Div(hundred).Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax).Round(2),
	}, nil
}

// ToMinorUnits converts an amount to cents for payment gateways.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}
