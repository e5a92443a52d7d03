// Package billing holds the invoice arithmetic and the rules that gate a sale
// before anything is written to the store.
package billing

import (
	"pos-backend/models"

	"github.com/shopspring/decimal"
)

// LineAmount is unitPrice * quantity - discount. The discount is a flat amount.
func LineAmount(unitPrice decimal.Decimal, quantity int, discount decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Sub(discount)
}

// Total sums the item amounts as they were frozen at add-time.
func Total(items []models.InvoiceItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}

func Balance(cash, total decimal.Decimal) decimal.Decimal {
	return cash.Sub(total)
}
