package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice lifecycle states. A draft only exists client-side (billing.Draft);
// a deleted invoice has no row.
const (
	InvoiceCommitted = "committed"
	InvoiceEdited    = "edited"
)

// Invoice is a committed sales invoice. Column names follow the store contract
// (invoicenumber, customername, ...), not GORM's snake_case default.
type Invoice struct {
	Id            string    `json:"id" gorm:"primaryKey"`
	InvoiceNumber string    `json:"invoice_number" gorm:"column:invoicenumber"`
	Date          time.Time `json:"date" gorm:"column:date;not null"`
	CustomerName  string    `json:"customer_name" gorm:"column:customername"`

	// Items in insertion order (see InvoiceItem.Position).
	Items []InvoiceItem `json:"items" gorm:"foreignKey:InvoiceID"`

	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"column:totalamount;type:numeric(12,2)"`
	CashAmount    decimal.Decimal `json:"cash_amount" gorm:"column:cashamount;type:numeric(12,2)"`
	BalanceAmount decimal.Decimal `json:"balance_amount" gorm:"column:balanceamount;type:numeric(12,2)"`

	Status    string    `json:"status" gorm:"type:VARCHAR(20);not null;default:'committed'"`
	UpdatedAt time.Time `json:"updated_at"`
}

type InvoiceItem struct {
	Id        string `json:"id" gorm:"primaryKey"`
	InvoiceID string `json:"-" gorm:"not null;index"`
	ProductID string `json:"product_id" gorm:"not null;index"`
	// Product is the snapshot taken when the item was added; rows read back from
	// the store carry the current product instead.
	Product   *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID;references:Id;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	Position  int             `json:"position" gorm:"not null;default:0"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2)"`
	Discount  decimal.Decimal `json:"discount" gorm:"type:numeric(12,2)"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2)"`
}

func (invoice *Invoice) BeforeCreate(tx *gorm.DB) (err error) {
	if invoice.Id == "" {
		invoice.Id = uuid.NewString()
	}
	return
}

func (item *InvoiceItem) BeforeCreate(tx *gorm.DB) (err error) {
	if item.Id == "" {
		item.Id = uuid.NewString()
	}
	return
}

// Derive recomputes the stored totals from the item amounts. Totals are never
// trusted as written; every read and write goes through here.
func (invoice *Invoice) Derive() {
	total := decimal.Zero
	for _, item := range invoice.Items {
		total = total.Add(item.Amount)
	}
	invoice.TotalAmount = total
	invoice.BalanceAmount = invoice.CashAmount.Sub(total)
}
