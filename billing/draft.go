package billing

import (
	"time"

	"pos-backend/models"

	"github.com/shopspring/decimal"
)

// Draft is an invoice being assembled at the register. Nothing in a draft is
// persisted until Submit succeeds and the caller commits the result.
//
// Outside edit mode the cash amount follows the total: every item change resets
// it, so a cash amount only sticks when it is set after the last item change.
type Draft struct {
	Id            string
	InvoiceNumber string
	CustomerName  string
	Date          time.Time

	items   []models.InvoiceItem
	cash    decimal.Decimal
	editing bool
	// quantity already on the draft per product, for the stock check
	reserved map[string]int
}

func NewDraft(invoiceNumber string) *Draft {
	return &Draft{
		InvoiceNumber: invoiceNumber,
		Date:          time.Now().UTC(),
		reserved:      make(map[string]int),
	}
}

// EditDraft opens a committed invoice for editing. Its items keep their frozen
// amounts and stock checks are skipped for anything added afterwards.
func EditDraft(invoice *models.Invoice) *Draft {
	d := &Draft{
		Id:            invoice.Id,
		InvoiceNumber: invoice.InvoiceNumber,
		CustomerName:  invoice.CustomerName,
		Date:          invoice.Date,
		cash:          invoice.CashAmount,
		editing:       true,
		reserved:      make(map[string]int),
	}
	d.items = append(d.items, invoice.Items...)
	return d
}

func (d *Draft) Editing() bool { return d.editing }

// AddItem appends a line for product. The product is copied, so later edits to
// the product do not touch the line's amount.
func (d *Draft) AddItem(product *models.Product, quantity int, discount decimal.Decimal) error {
	if product == nil {
		return &ValidationError{Err: ErrNoProduct}
	}
	if err := validateLine(product.Price, quantity, discount); err != nil {
		return err
	}
	if !d.editing {
		// quantity is bounded by MaxQuantity; compare against what is left so the
		// running total never has to be added up.
		reserved := d.reserved[product.Id]
		if quantity > product.Stock-reserved {
			return invalid(ErrInsufficientStock, "%s has %d in stock, %d requested", product.Code, product.Stock, reserved+quantity)
		}
	}

	snapshot := *product
	d.items = append(d.items, models.InvoiceItem{
		ProductID: product.Id,
		Product:   &snapshot,
		Quantity:  quantity,
		UnitPrice: product.Price,
		Discount:  discount,
		Amount:    LineAmount(product.Price, quantity, discount),
	})
	d.reserved[product.Id] += quantity
	d.itemsChanged()
	return nil
}

// RemoveItem drops the line at index.
func (d *Draft) RemoveItem(index int) error {
	if index < 0 || index >= len(d.items) {
		return invalid(ErrItemIndex, "index %d", index)
	}
	removed := d.items[index]
	d.items = append(d.items[:index:index], d.items[index+1:]...)
	if d.reserved[removed.ProductID] > 0 {
		d.reserved[removed.ProductID] -= removed.Quantity
		if d.reserved[removed.ProductID] < 0 {
			d.reserved[removed.ProductID] = 0
		}
	}
	d.itemsChanged()
	return nil
}

// KeepOnly narrows an edit draft to the original items whose ids are listed,
// preserving their order.
func (d *Draft) KeepOnly(ids map[string]bool) {
	kept := d.items[:0:0]
	for _, item := range d.items {
		if item.Id != "" && ids[item.Id] {
			kept = append(kept, item)
		}
	}
	d.items = kept
	d.itemsChanged()
}

func (d *Draft) itemsChanged() {
	if !d.editing && len(d.items) > 0 {
		d.cash = d.Total()
	}
}

// Items returns a copy of the lines in insertion order.
func (d *Draft) Items() []models.InvoiceItem {
	out := make([]models.InvoiceItem, len(d.items))
	copy(out, d.items)
	return out
}

func (d *Draft) Total() decimal.Decimal { return Total(d.items) }

func (d *Draft) Cash() decimal.Decimal { return d.cash }

func (d *Draft) SetCash(cash decimal.Decimal) { d.cash = cash }

func (d *Draft) Balance() decimal.Decimal { return Balance(d.cash, d.Total()) }

// CashError is the inline message for the cash field.
func (d *Draft) CashError() string { return CashError(d.cash, d.Total()) }

// Submit validates the draft and returns the invoice to commit. The draft is
// left untouched on error.
func (d *Draft) Submit() (*models.Invoice, error) {
	total := d.Total()
	if err := ValidateSubmission(len(d.items), d.cash, total); err != nil {
		return nil, err
	}
	status := models.InvoiceCommitted
	if d.editing {
		status = models.InvoiceEdited
	}
	invoice := &models.Invoice{
		Id:            d.Id,
		InvoiceNumber: d.InvoiceNumber,
		Date:          d.Date,
		CustomerName:  d.CustomerName,
		Items:         d.Items(),
		CashAmount:    d.cash,
		Status:        status,
	}
	for i := range invoice.Items {
		invoice.Items[i].Position = i
	}
	invoice.Derive()
	return invoice, nil
}
