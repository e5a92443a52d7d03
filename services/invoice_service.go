// Package services runs the register's operations against the store: invoice
// commits with their stock reconciliation, product maintenance and the
// in-process read model.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"pos-backend/billing"
	"pos-backend/models"
	"pos-backend/repository"
	"pos-backend/utils"

	"github.com/shopspring/decimal"
)

// LineInput is one requested invoice line. When editing, a line with ItemID
// carries over the committed item unchanged; any other field is ignored.
type LineInput struct {
	ItemID    string
	ProductID string
	Quantity  int
	Discount  decimal.Decimal
}

type InvoiceInput struct {
	// InvoiceNumber is optional on create; the next number is assigned.
	InvoiceNumber string
	CustomerName  string
	Lines         []LineInput
	// Cash defaults to the total on create and to the committed amount on edit.
	Cash *decimal.Decimal
}

// StockDelta is the change to apply to one product's stock.
type StockDelta struct {
	ProductID string
	Delta     int
}

// StockDeltas restores every item in before and deducts every item in after.
// Products whose delta nets to zero are left out. The result is sorted by
// product id so concurrent reconciliations lock rows in the same order.
func StockDeltas(before, after []models.InvoiceItem) []StockDelta {
	net := make(map[string]int)
	for _, item := range before {
		net[item.ProductID] += item.Quantity
	}
	for _, item := range after {
		net[item.ProductID] -= item.Quantity
	}
	out := make([]StockDelta, 0, len(net))
	for id, delta := range net {
		if delta != 0 {
			out = append(out, StockDelta{ProductID: id, Delta: delta})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Preview is a draft computed without touching the store.
type Preview struct {
	Items     []models.InvoiceItem `json:"items"`
	Total     decimal.Decimal      `json:"total_amount"`
	Cash      decimal.Decimal      `json:"cash_amount"`
	Balance   decimal.Decimal      `json:"balance_amount"`
	CashError string               `json:"cash_error,omitempty"`
}

type InvoiceService struct {
	store    repository.Store
	notifier Notifier
	prefix   string
}

func NewInvoiceService(store repository.Store, notifier Notifier, numberPrefix string) *InvoiceService {
	return &InvoiceService{store: store, notifier: notifier, prefix: numberPrefix}
}

func (s *InvoiceService) List(ctx context.Context) ([]models.Invoice, error) {
	invoices, err := s.store.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return inv, nil
}

// NextInvoiceNumber is the prefix followed by the invoice count plus one,
// zero padded to three digits: A001, A002, ...
func (s *InvoiceService) NextInvoiceNumber(ctx context.Context) (string, error) {
	return nextNumber(ctx, s.store, s.prefix)
}

func nextNumber(ctx context.Context, st repository.Store, prefix string) (string, error) {
	n, err := st.CountInvoices(ctx)
	if err != nil {
		return "", fmt.Errorf("count invoices: %w", err)
	}
	return utils.SequenceNumber(prefix, int(n)+1, 3), nil
}

// Preview computes the draft for in. With a non-empty invoiceID the draft is
// built in edit mode on top of that invoice.
func (s *InvoiceService) Preview(ctx context.Context, invoiceID string, in InvoiceInput) (*Preview, error) {
	var base *models.Invoice
	if invoiceID != "" {
		inv, err := s.store.GetInvoice(ctx, invoiceID)
		if err != nil {
			return nil, fmt.Errorf("get invoice %s: %w", invoiceID, err)
		}
		base = inv
	}
	products, err := loadProducts(ctx, s.store, newLineProducts(in.Lines), false)
	if err != nil {
		return nil, err
	}
	draft, err := buildDraft(base, in, products)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Items:     draft.Items(),
		Total:     draft.Total(),
		Cash:      draft.Cash(),
		Balance:   draft.Balance(),
		CashError: draft.CashError(),
	}, nil
}

// Create commits a new invoice and deducts its quantities from stock. The
// insert and every stock adjustment happen in one transaction.
func (s *InvoiceService) Create(ctx context.Context, in InvoiceInput) (*models.Invoice, error) {
	if len(in.Lines) == 0 {
		err := &billing.ValidationError{Err: billing.ErrNoItems}
		s.notifier.Notify(ctx, failure("Failed to create invoice", err))
		return nil, err
	}

	var created *models.Invoice
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if in.InvoiceNumber == "" {
			number, err := nextNumber(ctx, tx, s.prefix)
			if err != nil {
				return err
			}
			in.InvoiceNumber = number
		}
		products, err := loadProducts(ctx, tx, newLineProducts(in.Lines), true)
		if err != nil {
			return err
		}
		draft, err := buildDraft(nil, in, products)
		if err != nil {
			return err
		}
		inv, err := draft.Submit()
		if err != nil {
			return err
		}
		if err := tx.CreateInvoice(ctx, inv); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		if err := applyDeltas(ctx, tx, StockDeltas(nil, inv.Items)); err != nil {
			return err
		}
		created = inv
		return nil
	})
	if err != nil {
		s.notifier.Notify(ctx, failure("Failed to create invoice", err))
		return nil, err
	}
	s.notifier.Notify(ctx, success("Success", "Invoice created successfully"))
	return created, nil
}

// Update rewrites a committed invoice. Stock for every original item is
// restored and stock for every resulting item deducted, as one net delta per
// product inside the same transaction. Stock levels are not checked when
// editing.
func (s *InvoiceService) Update(ctx context.Context, id string, in InvoiceInput) (*models.Invoice, error) {
	var updated *models.Invoice
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return fmt.Errorf("get invoice %s: %w", id, err)
		}
		ids := newLineProducts(in.Lines)
		for _, item := range existing.Items {
			ids = append(ids, item.ProductID)
		}
		products, err := loadProducts(ctx, tx, ids, true)
		if err != nil {
			return err
		}
		draft, err := buildDraft(existing, in, products)
		if err != nil {
			return err
		}
		inv, err := draft.Submit()
		if err != nil {
			return err
		}
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return fmt.Errorf("update invoice %s: %w", id, err)
		}
		if err := applyDeltas(ctx, tx, StockDeltas(existing.Items, inv.Items)); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		s.notifier.Notify(ctx, failure("Failed to update invoice", err))
		return nil, err
	}
	s.notifier.Notify(ctx, success("Success", "Invoice updated successfully"))
	return updated, nil
}

// Delete restores the stock of every item and removes the invoice.
func (s *InvoiceService) Delete(ctx context.Context, id string) (*models.Invoice, error) {
	var deleted *models.Invoice
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return fmt.Errorf("get invoice %s: %w", id, err)
		}
		ids := make([]string, 0, len(existing.Items))
		for _, item := range existing.Items {
			ids = append(ids, item.ProductID)
		}
		if _, err := loadProducts(ctx, tx, ids, true); err != nil {
			return err
		}
		if err := tx.DeleteInvoice(ctx, id); err != nil {
			return fmt.Errorf("delete invoice %s: %w", id, err)
		}
		if err := applyDeltas(ctx, tx, StockDeltas(existing.Items, nil)); err != nil {
			return err
		}
		deleted = existing
		return nil
	})
	if err != nil {
		s.notifier.Notify(ctx, failure("Failed to delete invoice", err))
		return nil, err
	}
	s.notifier.Notify(ctx, success("Success", "Invoice deleted successfully"))
	return deleted, nil
}

func newLineProducts(lines []LineInput) []string {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.ItemID == "" && line.ProductID != "" {
			ids = append(ids, line.ProductID)
		}
	}
	return ids
}

// loadProducts reads each product once, in id order. With lock set the rows
// stay locked until the surrounding transaction ends. Missing products are
// left out of the map; adding them to a draft fails validation.
func loadProducts(ctx context.Context, st repository.Store, ids []string, lock bool) (map[string]*models.Product, error) {
	sort.Strings(ids)
	products := make(map[string]*models.Product, len(ids))
	for _, id := range ids {
		if _, seen := products[id]; seen {
			continue
		}
		read := st.GetProduct
		if lock {
			read = st.GetProductForUpdate
		}
		p, err := read(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read product %s: %w", id, err)
		}
		products[id] = p
	}
	return products, nil
}

// buildDraft replays in onto a new draft, or onto an edit draft of base.
func buildDraft(base *models.Invoice, in InvoiceInput, products map[string]*models.Product) (*billing.Draft, error) {
	var draft *billing.Draft
	if base == nil {
		draft = billing.NewDraft(in.InvoiceNumber)
	} else {
		draft = billing.EditDraft(base)
		committed := make(map[string]bool, len(base.Items))
		for _, item := range base.Items {
			committed[item.Id] = true
		}
		keep := make(map[string]bool)
		for _, line := range in.Lines {
			if line.ItemID == "" {
				continue
			}
			if !committed[line.ItemID] {
				return nil, &billing.ValidationError{Err: billing.ErrItemIndex, Details: "item " + line.ItemID}
			}
			keep[line.ItemID] = true
		}
		draft.KeepOnly(keep)
	}
	draft.CustomerName = in.CustomerName
	if base != nil && in.InvoiceNumber != "" {
		draft.InvoiceNumber = in.InvoiceNumber
	}

	for i, line := range in.Lines {
		if line.ItemID != "" {
			if base == nil {
				return nil, &billing.ValidationError{Err: billing.ErrItemIndex, Details: fmt.Sprintf("line %d refers to an item of another invoice", i+1)}
			}
			continue
		}
		if err := draft.AddItem(products[line.ProductID], line.Quantity, line.Discount); err != nil {
			return nil, err
		}
	}
	if in.Cash != nil {
		draft.SetCash(*in.Cash)
	}
	return draft, nil
}

func applyDeltas(ctx context.Context, tx repository.Store, deltas []StockDelta) error {
	for _, d := range deltas {
		if err := tx.AdjustStock(ctx, d.ProductID, d.Delta); err != nil {
			return fmt.Errorf("adjust stock of %s by %d: %w", d.ProductID, d.Delta, err)
		}
	}
	return nil
}
