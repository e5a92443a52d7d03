// Package repository is the data store behind the register: products,
// invoices with their items, the operator account and idempotency keys.
package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"pos-backend/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record was modified by someone else")
	ErrProductInUse    = errors.New("product is referenced by invoices")
	ErrDuplicateKey    = errors.New("duplicate key")
)

// Store defines the data access contract. Services depend on this interface,
// not on a concrete backend.
type Store interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	// GetProductForUpdate reads a fresh row and, inside a transaction, locks it
	// until commit.
	GetProductForUpdate(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	// UpdateProduct applies updates only if the row is still at version.
	UpdateProduct(ctx context.Context, id string, version int, updates map[string]any) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	// AdjustStock adds delta to the stored stock (negative deducts).
	AdjustStock(ctx context.Context, id string, delta int) error

	// ListInvoices and GetInvoice return invoices joined with their items and
	// each item's product, items in insertion order.
	ListInvoices(ctx context.Context) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)
	CountInvoices(ctx context.Context) (int64, error)
	// CreateInvoice inserts the invoice row and its items.
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	// UpdateInvoice rewrites the header and replaces all items.
	UpdateInvoice(ctx context.Context, inv *models.Invoice) error
	// DeleteInvoice removes the items, then the invoice row.
	DeleteInvoice(ctx context.Context, id string) error

	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error

	FindIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyKey, error)
	CreateIdempotencyKey(ctx context.Context, k *models.IdempotencyKey) error
	CompleteIdempotencyKey(ctx context.Context, key string, status int, body []byte, at time.Time) error
	// ReleaseIdempotencyKey drops a key that never completed, so the request can
	// be retried. Completed keys are left alone.
	ReleaseIdempotencyKey(ctx context.Context, key string) error

	// Transaction runs fn against a store bound to one transaction. Returning an
	// error from fn rolls back every write fn made.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// finishInvoice puts items back in insertion order and re-derives the totals.
func finishInvoice(inv *models.Invoice) {
	sort.SliceStable(inv.Items, func(i, j int) bool {
		return inv.Items[i].Position < inv.Items[j].Position
	})
	inv.Derive()
}
