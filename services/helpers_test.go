package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"pos-backend/models"
	"pos-backend/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected store failure")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// failingStore fails every stock adjustment of one product.
type failingStore struct {
	repository.Store
	failOn string
}

func (f *failingStore) AdjustStock(ctx context.Context, id string, delta int) error {
	if id == f.failOn {
		return errInjected
	}
	return f.Store.AdjustStock(ctx, id, delta)
}

func (f *failingStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return f.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(&failingStore{Store: tx, failOn: f.failOn})
	})
}

// countingStore counts every write that reaches the store.
type countingStore struct {
	repository.Store
	writes *atomic.Int64
}

func newCountingStore(s repository.Store) *countingStore {
	return &countingStore{Store: s, writes: new(atomic.Int64)}
}

func (c *countingStore) CreateProduct(ctx context.Context, p *models.Product) error {
	c.writes.Add(1)
	return c.Store.CreateProduct(ctx, p)
}

func (c *countingStore) UpdateProduct(ctx context.Context, id string, version int, updates map[string]any) (*models.Product, error) {
	c.writes.Add(1)
	return c.Store.UpdateProduct(ctx, id, version, updates)
}

func (c *countingStore) DeleteProduct(ctx context.Context, id string) error {
	c.writes.Add(1)
	return c.Store.DeleteProduct(ctx, id)
}

func (c *countingStore) AdjustStock(ctx context.Context, id string, delta int) error {
	c.writes.Add(1)
	return c.Store.AdjustStock(ctx, id, delta)
}

func (c *countingStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	c.writes.Add(1)
	return c.Store.CreateInvoice(ctx, inv)
}

func (c *countingStore) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	c.writes.Add(1)
	return c.Store.UpdateInvoice(ctx, inv)
}

func (c *countingStore) DeleteInvoice(ctx context.Context, id string) error {
	c.writes.Add(1)
	return c.Store.DeleteInvoice(ctx, id)
}

func (c *countingStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return c.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(&countingStore{Store: tx, writes: c.writes})
	})
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Notification{}
	}
	return r.sent[len(r.sent)-1]
}

func seedProduct(t *testing.T, s repository.Store, id, code string, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Id: id, Code: code, Description: code + " item", Price: dec(price), Stock: stock}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func stockOf(t *testing.T, s repository.Store, id string) int {
	t.Helper()
	p, err := s.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}
