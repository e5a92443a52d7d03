package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pos-backend/models"
	"pos-backend/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const recentInvoices = 5

// Mirror is the in-process copy of all products and invoices that list views
// and the dashboard read from. It is refreshed in full by Load and patched
// after each successful mutation:
//
//   - product create, update, delete: patched locally
//   - invoice create: invoice appended, stock recomputed locally
//   - invoice update, delete: products re-fetched, invoice patched locally
type Mirror struct {
	store repository.Store

	mu       sync.RWMutex
	products []models.Product
	invoices []models.Invoice
}

func NewMirror(store repository.Store) *Mirror {
	return &Mirror{store: store}
}

// Load replaces the mirror with a fresh read of the store.
func (m *Mirror) Load(ctx context.Context) error {
	var (
		products []models.Product
		invoices []models.Invoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = m.store.ListProducts(gctx)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		invoices, err = m.store.ListInvoices(gctx)
		if err != nil {
			return fmt.Errorf("load invoices: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	m.mu.Lock()
	m.products = products
	m.invoices = invoices
	m.mu.Unlock()
	return nil
}

func (m *Mirror) Products() []models.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append(make([]models.Product, 0, len(m.products)), m.products...)
}

func (m *Mirror) Invoices() []models.Invoice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append(make([]models.Invoice, 0, len(m.invoices)), m.invoices...)
}

func (m *Mirror) ProductCreated(p models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append(m.products, p)
}

func (m *Mirror) ProductUpdated(p models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].Id == p.Id {
			m.products[i] = p
			return
		}
	}
}

func (m *Mirror) ProductDeleted(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.products[:0:0]
	for _, p := range m.products {
		if p.Id != id {
			out = append(out, p)
		}
	}
	m.products = out
}

// InvoiceCreated appends inv and deducts its quantities from the mirrored
// stock, the same deltas the store applied.
func (m *Mirror) InvoiceCreated(inv models.Invoice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices = append(m.invoices, inv)
	for _, d := range StockDeltas(nil, inv.Items) {
		for i := range m.products {
			if m.products[i].Id == d.ProductID {
				m.products[i].Stock += d.Delta
				m.products[i].Version++
			}
		}
	}
}

func (m *Mirror) InvoiceUpdated(ctx context.Context, inv models.Invoice) error {
	products, err := m.store.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("reload products: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = products
	for i := range m.invoices {
		if m.invoices[i].Id == inv.Id {
			m.invoices[i] = inv
			return nil
		}
	}
	m.invoices = append(m.invoices, inv)
	return nil
}

func (m *Mirror) InvoiceDeleted(ctx context.Context, id string) error {
	products, err := m.store.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("reload products: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = products
	out := m.invoices[:0:0]
	for _, inv := range m.invoices {
		if inv.Id != id {
			out = append(out, inv)
		}
	}
	m.invoices = out
	return nil
}

type Dashboard struct {
	ProductCount   int              `json:"product_count"`
	TotalStock     int              `json:"total_stock"`
	InvoiceCount   int              `json:"invoice_count"`
	TotalSales     decimal.Decimal  `json:"total_sales"`
	RecentInvoices []models.Invoice `json:"recent_invoices"`
}

func (m *Mirror) Dashboard() Dashboard {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d := Dashboard{
		ProductCount: len(m.products),
		InvoiceCount: len(m.invoices),
		TotalSales:   decimal.Zero,
	}
	for _, p := range m.products {
		d.TotalStock += p.Stock
	}
	for _, inv := range m.invoices {
		d.TotalSales = d.TotalSales.Add(inv.TotalAmount)
	}

	recent := append([]models.Invoice(nil), m.invoices...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Date.After(recent[j].Date) })
	if len(recent) > recentInvoices {
		recent = recent[:recentInvoices]
	}
	d.RecentInvoices = recent
	return d
}
