package services

import (
	"context"
	"testing"
	"time"

	"pos-backend/models"
	"pos-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirror_FollowsStore(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	invoices := NewInvoiceService(store, &recordingNotifier{}, "A")
	p := seedProduct(t, store, "p-8nd", "8-ND", "100", 10)

	m := NewMirror(store)
	require.NoError(t, m.Load(ctx))
	require.Len(t, m.Products(), 1)
	assert.Empty(t, m.Invoices())

	created, err := invoices.Create(ctx, InvoiceInput{Lines: []LineInput{{ProductID: p.Id, Quantity: 2, Discount: dec("5")}}})
	require.NoError(t, err)
	m.InvoiceCreated(*created)

	stored, err := store.GetProduct(ctx, p.Id)
	require.NoError(t, err)
	mirrored := m.Products()[0]
	assert.Equal(t, stored.Stock, mirrored.Stock, "local recompute matches the store")
	assert.Equal(t, stored.Version, mirrored.Version)
	require.Len(t, m.Invoices(), 1)

	updated, err := invoices.Update(ctx, created.Id, InvoiceInput{
		Lines: []LineInput{{ProductID: p.Id, Quantity: 3, Discount: dec("5")}},
		Cash:  decPtr("295"),
	})
	require.NoError(t, err)
	require.NoError(t, m.InvoiceUpdated(ctx, *updated))
	assert.Equal(t, 7, m.Products()[0].Stock)
	assert.Equal(t, "295.00", m.Invoices()[0].TotalAmount.StringFixed(2))

	_, err = invoices.Delete(ctx, created.Id)
	require.NoError(t, err)
	require.NoError(t, m.InvoiceDeleted(ctx, created.Id))
	assert.Equal(t, 10, m.Products()[0].Stock)
	assert.Empty(t, m.Invoices())
}

func TestMirror_ProductPatches(t *testing.T) {
	m := NewMirror(repository.NewMemoryStore())
	m.ProductCreated(models.Product{Id: "a", Code: "A", Stock: 1})
	m.ProductCreated(models.Product{Id: "b", Code: "B", Stock: 2})
	m.ProductUpdated(models.Product{Id: "a", Code: "A2", Stock: 5})
	m.ProductDeleted("b")

	products := m.Products()
	require.Len(t, products, 1)
	assert.Equal(t, "A2", products[0].Code)

	products[0].Code = "mutated"
	assert.Equal(t, "A2", m.Products()[0].Code, "readers get copies")
}

func TestMirror_Dashboard(t *testing.T) {
	m := NewMirror(repository.NewMemoryStore())
	m.ProductCreated(models.Product{Id: "a", Stock: 3})
	m.ProductCreated(models.Product{Id: "b", Stock: 4})

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		m.InvoiceCreated(models.Invoice{
			Id:          string(rune('a' + i)),
			Date:        base.Add(time.Duration(i) * time.Hour),
			TotalAmount: dec("10.50"),
		})
	}

	d := m.Dashboard()
	assert.Equal(t, 2, d.ProductCount)
	assert.Equal(t, 7, d.TotalStock)
	assert.Equal(t, 7, d.InvoiceCount)
	assert.Equal(t, "73.50", d.TotalSales.StringFixed(2))
	require.Len(t, d.RecentInvoices, 5)
	assert.Equal(t, "g", d.RecentInvoices[0].Id, "newest first")
	assert.Equal(t, "c", d.RecentInvoices[4].Id)
}
