package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pos-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps everything in process. Operations are fully serialised:
// a transaction holds the store until it commits or rolls back.
type MemoryStore struct {
	s    *memState
	inTx bool
}

type memState struct {
	txMu sync.Mutex
	mu   sync.Mutex

	products     map[string]models.Product
	productOrder []string
	invoices     map[string]models.Invoice
	invoiceOrder []string
	users        map[string]models.User
	keys         map[string]models.IdempotencyKey
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{s: &memState{
		products: make(map[string]models.Product),
		invoices: make(map[string]models.Invoice),
		users:    make(map[string]models.User),
		keys:     make(map[string]models.IdempotencyKey),
	}}
}

func (m *MemoryStore) lock() func() {
	if m.inTx {
		m.s.mu.Lock()
		return m.s.mu.Unlock
	}
	m.s.txMu.Lock()
	m.s.mu.Lock()
	return func() {
		m.s.mu.Unlock()
		m.s.txMu.Unlock()
	}
}

type memSnapshot struct {
	products     map[string]models.Product
	productOrder []string
	invoices     map[string]models.Invoice
	invoiceOrder []string
	users        map[string]models.User
	keys         map[string]models.IdempotencyKey
}

func (st *memState) snapshot() memSnapshot {
	snap := memSnapshot{
		products:     make(map[string]models.Product, len(st.products)),
		productOrder: append([]string(nil), st.productOrder...),
		invoices:     make(map[string]models.Invoice, len(st.invoices)),
		invoiceOrder: append([]string(nil), st.invoiceOrder...),
		users:        make(map[string]models.User, len(st.users)),
		keys:         make(map[string]models.IdempotencyKey, len(st.keys)),
	}
	for k, v := range st.products {
		snap.products[k] = v
	}
	for k, v := range st.invoices {
		v.Items = append([]models.InvoiceItem(nil), v.Items...)
		snap.invoices[k] = v
	}
	for k, v := range st.users {
		snap.users[k] = v
	}
	for k, v := range st.keys {
		snap.keys[k] = v
	}
	return snap
}

func (st *memState) restore(snap memSnapshot) {
	st.products = snap.products
	st.productOrder = snap.productOrder
	st.invoices = snap.invoices
	st.invoiceOrder = snap.invoiceOrder
	st.users = snap.users
	st.keys = snap.keys
}

func (m *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	m.s.mu.Lock()
	snap := m.s.snapshot()
	m.s.mu.Unlock()

	if err := fn(&MemoryStore{s: m.s, inTx: true}); err != nil {
		m.s.mu.Lock()
		m.s.restore(snap)
		m.s.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	defer m.lock()()
	out := make([]models.Product, 0, len(m.s.productOrder))
	for _, id := range m.s.productOrder {
		out = append(out, m.s.products[id])
	}
	return out, nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	defer m.lock()()
	p, ok := m.s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) GetProductForUpdate(ctx context.Context, id string) (*models.Product, error) {
	return m.GetProduct(ctx, id)
}

func (m *MemoryStore) CreateProduct(ctx context.Context, p *models.Product) error {
	defer m.lock()()
	if p.Id == "" {
		p.Id = uuid.NewString()
	}
	if _, exists := m.s.products[p.Id]; exists {
		return ErrDuplicateKey
	}
	if p.Version == 0 {
		p.Version = 1
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.s.products[p.Id] = *p
	m.s.productOrder = append(m.s.productOrder, p.Id)
	return nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, id string, version int, updates map[string]any) (*models.Product, error) {
	defer m.lock()()
	p, ok := m.s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Version != version {
		return nil, ErrVersionConflict
	}
	for key, value := range updates {
		var typed bool
		switch key {
		case "code":
			p.Code, typed = value.(string)
		case "description":
			p.Description, typed = value.(string)
		case "price":
			p.Price, typed = value.(decimal.Decimal)
		case "stock":
			p.Stock, typed = value.(int)
		}
		if !typed {
			return nil, fmt.Errorf("update product: unsupported field %q (%T)", key, value)
		}
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	m.s.products[id] = p
	return &p, nil
}

func (m *MemoryStore) DeleteProduct(ctx context.Context, id string) error {
	defer m.lock()()
	if _, ok := m.s.products[id]; !ok {
		return ErrNotFound
	}
	for _, inv := range m.s.invoices {
		for _, item := range inv.Items {
			if item.ProductID == id {
				return ErrProductInUse
			}
		}
	}
	delete(m.s.products, id)
	m.s.productOrder = without(m.s.productOrder, id)
	return nil
}

func (m *MemoryStore) AdjustStock(ctx context.Context, id string, delta int) error {
	defer m.lock()()
	p, ok := m.s.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Stock += delta
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	m.s.products[id] = p
	return nil
}

// joined copies a stored invoice and attaches the current product to each item,
// the same shape the SQL join produces.
func (m *MemoryStore) joined(inv models.Invoice) models.Invoice {
	items := make([]models.InvoiceItem, len(inv.Items))
	for i, item := range inv.Items {
		if p, ok := m.s.products[item.ProductID]; ok {
			item.Product = &p
		}
		items[i] = item
	}
	inv.Items = items
	finishInvoice(&inv)
	return inv
}

func (m *MemoryStore) ListInvoices(ctx context.Context) ([]models.Invoice, error) {
	defer m.lock()()
	out := make([]models.Invoice, 0, len(m.s.invoiceOrder))
	for _, id := range m.s.invoiceOrder {
		out = append(out, m.joined(m.s.invoices[id]))
	}
	return out, nil
}

func (m *MemoryStore) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	defer m.lock()()
	inv, ok := m.s.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	joined := m.joined(inv)
	return &joined, nil
}

func (m *MemoryStore) CountInvoices(ctx context.Context) (int64, error) {
	defer m.lock()()
	return int64(len(m.s.invoices)), nil
}

// stored strips the product snapshots and assigns ids, writing the ids back
// to inv like an INSERT ... RETURNING would.
func (m *MemoryStore) stored(inv *models.Invoice) (models.Invoice, error) {
	row := *inv
	row.Items = make([]models.InvoiceItem, len(inv.Items))
	for i := range inv.Items {
		if inv.Items[i].Id == "" {
			inv.Items[i].Id = uuid.NewString()
		}
		inv.Items[i].InvoiceID = inv.Id
		if _, ok := m.s.products[inv.Items[i].ProductID]; !ok {
			return models.Invoice{}, fmt.Errorf("invoice item references product %s: %w", inv.Items[i].ProductID, ErrNotFound)
		}
		item := inv.Items[i]
		item.Product = nil
		row.Items[i] = item
	}
	return row, nil
}

func (m *MemoryStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	defer m.lock()()
	if inv.Id == "" {
		inv.Id = uuid.NewString()
	}
	if _, exists := m.s.invoices[inv.Id]; exists {
		return ErrDuplicateKey
	}
	inv.UpdatedAt = time.Now().UTC()
	row, err := m.stored(inv)
	if err != nil {
		return err
	}
	m.s.invoices[inv.Id] = row
	m.s.invoiceOrder = append(m.s.invoiceOrder, inv.Id)
	return nil
}

func (m *MemoryStore) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	defer m.lock()()
	existing, ok := m.s.invoices[inv.Id]
	if !ok {
		return ErrNotFound
	}
	inv.Date = existing.Date
	inv.UpdatedAt = time.Now().UTC()
	row, err := m.stored(inv)
	if err != nil {
		return err
	}
	m.s.invoices[inv.Id] = row
	return nil
}

func (m *MemoryStore) DeleteInvoice(ctx context.Context, id string) error {
	defer m.lock()()
	if _, ok := m.s.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.invoices, id)
	m.s.invoiceOrder = without(m.s.invoiceOrder, id)
	return nil
}

func (m *MemoryStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	defer m.lock()()
	for _, u := range m.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	defer m.lock()()
	for _, existing := range m.s.users {
		if existing.Username == u.Username {
			return ErrDuplicateKey
		}
	}
	if u.Id == "" {
		u.Id = uuid.NewString()
	}
	m.s.users[u.Id] = *u
	return nil
}

func (m *MemoryStore) FindIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyKey, error) {
	defer m.lock()()
	k, ok := m.s.keys[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &k, nil
}

func (m *MemoryStore) CreateIdempotencyKey(ctx context.Context, k *models.IdempotencyKey) error {
	defer m.lock()()
	if _, exists := m.s.keys[k.Key]; exists {
		return ErrDuplicateKey
	}
	k.ID = uint(len(m.s.keys) + 1)
	k.CreatedAt = time.Now().UTC()
	m.s.keys[k.Key] = *k
	return nil
}

func (m *MemoryStore) CompleteIdempotencyKey(ctx context.Context, key string, status int, body []byte, at time.Time) error {
	defer m.lock()()
	k, ok := m.s.keys[key]
	if !ok {
		return ErrNotFound
	}
	k.ResponseStatus = status
	k.ResponseBody = append([]byte(nil), body...)
	k.CompletedAt = &at
	m.s.keys[key] = k
	return nil
}

func (m *MemoryStore) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	defer m.lock()()
	if k, ok := m.s.keys[key]; ok && k.ResponseStatus == 0 {
		delete(m.s.keys, key)
	}
	return nil
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
