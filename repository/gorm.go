package repository

import (
	"context"
	"errors"
	"time"

	"pos-backend/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the Postgres-backed Store.
type GormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrProductInUse
	}
	return err
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Items.Product")
}

func (s *GormStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&products).Error
	return products, translate(err)
}

func (s *GormStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) GetProductForUpdate(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) CreateProduct(ctx context.Context, p *models.Product) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *GormStore) UpdateProduct(ctx context.Context, id string, version int, updates map[string]any) (*models.Product, error) {
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = gorm.Expr("version + 1")

	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND version = ?", id, version).
		Updates(values)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetProduct(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrVersionConflict
	}
	return s.GetProduct(ctx, id)
}

func (s *GormStore) DeleteProduct(ctx context.Context, id string) error {
	var refs int64
	if err := s.db.WithContext(ctx).Model(&models.InvoiceItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
		return translate(err)
	}
	if refs > 0 {
		return ErrProductInUse
	}
	res := s.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock does the arithmetic in the database so it always applies to the
// current row, never to a value read earlier.
func (s *GormStore) AdjustStock(ctx context.Context, id string, delta int) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock":   gorm.Expr("stock + ?", delta),
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListInvoices(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := withItems(s.db.WithContext(ctx)).Order("date ASC").Find(&invoices).Error; err != nil {
		return nil, translate(err)
	}
	for i := range invoices {
		finishInvoice(&invoices[i])
	}
	return invoices, nil
}

func (s *GormStore) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := withItems(s.db.WithContext(ctx)).First(&inv, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	finishInvoice(&inv)
	return &inv, nil
}

func (s *GormStore) CountInvoices(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).Count(&n).Error
	return n, translate(err)
}

func (s *GormStore) insertItems(tx *gorm.DB, invoiceID string, items []models.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].InvoiceID = invoiceID
	}
	// Product on an item is a snapshot for display; never write it back.
	return tx.Omit("Product").Create(&items).Error
}

func (s *GormStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(inv).Error; err != nil {
			return err
		}
		return s.insertItems(tx, inv.Id, inv.Items)
	})
	return translate(err)
}

func (s *GormStore) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invoice{}).Where("id = ?", inv.Id).Updates(map[string]any{
			"invoicenumber": inv.InvoiceNumber,
			"customername":  inv.CustomerName,
			"totalamount":   inv.TotalAmount,
			"cashamount":    inv.CashAmount,
			"balanceamount": inv.BalanceAmount,
			"status":        inv.Status,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("invoice_id = ?", inv.Id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return s.insertItems(tx, inv.Id, inv.Items)
	})
	return translate(err)
}

func (s *GormStore) DeleteInvoice(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Invoice{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return translate(err)
}

func (s *GormStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error)
}

func (s *GormStore) FindIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyKey, error) {
	var k models.IdempotencyKey
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&k).Error; err != nil {
		return nil, translate(err)
	}
	return &k, nil
}

func (s *GormStore) CreateIdempotencyKey(ctx context.Context, k *models.IdempotencyKey) error {
	return translate(s.db.WithContext(ctx).Create(k).Error)
}

func (s *GormStore) CompleteIdempotencyKey(ctx context.Context, key string, status int, body []byte, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.IdempotencyKey{}).
		Where("key = ?", key).
		Updates(map[string]any{
			"response_status": status,
			"response_body":   datatypes.JSON(body),
			"completed_at":    &at,
		}).Error
	return translate(err)
}

func (s *GormStore) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).
		Where("key = ? AND response_status = 0", key).
		Delete(&models.IdempotencyKey{}).Error
	return translate(err)
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
