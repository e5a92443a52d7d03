package database

import (
	"fmt"

	"pos-backend/models"

	"gorm.io/gorm"
)

// Migrate applies the idempotent schema migrations:
// - AutoMigrate (tables/columns)
// - Indexes on invoice_items
// - Foreign key: invoice_items.product_id → products.id (RESTRICT/RESTRICT)
// - CHECK constraints on money and quantities
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.Product{},
			&models.Invoice{},
			&models.InvoiceItem{},
			&models.User{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_invoice_items_invoice_position ON invoice_items (invoice_id, position)`,
			`CREATE INDEX IF NOT EXISTS idx_invoice_items_product ON invoice_items (product_id)`,
			`CREATE INDEX IF NOT EXISTS idx_invoices_date ON invoices (date)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_keys_key ON idempotency_keys (key)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		fks := []struct{ table, name, def string }{
			{"invoice_items", "fk_invoice_items_product", "FOREIGN KEY (product_id) REFERENCES products(id) ON UPDATE RESTRICT ON DELETE RESTRICT"},
		}
		for _, fk := range fks {
			if err := tx.Exec(addConstraint(fk.table, fk.name, fk.def)).Error; err != nil {
				return fmt.Errorf("foreign key migration failed on %s: %w", fk.name, err)
			}
		}

		checks := []struct{ table, name, def string }{
			{"products", "chk_products_price_positive", "CHECK (price > 0)"},
			{"products", "chk_products_version_positive", "CHECK (version > 0)"},
			{"invoice_items", "chk_invoice_items_quantity_positive", "CHECK (quantity > 0)"},
			{"invoice_items", "chk_invoice_items_discount_nonneg", "CHECK (discount >= 0)"},
			{"invoice_items", "chk_invoice_items_amount_nonneg", "CHECK (amount >= 0)"},
			{"invoices", "chk_invoices_cash_covers_total", "CHECK (cashamount >= totalamount)"},
			{"invoices", "chk_invoices_status", "CHECK (status IN ('" + models.InvoiceCommitted + "', '" + models.InvoiceEdited + "'))"},
		}
		for _, c := range checks {
			if err := tx.Exec(addConstraint(c.table, c.name, c.def)).Error; err != nil {
				return fmt.Errorf("check constraint migration failed on %s: %w", c.name, err)
			}
		}
		return nil
	})
}

// addConstraint wraps ALTER TABLE ... ADD CONSTRAINT so it is a no-op when
// the constraint already exists.
func addConstraint(table, name, def string) string {
	return fmt.Sprintf(`
DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint
		WHERE conrelid = '%[1]s'::regclass
		  AND conname  = '%[2]s'
	) THEN
		ALTER TABLE %[1]s ADD CONSTRAINT %[2]s %[3]s;
	END IF;
END $$;`, table, name, def)
}
