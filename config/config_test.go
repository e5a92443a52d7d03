package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_USER", "pos")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "pos")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "A", cfg.InvoiceNumberPrefix)
	assert.Equal(t, 24, cfg.JWTExpirationHours)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "host=db user=pos password=pw dbname=pos port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/pos")
	t.Setenv("RECEIPT_LINES", "Dedicated Economic Center| Wellisara. ||Tel: 0112935473")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "postgres://u:p@localhost/pos", cfg.DSN())
	assert.Equal(t, []string{"Dedicated Economic Center", "Wellisara.", "Tel: 0112935473"}, cfg.ReceiptHeaderLines())
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("STORE_DRIVER", "mongo")
		_, err := Load()
		assert.ErrorContains(t, err, "STORE_DRIVER")
	})
}
