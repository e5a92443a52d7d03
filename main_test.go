package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ReturnsStartupErrors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		err := run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load config")
	})

	t.Run("unreachable postgres", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DB_HOST", "127.0.0.1")
		t.Setenv("DB_PORT", "1")
		t.Setenv("DB_USER", "pos")
		t.Setenv("DB_NAME", "pos")
		err := run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connect to postgres")
	})
}
