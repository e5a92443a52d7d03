package middlewares

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whoAmI(j *JWT) *fiber.App {
	app := fiber.New()
	app.Get("/me", j.Handler(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": c.Locals("userID"), "username": c.Locals("username")})
	})
	return app
}

func TestJWT_RoundTrip(t *testing.T) {
	j := NewJWT("s3cret", time.Hour)
	token, expires, err := j.Generate("u-1", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := whoAmI(j).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWT_Rejections(t *testing.T) {
	j := NewJWT("s3cret", time.Hour)
	foreign, _, err := NewJWT("other", time.Hour).Generate("u-1", "admin")
	require.NoError(t, err)
	expired, _, err := NewJWT("s3cret", -time.Minute).Generate("u-1", "admin")
	require.NoError(t, err)
	noSubject, _, err := j.Generate("", "admin")
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty token", "Bearer "},
		{"wrong secret", "Bearer " + foreign},
		{"expired", "Bearer " + expired},
		{"no subject", "Bearer " + noSubject},
		{"alg none", "Bearer " + none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := whoAmI(j).Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestJWT_GenerateWithoutSecret(t *testing.T) {
	_, _, err := NewJWT("", time.Hour).Generate("u-1", "admin")
	assert.Error(t, err)
}
