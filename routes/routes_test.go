package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos-backend/controllers"
	"pos-backend/middlewares"
	"pos-backend/printing"
	"pos-backend/repository"
	"pos-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t     *testing.T
	app   *fiber.App
	store repository.Store
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	require.NoError(t, controllers.EnsureAdmin(ctx, store, "admin", "secret"))

	notifier := services.LogNotifier{}
	mirror := services.NewMirror(store)
	require.NoError(t, mirror.Load(ctx))
	jwt := middlewares.NewJWT("test-secret", time.Hour)
	ctl := controllers.New(controllers.Options{
		Store:      store,
		Products:   services.NewProductService(store, notifier),
		Invoices:   services.NewInvoiceService(store, notifier, "A"),
		Mirror:     mirror,
		JWT:        jwt,
		Receipt:    printing.Header{Name: "SUN TRADERS", Lines: []string{"Main Street"}},
		PrintDelay: 500 * time.Millisecond,
	})
	app := NewApp(AppOptions{BodyLimitMB: 4, AllowedOrigins: "*"}, ctl, jwt, store)

	s := &testServer{t: t, app: app, store: store}
	resp, body := s.do(http.MethodPost, "/api/login", map[string]string{"username": "admin", "password": "secret"}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotEmpty(t, login.Token)
	s.token = login.Token
	return s
}

func (s *testServer) do(method, path string, payload any, headers map[string]string) (*http.Response, []byte) {
	s.t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if s.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+s.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp, body
}

func (s *testServer) decode(body []byte, out any) {
	s.t.Helper()
	require.NoError(s.t, json.Unmarshal(body, out), string(body))
}

type productJSON struct {
	Id      string `json:"id"`
	Code    string `json:"code"`
	Price   string `json:"price"`
	Stock   int    `json:"stock"`
	Version int    `json:"version"`
}

type invoiceJSON struct {
	Id            string `json:"id"`
	InvoiceNumber string `json:"invoice_number"`
	Status        string `json:"status"`
	TotalAmount   string `json:"total_amount"`
	CashAmount    string `json:"cash_amount"`
	BalanceAmount string `json:"balance_amount"`
	Items         []struct {
		Id        string `json:"id"`
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
		Amount    string `json:"amount"`
	} `json:"items"`
}

func (s *testServer) createProduct(code string, price string, stock int) productJSON {
	s.t.Helper()
	resp, body := s.do(http.MethodPost, "/api/products", map[string]any{
		"code": code, "description": code + " item", "price": price, "stock": stock,
	}, nil)
	require.Equal(s.t, fiber.StatusCreated, resp.StatusCode, string(body))
	var p productJSON
	s.decode(body, &p)
	return p
}

func (s *testServer) product(id string) productJSON {
	s.t.Helper()
	resp, body := s.do(http.MethodGet, "/api/products/"+id, nil, nil)
	require.Equal(s.t, fiber.StatusOK, resp.StatusCode, string(body))
	var p productJSON
	s.decode(body, &p)
	return p
}

func TestRoutes_PublicAndUnknown(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	resp, body = s.do(http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"message":"page not found"}`, string(body))

	s.token = ""
	resp, _ = s.do(http.MethodGet, "/api/products", nil, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body = s.do(http.MethodPost, "/api/login", map[string]string{"username": "admin", "password": "wrong"}, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"message":"invalid credentials"}`, string(body))
}

func TestRoutes_InvoiceLifecycleMovesStock(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct("8-ND", "100", 10)

	resp, body := s.do(http.MethodGet, "/api/invoices/next-number", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"invoice_number":"A001"}`, string(body))

	resp, body = s.do(http.MethodPost, "/api/invoices", map[string]any{
		"customer_name": "Walk-in",
		"items":         []map[string]any{{"product_id": p.Id, "quantity": 2, "discount": "5"}},
	}, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var inv invoiceJSON
	s.decode(body, &inv)
	assert.Equal(t, "A001", inv.InvoiceNumber)
	assert.Equal(t, "committed", inv.Status)
	assert.Equal(t, "195", inv.TotalAmount)
	assert.Equal(t, "0", inv.BalanceAmount)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 8, s.product(p.Id).Stock)

	resp, body = s.do(http.MethodPut, "/api/invoices/"+inv.Id, map[string]any{
		"customer_name": "Walk-in",
		"items":         []map[string]any{{"product_id": p.Id, "quantity": 3, "discount": "5"}},
		"cash_amount":   "300",
	}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var edited invoiceJSON
	s.decode(body, &edited)
	assert.Equal(t, "edited", edited.Status)
	assert.Equal(t, "A001", edited.InvoiceNumber)
	assert.Equal(t, 7, s.product(p.Id).Stock)

	resp, body = s.do(http.MethodGet, "/api/invoices", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list []invoiceJSON
	s.decode(body, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "edited", list[0].Status)

	resp, _ = s.do(http.MethodDelete, "/api/invoices/"+inv.Id, nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, s.product(p.Id).Stock)

	resp, _ = s.do(http.MethodGet, "/api/invoices/"+inv.Id, nil, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRoutes_InvoiceRejections(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct("8-ND", "100", 10)

	resp, body := s.do(http.MethodPost, "/api/invoices", map[string]any{
		"items":       []map[string]any{{"product_id": p.Id, "quantity": 2, "discount": "5"}},
		"cash_amount": "150",
	}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "195.00")

	resp, _ = s.do(http.MethodPost, "/api/invoices", map[string]any{
		"items": []map[string]any{{"product_id": p.Id, "quantity": 11}},
	}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, body = s.do(http.MethodPost, "/api/invoices", map[string]any{
		"items": []map[string]any{{"quantity": 1}},
	}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "validation failed")

	assert.Equal(t, 10, s.product(p.Id).Stock)
	resp, body = s.do(http.MethodGet, "/api/invoices", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestRoutes_ProductConflicts(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct("8-ND", "100", 10)
	assert.Equal(t, 1, p.Version)

	resp, body := s.do(http.MethodPut, "/api/products/"+p.Id, map[string]any{"version": 1, "price": "120"}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var updated productJSON
	s.decode(body, &updated)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "120", updated.Price)

	resp, _ = s.do(http.MethodPut, "/api/products/"+p.Id, map[string]any{"version": 1, "stock": 3}, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = s.do(http.MethodPut, "/api/products/"+p.Id, map[string]any{"price": "130"}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, "/api/invoices", map[string]any{
		"items": []map[string]any{{"product_id": p.Id, "quantity": 1}},
	}, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, _ = s.do(http.MethodDelete, "/api/products/"+p.Id, nil, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/api/products/missing", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRoutes_IdempotentCreateReplays(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct("8-ND", "100", 10)
	payload := map[string]any{"items": []map[string]any{{"product_id": p.Id, "quantity": 2}}}
	key := map[string]string{"Idempotency-Key": "till-1-0001"}

	resp, first := s.do(http.MethodPost, "/api/invoices", payload, key)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(first))

	resp, replay := s.do(http.MethodPost, "/api/invoices", payload, key)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("Idempotent-Replayed"))
	assert.JSONEq(t, string(first), string(replay))
	assert.Equal(t, 8, s.product(p.Id).Stock)

	other := map[string]any{"items": []map[string]any{{"product_id": p.Id, "quantity": 1}}}
	resp, _ = s.do(http.MethodPost, "/api/invoices", other, key)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestRoutes_PreviewPrintAndDashboard(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct("8-ND", "100", 10)

	resp, body := s.do(http.MethodPost, "/api/invoices/preview", map[string]any{
		"items":       []map[string]any{{"product_id": p.Id, "quantity": 2, "discount": "5"}},
		"cash_amount": "150",
	}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var preview struct {
		Total     string `json:"total_amount"`
		CashError string `json:"cash_error"`
	}
	s.decode(body, &preview)
	assert.Equal(t, "195", preview.Total)
	assert.Equal(t, "cash amount must be at least 195.00", preview.CashError)
	assert.Equal(t, 10, s.product(p.Id).Stock)

	resp, body = s.do(http.MethodPost, "/api/invoices", map[string]any{
		"items": []map[string]any{{"product_id": p.Id, "quantity": 2, "discount": "5"}},
	}, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var inv invoiceJSON
	s.decode(body, &inv)

	resp, body = s.do(http.MethodGet, "/api/invoices/"+inv.Id+"/print", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, "500", resp.Header.Get("X-Print-Delay-Ms"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))

	resp, body = s.do(http.MethodGet, "/api/dashboard", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var dash struct {
		ProductCount int    `json:"product_count"`
		TotalStock   int    `json:"total_stock"`
		InvoiceCount int    `json:"invoice_count"`
		TotalSales   string `json:"total_sales"`
	}
	s.decode(body, &dash)
	assert.Equal(t, 1, dash.ProductCount)
	assert.Equal(t, 8, dash.TotalStock)
	assert.Equal(t, 1, dash.InvoiceCount)
	assert.Equal(t, "195", dash.TotalSales)

	resp, _ = s.do(http.MethodPost, "/api/refresh", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRoutes_QuantityIsBounded(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct("8-ND", "100", 10)

	resp, body := s.do(http.MethodPost, "/api/invoices", map[string]any{
		"items": []map[string]any{
			{"product_id": p.Id, "quantity": 1},
			{"product_id": p.Id, "quantity": math.MaxInt},
		},
	}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode, string(body))
	assert.Equal(t, 10, s.product(p.Id).Stock)
}

func TestRoutes_LogoutIsStateless(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(http.MethodPost, "/api/logout", nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"success"}`, string(body))
	assert.Empty(t, resp.Header.Get(fiber.HeaderSetCookie))
}
