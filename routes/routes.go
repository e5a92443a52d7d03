package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"pos-backend/controllers"
	"pos-backend/middlewares"
	"pos-backend/repository"
)

// Register wires all HTTP routes.
func Register(app *fiber.App, ctl *controllers.Controller, jwt *middlewares.JWT, store repository.Store) {
	api := app.Group("/api")

	// Public endpoints
	api.Get("/health", ctl.Health)
	api.Post("/login", ctl.Login)
	api.Post("/logout", ctl.Logout)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(jwt.Handler())

	// Idempotency guard runs before any handler writes
	protected.Use(middlewares.Idempotency(store))

	// Products
	protected.Get("/products", ctl.GetProducts)
	protected.Post("/products", ctl.CreateProduct)
	protected.Get("/products/:id", ctl.GetProduct)
	protected.Put("/products/:id", ctl.UpdateProduct)
	protected.Delete("/products/:id", ctl.DeleteProduct)

	// Invoices
	protected.Get("/invoices", ctl.GetInvoices)
	protected.Get("/invoices/next-number", ctl.NextInvoiceNumber)
	protected.Post("/invoices/preview", ctl.PreviewInvoice)
	protected.Post("/invoices", ctl.CreateInvoice)
	protected.Get("/invoices/:id", ctl.GetInvoice)
	protected.Get("/invoices/:id/print", ctl.PrintInvoice)
	protected.Put("/invoices/:id", ctl.UpdateInvoice)
	protected.Delete("/invoices/:id", ctl.DeleteInvoice)

	// Dashboard
	protected.Get("/dashboard", ctl.GetDashboard)
	protected.Post("/refresh", ctl.Refresh)

	app.Use(middlewares.NotFound)
}

type AppOptions struct {
	BodyLimitMB     int
	AllowedOrigins  string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// NewApp builds the Fiber app with the global middleware stack and all routes.
func NewApp(o AppOptions, ctl *controllers.Controller, jwt *middlewares.JWT, store repository.Store) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler,
		BodyLimit:    o.BodyLimitMB * 1024 * 1024,
	})

	app.Use(requestid.New())
	app.Use(middlewares.Logger())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     o.AllowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		ExposeHeaders:    "X-Print-Delay-Ms, X-Request-ID",
	}))

	if o.RateLimitMax > 0 {
		// Default KeyGenerator = client IP; default 429 handler is fine.
		app.Use(limiter.New(limiter.Config{
			Max:        o.RateLimitMax,
			Expiration: o.RateLimitWindow,
		}))
	}

	Register(app, ctl, jwt, store)
	return app
}
