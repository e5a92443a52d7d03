package controllers

import (
	"time"

	"pos-backend/middlewares"
	"pos-backend/printing"
	"pos-backend/repository"
	"pos-backend/services"
)

// Controller holds the dependencies shared by all HTTP handlers.
type Controller struct {
	store      repository.Store
	products   *services.ProductService
	invoices   *services.InvoiceService
	mirror     *services.Mirror
	jwt        *middlewares.JWT
	receipt    printing.Header
	printDelay time.Duration
}

type Options struct {
	Store      repository.Store
	Products   *services.ProductService
	Invoices   *services.InvoiceService
	Mirror     *services.Mirror
	JWT        *middlewares.JWT
	Receipt    printing.Header
	PrintDelay time.Duration
}

func New(o Options) *Controller {
	return &Controller{
		store:      o.Store,
		products:   o.Products,
		invoices:   o.Invoices,
		mirror:     o.Mirror,
		jwt:        o.JWT,
		receipt:    o.Receipt,
		printDelay: o.PrintDelay,
	}
}
