package controllers

import (
	"pos-backend/middlewares"
	"pos-backend/models"
	"pos-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type productCreateRequest struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// productUpdateRequest is a partial update; version is the one the client
// last read.
type productUpdateRequest struct {
	Version     *int             `json:"version" validate:"required,gte=1"`
	Code        *string          `json:"code"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

func (ctl *Controller) GetProducts(c *fiber.Ctx) error {
	return c.JSON(ctl.mirror.Products())
}

func (ctl *Controller) GetProduct(c *fiber.Ctx) error {
	p, err := ctl.products.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (ctl *Controller) CreateProduct(c *fiber.Ctx) error {
	var req productCreateRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	p, err := ctl.products.Create(c.UserContext(), &models.Product{
		Code:        req.Code,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		return err
	}
	ctl.mirror.ProductCreated(*p)
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (ctl *Controller) UpdateProduct(c *fiber.Ctx) error {
	var req productUpdateRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	p, err := ctl.products.Update(c.UserContext(), c.Params("id"), *req.Version, services.ProductPatch{
		Code:        req.Code,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		return err
	}
	ctl.mirror.ProductUpdated(*p)
	return c.JSON(p)
}

func (ctl *Controller) DeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := ctl.products.Delete(c.UserContext(), id); err != nil {
		return err
	}
	ctl.mirror.ProductDeleted(id)
	return c.JSON(fiber.Map{"message": "success"})
}
