package services

import (
	"context"
	"fmt"

	"pos-backend/billing"
	"pos-backend/models"
	"pos-backend/repository"
	"pos-backend/utils"

	"github.com/shopspring/decimal"
)

// ProductPatch holds the fields of a partial product update; nil fields are
// left unchanged.
type ProductPatch struct {
	Code        *string          `json:"code"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

func (p ProductPatch) applyTo(product models.Product) models.Product {
	if p.Code != nil {
		product.Code = *p.Code
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	return product
}

type ProductService struct {
	store    repository.Store
	notifier Notifier
}

func NewProductService(store repository.Store, notifier Notifier) *ProductService {
	return &ProductService{store: store, notifier: notifier}
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (s *ProductService) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := billing.ValidateProduct(p.Code, p.Description, p.Price, p.Stock); err != nil {
		s.notifier.Notify(ctx, failure("Failed to add product", err))
		return nil, err
	}
	p.Price = utils.Round2(p.Price)
	if err := s.store.CreateProduct(ctx, p); err != nil {
		err = fmt.Errorf("create product: %w", err)
		s.notifier.Notify(ctx, failure("Failed to add product", err))
		return nil, err
	}
	s.notifier.Notify(ctx, success("Product added", "Product has been added to inventory"))
	return p, nil
}

// Update applies patch if the product is still at version. Items already on
// invoices keep the price they were sold at.
func (s *ProductService) Update(ctx context.Context, id string, version int, patch ProductPatch) (*models.Product, error) {
	current, err := s.store.GetProduct(ctx, id)
	if err != nil {
		err = fmt.Errorf("get product %s: %w", id, err)
		s.notifier.Notify(ctx, failure("Failed to update product", err))
		return nil, err
	}
	merged := patch.applyTo(*current)
	if err := billing.ValidateProduct(merged.Code, merged.Description, merged.Price, merged.Stock); err != nil {
		s.notifier.Notify(ctx, failure("Failed to update product", err))
		return nil, err
	}

	updates := utils.UpdatesFromPtrDTO(&patch, nil)
	if price, ok := updates["price"].(decimal.Decimal); ok {
		updates["price"] = utils.Round2(price)
	}
	updated, err := s.store.UpdateProduct(ctx, id, version, updates)
	if err != nil {
		err = fmt.Errorf("update product %s: %w", id, err)
		s.notifier.Notify(ctx, failure("Failed to update product", err))
		return nil, err
	}
	s.notifier.Notify(ctx, success("Product updated", "Product has been updated successfully"))
	return updated, nil
}

// Delete removes a product. Products referenced by an invoice cannot be
// deleted.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		err = fmt.Errorf("delete product %s: %w", id, err)
		s.notifier.Notify(ctx, failure("Failed to delete product", err))
		return err
	}
	s.notifier.Notify(ctx, success("Product deleted", "Product has been removed from inventory"))
	return nil
}
