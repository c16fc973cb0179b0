package services

import (
	"context"
	"storefront/models"

	"go.uber.org/zap"
)

type ProductSource interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int) (*models.Product, error)
}

type ProductService struct {
	source ProductSource
	logger *zap.Logger
}

func NewProductService(source ProductSource, logger *zap.Logger) *ProductService {
	return &ProductService{source: source, logger: logger}
}

// GetAllProducts never fails: an unreachable catalogue yields an empty list
// so product pages still render.
func (s *ProductService) GetAllProducts(ctx context.Context) []models.Product {
	products, err := s.source.GetProducts(ctx)
	if err != nil {
		s.logger.Error("failed to fetch products", zap.Error(err))
		return []models.Product{}
	}
	return products
}

func (s *ProductService) GetProductByID(ctx context.Context, id int) (*models.Product, error) {
	return s.source.GetProduct(ctx, id)
}

// AddProductToCart looks the product up in the catalogue so cart lines carry
// authoritative name and price.
func (s *ProductService) AddProductToCart(ctx context.Context, cart *CartStore, id int) (*models.Product, error) {
	product, err := s.source.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := cart.AddToCart(ctx, product.CartInput()); err != nil {
		return nil, err
	}
	return product, nil
}
