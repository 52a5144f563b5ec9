package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/examina/examina-backend/internal/model"
	"github.com/examina/examina-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrProductNotFound is returned for lookups of unknown products.
var ErrProductNotFound = errors.New("product not found")

// ProductDetail is a product together with its purchasable tests.
type ProductDetail struct {
	Product model.Product `json:"product"`
	Tests   []model.Test  `json:"tests"`
}

// CatalogService serves the product and test catalog the exam taker picks
// their bundle from.
type CatalogService struct {
	products *repository.ProductRepository
	tests    *repository.TestRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(products *repository.ProductRepository, tests *repository.TestRepository) *CatalogService {
	return &CatalogService{products: products, tests: tests}
}

// ListProducts returns all products.
func (s *CatalogService) ListProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProduct returns one product with its tests.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetail, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	tests, err := s.tests.ListByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list product tests: %w", err)
	}

	return &ProductDetail{Product: *product, Tests: tests}, nil
}
