package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/ports"
)

type CatalogService struct {
	products ports.ProductRepository
}

func NewCatalogService(products ports.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
}

// Browse lists active products, optionally filtered by a name search.
func (s *CatalogService) Browse(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	filter := domain.ProductFilter{
		Status: domain.ProductActive,
		Query:  strings.TrimSpace(query),
		Limit:  clampLimit(limit),
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.products.List(ctx, filter)
}

// Get returns an active product. Inactive products are hidden from the storefront.
func (s *CatalogService) Get(ctx context.Context, id string) (domain.Product, error) {
	if err := domain.ValidateID(id); err != nil {
		return domain.Product{}, err
	}
	product, err := s.products.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if product.Status != domain.ProductActive {
		return domain.Product{}, domain.ErrNotFound
	}
	return product, nil
}

func (s *CatalogService) SellerProducts(ctx context.Context, seller domain.User, limit int) ([]domain.Product, error) {
	if err := requireRole(seller, domain.RoleSeller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.products.List(ctx, domain.ProductFilter{SellerID: seller.ID, Limit: clampLimit(limit)})
}

func (s *CatalogService) CreateProduct(ctx context.Context, seller domain.User, in ProductInput, meta domain.MutationMetadata) (domain.Product, error) {
	if err := requireRole(seller, domain.RoleSeller, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || in.PriceCents < 0 || in.Stock < 0 {
		return domain.Product{}, &domain.ErrPayloadViolation{Errors: []string{"name, non-negative price_cents and stock are required"}}
	}

	now := time.Now().UTC()
	meta.Actor = seller.ID
	return s.products.CreateWithEvents(ctx, domain.Product{
		ID:          uuid.NewString(),
		SellerID:    seller.ID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		Status:      domain.ProductActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, meta)
}

func requireRole(user domain.User, roles ...domain.Role) error {
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}
	return domain.ErrForbidden
}
