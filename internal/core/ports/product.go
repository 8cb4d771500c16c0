package ports

import (
	"context"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

type ProductRepository interface {
	CreateWithEvents(ctx context.Context, product domain.Product, meta domain.MutationMetadata) (domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	UpdateWithEvents(ctx context.Context, id, eventType string, mutate func(*domain.Product) error, meta domain.MutationMetadata) (domain.Product, error)
	// DeleteWithEvents runs check against the stored product inside the write
	// transaction; a non-nil error aborts the delete.
	DeleteWithEvents(ctx context.Context, id string, check func(domain.Product) error, meta domain.MutationMetadata) (bool, error)
}
