package ports

import (
	"context"
	"encoding/json"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

type OrderRepository interface {
	// PlaceWithEvents stores the order. A non-empty replayKey is recorded in
	// the same transaction; when it is already taken the order stored under it
	// is returned and nothing is written.
	PlaceWithEvents(ctx context.Context, order domain.Order, lines []domain.OrderLine, replayKey string, meta domain.MutationMetadata) (domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
}
