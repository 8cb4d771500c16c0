package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/ports"
)

const maxOrderLines = 50

type OrderService struct {
	orders      ports.OrderRepository
	idempotency ports.IdempotencyRepository
}

func NewOrderService(orders ports.OrderRepository, idempotency ports.IdempotencyRepository) *OrderService {
	return &OrderService{orders: orders, idempotency: idempotency}
}

// Place creates an order for customer. When idempotencyKey is set, a replay of
// the same key returns the originally stored order without touching stock,
// including when both requests arrive at once.
func (s *OrderService) Place(ctx context.Context, customer domain.User, lines []domain.OrderLine, idempotencyKey string, meta domain.MutationMetadata) (domain.Order, error) {
	if err := requireRole(customer, domain.RoleCustomer, domain.RoleSeller, domain.RoleAdmin); err != nil {
		return domain.Order{}, err
	}
	if len(lines) == 0 || len(lines) > maxOrderLines {
		return domain.Order{}, &domain.ErrPayloadViolation{Errors: []string{fmt.Sprintf("order must contain between 1 and %d lines", maxOrderLines)}}
	}
	for _, line := range lines {
		if err := domain.ValidateID(line.ProductID); err != nil {
			return domain.Order{}, err
		}
		if line.Quantity <= 0 {
			return domain.Order{}, &domain.ErrPayloadViolation{Errors: []string{"quantity must be positive"}}
		}
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	storeKey := ""
	if idempotencyKey != "" {
		storeKey = orderIdempotencyKey(customer.ID, idempotencyKey)
		// Fast path; the repository rechecks inside the write transaction.
		if cached, ok := s.readIdempotentOrder(ctx, storeKey); ok {
			return cached, nil
		}
	}

	meta.Actor = customer.ID
	meta.IdempotencyKey = idempotencyKey
	return s.orders.PlaceWithEvents(ctx, domain.Order{
		ID:         uuid.NewString(),
		CustomerID: customer.ID,
		Status:     domain.OrderPlaced,
		CreatedAt:  time.Now().UTC(),
	}, lines, storeKey, meta)
}

func (s *OrderService) ListMine(ctx context.Context, customer domain.User, limit int) ([]domain.Order, error) {
	return s.orders.ListByCustomer(ctx, customer.ID, clampLimit(limit))
}

func orderIdempotencyKey(customerID, token string) string {
	return "idempotency/orders/" + customerID + "/" + token
}

func (s *OrderService) readIdempotentOrder(ctx context.Context, key string) (domain.Order, bool) {
	payload, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return domain.Order{}, false
	}
	var order domain.Order
	if err := json.Unmarshal(payload, &order); err != nil {
		return domain.Order{}, false
	}
	return order, true
}
