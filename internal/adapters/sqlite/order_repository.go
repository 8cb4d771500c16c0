package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/storefront/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

type OrderRepository struct {
	db *gormsqlite.DB
}

func NewOrderRepository(db *gormsqlite.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

type orderSnapshot struct {
	ID         string             `json:"id"`
	CustomerID string             `json:"customer_id"`
	TotalCents int64              `json:"total_cents"`
	Status     string             `json:"status"`
	Items      []orderItemPayload `json:"items"`
}

type orderItemPayload struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// PlaceWithEvents prices the lines against active products, decrements stock
// and stores the order in one write transaction. The replay key is checked and
// recorded in that same transaction.
func (r *OrderRepository) PlaceWithEvents(ctx context.Context, order domain.Order, lines []domain.OrderLine, replayKey string, meta domain.MutationMetadata) (domain.Order, error) {
	meta = meta.Normalize()
	order.CreatedAt = order.CreatedAt.UTC()
	order.Items = nil
	order.TotalCents = 0

	var replayed *domain.Order
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if replayKey != "" {
			payload, ok, err := replayPayload(tx, replayKey)
			if err != nil {
				return err
			}
			if ok {
				var stored domain.Order
				if err := json.Unmarshal(payload, &stored); err != nil {
					return fmt.Errorf("decode replayed order: %w", err)
				}
				replayed = &stored
				return nil
			}
		}

		for _, line := range lines {
			var product productModel
			if err := tx.Where("id = ?", line.ProductID).First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", domain.ErrProductUnavailable, line.ProductID)
				}
				return fmt.Errorf("load product: %w", err)
			}
			if product.Status != string(domain.ProductActive) {
				return fmt.Errorf("%w: %s", domain.ErrProductUnavailable, line.ProductID)
			}

			res := tx.Model(&productModel{}).
				Where("id = ? AND stock >= ?", product.ID, line.Quantity).
				Updates(map[string]any{
					"stock":      gorm.Expr("stock - ?", line.Quantity),
					"updated_at": meta.OccurredAt.UTC(),
				})
			if res.Error != nil {
				return fmt.Errorf("reserve stock: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", domain.ErrInsufficientStock, line.ProductID)
			}

			order.Items = append(order.Items, domain.OrderItem{
				ProductID:      product.ID,
				Quantity:       line.Quantity,
				UnitPriceCents: product.PriceCents,
			})
			order.TotalCents += product.PriceCents * int64(line.Quantity)
		}

		if err := tx.Create(&orderModel{
			ID:         order.ID,
			CustomerID: order.CustomerID,
			TotalCents: order.TotalCents,
			Status:     order.Status,
			CreatedAt:  order.CreatedAt,
		}).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, item := range order.Items {
			if err := tx.Create(&orderItemModel{
				OrderID:        order.ID,
				ProductID:      item.ProductID,
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
			}).Error; err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		if _, err := recordChange(tx.DB, change{
			AggregateType: domain.AggregateOrder,
			AggregateID:   order.ID,
			EventType:     domain.EventOrderPlaced,
			After:         snapshotOrder(order),
		}, meta); err != nil {
			return err
		}
		if replayKey == "" {
			return nil
		}
		payload, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("encode order for replay: %w", err)
		}
		return keepPayload(tx, replayKey, payload, meta.OccurredAt)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if replayed != nil {
		return *replayed, nil
	}
	return order, nil
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	var orders []orderModel
	var items []orderItemModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Where("customer_id = ?", customerID).
			Order("created_at DESC, id ASC").
			Limit(limit).
			Find(&orders).Error; err != nil {
			return err
		}
		if len(orders) == 0 {
			return nil
		}
		ids := make([]string, 0, len(orders))
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
		return tx.Where("order_id IN ?", ids).Order("id ASC").Find(&items).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	byOrder := make(map[string][]domain.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], domain.OrderItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	result := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		result = append(result, domain.Order{
			ID:         o.ID,
			CustomerID: o.CustomerID,
			Items:      byOrder[o.ID],
			TotalCents: o.TotalCents,
			Status:     o.Status,
			CreatedAt:  o.CreatedAt,
		})
	}
	return result, nil
}

func snapshotOrder(o domain.Order) orderSnapshot {
	items := make([]orderItemPayload, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemPayload{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return orderSnapshot{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		TotalCents: o.TotalCents,
		Status:     o.Status,
		Items:      items,
	}
}
