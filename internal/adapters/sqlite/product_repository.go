package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/storefront/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

type ProductRepository struct {
	db *gormsqlite.DB
}

func NewProductRepository(db *gormsqlite.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) CreateWithEvents(ctx context.Context, product domain.Product, meta domain.MutationMetadata) (domain.Product, error) {
	meta = meta.Normalize()
	model := fromProductDomain(product)
	model.CreatedAt = model.CreatedAt.UTC()
	model.UpdatedAt = model.UpdatedAt.UTC()

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		_, err := recordChange(tx.DB, change{
			AggregateType: domain.AggregateProduct,
			AggregateID:   model.ID,
			EventType:     domain.EventProductCreated,
			After:         snapshotProduct(toProductDomain(model)),
		}, meta)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}
	return toProductDomain(model), nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	var model productModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, domain.ErrNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return toProductDomain(model), nil
}

func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	var models []productModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&productModel{})
		if filter.SellerID != "" {
			query = query.Where("seller_id = ?", filter.SellerID)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", string(filter.Status))
		}
		if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
			query = query.Where("lower(name) LIKE ?", "%"+q+"%")
		}
		return query.Order("created_at ASC, id ASC").Limit(filter.Limit).Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]domain.Product, 0, len(models))
	for _, model := range models {
		products = append(products, toProductDomain(model))
	}
	return products, nil
}

func (r *ProductRepository) UpdateWithEvents(ctx context.Context, id, eventType string, mutate func(*domain.Product) error, meta domain.MutationMetadata) (domain.Product, error) {
	meta = meta.Normalize()
	var out domain.Product

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model productModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load product: %w", err)
		}
		before := toProductDomain(model)
		after := before
		if err := mutate(&after); err != nil {
			return err
		}
		out = after
		if snapshotProduct(before) == snapshotProduct(after) {
			return nil
		}

		after.UpdatedAt = meta.OccurredAt.UTC()
		updated := fromProductDomain(after)
		if err := tx.Model(&productModel{}).Where("id = ?", id).Updates(map[string]any{
			"name":        updated.Name,
			"description": updated.Description,
			"price_cents": updated.PriceCents,
			"stock":       updated.Stock,
			"status":      updated.Status,
			"updated_at":  updated.UpdatedAt,
		}).Error; err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		out = after

		_, err := recordChange(tx.DB, change{
			AggregateType: domain.AggregateProduct,
			AggregateID:   id,
			EventType:     eventType,
			Before:        snapshotProduct(before),
			After:         snapshotProduct(after),
		}, meta)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}
	return out, nil
}

// DeleteWithEvents removes the product. A missing product reports false
// without error.
func (r *ProductRepository) DeleteWithEvents(ctx context.Context, id string, check func(domain.Product) error, meta domain.MutationMetadata) (bool, error) {
	meta = meta.Normalize()
	deleted := false

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model productModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load product: %w", err)
		}
		before := toProductDomain(model)
		if check != nil {
			if err := check(before); err != nil {
				return err
			}
		}

		res := tx.Where("id = ?", id).Delete(&productModel{})
		if res.Error != nil {
			return fmt.Errorf("delete product: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		if !deleted {
			return nil
		}

		_, err := recordChange(tx.DB, change{
			AggregateType: domain.AggregateProduct,
			AggregateID:   id,
			EventType:     domain.EventProductDeleted,
			Before:        snapshotProduct(before),
			Payload:       map[string]string{"id": id, "seller_id": before.SellerID},
		}, meta)
		return err
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
