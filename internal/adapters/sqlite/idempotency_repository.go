package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/storefront/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

type idempotencyModel struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Payload   string    `gorm:"column:payload;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (idempotencyModel) TableName() string {
	return "idempotency_entries"
}

// IdempotencyRepository stores the first response produced for a client key.
type IdempotencyRepository struct {
	db *gormsqlite.DB
}

func NewIdempotencyRepository(db *gormsqlite.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var model idempotencyModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("key = ?", key).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get idempotency entry: %w", err)
	}
	return json.RawMessage(model.Payload), nil
}

// replayPayload returns the payload stored under key within tx.
func replayPayload(tx *gormsqlite.Tx, key string) (json.RawMessage, bool, error) {
	var model idempotencyModel
	err := tx.Where("key = ?", key).Limit(1).Find(&model).Error
	if err != nil {
		return nil, false, fmt.Errorf("get idempotency entry: %w", err)
	}
	if model.Key == "" {
		return nil, false, nil
	}
	return json.RawMessage(model.Payload), true, nil
}

// keepPayload records payload under key within tx. The writer pool has a
// single connection, so a key checked earlier in the same tx is still free.
func keepPayload(tx *gormsqlite.Tx, key string, payload json.RawMessage, at time.Time) error {
	err := tx.Create(&idempotencyModel{Key: key, Payload: string(payload), CreatedAt: at.UTC()}).Error
	if err != nil {
		return fmt.Errorf("put idempotency entry: %w", err)
	}
	return nil
}
