package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/storefront/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

type UserRepository struct {
	db *gormsqlite.DB
}

func NewUserRepository(db *gormsqlite.DB) *UserRepository {
	return &UserRepository{db: db}
}

type verificationPayload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

func (r *UserRepository) Register(ctx context.Context, user domain.User, token domain.VerificationToken, rawToken string, meta domain.MutationMetadata) (domain.User, error) {
	meta = meta.Normalize()
	model := fromUserDomain(user)
	model.CreatedAt = model.CreatedAt.UTC()
	model.UpdatedAt = model.UpdatedAt.UTC()

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var taken int64
		if err := tx.Model(&userModel{}).Where("email = ?", model.Email).Count(&taken).Error; err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken > 0 {
			return domain.ErrEmailTaken
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		registered, err := recordChange(tx.DB, change{
			AggregateType: domain.AggregateUser,
			AggregateID:   model.ID,
			EventType:     domain.EventUserRegistered,
			After:         snapshotUser(toUserDomain(model)),
		}, meta)
		if err != nil {
			return err
		}

		if token.TokenHash == "" {
			return nil
		}
		if err := tx.Create(&verificationTokenModel{
			TokenHash: token.TokenHash,
			UserID:    model.ID,
			ExpiresAt: token.ExpiresAt.UTC(),
		}).Error; err != nil {
			return fmt.Errorf("insert verification token: %w", err)
		}
		envelope, err := newEnvelope(domain.AggregateUser, model.ID, domain.EventUserVerificationIssued, registered.AggregateVersion, verificationPayload{
			UserID: model.ID,
			Email:  model.Email,
			Name:   model.Name,
			Token:  rawToken,
		}, meta)
		if err != nil {
			return err
		}
		return enqueueOutbox(tx.DB, envelope)
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUserDomain(model), nil
}

func (r *UserRepository) Verify(ctx context.Context, tokenHash string, now time.Time, meta domain.MutationMetadata) (domain.User, error) {
	meta = meta.Normalize()
	now = now.UTC()
	var out domain.User

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var token verificationTokenModel
		if err := tx.Where("token_hash = ? AND used_at IS NULL", tokenHash).First(&token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("find verification token: %w", err)
		}
		if !now.Before(token.ExpiresAt) {
			return domain.ErrTokenExpired
		}

		var model userModel
		if err := tx.Where("id = ?", token.UserID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}
		before := toUserDomain(model)

		model.EmailVerified = true
		model.UpdatedAt = now
		if err := tx.Model(&userModel{}).Where("id = ?", model.ID).
			Updates(map[string]any{"email_verified": true, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("mark user verified: %w", err)
		}
		if err := tx.Model(&verificationTokenModel{}).Where("token_hash = ?", tokenHash).
			Update("used_at", &now).Error; err != nil {
			return fmt.Errorf("consume verification token: %w", err)
		}

		out = toUserDomain(model)
		if meta.Actor == "system" {
			meta.Actor = out.ID
		}
		_, err := recordChange(tx.DB, change{
			AggregateType: domain.AggregateUser,
			AggregateID:   out.ID,
			EventType:     domain.EventUserVerified,
			Before:        snapshotUser(before),
			After:         snapshotUser(out),
		}, meta)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return out, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (domain.User, error) {
	var model userModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where(where, arg).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return toUserDomain(model), nil
}

func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	var models []userModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&userModel{})
		if filter.Role != "" {
			query = query.Where("role = ?", string(filter.Role))
		}
		if filter.Status != "" {
			query = query.Where("status = ?", string(filter.Status))
		}
		if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
			like := "%" + q + "%"
			query = query.Where("lower(email) LIKE ? OR lower(name) LIKE ?", like, like)
		}
		return query.Order("created_at ASC, id ASC").Limit(filter.Limit).Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.User, 0, len(models))
	for _, model := range models {
		users = append(users, toUserDomain(model))
	}
	return users, nil
}

// UpdateWithEvents applies mutate to the stored user and records the change. A
// mutation that leaves the user unchanged writes no audit or outbox rows.
func (r *UserRepository) UpdateWithEvents(ctx context.Context, id, eventType string, mutate func(*domain.User) error, meta domain.MutationMetadata) (domain.User, error) {
	meta = meta.Normalize()
	var out domain.User

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model userModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}
		before := toUserDomain(model)
		after := before
		if err := mutate(&after); err != nil {
			return err
		}
		out = after
		if snapshotUser(before) == snapshotUser(after) {
			return nil
		}

		after.UpdatedAt = meta.OccurredAt.UTC()
		updated := fromUserDomain(after)
		if err := tx.Model(&userModel{}).Where("id = ?", id).Updates(map[string]any{
			"name":           updated.Name,
			"role":           updated.Role,
			"status":         updated.Status,
			"email_verified": updated.EmailVerified,
			"updated_at":     updated.UpdatedAt,
		}).Error; err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		out = after

		_, err := recordChange(tx.DB, change{
			AggregateType: domain.AggregateUser,
			AggregateID:   id,
			EventType:     eventType,
			Before:        snapshotUser(before),
			After:         snapshotUser(after),
		}, meta)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return out, nil
}
