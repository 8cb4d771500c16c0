package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/ports"
)

// ModerationService owns every field mutation the seller and admin screens
// apply optimistically: product status toggles, deletes, role changes and bans.
// Ownership and self-action checks run inside the repository write transaction
// against the stored record, not the caller's copy.
type ModerationService struct {
	products ports.ProductRepository
	users    ports.UserRepository
}

func NewModerationService(products ports.ProductRepository, users ports.UserRepository) *ModerationService {
	return &ModerationService{products: products, users: users}
}

// ToggleProductStatus flips a product between active and inactive on behalf of
// its seller. Admins may toggle any product.
func (s *ModerationService) ToggleProductStatus(ctx context.Context, actor domain.User, id string, meta domain.MutationMetadata) (domain.Product, error) {
	if err := requireRole(actor, domain.RoleSeller, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}
	if err := domain.ValidateID(id); err != nil {
		return domain.Product{}, err
	}
	meta.Actor = actor.ID
	return s.products.UpdateWithEvents(ctx, id, domain.EventProductStatusChanged, func(p *domain.Product) error {
		if err := ensureOwner(actor, *p); err != nil {
			return err
		}
		p.Status = p.Status.Toggled()
		return nil
	}, meta)
}

// SuspendProduct is the admin moderation toggle for any product.
func (s *ModerationService) SuspendProduct(ctx context.Context, actor domain.User, id string, meta domain.MutationMetadata) (domain.Product, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}
	if err := domain.ValidateID(id); err != nil {
		return domain.Product{}, err
	}
	meta.Actor = actor.ID
	return s.products.UpdateWithEvents(ctx, id, domain.EventProductStatusChanged, func(p *domain.Product) error {
		p.Status = p.Status.Toggled()
		return nil
	}, meta)
}

func (s *ModerationService) DeleteProduct(ctx context.Context, actor domain.User, id string, meta domain.MutationMetadata) (bool, error) {
	if err := requireRole(actor, domain.RoleSeller, domain.RoleAdmin); err != nil {
		return false, err
	}
	if err := domain.ValidateID(id); err != nil {
		return false, err
	}
	meta.Actor = actor.ID
	return s.products.DeleteWithEvents(ctx, id, func(p domain.Product) error {
		return ensureOwner(actor, p)
	}, meta)
}

func (s *ModerationService) ChangeUserRole(ctx context.Context, actor domain.User, id string, role domain.Role, meta domain.MutationMetadata) (domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}
	if err := domain.ValidateID(id); err != nil {
		return domain.User{}, err
	}
	if !role.Valid() {
		return domain.User{}, domain.ErrInvalidRole
	}
	if id == actor.ID {
		return domain.User{}, domain.ErrSelfAction
	}
	meta.Actor = actor.ID
	return s.users.UpdateWithEvents(ctx, id, domain.EventUserRoleChanged, func(u *domain.User) error {
		u.Role = role
		return nil
	}, meta)
}

// ToggleUserBan flips a user between active and banned. Existing sessions of a
// banned user stop authenticating immediately.
func (s *ModerationService) ToggleUserBan(ctx context.Context, actor domain.User, id string, meta domain.MutationMetadata) (domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}
	if err := domain.ValidateID(id); err != nil {
		return domain.User{}, err
	}
	if id == actor.ID {
		return domain.User{}, domain.ErrSelfAction
	}
	meta.Actor = actor.ID
	return s.users.UpdateWithEvents(ctx, id, domain.EventUserStatusChanged, func(u *domain.User) error {
		u.Status = u.Status.Toggled()
		return nil
	}, meta)
}

func (s *ModerationService) ListUsers(ctx context.Context, actor domain.User, filter domain.UserFilter) ([]domain.User, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	switch filter.Status {
	case "", domain.UserActive, domain.UserBanned:
	default:
		return nil, domain.ErrInvalidStatus
	}
	filter.Limit = clampLimit(filter.Limit)
	return s.users.List(ctx, filter)
}

func (s *ModerationService) ListProducts(ctx context.Context, actor domain.User, filter domain.ProductFilter) ([]domain.Product, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter.Limit = clampLimit(filter.Limit)
	return s.products.List(ctx, filter)
}

func ensureOwner(actor domain.User, p domain.Product) error {
	if actor.Role == domain.RoleAdmin || p.SellerID == actor.ID {
		return nil
	}
	return domain.ErrForbidden
}
