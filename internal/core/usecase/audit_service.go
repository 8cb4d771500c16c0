package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/ports"
)

type AuditService struct {
	repo ports.AuditTrailRepository
}

func NewAuditService(repo ports.AuditTrailRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) List(ctx context.Context, actor domain.User, filter domain.AuditFilter) ([]domain.AuditTrailEvent, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	switch filter.AggregateType {
	case "", domain.AggregateProduct, domain.AggregateUser, domain.AggregateOrder:
	default:
		return nil, domain.ErrInvalidFilter
	}
	if filter.AggregateID != "" {
		if err := domain.ValidateID(filter.AggregateID); err != nil {
			return nil, err
		}
	}
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.List(ctx, filter)
}
