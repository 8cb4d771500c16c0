package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/ports"
)

type StatsService struct {
	repo ports.StatsRepository
}

func NewStatsService(repo ports.StatsRepository) *StatsService {
	return &StatsService{repo: repo}
}

func (s *StatsService) Dashboard(ctx context.Context, actor domain.User) (domain.Stats, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Stats{}, err
	}
	return s.repo.Stats(ctx)
}
