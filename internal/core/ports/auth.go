package ports

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	FindByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error)
	Revoke(ctx context.Context, tokenHash string, at time.Time) error
}
