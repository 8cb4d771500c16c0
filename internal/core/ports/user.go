package ports

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

type UserRepository interface {
	// Register stores the user with its pending verification token. rawToken only
	// travels in the verification outbox event; the repository persists the hash.
	Register(ctx context.Context, user domain.User, token domain.VerificationToken, rawToken string, meta domain.MutationMetadata) (domain.User, error)
	Verify(ctx context.Context, tokenHash string, now time.Time, meta domain.MutationMetadata) (domain.User, error)
	Get(ctx context.Context, id string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	UpdateWithEvents(ctx context.Context, id, eventType string, mutate func(*domain.User) error, meta domain.MutationMetadata) (domain.User, error)
}
