package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

type stubUserRepo struct {
	users      map[string]domain.User
	tokens     map[string]domain.VerificationToken
	rawTokens  []string
	events     []string
	registerFn func(ctx context.Context, user domain.User) error
}

func newStubUserRepo(users ...domain.User) *stubUserRepo {
	r := &stubUserRepo{users: map[string]domain.User{}, tokens: map[string]domain.VerificationToken{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *stubUserRepo) Register(ctx context.Context, user domain.User, token domain.VerificationToken, rawToken string, _ domain.MutationMetadata) (domain.User, error) {
	if r.registerFn != nil {
		if err := r.registerFn(ctx, user); err != nil {
			return domain.User{}, err
		}
	}
	r.users[user.ID] = user
	if token.TokenHash != "" {
		r.tokens[token.TokenHash] = token
		r.rawTokens = append(r.rawTokens, rawToken)
	}
	return user, nil
}

func (r *stubUserRepo) Verify(_ context.Context, tokenHash string, now time.Time, _ domain.MutationMetadata) (domain.User, error) {
	tok, ok := r.tokens[tokenHash]
	if !ok || tok.UsedAt != nil {
		return domain.User{}, domain.ErrNotFound
	}
	if now.After(tok.ExpiresAt) {
		return domain.User{}, domain.ErrTokenExpired
	}
	tok.UsedAt = &now
	r.tokens[tokenHash] = tok
	u := r.users[tok.UserID]
	u.EmailVerified = true
	r.users[u.ID] = u
	return u, nil
}

func (r *stubUserRepo) Get(_ context.Context, id string) (domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *stubUserRepo) List(_ context.Context, _ domain.UserFilter) ([]domain.User, error) {
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *stubUserRepo) UpdateWithEvents(_ context.Context, id, eventType string, mutate func(*domain.User) error, _ domain.MutationMetadata) (domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if err := mutate(&u); err != nil {
		return domain.User{}, err
	}
	r.users[id] = u
	r.events = append(r.events, eventType)
	return u, nil
}

type stubSessionRepo struct {
	sessions map[string]domain.Session
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: map[string]domain.Session{}}
}

func (r *stubSessionRepo) Create(_ context.Context, s domain.Session) error {
	r.sessions[s.TokenHash] = s
	return nil
}

func (r *stubSessionRepo) FindByTokenHash(_ context.Context, hash string) (domain.Session, error) {
	s, ok := r.sessions[hash]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

func (r *stubSessionRepo) Revoke(_ context.Context, hash string, at time.Time) error {
	s, ok := r.sessions[hash]
	if !ok {
		return domain.ErrNotFound
	}
	s.RevokedAt = &at
	r.sessions[hash] = s
	return nil
}

type stubProductRepo struct {
	products map[string]domain.Product
	deleted  []string
	events   []string
	listFn   func(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
}

func newStubProductRepo(products ...domain.Product) *stubProductRepo {
	r := &stubProductRepo{products: map[string]domain.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *stubProductRepo) CreateWithEvents(_ context.Context, p domain.Product, _ domain.MutationMetadata) (domain.Product, error) {
	r.products[p.ID] = p
	r.events = append(r.events, domain.EventProductCreated)
	return p, nil
}

func (r *stubProductRepo) Get(_ context.Context, id string) (domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *stubProductRepo) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if r.listFn != nil {
		return r.listFn(ctx, filter)
	}
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.SellerID != "" && p.SellerID != filter.SellerID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *stubProductRepo) UpdateWithEvents(_ context.Context, id, eventType string, mutate func(*domain.Product) error, _ domain.MutationMetadata) (domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	if err := mutate(&p); err != nil {
		return domain.Product{}, err
	}
	r.products[id] = p
	r.events = append(r.events, eventType)
	return p, nil
}

func (r *stubProductRepo) DeleteWithEvents(_ context.Context, id string, check func(domain.Product) error, _ domain.MutationMetadata) (bool, error) {
	p, ok := r.products[id]
	if !ok {
		return false, nil
	}
	if err := check(p); err != nil {
		return false, err
	}
	delete(r.products, id)
	r.deleted = append(r.deleted, id)
	return true, nil
}

type stubOrderRepo struct {
	placed  []domain.Order
	replays map[string]domain.Order
	keys    []string
	err     error
}

func (r *stubOrderRepo) PlaceWithEvents(_ context.Context, order domain.Order, lines []domain.OrderLine, replayKey string, _ domain.MutationMetadata) (domain.Order, error) {
	if r.err != nil {
		return domain.Order{}, r.err
	}
	r.keys = append(r.keys, replayKey)
	if stored, ok := r.replays[replayKey]; ok && replayKey != "" {
		return stored, nil
	}
	for _, l := range lines {
		order.Items = append(order.Items, domain.OrderItem{ProductID: l.ProductID, Quantity: l.Quantity, UnitPriceCents: 100})
		order.TotalCents += int64(l.Quantity) * 100
	}
	r.placed = append(r.placed, order)
	if replayKey != "" {
		if r.replays == nil {
			r.replays = map[string]domain.Order{}
		}
		r.replays[replayKey] = order
	}
	return order, nil
}

func (r *stubOrderRepo) ListByCustomer(_ context.Context, customerID string, _ int) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range r.placed {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

type stubIdempotencyRepo struct {
	entries map[string]json.RawMessage
}

func (r *stubIdempotencyRepo) Get(_ context.Context, key string) (json.RawMessage, error) {
	v, ok := r.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}
