package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/ports"
)

var ErrUnauthorized = errors.New("unauthorized")

const (
	defaultSessionTTL      = 24 * time.Hour
	defaultVerificationTTL = 48 * time.Hour
	minPasswordLength      = 8
)

type AuthService struct {
	users      ports.UserRepository
	sessions   ports.SessionRepository
	sessionTTL time.Duration
	verifyTTL  time.Duration
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(users ports.UserRepository, sessions ports.SessionRepository, sessionTTL time.Duration) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		verifyTTL:  defaultVerificationTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

// Signup registers an unverified customer or seller. The verification token is
// only emitted through the user.verification_requested outbox event.
func (s *AuthService) Signup(ctx context.Context, in SignupInput, meta domain.MutationMetadata) (domain.User, error) {
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		return domain.User{}, err
	}
	if in.Role == "" {
		in.Role = domain.RoleCustomer
	}
	if in.Role != domain.RoleCustomer && in.Role != domain.RoleSeller {
		return domain.User{}, domain.ErrInvalidRole
	}
	if len(in.Password) < minPasswordLength {
		return domain.User{}, &domain.ErrPayloadViolation{Errors: []string{fmt.Sprintf("password must be at least %d characters", minPasswordLength)}}
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return domain.User{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	rawToken, err := NewToken()
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
		Role:         in.Role,
		Status:       domain.UserActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	token := domain.VerificationToken{
		TokenHash: HashToken(rawToken),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.verifyTTL),
	}
	meta.Actor = user.ID
	return s.users.Register(ctx, user, token, rawToken, meta)
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string, meta domain.MutationMetadata) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, domain.ErrNotFound
	}
	return s.users.Verify(ctx, HashToken(token), s.now(), meta)
}

// Login checks credentials and opens a bearer session. The returned token is
// never stored; only its hash is persisted.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.User{}, domain.ErrInvalidCredentials
		}
		return "", domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}
	if user.Banned() {
		return "", domain.User{}, domain.ErrAccountBanned
	}
	if !user.EmailVerified {
		return "", domain.User{}, domain.ErrEmailNotVerified
	}

	token, err := NewToken()
	if err != nil {
		return "", domain.User{}, err
	}
	now := s.now()
	err = s.sessions.Create(ctx, domain.Session{
		TokenHash: HashToken(token),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	})
	if err != nil {
		return "", domain.User{}, err
	}
	return token, user, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrUnauthorized
	}
	return s.sessions.Revoke(ctx, HashToken(token), s.now())
}

// Authenticate resolves a bearer token to its principal. Expired and revoked
// sessions report ErrUnauthorized; sessions of a banned user report
// domain.ErrAccountBanned.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Principal{}, ErrUnauthorized
	}

	session, err := s.sessions.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Principal{}, ErrUnauthorized
		}
		return domain.Principal{}, err
	}
	if !session.ActiveAt(s.now()) {
		return domain.Principal{}, ErrUnauthorized
	}

	user, err := s.users.Get(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Principal{}, ErrUnauthorized
		}
		return domain.Principal{}, err
	}
	if user.Banned() {
		return domain.Principal{}, domain.ErrAccountBanned
	}
	return domain.Principal{User: user, Session: session}, nil
}

// EnsureAdmin creates a verified admin account when none exists for email.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) (domain.User, error) {
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return domain.User{}, err
	}
	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}
	if len(password) < minPasswordLength {
		return domain.User{}, fmt.Errorf("bootstrap admin password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	return s.users.Register(ctx, domain.User{
		ID:            uuid.NewString(),
		Email:         email,
		Name:          name,
		PasswordHash:  string(hash),
		Role:          domain.RoleAdmin,
		Status:        domain.UserActive,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, domain.VerificationToken{}, "", domain.MutationMetadata{Actor: "bootstrap", Source: "bootstrap"})
}

func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
