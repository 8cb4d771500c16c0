package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

func newTestAuthService(users *stubUserRepo, sessions *stubSessionRepo) *AuthService {
	svc := NewAuthService(users, sessions, time.Hour)
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

func TestAuthServiceSignupVerifyLogin(t *testing.T) {
	users := newStubUserRepo()
	sessions := newStubSessionRepo()
	svc := newTestAuthService(users, sessions)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupInput{Email: " Alice@Example.com ", Password: "hunter22!", Name: "Alice", Role: domain.RoleSeller}, domain.MutationMetadata{})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "alice@example.com" || user.Role != domain.RoleSeller || user.EmailVerified {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, _, err := svc.Login(ctx, "alice@example.com", "hunter22!"); !errors.Is(err, domain.ErrEmailNotVerified) {
		t.Fatalf("expected email not verified, got %v", err)
	}

	if len(users.rawTokens) != 1 {
		t.Fatalf("expected one verification token, got %d", len(users.rawTokens))
	}
	if _, err := svc.VerifyEmail(ctx, users.rawTokens[0], domain.MutationMetadata{}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	token, loggedIn, err := svc.Login(ctx, "alice@example.com", "hunter22!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, loggedIn.ID)
	}

	principal, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if principal.User.ID != user.ID {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}

func TestAuthServiceSignupRejectsAdminRoleAndDuplicates(t *testing.T) {
	users := newStubUserRepo(domain.User{ID: "u1", Email: "taken@example.com"})
	svc := newTestAuthService(users, newStubSessionRepo())

	_, err := svc.Signup(context.Background(), SignupInput{Email: "x@example.com", Password: "password1", Role: domain.RoleAdmin}, domain.MutationMetadata{})
	if !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}

	_, err = svc.Signup(context.Background(), SignupInput{Email: "taken@example.com", Password: "password1"}, domain.MutationMetadata{})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	users := newStubUserRepo(domain.User{ID: "u1", Email: "a@example.com", PasswordHash: string(hash), EmailVerified: true, Status: domain.UserActive})
	svc := newTestAuthService(users, newStubSessionRepo())

	if _, _, err := svc.Login(context.Background(), "a@example.com", "wrong-horse"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@example.com", "x"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestAuthServiceAuthenticateRejectsBannedAndExpired(t *testing.T) {
	users := newStubUserRepo(
		domain.User{ID: "banned", Status: domain.UserBanned},
		domain.User{ID: "ok", Status: domain.UserActive},
	)
	sessions := newStubSessionRepo()
	now := time.Now().UTC()
	_ = sessions.Create(context.Background(), domain.Session{TokenHash: HashToken("t-banned"), UserID: "banned", ExpiresAt: now.Add(time.Hour)})
	_ = sessions.Create(context.Background(), domain.Session{TokenHash: HashToken("t-expired"), UserID: "ok", ExpiresAt: now.Add(-time.Minute)})
	svc := newTestAuthService(users, sessions)

	for _, token := range []string{"", "t-expired", "t-unknown"} {
		if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("token %q: expected unauthorized, got %v", token, err)
		}
	}
	if _, err := svc.Authenticate(context.Background(), "t-banned"); !errors.Is(err, domain.ErrAccountBanned) {
		t.Fatalf("expected banned, got %v", err)
	}
}

func TestAuthServiceEnsureAdminIsIdempotent(t *testing.T) {
	users := newStubUserRepo()
	svc := newTestAuthService(users, newStubSessionRepo())

	first, err := svc.EnsureAdmin(context.Background(), "root@example.com", "rootroot", "Root")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if first.Role != domain.RoleAdmin || !first.EmailVerified {
		t.Fatalf("unexpected admin: %+v", first)
	}
	second, err := svc.EnsureAdmin(context.Background(), "root@example.com", "rootroot", "Root")
	if err != nil {
		t.Fatalf("second ensure admin: %v", err)
	}
	if second.ID != first.ID || len(users.users) != 1 {
		t.Fatalf("expected a single admin, got %d users", len(users.users))
	}
}
