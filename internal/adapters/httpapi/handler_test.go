package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atvirokodosprendimai/storefront/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/storefront/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/usecase"
	"github.com/atvirokodosprendimai/storefront/migrations"
)

const testPassword = "correct-horse"

type testEnv struct {
	router http.Handler
	users  *sqlite.UserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := gormsqlite.Open(filepath.Join(t.TempDir(), "api.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := migrations.Up(ctx, sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := sqlite.NewUserRepository(db)
	products := sqlite.NewProductRepository(db)
	validator, err := usecase.NewPayloadValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	h := NewHandler(Services{
		Auth:       usecase.NewAuthService(users, sqlite.NewSessionRepository(db), time.Hour),
		Catalog:    usecase.NewCatalogService(products),
		Moderation: usecase.NewModerationService(products, users),
		Orders:     usecase.NewOrderService(sqlite.NewOrderRepository(db), sqlite.NewIdempotencyRepository(db)),
		Stats:      usecase.NewStatsService(sqlite.NewStatsRepository(db)),
		Audit:      usecase.NewAuditService(sqlite.NewAuditTrailRepository(db)),
		Validator:  validator,
		Outbox:     func() usecase.OutboxDispatcherMetrics { return usecase.OutboxDispatcherMetrics{Delivered: 3} },
	})
	return &testEnv{router: h.Router(), users: users}
}

func (e *testEnv) addUser(t *testing.T, id string, role domain.Role) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	_, err = e.users.Register(context.Background(), domain.User{
		ID: id, Email: id + "@example.com", Name: id, PasswordHash: string(hash),
		Role: role, Status: domain.UserActive, EmailVerified: true, CreatedAt: now, UpdatedAt: now,
	}, domain.VerificationToken{}, "", domain.MutationMetadata{})
	if err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
}

func (e *testEnv) login(t *testing.T, id string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"`+id+`@example.com","password":"`+testPassword+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", id, rec.Code, rec.Body.String())
	}
	return decode(t, rec)["token"].(string)
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return payload
}

func TestHealthzReportsOutboxMetrics(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decode(t, rec)
	if payload["success"] != true {
		t.Fatalf("expected success, got %v", payload)
	}
	outbox, ok := payload["outbox"].(map[string]any)
	if !ok || outbox["delivered"] != float64(3) {
		t.Fatalf("unexpected outbox metrics: %v", payload["outbox"])
	}
}

func TestProtectedRouteWithoutAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/seller/products", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if decode(t, rec)["success"] != false {
		t.Fatal("expected success=false")
	}
}

func TestSignupRejectsInvalidPayload(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/auth/signup", "", `{"email":"a@example.com","password":"short","name":"A","extra":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if errs, ok := decode(t, rec)["errors"].([]any); !ok || len(errs) == 0 {
		t.Fatalf("expected validation errors: %s", rec.Body.String())
	}
}

func TestSignupThenLoginRequiresVerification(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/auth/signup", "", `{"email":"new@example.com","password":"long-enough","name":"New","role":"seller"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"new@example.com","password":"long-enough"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unverified login, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/v1/auth/signup", "", `{"email":"new@example.com","password":"long-enough","name":"New"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate signup, got %d", rec.Code)
	}
}

func TestSellerToggleReturnsAuthoritativeStatus(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "seller", domain.RoleSeller)
	token := env.login(t, "seller")

	rec := env.do(t, http.MethodPost, "/v1/seller/products", token, `{"name":"Lamp","price_cents":1500,"stock":4}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	id := decode(t, rec)["product"].(map[string]any)["id"].(string)

	rec = env.do(t, http.MethodPut, "/v1/seller/products/"+id+"/toggle-status", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: %d %s", rec.Code, rec.Body.String())
	}
	payload := decode(t, rec)
	if payload["success"] != true || payload["status"] != "inactive" {
		t.Fatalf("unexpected toggle payload: %v", payload)
	}

	rec = env.do(t, http.MethodGet, "/v1/products/"+id, "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("inactive product should be hidden, got %d", rec.Code)
	}
}

func TestSellerCannotTouchOtherSellersProduct(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice", domain.RoleSeller)
	env.addUser(t, "bob", domain.RoleSeller)
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")

	rec := env.do(t, http.MethodPost, "/v1/seller/products", alice, `{"name":"Mug","price_cents":900,"stock":1}`)
	id := decode(t, rec)["product"].(map[string]any)["id"].(string)

	rec = env.do(t, http.MethodPut, "/v1/seller/products/"+id+"/toggle-status", bob, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/v1/seller/products/"+id, bob, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "buyer", domain.RoleCustomer)
	token := env.login(t, "buyer")

	rec := env.do(t, http.MethodGet, "/v1/admin/users", token, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAdminModerationFlow(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "admin", domain.RoleAdmin)
	env.addUser(t, "buyer", domain.RoleCustomer)
	admin := env.login(t, "admin")
	buyer := env.login(t, "buyer")

	rec := env.do(t, http.MethodPut, "/v1/admin/users/admin/ban", admin, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("self ban should be 403, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/v1/admin/users/buyer/role", admin, `{"role":"seller"}`)
	if rec.Code != http.StatusOK || decode(t, rec)["role"] != "seller" {
		t.Fatalf("role change: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPut, "/v1/admin/users/buyer/ban", admin, "")
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "banned" {
		t.Fatalf("ban: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/v1/auth/me", buyer, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("banned session should be 403, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/v1/admin/audit?aggregate_type=user&aggregate_id=buyer", admin, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("audit: %d %s", rec.Code, rec.Body.String())
	}
	events := decode(t, rec)["events"].([]any)
	if len(events) != 3 {
		t.Fatalf("expected registered, role and ban events, got %d", len(events))
	}

	rec = env.do(t, http.MethodGet, "/v1/admin/stats", admin, "")
	stats := decode(t, rec)["stats"].(map[string]any)
	if stats["banned_users"] != float64(1) {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestPlaceOrderReplaysIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "seller", domain.RoleSeller)
	env.addUser(t, "buyer", domain.RoleCustomer)
	seller := env.login(t, "seller")
	buyer := env.login(t, "buyer")

	rec := env.do(t, http.MethodPost, "/v1/seller/products", seller, `{"name":"Tea","price_cents":300,"stock":1}`)
	id := decode(t, rec)["product"].(map[string]any)["id"].(string)

	place := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/orders", strings.NewReader(`{"items":[{"product_id":"`+id+`","quantity":1}]}`))
		req.Header.Set("Authorization", "Bearer "+buyer)
		req.Header.Set("Idempotency-Key", "order-1")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	first := place()
	if first.Code != http.StatusCreated {
		t.Fatalf("first order: %d %s", first.Code, first.Body.String())
	}
	second := place()
	if second.Code != http.StatusCreated {
		t.Fatalf("replayed order: %d %s", second.Code, second.Body.String())
	}
	a := decode(t, first)["order"].(map[string]any)["id"]
	b := decode(t, second)["order"].(map[string]any)["id"]
	if a != b {
		t.Fatalf("expected replay to return %v, got %v", a, b)
	}

	rec = env.do(t, http.MethodPost, "/v1/orders", buyer, `{"items":[{"product_id":"`+id+`","quantity":1}]}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for empty stock, got %d", rec.Code)
	}
}

func TestBadLimitReturnsBadRequest(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/products?limit=bad", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWriteJSONEncodeErrorHandled(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"bad": func() {}})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal server error") {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestHandleDomainErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidID, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrSelfAction, http.StatusForbidden},
		{usecase.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrEmailTaken, http.StatusConflict},
		{domain.ErrTokenExpired, http.StatusGone},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		handleDomainError(rec, c.err)
		if rec.Code != c.code {
			t.Fatalf("%v: expected %d, got %d", c.err, c.code, rec.Code)
		}
		var payload map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if payload["success"] != false || payload["message"] == "" {
			t.Fatalf("unexpected payload: %v", payload)
		}
	}
}
