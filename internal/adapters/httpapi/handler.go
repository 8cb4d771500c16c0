package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/usecase"
)

const (
	timeFormat      = "2006-01-02T15:04:05.999999999Z07:00"
	maxJSONBodySize = 1 << 20
)

// Services are the use cases the REST surface exposes.
type Services struct {
	Auth       *usecase.AuthService
	Catalog    *usecase.CatalogService
	Moderation *usecase.ModerationService
	Orders     *usecase.OrderService
	Stats      *usecase.StatsService
	Audit      *usecase.AuditService
	Validator  *usecase.PayloadValidator
	// Outbox reports dispatcher counters on /healthz; nil omits them.
	Outbox func() usecase.OutboxDispatcherMetrics
}

type Handler struct {
	auth       *usecase.AuthService
	catalog    *usecase.CatalogService
	moderation *usecase.ModerationService
	orders     *usecase.OrderService
	stats      *usecase.StatsService
	audit      *usecase.AuditService
	validator  *usecase.PayloadValidator
	outbox     func() usecase.OutboxDispatcherMetrics
}

func NewHandler(s Services) *Handler {
	return &Handler{
		auth:       s.Auth,
		catalog:    s.Catalog,
		moderation: s.Moderation,
		orders:     s.Orders,
		stats:      s.Stats,
		audit:      s.Audit,
		validator:  s.Validator,
		outbox:     s.Outbox,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)

	r.Post("/v1/auth/signup", h.signup)
	r.Post("/v1/auth/verify-email", h.verifyEmail)
	r.Post("/v1/auth/login", h.login)
	r.Get("/v1/products", h.listProducts)
	r.Get("/v1/products/{id}", h.getProduct)

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireSession)
		pr.Post("/v1/auth/logout", h.logout)
		pr.Get("/v1/auth/me", h.me)

		pr.Post("/v1/orders", h.placeOrder)
		pr.Get("/v1/orders", h.myOrders)

		pr.Route("/v1/seller", func(sr chi.Router) {
			sr.Use(requireRole(domain.RoleSeller, domain.RoleAdmin))
			sr.Get("/products", h.sellerProducts)
			sr.Post("/products", h.createProduct)
			sr.Put("/products/{id}/toggle-status", h.toggleProductStatus)
			sr.Delete("/products/{id}", h.deleteProduct)
		})

		pr.Route("/v1/admin", func(ar chi.Router) {
			ar.Use(requireRole(domain.RoleAdmin))
			ar.Get("/stats", h.adminStats)
			ar.Get("/users", h.adminUsers)
			ar.Put("/users/{id}/role", h.changeUserRole)
			ar.Put("/users/{id}/ban", h.toggleUserBan)
			ar.Get("/products", h.adminProducts)
			ar.Put("/products/{id}/suspend", h.suspendProduct)
			ar.Delete("/products/{id}", h.deleteProduct)
			ar.Get("/audit", h.adminAudit)
		})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{}
	if h.outbox != nil {
		body["outbox"] = h.outbox()
	}
	writeOK(w, http.StatusOK, "ok", body)
}

// decodeBody validates the request body against the named payload schema and
// decodes it into dst.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := h.validator.Validate(schema, raw); err != nil {
		handleDomainError(w, err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be integer")
			return 0, false
		}
		limit = parsed
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("encode json response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeOK writes the success envelope; fields are merged next to success and
// message.
func writeOK(w http.ResponseWriter, status int, message string, fields map[string]any) {
	body := map[string]any{"success": true, "message": message}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func handleDomainError(w http.ResponseWriter, err error) {
	var violation *domain.ErrPayloadViolation
	switch {
	case errors.As(err, &violation):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "invalid request body",
			"errors":  violation.Errors,
		})
	case errors.Is(err, usecase.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrAccountBanned),
		errors.Is(err, domain.ErrEmailNotVerified), errors.Is(err, domain.ErrSelfAction):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrProductUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTokenExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidStatus), errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
