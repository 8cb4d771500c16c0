package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/usecase"
)

type roleChangeRequest struct {
	Role string `json:"role"`
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Dashboard(r.Context(), principalFromContext(r.Context()).User)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"stats": stats})
}

func (h *Handler) adminUsers(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	users, err := h.moderation.ListUsers(r.Context(), principalFromContext(r.Context()).User, domain.UserFilter{
		Role:   domain.Role(q.Get("role")),
		Status: domain.UserStatus(q.Get("status")),
		Query:  q.Get("q"),
		Limit:  limit,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"users": toUserResponses(users)})
}

func (h *Handler) changeUserRole(w http.ResponseWriter, r *http.Request) {
	var req roleChangeRequest
	if !h.decodeBody(w, r, usecase.PayloadRoleChange, &req) {
		return
	}

	user, err := h.moderation.ChangeUserRole(r.Context(), principalFromContext(r.Context()).User, chi.URLParam(r, "id"), domain.Role(req.Role), mutationMeta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "User role updated", map[string]any{
		"role": string(user.Role),
		"user": toUserResponse(user),
	})
}

func (h *Handler) toggleUserBan(w http.ResponseWriter, r *http.Request) {
	user, err := h.moderation.ToggleUserBan(r.Context(), principalFromContext(r.Context()).User, chi.URLParam(r, "id"), mutationMeta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	message := "User unbanned"
	if user.Banned() {
		message = "User banned"
	}
	writeOK(w, http.StatusOK, message, map[string]any{
		"status": string(user.Status),
		"user":   toUserResponse(user),
	})
}

func (h *Handler) adminProducts(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	products, err := h.moderation.ListProducts(r.Context(), principalFromContext(r.Context()).User, domain.ProductFilter{
		SellerID: q.Get("seller_id"),
		Status:   domain.ProductStatus(q.Get("status")),
		Query:    q.Get("q"),
		Limit:    limit,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"products": toProductResponses(products)})
}

func (h *Handler) suspendProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.moderation.SuspendProduct(r.Context(), principalFromContext(r.Context()).User, chi.URLParam(r, "id"), mutationMeta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	message := "Product reinstated"
	if product.Status == domain.ProductInactive {
		message = "Product suspended"
	}
	writeOK(w, http.StatusOK, message, map[string]any{
		"status":  string(product.Status),
		"product": toProductResponse(product),
	})
}

func (h *Handler) adminAudit(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	var afterID int64
	if raw := q.Get("after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		afterID = parsed
	}

	events, err := h.audit.List(r.Context(), principalFromContext(r.Context()).User, domain.AuditFilter{
		AggregateType: q.Get("aggregate_type"),
		AggregateID:   q.Get("aggregate_id"),
		Action:        q.Get("action"),
		AfterID:       afterID,
		Limit:         limit,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"events": toAuditResponses(events)})
}
