package httpapi

import (
	"net/http"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/usecase"
)

type placeOrderRequest struct {
	Items []domain.OrderLine `json:"items"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !h.decodeBody(w, r, usecase.PayloadOrder, &req) {
		return
	}

	meta := mutationMeta(r)
	order, err := h.orders.Place(r.Context(), principalFromContext(r.Context()).User, req.Items, meta.IdempotencyKey, meta)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, "Order placed", map[string]any{"order": toOrderResponse(order)})
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListMine(r.Context(), principalFromContext(r.Context()).User, limit)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeOK(w, http.StatusOK, "", map[string]any{"orders": out})
}
