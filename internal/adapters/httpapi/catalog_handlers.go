package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atvirokodosprendimai/storefront/internal/core/usecase"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	products, err := h.catalog.Browse(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"products": toProductResponses(products)})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"product": toProductResponse(product)})
}

func (h *Handler) sellerProducts(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	products, err := h.catalog.SellerProducts(r.Context(), principalFromContext(r.Context()).User, limit)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"products": toProductResponses(products)})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req usecase.ProductInput
	if !h.decodeBody(w, r, usecase.PayloadProduct, &req) {
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), principalFromContext(r.Context()).User, req, mutationMeta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, "Product created", map[string]any{"product": toProductResponse(product)})
}

func (h *Handler) toggleProductStatus(w http.ResponseWriter, r *http.Request) {
	product, err := h.moderation.ToggleProductStatus(r.Context(), principalFromContext(r.Context()).User, chi.URLParam(r, "id"), mutationMeta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "Product status updated", map[string]any{
		"status":  string(product.Status),
		"product": toProductResponse(product),
	})
}

// deleteProduct serves both the seller and the admin delete routes; ownership
// is enforced by the moderation service.
func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.moderation.DeleteProduct(r.Context(), principalFromContext(r.Context()).User, chi.URLParam(r, "id"), mutationMeta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeOK(w, http.StatusOK, "Product deleted", nil)
}
