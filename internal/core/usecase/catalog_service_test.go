package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

func TestCatalogBrowseOnlyListsActive(t *testing.T) {
	var gotFilter domain.ProductFilter
	products := newStubProductRepo()
	products.listFn = func(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
		gotFilter = filter
		return []domain.Product{{ID: "p1", Status: domain.ProductActive}}, nil
	}
	svc := NewCatalogService(products)

	items, err := svc.Browse(context.Background(), "  lamp ", 0)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("unexpected items: %+v", items)
	}
	if gotFilter.Status != domain.ProductActive || gotFilter.Query != "lamp" || gotFilter.Limit != 100 {
		t.Fatalf("unexpected filter: %+v", gotFilter)
	}
}

func TestCatalogGetHidesInactiveProducts(t *testing.T) {
	svc := NewCatalogService(newStubProductRepo(domain.Product{ID: "p1", Status: domain.ProductInactive}))
	if _, err := svc.Get(context.Background(), "p1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "bad id"); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
}

func TestCatalogCreateProductRequiresSeller(t *testing.T) {
	products := newStubProductRepo()
	svc := NewCatalogService(products)

	if _, err := svc.CreateProduct(context.Background(), testBuyer, ProductInput{Name: "x"}, domain.MutationMetadata{}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	p, err := svc.CreateProduct(context.Background(), testSeller, ProductInput{Name: " Lamp ", PriceCents: 500, Stock: 2}, domain.MutationMetadata{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.SellerID != testSeller.ID || p.Name != "Lamp" || p.Status != domain.ProductActive {
		t.Fatalf("unexpected product: %+v", p)
	}
}
