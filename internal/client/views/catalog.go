package views

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
	"github.com/atvirokodosprendimai/storefront/internal/client/result"
)

// Catalog is the customer flow: browse active products and place orders.
type Catalog struct {
	env Env
}

func NewCatalog(env Env) *Catalog {
	return &Catalog{env: env}
}

func (c *Catalog) Search(ctx context.Context, query string, limit int) ([]api.Product, error) {
	return c.env.Client.ListProducts(ctx, query, limit).Unwrap()
}

// Order places an order. An empty key gets a fresh one, so retries must pass
// the key of the first attempt to be replayed instead of duplicated.
func (c *Catalog) Order(ctx context.Context, lines []api.OrderLine, key string) (api.Order, string, error) {
	if len(lines) == 0 {
		return api.Order{}, key, result.New(result.Rejected, "Add at least one product to the order")
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return api.Order{}, key, result.New(result.Rejected, fmt.Sprintf("Quantity for %s must be positive", l.ProductID))
		}
	}
	if key == "" {
		key = uuid.NewString()
	}
	order, err := c.env.Client.PlaceOrder(ctx, lines, key).Unwrap()
	if err != nil && isUnauthorized(err) && c.env.Session != nil {
		c.env.Session.Invalidate()
	}
	return order, key, err
}

func (c *Catalog) MyOrders(ctx context.Context, limit int) ([]api.Order, error) {
	return c.env.Client.MyOrders(ctx, limit).Unwrap()
}

func isUnauthorized(err error) bool {
	return errors.Is(err, &result.Error{Kind: result.Unauthorized})
}
