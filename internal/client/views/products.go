package views

import (
	"context"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
	"github.com/atvirokodosprendimai/storefront/internal/client/result"
	"github.com/atvirokodosprendimai/storefront/internal/optimistic"
)

// SellerInventory lists the signed-in seller's products.
type SellerInventory struct {
	*optimistic.Controller[api.Product]
	env Env
}

func NewSellerInventory(env Env) *SellerInventory {
	return &SellerInventory{
		Controller: newController(env, env.Client.SellerProducts),
		env:        env,
	}
}

func (v *SellerInventory) ToggleStatus(ctx context.Context, id string) *optimistic.Pending[api.Product] {
	return v.Go(ctx, toggleProduct(id, "Product status updated", func(ctx context.Context, id string) (optimistic.Reply[api.Product], error) {
		return reply(v.env.Client.ToggleProductStatus(ctx, id), mergeStatus, statusMessage)
	}))
}

func (v *SellerInventory) Delete(ctx context.Context, id string) *optimistic.Pending[api.Product] {
	return v.Go(ctx, deleteProduct(id, func(ctx context.Context, id string) (optimistic.Reply[api.Product], error) {
		return reply[api.Product](v.env.Client.DeleteProduct(ctx, id), nil, ackMessage)
	}))
}

// AdminProducts lists every product for moderation.
type AdminProducts struct {
	*optimistic.Controller[api.Product]
	env Env
}

func NewAdminProducts(env Env, query api.ProductQuery) *AdminProducts {
	return &AdminProducts{
		Controller: newController(env, func(ctx context.Context) result.Result[[]api.Product] {
			return env.Client.AdminProducts(ctx, query)
		}),
		env: env,
	}
}

func (v *AdminProducts) ToggleSuspend(ctx context.Context, id string) *optimistic.Pending[api.Product] {
	return v.Go(ctx, toggleProduct(id, "Product moderation updated", func(ctx context.Context, id string) (optimistic.Reply[api.Product], error) {
		return reply(v.env.Client.SuspendProduct(ctx, id), mergeStatus, statusMessage)
	}))
}

func (v *AdminProducts) Delete(ctx context.Context, id string) *optimistic.Pending[api.Product] {
	return v.Go(ctx, deleteProduct(id, func(ctx context.Context, id string) (optimistic.Reply[api.Product], error) {
		return reply[api.Product](v.env.Client.AdminDeleteProduct(ctx, id), nil, ackMessage)
	}))
}

func toggleProduct(id, success string, send func(context.Context, string) (optimistic.Reply[api.Product], error)) optimistic.Mutation[api.Product] {
	return optimistic.Mutation[api.Product]{
		RecordID: id,
		Field:    "status",
		Change: func(p api.Product) api.Product {
			p.Status = toggledProductStatus(p.Status)
			return p
		},
		Request: func(ctx context.Context, p api.Product) (optimistic.Reply[api.Product], error) {
			return send(ctx, p.ID)
		},
		SuccessMessage: success,
	}
}

func deleteProduct(id string, send func(context.Context, string) (optimistic.Reply[api.Product], error)) optimistic.Mutation[api.Product] {
	return optimistic.Mutation[api.Product]{
		RecordID: id,
		Remove:   true,
		Request: func(ctx context.Context, p api.Product) (optimistic.Reply[api.Product], error) {
			return send(ctx, p.ID)
		},
		SuccessMessage: "Product deleted",
	}
}

func mergeStatus(p api.Product, r api.StatusReply) api.Product {
	if r.Status != "" {
		p.Status = r.Status
	}
	return p
}

func statusMessage(r api.StatusReply) string { return r.Message }

func ackMessage(r api.Ack) string { return r.Message }
