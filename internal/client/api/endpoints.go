package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/atvirokodosprendimai/storefront/internal/client/result"
)

func (c *Client) Signup(ctx context.Context, in SignupRequest) result.Result[User] {
	var out struct {
		User User `json:"user"`
	}
	err := c.send(ctx, request{method: http.MethodPost, path: "/v1/auth/signup", body: in}, &out)
	return result.FromError(out.User, err)
}

func (c *Client) VerifyEmail(ctx context.Context, token string) result.Result[User] {
	var out struct {
		User User `json:"user"`
	}
	err := c.send(ctx, request{method: http.MethodPost, path: "/v1/auth/verify-email", body: map[string]string{"token": token}}, &out)
	return result.FromError(out.User, err)
}

func (c *Client) Login(ctx context.Context, email, password string) result.Result[LoginReply] {
	var out LoginReply
	err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/v1/auth/login",
		body:   map[string]string{"email": email, "password": password},
	}, &out)
	return result.FromError(out, err)
}

func (c *Client) Logout(ctx context.Context) result.Result[Ack] {
	var out Ack
	err := c.send(ctx, request{method: http.MethodPost, path: "/v1/auth/logout"}, &out)
	return result.FromError(out, err)
}

func (c *Client) Me(ctx context.Context) result.Result[User] {
	var out struct {
		User User `json:"user"`
	}
	err := c.send(ctx, request{method: http.MethodGet, path: "/v1/auth/me"}, &out)
	return result.FromError(out.User, err)
}

func (c *Client) ListProducts(ctx context.Context, query string, limit int) result.Result[[]Product] {
	q := limitQuery(nil, limit)
	setIf(q, "q", query)
	var out struct {
		Products []Product `json:"products"`
	}
	err := c.send(ctx, request{method: http.MethodGet, path: "/v1/products", query: q}, &out)
	return result.FromError(out.Products, err)
}

func (c *Client) GetProduct(ctx context.Context, id string) result.Result[Product] {
	var out struct {
		Product Product `json:"product"`
	}
	err := c.send(ctx, request{method: http.MethodGet, path: "/v1/products/" + escape(id)}, &out)
	return result.FromError(out.Product, err)
}

func (c *Client) SellerProducts(ctx context.Context) result.Result[[]Product] {
	var out struct {
		Products []Product `json:"products"`
	}
	err := c.send(ctx, request{method: http.MethodGet, path: "/v1/seller/products"}, &out)
	return result.FromError(out.Products, err)
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) result.Result[Product] {
	var out struct {
		Product Product `json:"product"`
	}
	err := c.send(ctx, request{method: http.MethodPost, path: "/v1/seller/products", body: in}, &out)
	return result.FromError(out.Product, err)
}

func (c *Client) ToggleProductStatus(ctx context.Context, id string) result.Result[StatusReply] {
	var out StatusReply
	err := c.send(ctx, request{method: http.MethodPut, path: "/v1/seller/products/" + escape(id) + "/toggle-status"}, &out)
	return result.FromError(out, err)
}

func (c *Client) DeleteProduct(ctx context.Context, id string) result.Result[Ack] {
	var out Ack
	err := c.send(ctx, request{method: http.MethodDelete, path: "/v1/seller/products/" + escape(id)}, &out)
	return result.FromError(out, err)
}

func (c *Client) AdminUsers(ctx context.Context, query UserQuery) result.Result[[]User] {
	q := limitQuery(nil, query.Limit)
	setIf(q, "role", query.Role)
	setIf(q, "status", query.Status)
	setIf(q, "q", query.Query)
	var out struct {
		Users []User `json:"users"`
	}
	err := c.send(ctx, request{method: http.MethodGet, path: "/v1/admin/users", query: q}, &out)
	return result.FromError(out.Users, err)
}

func (c *Client) ChangeUserRole(ctx context.Context, id, role string) result.Result[RoleReply] {
	var out RoleReply
	err := c.send(ctx, request{
		method: http.MethodPut,
		path:   "/v1/admin/users/" + escape(id) + "/role",
		body:   map[string]string{"role": role},
	}, &out)
	return result.FromError(out, err)
}

func (c *Client) ToggleUserBan(ctx context.Context, id string) result.Result[StatusReply] {
	var out StatusReply
	err := c.send(ctx, request{method: http.MethodPut, path: "/v1/admin/users/" + escape(id) + "/ban"}, &out)
	return result.FromError(out, err)
}

func (c *Client) AdminProducts(ctx context.Context, query ProductQuery) result.Result[[]Product] {
	q := limitQuery(nil, query.Limit)
	setIf(q, "seller_id", query.SellerID)
	setIf(q, "status", query.Status)
	setIf(q, "q", query.Query)
	var out struct {
		Products []Product `json:"products"`
	}
	err := c.send(ctx, request{method: http.MethodGet, path: "/v1/admin/products", query: q}, &out)
	return result.FromError(out.Products, err)
}

func (c *Client) SuspendProduct(ctx context.Context, id string) result.Result[StatusReply] {
	var out StatusReply
	err := c.send(ctx, request{method: http.MethodPut, path: "/v1/admin/products/" + escape(id) + "/suspend"}, &out)
	return result.FromError(out, err)
}

func (c *Client) AdminDeleteProduct(ctx context.Context, id string) result.Result[Ack] {
	var out Ack
	err := c.send(ctx, request{method: http.MethodDelete, path: "/v1/admin/products/" + escape(id)}, &out)
	return result.FromError(out, err)
}

func (c *Client) AdminStats(ctx context.Context) result.Result[Stats] {
	var out struct {
		Stats Stats `json:"stats"`
	}
	err := c.send(ctx, request{method: http.MethodGet, path: "/v1/admin/stats"}, &out)
	return result.FromError(out.Stats, err)
}

func (c *Client) AdminAudit(ctx context.Context, query AuditQuery) result.Result[[]AuditEvent] {
	q := limitQuery(nil, query.Limit)
	setIf(q, "aggregate_type", query.AggregateType)
	setIf(q, "aggregate_id", query.AggregateID)
	setIf(q, "action", query.Action)
	var out struct {
		Events []AuditEvent `json:"events"`
	}
	err := c.send(ctx, request{method: http.MethodGet, path: "/v1/admin/audit", query: q}, &out)
	return result.FromError(out.Events, err)
}

// PlaceOrder submits an order. Reusing idempotencyKey replays the first order.
func (c *Client) PlaceOrder(ctx context.Context, items []OrderLine, idempotencyKey string) result.Result[Order] {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}
	var out struct {
		Order Order `json:"order"`
	}
	err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/v1/orders",
		body:   map[string]any{"items": items},
		header: header,
	}, &out)
	return result.FromError(out.Order, err)
}

func (c *Client) MyOrders(ctx context.Context, limit int) result.Result[[]Order] {
	var out struct {
		Orders []Order `json:"orders"`
	}
	err := c.send(ctx, request{method: http.MethodGet, path: "/v1/orders", query: limitQuery(url.Values{}, limit)}, &out)
	return result.FromError(out.Orders, err)
}
