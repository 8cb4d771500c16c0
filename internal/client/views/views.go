// Package views binds each client screen to its own optimistic controller.
// A view is created per screen and closed when the screen is left.
package views

import (
	"context"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
	"github.com/atvirokodosprendimai/storefront/internal/client/result"
	"github.com/atvirokodosprendimai/storefront/internal/client/session"
	"github.com/atvirokodosprendimai/storefront/internal/optimistic"
)

// Env is what every view needs from the running client.
type Env struct {
	Client   *api.Client
	Session  *session.Session
	Notifier optimistic.Notifier
	// Serialize runs mutations on one record strictly one after another.
	Serialize bool
	// OnUnauthorized runs after the session was invalidated by a 401.
	OnUnauthorized func()
}

func (e Env) options() []optimistic.Option {
	opts := []optimistic.Option{optimistic.WithOnUnauthorized(func() {
		if e.Session != nil {
			e.Session.Invalidate()
		}
		if e.OnUnauthorized != nil {
			e.OnUnauthorized()
		}
	})}
	if e.Serialize {
		opts = append(opts, optimistic.WithSerializedRecords())
	}
	return opts
}

func (e Env) actorID() string {
	if e.Session == nil {
		return ""
	}
	return e.Session.User().ID
}

func newController[T optimistic.Keyed](env Env, fetch func(context.Context) result.Result[[]T]) *optimistic.Controller[T] {
	return optimistic.NewController[T](func(ctx context.Context) ([]T, error) {
		return fetch(ctx).Unwrap()
	}, env.Notifier, env.options()...)
}

// reply converts a Result into the controller's request return values.
func reply[T optimistic.Keyed, R any](res result.Result[R], merge func(T, R) T, message func(R) string) (optimistic.Reply[T], error) {
	v, err := res.Unwrap()
	if err != nil {
		return optimistic.Reply[T]{}, err
	}
	out := optimistic.Reply[T]{}
	if merge != nil {
		out.Merge = func(t T) T { return merge(t, v) }
	}
	if message != nil {
		out.Message = message(v)
	}
	return out, nil
}

func toggledProductStatus(status string) string {
	if status == "active" {
		return "inactive"
	}
	return "active"
}

func toggledUserStatus(status string) string {
	if status == "banned" {
		return "active"
	}
	return "banned"
}

// Roles in the order the role cycle walks them.
var Roles = []string{"customer", "seller", "admin"}

// NextRole returns the role after current in Roles.
func NextRole(current string) string {
	for i, r := range Roles {
		if r == current {
			return Roles[(i+1)%len(Roles)]
		}
	}
	return Roles[0]
}
