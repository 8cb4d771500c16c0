package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"

	"github.com/atvirokodosprendimai/storefront/internal/client/api"
	"github.com/atvirokodosprendimai/storefront/internal/client/views"
	"github.com/atvirokodosprendimai/storefront/internal/optimistic"
)

// wait blocks until a started mutation settles.
type wait func() optimistic.Outcome

// Screen is one moderation view as the console sees it.
type Screen interface {
	Title() string
	Help() string
	Columns() []table.Column
	Rows() []table.Row
	// OnChange reports every later change of the rows with its version.
	OnChange(fn func(version uint64, rows []table.Row))
	Refresh(ctx context.Context) error
	// Act starts the mutation bound to key for the record id. ok is false
	// when the screen has no action for key.
	Act(ctx context.Context, key, id string) (w wait, ok bool)
	Close()
}

type productMutations interface {
	toggle(ctx context.Context, id string) *optimistic.Pending[api.Product]
	remove(ctx context.Context, id string) *optimistic.Pending[api.Product]
}

type productScreen struct {
	*optimistic.Controller[api.Product]
	title string
	ops   productMutations
}

func (s *productScreen) Title() string { return s.title }

func (s *productScreen) Help() string { return "t: toggle status  d: delete  g: refresh  q: quit" }

func (s *productScreen) Columns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 36},
		{Title: "Name", Width: 24},
		{Title: "Price", Width: 10},
		{Title: "Stock", Width: 6},
		{Title: "Status", Width: 10},
	}
}

func (s *productScreen) Rows() []table.Row {
	return productRows(s.Collection().Snapshot())
}

func (s *productScreen) OnChange(fn func(uint64, []table.Row)) {
	s.Collection().OnChange(func(c optimistic.Change[api.Product]) {
		fn(c.Version, productRows(c.Items))
	})
}

func productRows(items []api.Product) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, p := range items {
		rows = append(rows, table.Row{p.ID, p.Name, formatCents(p.PriceCents), fmt.Sprint(p.Stock), p.Status})
	}
	return rows
}

func (s *productScreen) Act(ctx context.Context, key, id string) (wait, bool) {
	switch key {
	case "t":
		return s.ops.toggle(ctx, id).Wait, true
	case "d":
		return s.ops.remove(ctx, id).Wait, true
	}
	return nil, false
}

type sellerOps struct{ v *views.SellerInventory }

func (o sellerOps) toggle(ctx context.Context, id string) *optimistic.Pending[api.Product] {
	return o.v.ToggleStatus(ctx, id)
}

func (o sellerOps) remove(ctx context.Context, id string) *optimistic.Pending[api.Product] {
	return o.v.Delete(ctx, id)
}

type adminProductOps struct{ v *views.AdminProducts }

func (o adminProductOps) toggle(ctx context.Context, id string) *optimistic.Pending[api.Product] {
	return o.v.ToggleSuspend(ctx, id)
}

func (o adminProductOps) remove(ctx context.Context, id string) *optimistic.Pending[api.Product] {
	return o.v.Delete(ctx, id)
}

func SellerScreen(v *views.SellerInventory) Screen {
	return &productScreen{Controller: v.Controller, title: "My products", ops: sellerOps{v}}
}

func AdminProductsScreen(v *views.AdminProducts) Screen {
	return &productScreen{Controller: v.Controller, title: "All products", ops: adminProductOps{v}}
}

type userScreen struct {
	v *views.AdminUsers
}

func AdminUsersScreen(v *views.AdminUsers) Screen {
	return &userScreen{v: v}
}

func (s *userScreen) Title() string { return "Users" }

func (s *userScreen) Help() string { return "r: cycle role  b: ban/unban  g: refresh  q: quit" }

func (s *userScreen) Columns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 36},
		{Title: "Email", Width: 28},
		{Title: "Role", Width: 10},
		{Title: "Status", Width: 8},
		{Title: "Verified", Width: 8},
	}
}

func (s *userScreen) Rows() []table.Row {
	return userRows(s.v.Collection().Snapshot())
}

func (s *userScreen) OnChange(fn func(uint64, []table.Row)) {
	s.v.Collection().OnChange(func(c optimistic.Change[api.User]) {
		fn(c.Version, userRows(c.Items))
	})
}

func userRows(items []api.User) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, u := range items {
		verified := "no"
		if u.EmailVerified {
			verified = "yes"
		}
		rows = append(rows, table.Row{u.ID, u.Email, u.Role, u.Status, verified})
	}
	return rows
}

func (s *userScreen) Refresh(ctx context.Context) error { return s.v.Refresh(ctx) }

func (s *userScreen) Close() { s.v.Close() }

func (s *userScreen) Act(ctx context.Context, key, id string) (wait, bool) {
	switch key {
	case "b":
		return s.v.ToggleBan(ctx, id).Wait, true
	case "r":
		return s.v.CycleRole(ctx, id).Wait, true
	}
	return nil, false
}

func formatCents(c int64) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}
